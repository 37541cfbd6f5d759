package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	return path
}

func TestLoadCatalog_Defaults(t *testing.T) {
	path := writeCatalog(t, `
actions:
  - name: echo
    cmd: echo
`)

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	if len(catalog.Actions) != 1 {
		t.Fatalf("expected one action, got %d", len(catalog.Actions))
	}

	action := catalog.Actions[0].Action()
	if action.ConfirmRequired {
		t.Fatal("expected confirm_required to default to false")
	}
	if action.AllowGroups != "all" {
		t.Fatalf("expected allow_groups to default to all, got %q", action.AllowGroups)
	}
	if !action.ChatbotStream {
		t.Fatal("expected chatbot_stream to default to true")
	}
}

func TestLoadCatalog_AllowGroupsForms(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"scalar group",
			"actions:\n  - name: deploy\n    cmd: deploy.sh\n    allow_groups: ops\n",
			"ops",
		},
		{
			"list of groups",
			"actions:\n  - name: deploy\n    cmd: deploy.sh\n    allow_groups: [ops, admins]\n",
			"ops,admins",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := LoadCatalog(writeCatalog(t, tt.yaml))
			if err != nil {
				t.Fatalf("failed to load catalog: %v", err)
			}
			if got := catalog.Actions[0].Action().AllowGroups; got != tt.want {
				t.Fatalf("expected allow_groups %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLoadCatalog_Groups(t *testing.T) {
	path := writeCatalog(t, `
actions:
  - name: deploy
    cmd: deploy.sh
    confirm_required: true
    chatbot_stream: false
    timeout: 60
groups:
  ops:
    - alice
    - bob
`)

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	action := catalog.Actions[0].Action()
	if !action.ConfirmRequired || action.ChatbotStream || action.Timeout != 60 {
		t.Fatalf("explicit fields not honored: %+v", action)
	}

	members := catalog.Groups["ops"]
	if len(members) != 2 || members[0] != "alice" || members[1] != "bob" {
		t.Fatalf("expected ops members, got %v", members)
	}
}

func TestLoadCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "actions:\n  - name: [broken\n"},
		{"missing cmd", "actions:\n  - name: echo\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadCatalog(writeCatalog(t, tt.yaml)); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	t.Setenv("WORKER_POOL_SIZE", "")
	t.Setenv("REQUIRE_WORKERS", "")

	settings := Load()

	if settings.RedisAddr == "" || settings.Port == "" {
		t.Fatalf("expected defaults, got %+v", settings)
	}
	if settings.PoolSize != 10 {
		t.Fatalf("expected default pool size 10, got %d", settings.PoolSize)
	}
	if settings.RequireWorkers {
		t.Fatal("expected require_workers to default off")
	}
}
