package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/vektorlab/multivac/internal/models"
	"github.com/vektorlab/multivac/internal/store"
)

func testRouter(t *testing.T, secret string) (*mux.Router, *store.Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	st, err := store.New(mr.Addr())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	router := mux.NewRouter()
	router.Use(AuthMiddleware(secret))

	jobsHandler := NewJobsHandler(st)
	router.HandleFunc("/jobs", jobsHandler.ListJobs).Methods("GET")
	router.HandleFunc("/jobs", jobsHandler.CreateJob).Methods("POST")
	router.HandleFunc("/jobs/{id}", jobsHandler.GetJob).Methods("GET")
	router.HandleFunc("/confirm/{id}", jobsHandler.ConfirmJob).Methods("POST")
	router.HandleFunc("/cancel/{id}", jobsHandler.CancelJob).Methods("POST")

	logsHandler := NewLogsHandler(st)
	router.HandleFunc("/logs/{id}", logsHandler.GetLog).Methods("GET")

	actionsHandler := NewActionsHandler(st)
	router.HandleFunc("/actions", actionsHandler.ListActions).Methods("GET")
	router.HandleFunc("/actions/{name}", actionsHandler.GetAction).Methods("GET")
	router.HandleFunc("/workers", actionsHandler.ListWorkers).Methods("GET")
	router.HandleFunc("/groups", actionsHandler.ListGroups).Methods("GET")
	router.HandleFunc("/version", GetVersion).Methods("GET")

	return router, st
}

func do(router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetJob(t *testing.T) {
	router, st := testRouter(t, "")
	ctx := context.Background()

	st.AddAction(ctx, &models.Action{
		Name:        "echo",
		Cmd:         "echo",
		AllowGroups: models.DefaultGroup,
	})

	rec := do(router, "POST", "/jobs", map[string]string{
		"action":    "echo",
		"args":      "hello",
		"initiator": "alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}

	var created map[string]string
	json.NewDecoder(rec.Body).Decode(&created)
	id := created["id"]
	if id == "" {
		t.Fatal("expected job id in response")
	}

	rec = do(router, "GET", "/jobs/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var job models.Job
	json.NewDecoder(rec.Body).Decode(&job)
	if job.Name != "echo" || job.Args != "hello" || job.Status != models.StatusReady {
		t.Fatalf("unexpected job: %+v", job)
	}

	rec = do(router, "GET", "/jobs?status=ready", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var jobs []models.Job
	json.NewDecoder(rec.Body).Decode(&jobs)
	if len(jobs) != 1 {
		t.Fatalf("expected one ready job, got %d", len(jobs))
	}
}

func TestCreateJob_Errors(t *testing.T) {
	router, st := testRouter(t, "")
	ctx := context.Background()

	st.AddAction(ctx, &models.Action{
		Name:        "deploy",
		Cmd:         "deploy.sh",
		AllowGroups: "ops",
	})

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"unknown action", map[string]string{"action": "missing"}, http.StatusNotFound},
		{"unauthorized initiator", map[string]string{"action": "deploy", "initiator": "bob"}, http.StatusForbidden},
		{"missing action field", map[string]string{"args": "x"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(router, "POST", "/jobs", tt.body); rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body)
			}
		})
	}
}

func TestConfirmAndCancel(t *testing.T) {
	router, st := testRouter(t, "")
	ctx := context.Background()

	st.AddAction(ctx, &models.Action{
		Name:            "deploy",
		Cmd:             "deploy.sh",
		ConfirmRequired: true,
		AllowGroups:     models.DefaultGroup,
	})

	id, err := st.CreateJob(ctx, "deploy", "", "alice")
	if err != nil {
		t.Fatalf("failed to create job: %v", err)
	}

	if rec := do(router, "POST", "/confirm/"+id, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 confirming pending job, got %d", rec.Code)
	}
	// Now ready; neither confirm nor cancel is valid.
	if rec := do(router, "POST", "/confirm/"+id, nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 confirming ready job, got %d", rec.Code)
	}
	if rec := do(router, "POST", "/cancel/"+id, nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 canceling ready job, got %d", rec.Code)
	}
	if rec := do(router, "POST", "/cancel/nope", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 canceling unknown job, got %d", rec.Code)
	}
}

func TestGetLog_Buffered(t *testing.T) {
	router, st := testRouter(t, "")
	ctx := context.Background()

	st.AddAction(ctx, &models.Action{
		Name:        "echo",
		Cmd:         "echo",
		AllowGroups: models.DefaultGroup,
	})
	id, _ := st.CreateJob(ctx, "echo", "", "alice")
	st.AppendJobLog(ctx, id, "some output")

	rec := do(router, "GET", "/logs/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var lines []string
	json.NewDecoder(rec.Body).Decode(&lines)
	if len(lines) != 2 {
		t.Fatalf("expected two log lines, got %v", lines)
	}

	if rec := do(router, "GET", "/logs/missing", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", rec.Code)
	}
}

func TestListEndpoints(t *testing.T) {
	router, st := testRouter(t, "")
	ctx := context.Background()

	st.AddAction(ctx, &models.Action{Name: "echo", Cmd: "echo", AllowGroups: models.DefaultGroup})
	st.AddGroup(ctx, "ops", []string{"alice"})
	st.RegisterWorker(ctx, "annie", "host1")

	for _, path := range []string{"/actions", "/actions/echo", "/workers", "/groups", "/version"} {
		if rec := do(router, "GET", path, nil); rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, rec.Code)
		}
	}

	if rec := do(router, "GET", "/actions/missing", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown action, got %d", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "test-secret"
	router, st := testRouter(t, secret)
	ctx := context.Background()

	st.AddAction(ctx, &models.Action{Name: "echo", Cmd: "echo", AllowGroups: models.DefaultGroup})

	if rec := do(router, "GET", "/jobs", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}).
		SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(map[string]string{"action": "echo", "initiator": "spoofed"})
	req := httptest.NewRequest("POST", "/jobs", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 with token, got %d: %s", rec.Code, rec.Body)
	}

	var created map[string]string
	json.NewDecoder(rec.Body).Decode(&created)
	job, _ := st.GetJob(ctx, created["id"])
	// The token subject wins over the initiator named in the body.
	if job.Initiator != "alice" {
		t.Fatalf("expected initiator from token subject, got %q", job.Initiator)
	}
}
