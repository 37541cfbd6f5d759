package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vektorlab/multivac/internal/models"
)

// Catalog is the action and group configuration document. It is loaded in
// bulk and replaces the store's catalog atomically on reload.
type Catalog struct {
	Actions []ActionDef         `yaml:"actions"`
	Groups  map[string][]string `yaml:"groups"`
}

// ActionDef is one action entry as written in the config file. Defaults:
// confirm_required false, allow_groups "all", chatbot_stream true.
type ActionDef struct {
	Name            string     `yaml:"name"`
	Cmd             string     `yaml:"cmd"`
	ConfirmRequired bool       `yaml:"confirm_required"`
	AllowGroups     StringList `yaml:"allow_groups"`
	ChatbotStream   *bool      `yaml:"chatbot_stream"`
	Timeout         int        `yaml:"timeout"`
}

// StringList accepts either a single scalar or a sequence of strings.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = StringList(items)
		return nil
	}
	return fmt.Errorf("allow_groups must be a string or a list of strings")
}

// Action converts the definition to its store record, applying defaults.
func (d *ActionDef) Action() *models.Action {
	groups := models.DefaultGroup
	if len(d.AllowGroups) > 0 {
		groups = strings.Join(d.AllowGroups, ",")
	}
	stream := true
	if d.ChatbotStream != nil {
		stream = *d.ChatbotStream
	}
	return &models.Action{
		Name:            d.Name,
		Cmd:             d.Cmd,
		ConfirmRequired: d.ConfirmRequired,
		AllowGroups:     groups,
		ChatbotStream:   stream,
		Timeout:         d.Timeout,
	}
}

// LoadCatalog parses the action/group document at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i, a := range catalog.Actions {
		if a.Name == "" || a.Cmd == "" {
			return nil, fmt.Errorf("action %d in %s is missing a name or cmd", i, path)
		}
	}
	return &catalog, nil
}

// ModTime returns the catalog file's modification time, used to detect
// config changes between reloads.
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
