package models

import (
	"strconv"
	"strings"
)

// DefaultGroup is the distinguished group name meaning "no restriction".
const DefaultGroup = "all"

// Action is a named, reusable shell command template. Jobs copy the fields
// they need at creation time, so replacing the catalog never alters a job
// already in flight.
type Action struct {
	Name            string `json:"name"`
	Cmd             string `json:"cmd"`
	ConfirmRequired bool   `json:"confirm_required"`
	AllowGroups     string `json:"allow_groups"`
	ChatbotStream   bool   `json:"chatbot_stream"`
	Timeout         int    `json:"timeout,omitempty"`
}

// Groups returns the allow_groups list split on commas.
func (a *Action) Groups() []string {
	return strings.Split(a.AllowGroups, ",")
}

// ToMap flattens the action into the field map stored in its hash record.
func (a *Action) ToMap() map[string]string {
	return map[string]string{
		"name":             a.Name,
		"cmd":              a.Cmd,
		"confirm_required": strconv.FormatBool(a.ConfirmRequired),
		"allow_groups":     a.AllowGroups,
		"chatbot_stream":   strconv.FormatBool(a.ChatbotStream),
		"timeout":          strconv.Itoa(a.Timeout),
	}
}

// ActionFromMap rebuilds an action from its stored field map.
func ActionFromMap(m map[string]string) *Action {
	confirm, _ := strconv.ParseBool(m["confirm_required"])
	stream, _ := strconv.ParseBool(m["chatbot_stream"])
	timeout, _ := strconv.Atoi(m["timeout"])
	return &Action{
		Name:            m["name"],
		Cmd:             m["cmd"],
		ConfirmRequired: confirm,
		AllowGroups:     m["allow_groups"],
		ChatbotStream:   stream,
		Timeout:         timeout,
	}
}

// WorkerInfo is the ephemeral registration record a live worker refreshes
// on every scheduler cycle.
type WorkerInfo struct {
	Name string `json:"name"`
	Host string `json:"host"`
}
