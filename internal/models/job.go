package models

import (
	"strconv"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"

	// StatusAll is a filter value only, never stored on a job.
	StatusAll Status = "all"
)

// ValidFilter reports whether s can be used as a status filter.
func ValidFilter(s Status) bool {
	switch s {
	case StatusPending, StatusReady, StatusRunning, StatusCompleted,
		StatusCanceled, StatusFailed, StatusAll:
		return true
	}
	return false
}

// Terminal reports whether a job in this state will produce no further output.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled || s == StatusFailed
}

// Job is a single invocation of an action. The id, name, cmd, created,
// confirm_required and allow_groups fields are immutable after creation;
// only status changes afterward.
type Job struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Args            string `json:"args"`
	Cmd             string `json:"cmd"`
	Initiator       string `json:"initiator,omitempty"`
	Created         int64  `json:"created"`
	Status          Status `json:"status"`
	ConfirmRequired bool   `json:"confirm_required"`
	AllowGroups     string `json:"allow_groups"`
	ChatbotStream   bool   `json:"chatbot_stream"`
	Timeout         int    `json:"timeout,omitempty"`
}

// Age returns how long ago the job was created.
func (j *Job) Age() time.Duration {
	return time.Since(time.Unix(j.Created, 0))
}

// ToMap flattens the job into the field map stored in its hash record.
func (j *Job) ToMap() map[string]string {
	return map[string]string{
		"id":               j.ID,
		"name":             j.Name,
		"args":             j.Args,
		"cmd":              j.Cmd,
		"initiator":        j.Initiator,
		"created":          strconv.FormatInt(j.Created, 10),
		"status":           string(j.Status),
		"confirm_required": strconv.FormatBool(j.ConfirmRequired),
		"allow_groups":     j.AllowGroups,
		"chatbot_stream":   strconv.FormatBool(j.ChatbotStream),
		"timeout":          strconv.Itoa(j.Timeout),
	}
}

// JobFromMap rebuilds a job from its stored field map.
func JobFromMap(m map[string]string) *Job {
	created, _ := strconv.ParseInt(m["created"], 10, 64)
	confirm, _ := strconv.ParseBool(m["confirm_required"])
	stream, _ := strconv.ParseBool(m["chatbot_stream"])
	timeout, _ := strconv.Atoi(m["timeout"])
	return &Job{
		ID:              m["id"],
		Name:            m["name"],
		Args:            m["args"],
		Cmd:             m["cmd"],
		Initiator:       m["initiator"],
		Created:         created,
		Status:          Status(m["status"]),
		ConfirmRequired: confirm,
		AllowGroups:     m["allow_groups"],
		ChatbotStream:   stream,
		Timeout:         timeout,
	}
}
