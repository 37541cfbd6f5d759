// Package chatbot turns free-text chat commands into coordination store
// operations. The first whitespace-delimited token is the command or
// action name; the remainder is passed verbatim as job arguments.
package chatbot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vektorlab/multivac/internal/models"
	"github.com/vektorlab/multivac/internal/store"
)

const helpText = `built-in commands:
  jobs [pending|ready|running|completed|canceled|failed|all]
  logs <job-id>
  confirm <job-id>
  cancel <job-id>
  workers
  actions
  help
anything else runs the action of that name`

type Bot struct {
	store *store.Store
}

func New(st *store.Store) *Bot {
	return &Bot{store: st}
}

// ParseCommand splits message text into a command and its argument string.
func ParseCommand(text string) (string, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// Result is the outcome of one handled message. JobID is set when a job
// was created; Stream reports whether the action wants its output
// followed live.
type Result struct {
	Replies []string
	JobID   string
	Stream  bool
}

// HandleMessage routes one message from user. Built-in commands map to
// store reads and writes; anything else creates a job.
func (b *Bot) HandleMessage(ctx context.Context, user, text string) *Result {
	command, args := ParseCommand(text)

	switch command {
	case "":
		return &Result{}
	case "help":
		return &Result{Replies: []string{helpText}}
	case "jobs":
		return &Result{Replies: b.listJobs(ctx, args)}
	case "logs":
		return &Result{Replies: b.jobLog(ctx, args)}
	case "workers":
		return &Result{Replies: b.listWorkers(ctx)}
	case "actions":
		return &Result{Replies: b.listActions(ctx)}
	case "confirm":
		if err := b.store.ConfirmJob(ctx, args); err != nil {
			return &Result{Replies: []string{err.Error()}}
		}
		return &Result{Replies: []string{"confirmed job " + args}}
	case "cancel":
		if err := b.store.CancelJob(ctx, args); err != nil {
			return &Result{Replies: []string{err.Error()}}
		}
		return &Result{Replies: []string{"canceled job " + args}}
	}

	id, err := b.store.CreateJob(ctx, command, args, user)
	if err != nil {
		return &Result{Replies: []string{err.Error()}}
	}

	result := &Result{JobID: id}
	job, err := b.store.GetJob(ctx, id)
	if err != nil || job == nil {
		result.Replies = []string{"created job " + id}
		return result
	}

	result.Stream = job.ChatbotStream
	if job.Status == models.StatusPending {
		result.Replies = []string{id + " needs confirmation"}
	} else {
		result.Replies = []string{"created job " + id}
	}
	return result
}

// FollowJob waits for a job to leave pending, then forwards its live log
// entries to out until the log completes. Canceled jobs report instead of
// streaming.
func (b *Bot) FollowJob(ctx context.Context, id string, out func(string)) {
	prefix := "[" + id + "] "

	for {
		job, err := b.store.GetJob(ctx, id)
		if err != nil || job == nil {
			out(prefix + "job disappeared")
			return
		}
		if job.Status == models.StatusCanceled {
			out(prefix + "canceled")
			return
		}
		if job.Status != models.StatusPending {
			break
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return
		}
	}

	stored, live, err := b.store.GetLog(ctx, id, false)
	if err != nil {
		out(prefix + err.Error())
		return
	}
	for _, line := range stored {
		out(prefix + line)
	}
	if live != nil {
		for line := range live {
			out(prefix + line)
		}
	}
	out(prefix + "done")
}

func (b *Bot) listJobs(ctx context.Context, arg string) []string {
	status := models.StatusAll
	if arg != "" {
		status = models.Status(arg)
		if !models.ValidFilter(status) {
			return []string{"status must be one of pending, ready, running, completed, canceled, failed, all"}
		}
	}

	jobs, err := b.store.GetJobs(ctx, status)
	if err != nil {
		return []string{err.Error()}
	}
	if len(jobs) == 0 {
		return []string{"no matching jobs found"}
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Created < jobs[j].Created })
	lines := make([]string, 0, len(jobs))
	for _, j := range jobs {
		created := time.Unix(j.Created, 0).UTC().Format("Jan 02 15:04:05")
		lines = append(lines, fmt.Sprintf("%s %s(%s) %s", created, j.ID, j.Name, j.Status))
	}
	return lines
}

func (b *Bot) jobLog(ctx context.Context, id string) []string {
	if id == "" {
		return []string{"usage: logs <job-id>"}
	}
	job, err := b.store.GetJob(ctx, id)
	if err != nil {
		return []string{err.Error()}
	}
	if job == nil {
		return []string{models.ErrNoSuchJob.Error()}
	}
	lines, err := b.store.GetStoredLog(ctx, id, true)
	if err != nil {
		return []string{err.Error()}
	}
	if len(lines) == 0 {
		return []string{"no output for job " + id}
	}
	return lines
}

func (b *Bot) listWorkers(ctx context.Context) []string {
	workers, err := b.store.GetWorkers(ctx)
	if err != nil {
		return []string{err.Error()}
	}
	if len(workers) == 0 {
		return []string{"no registered workers"}
	}
	lines := make([]string, 0, len(workers))
	for _, w := range workers {
		lines = append(lines, fmt.Sprintf("%s(%s)", w.Name, w.Host))
	}
	return lines
}

func (b *Bot) listActions(ctx context.Context) []string {
	actions, err := b.store.GetActions(ctx)
	if err != nil {
		return []string{err.Error()}
	}
	if len(actions) == 0 {
		return []string{"no configured actions"}
	}
	lines := make([]string, 0, len(actions))
	for _, a := range actions {
		line := a.Name
		if a.ConfirmRequired {
			line += " (confirm required)"
		}
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines
}
