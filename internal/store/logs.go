package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/vektorlab/multivac/internal/models"
)

// logSentinel marks the end of a job's log channel; no further entries
// will be appended once it is published.
const logSentinel = "EOF"

// timestamps match the format stored alongside every log line.
const logTimeFormat = "Mon Jan 02 15:04:05 2006"

// AppendJobLog timestamps and persists a line of job output, then
// publishes it to the job's live channel. Multi-line input is split into
// individual entries; whitespace-only lines are dropped.
func (s *Store) AppendJobLog(ctx context.Context, id, text string) error {
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := json.Marshal([2]string{time.Now().UTC().Format(logTimeFormat), line})
		if err != nil {
			return err
		}
		key := logKey(id)
		if err := s.rdb.Publish(ctx, key, string(entry)).Err(); err != nil {
			return err
		}
		if err := s.rdb.LPush(ctx, key, string(entry)).Err(); err != nil {
			return err
		}
	}
	return nil
}

// GetStoredLog returns the full persisted log for a job in chronological
// order. The list is kept most-recent-first internally, so the read path
// reverses it.
func (s *Store) GetStoredLog(ctx context.Context, id string, withTime bool) ([]string, error) {
	entries, err := s.rdb.LRange(ctx, logKey(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		lines = append(lines, decodeEntry(entries[i], withTime))
	}
	return lines, nil
}

// StreamLog subscribes to a job's live log channel and returns a channel
// that yields entries as they are published, closing once the completion
// sentinel is observed or ctx is done. Entries published before the
// subscription attached are not replayed.
func (s *Store) StreamLog(ctx context.Context, id string, withTime bool) (<-chan string, error) {
	sub := s.rdb.Subscribe(ctx, logKey(id))

	// Force the subscription onto the wire before returning so callers
	// never miss entries appended right after this call.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer sub.Close()

		for {
			select {
			case msg, ok := <-sub.Channel():
				if !ok || msg.Payload == logSentinel {
					return
				}
				select {
				case out <- decodeEntry(msg.Payload, withTime):
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// GetLog is the single read path for job output: terminal jobs replay
// from durable storage, anything else follows the live channel.
func (s *Store) GetLog(ctx context.Context, id string, withTime bool) (stored []string, live <-chan string, err error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if job == nil {
		return nil, nil, models.ErrNoSuchJob
	}

	if job.Status.Terminal() {
		stored, err = s.GetStoredLog(ctx, id, withTime)
		return stored, nil, err
	}

	return s.followLog(ctx, id, withTime)
}

// followLog attaches a live subscription for a job last seen in a
// non-terminal state. The job may have finished before the subscription
// attached, with its sentinel published to nobody; re-checking the status
// after attach and republishing the sentinel closes that window, falling
// back to the stored log.
func (s *Store) followLog(ctx context.Context, id string, withTime bool) ([]string, <-chan string, error) {
	live, err := s.StreamLog(ctx, id, withTime)
	if err != nil {
		return nil, nil, err
	}

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if job != nil && !job.Status.Terminal() {
		return nil, live, nil
	}

	// Republishing the sentinel is safe for a terminal job and releases
	// the subscription we just attached.
	s.rdb.Publish(ctx, logKey(id), logSentinel)
	for range live {
	}
	stored, err := s.GetStoredLog(ctx, id, withTime)
	return stored, nil, err
}

func decodeEntry(raw string, withTime bool) string {
	var pair [2]string
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		// Not a structured entry; pass it through untouched.
		return raw
	}
	if !withTime {
		return pair[1]
	}
	return "[" + pair[0] + "] " + pair[1]
}
