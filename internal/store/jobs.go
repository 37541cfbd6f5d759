package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vektorlab/multivac/internal/models"
)

// claimScript transitions a job from ready to running only if it is still
// ready, so two workers polling the same store can never both claim it.
var claimScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'status') == 'ready' then
	redis.call('HSET', KEYS[1], 'status', 'running')
	return 1
end
return 0
`)

// CreateJob validates and enqueues a new job for the named action and
// returns its ID. The job starts pending when the action requires
// confirmation, ready otherwise.
func (s *Store) CreateJob(ctx context.Context, actionName, args, initiator string) (string, error) {
	action, err := s.GetAction(ctx, actionName)
	if err != nil {
		return "", err
	}
	if action == nil {
		return "", models.ErrNoSuchAction
	}

	ok, err := s.memberOfAny(ctx, initiator, action.Groups())
	if err != nil {
		return "", err
	}
	if !ok {
		return "", models.ErrUnauthorized
	}

	if s.requireWorkers {
		workers, err := s.GetWorkers(ctx)
		if err != nil {
			return "", err
		}
		if len(workers) == 0 {
			return "", models.ErrNoWorkers
		}
	}

	job := &models.Job{
		ID:              strings.ReplaceAll(uuid.NewString(), "-", ""),
		Name:            action.Name,
		Args:            args,
		Cmd:             action.Cmd,
		Initiator:       initiator,
		Created:         time.Now().Unix(),
		Status:          models.StatusReady,
		ConfirmRequired: action.ConfirmRequired,
		AllowGroups:     action.AllowGroups,
		ChatbotStream:   action.ChatbotStream,
		Timeout:         action.Timeout,
	}
	if action.ConfirmRequired {
		job.Status = models.StatusPending
	}

	if initiator != "" {
		if err := s.AppendJobLog(ctx, job.ID, "Job initiated by "+initiator); err != nil {
			return "", err
		}
	}

	if err := s.rdb.HSet(ctx, jobKey(job.ID), job.ToMap()).Err(); err != nil {
		return "", fmt.Errorf("failed to store job: %w", err)
	}

	return job.ID, nil
}

// GetJob returns a job by ID, or nil when no such job exists.
func (s *Store) GetJob(ctx context.Context, id string) (*models.Job, error) {
	m, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	return models.JobFromMap(m), nil
}

// GetJobs returns all jobs, filtered by status unless the filter is "all".
func (s *Store) GetJobs(ctx context.Context, status models.Status) ([]*models.Job, error) {
	keys, err := s.rdb.Keys(ctx, jobKey("*")).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]*models.Job, 0, len(keys))
	for _, k := range keys {
		m, err := s.rdb.HGetAll(ctx, k).Result()
		if err != nil {
			return nil, err
		}
		if len(m) == 0 {
			continue
		}
		job := models.JobFromMap(m)
		if status == models.StatusAll || job.Status == status {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// UpdateJob writes a single field on a job record unconditionally.
func (s *Store) UpdateJob(ctx context.Context, id, field, value string) error {
	return s.rdb.HSet(ctx, jobKey(id), field, value).Err()
}

// ClaimJob atomically transitions a ready job to running. It returns false
// when the job was already claimed, canceled or otherwise not ready.
func (s *Store) ClaimJob(ctx context.Context, id string) (bool, error) {
	n, err := claimScript.Run(ctx, s.rdb, []string{jobKey(id)}).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ConfirmJob releases a pending job for execution.
func (s *Store) ConfirmJob(ctx context.Context, id string) error {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return models.ErrNoSuchJob
	}
	if job.Status != models.StatusPending {
		return fmt.Errorf("%w: cannot confirm job in %s state", models.ErrInvalidState, job.Status)
	}
	return s.UpdateJob(ctx, id, "status", string(models.StatusReady))
}

// CancelJob cancels a pending job. Jobs in any other state cannot be
// canceled; a running job's process belongs to the worker executing it.
func (s *Store) CancelJob(ctx context.Context, id string) error {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return models.ErrNoSuchJob
	}
	if job.Status != models.StatusPending {
		return fmt.Errorf("%w: cannot cancel job in %s state", models.ErrInvalidState, job.Status)
	}
	return s.FinishJob(ctx, id, models.StatusCanceled)
}

// FinishJob marks a job terminal and publishes the log completion sentinel
// so every live subscriber unblocks. The status is written before the
// sentinel: a reader that observed a non-terminal status has therefore
// already subscribed by the time the sentinel fires.
func (s *Store) FinishJob(ctx context.Context, id string, status models.Status) error {
	if err := s.UpdateJob(ctx, id, "status", string(status)); err != nil {
		return err
	}
	return s.rdb.Publish(ctx, logKey(id), logSentinel).Err()
}
