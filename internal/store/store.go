// Package store implements the coordination store shared by every worker
// and front end: job, action, group and worker records live in Redis hashes,
// job logs in Redis lists with a companion pub/sub channel per job. The
// store is the only synchronization point between processes.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WorkerTTL is how long a worker registration survives without a refresh.
const WorkerTTL = 15 * time.Second

const (
	jobPrefix    = "job"
	logPrefix    = "log"
	actionPrefix = "action"
	groupPrefix  = "group"
	workerPrefix = "worker"
)

type Store struct {
	rdb *redis.Client

	// requireWorkers makes CreateJob fail when no live worker is
	// registered. Off by default; policy, not contract.
	requireWorkers bool
}

type Option func(*Store)

// WithRequireWorkers toggles the live-worker precondition on job creation.
func WithRequireWorkers(require bool) Option {
	return func(s *Store) { s.requireWorkers = require }
}

// New connects to Redis at addr and verifies the connection.
func New(addr string, opts ...Option) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	s := &Store{rdb: rdb}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func key(prefix, id string) string {
	return prefix + ":" + id
}

func jobKey(id string) string   { return key(jobPrefix, id) }
func logKey(id string) string   { return key(logPrefix, id) }
func actionKey(n string) string { return key(actionPrefix, n) }
func groupKey(n string) string  { return key(groupPrefix, n) }
func workerKey(n string) string { return key(workerPrefix, n) }
