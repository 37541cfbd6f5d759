package store

import (
	"context"

	"github.com/vektorlab/multivac/internal/models"
)

// RegisterWorker upserts a worker record with a refreshed TTL. A worker
// that stops refreshing expires from the registry within WorkerTTL.
func (s *Store) RegisterWorker(ctx context.Context, name, host string) error {
	key := workerKey(name)
	if err := s.rdb.HSet(ctx, key, map[string]string{"name": name, "host": host}).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, key, WorkerTTL).Err()
}

// GetWorkers returns every live worker registration.
func (s *Store) GetWorkers(ctx context.Context) ([]models.WorkerInfo, error) {
	keys, err := s.rdb.Keys(ctx, workerKey("*")).Result()
	if err != nil {
		return nil, err
	}

	workers := make([]models.WorkerInfo, 0, len(keys))
	for _, k := range keys {
		m, err := s.rdb.HGetAll(ctx, k).Result()
		if err != nil {
			return nil, err
		}
		if len(m) == 0 {
			continue
		}
		workers = append(workers, models.WorkerInfo{Name: m["name"], Host: m["host"]})
	}
	return workers, nil
}
