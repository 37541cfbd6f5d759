// Package worker implements the job lifecycle manager: a poll loop that
// keeps a heartbeat registration alive, claims ready jobs, executes them
// as subprocesses with bounded concurrency, streams their output into the
// store, sweeps expired pending jobs and hot-reloads the action catalog.
package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goombaio/namegenerator"
	"golang.org/x/sync/semaphore"

	"github.com/vektorlab/multivac/internal/config"
	"github.com/vektorlab/multivac/internal/models"
	"github.com/vektorlab/multivac/internal/store"
)

type Worker struct {
	store    *store.Store
	settings config.Settings
	name     string
	host     string

	sem *semaphore.Weighted

	// Active process table. The dispatcher's runners insert, the runner
	// that owns a job removes; everything else only reads.
	mu    sync.Mutex
	procs map[string]*os.Process

	// Catalog reload bookkeeping.
	loadedAt time.Time
	dirty    atomic.Bool
}

// New registers a worker against the store under a fresh friendly name,
// distinct from any currently live worker.
func New(st *store.Store, settings config.Settings) (*Worker, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	name, err := pickName(context.Background(), st)
	if err != nil {
		return nil, err
	}

	return &Worker{
		store:    st,
		settings: settings,
		name:     name,
		host:     host,
		sem:      semaphore.NewWeighted(int64(settings.PoolSize)),
		procs:    make(map[string]*os.Process),
	}, nil
}

// Name returns the worker's registered name.
func (w *Worker) Name() string { return w.name }

// Run loads the catalog and drives the scheduler loop until ctx is done.
// Failures in individual jobs never propagate here; only an unloadable
// initial catalog is fatal.
func (w *Worker) Run(ctx context.Context) error {
	catalog, err := config.LoadCatalog(w.settings.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load initial config: %w", err)
	}
	if err := w.loadCatalog(ctx, catalog); err != nil {
		return fmt.Errorf("failed to load catalog into store: %w", err)
	}
	w.markLoaded()

	if watcher, err := fsnotify.NewWatcher(); err == nil {
		defer watcher.Close()
		if err := watcher.Add(w.settings.ConfigPath); err == nil {
			go w.watchConfig(ctx, watcher)
		} else {
			log.Printf("config watch unavailable, falling back to mtime polling: %v", err)
		}
	}

	log.Printf("starting job worker %s on %s", w.name, w.host)

	ticker := time.NewTicker(w.settings.PollInterval)
	defer ticker.Stop()

	for {
		w.heartbeat(ctx)
		w.dispatch(ctx)
		w.sweepPending(ctx)
		w.maybeReload(ctx)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// heartbeat refreshes this worker's registration so its TTL never lapses
// while the loop is alive.
func (w *Worker) heartbeat(ctx context.Context) {
	if err := w.store.RegisterWorker(ctx, w.name, w.host); err != nil {
		log.Printf("heartbeat failed: %v", err)
	}
}

// dispatch launches every ready job concurrently, bounded by the pool
// size. Jobs that don't fit stay ready and are retried next cycle.
func (w *Worker) dispatch(ctx context.Context) {
	jobs, err := w.store.GetJobs(ctx, models.StatusReady)
	if err != nil {
		log.Printf("failed to poll for ready jobs: %v", err)
		return
	}

	for _, job := range jobs {
		if !w.sem.TryAcquire(1) {
			return
		}
		go w.runJob(ctx, job)
	}
}

// sweepPending cancels pending jobs older than the confirmation timeout.
func (w *Worker) sweepPending(ctx context.Context) {
	jobs, err := w.store.GetJobs(ctx, models.StatusPending)
	if err != nil {
		log.Printf("failed to poll for pending jobs: %v", err)
		return
	}

	for _, job := range jobs {
		if job.Age() < w.settings.PendingTimeout {
			continue
		}
		if err := w.store.CancelJob(ctx, job.ID); err != nil {
			// Lost a race with a confirm; the job runs normally.
			continue
		}
		log.Printf("canceled job %s: unconfirmed after %s", job.ID, w.settings.PendingTimeout)
	}
}

// markLoaded records the catalog file's mtime so an unchanged file never
// triggers a reload. When the stat fails the current time stands in; a
// stale zero value here would make the next cycle reload spuriously.
func (w *Worker) markLoaded() {
	mtime, err := config.ModTime(w.settings.ConfigPath)
	if err != nil {
		log.Printf("failed to stat config %s: %v", w.settings.ConfigPath, err)
		w.loadedAt = time.Now()
		return
	}
	w.loadedAt = mtime
}

func (w *Worker) watchConfig(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.dirty.Store(true)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config watch error: %v", err)
		case <-ctx.Done():
			return
		}
	}
}

// maybeReload replaces the action and group catalogs when the config file
// has changed. A parse failure aborts the reload and keeps the previously
// loaded catalog intact.
func (w *Worker) maybeReload(ctx context.Context) {
	changed := w.dirty.Swap(false)
	mtime, err := config.ModTime(w.settings.ConfigPath)
	if err == nil && mtime.After(w.loadedAt) {
		changed = true
	}
	if !changed {
		return
	}
	if err == nil {
		w.loadedAt = mtime
	}

	catalog, err := config.LoadCatalog(w.settings.ConfigPath)
	if err != nil {
		log.Printf("CONFIG RELOAD FAILED, keeping loaded catalog: %v", err)
		return
	}
	if err := w.loadCatalog(ctx, catalog); err != nil {
		log.Printf("failed to replace catalog: %v", err)
		return
	}
	log.Printf("reloaded config from %s", w.settings.ConfigPath)
}

// loadCatalog purges and rewrites the store's group and action records.
func (w *Worker) loadCatalog(ctx context.Context, catalog *config.Catalog) error {
	if err := w.store.PurgeGroups(ctx); err != nil {
		return err
	}
	for name, members := range catalog.Groups {
		if err := w.store.AddGroup(ctx, name, members); err != nil {
			return err
		}
		log.Printf("loaded group %s", name)
	}

	if err := w.store.PurgeActions(ctx); err != nil {
		return err
	}
	for _, def := range catalog.Actions {
		if err := w.store.AddAction(ctx, def.Action()); err != nil {
			return err
		}
		log.Printf("loaded action %s", def.Name)
	}
	return nil
}

func pickName(ctx context.Context, st *store.Store) (string, error) {
	workers, err := st.GetWorkers(ctx)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(workers))
	for _, w := range workers {
		taken[w.Name] = true
	}

	gen := namegenerator.NewNameGenerator(time.Now().UnixNano())
	name := gen.Generate()
	for taken[name] {
		name = gen.Generate()
	}
	return name, nil
}
