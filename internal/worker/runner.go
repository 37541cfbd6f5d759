package worker

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/shlex"

	"github.com/vektorlab/multivac/internal/models"
)

// runJob claims and executes a single ready job. It runs in its own
// goroutine; any failure is logged and confined to this job so the
// scheduler loop and sibling jobs are never affected.
func (w *Worker) runJob(ctx context.Context, job *models.Job) {
	defer w.sem.Release(1)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic in job %s: %v", job.ID, r)
		}
	}()

	claimed, err := w.store.ClaimJob(ctx, job.ID)
	if err != nil {
		log.Printf("failed to claim job %s: %v", job.ID, err)
		return
	}
	if !claimed {
		// Another worker got there first.
		return
	}

	log.Printf("running job %s (%s)", job.ID, job.Name)
	status := w.execute(ctx, job)

	if err := w.store.FinishJob(ctx, job.ID, status); err != nil {
		log.Printf("failed to finish job %s: %v", job.ID, err)
		return
	}
	log.Printf("%s job %s", status, job.ID)
}

// execute spawns the job's subprocess, pumps both output streams into the
// job log, and returns the terminal status. Both pumps are drained to EOF
// before the process is reaped, so trailing output is never lost.
func (w *Worker) execute(ctx context.Context, job *models.Job) models.Status {
	cmdline := job.Cmd
	if job.Args != "" {
		cmdline += " " + job.Args
	}
	argv, err := shlex.Split(cmdline)
	if err != nil || len(argv) == 0 {
		w.appendLog(ctx, job.ID, "invalid command line: "+cmdline)
		return models.StatusFailed
	}

	cctx := ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, time.Duration(job.Timeout)*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(cctx, argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		w.appendLog(ctx, job.ID, "failed to open stdout: "+err.Error())
		return models.StatusFailed
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		w.appendLog(ctx, job.ID, "failed to open stderr: "+err.Error())
		return models.StatusFailed
	}

	if err := cmd.Start(); err != nil {
		w.appendLog(ctx, job.ID, "failed to start: "+err.Error())
		return models.StatusFailed
	}

	w.track(job.ID, cmd.Process)
	defer w.untrack(job.ID)

	var wg sync.WaitGroup
	wg.Add(2)
	go w.pump(ctx, job.ID, stdout, &wg)
	go w.pump(ctx, job.ID, stderr, &wg)
	wg.Wait()

	err = cmd.Wait()
	if cctx.Err() == context.DeadlineExceeded {
		w.appendLog(ctx, job.ID, "job timed out, process killed")
		return models.StatusFailed
	}
	if err != nil {
		return models.StatusFailed
	}
	return models.StatusCompleted
}

// pump copies one output stream into the job log line by line until EOF.
func (w *Worker) pump(ctx context.Context, jobID string, pipe io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()

	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		w.appendLog(ctx, jobID, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.Printf("log pump for job %s: %v", jobID, err)
	}
}

func (w *Worker) appendLog(ctx context.Context, jobID, text string) {
	if err := w.store.AppendJobLog(ctx, jobID, text); err != nil {
		log.Printf("failed to append log for job %s: %v", jobID, err)
	}
}

func (w *Worker) track(jobID string, proc *os.Process) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.procs[jobID] = proc
}

func (w *Worker) untrack(jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.procs, jobID)
}

// ActiveJobs returns the IDs of jobs whose processes this worker is
// currently tracking.
func (w *Worker) ActiveJobs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.procs))
	for id := range w.procs {
		ids = append(ids, id)
	}
	return ids
}
