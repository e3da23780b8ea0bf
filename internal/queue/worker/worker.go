package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/geocoder89/eventloop/internal/domain/job"
	"github.com/geocoder89/eventloop/internal/jobs"
	"github.com/geocoder89/eventloop/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	RequeueStale(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// Handler executes one job. Returning a Permanent error skips retries.
type Handler func(ctx context.Context, j job.Job) error

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

type Config struct {
	WorkerID     string
	PollInterval time.Duration
	Concurrency  int
	JobTimeout   time.Duration
	LockTTL      time.Duration
}

func (c Config) withDefaults() Config {
	if c.WorkerID == "" {
		host, _ := os.Hostname()
		c.WorkerID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 30 * time.Second
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 5 * time.Minute
	}
	return c
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	handlers map[string]Handler
	log      *slog.Logger
	prom     *observability.Prom

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, log *slog.Logger, prom *observability.Prom) *Worker {
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.withDefaults()

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		handlers: make(map[string]Handler),
		log:      log.With("worker_id", cfg.WorkerID),
		prom:     prom,
	}
}

func (w *Worker) Register(t jobs.JobType, h Handler) {
	w.handlers[string(t)] = h
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) Ready() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

// Run polls until ctx is cancelled, then waits for in-flight jobs.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	w.log.InfoContext(ctx, "worker.started",
		"concurrency", w.cfg.Concurrency,
		"poll_interval", w.cfg.PollInterval.String(),
	)

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.reap(ctx)
	}()

	wg.Wait()
	w.log.Info("worker.stopped")
	return nil
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// drain everything ready before sleeping again
		for ctx.Err() == nil {
			processed, err := w.ProcessOne(ctx)
			if err != nil {
				w.log.ErrorContext(ctx, "worker.process_error", "err", err)
				break
			}
			if !processed {
				break
			}
		}
	}
}

// reap returns jobs locked by dead workers to the queue.
func (w *Worker) reap(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.LockTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.repo.RequeueStale(ctx, w.cfg.LockTTL)
			if err != nil {
				w.log.ErrorContext(ctx, "worker.requeue_stale_failed", "err", err)
				continue
			}
			if n > 0 {
				w.log.WarnContext(ctx, "worker.requeued_stale", "count", n)
			}
		}
	}
}
