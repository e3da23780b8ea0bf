package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/eventloop/internal/domain/job"
)

var ErrNoHandler = errors.New("no handler registered for job type")

// ProcessOne claims and runs at most one job. It reports whether a job was
// claimed.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}
		return false, err
	}

	start := time.Now()
	err = w.execute(ctx, j)

	// bookkeeping must land even when shutdown cancelled ctx
	bookCtx, bookCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer bookCancel()

	if err != nil {
		result := w.handleFailure(bookCtx, j, err)
		w.prom.ObserveJob(j.Type, result, time.Since(start))
		return true, nil
	}

	if err := w.repo.MarkDone(bookCtx, j.ID); err != nil {
		_ = w.repo.MarkFailed(bookCtx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.prom.ObserveJob(j.Type, "done", time.Since(start))
	w.log.InfoContext(ctx, "job.done",
		"job_id", j.ID,
		"job_type", j.Type,
		"attempt", j.Attempts+1,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) (err error) {
	h, ok := w.handlers[j.Type]
	if !ok {
		return Permanent(fmt.Errorf("%w: %s", ErrNoHandler, j.Type))
	}

	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	return h(runCtx, j)
}

// handleFailure reschedules with backoff or marks the job failed, and
// returns the metrics result label.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error) string {
	attempt := j.Attempts + 1
	log := w.log.With("job_id", j.ID, "job_type", j.Type, "attempt", attempt, "err", cause)

	if IsPermanent(cause) || attempt >= j.MaxAttempts {
		if err := w.repo.MarkFailed(ctx, j.ID, cause.Error()); err != nil {
			log.ErrorContext(ctx, "job.mark_failed_error", "mark_err", err)
		}
		log.ErrorContext(ctx, "job.failed")
		return "failed"
	}

	runAt := time.Now().UTC().Add(ExponentialBackoff(j.Attempts))
	if err := w.repo.Reschedule(ctx, j.ID, runAt, cause.Error()); err != nil {
		log.ErrorContext(ctx, "job.reschedule_error", "reschedule_err", err)
	}
	log.WarnContext(ctx, "job.retry_scheduled", "run_at", runAt)
	return "retry"
}
