package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/eventloop/internal/domain/job"
)

type JobsRepo struct {
	s *Store
}

// enqueueLocked inserts unless the idempotency key already exists.
// Callers hold the write lock.
func (s *Store) enqueueLocked(req job.CreateRequest) job.Job {
	if req.IdempotencyKey != nil {
		if id, ok := s.jobKeys[*req.IdempotencyKey]; ok {
			return s.jobs[id]
		}
	}

	j := job.New(req)
	s.jobs[j.ID] = j
	if j.IdempotencyKey != nil {
		s.jobKeys[*j.IdempotencyKey] = j.ID
	}
	return j
}

func (r *JobsRepo) Create(ctx context.Context, req job.CreateRequest) (job.Job, error) {
	if err := ctx.Err(); err != nil {
		return job.Job{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.enqueueLocked(req), nil
}

func (r *JobsRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	if err := ctx.Err(); err != nil {
		return job.Job{}, err
	}

	now := time.Now().UTC()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ready := make([]job.Job, 0)
	for _, j := range r.s.jobs {
		if j.Status == job.StatusPending && !j.RunAt.After(now) && j.Attempts < j.MaxAttempts {
			ready = append(ready, j)
		}
	}
	if len(ready) == 0 {
		return job.Job{}, job.ErrJobNotFound
	}

	sort.Slice(ready, func(i, k int) bool {
		if !ready[i].RunAt.Equal(ready[k].RunAt) {
			return ready[i].RunAt.Before(ready[k].RunAt)
		}
		return ready[i].CreatedAt.Before(ready[k].CreatedAt)
	})

	j := ready[0]
	j.Status = job.StatusProcessing
	j.LockedAt = &now
	j.LockedBy = &workerID
	j.UpdatedAt = now
	r.s.jobs[j.ID] = j

	return j, nil
}

func (r *JobsRepo) update(ctx context.Context, id string, fn func(j *job.Job)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, ok := r.s.jobs[id]
	if !ok {
		return job.ErrJobNotFound
	}

	fn(&j)
	j.LockedAt = nil
	j.LockedBy = nil
	j.UpdatedAt = time.Now().UTC()
	r.s.jobs[id] = j
	return nil
}

func (r *JobsRepo) MarkDone(ctx context.Context, id string) error {
	return r.update(ctx, id, func(j *job.Job) {
		j.Status = job.StatusDone
		j.LastError = nil
	})
}

func (r *JobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	return r.update(ctx, id, func(j *job.Job) {
		j.Status = job.StatusPending
		j.Attempts++
		j.RunAt = runAt
		j.LastError = &errMsg
	})
}

func (r *JobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.update(ctx, id, func(j *job.Job) {
		j.Status = job.StatusFailed
		j.Attempts++
		j.LastError = &errMsg
	})
}

func (r *JobsRepo) RequeueStale(ctx context.Context, lockTTL time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-lockTTL)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, j := range r.s.jobs {
		if j.Status == job.StatusProcessing && j.LockedAt != nil && j.LockedAt.Before(cutoff) {
			j.Status = job.StatusPending
			j.LockedAt = nil
			j.LockedBy = nil
			r.s.jobs[id] = j
			n++
		}
	}
	return n, nil
}

func (r *JobsRepo) GetByIdempotencyKey(ctx context.Context, key string) (job.Job, error) {
	if err := ctx.Err(); err != nil {
		return job.Job{}, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.jobKeys[key]
	if !ok {
		return job.Job{}, job.ErrJobNotFound
	}
	return r.s.jobs[id], nil
}
