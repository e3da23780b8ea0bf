package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/eventloop/internal/actorctx"
	"github.com/geocoder89/eventloop/internal/domain/event"
	"github.com/geocoder89/eventloop/internal/domain/job"
	"github.com/geocoder89/eventloop/internal/domain/signup"
	"github.com/geocoder89/eventloop/internal/jobs"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SignupsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
	jobs *JobsRepo
}

func NewSignupsRepo(pool *pgxpool.Pool, prom *observability.Prom, jobsRepo *JobsRepo) *SignupsRepo {
	return &SignupsRepo{pool: pool, prom: prom, jobs: jobsRepo}
}

// Create inserts the sign-up and enqueues its confirmation job in one
// transaction. The unique constraint decides concurrent duplicates.
func (r *SignupsRepo) Create(ctx context.Context, eventID, userID string) (s signup.SignUp, err error) {
	if !validID(eventID) {
		return signup.SignUp{}, event.ErrNotFound
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	s = signup.New(eventID, userID)

	err = r.prom.ObserveDB("signups.create_tx.insert", func() error {
		_, e := tx.Exec(ctx, `
			INSERT INTO event_signups (id, event_id, user_id, created_at)
			VALUES ($1,$2,$3,$4)
		`, s.ID, s.EventID, s.UserID, s.CreatedAt)
		return e
	})

	if err != nil {
		switch {
		case isConstraintViolation(err, constraintSignupUnique):
			err = signup.ErrAlreadySignedUp
		case IsForeignKeyViolation(err):
			err = event.ErrNotFound
		}
		return signup.SignUp{}, err
	}

	payload, err := jobs.EncodePayload(jobs.TypeSignupConfirmation, jobs.SignupConfirmationPayload{
		SignupID:    s.ID,
		EventID:     s.EventID,
		UserID:      s.UserID,
		RequestedAt: time.Now().UTC(),
		RequestID:   actorctx.RequestIDFrom(ctx),
	})
	if err != nil {
		return signup.SignUp{}, err
	}

	key := jobs.SignupConfirmationKey(s.ID)
	if _, err = r.jobs.CreateTx(ctx, tx, job.CreateRequest{
		Type:           string(jobs.TypeSignupConfirmation),
		Payload:        payload,
		IdempotencyKey: &key,
	}); err != nil {
		return signup.SignUp{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return signup.SignUp{}, err
	}
	return s, nil
}

// Delete withdraws userID from eventID. No matching row is ErrNotSignedUp.
func (r *SignupsRepo) Delete(ctx context.Context, eventID, userID string) error {
	if !validID(eventID) {
		return signup.ErrNotSignedUp
	}

	var tag pgconn.CommandTag
	var err error

	err = r.prom.ObserveDB("signups.delete", func() error {
		tag, err = r.pool.Exec(ctx,
			`DELETE FROM event_signups WHERE event_id = $1 AND user_id = $2`,
			eventID, userID)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return signup.ErrNotSignedUp
	}
	return nil
}

func (r *SignupsRepo) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	if !validID(eventID) {
		return false, nil
	}

	var exists bool
	err := r.prom.ObserveDB("signups.exists", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM event_signups WHERE event_id = $1 AND user_id = $2
			)
		`, eventID, userID).Scan(&exists)
	})

	return exists, err
}

// ListForUser returns the user's sign-ups ordered by event start time.
func (r *SignupsRepo) ListForUser(ctx context.Context, userID string) ([]signup.WithEvent, error) {
	items := make([]signup.WithEvent, 0)

	err := r.prom.ObserveDB("signups.list_for_user", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT s.id, s.event_id, s.user_id, s.created_at,
			       e.id, e.title, e.start_time, e.location, e.description
			FROM event_signups s
			JOIN events e ON e.id = s.event_id
			WHERE s.user_id = $1
			ORDER BY e.start_time ASC, s.id ASC
		`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var it signup.WithEvent
			if err := rows.Scan(
				&it.ID, &it.EventID, &it.UserID, &it.CreatedAt,
				&it.Event.ID, &it.Event.Title, &it.Event.StartTime, &it.Event.Location, &it.Event.Description,
			); err != nil {
				return err
			}
			items = append(items, it)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetByID is used by the confirmation worker.
func (r *SignupsRepo) GetByID(ctx context.Context, id string) (signup.SignUp, error) {
	var s signup.SignUp

	err := r.prom.ObserveDB("signups.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, event_id, user_id, created_at FROM event_signups WHERE id = $1`, id,
		).Scan(&s.ID, &s.EventID, &s.UserID, &s.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return signup.SignUp{}, signup.ErrNotSignedUp
		}
		return signup.SignUp{}, err
	}
	return s, nil
}
