package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/eventloop/internal/domain/delivery"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DeliveriesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewDeliveriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *DeliveriesRepo {
	return &DeliveriesRepo{pool: pool, prom: prom}
}

// TryStart claims the right to send kind for signupID. It returns
// delivery.ErrAlreadySent or delivery.ErrInProgress when another attempt
// owns it.
func (r *DeliveriesRepo) TryStart(ctx context.Context, kind, signupID, jobID, recipient string) error {
	// 1) insert if missing
	err := r.prom.ObserveDB("deliveries.try_start.insert", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO notification_deliveries (kind, signup_id, job_id, recipient, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'sending', NOW(), NOW())
		`, kind, signupID, jobID, recipient)
		return err
	})

	if err == nil {
		return nil
	}
	if !IsUniqueViolation(err) {
		return err
	}

	// 2) a failed row can be claimed again; only one worker wins the flip
	var claimed int64
	err = r.prom.ObserveDB("deliveries.try_start.reclaim", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE notification_deliveries
			SET status = 'sending',
			    job_id = $3,
			    recipient = $4,
			    last_error = NULL,
			    updated_at = NOW()
			WHERE kind = $1 AND signup_id = $2 AND status = 'failed'
		`, kind, signupID, jobID, recipient)
		if err != nil {
			return err
		}
		claimed = tag.RowsAffected()
		return nil
	})

	if err != nil {
		return err
	}
	if claimed == 1 {
		return nil
	}

	// 3) sent or sending
	var status string
	var sentAt *time.Time

	err = r.prom.ObserveDB("deliveries.try_start.status", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT status, sent_at
			FROM notification_deliveries
			WHERE kind = $1 AND signup_id = $2
		`, kind, signupID).Scan(&status, &sentAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	if sentAt != nil || status == string(delivery.StatusSent) {
		return delivery.ErrAlreadySent
	}
	return delivery.ErrInProgress
}

func (r *DeliveriesRepo) MarkSent(ctx context.Context, kind, signupID string, providerMessageID *string) error {
	return r.prom.ObserveDB("deliveries.mark_sent", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE notification_deliveries
			SET status = 'sent',
			    sent_at = NOW(),
			    provider_message_id = $3,
			    last_error = NULL,
			    updated_at = NOW()
			WHERE kind = $1 AND signup_id = $2
		`, kind, signupID, providerMessageID)
		return err
	})
}

func (r *DeliveriesRepo) MarkFailed(ctx context.Context, kind, signupID, errMsg string) error {
	return r.prom.ObserveDB("deliveries.mark_failed", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE notification_deliveries
			SET status = 'failed',
			    last_error = $3,
			    updated_at = NOW()
			WHERE kind = $1 AND signup_id = $2
		`, kind, signupID, errMsg)
		return err
	})
}
