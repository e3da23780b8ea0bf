package memory

import (
	"context"

	"github.com/geocoder89/eventloop/internal/domain/delivery"
)

type DeliveriesRepo struct {
	s *Store
}

func (r *DeliveriesRepo) TryStart(ctx context.Context, kind, signupID, jobID, recipient string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := deliveryKey{kind: kind, signupID: signupID}
	row, ok := r.s.deliveries[k]

	switch {
	case !ok, row.status == string(delivery.StatusFailed):
		r.s.deliveries[k] = deliveryRow{
			status:    string(delivery.StatusSending),
			jobID:     jobID,
			recipient: recipient,
		}
		return nil
	case row.status == string(delivery.StatusSent):
		return delivery.ErrAlreadySent
	default:
		return delivery.ErrInProgress
	}
}

func (r *DeliveriesRepo) MarkSent(ctx context.Context, kind, signupID string, providerMessageID *string) error {
	return r.set(ctx, kind, signupID, func(row *deliveryRow) {
		row.status = string(delivery.StatusSent)
		row.providerMessageID = providerMessageID
		row.lastError = ""
	})
}

func (r *DeliveriesRepo) MarkFailed(ctx context.Context, kind, signupID, errMsg string) error {
	return r.set(ctx, kind, signupID, func(row *deliveryRow) {
		row.status = string(delivery.StatusFailed)
		row.lastError = errMsg
	})
}

func (r *DeliveriesRepo) set(ctx context.Context, kind, signupID string, fn func(row *deliveryRow)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := deliveryKey{kind: kind, signupID: signupID}
	row, ok := r.s.deliveries[k]
	if !ok {
		return nil
	}
	fn(&row)
	r.s.deliveries[k] = row
	return nil
}

// Status is exposed for tests and the dev console.
func (r *DeliveriesRepo) Status(kind, signupID string) (delivery.Status, bool) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.deliveries[deliveryKey{kind: kind, signupID: signupID}]
	return delivery.Status(row.status), ok
}
