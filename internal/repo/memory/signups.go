package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/eventloop/internal/actorctx"
	"github.com/geocoder89/eventloop/internal/domain/event"
	"github.com/geocoder89/eventloop/internal/domain/job"
	"github.com/geocoder89/eventloop/internal/domain/signup"
	"github.com/geocoder89/eventloop/internal/jobs"
)

type SignupsRepo struct {
	s *Store
}

// Create mirrors the postgres transaction: the row and its confirmation
// job land together or not at all.
func (r *SignupsRepo) Create(ctx context.Context, eventID, userID string) (signup.SignUp, error) {
	if err := ctx.Err(); err != nil {
		return signup.SignUp{}, err
	}

	sign := signup.New(eventID, userID)

	payload, err := jobs.EncodePayload(jobs.TypeSignupConfirmation, jobs.SignupConfirmationPayload{
		SignupID:    sign.ID,
		EventID:     eventID,
		UserID:      userID,
		RequestedAt: time.Now().UTC(),
		RequestID:   actorctx.RequestIDFrom(ctx),
	})
	if err != nil {
		return signup.SignUp{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[eventID]; !ok {
		return signup.SignUp{}, event.ErrNotFound
	}

	k := signupKey{eventID: eventID, userID: userID}
	if _, dup := r.s.signups[k]; dup {
		return signup.SignUp{}, signup.ErrAlreadySignedUp
	}

	r.s.signups[k] = sign

	key := jobs.SignupConfirmationKey(sign.ID)
	r.s.enqueueLocked(job.CreateRequest{
		Type:           string(jobs.TypeSignupConfirmation),
		Payload:        payload,
		IdempotencyKey: &key,
	})

	return sign, nil
}

func (r *SignupsRepo) Delete(ctx context.Context, eventID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := signupKey{eventID: eventID, userID: userID}
	if _, ok := r.s.signups[k]; !ok {
		return signup.ErrNotSignedUp
	}
	delete(r.s.signups, k)
	return nil
}

func (r *SignupsRepo) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.signups[signupKey{eventID: eventID, userID: userID}]
	return ok, nil
}

func (r *SignupsRepo) ListForUser(ctx context.Context, userID string) ([]signup.WithEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]signup.WithEvent, 0)
	for k, sign := range r.s.signups {
		if k.userID != userID {
			continue
		}
		e, ok := r.s.events[k.eventID]
		if !ok {
			continue
		}
		items = append(items, signup.WithEvent{SignUp: sign, Event: e.Summary()})
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].Event.StartTime, items[j].Event.StartTime
		if !a.Equal(b) {
			return a.Before(b)
		}
		return items[i].ID < items[j].ID
	})

	return items, nil
}

func (r *SignupsRepo) GetByID(ctx context.Context, id string) (signup.SignUp, error) {
	if err := ctx.Err(); err != nil {
		return signup.SignUp{}, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, sign := range r.s.signups {
		if sign.ID == id {
			return sign, nil
		}
	}
	return signup.SignUp{}, signup.ErrNotSignedUp
}
