package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/eventloop/internal/domain/delivery"
	"github.com/geocoder89/eventloop/internal/domain/event"
	"github.com/geocoder89/eventloop/internal/domain/job"
	"github.com/geocoder89/eventloop/internal/domain/signup"
	"github.com/geocoder89/eventloop/internal/domain/user"
	"github.com/geocoder89/eventloop/internal/jobs"
	"github.com/geocoder89/eventloop/internal/notifications"
)

type SignupReader interface {
	GetByID(ctx context.Context, id string) (signup.SignUp, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type EventReader interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
}

type DeliveryTracker interface {
	TryStart(ctx context.Context, kind, signupID, jobID, recipient string) error
	MarkSent(ctx context.Context, kind, signupID string, providerMessageID *string) error
	MarkFailed(ctx context.Context, kind, signupID, errMsg string) error
}

// ConfirmationDeps is what the sign-up confirmation job reads and writes.
type ConfirmationDeps struct {
	Signups    SignupReader
	Users      UserReader
	Events     EventReader
	Deliveries DeliveryTracker
	Notifier   notifications.Notifier
	Log        *slog.Logger
}

// SignupConfirmationHandler sends at most one confirmation per sign-up,
// even when the job is retried or claimed twice.
func SignupConfirmationHandler(d ConfirmationDeps) Handler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, j job.Job) error {
		raw, err := jobs.DecodePayload(jobs.TypeSignupConfirmation, j.Payload)
		if err != nil {
			return Permanent(err)
		}
		p := raw.(jobs.SignupConfirmationPayload)

		log := log.With("job_id", j.ID, "signup_id", p.SignupID, "request_id", p.RequestID)

		// withdrawn or event deleted before we got here: nothing to confirm
		if _, err := d.Signups.GetByID(ctx, p.SignupID); err != nil {
			if errors.Is(err, signup.ErrNotSignedUp) {
				log.InfoContext(ctx, "confirmation.skipped_withdrawn")
				return nil
			}
			return err
		}

		u, err := d.Users.GetByID(ctx, p.UserID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return Permanent(err)
			}
			return err
		}

		e, err := d.Events.GetByID(ctx, p.EventID)
		if err != nil {
			if errors.Is(err, event.ErrNotFound) {
				log.InfoContext(ctx, "confirmation.skipped_event_gone")
				return nil
			}
			return err
		}

		kind := delivery.KindSignupConfirmation
		if err := d.Deliveries.TryStart(ctx, kind, p.SignupID, j.ID, u.Email); err != nil {
			switch {
			case errors.Is(err, delivery.ErrAlreadySent):
				log.InfoContext(ctx, "confirmation.already_sent")
				return nil
			case errors.Is(err, delivery.ErrInProgress):
				return fmt.Errorf("confirmation in progress elsewhere: %w", err)
			default:
				return err
			}
		}

		msgID, err := d.Notifier.SendSignupConfirmation(ctx, notifications.SignupConfirmation{
			SignupID:   p.SignupID,
			Email:      u.Email,
			Name:       u.Name,
			EventTitle: e.Title,
			StartTime:  e.StartTime,
			Location:   e.Location,
		})
		if err != nil {
			if mErr := d.Deliveries.MarkFailed(context.WithoutCancel(ctx), kind, p.SignupID, err.Error()); mErr != nil {
				log.ErrorContext(ctx, "confirmation.mark_failed_error", "err", mErr)
			}
			return err
		}

		var idPtr *string
		if msgID != "" {
			idPtr = &msgID
		}
		if err := d.Deliveries.MarkSent(context.WithoutCancel(ctx), kind, p.SignupID, idPtr); err != nil {
			// sent but not recorded; a retry would hit ErrInProgress, not resend
			log.ErrorContext(ctx, "confirmation.mark_sent_error", "err", err)
		}

		log.InfoContext(ctx, "confirmation.sent", "provider_message_id", msgID)
		return nil
	}
}
