package worker

import (
	"log/slog"

	"github.com/geocoder89/eventloop/internal/jobs"
	"github.com/geocoder89/eventloop/internal/notifications"
	"github.com/geocoder89/eventloop/internal/observability"
)

// Stores groups the gateway pieces the sign-up worker touches.
type Stores struct {
	Jobs       JobsRepository
	Signups    SignupReader
	Users      UserReader
	Events     EventReader
	Deliveries DeliveryTracker
}

// NewSignupWorker builds a worker with every job type this service emits
// registered.
func NewSignupWorker(cfg Config, s Stores, n notifications.Notifier, log *slog.Logger, prom *observability.Prom) *Worker {
	w := New(cfg, s.Jobs, log, prom)

	w.Register(jobs.TypeSignupConfirmation, SignupConfirmationHandler(ConfirmationDeps{
		Signups:    s.Signups,
		Users:      s.Users,
		Events:     s.Events,
		Deliveries: s.Deliveries,
		Notifier:   n,
		Log:        log,
	}))

	return w
}
