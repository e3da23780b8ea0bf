// Package memory is an in-process gateway with the same contracts as the
// postgres one. It backs STORE=memory and handler tests.
package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/eventloop/internal/domain/event"
	"github.com/geocoder89/eventloop/internal/domain/job"
	"github.com/geocoder89/eventloop/internal/domain/signup"
	"github.com/geocoder89/eventloop/internal/domain/user"
)

type signupKey struct {
	eventID string
	userID  string
}

type deliveryKey struct {
	kind     string
	signupID string
}

type deliveryRow struct {
	status            string
	jobID             string
	recipient         string
	providerMessageID *string
	lastError         string
}

// Store holds every table behind one lock so cross-table rules (foreign
// keys, cascades, sign-up plus job enqueue) stay atomic.
type Store struct {
	mu sync.RWMutex

	users        map[string]user.User
	usersByEmail map[string]string
	events       map[string]event.Event
	signups      map[signupKey]signup.SignUp
	jobs         map[string]job.Job
	jobKeys      map[string]string
	deliveries   map[deliveryKey]deliveryRow
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]user.User),
		usersByEmail: make(map[string]string),
		events:       make(map[string]event.Event),
		signups:      make(map[signupKey]signup.SignUp),
		jobs:         make(map[string]job.Job),
		jobKeys:      make(map[string]string),
		deliveries:   make(map[deliveryKey]deliveryRow),
	}
}

func (s *Store) Users() *UsersRepo           { return &UsersRepo{s: s} }
func (s *Store) Events() *EventsRepo         { return &EventsRepo{s: s} }
func (s *Store) Signups() *SignupsRepo       { return &SignupsRepo{s: s} }
func (s *Store) Jobs() *JobsRepo             { return &JobsRepo{s: s} }
func (s *Store) Deliveries() *DeliveriesRepo { return &DeliveriesRepo{s: s} }

// Ping always succeeds unless ctx is done.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
