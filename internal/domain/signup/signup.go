package signup

import (
	"errors"
	"time"

	"github.com/geocoder89/eventloop/internal/domain/event"
	"github.com/google/uuid"
)

// SignUp links one user to one event. (EventID, UserID) is unique.
type SignUp struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// WithEvent is a caller's sign-up with the linked event summary.
type WithEvent struct {
	SignUp
	Event event.Summary `json:"event"`
}

var (
	ErrAlreadySignedUp = errors.New("already signed up for event")
	ErrNotSignedUp     = errors.New("not signed up for event")
)

func New(eventID, userID string) SignUp {
	return SignUp{
		ID:        uuid.NewString(),
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
}
