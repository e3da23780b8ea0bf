package jobs

import (
	"strings"
	"time"
)

type JobType string

const (
	TypeSignupConfirmation JobType = "signup.confirmation"
)

func (t JobType) IsValid() bool {
	switch t {
	case TypeSignupConfirmation:
		return true
	default:
		return false
	}
}

// SignupConfirmationPayload stays ID-based; the worker loads the user and
// event when it runs so the message reflects current state.
type SignupConfirmationPayload struct {
	SignupID    string    `json:"signupId"`
	EventID     string    `json:"eventId"`
	UserID      string    `json:"userId"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"`
}

func (p SignupConfirmationPayload) validate() error {
	if strings.TrimSpace(p.SignupID) == "" || strings.TrimSpace(p.EventID) == "" || strings.TrimSpace(p.UserID) == "" {
		return ErrInvalidJobPayload
	}
	return nil
}

// SignupConfirmationKey dedupes confirmation jobs per sign-up row.
func SignupConfirmationKey(signupID string) string {
	return "signup:confirm:" + signupID
}
