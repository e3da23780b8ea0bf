package delivery

import "errors"

const KindSignupConfirmation = "signup.confirmation"

type Status string

const (
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

var (
	// ErrAlreadySent means the message went out on an earlier attempt.
	ErrAlreadySent = errors.New("notification already sent")
	// ErrInProgress means another worker holds the delivery.
	ErrInProgress = errors.New("notification delivery in progress")
)
