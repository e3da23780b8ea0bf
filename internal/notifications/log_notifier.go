package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier writes confirmations to the log. Used when no mail provider
// is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendSignupConfirmation(ctx context.Context, in SignupConfirmation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	n.log.InfoContext(ctx, "notification.signup_confirmation",
		"signup_id", in.SignupID,
		"email", in.Email,
		"event_title", in.EventTitle,
		"start_time", in.StartTime,
	)
	return "", nil
}
