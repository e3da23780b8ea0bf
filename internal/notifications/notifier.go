package notifications

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

type SignupConfirmation struct {
	SignupID   string
	Email      string
	Name       string
	EventTitle string
	StartTime  time.Time
	Location   *string
}

// Notifier sends sign-up confirmations. The returned message id is empty
// for providers that do not assign one.
type Notifier interface {
	SendSignupConfirmation(ctx context.Context, in SignupConfirmation) (messageID string, err error)
}

// FromConfig picks Resend when an API key is configured and the log
// notifier otherwise, behind a circuit breaker either way.
func FromConfig(apiKey, from string, log *slog.Logger) Notifier {
	var inner Notifier
	if strings.TrimSpace(apiKey) != "" {
		inner = NewResendNotifier(resend.NewClient(apiKey), from, log)
	} else {
		inner = NewLogNotifier(log)
	}

	return NewProtectedNotifier(inner, ProtectedNotifierConfig{
		Timeout:          5 * time.Second,
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
	})
}
