package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<p>Hi {{.Name}},</p>
<p>You are signed up for <strong>{{.EventTitle}}</strong> on {{.StartTime.Format "Mon, 02 Jan 2006 15:04 MST"}}{{if .Location}} at {{.Location}}{{end}}.</p>
<p>See you there!</p>`))

type ResendNotifier struct {
	client *resend.Client
	from   string
	log    *slog.Logger
}

func NewResendNotifier(client *resend.Client, from string, log *slog.Logger) *ResendNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &ResendNotifier{client: client, from: from, log: log}
}

func renderConfirmation(in SignupConfirmation) (string, error) {
	data := struct {
		SignupConfirmation
		Location string
	}{SignupConfirmation: in}
	if in.Location != nil {
		data.Location = *in.Location
	}

	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (n *ResendNotifier) SendSignupConfirmation(ctx context.Context, in SignupConfirmation) (string, error) {
	body, err := renderConfirmation(in)
	if err != nil {
		return "", fmt.Errorf("render confirmation: %w", err)
	}

	sent, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{in.Email},
		Subject: "You're signed up: " + in.EventTitle,
		Html:    body,
	})
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			n.log.WarnContext(ctx, "notification.rate_limited",
				"limit", rateLimitErr.Limit,
				"remaining", rateLimitErr.Remaining,
				"reset", rateLimitErr.Reset,
			)
			return "", fmt.Errorf("email rate limit exceeded: %w", err)
		}
		return "", fmt.Errorf("resend API error: %w", err)
	}

	return sent.Id, nil
}
