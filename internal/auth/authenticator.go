package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/geocoder89/eventloop/internal/access"
	"github.com/geocoder89/eventloop/internal/domain/user"
	"github.com/geocoder89/eventloop/internal/security"
)

type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

// Authenticator checks email/password credentials. It fails closed: every
// failure path yields no identity and the cause is only logged.
type Authenticator struct {
	users UserLookup
	log   *slog.Logger

	// hash compared against when the user is unknown so both paths cost a
	// bcrypt comparison
	dummyHash string
}

func NewAuthenticator(users UserLookup, log *slog.Logger) *Authenticator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	dummy, _ := security.HashPassword("dummy-Password-1!")

	return &Authenticator{
		users:     users,
		log:       log,
		dummyHash: dummy,
	}
}

func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (access.Identity, bool) {
	email = user.NormalizeEmail(email)
	if email == "" || password == "" {
		return access.Identity{}, false
	}

	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if a.dummyHash != "" {
			_ = security.CheckPassword(a.dummyHash, password)
		}
		a.log.DebugContext(ctx, "auth.lookup_failed",
			"email_domain", emailDomain(email),
			"err", err,
		)
		return access.Identity{}, false
	}

	if !u.HasPassword() {
		a.log.DebugContext(ctx, "auth.no_password", "user_id", u.ID)
		return access.Identity{}, false
	}

	if err := security.CheckPassword(*u.PasswordHash, password); err != nil {
		a.log.DebugContext(ctx, "auth.password_mismatch", "user_id", u.ID)
		return access.Identity{}, false
	}

	return access.FromUser(u), true
}

func emailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}
