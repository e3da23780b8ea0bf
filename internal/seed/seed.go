// Package seed provisions the default staff and regular accounts.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geocoder89/eventloop/internal/config"
	"github.com/geocoder89/eventloop/internal/domain/user"
	"github.com/geocoder89/eventloop/internal/security"
)

type UserUpserter interface {
	Upsert(ctx context.Context, p user.CreateParams) (user.User, error)
}

type Account struct {
	Email    string
	Name     string
	Password string
	Role     user.Role
}

// Accounts returns the accounts configured for seeding. Entries without a
// password are skipped since they could never log in.
func Accounts(cfg config.Config) []Account {
	all := []Account{
		{Email: cfg.SeedStaffEmail, Name: cfg.SeedStaffName, Password: cfg.SeedStaffPassword, Role: user.RoleStaff},
		{Email: cfg.SeedUserEmail, Name: cfg.SeedUserName, Password: cfg.SeedUserPassword, Role: user.RoleUser},
	}

	out := make([]Account, 0, len(all))
	for _, a := range all {
		if a.Email == "" || a.Password == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Run upserts every account, so re-running only refreshes them.
func Run(ctx context.Context, users UserUpserter, accounts []Account, log *slog.Logger) error {
	for _, a := range accounts {
		hash, err := security.HashPassword(a.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", a.Email, err)
		}

		u, err := users.Upsert(ctx, user.CreateParams{
			Email:        a.Email,
			Name:         a.Name,
			PasswordHash: hash,
			Role:         a.Role,
		})
		if err != nil {
			return fmt.Errorf("upsert %s: %w", a.Email, err)
		}

		if log != nil {
			log.InfoContext(ctx, "seed.user_upserted",
				"user_id", u.ID,
				"email", u.Email,
				"role", u.Role.String(),
			)
		}
	}
	return nil
}
