package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/geocoder89/eventloop/internal/domain/user"
	"github.com/geocoder89/eventloop/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	GetByEmailFn func(ctx context.Context, email string) (user.User, error)
}

func (f fakeUsers) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return f.GetByEmailFn(ctx, email)
}

func TestAuthenticate(t *testing.T) {
	hash, err := security.HashPassword("Secret123!")
	require.NoError(t, err)

	stored := user.User{
		ID:           "u1",
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: &hash,
		Role:         user.RoleStaff,
	}

	var lookedUp string
	users := fakeUsers{
		GetByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			lookedUp = email
			switch email {
			case "alice@example.com":
				return stored, nil
			case "nohash@example.com":
				return user.User{ID: "u2", Email: email}, nil
			case "broken@example.com":
				return user.User{}, errors.New("connection reset")
			default:
				return user.User{}, user.ErrNotFound
			}
		},
	}

	a := NewAuthenticator(users, nil)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		id, ok := a.Authenticate(ctx, "  Alice@Example.com ", "Secret123!")
		require.True(t, ok)
		assert.Equal(t, "alice@example.com", lookedUp)
		assert.Equal(t, "u1", id.ID)
		assert.Equal(t, "Alice", id.Name)
		assert.True(t, id.Role.IsStaff())
	})

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "alice@example.com", "Secret123?"},
		{"unknown email", "ghost@example.com", "Secret123!"},
		{"no stored hash", "nohash@example.com", "Secret123!"},
		{"lookup error", "broken@example.com", "Secret123!"},
		{"empty email", "", "Secret123!"},
		{"empty password", "alice@example.com", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := a.Authenticate(ctx, tc.email, tc.password)
			assert.False(t, ok)
			assert.Empty(t, id.ID)
		})
	}
}
