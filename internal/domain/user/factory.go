package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func New(p CreateParams) User {
	now := time.Now().UTC()

	var hash *string
	if p.PasswordHash != "" {
		h := p.PasswordHash
		hash = &h
	}

	role := p.Role
	if role == "" {
		role = RoleUser
	}

	return User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(p.Email),
		Name:         p.Name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
