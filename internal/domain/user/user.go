package user

import (
	"errors"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
)

// ParseRole maps a stored or token-carried role onto the enum. Anything
// unrecognised degrades to RoleUser so it can never grant staff rights.
func ParseRole(s string) Role {
	if Role(s) == RoleStaff {
		return RoleStaff
	}
	return RoleUser
}

func (r Role) IsStaff() bool {
	return r == RoleStaff
}

func (r Role) String() string {
	return string(r)
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Image        *string   `json:"image,omitempty"`
	PasswordHash *string   `json:"-"` // never expose hash in JSON
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPassword reports whether credential login is possible for this user.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Public is the registration response shape.
type Public struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) Public() Public {
	return Public{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72,password_policy"`
}

// CreateParams is what the gateway needs to insert or upsert a user.
type CreateParams struct {
	Email        string
	Name         string
	PasswordHash string
	Role         Role
}
