// Package access holds the single authorization predicate every protected
// operation goes through.
package access

import (
	"errors"

	"github.com/geocoder89/eventloop/internal/domain/user"
)

// Identity is the minimal claim set carried by a session.
type Identity struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Image *string   `json:"image"`
	Role  user.Role `json:"role"`
}

func FromUser(u user.User) Identity {
	return Identity{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Image: u.Image,
		Role:  u.Role,
	}
}

type Capability int

const (
	// Browse is open to anonymous callers.
	Browse Capability = iota
	// ManageSignups needs any authenticated user.
	ManageSignups
	// ManageEvents needs staff.
	ManageEvents
)

func (c Capability) String() string {
	switch c {
	case Browse:
		return "browse"
	case ManageSignups:
		return "manage_signups"
	case ManageEvents:
		return "manage_events"
	default:
		return "unknown"
	}
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Authorize checks identity against need. It has no side effects.
func Authorize(id *Identity, need Capability) error {
	if need == Browse {
		return nil
	}

	if id == nil || id.ID == "" {
		return ErrUnauthenticated
	}

	switch need {
	case ManageSignups:
		return nil
	case ManageEvents:
		if !id.Role.IsStaff() {
			return ErrForbidden
		}
		return nil
	default:
		// unknown capabilities are never granted
		return ErrForbidden
	}
}
