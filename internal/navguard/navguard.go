// Package navguard decides what a client should do when navigating to a
// protected page, given the current session state.
package navguard

import (
	"net/url"

	"github.com/geocoder89/eventloop/internal/domain/user"
)

const (
	LoginPath = "/login"
	HomePath  = "/"
)

type Status int

const (
	Unauthenticated Status = iota
	Loading
	Authenticated
)

// ParseStatus maps a raw status string. Unknown values are unauthenticated.
func ParseStatus(s string) Status {
	switch s {
	case "loading":
		return Loading
	case "authenticated":
		return Authenticated
	default:
		return Unauthenticated
	}
}

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

type Requirement int

const (
	RequireAuth Requirement = iota
	RequireStaff
)

// Session is a point-in-time view of the client session.
type Session struct {
	Status Status
	Role   user.Role
}

// Target is the route being navigated to. FullPath includes the query.
type Target struct {
	Path     string
	FullPath string
}

type Action int

const (
	Allow Action = iota
	Defer
	Redirect
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Defer:
		return "defer"
	default:
		return "redirect"
	}
}

type Decision struct {
	Action Action
	Path   string
	Query  url.Values
}

// Location renders a redirect decision as a relative URL.
func (d Decision) Location() string {
	if d.Action != Redirect {
		return ""
	}
	if len(d.Query) == 0 {
		return d.Path
	}
	return d.Path + "?" + d.Query.Encode()
}

func allow() Decision { return Decision{Action: Allow} }

// Decide is pure: the same inputs always produce the same decision.
func Decide(s Session, t Target, req Requirement) Decision {
	if s.Status == Loading {
		return Decision{Action: Defer}
	}

	if s.Status != Authenticated {
		if t.Path == LoginPath {
			return allow()
		}
		return toLogin(t)
	}

	if req == RequireStaff && !s.Role.IsStaff() {
		return Decision{Action: Redirect, Path: HomePath}
	}

	return allow()
}

func toLogin(t Target) Decision {
	d := Decision{Action: Redirect, Path: LoginPath}

	full := t.FullPath
	if full == "" {
		full = t.Path
	}
	if full != "" && full != HomePath {
		d.Query = url.Values{"redirect": []string{full}}
	}
	return d
}
