package navguard

import (
	"sync"
	"time"

	"github.com/geocoder89/eventloop/internal/access"
)

// SessionProvider owns the client-side session state. Every Snapshot
// re-checks expiry so a stale session never reads as authenticated.
type SessionProvider struct {
	mu       sync.RWMutex
	status   Status
	identity access.Identity
	expires  time.Time
}

func NewSessionProvider() *SessionProvider {
	return &SessionProvider{status: Unauthenticated}
}

// Begin marks the session as being resolved.
func (p *SessionProvider) Begin() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = Loading
	p.identity = access.Identity{}
	p.expires = time.Time{}
}

func (p *SessionProvider) SignIn(id access.Identity, expires time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id.ID == "" {
		p.status = Unauthenticated
		p.identity = access.Identity{}
		p.expires = time.Time{}
		return
	}

	p.status = Authenticated
	p.identity = id
	p.expires = expires
}

func (p *SessionProvider) SignOut() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = Unauthenticated
	p.identity = access.Identity{}
	p.expires = time.Time{}
}

// Snapshot returns the session as seen at now.
func (p *SessionProvider) Snapshot(now time.Time) Session {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.status == Authenticated && !p.expires.IsZero() && !now.Before(p.expires) {
		return Session{Status: Unauthenticated}
	}

	if p.status != Authenticated {
		return Session{Status: p.status}
	}
	return Session{Status: Authenticated, Role: p.identity.Role}
}

// Identity returns the signed-in identity, if any and not expired.
func (p *SessionProvider) Identity(now time.Time) (access.Identity, bool) {
	if p.Snapshot(now).Status != Authenticated {
		return access.Identity{}, false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.identity, true
}
