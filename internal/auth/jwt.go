package auth

import (
	"errors"
	"time"

	"github.com/geocoder89/eventloop/internal/access"
	"github.com/geocoder89/eventloop/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTypeSession = "session"

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidTokenType = errors.New("invalid token type")
)

// Claims carry the whole session identity so no server-side lookup is
// needed to rebuild it.
type Claims struct {
	UserID    string  `json:"sub"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Image     *string `json:"image,omitempty"`
	Role      string  `json:"role"`
	TokenType string  `json:"typ"`
	jwt.RegisteredClaims
}

// Identity copies id and role (and the profile fields) from the token.
func (c *Claims) Identity() access.Identity {
	return access.Identity{
		ID:    c.UserID,
		Email: c.Email,
		Name:  c.Name,
		Image: c.Image,
		Role:  user.ParseRole(c.Role),
	}
}

func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a session token for id.
func (m *Manager) Issue(id access.Identity) (string, time.Time, error) {
	// NumericDate has second precision; report what the token carries
	now := m.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		UserID:    id.ID,
		Email:     id.Email,
		Name:      id.Name,
		Image:     id.Image,
		Role:      id.Role.String(),
		TokenType: tokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func (m *Manager) parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify checks signature, expiry and token type.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	claims, err := m.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeSession {
		return nil, ErrInvalidTokenType
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
