package middlewares

import (
	"strings"

	"github.com/geocoder89/eventloop/internal/access"
	"github.com/geocoder89/eventloop/internal/actorctx"
	"github.com/geocoder89/eventloop/internal/auth"
	"github.com/gin-gonic/gin"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "eventloop_session"

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// TokenFromRequest prefers the Authorization header over the cookie.
func TokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(SessionCookie); err == nil {
		return strings.TrimSpace(v)
	}
	return ""
}

// Identify attaches the caller's identity when a valid token is presented.
// It never rejects; Require decides what anonymous callers may do.
func (m *AuthMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := TokenFromRequest(c)
		if raw == "" {
			c.Next()
			return
		}

		claims, err := m.jwt.Verify(raw)
		if err != nil {
			c.Next()
			return
		}

		id := claims.Identity()
		c.Set(CtxIdentity, id)
		c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), id))

		c.Next()
	}
}

func IdentityFromContext(c *gin.Context) (access.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return access.Identity{}, false
	}
	id, ok := v.(access.Identity)
	return id, ok && id.ID != ""
}

// UserIDFromContext keeps handlers away from the context keys.
func UserIDFromContext(c *gin.Context) (string, bool) {
	id, ok := IdentityFromContext(c)
	return id.ID, ok
}
