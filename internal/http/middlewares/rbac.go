package middlewares

import (
	"errors"
	"net/http"

	"github.com/geocoder89/eventloop/internal/access"
	"github.com/gin-gonic/gin"
)

// Require gates a route on a capability. It must run after Identify.
func Require(need access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id *access.Identity
		if got, ok := IdentityFromContext(c); ok {
			id = &got
		}

		err := access.Authorize(id, need)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, access.ErrUnauthenticated):
			abortError(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		default:
			abortError(c, http.StatusForbidden, "forbidden", "Forbidden: Staff access required")
		}
	}
}

func RequireAuth() gin.HandlerFunc {
	return Require(access.ManageSignups)
}

func RequireStaff() gin.HandlerFunc {
	return Require(access.ManageEvents)
}
