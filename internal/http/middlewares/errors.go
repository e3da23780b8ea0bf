package middlewares

import (
	"github.com/gin-gonic/gin"
)

// abortError writes the shared error envelope. Handlers use the same shape
// through handlers.RespondError.
func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}
