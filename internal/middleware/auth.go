package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/identity"
)

// UserIDKey is the gin context key holding the authenticated user ID.
const UserIDKey = "userID"

// Authenticate resolves the caller with provider and stores the user ID in
// the context. Requests without an identity are rejected with 401.
func Authenticate(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := provider.Identify(c.Request)
		if err != nil || userID == "" {
			c.AbortWithStatusJSON(apperrors.ErrUnauthorized.StatusCode, gin.H{
				"error": gin.H{
					"code":    apperrors.ErrUnauthorized.Code,
					"message": "Invalid or expired token",
				},
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
