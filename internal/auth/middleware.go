package auth

import (
	"net/http"
	"strings"

	"broadcast-service/internal/models"
	"broadcast-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const userContextKey = "user"

// Middleware authenticates HTTP callers via the Authorization header and
// stores the resolved user in the gin context.
func Middleware(verifier *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, "authorization header is required")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		user, err := verifier.VerifyToken(c.Request.Context(), tokenString)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// UserFromContext returns the authenticated user set by Middleware, or nil.
func UserFromContext(c *gin.Context) *models.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
