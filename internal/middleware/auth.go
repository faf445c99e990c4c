package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"uploadgate/internal/auth"
	"uploadgate/internal/config"
)

// OptionalAuthMiddleware resolves the caller id when a token is present but
// lets anonymous requests through. Uploads work without identity; the caller
// id only scopes groups, sessions and the live channel.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			if claims, err := auth.ParseToken(tokenStr, []byte(config.GetConfig().JWT.Secret)); err == nil {
				c.Set("userID", claims.UserID)
			}
		}
		c.Next()
	}
}
