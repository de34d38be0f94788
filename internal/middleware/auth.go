package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"alumni-chat/internal/authclient"
)

const identityContextKey = "identity"

// AuthMiddleware validates the Authorization header against the auth
// provider and stores the resolved identity on the request context. The
// identity is read fresh on every request, never cached.
func AuthMiddleware(client authclient.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		identity, err := client.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(identityContextKey, identity)
		c.Next()
	}
}

// IdentityFromContext returns the authenticated identity set by
// AuthMiddleware.
func IdentityFromContext(c *gin.Context) (authclient.Identity, bool) {
	val, ok := c.Get(identityContextKey)
	if !ok {
		return authclient.Identity{}, false
	}
	identity, ok := val.(authclient.Identity)
	return identity, ok
}
