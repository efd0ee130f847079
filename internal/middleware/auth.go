package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/magpsaad/partner-calculator/internal/auth"
)

// workspaceIDKey is the gin context key for the authenticated workspace.
const workspaceIDKey = "workspace_id"

// WorkspaceID extracts the authenticated workspace id from the context.
// Returns empty string if not set.
func WorkspaceID(c *gin.Context) string {
	id, _ := c.Get(workspaceIDKey)
	s, _ := id.(string)
	return s
}

// RequireWorkspaceAuth validates the session token and checks that it is
// scoped to the workspace named in the route. The token is taken from the
// Authorization header, or from a ?token= query parameter for EventSource
// clients, which cannot set headers.
func RequireWorkspaceAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenStr = parts[1]
			}
		}
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}

		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMissingToken.Error()})
			return
		}

		claims, err := jwtManager.Validate(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		// A valid token for some other workspace is still unauthorized
		// here.
		if claims.WorkspaceID != c.Param("id") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token not valid for this workspace"})
			return
		}

		c.Set(workspaceIDKey, claims.WorkspaceID)
		c.Next()
	}
}
