package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clonehub/internal/pkg/jwtutil"
	"clonehub/internal/transport/http/response"
)

const (
	ContextUserIDKey      = "user_id"
	ContextWorkspaceIDKey = "workspace_id"
)

func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid authorization scheme")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		if claims.WorkspaceID != "" {
			c.Set(ContextWorkspaceIDKey, claims.WorkspaceID)
		}
		c.Next()
	}
}

// CallbackKey guards endpoints the AI service calls back into.
func CallbackKey(header, key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := strings.TrimSpace(c.GetHeader(header))
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid api key")
			c.Abort()
			return
		}
		c.Next()
	}
}
