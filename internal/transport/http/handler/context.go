package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"clonehub/internal/transport/http/middleware"
)

func getUserIDFromContext(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(middleware.ContextUserIDKey))
}

// workspaceFrom prefers an explicit value and falls back to the workspace
// carried by the token.
func workspaceFrom(c *gin.Context, explicit *string) *string {
	if explicit != nil && strings.TrimSpace(*explicit) != "" {
		w := strings.TrimSpace(*explicit)
		return &w
	}
	if w := c.GetString(middleware.ContextWorkspaceIDKey); w != "" {
		return &w
	}
	return nil
}
