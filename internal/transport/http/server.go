package http

import (
	"github.com/gin-gonic/gin"

	"clonehub/internal/ai"
	"clonehub/internal/bootstrap"
	"clonehub/internal/transport/http/handler"
	"clonehub/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(app.Logger.Named("http")), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, app.HealthChecks)
	router.GET("/healthz", healthHandler.Check)

	cloneHandler := handler.NewCloneHandler(app.Clones, app.Documents, app.Config.Clone.MaxUploadBytes())
	documentHandler := handler.NewDocumentHandler(app.Documents)
	chatHandler := handler.NewChatHandler(app.Chat, app.Interactions)

	v1 := router.Group("/api/v1")

	callbacks := v1.Group("/documents")
	callbacks.Use(middleware.CallbackKey(ai.APIKeyHeader, app.Config.AIService.CallbackKey))
	callbacks.POST("/:id/status", documentHandler.ReportStatus)

	authed := v1.Group("")
	authed.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))

	clones := authed.Group("/clones")
	clones.POST("", cloneHandler.Create)
	clones.GET("", cloneHandler.List)
	clones.GET("/:id", cloneHandler.Get)
	clones.PATCH("/:id", cloneHandler.Update)
	clones.DELETE("/:id", cloneHandler.Delete)
	clones.POST("/:id/documents", cloneHandler.UploadDocument)
	clones.GET("/:id/documents", cloneHandler.ListDocuments)
	clones.POST("/:id/chat", chatHandler.Chat)
	clones.GET("/:id/interactions", chatHandler.Interactions)

	authed.GET("/documents/:id", documentHandler.Get)
	authed.POST("/search", chatHandler.Search)
	authed.GET("/ai/health", chatHandler.AIHealth)

	return router
}
