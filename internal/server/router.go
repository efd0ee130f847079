package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magpsaad/partner-calculator/internal/auth"
	"github.com/magpsaad/partner-calculator/internal/middleware"
	"github.com/magpsaad/partner-calculator/internal/storage"
)

// NewRouter configures the gin engine with the document-store API,
// health check, and metrics endpoint.
func NewRouter(store storage.DocumentStore, authenticator auth.Authenticator, jwtManager *auth.JWTManager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := NewWorkspaceHandler(store, authenticator, jwtManager)

	api := r.Group("/api")
	api.POST("/workspaces", h.Create)
	api.POST("/workspaces/:id/login", h.Login)

	protected := api.Group("/workspaces/:id")
	protected.Use(middleware.RequireWorkspaceAuth(jwtManager))
	protected.GET("/document", h.GetDocument)
	protected.PUT("/document", h.SetDocument)
	protected.GET("/events", h.Events)

	return r
}
