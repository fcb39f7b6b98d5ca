package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dealdesk/intake-backend/internal/handlers"
	"github.com/dealdesk/intake-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware   *middleware.AuthMiddleware
	DealHandler      *handlers.DealHandler
	PartyHandler     *handlers.PartyHandler
	DocumentHandler  *handlers.DocumentHandler
	ChecklistHandler *handlers.ChecklistHandler
	SSEHandler       *handlers.SSEHandler
	EventsHandler    *handlers.EventsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	// Recognition backend webhook; authenticated by API key, not JWT.
	router.POST("/api/recognition/events", cfg.EventsHandler.Receive)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Deals
	api.POST("/deals", cfg.DealHandler.Create)
	api.GET("/deals", cfg.DealHandler.List)
	api.GET("/deals/:id", cfg.DealHandler.Get)
	api.PATCH("/deals/:id", cfg.DealHandler.UpdateProperty)
	api.PUT("/deals/:id/status", cfg.DealHandler.UpdateStatus)
	api.GET("/deals/:id/progress", cfg.DealHandler.Progress)

	// Parties
	api.GET("/deals/:id/parties/:role", cfg.PartyHandler.List)
	api.POST("/deals/:id/parties/:role", cfg.PartyHandler.Add)
	api.PATCH("/deals/:id/parties/:role/:index", cfg.PartyHandler.Update)
	api.DELETE("/deals/:id/parties/:role/:index", cfg.PartyHandler.Remove)

	// Documents
	api.POST("/deals/:id/documents", cfg.DocumentHandler.Upload)
	api.GET("/deals/:id/documents", cfg.DocumentHandler.List)
	api.POST("/deals/:id/documents/refresh", cfg.DocumentHandler.Refresh)
	api.POST("/deals/:id/documents/:docId/link", cfg.DocumentHandler.Link)
	api.POST("/deals/:id/documents/:docId/retry", cfg.DocumentHandler.Retry)
	api.DELETE("/deals/:id/documents/:docId", cfg.DocumentHandler.Remove)

	// Checklist
	api.GET("/deals/:id/checklist", cfg.ChecklistHandler.Get)

	// SSE
	api.GET("/deals/:id/events", cfg.SSEHandler.Stream)

	return router
}
