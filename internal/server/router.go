package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mverrett/ascend-backend/internal/handlers"
	"github.com/mverrett/ascend-backend/internal/middleware"
)

type RouterConfig struct {
	UserHandler         *handlers.UserHandler
	CheckInHandler      *handlers.CheckInHandler
	InterventionHandler *handlers.InterventionHandler
	ScanHandler         *handlers.ScanHandler
	ScanToken           *middleware.ScanTokenMiddleware
	AllowOrigins        []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Scan-Token"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Users
		api.POST("/users", cfg.UserHandler.Register)
		api.GET("/users/:id", cfg.UserHandler.Get)
		api.PATCH("/users/:id", cfg.UserHandler.UpdateSettings)
		// Check-ins
		api.POST("/users/:id/checkins", cfg.CheckInHandler.Record)
		api.GET("/users/:id/checkins", cfg.CheckInHandler.ListRecent)
		api.PATCH("/users/:id/checkins/:date", cfg.CheckInHandler.Correct)
		api.GET("/users/:id/streak", cfg.CheckInHandler.GetStreak)
		// Interventions
		api.GET("/users/:id/interventions", cfg.InterventionHandler.ListByUser)
		api.POST("/interventions/:id/resolve", cfg.InterventionHandler.Resolve)
	}

	// Scheduler-only
	internal := router.Group("/internal")
	internal.Use(cfg.ScanToken.RequireToken())
	internal.POST("/scan", cfg.ScanHandler.Trigger)

	return router
}
