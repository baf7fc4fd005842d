// Package api assembles the thin control-plane gin router: target CRUD,
// history, manual trigger, and system health, gated by JWT auth.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/last-emo-boy/uptimepulse/pkg/api/handlers"
	"github.com/last-emo-boy/uptimepulse/pkg/api/middleware"
	"github.com/last-emo-boy/uptimepulse/pkg/auth"
	"github.com/last-emo-boy/uptimepulse/pkg/database"
	"github.com/last-emo-boy/uptimepulse/pkg/kv"
	"github.com/last-emo-boy/uptimepulse/pkg/telemetry"
)

// NewRouter builds the gin engine for the control-plane API.
func NewRouter(store database.Store, kvStore kv.KV, tel telemetry.HostTelemetry, scheduler handlers.Rearmer, authService *auth.Auth) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())

	systemHandler := handlers.NewSystemHandler(store, kvStore, tel)
	targetHandler := handlers.NewTargetHandler(store, scheduler)

	r.GET("/health", systemHandler.HealthCheck)

	apiGroup := r.Group("/api")
	apiGroup.Use(middleware.AuthMiddleware(authService))
	{
		apiGroup.GET("/health/system", systemHandler.GetSystemHealth)

		targets := apiGroup.Group("/targets")
		{
			targets.POST("", targetHandler.CreateTarget)
			targets.GET("", targetHandler.ListTargets)
			targets.GET("/:id", targetHandler.GetTarget)
			targets.DELETE("/:id", targetHandler.DeleteTarget)
			targets.GET("/:id/history", targetHandler.GetTargetHistory)
			targets.POST("/:id/trigger_check", targetHandler.TriggerCheck)
		}
	}

	return r
}
