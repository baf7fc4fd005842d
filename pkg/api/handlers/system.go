package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/last-emo-boy/uptimepulse/pkg/database"
	"github.com/last-emo-boy/uptimepulse/pkg/kv"
	"github.com/last-emo-boy/uptimepulse/pkg/telemetry"
)

const healthHistoryKey = "system_health_history"

// SystemHandler serves process and host health for the control plane.
type SystemHandler struct {
	store     database.Store
	kv        kv.KV
	telemetry telemetry.HostTelemetry
	startTime time.Time
}

// NewSystemHandler builds a SystemHandler.
func NewSystemHandler(store database.Store, kvStore kv.KV, tel telemetry.HostTelemetry) *SystemHandler {
	return &SystemHandler{store: store, kv: kvStore, telemetry: tel, startTime: time.Now()}
}

// HealthCheck reports process liveness and store connectivity.
func (h *SystemHandler) HealthCheck(c *gin.Context) {
	if err := h.store.HealthCheck(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetSystemHealth returns the current host telemetry reading, the
// configured alert thresholds, and the bounded recent-history ring.
func (h *SystemHandler) GetSystemHealth(c *gin.Context) {
	stats, err := h.telemetry.Read()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read host telemetry"})
		return
	}

	cfg, err := h.store.GetSystemConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load system config"})
		return
	}

	history, err := h.kv.RingRange(c.Request.Context(), healthHistoryKey, 20)
	if err != nil {
		history = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"current": stats,
		"config":  cfg,
		"history": history,
	})
}

