// Package handlers implements the thin control-plane HTTP surface: target
// CRUD, history reads, manual trigger, and system health.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/last-emo-boy/uptimepulse/pkg/database"
)

// Rearmer is the subset of Scheduler the control plane uses to kick off an
// immediate probe outside the dispatch tick.
type Rearmer interface {
	TriggerCheck(targetID string)
}

// TargetHandler handles target CRUD, history, and manual trigger endpoints.
type TargetHandler struct {
	store     database.Store
	scheduler Rearmer
}

// NewTargetHandler builds a TargetHandler.
func NewTargetHandler(store database.Store, scheduler Rearmer) *TargetHandler {
	return &TargetHandler{store: store, scheduler: scheduler}
}

type createTargetRequest struct {
	Name                   string  `json:"name" binding:"required"`
	URL                    string  `json:"url" binding:"required"`
	CheckIntervalMin       int     `json:"check_interval_min"`
	FailurePollIntervalSec int     `json:"failure_poll_interval_sec"`
	AlertThreshold         int     `json:"alert_threshold"`
	RecoveryThreshold      int     `json:"recovery_threshold"`
	AlertEmail             *string `json:"alert_email"`
}

// CreateTarget creates a target and enqueues an immediate probe, rather than
// waiting for the next dispatch tick.
func (h *TargetHandler) CreateTarget(c *gin.Context) {
	var req createTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.CheckIntervalMin <= 0 {
		req.CheckIntervalMin = 5
	}
	if req.FailurePollIntervalSec <= 0 {
		req.FailurePollIntervalSec = 30
	}
	if req.AlertThreshold <= 0 {
		req.AlertThreshold = 3
	}
	if req.RecoveryThreshold <= 0 {
		req.RecoveryThreshold = 2
	}

	now := time.Now().UTC()
	target := &database.Target{
		ID:                     uuid.New().String(),
		Name:                   req.Name,
		URL:                    req.URL,
		CheckIntervalMin:       req.CheckIntervalMin,
		FailurePollIntervalSec: req.FailurePollIntervalSec,
		AlertThreshold:         req.AlertThreshold,
		RecoveryThreshold:      req.RecoveryThreshold,
		AlertEmail:             req.AlertEmail,
		IsActive:               true,
		CurrentStatus:          database.StatusPending,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := h.store.CreateTarget(target); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create target"})
		return
	}

	h.scheduler.TriggerCheck(target.ID)

	c.JSON(http.StatusCreated, target)
}

// ListTargets lists all active targets.
func (h *TargetHandler) ListTargets(c *gin.Context) {
	targets, err := h.store.ListActiveTargets()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list targets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"targets": targets, "total": len(targets)})
}

// GetTarget returns one target with its uptime and performance metrics.
func (h *TargetHandler) GetTarget(c *gin.Context) {
	target, err := h.store.GetTarget(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Target not found"})
		return
	}

	uptime, err := h.store.UptimePercentage(target.ID, time.Now().AddDate(0, 0, -30))
	if err != nil {
		uptime = 0
	}
	perf, err := h.store.PerformanceMetrics(target.ID)
	if err != nil {
		perf = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"target":             target,
		"uptime_percentage":  uptime,
		"performance_metrics": perf,
	})
}

// DeleteTarget deletes a target.
func (h *TargetHandler) DeleteTarget(c *gin.Context) {
	if err := h.store.DeleteTarget(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete target"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetTargetHistory returns probe log history for a target: the last `hours`
// of logs if given, otherwise the most recent 20 rows.
func (h *TargetHandler) GetTargetHistory(c *gin.Context) {
	targetID := c.Param("id")
	if _, err := h.store.GetTarget(targetID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Target not found"})
		return
	}

	var logs []*database.ProbeLog
	var err error

	if hoursParam := c.Query("hours"); hoursParam != "" {
		hours, parseErr := strconv.Atoi(hoursParam)
		if parseErr != nil || hours <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hours parameter"})
			return
		}
		since := time.Now().Add(-time.Duration(hours) * time.Hour)
		logs, err = h.store.ListProbeLogsSince(targetID, since)
	} else {
		logs, err = h.store.ListRecentProbeLogs(targetID, 20)
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": len(logs)})
}

// TriggerCheck enqueues an immediate probe for a target, bypassing due-ness.
func (h *TargetHandler) TriggerCheck(c *gin.Context) {
	targetID := c.Param("id")
	if _, err := h.store.GetTarget(targetID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Target not found"})
		return
	}

	h.scheduler.TriggerCheck(targetID)
	c.JSON(http.StatusAccepted, gin.H{"status": "check triggered"})
}
