package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/jewellery_backend/appctx"
	"github.com/mmdatafocus/jewellery_backend/branchsync"
	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/sirupsen/logrus"
)

func (h *Handler) SyncStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := h.Sync.Engine().Status(c.Request.Context())
		if err != nil {
			fail(c, h.Logger, "SyncStatus", err)
			return
		}
		ok(c, gin.H{"status": status, "scheduler_running": h.Sync.IsRunning()})
	}
}

// SyncQueue lists recent outbox rows, ?state=failed to see what needs a retry.
func (h *Handler) SyncQueue() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		if limit <= 0 || limit > 1000 {
			limit = 100
		}
		ctx := c.Request.Context()
		rows, err := h.Sync.Engine().Queue.List(ctx, appctx.BranchId(ctx), models.SyncState(c.Query("state")), limit)
		if err != nil {
			fail(c, h.Logger, "SyncQueue", err)
			return
		}
		ok(c, rows)
	}
}

func (h *Handler) TriggerSync() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.Sync.TriggerSync(c.Request.Context())
		if err != nil {
			fail(c, h.Logger, "TriggerSync", err)
			return
		}
		ok(c, result)
	}
}

type toggleSyncRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *Handler) ToggleSync() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req toggleSyncRequest
		if !bind(c, &req) {
			return
		}
		status, err := h.Sync.ToggleSync(c.Request.Context(), *req.Enabled)
		if err != nil {
			fail(c, h.Logger, "ToggleSync", err)
			return
		}
		ok(c, status)
	}
}

type syncIntervalRequest struct {
	Minutes int `json:"minutes"`
}

func (h *Handler) UpdateSyncInterval() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req syncIntervalRequest
		if !bind(c, &req) {
			return
		}
		status, err := h.Sync.UpdateInterval(c.Request.Context(), req.Minutes)
		if err != nil {
			fail(c, h.Logger, "UpdateSyncInterval", err)
			return
		}
		ok(c, status)
	}
}

type retrySyncRequest struct {
	Ids []uint `json:"ids"`
}

// RetrySync moves failed rows back to pending; an empty id list retries all.
func (h *Handler) RetrySync() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req retrySyncRequest
		_ = c.ShouldBindJSON(&req)
		ctx := c.Request.Context()
		n, err := h.Sync.Engine().Queue.ResetForRetry(ctx, appctx.BranchId(ctx), req.Ids...)
		if err != nil {
			fail(c, h.Logger, "RetrySync", err)
			return
		}
		ok(c, gin.H{"reset": n})
	}
}

type cleanupSyncRequest struct {
	DaysToKeep int `json:"days_to_keep"`
}

func (h *Handler) CleanupSync() gin.HandlerFunc {
	return func(c *gin.Context) {
		req := cleanupSyncRequest{DaysToKeep: 30}
		_ = c.ShouldBindJSON(&req)
		n, err := h.Sync.Engine().Queue.Cleanup(c.Request.Context(), req.DaysToKeep)
		if err != nil {
			fail(c, h.Logger, "CleanupSync", err)
			return
		}
		ok(c, gin.H{"deleted": n})
	}
}

// PubSubSync is the push endpoint for branch change events. Malformed
// messages are acked so Pub/Sub does not retry them; a failed pull returns
// 500 so it does.
func (h *Handler) PubSubSync() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(h.Logger, "handlers", "PubSubSync", "io.ReadAll", nil, err)
			c.Status(http.StatusNoContent)
			return
		}
		event, err := branchsync.DecodePushEnvelope(body)
		if err != nil {
			config.LogError(h.Logger, "handlers", "PubSubSync", "decode push envelope", string(body), err)
			c.Status(http.StatusNoContent)
			return
		}
		result, err := h.Sync.Engine().HandleBranchNotification(c.Request.Context(), event)
		if err != nil {
			config.LogError(h.Logger, "handlers", "PubSubSync", "pull after notification", event, err)
			c.Status(http.StatusInternalServerError)
			return
		}
		h.Logger.WithFields(logrus.Fields{
			"from_branch": event.BranchId,
			"applied":     result.Applied,
			"skipped":     result.Skipped,
		}).Info("pulled after branch notification")
		c.Status(http.StatusNoContent)
	}
}
