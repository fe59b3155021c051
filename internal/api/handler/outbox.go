package handler

import (
	"net/http"
	"strconv"

	"modqueue/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// ListOutbox returns outbox entries, optionally filtered by status.
func (h *Handler) ListOutbox(c *gin.Context) {
	status := models.OutboxStatus(c.Query("status"))
	switch status {
	case "", models.OutboxPending, models.OutboxDone, models.OutboxFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown outbox status"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.Store.ListOutboxEntries(c.Request.Context(), status, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ReplayOutbox requeues one failed entry for delivery.
func (h *Handler) ReplayOutbox(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Dispatcher.Replay(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replayed": id})
}

// ReplayAllFailed requeues every failed entry.
func (h *Handler) ReplayAllFailed(c *gin.Context) {
	n, err := h.Dispatcher.ReplayAllFailed(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replayed": n})
}
