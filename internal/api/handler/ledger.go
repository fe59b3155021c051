package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

// GetPointsSummary returns the user's balance, totals and operation count.
func (h *Handler) GetPointsSummary(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	summary, err := h.Ledger.GetSummary(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ListPointsEntries returns the user's most recent ledger entries.
func (h *Handler) ListPointsEntries(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	entries, err := h.Ledger.ListEntries(c.Request.Context(), userID, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// AdjustPoints applies a manual adjustment as the authenticated moderator.
// Callers that retry must send their own dedupe key; one is minted when
// absent so a single request can never double-apply.
func (h *Handler) AdjustPoints(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	var req struct {
		Amount    int    `json:"amount" binding:"required"`
		Reason    string `json:"reason" binding:"required"`
		DedupeKey string `json:"dedupe_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DedupeKey == "" {
		req.DedupeKey = fmt.Sprintf("manual:%d:%s", userID, uuid.NewString())
	}

	result, err := h.Cases.AdjustUserPoints(c.Request.Context(), moderatorID(c), userID, req.Amount, req.Reason, req.DedupeKey)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"changed": result.Changed,
		"entry":   result.Entry,
	})
}
