package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"modqueue/backend/internal/casestore"
	"modqueue/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// ListCases returns cases filtered by kind and optionally status.
func (h *Handler) ListCases(c *gin.Context) {
	kind := models.CaseKind(c.Query("kind"))
	if _, ok := models.StatusSets[kind]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown or missing kind"})
		return
	}
	status := models.CaseStatus(c.Query("status"))
	if status != "" && !models.ValidStatus(kind, status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status not valid for kind"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	cases, err := h.Store.ListCases(c.Request.Context(), kind, status, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cases": cases})
}

// GetCase returns one case by ID.
func (h *Handler) GetCase(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	found, err := h.Store.GetCaseByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if found == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
		return
	}
	c.JSON(http.StatusOK, found)
}

// ListCaseLogs returns the audit trail of one case, newest first.
func (h *Handler) ListCaseLogs(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.Store.ListModerationLogs(c.Request.Context(), id, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// SubmitCase files a new case of any kind.
func (h *Handler) SubmitCase(c *gin.Context) {
	var req struct {
		Kind            models.CaseKind `json:"kind" binding:"required"`
		SubmitterUserID int64           `json:"submitter_user_id" binding:"required"`
		TargetUserID    *int64          `json:"target_user_id"`
		SubjectRef      string          `json:"subject_ref"`
		Reason          string          `json:"reason"`
		Ref             string          `json:"ref"`
		Payload         json.RawMessage `json:"payload"`
		FraudScore      *int            `json:"fraud_score"`
		FraudReasons    []string        `json:"fraud_reasons"`
		RewardPoints    int             `json:"reward_points"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.Cases.Submit(c.Request.Context(), casestore.SubmitInput{
		Kind:            req.Kind,
		SubmitterUserID: req.SubmitterUserID,
		TargetUserID:    req.TargetUserID,
		SubjectRef:      req.SubjectRef,
		Reason:          req.Reason,
		Ref:             req.Ref,
		Payload:         req.Payload,
		FraudScore:      req.FraudScore,
		FraudReasons:    pq.StringArray(req.FraudReasons),
		RewardPoints:    req.RewardPoints,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// Posting the moderator card is best-effort; the case exists either way
	// and the attach is a no-op once a location is set.
	if h.Queue != nil && created.QueueChatID == nil {
		if err := h.Queue.PostQueueCard(c.Request.Context(), created); err != nil {
			log.Printf("ERROR: Queue card for case %d failed: %v", created.ID, err)
		}
	}

	c.JSON(http.StatusCreated, created)
}

// TransitionCase moves a case to a new status as the authenticated moderator.
func (h *Handler) TransitionCase(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req struct {
		Target models.CaseStatus `json:"target" binding:"required"`
		Note   string            `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.Cases.Transition(c.Request.Context(), id, req.Target, moderatorID(c), req.Note)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// BoostCase spends a user's points to raise a queued case's priority.
func (h *Handler) BoostCase(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
		Points int   `json:"points" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	boosted, err := h.Cases.BoostPriority(c.Request.Context(), id, req.UserID, req.Points)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, boosted)
}

// caseKind loads the case and returns its kind; checklist routes key the
// template set off it.
func (h *Handler) caseKind(c *gin.Context, id uint) (models.CaseKind, bool) {
	found, err := h.Store.GetCaseByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return "", false
	}
	if found == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
		return "", false
	}
	return found.Kind, true
}

// GetChecklist materializes the kind's template items for the case and
// returns them with their done state.
func (h *Handler) GetChecklist(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	kind, ok := h.caseKind(c, id)
	if !ok {
		return
	}
	items, err := h.Cases.EnsureChecklist(c.Request.Context(), kind, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddChecklistItem adds an ad-hoc item beyond the kind's template.
func (h *Handler) AddChecklistItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req struct {
		Code  string `json:"code" binding:"required"`
		Label string `json:"label" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, ok := h.caseKind(c, id)
	if !ok {
		return
	}
	item, err := h.Cases.AddItem(c.Request.Context(), kind, id, req.Code, req.Label)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// MarkChecklistDone checks off one item as the authenticated moderator.
func (h *Handler) MarkChecklistDone(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	kind, ok := h.caseKind(c, id)
	if !ok {
		return
	}
	item, err := h.Cases.MarkDone(c.Request.Context(), kind, id, c.Param("code"), moderatorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// AddChecklistReply appends an immutable discussion reply to one item.
func (h *Handler) AddChecklistReply(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, ok := h.caseKind(c, id)
	if !ok {
		return
	}
	reply, err := h.Cases.AddReply(c.Request.Context(), kind, id, c.Param("code"), moderatorID(c), req.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

// ListChecklistReplies returns every reply on the case grouped by item code.
func (h *Handler) ListChecklistReplies(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	kind, ok := h.caseKind(c, id)
	if !ok {
		return
	}
	replies, err := h.Cases.ListReplies(c.Request.Context(), kind, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}
