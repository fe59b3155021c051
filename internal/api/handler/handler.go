package handler

import (
	"context"
	"errors"
	"net/http"

	"modqueue/backend/internal/casestore"
	"modqueue/backend/internal/ledger"
	"modqueue/backend/internal/models"
	"modqueue/backend/internal/outbox"
	"modqueue/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// QueuePoster surfaces a freshly submitted case to moderators. The notify
// service implements it; nil disables posting.
type QueuePoster interface {
	PostQueueCard(ctx context.Context, c *models.Case) error
}

// Handler bundles the services behind the moderation HTTP API.
type Handler struct {
	Store      storage.Storage
	Cases      *casestore.Service
	Ledger     *ledger.Service
	Dispatcher *outbox.Dispatcher
	Queue      QueuePoster
	JWTSecret  string
}

func NewHandler(store storage.Storage, cases *casestore.Service, lg *ledger.Service, dispatcher *outbox.Dispatcher, queue QueuePoster, jwtSecret string) *Handler {
	return &Handler{
		Store:      store,
		Cases:      cases,
		Ledger:     lg,
		Dispatcher: dispatcher,
		Queue:      queue,
		JWTSecret:  jwtSecret,
	}
}

// RegisterRoutes wires every endpoint onto the router. Everything except
// token issuance sits behind the moderator JWT middleware.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/auth/token", h.IssueToken)

	auth := r.Group("/", h.RequireModerator())
	{
		auth.GET("/cases", h.ListCases)
		auth.POST("/cases", h.SubmitCase)
		auth.GET("/cases/:id", h.GetCase)
		auth.GET("/cases/:id/logs", h.ListCaseLogs)
		auth.POST("/cases/:id/transition", h.TransitionCase)
		auth.POST("/cases/:id/boost", h.BoostCase)

		auth.GET("/cases/:id/checklist", h.GetChecklist)
		auth.POST("/cases/:id/checklist", h.AddChecklistItem)
		auth.POST("/cases/:id/checklist/:code/done", h.MarkChecklistDone)
		auth.POST("/cases/:id/checklist/:code/replies", h.AddChecklistReply)
		auth.GET("/cases/:id/checklist/replies", h.ListChecklistReplies)

		auth.GET("/users/:id/points", h.GetPointsSummary)
		auth.GET("/users/:id/points/entries", h.ListPointsEntries)
		auth.POST("/users/:id/points/adjust", h.AdjustPoints)

		auth.GET("/outbox", h.ListOutbox)
		auth.POST("/outbox/:id/replay", h.ReplayOutbox)
		auth.POST("/outbox/replay-failed", h.ReplayAllFailed)
	}
}

// respondServiceError maps the services' sentinel errors onto HTTP codes.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, casestore.ErrCaseNotFound),
		errors.Is(err, casestore.ErrChecklistItemNotFound),
		errors.Is(err, outbox.ErrReplayNotFailed):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, casestore.ErrInvalidTransition),
		errors.Is(err, casestore.ErrNotBoostable),
		errors.Is(err, casestore.ErrNotCaseOwner),
		errors.Is(err, casestore.ErrInsufficientBalance):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, casestore.ErrTransitionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, casestore.ErrUnknownKind),
		errors.Is(err, casestore.ErrInvalidBoostAmount),
		errors.Is(err, casestore.ErrEmptyReply),
		errors.Is(err, ledger.ErrZeroAmount),
		errors.Is(err, ledger.ErrUnknownEventType),
		errors.Is(err, ledger.ErrEmptyDedupeKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
