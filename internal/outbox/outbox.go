// Package outbox implements the integration outbox: a durable queue of
// external side effects enqueued inside case transactions and delivered at
// least once by the dispatcher, de-duplicated by key.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"modqueue/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventFeedbackApproved triggers the external issue-creation side effect
// for an approved feedback item.
const EventFeedbackApproved = "feedback.approved"

// dedupeKeyConflict targets the unique index on dedupe_key; enqueueing the
// same event twice yields exactly one row.
func dedupeKeyConflict() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedupe_key"}},
		DoNothing: true,
	}
}

// EnqueueTx inserts a pending entry inside the caller's transaction. A
// duplicate dedupe key is a silent no-op: the event was already scheduled
// or delivered. Callers must not branch on the returned flag for workflow
// decisions; it exists for logging.
func EnqueueTx(tx *gorm.DB, eventType string, payload json.RawMessage, dedupeKey string) (bool, error) {
	if eventType == "" {
		return false, fmt.Errorf("outbox: event type required")
	}
	if dedupeKey == "" {
		return false, fmt.Errorf("outbox: dedupe key required")
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return false, fmt.Errorf("outbox: payload must be valid JSON")
	}

	entry := models.OutboxEntry{
		EventType:   eventType,
		Payload:     payload,
		DedupeKey:   dedupeKey,
		Status:      models.OutboxPending,
		NextRetryAt: time.Now().UTC(),
	}
	res := tx.Clauses(dedupeKeyConflict()).Create(&entry)
	if res.Error != nil {
		return false, fmt.Errorf("outbox insert failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Enqueue is EnqueueTx over a plain handle, for callers outside a case
// transaction.
func Enqueue(ctx context.Context, db *gorm.DB, eventType string, payload json.RawMessage, dedupeKey string) (bool, error) {
	return EnqueueTx(db.WithContext(ctx), eventType, payload, dedupeKey)
}
