package models

import (
	"time"

	"gorm.io/gorm"
)

// OutboxStatus is the lifecycle state of an integration outbox entry.
type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxDone    OutboxStatus = "done"
	// OutboxFailed is terminal: the dispatcher never retries it on its
	// own, an operator has to replay it.
	OutboxFailed OutboxStatus = "failed"
)

// OutboxEntry is one external side effect to be delivered at least once.
// The unique dedupe key makes Enqueue idempotent under duplicate triggers.
type OutboxEntry struct {
	gorm.Model

	EventType   string       `gorm:"type:varchar(120);not null"`
	Payload     []byte       `gorm:"type:jsonb;not null"`
	DedupeKey   string       `gorm:"type:varchar(255);not null;uniqueIndex"`
	Attempts    int          `gorm:"not null;default:0"`
	NextRetryAt time.Time    `gorm:"not null;index:idx_outbox_status_retry,priority:2"`
	Status      OutboxStatus `gorm:"type:varchar(16);not null;default:'pending';index:idx_outbox_status_retry,priority:1"`
	LastError   *string      `gorm:"type:text"`
}

func (OutboxEntry) TableName() string { return "integration_outbox" }
