package models

import "gorm.io/gorm"

// PointsEventType is a closed, append-only-extensible set. New members are
// added here; free-form strings never reach the ledger table.
type PointsEventType string

const (
	EventFeedbackApproved       PointsEventType = "FEEDBACK_APPROVED"
	EventManualAdjustment       PointsEventType = "MANUAL_ADJUSTMENT"
	EventFeedbackPriorityBoost  PointsEventType = "FEEDBACK_PRIORITY_BOOST"
	EventGuarantorPriorityBoost PointsEventType = "GUARANTOR_PRIORITY_BOOST"
	EventAppealPriorityBoost    PointsEventType = "APPEAL_PRIORITY_BOOST"
)

// KnownPointsEvents guards inserts against event types outside the set.
var KnownPointsEvents = map[PointsEventType]bool{
	EventFeedbackApproved:       true,
	EventManualAdjustment:       true,
	EventFeedbackPriorityBoost:  true,
	EventGuarantorPriorityBoost: true,
	EventAppealPriorityBoost:    true,
}

// LedgerEntry is append-only: entries are never updated or deleted, so a
// user's balance is always the consistent sum of their rows.
type LedgerEntry struct {
	gorm.Model

	UserID    int64           `gorm:"not null;index:idx_points_ledger_user_created"`
	Amount    int             `gorm:"not null;check:points_ledger_amount_nonzero,amount <> 0"`
	EventType PointsEventType `gorm:"type:varchar(64);not null"`
	DedupeKey string          `gorm:"type:varchar(255);not null;uniqueIndex"`
	Reason    string          `gorm:"type:text;not null"`
	Payload   []byte          `gorm:"type:jsonb"`
}

func (LedgerEntry) TableName() string { return "points_ledger" }
