package models

import (
	"time"
)

// ModerationAction names an audited moderator or system action.
type ModerationAction string

const (
	ActionTransitionCase   ModerationAction = "TRANSITION_CASE"
	ActionEscalateAppeal   ModerationAction = "ESCALATE_APPEAL"
	ActionPriorityBoost    ModerationAction = "PRIORITY_BOOST"
	ActionAdjustUserPoints ModerationAction = "ADJUST_USER_POINTS"
	ActionReplayOutbox     ModerationAction = "REPLAY_OUTBOX"
	ActionDeliverOutbox    ModerationAction = "DELIVER_OUTBOX"
)

// ModerationLog is the append-only audit trail behind every state change a
// moderator or background loop performs.
type ModerationLog struct {
	ID           uint             `gorm:"primaryKey"`
	ActorUserID  int64            `gorm:"not null"`
	TargetUserID *int64
	CaseID       *uint            `gorm:"index"`
	Action       ModerationAction `gorm:"type:varchar(64);not null"`
	Reason       string           `gorm:"type:text;not null"`
	Payload      []byte           `gorm:"type:jsonb"`
	CreatedAt    time.Time        `gorm:"not null;index"`
}

func (ModerationLog) TableName() string { return "moderation_logs" }
