package models

import (
	"time"

	"gorm.io/gorm"
)

// ChecklistItem is one step of a case's moderation checklist, keyed by the
// unique (entity_kind, entity_id, item_code) triple.
type ChecklistItem struct {
	gorm.Model

	EntityKind   CaseKind `gorm:"type:varchar(32);not null;uniqueIndex:uq_checklist_entity_code,priority:1"`
	EntityID     uint     `gorm:"not null;uniqueIndex:uq_checklist_entity_code,priority:2"`
	ItemCode     string   `gorm:"type:varchar(64);not null;uniqueIndex:uq_checklist_entity_code,priority:3"`
	Label        string   `gorm:"type:text;not null"`
	IsDone       bool     `gorm:"not null;default:false"`
	DoneByUserID *int64
	DoneAt       *time.Time

	Replies []ChecklistReply `gorm:"foreignKey:ChecklistItemID;constraint:OnDelete:CASCADE"`
}

func (ChecklistItem) TableName() string { return "moderation_checklist_items" }

// ChecklistReply is an immutable discussion entry attached to a checklist
// item. Replies are append-only: written once, never edited.
type ChecklistReply struct {
	ID              uint      `gorm:"primaryKey"`
	ChecklistItemID uint      `gorm:"not null;index"`
	ActorUserID     int64     `gorm:"not null"`
	ReplyText       string    `gorm:"type:text;not null"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (ChecklistReply) TableName() string { return "moderation_checklist_replies" }
