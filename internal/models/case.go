package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CaseKind discriminates the moderation case variants that share the
// cases table.
type CaseKind string

const (
	KindComplaint     CaseKind = "complaint"
	KindFraudSignal   CaseKind = "fraud_signal"
	KindAppeal        CaseKind = "appeal"
	KindGuarantor     CaseKind = "guarantor_request"
	KindFeedback      CaseKind = "feedback_item"
	KindSuggestedPost CaseKind = "suggested_post"
	KindTradeFeedback CaseKind = "trade_feedback"
)

// CaseStatus is a member of one kind's closed status set. The per-kind sets
// live in StatusSets; the case store rejects anything outside them.
type CaseStatus string

const (
	StatusOpen      CaseStatus = "OPEN"
	StatusInReview  CaseStatus = "IN_REVIEW"
	StatusResolved  CaseStatus = "RESOLVED"
	StatusRejected  CaseStatus = "REJECTED"
	StatusDismissed CaseStatus = "DISMISSED"
	StatusConfirmed CaseStatus = "CONFIRMED"
	StatusNew       CaseStatus = "NEW"
	StatusAssigned  CaseStatus = "ASSIGNED"
	StatusPending   CaseStatus = "PENDING"
	StatusApproved  CaseStatus = "APPROVED"
	StatusDeclined  CaseStatus = "DECLINED"
	StatusFailed    CaseStatus = "FAILED"
	StatusVisible   CaseStatus = "VISIBLE"
	StatusHidden    CaseStatus = "HIDDEN"
)

// StatusSets maps each kind to its closed status vocabulary.
var StatusSets = map[CaseKind][]CaseStatus{
	KindComplaint:     {StatusOpen, StatusResolved, StatusDismissed},
	KindFraudSignal:   {StatusOpen, StatusConfirmed, StatusDismissed},
	KindAppeal:        {StatusOpen, StatusInReview, StatusResolved, StatusRejected},
	KindGuarantor:     {StatusNew, StatusAssigned, StatusRejected},
	KindFeedback:      {StatusNew, StatusInReview, StatusApproved, StatusRejected},
	KindSuggestedPost: {StatusPending, StatusApproved, StatusDeclined, StatusFailed},
	KindTradeFeedback: {StatusVisible, StatusHidden},
}

// InitialStatus is the "open/new" member each kind starts in.
var InitialStatus = map[CaseKind]CaseStatus{
	KindComplaint:     StatusOpen,
	KindFraudSignal:   StatusOpen,
	KindAppeal:        StatusOpen,
	KindGuarantor:     StatusNew,
	KindFeedback:      StatusNew,
	KindSuggestedPost: StatusPending,
	KindTradeFeedback: StatusVisible,
}

// TerminalStatuses lists the statuses a case never leaves. Trade feedback
// has none: VISIBLE/HIDDEN flip back and forth under moderation.
var TerminalStatuses = map[CaseKind][]CaseStatus{
	KindComplaint:     {StatusResolved, StatusDismissed},
	KindFraudSignal:   {StatusConfirmed, StatusDismissed},
	KindAppeal:        {StatusResolved, StatusRejected},
	KindGuarantor:     {StatusAssigned, StatusRejected},
	KindFeedback:      {StatusApproved, StatusRejected},
	KindSuggestedPost: {StatusApproved, StatusDeclined, StatusFailed},
	KindTradeFeedback: {},
}

// BoostableKinds are the kinds whose submitter may spend ledger points on a
// priority boost.
var BoostableKinds = map[CaseKind]bool{
	KindAppeal:    true,
	KindGuarantor: true,
	KindFeedback:  true,
}

// ValidStatus reports whether status belongs to kind's closed set.
func ValidStatus(kind CaseKind, status CaseStatus) bool {
	for _, s := range StatusSets[kind] {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether status is terminal for kind.
func IsTerminal(kind CaseKind, status CaseStatus) bool {
	for _, s := range TerminalStatuses[kind] {
		if s == status {
			return true
		}
	}
	return false
}

// Case is one unit of moderation work. Every kind shares this shape;
// kind-specific columns (SLA, boosts, fraud score) stay null for the others.
type Case struct {
	gorm.Model

	Kind   CaseKind   `gorm:"type:varchar(32);not null;index:idx_cases_kind_status;uniqueIndex:idx_cases_kind_ref,priority:1"`
	Status CaseStatus `gorm:"type:varchar(32);not null;index:idx_cases_kind_status"`

	// Ref deduplicates resubmissions of the same logical case, e.g. an
	// appeal re-raised for the same complaint. The partial unique index
	// over (kind, ref) is the arbiter for Submit's insert-or-ignore.
	Ref string `gorm:"type:varchar(255);uniqueIndex:idx_cases_kind_ref,priority:2,where:ref <> ''"`

	SubmitterUserID int64  `gorm:"not null;index"`
	TargetUserID    *int64 `gorm:"index"`
	SubjectRef      string `gorm:"type:varchar(255)"`
	Reason          string `gorm:"type:text;not null"`
	Payload         []byte `gorm:"type:jsonb"`

	// Fraud-signal variant.
	FraudScore   *int
	FraudReasons pq.StringArray `gorm:"type:text[]"`

	// Queue location: where the moderator-facing card was posted.
	QueueChatID    *int64
	QueueMessageID *int64

	// Resolution fields, written atomically with a terminal transition.
	ResolvedByUserID *int64
	ResolutionNote   *string `gorm:"type:text"`
	ResolvedAt       *time.Time

	// SLA fields, appeal variant only.
	InReviewStartedAt *time.Time
	SLADeadlineAt     *time.Time `gorm:"index;index:idx_cases_escalation_scan,priority:3"`
	EscalatedAt       *time.Time `gorm:"index:idx_cases_escalation_scan,priority:2"`
	EscalationLevel   int        `gorm:"not null;default:0"`

	// Priority-boost fields: appeal, guarantor request, feedback item.
	PriorityBoostPointsSpent int `gorm:"not null;default:0"`
	PriorityBoostedAt        *time.Time

	// Feedback variant: points granted to the submitter on approval.
	RewardPoints int `gorm:"not null;default:0"`
}
