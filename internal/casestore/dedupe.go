package casestore

import (
	"fmt"

	"modqueue/backend/internal/models"
)

// Boost dedupe keys are deterministic per (case, user), so a retried boost
// never debits twice.
var boostKeyPrefix = map[models.CaseKind]string{
	models.KindAppeal:    "boostap",
	models.KindGuarantor: "boostgr",
	models.KindFeedback:  "boostfb",
}

var boostEventType = map[models.CaseKind]models.PointsEventType{
	models.KindAppeal:    models.EventAppealPriorityBoost,
	models.KindGuarantor: models.EventGuarantorPriorityBoost,
	models.KindFeedback:  models.EventFeedbackPriorityBoost,
}

// BoostDedupeKey builds the ledger dedupe key for a priority boost.
func BoostDedupeKey(kind models.CaseKind, caseID uint, userID int64) string {
	return fmt.Sprintf("%s:%d:%d", boostKeyPrefix[kind], caseID, userID)
}

// BoostAttemptKey discriminates successive boosts of one case by the
// points already spent before this attempt: retrying a failed boost reuses
// the key (debits once), a genuine second boost gets a fresh one.
func BoostAttemptKey(kind models.CaseKind, caseID uint, userID int64, spentSoFar int) string {
	return fmt.Sprintf("%s:%d", BoostDedupeKey(kind, caseID, userID), spentSoFar)
}

// FeedbackRewardDedupeKey keys the one-time reward grant for an approved
// feedback item.
func FeedbackRewardDedupeKey(caseID uint) string {
	return fmt.Sprintf("feedback:%d:reward", caseID)
}

// FeedbackIssueDedupeKey keys the one-time external side effect for an
// approved feedback item.
func FeedbackIssueDedupeKey(caseID uint) string {
	return fmt.Sprintf("feedback:%d:github-issue", caseID)
}
