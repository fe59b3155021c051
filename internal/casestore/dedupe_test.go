package casestore_test

import (
	"testing"

	"modqueue/backend/internal/casestore"
	"modqueue/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

// TestBoostDedupeKey_Format verifies the per-kind key prefixes.
func TestBoostDedupeKey_Format(t *testing.T) {
	assert.Equal(t, "boostap:42:1001", casestore.BoostDedupeKey(models.KindAppeal, 42, 1001))
	assert.Equal(t, "boostgr:42:1001", casestore.BoostDedupeKey(models.KindGuarantor, 42, 1001))
	assert.Equal(t, "boostfb:42:1001", casestore.BoostDedupeKey(models.KindFeedback, 42, 1001))
}

// TestBoostDedupeKey_DistinctPerSubject verifies two users boosting the same
// case, or one user boosting two cases, never collide.
func TestBoostDedupeKey_DistinctPerSubject(t *testing.T) {
	a := casestore.BoostDedupeKey(models.KindAppeal, 42, 1001)
	b := casestore.BoostDedupeKey(models.KindAppeal, 42, 1002)
	c := casestore.BoostDedupeKey(models.KindAppeal, 43, 1001)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

// TestBoostAttemptKey_RetrySafeButNotOnceOnly verifies the spent-total
// discriminator: a retried boost debits the ledger once, while a second
// boost from the new spent state gets a distinct key and debits again.
func TestBoostAttemptKey_RetrySafeButNotOnceOnly(t *testing.T) {
	first := casestore.BoostAttemptKey(models.KindAppeal, 42, 77, 0)
	retry := casestore.BoostAttemptKey(models.KindAppeal, 42, 77, 0)
	assert.Equal(t, first, retry, "retrying the same boost must reuse the key")

	second := casestore.BoostAttemptKey(models.KindAppeal, 42, 77, 10)
	assert.NotEqual(t, first, second, "a boost after 10 points were spent is a new debit")

	assert.Equal(t, "boostap:42:77:0", first)
	assert.Equal(t, "boostap:42:77:10", second)
}

// TestFeedbackDedupeKeys verifies the reward and external-issue keys for an
// approved feedback item.
func TestFeedbackDedupeKeys(t *testing.T) {
	assert.Equal(t, "feedback:7:reward", casestore.FeedbackRewardDedupeKey(7))
	assert.Equal(t, "feedback:7:github-issue", casestore.FeedbackIssueDedupeKey(7))
	assert.NotEqual(t, casestore.FeedbackRewardDedupeKey(7), casestore.FeedbackIssueDedupeKey(7))
}

// TestChecklistTemplates_CoverTriageKinds verifies the template sets exist
// for the kinds moderators triage with checklists.
func TestChecklistTemplates_CoverTriageKinds(t *testing.T) {
	for _, kind := range []models.CaseKind{models.KindComplaint, models.KindAppeal, models.KindGuarantor} {
		items := casestore.ChecklistTemplates[kind]
		assert.NotEmpty(t, items, "kind %s must have checklist templates", kind)

		seen := make(map[string]bool)
		for _, item := range items {
			assert.NotEmpty(t, item.Code)
			assert.NotEmpty(t, item.Label)
			assert.False(t, seen[item.Code], "duplicate template code %s for %s", item.Code, kind)
			seen[item.Code] = true
		}
	}
}
