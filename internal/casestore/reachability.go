package casestore

import "modqueue/backend/internal/models"

// reachable holds the per-kind transition table. A target status is legal
// only if it appears under the current status for that kind; terminal
// statuses have no outgoing edges.
var reachable = map[models.CaseKind]map[models.CaseStatus][]models.CaseStatus{
	models.KindComplaint: {
		models.StatusOpen: {models.StatusResolved, models.StatusDismissed},
	},
	models.KindFraudSignal: {
		models.StatusOpen: {models.StatusConfirmed, models.StatusDismissed},
	},
	models.KindAppeal: {
		// OPEN -> terminal directly is the fast-track path.
		models.StatusOpen:     {models.StatusInReview, models.StatusResolved, models.StatusRejected},
		models.StatusInReview: {models.StatusResolved, models.StatusRejected},
	},
	models.KindGuarantor: {
		models.StatusNew: {models.StatusAssigned, models.StatusRejected},
	},
	models.KindFeedback: {
		models.StatusNew:      {models.StatusInReview, models.StatusApproved, models.StatusRejected},
		models.StatusInReview: {models.StatusApproved, models.StatusRejected},
	},
	models.KindSuggestedPost: {
		models.StatusPending: {models.StatusApproved, models.StatusDeclined, models.StatusFailed},
	},
	models.KindTradeFeedback: {
		models.StatusVisible: {models.StatusHidden},
		models.StatusHidden:  {models.StatusVisible},
	},
}

// CanTransition reports whether target is reachable from current for kind.
func CanTransition(kind models.CaseKind, current, target models.CaseStatus) bool {
	for _, s := range reachable[kind][current] {
		if s == target {
			return true
		}
	}
	return false
}
