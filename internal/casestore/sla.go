package casestore

import (
	"time"

	"modqueue/backend/internal/config"
	"modqueue/backend/internal/models"
)

// ApplySLAFields recomputes the appeal SLA columns for a status change.
// Entering OPEN arms a 24h deadline, entering IN_REVIEW stamps the review
// start and arms a 12h deadline, a terminal status disarms everything.
// Non-appeal kinds are untouched.
func ApplySLAFields(c *models.Case, target models.CaseStatus, now time.Time) {
	if c.Kind != models.KindAppeal {
		return
	}

	switch {
	case target == models.StatusOpen:
		deadline := now.Add(config.OpenSLAWindow)
		c.SLADeadlineAt = &deadline
		c.EscalatedAt = nil
	case target == models.StatusInReview:
		started := now
		deadline := now.Add(config.InReviewSLAWindow)
		c.InReviewStartedAt = &started
		c.SLADeadlineAt = &deadline
		c.EscalatedAt = nil
	case models.IsTerminal(c.Kind, target):
		c.SLADeadlineAt = nil
		c.EscalatedAt = nil
	}
}
