package notify

import (
	"fmt"
	"strings"
	"time"

	"modqueue/backend/internal/models"
	"modqueue/backend/internal/sla"
)

var kindTitles = map[models.CaseKind]string{
	models.KindComplaint:     "Complaint",
	models.KindFraudSignal:   "Fraud signal",
	models.KindAppeal:        "Appeal",
	models.KindGuarantor:     "Guarantor request",
	models.KindFeedback:      "Feedback",
	models.KindSuggestedPost: "Suggested post",
	models.KindTradeFeedback: "Trade feedback",
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// RenderQueueCard builds the moderator-facing text for a freshly
// submitted case.
func RenderQueueCard(c *models.Case) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s #%d\n", kindTitles[c.Kind], c.ID)
	fmt.Fprintf(&b, "Status: %s\n", c.Status)
	fmt.Fprintf(&b, "Submitter: %d\n", c.SubmitterUserID)
	if c.TargetUserID != nil {
		fmt.Fprintf(&b, "Target: %d\n", *c.TargetUserID)
	}
	if c.SubjectRef != "" {
		fmt.Fprintf(&b, "Subject: %s\n", c.SubjectRef)
	}
	if c.FraudScore != nil {
		fmt.Fprintf(&b, "Score: %d\n", *c.FraudScore)
	}
	if len(c.FraudReasons) > 0 {
		fmt.Fprintf(&b, "Signals: %s\n", strings.Join(c.FraudReasons, ", "))
	}
	if c.SLADeadlineAt != nil {
		fmt.Fprintf(&b, "SLA deadline: %s\n", formatTime(c.SLADeadlineAt))
	}
	fmt.Fprintf(&b, "Reason: %s", c.Reason)
	return b.String()
}

// RenderEscalation builds the escalation notice for the moderation chat.
func RenderEscalation(esc sla.Escalation) string {
	var b strings.Builder
	b.WriteString("Appeal escalation\n")
	fmt.Fprintf(&b, "ID: %d\n", esc.CaseID)
	if esc.Ref != "" {
		fmt.Fprintf(&b, "Ref: %s\n", esc.Ref)
	}
	fmt.Fprintf(&b, "Status: %s\n", esc.Status)
	fmt.Fprintf(&b, "Appellant: %d\n", esc.SubmitterUserID)
	fmt.Fprintf(&b, "SLA deadline: %s\n", esc.SLADeadlineAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Escalated: %s\n", esc.EscalatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Level: %d", esc.EscalationLevel)
	return b.String()
}
