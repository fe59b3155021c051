// Package sla scans for appeals whose deadline has lapsed and escalates
// them. The scan-and-mark step is one atomic conditional update, so
// concurrent scheduler replicas never double-escalate a case.
package sla

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"modqueue/backend/internal/config"
	"modqueue/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Escalation is the notification obligation emitted for one claimed
// appeal. The scheduler does not send anything itself; the sink does.
type Escalation struct {
	CaseID          uint
	Ref             string
	SubmitterUserID int64
	Status          models.CaseStatus
	SLADeadlineAt   time.Time
	EscalatedAt     time.Time
	EscalationLevel int
}

// EscalationSink consumes escalation obligations.
type EscalationSink interface {
	NotifyEscalation(ctx context.Context, esc Escalation) error
}

// SchedulerConfig bounds the scan.
type SchedulerConfig struct {
	Interval  time.Duration
	Cooldown  time.Duration // 0 means each deadline escalates exactly once
	BatchSize int
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:  config.EscalationInterval,
		Cooldown:  config.EscalationCooldown,
		BatchSize: config.EscalationBatchSize,
	}
}

// Scheduler runs the periodic escalation scan.
type Scheduler struct {
	DB   *gorm.DB
	Cfg  SchedulerConfig
	Sink EscalationSink

	now func() time.Time
}

func NewScheduler(db *gorm.DB, sink EscalationSink, cfg SchedulerConfig) *Scheduler {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &Scheduler{DB: db, Cfg: cfg, Sink: sink, now: func() time.Time { return time.Now().UTC() }}
}

// Eligible reports whether an appeal qualifies for escalation at now. The
// same predicate backs the SQL claim.
func Eligible(c *models.Case, now time.Time, cooldown time.Duration) bool {
	if c.Kind != models.KindAppeal {
		return false
	}
	if models.IsTerminal(c.Kind, c.Status) {
		return false
	}
	if c.SLADeadlineAt == nil || c.SLADeadlineAt.After(now) {
		return false
	}
	if c.EscalatedAt == nil {
		return true
	}
	if cooldown <= 0 {
		return false
	}
	return !c.EscalatedAt.After(now.Add(-cooldown))
}

// EscalateOverdue claims up to one batch of overdue appeals and returns
// their escalation obligations. The claim is an UPDATE over ids selected
// FOR UPDATE SKIP LOCKED; a losing replica simply claims nothing.
func (s *Scheduler) EscalateOverdue(ctx context.Context) ([]Escalation, error) {
	now := s.now()
	var escalations []Escalation

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []models.Case
		q := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("kind = ?", models.KindAppeal).
			Where("status IN ?", []models.CaseStatus{models.StatusOpen, models.StatusInReview}).
			Where("sla_deadline_at IS NOT NULL AND sla_deadline_at <= ?", now)
		if s.Cfg.Cooldown > 0 {
			q = q.Where("escalated_at IS NULL OR escalated_at <= ?", now.Add(-s.Cfg.Cooldown))
		} else {
			q = q.Where("escalated_at IS NULL")
		}
		err := q.Order("sla_deadline_at asc, id asc").
			Limit(s.Cfg.BatchSize).
			Find(&candidates).Error
		if err != nil {
			return err
		}

		for i := range candidates {
			c := &candidates[i]
			res := tx.Model(&models.Case{}).
				Where("id = ? AND escalation_level = ?", c.ID, c.EscalationLevel).
				Updates(map[string]interface{}{
					"escalated_at":     now,
					"escalation_level": gorm.Expr("escalation_level + 1"),
					"updated_at":       now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Claim race lost; not an error, skip this case.
				continue
			}

			payload, err := json.Marshal(map[string]interface{}{
				"case_id":          c.ID,
				"sla_deadline_at":  c.SLADeadlineAt,
				"escalation_level": c.EscalationLevel + 1,
			})
			if err != nil {
				return err
			}
			if err := appendEscalationLog(tx, c, payload, now); err != nil {
				return err
			}

			escalations = append(escalations, Escalation{
				CaseID:          c.ID,
				Ref:             c.Ref,
				SubmitterUserID: c.SubmitterUserID,
				Status:          c.Status,
				SLADeadlineAt:   *c.SLADeadlineAt,
				EscalatedAt:     now,
				EscalationLevel: c.EscalationLevel + 1,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return escalations, nil
}

func appendEscalationLog(tx *gorm.DB, c *models.Case, payload []byte, now time.Time) error {
	id := c.ID
	return tx.Create(&models.ModerationLog{
		ActorUserID:  0, // system actor
		TargetUserID: &c.SubmitterUserID,
		CaseID:       &id,
		Action:       models.ActionEscalateAppeal,
		Reason:       "Appeal missed its SLA deadline and was escalated",
		Payload:      payload,
		CreatedAt:    now,
	}).Error
}

// Run scans on the configured interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log.Println("SLA escalation scheduler started.")
	ticker := time.NewTicker(s.Cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("SLA escalation scheduler stopped.")
			return
		case <-ticker.C:
			escalations, err := s.EscalateOverdue(ctx)
			if err != nil {
				log.Printf("ERROR: Escalation scan failed: %v", err)
				continue
			}
			if len(escalations) > 0 {
				log.Printf("WARNING: Escalated %d overdue appeal(s)", len(escalations))
			}
			for _, esc := range escalations {
				if s.Sink == nil {
					continue
				}
				if err := s.Sink.NotifyEscalation(ctx, esc); err != nil {
					// The escalation itself is committed. A notification
					// failure is logged and not retried here.
					log.Printf("ERROR: Escalation notification for case %d failed: %v", esc.CaseID, err)
				}
			}
		}
	}
}
