// Package casestore holds the canonical state of every moderation case and
// enforces valid transitions. All mutations are single atomic transactions:
// a transition, its resolution fields, its ledger effects and its outbox
// entry commit or roll back together.
package casestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"modqueue/backend/internal/ledger"
	"modqueue/backend/internal/models"
	"modqueue/backend/internal/outbox"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUnknownKind         = errors.New("casestore: unknown case kind")
	ErrCaseNotFound        = errors.New("casestore: case not found")
	ErrInvalidTransition   = errors.New("casestore: target status not reachable from current status")
	ErrTransitionConflict  = errors.New("casestore: case changed concurrently, retry")
	ErrNotBoostable        = errors.New("casestore: case kind or status does not allow priority boost")
	ErrNotCaseOwner        = errors.New("casestore: only the submitter can boost a case")
	ErrInvalidBoostAmount  = errors.New("casestore: boost points must be positive")
	ErrInsufficientBalance = errors.New("casestore: insufficient points balance")
	ErrQueueLocationSet    = errors.New("casestore: queue location already attached")
)

// caseRefConflict targets the partial unique index over (kind, ref). The
// predicate must match the index definition or Postgres cannot infer the
// arbiter for the insert-or-ignore.
func caseRefConflict() clause.OnConflict {
	return clause.OnConflict{
		Columns:     []clause.Column{{Name: "kind"}, {Name: "ref"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "ref <> ''"}}},
		DoNothing:   true,
	}
}

// Service is the case store over the shared gorm handle.
type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// SubmitInput carries a user submission of any kind.
type SubmitInput struct {
	Kind            models.CaseKind
	SubmitterUserID int64
	TargetUserID    *int64
	SubjectRef      string
	Reason          string
	Payload         json.RawMessage

	// Ref deduplicates resubmissions; empty means no dedupe.
	Ref string

	// Fraud-signal variant.
	FraudScore   *int
	FraudReasons pq.StringArray

	// Feedback variant: points granted on approval.
	RewardPoints int
}

// Submit creates a case in its kind's initial status. Posting the queue
// card is the caller's job; it attaches the location afterwards.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.Case, error) {
	initial, ok := models.InitialStatus[in.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, in.Kind)
	}

	now := time.Now().UTC()
	c := models.Case{
		Kind:            in.Kind,
		Status:          initial,
		Ref:             in.Ref,
		SubmitterUserID: in.SubmitterUserID,
		TargetUserID:    in.TargetUserID,
		SubjectRef:      in.SubjectRef,
		Reason:          in.Reason,
		Payload:         in.Payload,
		FraudScore:      in.FraudScore,
		FraudReasons:    in.FraudReasons,
		RewardPoints:    in.RewardPoints,
	}
	ApplySLAFields(&c, initial, now)

	if in.Ref == "" {
		if err := s.DB.WithContext(ctx).Create(&c).Error; err != nil {
			return nil, fmt.Errorf("case insert failed: %w", err)
		}
		return &c, nil
	}

	// Same (kind, ref) already submitted: return the existing case.
	res := s.DB.WithContext(ctx).Clauses(caseRefConflict()).Create(&c)
	if res.Error != nil {
		return nil, fmt.Errorf("case insert failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var existing models.Case
		err := s.DB.WithContext(ctx).
			Where("kind = ? AND ref = ?", in.Kind, in.Ref).
			First(&existing).Error
		if err != nil {
			return nil, fmt.Errorf("case dedupe lookup failed: %w", err)
		}
		return &existing, nil
	}
	return &c, nil
}

// Transition moves a case to target if the reachability table allows it.
// Terminal targets set the resolution fields atomically with the status;
// the appeal kind additionally recomputes its SLA fields. Approving a
// feedback item grants the reward and enqueues the outbox side effect in
// the same transaction.
func (s *Service) Transition(ctx context.Context, caseID uint, target models.CaseStatus, actorUserID int64, note string) (*models.Case, error) {
	var updated models.Case

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Case
		if err := tx.First(&c, caseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCaseNotFound
			}
			return err
		}

		if !models.ValidStatus(c.Kind, target) || !CanTransition(c.Kind, c.Status, target) {
			return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, c.Kind, c.Status, target)
		}

		now := time.Now().UTC()
		current := c.Status
		c.Status = target
		if models.IsTerminal(c.Kind, target) || c.Kind == models.KindTradeFeedback {
			c.ResolvedByUserID = &actorUserID
			c.ResolvedAt = &now
			if note != "" {
				n := note
				c.ResolutionNote = &n
			}
		}
		ApplySLAFields(&c, target, now)

		// The conditional status predicate is the claim: a concurrent
		// transition that committed first makes this a zero-row update.
		res := tx.Model(&models.Case{}).
			Where("id = ? AND status = ?", c.ID, current).
			Updates(map[string]interface{}{
				"status":               c.Status,
				"resolved_by_user_id":  c.ResolvedByUserID,
				"resolution_note":      c.ResolutionNote,
				"resolved_at":          c.ResolvedAt,
				"in_review_started_at": c.InReviewStartedAt,
				"sla_deadline_at":      c.SLADeadlineAt,
				"escalated_at":         c.EscalatedAt,
				"updated_at":           now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTransitionConflict
		}

		if c.Kind == models.KindFeedback && target == models.StatusApproved && c.RewardPoints > 0 {
			reward := ledger.ApplyInput{
				UserID:    c.SubmitterUserID,
				Amount:    c.RewardPoints,
				EventType: models.EventFeedbackApproved,
				DedupeKey: FeedbackRewardDedupeKey(c.ID),
				Reason:    fmt.Sprintf("Reward for approved feedback #%d", c.ID),
			}
			if _, err := ledger.ApplyTx(tx, reward); err != nil {
				return err
			}

			payload, err := json.Marshal(map[string]uint{"case_id": c.ID})
			if err != nil {
				return err
			}
			if _, err := outbox.EnqueueTx(tx, outbox.EventFeedbackApproved, payload, FeedbackIssueDedupeKey(c.ID)); err != nil {
				return err
			}
		}

		if err := appendLog(tx, logEntry{
			actor:  actorUserID,
			target: c.TargetUserID,
			caseID: c.ID,
			action: models.ActionTransitionCase,
			reason: note,
			payload: map[string]interface{}{
				"kind": c.Kind,
				"from": current,
				"to":   target,
			},
			at: now,
		}); err != nil {
			return err
		}

		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// BoostPriority debits the submitter's ledger balance and bumps the case's
// boost fields as one atomic unit: either both happen or neither.
func (s *Service) BoostPriority(ctx context.Context, caseID uint, userID int64, points int) (*models.Case, error) {
	if points <= 0 {
		return nil, ErrInvalidBoostAmount
	}

	var boosted models.Case
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Case
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, caseID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCaseNotFound
		}
		if err != nil {
			return err
		}

		if !models.BoostableKinds[c.Kind] {
			return fmt.Errorf("%w: kind %s", ErrNotBoostable, c.Kind)
		}
		if c.Status != models.InitialStatus[c.Kind] {
			return fmt.Errorf("%w: status %s", ErrNotBoostable, c.Status)
		}
		if c.SubmitterUserID != userID {
			return ErrNotCaseOwner
		}

		balance, err := ledger.BalanceTx(tx, userID)
		if err != nil {
			return err
		}
		if balance < points {
			return fmt.Errorf("%w: need %d, have %d", ErrInsufficientBalance, points, balance)
		}

		now := time.Now().UTC()
		dedupeKey := BoostAttemptKey(c.Kind, c.ID, userID, c.PriorityBoostPointsSpent)
		payload, err := json.Marshal(map[string]interface{}{
			"case_id": c.ID,
			"kind":    c.Kind,
			"cost":    points,
		})
		if err != nil {
			return err
		}
		result, err := ledger.ApplyTx(tx, ledger.ApplyInput{
			UserID:    userID,
			Amount:    -points,
			EventType: boostEventType[c.Kind],
			DedupeKey: dedupeKey,
			Reason:    fmt.Sprintf("Priority boost for %s #%d", c.Kind, c.ID),
			Payload:   payload,
		})
		if err != nil {
			return err
		}
		if !result.Changed {
			// A retried boost already debited and updated the case.
			boosted = c
			return nil
		}

		res := tx.Model(&models.Case{}).
			Where("id = ? AND priority_boost_points_spent = ?", c.ID, c.PriorityBoostPointsSpent).
			Updates(map[string]interface{}{
				"priority_boost_points_spent": c.PriorityBoostPointsSpent + points,
				"priority_boosted_at":         now,
				"updated_at":                  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTransitionConflict
		}

		if err := appendLog(tx, logEntry{
			actor:  userID,
			caseID: c.ID,
			action: models.ActionPriorityBoost,
			reason: fmt.Sprintf("Spent %d points on priority boost", points),
			payload: map[string]interface{}{
				"kind":   c.Kind,
				"points": points,
			},
			at: now,
		}); err != nil {
			return err
		}

		c.PriorityBoostPointsSpent += points
		c.PriorityBoostedAt = &now
		boosted = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &boosted, nil
}

// AttachQueueLocation records where the moderator-facing card was posted.
// Set once; it is only cleared when the case is deleted.
func (s *Service) AttachQueueLocation(ctx context.Context, caseID uint, chatID, messageID int64) error {
	res := s.DB.WithContext(ctx).Model(&models.Case{}).
		Where("id = ? AND queue_chat_id IS NULL", caseID).
		Updates(map[string]interface{}{
			"queue_chat_id":    chatID,
			"queue_message_id": messageID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Case{}).Where("id = ?", caseID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrCaseNotFound
		}
		return ErrQueueLocationSet
	}
	return nil
}

// AdjustUserPoints applies a manual ledger adjustment with an audit record.
func (s *Service) AdjustUserPoints(ctx context.Context, actorUserID, userID int64, amount int, reason, dedupeKey string) (ledger.ApplyResult, error) {
	var result ledger.ApplyResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = ledger.ApplyTx(tx, ledger.ApplyInput{
			UserID:    userID,
			Amount:    amount,
			EventType: models.EventManualAdjustment,
			DedupeKey: dedupeKey,
			Reason:    reason,
		})
		if err != nil {
			return err
		}
		if !result.Changed {
			return nil
		}
		return appendLog(tx, logEntry{
			actor:  actorUserID,
			target: &userID,
			action: models.ActionAdjustUserPoints,
			reason: reason,
			payload: map[string]interface{}{
				"amount":     amount,
				"dedupe_key": dedupeKey,
			},
			at: time.Now().UTC(),
		})
	})
	return result, err
}

type logEntry struct {
	actor   int64
	target  *int64
	caseID  uint
	action  models.ModerationAction
	reason  string
	payload map[string]interface{}
	at      time.Time
}

func appendLog(tx *gorm.DB, e logEntry) error {
	var payload []byte
	if e.payload != nil {
		var err error
		payload, err = json.Marshal(e.payload)
		if err != nil {
			return err
		}
	}
	row := models.ModerationLog{
		ActorUserID:  e.actor,
		TargetUserID: e.target,
		Action:       e.action,
		Reason:       e.reason,
		Payload:      payload,
		CreatedAt:    e.at,
	}
	if e.caseID != 0 {
		id := e.caseID
		row.CaseID = &id
	}
	return tx.Create(&row).Error
}
