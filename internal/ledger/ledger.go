// Package ledger maintains the append-only points ledger. Balances are
// never stored, only derived: a user's balance is the sum of their entries,
// and the globally unique dedupe key makes every apply idempotent.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"modqueue/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrZeroAmount       = errors.New("ledger: amount must be non-zero")
	ErrUnknownEventType = errors.New("ledger: unknown points event type")
	ErrEmptyDedupeKey   = errors.New("ledger: dedupe key required")
)

// ApplyInput describes one credit or debit.
type ApplyInput struct {
	UserID    int64
	Amount    int
	EventType models.PointsEventType
	DedupeKey string
	Reason    string
	Payload   []byte
}

// ApplyResult reports whether this call inserted the entry. Changed=false
// with a non-nil Entry means the dedupe key was already applied earlier.
type ApplyResult struct {
	Changed bool
	Entry   *models.LedgerEntry
}

// dedupeKeyConflict targets the unique index on dedupe_key; a duplicate
// apply becomes a zero-row insert instead of an error.
func dedupeKeyConflict() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedupe_key"}},
		DoNothing: true,
	}
}

func (in ApplyInput) validate() error {
	if in.Amount == 0 {
		return ErrZeroAmount
	}
	if !models.KnownPointsEvents[in.EventType] {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, in.EventType)
	}
	if in.DedupeKey == "" {
		return ErrEmptyDedupeKey
	}
	return nil
}

// ApplyTx inserts a ledger entry inside the caller's transaction. A
// duplicate dedupe key is not an error: the insert is skipped and the prior
// entry returned.
func ApplyTx(tx *gorm.DB, in ApplyInput) (ApplyResult, error) {
	if err := in.validate(); err != nil {
		return ApplyResult{}, err
	}

	entry := models.LedgerEntry{
		UserID:    in.UserID,
		Amount:    in.Amount,
		EventType: in.EventType,
		DedupeKey: in.DedupeKey,
		Reason:    in.Reason,
		Payload:   in.Payload,
	}
	res := tx.Clauses(dedupeKeyConflict()).Create(&entry)
	if res.Error != nil {
		return ApplyResult{}, fmt.Errorf("ledger insert failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var existing models.LedgerEntry
		if err := tx.Where("dedupe_key = ?", in.DedupeKey).First(&existing).Error; err != nil {
			return ApplyResult{}, fmt.Errorf("ledger dedupe lookup failed: %w", err)
		}
		return ApplyResult{Changed: false, Entry: &existing}, nil
	}
	return ApplyResult{Changed: true, Entry: &entry}, nil
}

// BalanceTx sums a user's entries inside the caller's transaction.
func BalanceTx(tx *gorm.DB, userID int64) (int, error) {
	var total int64
	err := tx.Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("ledger balance failed: %w", err)
	}
	return int(total), nil
}

// Service exposes the ledger over the shared gorm handle.
type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Apply credits or debits a user. Safe to retry with the same dedupe key.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (ApplyResult, error) {
	return ApplyTx(s.DB.WithContext(ctx), in)
}

// Debit is Apply with a negated amount; amount must be positive.
func (s *Service) Debit(ctx context.Context, in ApplyInput) (ApplyResult, error) {
	if in.Amount <= 0 {
		return ApplyResult{}, fmt.Errorf("%w: debit amount must be positive", ErrZeroAmount)
	}
	in.Amount = -in.Amount
	return ApplyTx(s.DB.WithContext(ctx), in)
}

// Balance returns the sum of all entries for the user.
func (s *Service) Balance(ctx context.Context, userID int64) (int, error) {
	return BalanceTx(s.DB.WithContext(ctx), userID)
}

// Summary is the aggregate view behind the points profile screen.
type Summary struct {
	Balance         int `json:"balance"`
	TotalEarned     int `json:"total_earned"`
	TotalSpent      int `json:"total_spent"`
	OperationsCount int `json:"operations_count"`
}

// GetSummary computes balance, earned, spent and entry count in one query.
func (s *Service) GetSummary(ctx context.Context, userID int64) (Summary, error) {
	var row struct {
		Balance     int64
		TotalEarned int64
		TotalSpent  int64
		Operations  int64
	}
	err := s.DB.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID).
		Select(
			"COALESCE(SUM(amount), 0) AS balance, " +
				"COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS total_earned, " +
				"COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0) AS total_spent, " +
				"COUNT(id) AS operations").
		Scan(&row).Error
	if err != nil {
		return Summary{}, fmt.Errorf("ledger summary failed: %w", err)
	}
	return Summary{
		Balance:         int(row.Balance),
		TotalEarned:     int(row.TotalEarned),
		TotalSpent:      int(row.TotalSpent),
		OperationsCount: int(row.Operations),
	}, nil
}

// ListEntries returns a user's most recent entries.
func (s *Service) ListEntries(ctx context.Context, userID int64, limit int) ([]models.LedgerEntry, error) {
	if limit < 1 {
		limit = 5
	}
	if limit > 20 {
		limit = 20
	}
	var entries []models.LedgerEntry
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
