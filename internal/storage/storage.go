package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"modqueue/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Storage is the read-side surface the API handlers and notifier depend on.
// The mutating workflow operations live in the casestore/ledger/outbox
// services, which own their transactions.
type Storage interface {
	GetCaseByID(ctx context.Context, id uint) (*models.Case, error)
	ListCases(ctx context.Context, kind models.CaseKind, status models.CaseStatus, limit, offset int) ([]models.Case, error)
	ListOverdueAppeals(ctx context.Context, now time.Time, limit int) ([]models.Case, error)
	ListOutboxEntries(ctx context.Context, status models.OutboxStatus, limit int) ([]models.OutboxEntry, error)
	ListModerationLogs(ctx context.Context, caseID uint, limit int) ([]models.ModerationLog, error)

	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// Service bundles the PostgreSQL and Redis handles the way the rest of the
// application consumes them.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, Redis: rdb}
}

// AutoMigrate creates or updates every table the substrate owns.
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.Case{},
		&models.ChecklistItem{},
		&models.ChecklistReply{},
		&models.LedgerEntry{},
		&models.OutboxEntry{},
		&models.ModerationLog{},
	)
}

// GetCaseByID returns a case by its internal ID, nil without error when missing.
func (s *Service) GetCaseByID(ctx context.Context, id uint) (*models.Case, error) {
	var c models.Case
	err := s.DB.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCases returns cases of one kind, newest first, optionally filtered by status.
func (s *Service) ListCases(ctx context.Context, kind models.CaseKind, status models.CaseStatus, limit, offset int) ([]models.Case, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	q := s.DB.WithContext(ctx).Where("kind = ?", kind)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var cases []models.Case
	err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&cases).Error
	if err != nil {
		log.Printf("ERROR: Failed to list %s cases: %v", kind, err)
		return nil, err
	}
	return cases, nil
}

// ListOverdueAppeals is a read-only view of appeals whose SLA has lapsed.
// The scheduler does its own atomic claim; this feeds dashboards.
func (s *Service) ListOverdueAppeals(ctx context.Context, now time.Time, limit int) ([]models.Case, error) {
	if limit <= 0 {
		limit = 20
	}
	var cases []models.Case
	err := s.DB.WithContext(ctx).
		Where("kind = ?", models.KindAppeal).
		Where("status IN ?", []models.CaseStatus{models.StatusOpen, models.StatusInReview}).
		Where("sla_deadline_at IS NOT NULL AND sla_deadline_at <= ?", now).
		Order("sla_deadline_at asc").
		Limit(limit).
		Find(&cases).Error
	return cases, err
}

func (s *Service) ListOutboxEntries(ctx context.Context, status models.OutboxStatus, limit int) ([]models.OutboxEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.OutboxEntry
	q := s.DB.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at desc").Limit(limit).Find(&entries).Error
	return entries, err
}

func (s *Service) ListModerationLogs(ctx context.Context, caseID uint, limit int) ([]models.ModerationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.ModerationLog
	err := s.DB.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at desc").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// SetIfAbsent performs an atomic SET NX EX against Redis.
func (s *Service) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.Redis.SetNX(ctx, key, value, ttl).Result()
}
