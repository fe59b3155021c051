package casestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"modqueue/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrChecklistItemNotFound = errors.New("casestore: checklist item not found")
	ErrEmptyReply            = errors.New("casestore: reply text required")
)

// ChecklistTemplateItem is one step of a kind's fixed checklist template.
type ChecklistTemplateItem struct {
	Code  string
	Label string
}

// ChecklistTemplates holds the per-kind templates ensured on first access.
// Kinds without a template simply have no checklist.
var ChecklistTemplates = map[models.CaseKind][]ChecklistTemplateItem{
	models.KindComplaint: {
		{Code: "validate_report", Label: "Validate the complaint details"},
		{Code: "review_target", Label: "Review the reported subject"},
		{Code: "record_decision", Label: "Record the decision"},
	},
	models.KindAppeal: {
		{Code: "verify_source", Label: "Verify the appeal source"},
		{Code: "review_context", Label: "Review the case context"},
		{Code: "record_decision", Label: "Record the decision"},
	},
	models.KindGuarantor: {
		{Code: "validate_request", Label: "Validate the user request"},
		{Code: "review_risk", Label: "Review the deal risks"},
		{Code: "record_decision", Label: "Record the decision"},
	},
}

// EnsureChecklist creates any missing template items for the case and
// returns the full checklist. Idempotent: the unique triple makes
// concurrent ensures converge.
func (s *Service) EnsureChecklist(ctx context.Context, kind models.CaseKind, caseID uint) ([]models.ChecklistItem, error) {
	template := ChecklistTemplates[kind]
	db := s.DB.WithContext(ctx)

	for _, t := range template {
		item := models.ChecklistItem{
			EntityKind: kind,
			EntityID:   caseID,
			ItemCode:   t.Code,
			Label:      t.Label,
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_kind"}, {Name: "entity_id"}, {Name: "item_code"}},
			DoNothing: true,
		}).Create(&item).Error
		if err != nil {
			return nil, fmt.Errorf("checklist ensure failed: %w", err)
		}
	}

	var items []models.ChecklistItem
	err := db.Where("entity_kind = ? AND entity_id = ?", kind, caseID).
		Order("id asc").
		Find(&items).Error
	return items, err
}

// AddItem adds a custom checklist item beyond the template. Re-adding an
// existing code is a no-op returning the existing item.
func (s *Service) AddItem(ctx context.Context, kind models.CaseKind, caseID uint, code, label string) (*models.ChecklistItem, error) {
	item := models.ChecklistItem{
		EntityKind: kind,
		EntityID:   caseID,
		ItemCode:   code,
		Label:      label,
	}
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_kind"}, {Name: "entity_id"}, {Name: "item_code"}},
		DoNothing: true,
	}).Create(&item)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var existing models.ChecklistItem
		err := s.DB.WithContext(ctx).
			Where("entity_kind = ? AND entity_id = ? AND item_code = ?", kind, caseID, code).
			First(&existing).Error
		if err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return &item, nil
}

// MarkDone records completion of an item: completer and timestamp.
func (s *Service) MarkDone(ctx context.Context, kind models.CaseKind, caseID uint, code string, actorUserID int64) (*models.ChecklistItem, error) {
	now := time.Now().UTC()
	res := s.DB.WithContext(ctx).Model(&models.ChecklistItem{}).
		Where("entity_kind = ? AND entity_id = ? AND item_code = ?", kind, caseID, code).
		Updates(map[string]interface{}{
			"is_done":         true,
			"done_by_user_id": actorUserID,
			"done_at":         now,
			"updated_at":      now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrChecklistItemNotFound
	}

	var item models.ChecklistItem
	err := s.DB.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ? AND item_code = ?", kind, caseID, code).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// AddReply appends an immutable discussion entry to a checklist item.
func (s *Service) AddReply(ctx context.Context, kind models.CaseKind, caseID uint, code string, actorUserID int64, text string) (*models.ChecklistReply, error) {
	if text == "" {
		return nil, ErrEmptyReply
	}

	var item models.ChecklistItem
	err := s.DB.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ? AND item_code = ?", kind, caseID, code).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChecklistItemNotFound
	}
	if err != nil {
		return nil, err
	}

	reply := models.ChecklistReply{
		ChecklistItemID: item.ID,
		ActorUserID:     actorUserID,
		ReplyText:       text,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(&reply).Error; err != nil {
		return nil, err
	}
	return &reply, nil
}

// ListReplies returns a case's replies grouped by item code, oldest first
// within each item.
func (s *Service) ListReplies(ctx context.Context, kind models.CaseKind, caseID uint) (map[string][]models.ChecklistReply, error) {
	var items []models.ChecklistItem
	err := s.DB.WithContext(ctx).
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc, id asc")
		}).
		Where("entity_kind = ? AND entity_id = ?", kind, caseID).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]models.ChecklistReply, len(items))
	for _, item := range items {
		if len(item.Replies) > 0 {
			grouped[item.ItemCode] = item.Replies
		}
	}
	return grouped, nil
}
