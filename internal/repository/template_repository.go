package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"duty-planner/internal/model"
)

// TemplateRepository handles CRUD for recurrence templates.
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(ctx context.Context, tpl *model.RecurrenceTemplate) error {
	if err := r.db.WithContext(ctx).Create(tpl).Error; err != nil {
		return fmt.Errorf("create template: %w", translate(err))
	}
	return nil
}

func (r *TemplateRepository) FindByID(ctx context.Context, id uint) (*model.RecurrenceTemplate, error) {
	var tpl model.RecurrenceTemplate
	if err := r.db.WithContext(ctx).First(&tpl, id).Error; err != nil {
		return nil, fmt.Errorf("find template %d: %w", id, translate(err))
	}
	return &tpl, nil
}

func (r *TemplateRepository) Save(ctx context.Context, tpl *model.RecurrenceTemplate) error {
	if err := r.db.WithContext(ctx).Save(tpl).Error; err != nil {
		return fmt.Errorf("save template %d: %w", tpl.ID, err)
	}
	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.RecurrenceTemplate{}, id).Error; err != nil {
		return fmt.Errorf("delete template %d: %w", id, err)
	}
	return nil
}

// ListOverlapping returns templates whose period intersects [from, to].
func (r *TemplateRepository) ListOverlapping(ctx context.Context, from, to time.Time) ([]*model.RecurrenceTemplate, error) {
	defer observeDB("templates.list_overlapping")()
	var templates []*model.RecurrenceTemplate
	err := r.db.WithContext(ctx).
		Where("period_start <= ? AND (period_end IS NULL OR period_end >= ?)", to, from).
		Order("id").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}
