package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"duty-planner/internal/model"
)

// MemberRepository manages the section directory.
type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Upsert adds userID to section/side; adding an existing member is a no-op.
func (r *MemberRepository) Upsert(ctx context.Context, userID uint, section, side string) error {
	m := model.SectionMember{UserID: userID, Section: section, Side: side}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "section"}, {Name: "side"}},
		DoNothing: true,
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

// UsersFor returns the users covering section and side. Members registered
// without a side cover every side of their section.
func (r *MemberRepository) UsersFor(ctx context.Context, section, side string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.SectionMember{}).
		Where("section = ? AND (side = '' OR side = ?)", section, side).
		Distinct().Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return ids, nil
}

func (r *MemberRepository) ListAll(ctx context.Context) ([]model.SectionMember, error) {
	var members []model.SectionMember
	if err := r.db.WithContext(ctx).Order("section, side, user_id").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// Remove deletes a membership.
func (r *MemberRepository) Remove(ctx context.Context, userID uint, section, side string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ? AND section = ? AND side = ?", userID, section, side).
		Delete(&model.SectionMember{}).Error; err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}
