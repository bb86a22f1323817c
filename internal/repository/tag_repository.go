package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"duty-planner/internal/model"
)

// TagRepository maintains the per-bucket counter rows. Counter changes are
// single-statement relative updates so concurrent writers never lose one.
type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

// GetOrCreate returns the tag of bucket, inserting it when missing. On
// PostgreSQL the row is locked for the rest of the transaction.
func (r *TagRepository) GetOrCreate(ctx context.Context, b model.Bucket, status model.DateStatus, activeDay *int) (*model.Tag, error) {
	defer observeDB("tags.get_or_create")()
	db := r.db.WithContext(ctx)
	fresh := model.Tag{Day: b.Day, Side: b.Side, Section: b.Section, DateStatus: status, ActiveDay: activeDay}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}, {Name: "side"}, {Name: "section"}},
		DoNothing: true,
	}).Create(&fresh).Error
	if err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}

	q := db
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var tag model.Tag
	if err := q.Where("day = ? AND side = ? AND section = ?", b.Day, b.Side, b.Section).First(&tag).Error; err != nil {
		return nil, fmt.Errorf("find tag: %w", translate(err))
	}
	return &tag, nil
}

// Find returns the tag of bucket with its info rows.
func (r *TagRepository) Find(ctx context.Context, b model.Bucket) (*model.Tag, error) {
	var tag model.Tag
	err := r.db.WithContext(ctx).Preload("Infos").
		Where("day = ? AND side = ? AND section = ?", b.Day, b.Side, b.Section).
		First(&tag).Error
	if err != nil {
		return nil, fmt.Errorf("find tag: %w", translate(err))
	}
	return &tag, nil
}

// AddTasks moves the task counter by delta. Negative deltas never take the
// counter below zero; clamped reports that the full decrement could not apply.
func (r *TagRepository) AddTasks(ctx context.Context, tagID uint, delta int) (clamped bool, err error) {
	defer observeDB("tags.add_tasks")()
	if delta == 0 {
		return false, nil
	}
	db := r.db.WithContext(ctx).Model(&model.Tag{})
	if delta > 0 {
		err := db.Where("id = ?", tagID).
			UpdateColumn("task_count", gorm.Expr("task_count + ?", delta)).Error
		if err != nil {
			return false, fmt.Errorf("increment tag %d: %w", tagID, err)
		}
		return false, nil
	}
	res := db.Where("id = ? AND task_count >= ?", tagID, -delta).
		UpdateColumn("task_count", gorm.Expr("task_count - ?", -delta))
	if res.Error != nil {
		return false, fmt.Errorf("decrement tag %d: %w", tagID, res.Error)
	}
	if res.RowsAffected > 0 {
		return false, nil
	}
	if err := r.db.WithContext(ctx).Model(&model.Tag{}).Where("id = ?", tagID).
		UpdateColumn("task_count", 0).Error; err != nil {
		return true, fmt.Errorf("clamp tag %d: %w", tagID, err)
	}
	return true, nil
}

// IncrementUnread adds one unread info for userID in the tag.
func (r *TagRepository) IncrementUnread(ctx context.Context, tagID, userID uint) error {
	defer observeDB("tags.increment_unread")()
	row := model.TagInfo{TagID: tagID, UserID: userID, UnreadInfoCount: 1}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tag_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"unread_info_count": gorm.Expr("tag_infos.unread_info_count + 1"),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("increment unread tag %d user %d: %w", tagID, userID, err)
	}
	return nil
}

// DecrementUnread removes one unread info for userID and deletes the row when
// it reaches zero. clamped reports that there was nothing to remove.
func (r *TagRepository) DecrementUnread(ctx context.Context, tagID, userID uint) (clamped bool, err error) {
	defer observeDB("tags.decrement_unread")()
	db := r.db.WithContext(ctx)
	res := db.Model(&model.TagInfo{}).
		Where("tag_id = ? AND user_id = ? AND unread_info_count > 0", tagID, userID).
		UpdateColumn("unread_info_count", gorm.Expr("unread_info_count - 1"))
	if res.Error != nil {
		return false, fmt.Errorf("decrement unread tag %d user %d: %w", tagID, userID, res.Error)
	}
	if err := db.Where("tag_id = ? AND user_id = ? AND unread_info_count <= 0", tagID, userID).
		Delete(&model.TagInfo{}).Error; err != nil {
		return false, fmt.Errorf("drop empty tag info: %w", err)
	}
	return res.RowsAffected == 0, nil
}

// SetTaskCount overwrites the task counter. Only the repair job uses it.
func (r *TagRepository) SetTaskCount(ctx context.Context, tagID uint, n int) error {
	err := r.db.WithContext(ctx).Model(&model.Tag{}).Where("id = ?", tagID).
		UpdateColumn("task_count", n).Error
	if err != nil {
		return fmt.Errorf("set task count %d: %w", tagID, err)
	}
	return nil
}

// SetUnread overwrites one user's unread counter, deleting the row at zero.
// Only the repair job uses it.
func (r *TagRepository) SetUnread(ctx context.Context, tagID, userID uint, n int) error {
	db := r.db.WithContext(ctx)
	if n <= 0 {
		if err := db.Where("tag_id = ? AND user_id = ?", tagID, userID).Delete(&model.TagInfo{}).Error; err != nil {
			return fmt.Errorf("clear unread: %w", err)
		}
		return nil
	}
	row := model.TagInfo{TagID: tagID, UserID: userID, UnreadInfoCount: n}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tag_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"unread_info_count"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("set unread: %w", err)
	}
	return nil
}

// SetClassification stores the mirrored date status of a tag.
func (r *TagRepository) SetClassification(ctx context.Context, tagID uint, status model.DateStatus, activeDay *int) error {
	err := r.db.WithContext(ctx).Model(&model.Tag{}).Where("id = ?", tagID).
		UpdateColumns(map[string]any{"date_status": status, "active_day": activeDay}).Error
	if err != nil {
		return fmt.Errorf("classify tag %d: %w", tagID, err)
	}
	return nil
}

// ListDay returns the tags of day with their info rows, ordered by side and section.
func (r *TagRepository) ListDay(ctx context.Context, day time.Time) ([]*model.Tag, error) {
	return r.list(ctx, "day = ?", day)
}

// ListFrom returns every tag whose day is on or after day.
func (r *TagRepository) ListFrom(ctx context.Context, day time.Time) ([]*model.Tag, error) {
	return r.list(ctx, "day >= ?", day)
}

func (r *TagRepository) list(ctx context.Context, query string, args ...any) ([]*model.Tag, error) {
	defer observeDB("tags.list")()
	var tags []*model.Tag
	err := r.db.WithContext(ctx).Preload("Infos", func(db *gorm.DB) *gorm.DB {
		return db.Order("user_id")
	}).Where(query, args...).Order("day, side, section").Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// DeleteExpired removes tags older than horizon whose bucket has no events left.
func (r *TagRepository) DeleteExpired(ctx context.Context, horizon time.Time) (int64, error) {
	defer observeDB("tags.delete_expired")()
	var n int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orphan := tx.Model(&model.Event{}).Select("1").
			Where("events.due_date = tags.day AND events.side = tags.side AND events.section = tags.section")
		expired := tx.Model(&model.Tag{}).Select("id").
			Where("day < ? AND NOT EXISTS (?)", horizon, orphan)
		if err := tx.Where("tag_id IN (?)", expired).Delete(&model.TagInfo{}).Error; err != nil {
			return err
		}
		res := tx.Where("day < ? AND NOT EXISTS (?)", horizon, orphan).Delete(&model.Tag{})
		n = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("prune tags: %w", err)
	}
	return n, nil
}
