package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"duty-planner/internal/model"
)

// EventRepository persists concrete events together with their payload rows.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts the event and its payload atomically. A second event for the
// same (template, due date) or the same predecessor yields ErrDuplicate.
func (r *EventRepository) Create(ctx context.Context, ev *model.Event) error {
	defer observeDB("events.create")()
	if err := ev.CheckPayload(); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ev).Error; err != nil {
			return err
		}
		ev.AttachPayload()
		return tx.Create(ev.Payload).Error
	})
	if err != nil {
		return fmt.Errorf("create event: %w", translate(err))
	}
	return nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uint) (*model.Event, error) {
	var ev model.Event
	if err := r.db.WithContext(ctx).First(&ev, id).Error; err != nil {
		return nil, fmt.Errorf("find event %d: %w", id, translate(err))
	}
	if err := r.loadPayloads(ctx, []*model.Event{&ev}); err != nil {
		return nil, err
	}
	return &ev, nil
}

// FindByTemplateDue returns the single event of a template on a given day.
func (r *EventRepository) FindByTemplateDue(ctx context.Context, templateID uint, due time.Time) (*model.Event, error) {
	return r.first(ctx, "template_id = ? AND due_date = ?", templateID, due)
}

// FindContinuation returns the event created to carry prevID forward.
func (r *EventRepository) FindContinuation(ctx context.Context, prevID uint) (*model.Event, error) {
	return r.first(ctx, "continued_from_id = ?", prevID)
}

func (r *EventRepository) first(ctx context.Context, query string, args ...any) (*model.Event, error) {
	var ev model.Event
	if err := r.db.WithContext(ctx).Where(query, args...).First(&ev).Error; err != nil {
		return nil, fmt.Errorf("find event: %w", translate(err))
	}
	if err := r.loadPayloads(ctx, []*model.Event{&ev}); err != nil {
		return nil, err
	}
	return &ev, nil
}

// TemplateDueDates lists the days in [from, to] that already have an event of
// the template.
func (r *EventRepository) TemplateDueDates(ctx context.Context, templateID uint, from, to time.Time) ([]time.Time, error) {
	defer observeDB("events.template_due_dates")()
	var days []time.Time
	err := r.db.WithContext(ctx).Model(&model.Event{}).
		Where("template_id = ? AND due_date BETWEEN ? AND ?", templateID, from, to).
		Order("due_date").
		Pluck("due_date", &days).Error
	if err != nil {
		return nil, fmt.Errorf("list template due dates: %w", err)
	}
	return days, nil
}

// ListDueOn returns every event due on day.
func (r *EventRepository) ListDueOn(ctx context.Context, day time.Time) ([]*model.Event, error) {
	return r.list(ctx, "due_date = ?", day)
}

// ListDueFrom returns every event due on or after day.
func (r *EventRepository) ListDueFrom(ctx context.Context, day time.Time) ([]*model.Event, error) {
	return r.list(ctx, "due_date >= ?", day)
}

// ListTemplateChildrenAfter returns the template's events due strictly after day.
func (r *EventRepository) ListTemplateChildrenAfter(ctx context.Context, templateID uint, day time.Time) ([]*model.Event, error) {
	return r.list(ctx, "template_id = ? AND due_date > ?", templateID, day)
}

// ListForUser returns events in [from, to] assigned to or shared with userID.
func (r *EventRepository) ListForUser(ctx context.Context, userID uint, from, to time.Time) ([]*model.Event, error) {
	assigned := r.db.Model(&model.TaskAssignee{}).Select("event_id").Where("user_id = ?", userID)
	shared := r.db.Model(&model.ReadReceipt{}).Select("event_id").Where("user_id = ?", userID)
	return r.list(ctx, "due_date BETWEEN ? AND ? AND (id IN (?) OR id IN (?))", from, to, assigned, shared)
}

func (r *EventRepository) list(ctx context.Context, query string, args ...any) ([]*model.Event, error) {
	defer observeDB("events.list")()
	var events []*model.Event
	err := r.db.WithContext(ctx).Where(query, args...).
		Order("due_date, id").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if err := r.loadPayloads(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

func byUser(db *gorm.DB) *gorm.DB { return db.Order("user_id") }

// loadPayloads fills in the Payload of each event from the payload tables.
func (r *EventRepository) loadPayloads(ctx context.Context, events []*model.Event) error {
	if len(events) == 0 {
		return nil
	}
	var taskIDs, infoIDs []uint
	for _, ev := range events {
		switch ev.Kind {
		case model.KindTask:
			taskIDs = append(taskIDs, ev.ID)
		case model.KindInfo:
			infoIDs = append(infoIDs, ev.ID)
		}
	}

	db := r.db.WithContext(ctx)
	tasks := make(map[uint]*model.TaskPayload, len(taskIDs))
	if len(taskIDs) > 0 {
		var rows []*model.TaskPayload
		if err := db.Preload("Assignees", byUser).Where("event_id IN ?", taskIDs).Find(&rows).Error; err != nil {
			return fmt.Errorf("load task payloads: %w", err)
		}
		for _, p := range rows {
			tasks[p.EventID] = p
		}
	}
	infos := make(map[uint]*model.InfoPayload, len(infoIDs))
	if len(infoIDs) > 0 {
		var rows []*model.InfoPayload
		if err := db.Preload("Receipts", byUser).Where("event_id IN ?", infoIDs).Find(&rows).Error; err != nil {
			return fmt.Errorf("load info payloads: %w", err)
		}
		for _, p := range rows {
			infos[p.EventID] = p
		}
	}

	for _, ev := range events {
		var (
			p  model.Payload
			ok bool
		)
		switch ev.Kind {
		case model.KindTask:
			p, ok = tasks[ev.ID]
		case model.KindInfo:
			p, ok = infos[ev.ID]
		}
		if !ok {
			return fmt.Errorf("event %d: %w", ev.ID, errors.New("payload row missing"))
		}
		ev.Payload = p
	}
	return nil
}

// SaveTask writes the task status and pending flag.
func (r *EventRepository) SaveTask(ctx context.Context, p *model.TaskPayload) error {
	defer observeDB("events.save_task")()
	err := r.db.WithContext(ctx).Model(&model.TaskPayload{}).
		Where("event_id = ?", p.EventID).
		Updates(map[string]any{"status": p.Status, "is_pending": p.IsPending}).Error
	if err != nil {
		return fmt.Errorf("save task %d: %w", p.EventID, err)
	}
	return nil
}

// SaveRead stores userID's read receipt and the fully-read flag.
func (r *EventRepository) SaveRead(ctx context.Context, p *model.InfoPayload, userID uint) error {
	defer observeDB("events.save_read")()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ReadReceipt{}).
			Where("event_id = ? AND user_id = ?", p.EventID, userID).
			Update("is_read", true).Error; err != nil {
			return fmt.Errorf("save receipt: %w", err)
		}
		if err := tx.Model(&model.InfoPayload{}).
			Where("event_id = ?", p.EventID).
			Update("is_fully_read", p.IsFullyRead).Error; err != nil {
			return fmt.Errorf("save info %d: %w", p.EventID, err)
		}
		return nil
	})
}

// SetClassification stores the date status and active day of an event.
func (r *EventRepository) SetClassification(ctx context.Context, id uint, status model.DateStatus, activeDay *int) error {
	err := r.db.WithContext(ctx).Model(&model.Event{}).Where("id = ?", id).
		Updates(map[string]any{"date_status": status, "active_day": activeDay}).Error
	if err != nil {
		return fmt.Errorf("classify event %d: %w", id, err)
	}
	return nil
}

// SetFirstDueDate moves the first due date of an event.
func (r *EventRepository) SetFirstDueDate(ctx context.Context, id uint, day time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.Event{}).Where("id = ?", id).
		Update("first_due_date", day).Error
	if err != nil {
		return fmt.Errorf("set first due date %d: %w", id, err)
	}
	return nil
}

// Delete removes an event and its payload rows.
func (r *EventRepository) Delete(ctx context.Context, id uint) error {
	defer observeDB("events.delete")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := deleteEvents(tx, tx.Model(&model.Event{}).Select("id").Where("id = ?", id))
		return err
	})
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	return nil
}

// DeleteDueBefore removes every event due before day and returns how many went.
func (r *EventRepository) DeleteDueBefore(ctx context.Context, day time.Time) (int64, error) {
	defer observeDB("events.delete_due_before")()
	var n int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = deleteEvents(tx, tx.Model(&model.Event{}).Select("id").Where("due_date < ?", day))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return n, nil
}

// deleteEvents removes payload rows, then the events selected by ids.
func deleteEvents(tx *gorm.DB, ids *gorm.DB) (int64, error) {
	steps := []struct {
		model  any
		column string
	}{
		{&model.TaskAssignee{}, "event_id"},
		{&model.TaskPayload{}, "event_id"},
		{&model.ReadReceipt{}, "event_id"},
		{&model.InfoPayload{}, "event_id"},
	}
	for _, s := range steps {
		if err := tx.Where(s.column+" IN (?)", ids).Delete(s.model).Error; err != nil {
			return 0, err
		}
	}
	// Break continuation links pointing at rows about to disappear.
	if err := tx.Model(&model.Event{}).Where("continued_from_id IN (?)", ids).
		Update("continued_from_id", nil).Error; err != nil {
		return 0, err
	}
	res := tx.Where("id IN (?)", ids).Delete(&model.Event{})
	return res.RowsAffected, res.Error
}

// DetachTemplate clears the template link of its remaining events.
func (r *EventRepository) DetachTemplate(ctx context.Context, templateID uint) error {
	err := r.db.WithContext(ctx).Model(&model.Event{}).Where("template_id = ?", templateID).
		Update("template_id", nil).Error
	if err != nil {
		return fmt.Errorf("detach template %d: %w", templateID, err)
	}
	return nil
}
