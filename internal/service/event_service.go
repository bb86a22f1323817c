package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"duty-planner/internal/clock"
	"duty-planner/internal/model"
	"duty-planner/internal/repository"
)

var (
	ErrNotTask      = errors.New("event is not a task")
	ErrNotInfo      = errors.New("event is not an info")
	ErrNotRecipient = errors.New("user is not a recipient of this info")
)

// EventInput represents data required to create a one-off event.
type EventInput struct {
	DueDate     time.Time
	Title       string
	Description string
	Section     string
	Side        string
	Kind        model.Kind
	Users       []uint
}

func (in EventInput) validate() error {
	verr := &model.ValidationError{}
	if strings.TrimSpace(in.Title) == "" {
		verr.Add("title", "is required")
	}
	if strings.TrimSpace(in.Section) == "" {
		verr.Add("section", "is required")
	}
	if !in.Kind.Valid() {
		verr.Add("kind", "must be %q or %q", model.KindTask, model.KindInfo)
	}
	if in.DueDate.IsZero() {
		verr.Add("dueDate", "is required")
	}
	return verr.Err()
}

// EventService wraps event-level business logic.
type EventService struct {
	store    *repository.Store
	clock    clock.Clock
	window   model.Window
	resolver UserResolver
	agg      *AggregationService
}

func NewEventService(store *repository.Store, clk clock.Clock, window model.Window, resolver UserResolver, agg *AggregationService) *EventService {
	return &EventService{store: store, clock: clk, window: window, resolver: resolver, agg: agg}
}

// CreateEvent stores a non-recurring event and counts it in its bucket.
func (s *EventService) CreateEvent(ctx context.Context, in EventInput) (*model.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	section, side := model.NormalizeKey(in.Section), model.NormalizeKey(in.Side)
	users, err := resolveUsers(ctx, s.resolver, in.Users, section, side)
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}

	due := clock.Day(in.DueDate)
	status, activeDay := s.window.Classify(due, s.clock.Today())
	ev := &model.Event{
		DueDate:     due,
		DateStatus:  status,
		ActiveDay:   activeDay,
		Side:        side,
		Section:     section,
		Title:       in.Title,
		Description: in.Description,
	}
	ev.SetPayload(newPayload(in.Kind, users))

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Events.Create(ctx, ev); err != nil {
			return err
		}
		return s.agg.UpdateCounters(ctx, tx, ev, Created())
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *EventService) GetEvent(ctx context.Context, id uint) (*model.Event, error) {
	return s.store.Events.FindByID(ctx, id)
}

// ListForUser returns what userID has to deal with inside the active window.
func (s *EventService) ListForUser(ctx context.Context, userID uint) ([]*model.Event, error) {
	from, to := s.window.Range(s.clock.Today())
	return s.store.Events.ListForUser(ctx, userID, from, to)
}

// SetTaskStatus moves a task to status and adjusts its bucket counter.
func (s *EventService) SetTaskStatus(ctx context.Context, id uint, status model.TaskStatus) (*model.Event, error) {
	if !status.Valid() {
		verr := &model.ValidationError{}
		verr.Add("status", "unknown status %q", status)
		return nil, verr
	}
	var ev *model.Event
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		ev, err = tx.Events.FindByID(ctx, id)
		if err != nil {
			return err
		}
		p, ok := ev.Task()
		if !ok {
			return fmt.Errorf("event %d: %w", id, ErrNotTask)
		}
		if p.Status == status {
			return nil
		}
		from := p.Status
		p.Status, p.IsPending = status, status == model.TaskPending
		if err := tx.Events.SaveTask(ctx, p); err != nil {
			return err
		}
		return s.agg.UpdateCounters(ctx, tx, ev, StatusChanged(from, status))
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// MarkInfoRead records that userID read the info. Reading twice is a no-op.
func (s *EventService) MarkInfoRead(ctx context.Context, id, userID uint) (*model.Event, error) {
	var ev *model.Event
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		ev, err = tx.Events.FindByID(ctx, id)
		if err != nil {
			return err
		}
		p, ok := ev.Info()
		if !ok {
			return fmt.Errorf("event %d: %w", id, ErrNotInfo)
		}
		if !p.MarkRead(userID) {
			for _, r := range p.Receipts {
				if r.UserID == userID {
					return nil
				}
			}
			return fmt.Errorf("event %d user %d: %w", id, userID, ErrNotRecipient)
		}
		if err := tx.Events.SaveRead(ctx, p, userID); err != nil {
			return err
		}
		return s.agg.UpdateCounters(ctx, tx, ev, Read(userID))
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// DeleteEvent removes an event and reverses its counters.
func (s *EventService) DeleteEvent(ctx context.Context, id uint) error {
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		ev, err := tx.Events.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.agg.UpdateCounters(ctx, tx, ev, Removed()); err != nil {
			return err
		}
		return tx.Events.Delete(ctx, id)
	})
}
