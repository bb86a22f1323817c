package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"duty-planner/internal/clock"
	appLog "duty-planner/internal/log"
	"duty-planner/internal/model"
	"duty-planner/internal/repository"
)

type carryOutcome int

const (
	carryResolved carryOutcome = iota // nothing left to carry
	carryCreated                      // continuation created
	carryMerged                       // today's recurring sibling took over
	carryExisting                     // continuation already there from an earlier run
)

// RolloverService ages obligations forward once per day.
type RolloverService struct {
	store  *repository.Store
	clock  clock.Clock
	window model.Window
	agg    *AggregationService
}

func NewRolloverService(store *repository.Store, clk clock.Clock, window model.Window, agg *AggregationService) *RolloverService {
	return &RolloverService{store: store, clock: clk, window: window, agg: agg}
}

// RunDailyRollover classifies, carries yesterday forward, and prunes. The day
// is read once so the whole run sees one "now". Each step is safe to repeat.
func (s *RolloverService) RunDailyRollover(ctx context.Context) *Report {
	now := s.clock.Today()
	report := newReport(RunRollover, now)

	s.classify(ctx, now, report)
	s.carryForward(ctx, now, report)
	s.prune(ctx, now, report)

	appLog.Info("rollover finished", "run_id", report.RunID, "now", now.Format(time.DateOnly),
		"rolled", report.Rolled, "merged", report.Merged, "classified", report.Classified,
		"pruned", report.Pruned, "failures", len(report.Failures))
	return report.finish()
}

// classify refreshes date status and active day of retained events and tags.
func (s *RolloverService) classify(ctx context.Context, now time.Time, report *Report) {
	horizon := s.window.Horizon(now)

	events, err := s.store.Events.ListDueFrom(ctx, horizon)
	if err != nil {
		report.Fail("classify", 0, time.Time{}, err)
		return
	}
	for _, ev := range events {
		status, activeDay := s.window.Classify(ev.DueDate, now)
		if status == ev.DateStatus && equalDay(activeDay, ev.ActiveDay) {
			continue
		}
		if err := s.store.Events.SetClassification(ctx, ev.ID, status, activeDay); err != nil {
			report.Fail("classify", ev.ID, ev.DueDate, err)
			continue
		}
		ev.DateStatus, ev.ActiveDay = status, activeDay
		report.Classified++
	}

	tags, err := s.store.Tags.ListFrom(ctx, horizon)
	if err != nil {
		report.Fail("classify", 0, time.Time{}, err)
		return
	}
	for _, tag := range tags {
		status, activeDay := s.window.Classify(tag.Day, now)
		if status == tag.DateStatus && equalDay(activeDay, tag.ActiveDay) {
			continue
		}
		if err := s.store.Tags.SetClassification(ctx, tag.ID, status, activeDay); err != nil {
			report.Fail("classify-tag", tag.ID, tag.Day, err)
		}
	}
}

func equalDay(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// carryForward continues every unresolved obligation that was due yesterday.
func (s *RolloverService) carryForward(ctx context.Context, now time.Time, report *Report) {
	yesterday := clock.AddDays(now, -1)
	events, err := s.store.Events.ListDueOn(ctx, yesterday)
	if err != nil {
		report.Fail("carry", 0, yesterday, err)
		return
	}

	for _, prev := range events {
		var outcome carryOutcome
		err := s.store.Transaction(ctx, func(tx *repository.Store) error {
			var err error
			outcome, err = s.carry(ctx, tx, prev, now)
			return err
		})
		if err != nil {
			appLog.Error("carry forward failed", err, "event_id", prev.ID)
			report.Fail("carry", prev.ID, prev.DueDate, err)
			continue
		}
		switch outcome {
		case carryCreated:
			report.Rolled++
		case carryMerged:
			report.Merged++
		case carryResolved:
			report.Resolved++
		}
	}
}

// carry handles one event due yesterday inside tx.
func (s *RolloverService) carry(ctx context.Context, tx *repository.Store, prev *model.Event, now time.Time) (carryOutcome, error) {
	// Work on a fresh copy so a rolled-back attempt leaves prev untouched.
	prev, err := tx.Events.FindByID(ctx, prev.ID)
	if err != nil {
		return 0, err
	}

	var next model.Payload
	switch p := prev.Payload.(type) {
	case *model.TaskPayload:
		if p.Status == model.TaskDone {
			return carryResolved, nil
		}
		if p.Status != model.TaskUnrealised {
			from := p.Status
			p.Status, p.IsPending = model.TaskUnrealised, false
			if err := tx.Events.SaveTask(ctx, p); err != nil {
				return 0, err
			}
			if err := s.agg.UpdateCounters(ctx, tx, prev, StatusChanged(from, model.TaskUnrealised)); err != nil {
				return 0, err
			}
		}
		next = model.NewTaskPayload(model.TaskPending, p.Users())
	case *model.InfoPayload:
		if p.IsFullyRead {
			return carryResolved, nil
		}
		next = model.NewInfoPayload(p.UnreadUsers())
	default:
		return 0, fmt.Errorf("event %d has no payload", prev.ID)
	}

	switch _, err := tx.Events.FindContinuation(ctx, prev.ID); {
	case err == nil:
		return carryExisting, nil
	case !errors.Is(err, repository.ErrNotFound):
		return 0, err
	}

	first := prev.FirstDueDate
	if first.IsZero() {
		first = prev.DueDate
	}

	templateID, err := s.continuationTemplate(ctx, tx, prev, now)
	if err != nil {
		return 0, err
	}
	if templateID != nil {
		sibling, err := tx.Events.FindByTemplateDue(ctx, *templateID, now)
		switch {
		case err == nil:
			return carryMerged, s.merge(ctx, tx, sibling, first)
		case !errors.Is(err, repository.ErrNotFound):
			return 0, err
		}
	}

	status, activeDay := s.window.Classify(now, now)
	prevID := prev.ID
	cont := &model.Event{
		DueDate:         now,
		FirstDueDate:    first,
		DateStatus:      status,
		ActiveDay:       activeDay,
		Side:            prev.Side,
		Section:         prev.Section,
		Title:           prev.Title,
		Description:     prev.Description,
		TemplateID:      templateID,
		ContinuedFromID: &prevID,
	}
	cont.SetPayload(next)
	if err := tx.Events.Create(ctx, cont); err != nil {
		return 0, err
	}
	if err := s.agg.UpdateCounters(ctx, tx, cont, Created()); err != nil {
		return 0, err
	}
	return carryCreated, nil
}

// continuationTemplate returns the template a continuation due now may stay
// linked to. Outside the template period the continuation becomes a one-off.
func (s *RolloverService) continuationTemplate(ctx context.Context, tx *repository.Store, prev *model.Event, now time.Time) (*uint, error) {
	if prev.TemplateID == nil {
		return nil, nil
	}
	tpl, err := tx.Templates.FindByID(ctx, *prev.TemplateID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	if !tpl.Covers(now) {
		appLog.Debug("template period over, carrying as one-off", "event_id", prev.ID, "template_id", tpl.ID)
		return nil, nil
	}
	id := tpl.ID
	return &id, nil
}

// merge folds a carried obligation into today's sibling of the same template:
// the older first due date wins and an untouched task is marked as carried.
func (s *RolloverService) merge(ctx context.Context, tx *repository.Store, sibling *model.Event, first time.Time) error {
	if first.Before(sibling.FirstDueDate) {
		if err := tx.Events.SetFirstDueDate(ctx, sibling.ID, first); err != nil {
			return err
		}
	}
	p, ok := sibling.Task()
	if !ok || p.Status != model.TaskTodo {
		return nil
	}
	p.Status, p.IsPending = model.TaskPending, true
	if err := tx.Events.SaveTask(ctx, p); err != nil {
		return err
	}
	return s.agg.UpdateCounters(ctx, tx, sibling, StatusChanged(model.TaskTodo, model.TaskPending))
}

// prune drops events and tags that left the retention horizon.
func (s *RolloverService) prune(ctx context.Context, now time.Time, report *Report) {
	horizon := s.window.Horizon(now)

	n, err := s.store.Events.DeleteDueBefore(ctx, horizon)
	if err != nil {
		report.Fail("prune", 0, horizon, err)
		return
	}
	report.Pruned = int(n)

	tags, err := s.store.Tags.DeleteExpired(ctx, horizon)
	if err != nil {
		report.Fail("prune-tags", 0, horizon, err)
		return
	}
	report.PrunedTags = int(tags)
}
