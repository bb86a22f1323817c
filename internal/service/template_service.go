package service

import (
	"context"
	"fmt"
	"time"

	"duty-planner/internal/clock"
	appLog "duty-planner/internal/log"
	"duty-planner/internal/model"
	"duty-planner/internal/repository"
)

// TemplateInput represents data required to create or replace a template.
type TemplateInput struct {
	Title       string
	Description string
	Section     string
	Side        string
	Kind        model.Kind
	PeriodStart time.Time
	PeriodEnd   *time.Time
	Recurrence  model.Recurrence
	Users       []uint
}

func (in TemplateInput) apply(tpl *model.RecurrenceTemplate) {
	tpl.Title = in.Title
	tpl.Description = in.Description
	tpl.Section = model.NormalizeKey(in.Section)
	tpl.Side = model.NormalizeKey(in.Side)
	tpl.Kind = in.Kind
	tpl.PeriodStart = clock.Day(in.PeriodStart)
	tpl.PeriodEnd = nil
	if in.PeriodEnd != nil {
		end := clock.Day(*in.PeriodEnd)
		tpl.PeriodEnd = &end
	}
	tpl.Recurrence = in.Recurrence
	tpl.Users = model.NewUserIDs(in.Users...)
}

// TemplateService manages recurrence templates and keeps their events in step.
type TemplateService struct {
	store     *repository.Store
	clock     clock.Clock
	expansion *ExpansionService
	agg       *AggregationService
}

func NewTemplateService(store *repository.Store, clk clock.Clock, expansion *ExpansionService, agg *AggregationService) *TemplateService {
	return &TemplateService{store: store, clock: clk, expansion: expansion, agg: agg}
}

// CreateTemplate stores a new template and expands it into the current window.
func (s *TemplateService) CreateTemplate(ctx context.Context, in TemplateInput) (*model.RecurrenceTemplate, *Report, error) {
	tpl := &model.RecurrenceTemplate{}
	in.apply(tpl)
	if err := tpl.Validate(); err != nil {
		return nil, nil, err
	}
	if err := s.store.Templates.Create(ctx, tpl); err != nil {
		return nil, nil, err
	}

	now := s.clock.Today()
	report, err := s.expansion.expand(ctx, tpl, now)
	if err != nil {
		return tpl, nil, err
	}
	report.Kind = RunTemplate
	appLog.Info("template created", "template_id", tpl.ID, "section", tpl.Section,
		"recurrence", tpl.Recurrence.String(), "events", report.Created)
	return tpl, report.finish(), nil
}

// UpdateTemplate replaces a template and reconciles its future events in one
// transaction: untouched tasks and infos are removed, tasks somebody already
// acted on are kept and flagged as warning. The template is then re-expanded.
func (s *TemplateService) UpdateTemplate(ctx context.Context, id uint, in TemplateInput) (*Report, error) {
	tpl := &model.RecurrenceTemplate{}
	in.apply(tpl)
	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Today()
	report := newReport(RunTemplate, now)

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Templates.FindByID(ctx, id)
		if err != nil {
			return err
		}
		tpl.ID, tpl.CreatedAt = current.ID, current.CreatedAt
		if err := tx.Templates.Save(ctx, tpl); err != nil {
			return err
		}

		children, err := tx.Events.ListTemplateChildrenAfter(ctx, id, now)
		if err != nil {
			return err
		}
		for _, ev := range children {
			if err := s.reconcile(ctx, tx, ev); err != nil {
				return fmt.Errorf("reconcile event %d: %w", ev.ID, err)
			}
			report.Reconciled++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sub, err := s.expansion.expand(ctx, tpl, now)
	if err != nil {
		return nil, err
	}
	report.Merge(sub)
	appLog.Info("template updated", "template_id", id, "reconciled", report.Reconciled, "created", report.Created)
	return report.finish(), nil
}

// reconcile brings one future child in line with an edited template.
func (s *TemplateService) reconcile(ctx context.Context, tx *repository.Store, ev *model.Event) error {
	if p, ok := ev.Task(); ok && p.Status != model.TaskTodo {
		if p.Status == model.TaskWarning {
			return nil
		}
		from := p.Status
		p.Status, p.IsPending = model.TaskWarning, false
		if err := tx.Events.SaveTask(ctx, p); err != nil {
			return err
		}
		return s.agg.UpdateCounters(ctx, tx, ev, StatusChanged(from, model.TaskWarning))
	}
	return s.remove(ctx, tx, ev)
}

// remove deletes ev and reverses what it contributed to its bucket.
func (s *TemplateService) remove(ctx context.Context, tx *repository.Store, ev *model.Event) error {
	if err := s.agg.UpdateCounters(ctx, tx, ev, Removed()); err != nil {
		return err
	}
	return tx.Events.Delete(ctx, ev.ID)
}

// DeleteTemplate removes a template. Future events nobody resolved go with it;
// everything else stays as one-off history without the template link.
func (s *TemplateService) DeleteTemplate(ctx context.Context, id uint) error {
	now := s.clock.Today()
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Templates.FindByID(ctx, id); err != nil {
			return err
		}
		children, err := tx.Events.ListTemplateChildrenAfter(ctx, id, now)
		if err != nil {
			return err
		}
		for _, ev := range children {
			if !unresolved(ev) {
				continue
			}
			if err := s.remove(ctx, tx, ev); err != nil {
				return fmt.Errorf("remove event %d: %w", ev.ID, err)
			}
		}
		if err := tx.Events.DetachTemplate(ctx, id); err != nil {
			return err
		}
		return tx.Templates.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	appLog.Info("template deleted", "template_id", id)
	return nil
}

func unresolved(ev *model.Event) bool {
	if p, ok := ev.Task(); ok {
		return p.Status.IsOpen()
	}
	if p, ok := ev.Info(); ok {
		return !p.IsFullyRead
	}
	return false
}
