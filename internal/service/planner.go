package service

import (
	"context"

	"duty-planner/internal/clock"
	"duty-planner/internal/model"
	"duty-planner/internal/repository"
)

// Planner bundles the engines behind one entry point. All of them share the
// store, the clock and the window.
type Planner struct {
	Events    *EventService
	Templates *TemplateService
	Expansion *ExpansionService
	Rollover  *RolloverService
	Repair    *RepairService
	Digest    *DigestService
}

// NewPlanner wires the services. A nil resolver falls back to the member
// directory of store.
func NewPlanner(store *repository.Store, clk clock.Clock, window model.Window, resolver UserResolver) *Planner {
	if resolver == nil {
		resolver = NewDirectoryResolver(store.Members)
	}
	agg := NewAggregationService()
	expansion := NewExpansionService(store, clk, window, resolver, agg)
	return &Planner{
		Events:    NewEventService(store, clk, window, resolver, agg),
		Templates: NewTemplateService(store, clk, expansion, agg),
		Expansion: expansion,
		Rollover:  NewRolloverService(store, clk, window, agg),
		Repair:    NewRepairService(store, clk),
		Digest:    NewDigestService(store, clk, window),
	}
}

func (p *Planner) CreateEvent(ctx context.Context, in EventInput) (*model.Event, error) {
	return p.Events.CreateEvent(ctx, in)
}

func (p *Planner) CreateTemplate(ctx context.Context, in TemplateInput) (*model.RecurrenceTemplate, *Report, error) {
	return p.Templates.CreateTemplate(ctx, in)
}

func (p *Planner) UpdateTemplate(ctx context.Context, id uint, in TemplateInput) (*Report, error) {
	return p.Templates.UpdateTemplate(ctx, id, in)
}

func (p *Planner) DeleteTemplate(ctx context.Context, id uint) error {
	return p.Templates.DeleteTemplate(ctx, id)
}

func (p *Planner) SetTaskStatus(ctx context.Context, id uint, status model.TaskStatus) (*model.Event, error) {
	return p.Events.SetTaskStatus(ctx, id, status)
}

func (p *Planner) MarkInfoRead(ctx context.Context, id, userID uint) (*model.Event, error) {
	return p.Events.MarkInfoRead(ctx, id, userID)
}

func (p *Planner) RunDailyRollover(ctx context.Context) *Report {
	return p.Rollover.RunDailyRollover(ctx)
}

func (p *Planner) RunExpansion(ctx context.Context) *Report {
	return p.Expansion.RunExpansion(ctx)
}

func (p *Planner) Recompute(ctx context.Context) *Report {
	return p.Repair.Recompute(ctx)
}
