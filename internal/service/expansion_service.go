package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"duty-planner/internal/clock"
	appLog "duty-planner/internal/log"
	"duty-planner/internal/model"
	"duty-planner/internal/repository"
)

var rruleWeekdays = map[int]rrule.Weekday{
	1: rrule.MO, 2: rrule.TU, 3: rrule.WE, 4: rrule.TH, 5: rrule.FR, 6: rrule.SA, 7: rrule.SU,
}

// DueDates lists the days in [from, to] on which rec falls. Month days that
// do not exist in a month are skipped, never clamped to the month end.
func DueDates(rec model.Recurrence, from, to time.Time) ([]time.Time, error) {
	from, to = clock.Day(from), clock.Day(to)
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, nil
	}

	switch rec.Kind() {
	case model.RecurEveryday:
		return between(rrule.ROption{Freq: rrule.DAILY}, from, to)
	case model.RecurWeekdays:
		days := make([]rrule.Weekday, 0, len(rec.Days()))
		for _, d := range rec.Days() {
			days = append(days, rruleWeekdays[d])
		}
		return between(rrule.ROption{Freq: rrule.WEEKLY, Byweekday: days, Wkst: rrule.MO}, from, to)
	case model.RecurMonthDays:
		return between(rrule.ROption{Freq: rrule.MONTHLY, Bymonthday: rec.Days()}, from, to)
	case model.RecurExplicitDates:
		var out []time.Time
		for _, d := range rec.Dates() {
			if !d.Before(from) && !d.After(to) {
				out = append(out, d)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported recurrence %q", rec.Kind())
}

func between(opt rrule.ROption, from, to time.Time) ([]time.Time, error) {
	opt.Dtstart = from
	opt.Until = to
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("build rule: %w", err)
	}
	occ := r.Between(from, to, true)
	out := make([]time.Time, 0, len(occ))
	for _, t := range occ {
		out = append(out, clock.Day(t))
	}
	return out, nil
}

// ExpansionService materializes template occurrences inside the active window.
type ExpansionService struct {
	store    *repository.Store
	clock    clock.Clock
	window   model.Window
	resolver UserResolver
	agg      *AggregationService
}

func NewExpansionService(store *repository.Store, clk clock.Clock, window model.Window, resolver UserResolver, agg *AggregationService) *ExpansionService {
	return &ExpansionService{store: store, clock: clk, window: window, resolver: resolver, agg: agg}
}

// Expand creates the missing events of tpl for today's window.
func (s *ExpansionService) Expand(ctx context.Context, tpl *model.RecurrenceTemplate) (*Report, error) {
	return s.expand(ctx, tpl, s.clock.Today())
}

// RunExpansion expands every template overlapping the window. Failures are
// recorded per template and per due date; the run always completes.
func (s *ExpansionService) RunExpansion(ctx context.Context) *Report {
	now := s.clock.Today()
	report := newReport(RunExpansion, now)

	from, to := s.window.Range(now)
	templates, err := s.store.Templates.ListOverlapping(ctx, from, to)
	if err != nil {
		report.Fail("templates", 0, time.Time{}, err)
		return report.finish()
	}
	for _, tpl := range templates {
		sub, err := s.expand(ctx, tpl, now)
		if err != nil {
			report.Fail("template", tpl.ID, time.Time{}, err)
			continue
		}
		report.Merge(sub)
	}

	appLog.Info("expansion finished", "run_id", report.RunID, "now", now.Format(time.DateOnly),
		"templates", len(templates), "created", report.Created, "failures", len(report.Failures))
	return report.finish()
}

// expand rejects an invalid template as a whole; after validation, each due
// date commits on its own and failures are recorded in the report.
func (s *ExpansionService) expand(ctx context.Context, tpl *model.RecurrenceTemplate, now time.Time) (*Report, error) {
	if err := tpl.Validate(); err != nil {
		return nil, fmt.Errorf("template %d: %w", tpl.ID, err)
	}
	report := newReport(RunExpansion, now)

	from, to := s.window.Range(now)
	if tpl.PeriodStart.After(from) {
		from = clock.Day(tpl.PeriodStart)
	}
	if tpl.PeriodEnd != nil && tpl.PeriodEnd.Before(to) {
		to = clock.Day(*tpl.PeriodEnd)
	}
	if to.Before(from) {
		return report, nil
	}

	dates, err := DueDates(tpl.Recurrence, from, to)
	if err != nil {
		return nil, fmt.Errorf("template %d: %w", tpl.ID, err)
	}
	if len(dates) == 0 {
		return report, nil
	}

	existing, err := s.store.Events.TemplateDueDates(ctx, tpl.ID, from, to)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, d := range existing {
		have[d.Format(time.DateOnly)] = true
	}

	users, err := resolveUsers(ctx, s.resolver, tpl.Users, tpl.Section, tpl.Side)
	if err != nil {
		return nil, fmt.Errorf("template %d users: %w", tpl.ID, err)
	}

	for _, due := range dates {
		if have[due.Format(time.DateOnly)] {
			report.Skipped++
			continue
		}
		ev := s.occurrence(tpl, due, now, users)
		err := s.store.Transaction(ctx, func(tx *repository.Store) error {
			if err := tx.Events.Create(ctx, ev); err != nil {
				return err
			}
			return s.agg.UpdateCounters(ctx, tx, ev, Created())
		})
		switch {
		case err == nil:
			report.Created++
		case errors.Is(err, repository.ErrDuplicate):
			// Another path (a rollover continuation) already owns this day.
			report.Skipped++
		default:
			appLog.Error("expand occurrence failed", err, "template_id", tpl.ID, "due", due.Format(time.DateOnly))
			report.Fail("occurrence", tpl.ID, due, err)
		}
	}
	return report, nil
}

func (s *ExpansionService) occurrence(tpl *model.RecurrenceTemplate, due, now time.Time, users []uint) *model.Event {
	status, activeDay := s.window.Classify(due, now)
	tplID := tpl.ID
	ev := &model.Event{
		DueDate:      due,
		FirstDueDate: due,
		DateStatus:   status,
		ActiveDay:    activeDay,
		Side:         tpl.Side,
		Section:      tpl.Section,
		Title:        tpl.Title,
		Description:  tpl.Description,
		TemplateID:   &tplID,
	}
	ev.SetPayload(newPayload(tpl.Kind, users))
	return ev
}

// newPayload seeds a fresh payload for a new obligation.
func newPayload(kind model.Kind, users []uint) model.Payload {
	if kind == model.KindInfo {
		return model.NewInfoPayload(users)
	}
	return model.NewTaskPayload(model.TaskTodo, users)
}
