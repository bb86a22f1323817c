package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"duty-planner/internal/clock"
	"duty-planner/internal/model"
	"duty-planner/internal/repository"
)

var testWindow = model.Window{ActiveDayStart: -3, ActiveDayEnd: 7, RetentionDays: 30}

type fixture struct {
	planner *Planner
	store   *repository.Store
	clock   *clock.Fixed
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "planner.db"))
	require.NoError(t, err)
	store := repository.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })

	clk := clock.NewFixed(now)
	return &fixture{
		planner: NewPlanner(store, clk, testWindow, nil),
		store:   store,
		clock:   clk,
	}
}

func (f *fixture) allEvents(t *testing.T) []*model.Event {
	t.Helper()
	events, err := f.store.Events.ListDueFrom(context.Background(), time.Time{})
	require.NoError(t, err)
	return events
}

func (f *fixture) dueOn(t *testing.T, day time.Time) []*model.Event {
	t.Helper()
	events, err := f.store.Events.ListDueOn(context.Background(), day)
	require.NoError(t, err)
	return events
}

func (f *fixture) tag(t *testing.T, day time.Time, side, section string) *model.Tag {
	t.Helper()
	tag, err := f.store.Tags.Find(context.Background(), model.Bucket{Day: day, Side: side, Section: section})
	require.NoError(t, err)
	return tag
}

func (f *fixture) task(t *testing.T, due time.Time, title string, users ...uint) *model.Event {
	t.Helper()
	ev, err := f.planner.CreateEvent(context.Background(), EventInput{
		DueDate: due, Title: title, Section: "grill", Side: "hot", Kind: model.KindTask, Users: users,
	})
	require.NoError(t, err)
	return ev
}

func (f *fixture) info(t *testing.T, due time.Time, title string, users ...uint) *model.Event {
	t.Helper()
	ev, err := f.planner.CreateEvent(context.Background(), EventInput{
		DueDate: due, Title: title, Section: "grill", Side: "hot", Kind: model.KindInfo, Users: users,
	})
	require.NoError(t, err)
	return ev
}

// requireNoDrift checks the incremental counters against a full recount.
func (f *fixture) requireNoDrift(t *testing.T) {
	t.Helper()
	report := f.planner.Recompute(context.Background())
	require.True(t, report.OK(), "%+v", report.Failures)
	require.Zero(t, report.Drift)
}

func dates(ts []time.Time) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Format(time.DateOnly))
	}
	return out
}

func eventDates(events []*model.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.DueDate.Format(time.DateOnly))
	}
	return out
}

func mustWeekdays(t *testing.T, days ...int) model.Recurrence {
	t.Helper()
	r, err := model.Weekdays(days...)
	require.NoError(t, err)
	return r
}

func mustMonthDays(t *testing.T, days ...int) model.Recurrence {
	t.Helper()
	r, err := model.MonthDays(days...)
	require.NoError(t, err)
	return r
}
