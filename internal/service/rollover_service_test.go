package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duty-planner/internal/clock"
	"duty-planner/internal/model"
)

func TestRollover_CarriesOpenTaskForward(t *testing.T) {
	ctx := context.Background()
	day := clock.Date(2024, 1, 10)
	f := newFixture(t, day)
	prev := f.task(t, day, "clean fryer", 1, 2)

	f.clock.Advance(1)
	report := f.planner.RunDailyRollover(ctx)
	require.True(t, report.OK(), "%+v", report.Failures)
	assert.Equal(t, 1, report.Rolled)

	old, err := f.store.Events.FindByID(ctx, prev.ID)
	require.NoError(t, err)
	oldTask, _ := old.Task()
	assert.Equal(t, model.TaskUnrealised, oldTask.Status)
	assert.Equal(t, model.DateStatusActive, old.DateStatus)
	require.NotNil(t, old.ActiveDay)
	assert.Equal(t, -1, *old.ActiveDay)

	next := f.dueOn(t, clock.Date(2024, 1, 11))
	require.Len(t, next, 1)
	cont := next[0]
	p, ok := cont.Task()
	require.True(t, ok)
	assert.Equal(t, model.TaskPending, p.Status)
	assert.True(t, p.IsPending)
	assert.Equal(t, []uint{1, 2}, p.Users())
	assert.Equal(t, day, cont.FirstDueDate)
	require.NotNil(t, cont.ContinuedFromID)
	assert.Equal(t, prev.ID, *cont.ContinuedFromID)
	assert.Equal(t, "hot", cont.Side)
	assert.Equal(t, "grill", cont.Section)

	assert.Equal(t, 0, f.tag(t, day, "hot", "grill").TaskCount)
	assert.Equal(t, 1, f.tag(t, clock.Date(2024, 1, 11), "hot", "grill").TaskCount)
	f.requireNoDrift(t)
}

func TestRollover_DoneTaskIsNotCarried(t *testing.T) {
	ctx := context.Background()
	day := clock.Date(2024, 1, 10)
	f := newFixture(t, day)
	ev := f.task(t, day, "mop floor", 1)
	_, err := f.planner.SetTaskStatus(ctx, ev.ID, model.TaskDone)
	require.NoError(t, err)

	f.clock.Advance(1)
	report := f.planner.RunDailyRollover(ctx)
	assert.True(t, report.OK())
	assert.Zero(t, report.Rolled)
	assert.Equal(t, 1, report.Resolved)
	assert.Empty(t, f.dueOn(t, clock.Date(2024, 1, 11)))

	old, err := f.store.Events.FindByID(ctx, ev.ID)
	require.NoError(t, err)
	p, _ := old.Task()
	assert.Equal(t, model.TaskDone, p.Status)
}

func TestRollover_InfoNarrowsToUnreadUsers(t *testing.T) {
	ctx := context.Background()
	day := clock.Date(2024, 1, 10)
	f := newFixture(t, day)
	ev := f.info(t, day, "new allergen chart", 1, 2, 3)
	_, err := f.planner.MarkInfoRead(ctx, ev.ID, 1)
	require.NoError(t, err)

	f.clock.Advance(1)
	report := f.planner.RunDailyRollover(ctx)
	require.True(t, report.OK(), "%+v", report.Failures)
	assert.Equal(t, 1, report.Rolled)

	next := f.dueOn(t, clock.Date(2024, 1, 11))
	require.Len(t, next, 1)
	p, ok := next[0].Info()
	require.True(t, ok)
	assert.Equal(t, []uint{2, 3}, p.Users())
	assert.Equal(t, []uint{2, 3}, p.UnreadUsers())
	assert.Equal(t, 2, p.SharedWithCount)

	tag := f.tag(t, clock.Date(2024, 1, 11), "hot", "grill")
	require.Len(t, tag.Infos, 2)
	f.requireNoDrift(t)
}

func TestRollover_FullyReadInfoIsNotCarried(t *testing.T) {
	ctx := context.Background()
	day := clock.Date(2024, 1, 10)
	f := newFixture(t, day)
	ev := f.info(t, day, "closing early", 4)
	_, err := f.planner.MarkInfoRead(ctx, ev.ID, 4)
	require.NoError(t, err)

	f.clock.Advance(1)
	report := f.planner.RunDailyRollover(ctx)
	assert.Equal(t, 1, report.Resolved)
	assert.Empty(t, f.dueOn(t, clock.Date(2024, 1, 11)))
}

func TestRollover_RerunCreatesNothing(t *testing.T) {
	ctx := context.Background()
	day := clock.Date(2024, 1, 10)
	f := newFixture(t, day)
	f.task(t, day, "clean fryer", 1)
	f.info(t, day, "new menu", 1, 2)

	f.clock.Advance(1)
	first := f.planner.RunDailyRollover(ctx)
	require.True(t, first.OK())
	assert.Equal(t, 2, first.Rolled)
	before := f.allEvents(t)

	second := f.planner.RunDailyRollover(ctx)
	require.True(t, second.OK())
	assert.Zero(t, second.Rolled)
	assert.Zero(t, second.Classified)
	assert.Len(t, f.allEvents(t), len(before))
	assert.Equal(t, 1, f.tag(t, clock.Date(2024, 1, 11), "hot", "grill").TaskCount)
	f.requireNoDrift(t)
}

func TestRollover_MergesIntoRecurringSibling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clock.Date(2024, 1, 10))
	tpl, _, err := f.planner.CreateTemplate(ctx, TemplateInput{
		Title: "temperature log", Section: "grill", Side: "hot", Kind: model.KindTask,
		PeriodStart: clock.Date(2024, 1, 1), Recurrence: model.Everyday(), Users: []uint{1},
	})
	require.NoError(t, err)

	f.clock.Advance(1)
	report := f.planner.RunDailyRollover(ctx)
	require.True(t, report.OK(), "%+v", report.Failures)
	assert.Zero(t, report.Rolled)
	assert.Equal(t, 1, report.Merged)

	sibling, err := f.store.Events.FindByTemplateDue(ctx, tpl.ID, clock.Date(2024, 1, 11))
	require.NoError(t, err)
	assert.Nil(t, sibling.ContinuedFromID)
	assert.Equal(t, clock.Date(2024, 1, 10), sibling.FirstDueDate)
	p, _ := sibling.Task()
	assert.Equal(t, model.TaskPending, p.Status)
	assert.True(t, p.IsPending)

	assert.Len(t, f.dueOn(t, clock.Date(2024, 1, 11)), 1)
	assert.Equal(t, 1, f.tag(t, clock.Date(2024, 1, 11), "hot", "grill").TaskCount)
	f.requireNoDrift(t)

	again := f.planner.RunDailyRollover(ctx)
	require.True(t, again.OK(), "%+v", again.Failures)
	assert.Len(t, f.dueOn(t, clock.Date(2024, 1, 11)), 1)
	assert.Equal(t, 1, f.tag(t, clock.Date(2024, 1, 11), "hot", "grill").TaskCount)
	f.requireNoDrift(t)
}

func TestRollover_ContinuationAfterPeriodEndIsOneOff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clock.Date(2024, 1, 10))
	end := clock.Date(2024, 1, 10)
	tpl, _, err := f.planner.CreateTemplate(ctx, TemplateInput{
		Title: "temperature log", Section: "grill", Side: "hot", Kind: model.KindTask,
		PeriodStart: clock.Date(2024, 1, 1), PeriodEnd: &end,
		Recurrence: model.Everyday(), Users: []uint{1},
	})
	require.NoError(t, err)

	f.clock.Advance(1)
	report := f.planner.RunDailyRollover(ctx)
	require.True(t, report.OK(), "%+v", report.Failures)
	assert.Equal(t, 1, report.Rolled)
	assert.Zero(t, report.Merged)

	next := f.dueOn(t, clock.Date(2024, 1, 11))
	require.Len(t, next, 1)
	cont := next[0]
	assert.Nil(t, cont.TemplateID)
	assert.False(t, cont.IsRecurring())
	require.NotNil(t, cont.ContinuedFromID)
	assert.Equal(t, clock.Date(2024, 1, 10), cont.FirstDueDate)

	for _, ev := range f.allEvents(t) {
		if ev.TemplateID != nil {
			assert.True(t, tpl.Covers(ev.DueDate), "event %d due %s", ev.ID, ev.DueDate.Format("2006-01-02"))
		}
	}
	f.requireNoDrift(t)
}

func TestRollover_ContinuationOfRecurringKeepsTemplate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clock.Date(2024, 1, 10))
	tpl, _, err := f.planner.CreateTemplate(ctx, TemplateInput{
		Title: "deep clean", Section: "grill", Kind: model.KindTask,
		PeriodStart: clock.Date(2024, 1, 1), Recurrence: mustWeekdays(t, 3), Users: []uint{1},
	})
	require.NoError(t, err)

	// 2024-01-10 is a Wednesday; Thursday has no sibling.
	f.clock.Advance(1)
	report := f.planner.RunDailyRollover(ctx)
	require.True(t, report.OK(), "%+v", report.Failures)
	assert.Equal(t, 1, report.Rolled)

	cont, err := f.store.Events.FindByTemplateDue(ctx, tpl.ID, clock.Date(2024, 1, 11))
	require.NoError(t, err)
	require.NotNil(t, cont.ContinuedFromID)
	assert.True(t, cont.IsRecurring())

	again := f.planner.RunExpansion(ctx)
	assert.True(t, again.OK())
	assert.Zero(t, again.Created)
}

func TestRollover_ReclassifiesAcrossWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clock.Date(2024, 1, 10))
	edge := f.task(t, clock.Date(2024, 1, 7), "edge", 1)
	future := f.task(t, clock.Date(2024, 1, 18), "later", 1)
	assert.Equal(t, model.DateStatusActive, edge.DateStatus)
	assert.Equal(t, model.DateStatusFuture, future.DateStatus)

	f.clock.Advance(1)
	report := f.planner.RunDailyRollover(ctx)
	require.True(t, report.OK())

	got, err := f.store.Events.FindByID(ctx, edge.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DateStatusPast, got.DateStatus)
	assert.Nil(t, got.ActiveDay)

	got, err = f.store.Events.FindByID(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DateStatusActive, got.DateStatus)
	require.NotNil(t, got.ActiveDay)
	assert.Equal(t, 7, *got.ActiveDay)

	tag := f.tag(t, clock.Date(2024, 1, 18), "hot", "grill")
	assert.Equal(t, model.DateStatusActive, tag.DateStatus)
}

func TestRollover_PrunesBeyondRetention(t *testing.T) {
	ctx := context.Background()
	now := clock.Date(2024, 3, 1)
	f := newFixture(t, now)
	gone := f.task(t, clock.AddDays(now, -31), "ancient", 1)
	kept := f.task(t, clock.AddDays(now, -29), "old", 1)

	report := f.planner.RunDailyRollover(ctx)
	require.True(t, report.OK(), "%+v", report.Failures)
	assert.Equal(t, 1, report.Pruned)
	assert.Equal(t, 1, report.PrunedTags)

	_, err := f.store.Events.FindByID(ctx, gone.ID)
	assert.Error(t, err)
	_, err = f.store.Events.FindByID(ctx, kept.ID)
	assert.NoError(t, err)

	_, err = f.store.Tags.Find(ctx, model.Bucket{Day: clock.AddDays(now, -31), Side: "hot", Section: "grill"})
	assert.Error(t, err)
	assert.Equal(t, 1, f.tag(t, clock.AddDays(now, -29), "hot", "grill").TaskCount)
}
