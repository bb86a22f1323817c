package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duty-planner/internal/clock"
	"duty-planner/internal/model"
)

func TestRecompute_CountersMatchAfterMixedOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, clock.Date(2024, 1, 10))
	_, _, err := f.planner.CreateTemplate(ctx, TemplateInput{
		Title: "stock check", Section: "bar", Kind: model.KindTask,
		PeriodStart: clock.Date(2024, 1, 1), Recurrence: mustWeekdays(t, 2, 4), Users: []uint{4},
	})
	require.NoError(t, err)
	ev := f.task(t, clock.Date(2024, 1, 10), "clean fryer", 1)
	info := f.info(t, clock.Date(2024, 1, 10), "new menu", 1, 2, 3)
	_, err = f.planner.SetTaskStatus(ctx, ev.ID, model.TaskWarning)
	require.NoError(t, err)
	_, err = f.planner.MarkInfoRead(ctx, info.ID, 2)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		f.clock.Advance(1)
		require.True(t, f.planner.RunDailyRollover(ctx).OK())
		require.True(t, f.planner.RunExpansion(ctx).OK())
	}
	f.requireNoDrift(t)
}

func TestRecompute_RepairsDrift(t *testing.T) {
	ctx := context.Background()
	day := clock.Date(2024, 1, 10)
	f := newFixture(t, day)
	f.task(t, day, "clean fryer", 1)
	f.info(t, day, "new menu", 1, 2)

	tag := f.tag(t, day, "hot", "grill")
	require.NoError(t, f.store.Tags.SetTaskCount(ctx, tag.ID, 5))
	require.NoError(t, f.store.Tags.SetUnread(ctx, tag.ID, 1, 0))
	require.NoError(t, f.store.Tags.SetUnread(ctx, tag.ID, 9, 3))

	report := f.planner.Recompute(ctx)
	require.True(t, report.OK(), "%+v", report.Failures)
	assert.Equal(t, RunRepair, report.Kind)
	assert.Equal(t, 3, report.Drift)

	tag = f.tag(t, day, "hot", "grill")
	assert.Equal(t, 1, tag.TaskCount)
	unread := map[uint]int{}
	for _, info := range tag.Infos {
		unread[info.UserID] = info.UnreadInfoCount
	}
	assert.Equal(t, map[uint]int{1: 1, 2: 1}, unread)

	f.requireNoDrift(t)
}
