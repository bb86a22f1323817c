package service

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duty-planner/internal/clock"
	"duty-planner/internal/model"
)

func TestDailyDigest_Golden(t *testing.T) {
	ctx := context.Background()
	day := clock.Date(2024, 1, 10)
	f := newFixture(t, day)

	_, err := f.planner.CreateEvent(ctx, EventInput{
		DueDate: day, Title: "Clean fryer", Description: "Degrease filters",
		Section: "grill", Side: "hot", Kind: model.KindTask, Users: []uint{1},
	})
	require.NoError(t, err)
	restock, err := f.planner.CreateEvent(ctx, EventInput{
		DueDate: day, Title: "Restock walk-in", Section: "storage", Kind: model.KindTask, Users: []uint{2},
	})
	require.NoError(t, err)
	chart := f.info(t, day, "New allergen chart", 1, 2)
	mop := f.task(t, day, "Mop floor", 1)

	_, err = f.planner.SetTaskStatus(ctx, restock.ID, model.TaskPending)
	require.NoError(t, err)
	_, err = f.planner.MarkInfoRead(ctx, chart.ID, 1)
	require.NoError(t, err)
	_, err = f.planner.SetTaskStatus(ctx, mop.ID, model.TaskDone)
	require.NoError(t, err)

	out, err := f.planner.Digest.DailyDigest(ctx, day)
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata"))
	g.Assert(t, "daily_digest", []byte(out))
}

func TestDailyDigest_Empty(t *testing.T) {
	f := newFixture(t, clock.Date(2024, 1, 10))

	out, err := f.planner.Digest.DailyDigest(context.Background(), clock.Date(2024, 1, 10))
	require.NoError(t, err)
	assert.Contains(t, out, "nothing outstanding")
}

func TestUserDigest_ShowsCarriedTasksAndUnread(t *testing.T) {
	ctx := context.Background()
	day := clock.Date(2024, 1, 10)
	f := newFixture(t, day)
	f.task(t, day, "Clean <fryer>", 1)
	f.info(t, day, "New menu", 1, 2)
	read := f.info(t, day, "Old menu", 1)
	_, err := f.planner.MarkInfoRead(ctx, read.ID, 1)
	require.NoError(t, err)

	f.clock.Advance(1)
	require.True(t, f.planner.RunDailyRollover(ctx).OK())

	out, err := f.planner.Digest.UserDigest(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, out, "11.01 · ⏳ Clean &lt;fryer&gt; <i>(carried since 2024-01-10)</i>")
	assert.Contains(t, out, "New menu <i>(2/2 unread)</i>")
	assert.NotContains(t, out, "Old menu")

	out, err = f.planner.Digest.UserDigest(ctx, 42)
	require.NoError(t, err)
	assert.Contains(t, out, "— no open tasks")
	assert.Contains(t, out, "— all read")
}
