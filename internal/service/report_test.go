package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duty-planner/internal/clock"
)

func TestReport_FailAndMerge(t *testing.T) {
	now := clock.Date(2024, 1, 10)
	r := newReport(RunExpansion, now)
	_, err := uuid.Parse(r.RunID)
	require.NoError(t, err)
	assert.True(t, r.OK())

	sub := newReport(RunExpansion, now)
	sub.Created = 2
	sub.Skipped = 1
	sub.Fail("occurrence", 4, now, errors.New("disk full"))
	r.Created = 1
	r.Merge(sub)
	r.Merge(nil)

	assert.Equal(t, 3, r.Created)
	assert.Equal(t, 1, r.Skipped)
	require.Len(t, r.Failures, 1)
	assert.Equal(t, ItemFailure{Item: "occurrence", ID: 4, Day: "2024-01-10", Error: "disk full"}, r.Failures[0])
	assert.False(t, r.OK())

	r.Fail("templates", 0, time.Time{}, errors.New("boom"))
	assert.Empty(t, r.Failures[1].Day)

	r.finish()
	assert.False(t, r.FinishedAt.IsZero())
	assert.Contains(t, r.String(), "expansion run "+r.RunID+" on 2024-01-10: created=3")
}
