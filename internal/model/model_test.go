package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duty-planner/internal/clock"
)

func TestRecurrence_Constructors(t *testing.T) {
	r, err := Weekdays(5, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, RecurWeekdays, r.Kind())
	assert.Equal(t, []int{2, 5}, r.Days())

	_, err = Weekdays(0)
	assert.Error(t, err)
	_, err = Weekdays(8)
	assert.Error(t, err)
	_, err = MonthDays(32)
	assert.Error(t, err)
	_, err = MonthDays()
	assert.Error(t, err)
	_, err = ExplicitDates()
	assert.Error(t, err)

	assert.Error(t, Recurrence{}.Validate(), "zero value has no shape")
	assert.NoError(t, Everyday().Validate())
}

func TestRecurrence_RoundTripThroughStoredForm(t *testing.T) {
	weekdays, _ := Weekdays(2, 5)
	monthDays, _ := MonthDays(31, 1)
	dates, _ := ExplicitDates(clock.Date(2024, 1, 9), clock.Date(2024, 1, 5), clock.Date(2024, 1, 9))

	for _, r := range []Recurrence{Everyday(), weekdays, monthDays, dates} {
		t.Run(string(r.Kind()), func(t *testing.T) {
			v, err := r.Value()
			require.NoError(t, err)

			var back Recurrence
			require.NoError(t, back.Scan(v))
			assert.True(t, r.Equal(back), "%s != %s", r, back)
		})
	}

	assert.Equal(t, "explicitDates:2024-01-05,2024-01-09", dates.String())
	assert.Equal(t, "monthDays:1,31", monthDays.String())
}

func TestRecurrence_ScanKeepsGarbageInvalid(t *testing.T) {
	for _, raw := range []string{"hourly:1", "weekdays:mon", "everyday:1", "monthDays:0"} {
		var r Recurrence
		require.NoError(t, r.Scan(raw), "a bad row must not fail the query")
		assert.ErrorContains(t, r.Validate(), raw)
	}

	var r Recurrence
	assert.Error(t, r.Scan(42))

	_, err := Recurrence{}.Value()
	assert.Error(t, err)
}

func TestUserIDs_ScanAndValue(t *testing.T) {
	ids := NewUserIDs(3, 1, 3, 0)
	assert.Equal(t, UserIDs{1, 3}, ids)

	v, err := ids.Value()
	require.NoError(t, err)
	assert.Equal(t, "1,3", v)

	var back UserIDs
	require.NoError(t, back.Scan([]byte("3, 1,")))
	assert.Equal(t, UserIDs{1, 3}, back)
}

func TestWindow_Classify(t *testing.T) {
	w := Window{ActiveDayStart: -3, ActiveDayEnd: 7, RetentionDays: 30}
	now := clock.Date(2024, 1, 10)

	tests := []struct {
		due        time.Time
		wantStatus DateStatus
		wantActive *int
	}{
		{clock.Date(2024, 1, 10), DateStatusActive, ptr(0)},
		{clock.Date(2024, 1, 7), DateStatusActive, ptr(-3)},
		{clock.Date(2024, 1, 17), DateStatusActive, ptr(7)},
		{clock.Date(2024, 1, 6), DateStatusPast, nil},
		{clock.Date(2024, 1, 18), DateStatusFuture, nil},
	}
	for _, tt := range tests {
		status, active := w.Classify(tt.due, now)
		assert.Equal(t, tt.wantStatus, status, tt.due.Format(time.DateOnly))
		assert.Equal(t, tt.wantActive, active, tt.due.Format(time.DateOnly))
	}

	start, end := w.Range(now)
	assert.Equal(t, clock.Date(2024, 1, 7), start)
	assert.Equal(t, clock.Date(2024, 1, 17), end)
	assert.Equal(t, clock.Date(2023, 12, 11), w.Horizon(now))
}

func TestWindow_ActiveDayIsOffsetOfDueFromToday(t *testing.T) {
	w := Window{ActiveDayStart: -3, ActiveDayEnd: 7, RetentionDays: 30}
	now := clock.Date(2024, 1, 10)

	status, active := w.Classify(clock.AddDays(now, -1), now)
	assert.Equal(t, DateStatusActive, status)
	assert.Equal(t, ptr(-1), active, "yesterday")

	_, active = w.Classify(clock.AddDays(now, 1), now)
	assert.Equal(t, ptr(1), active, "tomorrow")

	// Every day the expansion fills is classified active, nothing outside it is.
	start, end := w.Range(now)
	for d := start; !d.After(end); d = clock.AddDays(d, 1) {
		status, _ := w.Classify(d, now)
		assert.Equal(t, DateStatusActive, status, d.Format(time.DateOnly))
	}
	status, _ = w.Classify(clock.AddDays(start, -1), now)
	assert.Equal(t, DateStatusPast, status)
	status, _ = w.Classify(clock.AddDays(end, 1), now)
	assert.Equal(t, DateStatusFuture, status)
}

func TestTaskStatus_IsOpen(t *testing.T) {
	for _, s := range []TaskStatus{TaskTodo, TaskPending, TaskWarning, TaskLate} {
		assert.True(t, s.IsOpen(), s)
	}
	for _, s := range []TaskStatus{TaskDone, TaskUnrealised} {
		assert.False(t, s.IsOpen(), s)
	}
	assert.False(t, TaskStatus("archived").Valid())
}

func TestInfoPayload_MarkRead(t *testing.T) {
	p := NewInfoPayload([]uint{3, 1, 2})
	assert.Equal(t, 3, p.SharedWithCount)
	assert.Equal(t, []uint{1, 2, 3}, p.UnreadUsers())

	assert.True(t, p.MarkRead(1))
	assert.False(t, p.MarkRead(1), "second read is a no-op")
	assert.False(t, p.MarkRead(9), "not a recipient")
	assert.Equal(t, []uint{2, 3}, p.UnreadUsers())
	assert.False(t, p.IsFullyRead)

	p.MarkRead(2)
	p.MarkRead(3)
	assert.True(t, p.IsFullyRead)
}

func TestEvent_PayloadUnion(t *testing.T) {
	ev := &Event{DueDate: clock.Date(2024, 1, 10)}
	assert.Error(t, ev.CheckPayload())

	ev.SetPayload(NewTaskPayload(TaskTodo, []uint{2}))
	require.NoError(t, ev.CheckPayload())
	assert.Equal(t, KindTask, ev.Kind)
	_, isInfo := ev.Info()
	assert.False(t, isInfo)

	ev.Kind = KindInfo
	assert.Error(t, ev.CheckPayload(), "kind and payload must agree")

	ev.ID = 12
	ev.SetPayload(NewInfoPayload([]uint{4, 5}))
	ev.AttachPayload()
	info, ok := ev.Info()
	require.True(t, ok)
	assert.Equal(t, uint(12), info.EventID)
	assert.Equal(t, uint(12), info.Receipts[1].EventID)
}

func TestTemplate_Validate(t *testing.T) {
	end := clock.Date(2023, 12, 1)
	tpl := &RecurrenceTemplate{PeriodStart: clock.Date(2024, 1, 1), PeriodEnd: &end, Kind: "chore"}

	err := tpl.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"title", "section", "kind", "periodEnd", "recurrence"} {
		assert.True(t, verr.Has(field), field)
	}
	assert.False(t, verr.Has("periodStart"))
}

func TestTemplate_Covers(t *testing.T) {
	end := clock.Date(2024, 1, 31)
	tpl := &RecurrenceTemplate{PeriodStart: clock.Date(2024, 1, 1), PeriodEnd: &end}

	assert.True(t, tpl.Covers(clock.Date(2024, 1, 1)))
	assert.True(t, tpl.Covers(clock.Date(2024, 1, 31)))
	assert.False(t, tpl.Covers(clock.Date(2024, 2, 1)))
	assert.False(t, tpl.Covers(clock.Date(2023, 12, 31)))

	tpl.PeriodEnd = nil
	assert.True(t, tpl.Covers(clock.Date(2030, 1, 1)))
}

func TestNormalizeKey(t *testing.T) {
	// "é" composed vs decomposed.
	assert.Equal(t, NormalizeKey("caf\u00e9"), NormalizeKey(" cafe\u0301 "))
}

func ptr(n int) *int { return &n }
