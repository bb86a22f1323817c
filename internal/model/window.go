package model

import (
	"time"

	"duty-planner/internal/clock"
)

// Window is the signed-day range around today in which events are active,
// together with the retention horizon behind it.
type Window struct {
	ActiveDayStart int
	ActiveDayEnd   int
	RetentionDays  int
}

// Range returns the first and last day of the active window.
func (w Window) Range(now time.Time) (time.Time, time.Time) {
	return clock.AddDays(now, w.ActiveDayStart), clock.AddDays(now, w.ActiveDayEnd)
}

// Horizon is the oldest day still retained; anything due before it is pruned.
func (w Window) Horizon(now time.Time) time.Time {
	return clock.AddDays(now, -w.RetentionDays)
}

// Classify computes the date status of due as seen on now. The active day is
// only set inside the window and is the signed offset of due from now:
// yesterday is -1, tomorrow +1, so the active range is exactly Range(now).
func (w Window) Classify(due, now time.Time) (DateStatus, *int) {
	offset := clock.DaysBetween(now, due)
	switch {
	case offset < w.ActiveDayStart:
		return DateStatusPast, nil
	case offset > w.ActiveDayEnd:
		return DateStatusFuture, nil
	default:
		return DateStatusActive, &offset
	}
}
