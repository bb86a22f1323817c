// Package clock provides the day-granularity clock every run is threaded through.
//
// Days are represented as time.Time values at midnight UTC carrying the civil
// date of the configured location, so they compare and persist without any
// timezone ambiguity.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current civil date.
type Clock interface {
	Today() time.Time
}

// System reads the wall clock in Location.
type System struct {
	Location *time.Location
}

func NewSystem(loc *time.Location) System {
	if loc == nil {
		loc = time.Local
	}
	return System{Location: loc}
}

func (s System) Today() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	return Day(time.Now().In(loc))
}

// Fixed always reports the same day. It can be moved forward for tests that
// simulate several consecutive rollovers.
type Fixed struct {
	mu  sync.Mutex
	day time.Time
}

func NewFixed(day time.Time) *Fixed {
	return &Fixed{day: Day(day)}
}

func (f *Fixed) Today() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.day
}

// Set moves the clock to day.
func (f *Fixed) Set(day time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.day = Day(day)
}

// Advance moves the clock n days forward (or backward for negative n).
func (f *Fixed) Advance(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.day = AddDays(f.day, n)
}

// Day truncates t to its civil date, expressed at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a day from its components.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a day by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return Day(day).AddDate(0, 0, n)
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// DaysInMonth returns the number of days of month in year.
func DaysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	return Date(year, month, 1).AddDate(0, 1, -1).Day()
}
