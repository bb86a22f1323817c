package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"duty-planner/internal/clock"
)

// RecurrenceKind names the shape of a recurrence.
type RecurrenceKind string

const (
	RecurEveryday      RecurrenceKind = "everyday"
	RecurWeekdays      RecurrenceKind = "weekdays"
	RecurMonthDays     RecurrenceKind = "monthDays"
	RecurExplicitDates RecurrenceKind = "explicitDates"
)

// Recurrence is exactly one of Everyday, Weekdays, MonthDays or ExplicitDates.
// Values are only obtainable through the constructors, which validate their
// arguments; the zero value is invalid and rejected by Validate.
//
// Weekdays are numbered 1 (Monday) through 7 (Sunday).
type Recurrence struct {
	kind  RecurrenceKind
	days  []int
	dates []time.Time

	// err keeps a decoding failure of a stored value so that one bad row
	// fails its own validation instead of the whole query.
	err error
}

func Everyday() Recurrence {
	return Recurrence{kind: RecurEveryday}
}

func Weekdays(days ...int) (Recurrence, error) {
	set, err := intSet(days, 1, 7)
	if err != nil {
		return Recurrence{}, fmt.Errorf("weekdays: %w", err)
	}
	return Recurrence{kind: RecurWeekdays, days: set}, nil
}

func MonthDays(days ...int) (Recurrence, error) {
	set, err := intSet(days, 1, 31)
	if err != nil {
		return Recurrence{}, fmt.Errorf("month days: %w", err)
	}
	return Recurrence{kind: RecurMonthDays, days: set}, nil
}

func ExplicitDates(dates ...time.Time) (Recurrence, error) {
	if len(dates) == 0 {
		return Recurrence{}, errors.New("explicit dates: at least one date is required")
	}
	set := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := clock.Day(d)
		if !slices.ContainsFunc(set, day.Equal) {
			set = append(set, day)
		}
	}
	slices.SortFunc(set, func(a, b time.Time) int { return a.Compare(b) })
	return Recurrence{kind: RecurExplicitDates, dates: set}, nil
}

func intSet(values []int, lo, hi int) ([]int, error) {
	if len(values) == 0 {
		return nil, errors.New("at least one value is required")
	}
	set := make([]int, 0, len(values))
	for _, v := range values {
		if v < lo || v > hi {
			return nil, fmt.Errorf("%d is outside %d..%d", v, lo, hi)
		}
		if !slices.Contains(set, v) {
			set = append(set, v)
		}
	}
	slices.Sort(set)
	return set, nil
}

func (r Recurrence) Kind() RecurrenceKind { return r.kind }

// Days returns the weekday or month-day set.
func (r Recurrence) Days() []int { return slices.Clone(r.days) }

// Dates returns the explicit date set.
func (r Recurrence) Dates() []time.Time { return slices.Clone(r.dates) }

func (r Recurrence) IsZero() bool { return r.kind == "" }

func (r Recurrence) Validate() error {
	if r.err != nil {
		return r.err
	}
	switch r.kind {
	case RecurEveryday:
		return nil
	case RecurWeekdays, RecurMonthDays:
		if len(r.days) == 0 {
			return fmt.Errorf("%s recurrence has no days", r.kind)
		}
		return nil
	case RecurExplicitDates:
		if len(r.dates) == 0 {
			return errors.New("explicitDates recurrence has no dates")
		}
		return nil
	case "":
		return errors.New("no recurrence shape set")
	default:
		return fmt.Errorf("unknown recurrence shape %q", r.kind)
	}
}

func (r Recurrence) Equal(o Recurrence) bool {
	return r.kind == o.kind && slices.Equal(r.days, o.days) &&
		slices.EqualFunc(r.dates, o.dates, func(a, b time.Time) bool { return a.Equal(b) })
}

// String encodes the recurrence as "kind:v1,v2"; it is also the stored form.
func (r Recurrence) String() string {
	var values []string
	for _, d := range r.days {
		values = append(values, strconv.Itoa(d))
	}
	for _, d := range r.dates {
		values = append(values, d.Format(time.DateOnly))
	}
	if len(values) == 0 {
		return string(r.kind)
	}
	return string(r.kind) + ":" + strings.Join(values, ",")
}

// ParseRecurrence decodes the String form.
func ParseRecurrence(s string) (Recurrence, error) {
	kind, raw, _ := strings.Cut(strings.TrimSpace(s), ":")
	var values []string
	if raw != "" {
		values = strings.Split(raw, ",")
	}

	switch RecurrenceKind(kind) {
	case RecurEveryday:
		if len(values) > 0 {
			return Recurrence{}, errors.New("everyday recurrence takes no values")
		}
		return Everyday(), nil
	case RecurWeekdays, RecurMonthDays:
		days := make([]int, 0, len(values))
		for _, v := range values {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return Recurrence{}, fmt.Errorf("parse %s value %q: %w", kind, v, err)
			}
			days = append(days, n)
		}
		if RecurrenceKind(kind) == RecurWeekdays {
			return Weekdays(days...)
		}
		return MonthDays(days...)
	case RecurExplicitDates:
		dates := make([]time.Time, 0, len(values))
		for _, v := range values {
			d, err := clock.ParseDay(strings.TrimSpace(v))
			if err != nil {
				return Recurrence{}, fmt.Errorf("parse date %q: %w", v, err)
			}
			dates = append(dates, d)
		}
		return ExplicitDates(dates...)
	default:
		return Recurrence{}, fmt.Errorf("unknown recurrence shape %q", kind)
	}
}

func (Recurrence) GormDataType() string { return "string" }

func (r Recurrence) Value() (driver.Value, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r.String(), nil
}

func (r *Recurrence) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan recurrence: unsupported type %T", src)
	}
	parsed, err := ParseRecurrence(s)
	if err != nil {
		*r = Recurrence{err: fmt.Errorf("stored recurrence %q: %w", s, err)}
		return nil
	}
	*r = parsed
	return nil
}
