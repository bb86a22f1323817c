package model

import (
	"strings"
	"time"
)

// RecurrenceTemplate is a reusable definition of a recurring obligation.
type RecurrenceTemplate struct {
	ID          uint       `gorm:"primaryKey"`
	PeriodStart time.Time  `gorm:"not null;index"`
	PeriodEnd   *time.Time `gorm:"index"` // nil means unbounded
	Recurrence  Recurrence `gorm:"not null"`
	Title       string     `gorm:"not null"`
	Description string
	Section     string `gorm:"not null;index"`
	Side        string
	Kind        Kind    `gorm:"not null"`
	Users       UserIDs `gorm:"not null;default:''"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the template invariants and returns a *ValidationError.
func (t *RecurrenceTemplate) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(t.Title) == "" {
		verr.Add("title", "is required")
	}
	if strings.TrimSpace(t.Section) == "" {
		verr.Add("section", "is required")
	}
	if !t.Kind.Valid() {
		verr.Add("kind", "must be %q or %q", KindTask, KindInfo)
	}
	if t.PeriodStart.IsZero() {
		verr.Add("periodStart", "is required")
	}
	if t.PeriodEnd != nil && t.PeriodEnd.Before(t.PeriodStart) {
		verr.Add("periodEnd", "is before periodStart")
	}
	if err := t.Recurrence.Validate(); err != nil {
		verr.Add("recurrence", "%v", err)
	}
	return verr.Err()
}

// Covers reports whether day falls inside the template period.
func (t *RecurrenceTemplate) Covers(day time.Time) bool {
	if day.Before(t.PeriodStart) {
		return false
	}
	return t.PeriodEnd == nil || !day.After(*t.PeriodEnd)
}
