package model

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"duty-planner/internal/clock"
)

// Event is one dated occurrence of an obligation, created directly, expanded
// from a template, or carried forward from the previous day.
type Event struct {
	ID              uint       `gorm:"primaryKey"`
	DueDate         time.Time  `gorm:"not null;index;uniqueIndex:uk_events_template_due,priority:2"`
	FirstDueDate    time.Time  `gorm:"not null"`
	DateStatus      DateStatus `gorm:"not null;index"`
	ActiveDay       *int
	Side            string `gorm:"index:idx_events_bucket,priority:2"`
	Section         string `gorm:"not null;index:idx_events_bucket,priority:3"`
	Title           string `gorm:"not null"`
	Description     string
	Kind            Kind  `gorm:"not null;index"`
	TemplateID      *uint `gorm:"uniqueIndex:uk_events_template_due,priority:1"`
	ContinuedFromID *uint `gorm:"uniqueIndex"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Payload is persisted in its own table by the repository.
	Payload Payload `gorm:"-"`
}

// SetPayload installs p and keeps Kind in step with it.
func (e *Event) SetPayload(p Payload) {
	e.Payload = p
	if p != nil {
		e.Kind = p.Kind()
	}
}

func (e *Event) IsRecurring() bool { return e.TemplateID != nil }

func (e *Event) Task() (*TaskPayload, bool) {
	p, ok := e.Payload.(*TaskPayload)
	return p, ok && p != nil
}

func (e *Event) Info() (*InfoPayload, bool) {
	p, ok := e.Payload.(*InfoPayload)
	return p, ok && p != nil
}

// Users returns assignees for tasks and recipients for infos.
func (e *Event) Users() []uint {
	if e.Payload == nil {
		return nil
	}
	return e.Payload.Users()
}

// Bucket is the counter bucket the event contributes to.
func (e *Event) Bucket() Bucket {
	return Bucket{Day: clock.Day(e.DueDate), Side: e.Side, Section: e.Section}
}

// AttachPayload links the payload rows to the persisted event id.
func (e *Event) AttachPayload() {
	if e.Payload != nil {
		e.Payload.attach(e.ID)
	}
}

var errPayloadMissing = errors.New("event has no payload")

// CheckPayload enforces that exactly one matching payload is present.
func (e *Event) CheckPayload() error {
	if e.Payload == nil {
		return errPayloadMissing
	}
	if e.Payload.Kind() != e.Kind {
		return fmt.Errorf("event kind %q does not match %q payload", e.Kind, e.Payload.Kind())
	}
	return nil
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	if err := e.CheckPayload(); err != nil {
		return err
	}
	if e.FirstDueDate.IsZero() {
		e.FirstDueDate = e.DueDate
	}
	return nil
}
