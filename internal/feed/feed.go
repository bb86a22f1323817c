// Package feed renders a user's outstanding obligations as an iCalendar feed.
package feed

import (
	"context"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"duty-planner/internal/clock"
	appLog "duty-planner/internal/log"
	"duty-planner/internal/model"
)

const productID = "-//duty-planner//feed//EN"

// EventLister is the slice of the event repository the feed needs.
type EventLister interface {
	ListForUser(ctx context.Context, userID uint, from, to time.Time) ([]*model.Event, error)
}

type Builder struct {
	events EventLister
	clock  clock.Clock
	window model.Window
}

func NewBuilder(events EventLister, clk clock.Clock, window model.Window) *Builder {
	return &Builder{events: events, clock: clk, window: window}
}

// Render returns the ICS document of userID's open tasks and unread notices
// inside the active window.
func (b *Builder) Render(ctx context.Context, userID uint) ([]byte, error) {
	from, to := b.window.Range(b.clock.Today())
	events, err := b.events.ListForUser(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("render feed for user %d: %w", userID, err)
	}
	body := Calendar(events, userID, time.Now().UTC()).Serialize()
	appLog.Debug("feed rendered", "user_id", userID, "events", len(events), "bytes", len(body))
	return []byte(body), nil
}

// Calendar builds one all-day VEVENT per event still outstanding for userID.
func Calendar(events []*model.Event, userID uint, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range events {
		status, ok := outstanding(ev, userID)
		if !ok {
			continue
		}
		ve := cal.AddEvent(fmt.Sprintf("event-%d@duty-planner", ev.ID))
		ve.SetDtStampTime(stamp)
		ve.SetAllDayStartAt(ev.DueDate)
		ve.SetAllDayEndAt(clock.AddDays(ev.DueDate, 1))
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		ve.SetProperty(ical.ComponentPropertyCategories, categories(ev))
		ve.SetProperty(ical.ComponentPropertyStatus, status)
	}
	return cal
}

// outstanding reports whether ev still needs userID, and the ICS status for it.
func outstanding(ev *model.Event, userID uint) (string, bool) {
	if p, ok := ev.Task(); ok {
		if !p.Status.IsOpen() {
			return "", false
		}
		if p.Status == model.TaskPending {
			return "TENTATIVE", true
		}
		return "CONFIRMED", true
	}
	if p, ok := ev.Info(); ok {
		for _, r := range p.Receipts {
			if r.UserID == userID && !r.IsRead {
				return "CONFIRMED", true
			}
		}
	}
	return "", false
}

func categories(ev *model.Event) string {
	if ev.Side == "" {
		return fmt.Sprintf("%s,%s", ev.Kind, ev.Section)
	}
	return fmt.Sprintf("%s,%s,%s", ev.Kind, ev.Section, ev.Side)
}
