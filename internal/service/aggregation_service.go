package service

import (
	"context"
	"errors"
	"fmt"

	appLog "duty-planner/internal/log"
	"duty-planner/internal/metrics"
	"duty-planner/internal/model"
	"duty-planner/internal/repository"
)

type changeKind int

const (
	changeCreated changeKind = iota + 1
	changeRemoved
	changeStatus
	changeRead
)

// Change is the event-state transition a counter update reacts to.
type Change struct {
	kind     changeKind
	from, to model.TaskStatus
	userID   uint
}

// Created is a new event entering its bucket.
func Created() Change { return Change{kind: changeCreated} }

// Removed is an event leaving its bucket (deletion); its current state is reversed.
func Removed() Change { return Change{kind: changeRemoved} }

// StatusChanged is a task moving between statuses.
func StatusChanged(from, to model.TaskStatus) Change {
	return Change{kind: changeStatus, from: from, to: to}
}

// Read is userID reading an info.
func Read(userID uint) Change { return Change{kind: changeRead, userID: userID} }

var errChangeMismatch = errors.New("change does not apply to this event kind")

// AggregationService keeps Tag and TagInfo counters in step with events.
// Every call is one signed increment or decrement; nothing is recomputed.
type AggregationService struct{}

func NewAggregationService() *AggregationService {
	return &AggregationService{}
}

// UpdateCounters applies change for ev to its bucket. It must run in the same
// transaction as the event mutation it mirrors.
func (a *AggregationService) UpdateCounters(ctx context.Context, tx *repository.Store, ev *model.Event, change Change) error {
	delta, users, err := a.plan(ev, change)
	if err != nil {
		return err
	}
	if delta == 0 && len(users) == 0 {
		return nil
	}

	tag, err := tx.Tags.GetOrCreate(ctx, ev.Bucket(), ev.DateStatus, ev.ActiveDay)
	if err != nil {
		return err
	}

	if delta != 0 {
		clamped, err := tx.Tags.AddTasks(ctx, tag.ID, delta)
		if err != nil {
			return err
		}
		if clamped {
			drift("task", ev, tag, 0)
		}
	}

	for _, u := range users {
		if u.delta > 0 {
			if err := tx.Tags.IncrementUnread(ctx, tag.ID, u.id); err != nil {
				return err
			}
			continue
		}
		clamped, err := tx.Tags.DecrementUnread(ctx, tag.ID, u.id)
		if err != nil {
			return err
		}
		if clamped {
			drift("info", ev, tag, u.id)
		}
	}
	return nil
}

type userDelta struct {
	id    uint
	delta int
}

// plan turns a change into a task counter delta and per-user unread deltas.
func (a *AggregationService) plan(ev *model.Event, change Change) (int, []userDelta, error) {
	switch p := ev.Payload.(type) {
	case *model.TaskPayload:
		switch change.kind {
		case changeCreated:
			return openDelta(p.Status), nil, nil
		case changeRemoved:
			return -openDelta(p.Status), nil, nil
		case changeStatus:
			return openDelta(change.to) - openDelta(change.from), nil, nil
		}
	case *model.InfoPayload:
		switch change.kind {
		case changeCreated, changeRemoved:
			sign := 1
			if change.kind == changeRemoved {
				sign = -1
			}
			var users []userDelta
			for _, id := range p.UnreadUsers() {
				users = append(users, userDelta{id: id, delta: sign})
			}
			return 0, users, nil
		case changeRead:
			return 0, []userDelta{{id: change.userID, delta: -1}}, nil
		}
	case nil:
		return 0, nil, fmt.Errorf("update counters for event %d: no payload", ev.ID)
	}
	return 0, nil, fmt.Errorf("update counters for event %d (%s): %w", ev.ID, ev.Kind, errChangeMismatch)
}

func openDelta(s model.TaskStatus) int {
	if s.IsOpen() {
		return 1
	}
	return 0
}

func drift(counter string, ev *model.Event, tag *model.Tag, userID uint) {
	metrics.CounterDrift(counter)
	appLog.Error("counter would go negative, clamped at zero",
		errors.New("counter drift"),
		"counter", counter,
		"event_id", ev.ID,
		"tag_id", tag.ID,
		"user_id", userID,
	)
}
