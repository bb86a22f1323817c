package service

import (
	"context"
	"time"

	"duty-planner/internal/clock"
	appLog "duty-planner/internal/log"
	"duty-planner/internal/metrics"
	"duty-planner/internal/model"
	"duty-planner/internal/repository"
)

// RepairService rebuilds the denormalized counters from the events table.
type RepairService struct {
	store *repository.Store
	clock clock.Clock
}

func NewRepairService(store *repository.Store, clk clock.Clock) *RepairService {
	return &RepairService{store: store, clock: clk}
}

type bucketCount struct {
	tasks  int
	unread map[uint]int
	status model.DateStatus
	active *int
}

// Recompute recounts every bucket and overwrites counters that drifted. The
// number of corrected counters is reported as Drift.
func (s *RepairService) Recompute(ctx context.Context) *Report {
	report := newReport(RunRepair, s.clock.Today())

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		events, err := tx.Events.ListDueFrom(ctx, time.Time{})
		if err != nil {
			return err
		}
		want := make(map[model.Bucket]*bucketCount)
		for _, ev := range events {
			b := ev.Bucket()
			c := want[b]
			if c == nil {
				c = &bucketCount{unread: map[uint]int{}, status: ev.DateStatus, active: ev.ActiveDay}
				want[b] = c
			}
			switch p := ev.Payload.(type) {
			case *model.TaskPayload:
				c.tasks += openDelta(p.Status)
			case *model.InfoPayload:
				for _, id := range p.UnreadUsers() {
					c.unread[id]++
				}
			}
		}

		tags, err := tx.Tags.ListFrom(ctx, time.Time{})
		if err != nil {
			return err
		}
		seen := make(map[model.Bucket]bool, len(tags))
		for _, tag := range tags {
			b := tag.Bucket()
			seen[b] = true
			c := want[b]
			if c == nil {
				c = &bucketCount{unread: map[uint]int{}}
			}
			if err := s.fix(ctx, tx, tag, c, report); err != nil {
				return err
			}
		}

		for b, c := range want {
			if seen[b] || (c.tasks == 0 && len(c.unread) == 0) {
				continue
			}
			tag, err := tx.Tags.GetOrCreate(ctx, b, c.status, c.active)
			if err != nil {
				return err
			}
			if err := s.fix(ctx, tx, tag, c, report); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		report.Fail("recompute", 0, time.Time{}, err)
	}

	appLog.Info("recompute finished", "run_id", report.RunID, "drift", report.Drift, "failures", len(report.Failures))
	return report.finish()
}

// fix overwrites the counters of tag that differ from c.
func (s *RepairService) fix(ctx context.Context, tx *repository.Store, tag *model.Tag, c *bucketCount, report *Report) error {
	if tag.TaskCount != c.tasks {
		appLog.Info("task counter drift", "tag_id", tag.ID, "stored", tag.TaskCount, "counted", c.tasks)
		metrics.CounterDrift("task")
		if err := tx.Tags.SetTaskCount(ctx, tag.ID, c.tasks); err != nil {
			return err
		}
		report.Drift++
	}

	stored := make(map[uint]int, len(tag.Infos))
	for _, info := range tag.Infos {
		stored[info.UserID] = info.UnreadInfoCount
	}
	users := make(map[uint]bool, len(stored)+len(c.unread))
	for id := range stored {
		users[id] = true
	}
	for id := range c.unread {
		users[id] = true
	}
	for id := range users {
		if stored[id] == c.unread[id] {
			continue
		}
		appLog.Info("unread counter drift", "tag_id", tag.ID, "user_id", id, "stored", stored[id], "counted", c.unread[id])
		metrics.CounterDrift("info")
		if err := tx.Tags.SetUnread(ctx, tag.ID, id, c.unread[id]); err != nil {
			return err
		}
		report.Drift++
	}
	return nil
}
