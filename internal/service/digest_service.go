package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"duty-planner/internal/clock"
	"duty-planner/internal/model"
	"duty-planner/internal/repository"
)

// DigestService builds human-readable summaries for daily notifications.
// Output uses Telegram's HTML subset.
type DigestService struct {
	store  *repository.Store
	clock  clock.Clock
	window model.Window
}

func NewDigestService(store *repository.Store, clk clock.Clock, window model.Window) *DigestService {
	return &DigestService{store: store, clock: clk, window: window}
}

type digestGroup struct {
	side, section string
	tasks         []*model.Event
	infos         []*model.Event
}

// DailyDigest lists what is still outstanding on day, per side and section.
func (s *DigestService) DailyDigest(ctx context.Context, day time.Time) (string, error) {
	day = clock.Day(day)
	events, err := s.store.Events.ListDueOn(ctx, day)
	if err != nil {
		return "", err
	}

	groups := map[[2]string]*digestGroup{}
	for _, ev := range events {
		key := [2]string{ev.Side, ev.Section}
		g := groups[key]
		if g == nil {
			g = &digestGroup{side: ev.Side, section: ev.Section}
			groups[key] = g
		}
		if p, ok := ev.Task(); ok && p.Status.IsOpen() {
			g.tasks = append(g.tasks, ev)
		}
		if p, ok := ev.Info(); ok && !p.IsFullyRead {
			g.infos = append(g.infos, ev)
		}
	}
	sorted := make([]*digestGroup, 0, len(groups))
	for _, g := range groups {
		if len(g.tasks)+len(g.infos) > 0 {
			sorted = append(sorted, g)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].side != sorted[j].side {
			return sorted[i].side < sorted[j].side
		}
		return sorted[i].section < sorted[j].section
	})

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", day.Format("02.01.2006")))

	if len(sorted) == 0 {
		builder.WriteString("\n— nothing outstanding\n")
	}
	for _, g := range sorted {
		builder.WriteString(fmt.Sprintf("\n<b>%s</b>\n", html.EscapeString(groupTitle(g.side, g.section))))
		for _, ev := range g.tasks {
			builder.WriteString(formatTask(ev))
		}
		for _, ev := range g.infos {
			builder.WriteString(formatInfo(ev))
		}
	}
	return strings.TrimSpace(builder.String()), nil
}

// UserDigest lists the open tasks and unread notices of userID in the active window.
func (s *DigestService) UserDigest(ctx context.Context, userID uint) (string, error) {
	now := s.clock.Today()
	from, to := s.window.Range(now)
	events, err := s.store.Events.ListForUser(ctx, userID, from, to)
	if err != nil {
		return "", err
	}

	var tasks, infos []*model.Event
	for _, ev := range events {
		if p, ok := ev.Task(); ok && p.Status.IsOpen() {
			tasks = append(tasks, ev)
		}
		if p, ok := ev.Info(); ok && unreadBy(p, userID) {
			infos = append(infos, ev)
		}
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("👤 <b>Your duties</b> · %s\n", now.Format("02.01.2006")))

	builder.WriteString("\n🔥 <b>Open tasks</b>\n")
	if len(tasks) == 0 {
		builder.WriteString("— no open tasks\n")
	}
	for _, ev := range tasks {
		builder.WriteString(formatDated(ev, formatTask(ev)))
	}

	builder.WriteString("\n📨 <b>Unread notices</b>\n")
	if len(infos) == 0 {
		builder.WriteString("— all read\n")
	}
	for _, ev := range infos {
		builder.WriteString(formatDated(ev, formatInfo(ev)))
	}
	return strings.TrimSpace(builder.String()), nil
}

func unreadBy(p *model.InfoPayload, userID uint) bool {
	for _, r := range p.Receipts {
		if r.UserID == userID {
			return !r.IsRead
		}
	}
	return false
}

func groupTitle(side, section string) string {
	if side == "" {
		return section
	}
	return side + " / " + section
}

var statusIcons = map[model.TaskStatus]string{
	model.TaskTodo:    "🟢",
	model.TaskPending: "⏳",
	model.TaskWarning: "⚠️",
	model.TaskLate:    "🔴",
}

func formatTask(ev *model.Event) string {
	var sb strings.Builder
	p, _ := ev.Task()

	sb.WriteString(fmt.Sprintf("%s %s", statusIcons[p.Status], html.EscapeString(strings.TrimSpace(ev.Title))))
	if p.IsPending && ev.FirstDueDate.Before(ev.DueDate) {
		sb.WriteString(fmt.Sprintf(" <i>(carried since %s)</i>", ev.FirstDueDate.Format(time.DateOnly)))
	}
	if ev.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(ev.Description))))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func formatInfo(ev *model.Event) string {
	p, _ := ev.Info()
	unread := len(p.UnreadUsers())
	return fmt.Sprintf("📨 %s <i>(%d/%d unread)</i>\n", html.EscapeString(strings.TrimSpace(ev.Title)), unread, p.SharedWithCount)
}

func formatDated(ev *model.Event, line string) string {
	return fmt.Sprintf("%s · %s", ev.DueDate.Format("02.01"), line)
}
