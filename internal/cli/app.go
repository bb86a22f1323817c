package cli

import (
	"context"
	"fmt"

	"duty-planner/internal/clock"
	"duty-planner/internal/config"
	"duty-planner/internal/feed"
	appLog "duty-planner/internal/log"
	"duty-planner/internal/model"
	"duty-planner/internal/notify"
	"duty-planner/internal/repository"
	"duty-planner/internal/service"
)

// app is everything a command needs, built from the config file.
type app struct {
	cfg      config.Config
	store    *repository.Store
	clock    clock.Clock
	window   model.Window
	planner  *service.Planner
	notifier notify.Notifier
	feeds    *feed.Builder
}

func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	level := appLog.ParseLevel(cfg.LogLevel)
	if opts.Verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	loc, err := cfg.Location()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "timezone", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	store := repository.NewStore(db)

	if err := service.SeedMembers(ctx, store.Members, cfg.Members); err != nil {
		_ = store.Close()
		return nil, WrapExitError(ExitCommandError, "seed members", err)
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			// Alerts are optional; the planner keeps working without them.
			appLog.Error("telegram disabled", err)
		} else {
			notifier = tg
		}
	}

	clk := clock.NewSystem(loc)
	window := model.Window{
		ActiveDayStart: cfg.ActiveDayStart,
		ActiveDayEnd:   cfg.ActiveDayEnd,
		RetentionDays:  cfg.RetentionDays,
	}
	return &app{
		cfg:      cfg,
		store:    store,
		clock:    clk,
		window:   window,
		planner:  service.NewPlanner(store, clk, window, nil),
		notifier: notifier,
		feeds:    feed.NewBuilder(store.Events, clk, window),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// finish forwards a finished report to the notifier.
func (a *app) finish(ctx context.Context, report *service.Report) {
	if err := a.notifier.RunFinished(ctx, report); err != nil {
		appLog.Error("notify run failed", err, "kind", report.Kind, "run_id", report.RunID)
	}
}

func (a *app) String() string {
	return fmt.Sprintf("db=%s tz=%s window=[%d,%d] retention=%d",
		a.cfg.RedactedDatabaseURL(), a.cfg.Timezone, a.window.ActiveDayStart, a.window.ActiveDayEnd, a.window.RetentionDays)
}
