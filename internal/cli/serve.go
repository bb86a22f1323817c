package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	appLog "duty-planner/internal/log"
	"duty-planner/internal/ops"
	"duty-planner/internal/service"
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daily jobs on schedule and serve ops endpoints",
		Long: `Run rollover and expansion every day at the configured times and, when
metrics_listen is set, serve /healthz, /readyz, /metrics and per-user ICS
feeds. Both jobs also run once at startup so a restart never misses a day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
}

func serve(ctx context.Context, opts *RootOptions) error {
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	loc, _ := a.cfg.Location()
	scheduler := service.NewSchedulerService(loc)

	job := func(run func(context.Context) *service.Report) func() {
		return func() {
			jobCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
			defer cancel()
			a.finish(jobCtx, run(jobCtx))
		}
	}
	rollover := job(a.planner.RunDailyRollover)
	expansion := job(a.planner.RunExpansion)

	if _, err := scheduler.ScheduleDaily("rollover", a.cfg.RolloverAt, rollover); err != nil {
		return WrapExitError(ExitCommandError, "schedule rollover", err)
	}
	if _, err := scheduler.ScheduleDaily("expansion", a.cfg.ExpansionAt, expansion); err != nil {
		return WrapExitError(ExitCommandError, "schedule expansion", err)
	}

	rollover()
	expansion()

	scheduler.Start()
	defer scheduler.Stop()

	var srv *http.Server
	if a.cfg.MetricsListen != "" {
		srv = &http.Server{
			Addr:              a.cfg.MetricsListen,
			Handler:           ops.NewRouter(a.store, a.feeds),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			appLog.Info("ops server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLog.Error("ops server stopped", err)
			}
		}()
	}

	appLog.Info("duty planner started", "config", a.String())
	<-ctx.Done()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.Error("ops server shutdown", err)
		}
	}
	appLog.Info("shutdown complete")
	return nil
}
