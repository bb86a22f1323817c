package cli

import (
	"context"

	"github.com/spf13/cobra"

	"duty-planner/internal/service"
)

// batchCommand builds a one-shot command around one batch run.
func batchCommand(opts *RootOptions, use, short string, run func(context.Context, *service.Planner) *service.Report) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			report := run(ctx, a.planner)
			a.finish(ctx, report)
			return writeReport(cmd.OutOrStdout(), opts.Format, report)
		},
	}
}

func NewRolloverCommand(opts *RootOptions) *cobra.Command {
	return batchCommand(opts, "rollover", "Run the daily rollover once", func(ctx context.Context, p *service.Planner) *service.Report {
		return p.RunDailyRollover(ctx)
	})
}

func NewExpandCommand(opts *RootOptions) *cobra.Command {
	return batchCommand(opts, "expand", "Expand every template into the active window", func(ctx context.Context, p *service.Planner) *service.Report {
		return p.RunExpansion(ctx)
	})
}

func NewRepairCommand(opts *RootOptions) *cobra.Command {
	return batchCommand(opts, "repair", "Recount all counters from events", func(ctx context.Context, p *service.Planner) *service.Report {
		return p.Recompute(ctx)
	})
}
