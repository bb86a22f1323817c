package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"duty-planner/internal/clock"
)

// DigestOptions holds flags for the digest command.
type DigestOptions struct {
	*RootOptions
	Day  string
	User uint
	Send bool
}

func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DigestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print the outstanding duties of a day or a user",
		Long: `Print the outstanding duties of a day, per side and section, or of one
user across the active window.

Example:
  dutyplanner digest --day 2024-01-10
  dutyplanner digest --user 7 --send`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			var text string
			if opts.User != 0 {
				text, err = a.planner.Digest.UserDigest(ctx, opts.User)
			} else {
				day := a.clock.Today()
				if opts.Day != "" {
					if day, err = clock.ParseDay(opts.Day); err != nil {
						return WrapExitError(ExitCommandError, "parse --day", err)
					}
				}
				text, err = a.planner.Digest.DailyDigest(ctx, day)
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "build digest", err)
			}

			if opts.Send {
				if err := a.notifier.Send(ctx, text); err != nil {
					return WrapExitError(ExitFailure, "send digest", err)
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Day, "day", "", "day to summarize (YYYY-MM-DD, default today)")
	cmd.Flags().UintVar(&opts.User, "user", 0, "summarize one user's window instead of a day")
	cmd.Flags().BoolVar(&opts.Send, "send", false, "also send the digest to the configured chat")
	cmd.MarkFlagsMutuallyExclusive("day", "user")

	return cmd
}
