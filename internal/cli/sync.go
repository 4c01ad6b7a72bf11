package cli

import (
	"time"

	"github.com/spf13/cobra"

	"biosync/internal/dashboard"
)

// afterFunc schedules the deferred refresh of `sync --wait`. Tests replace it.
var afterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Start an attendance sync run",
	Long: `Asks biosync-server to start a sync run and returns once the request is
accepted. The run itself continues in the background.

With --wait, the status is queried once more after a fixed delay and printed.
A run that takes longer than the delay still shows the previous values.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("wait", false, "print the status once after the refresh delay")
	syncCmd.Flags().Bool("details", false, "with --wait, print the message of each device's last error")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	wait, _ := cmd.Flags().GetBool("wait")
	details, _ := cmd.Flags().GetBool("details")
	localize, err := localizer(clientConfig)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	refreshed := make(chan struct{})

	var failure error
	d := dashboard.New(newBackend(clientConfig), dashboard.Options{
		Localizer:   localize,
		BaseContext: ctx,
		Notifier: dashboard.NotifierFunc(func(n dashboard.Notification) {
			if n.Level == dashboard.LevelError {
				failure = n.Err
				return
			}
			cmd.Println(n.Message)
		}),
		Scheduler: dashboard.SchedulerFunc(func(delay time.Duration, f func()) {
			if !wait {
				return
			}
			cmd.Printf("Refreshing in %s...\n", delay)
			afterFunc(delay, func() {
				f()
				close(refreshed)
			})
		}),
	})

	d.TriggerSyncNow(ctx)
	if failure != nil {
		logger.Error().Err(failure).Msg("sync trigger failed")
		return failure
	}
	if !wait {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-refreshed:
	}
	if failure != nil {
		logger.Error().Err(failure).Msg("deferred status query failed")
		return failure
	}
	printTable(out, d.Table(), details)
	return nil
}
