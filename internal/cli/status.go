package cli

import (
	"github.com/spf13/cobra"

	"biosync/internal/dashboard"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last sync status of every device",
	Long: `Queries biosync-server once and prints one row per registered device:
its ID, IP address, last successful sync ("Never" if none) and the time of
its most recent sync error. Use --details to print the error messages.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("details", false, "print the message of each device's last error")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	details, _ := cmd.Flags().GetBool("details")
	localize, err := localizer(clientConfig)
	if err != nil {
		return err
	}

	var failure error
	d := dashboard.New(newBackend(clientConfig), dashboard.Options{
		Localizer: localize,
		Notifier: dashboard.NotifierFunc(func(n dashboard.Notification) {
			if n.Level == dashboard.LevelError {
				failure = n.Err
			}
		}),
	})

	d.Refresh(cmd.Context())
	if failure != nil {
		logger.Error().Err(failure).Msg("status query failed")
		return failure
	}

	printTable(cmd.OutOrStdout(), d.Table(), details)
	return nil
}
