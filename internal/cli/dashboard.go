package cli

import (
	"github.com/spf13/cobra"

	"biosync/internal/tui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive sync status dashboard",
	Long: `Opens a terminal dashboard listing every biometric device with its last
sync and last error. The status is loaded once on open.

Controls:
  r        - Refresh
  s        - Sync now (refreshes once more after a short delay)
  ↑/k, ↓/j - Select a device to see its last error message
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	localize, err := localizer(clientConfig)
	if err != nil {
		return err
	}
	logger.Info().Str("api_url", clientConfig.APIURL).Msg("dashboard opened")
	return tui.Run(cmd.Context(), newBackend(clientConfig), localize)
}
