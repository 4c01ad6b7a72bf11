// Package cli implements the biosync operator commands.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"biosync/internal/config"
	"biosync/internal/dashboard"
	"biosync/internal/logging"
	"biosync/internal/statusclient"
)

var (
	clientConfig *config.Client
	logger       = zerolog.Nop()
	logFile      io.Closer
)

// newBackend builds the backend the commands talk to. Tests replace it.
var newBackend = func(cfg *config.Client) dashboard.Backend {
	return statusclient.New(statusclient.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.HTTPTimeout,
	})
}

var rootCmd = &cobra.Command{
	Use:   "biosync",
	Short: "Biometric attendance sync console",
	Long: `biosync shows when each biometric device last synced attendance and
lets an operator start a sync run on demand.

Configuration is read from flags, BIOSYNC_* environment variables and an
optional .env file, in that order of precedence.`,
	SilenceUsage:       true,
	PersistentPreRunE:  loadConfig,
	PersistentPostRunE: closeLog,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("api-url", "", "biosync-server base URL (BIOSYNC_API_URL)")
	f.String("timezone", "", "IANA time zone for displayed timestamps (BIOSYNC_TIMEZONE)")
	f.String("time-format", "", "Go time layout for displayed timestamps (BIOSYNC_TIME_FORMAT)")
	f.Duration("timeout", 0, "per-request HTTP timeout (BIOSYNC_HTTP_TIMEOUT)")
	f.String("log-level", "", "log level (BIOSYNC_LOG_LEVEL)")
	f.String("log-file", "", "write logs to this file instead of discarding them (BIOSYNC_LOG_FILE)")
}

var flagKeys = map[string]string{
	"api-url":     "BIOSYNC_API_URL",
	"timezone":    "BIOSYNC_TIMEZONE",
	"time-format": "BIOSYNC_TIME_FORMAT",
	"timeout":     "BIOSYNC_HTTP_TIMEOUT",
	"log-level":   "BIOSYNC_LOG_LEVEL",
	"log-file":    "BIOSYNC_LOG_FILE",
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	v := config.NewViper()
	for name, key := range flagKeys {
		if fl := cmd.Flags().Lookup(name); fl != nil && fl.Changed {
			if err := v.BindPFlag(key, fl); err != nil {
				return err
			}
		}
	}

	cfg, err := config.LoadClient(v)
	if err != nil {
		return err
	}
	clientConfig = cfg

	var w io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		logFile = f
		w = f
	}
	logger = logging.NewWithWriter(w, cfg.LogLevel, "biosync")
	return nil
}

func closeLog(*cobra.Command, []string) error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func localizer(cfg *config.Client) (dashboard.Localizer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return dashboard.NewLocalizer(loc, cfg.TimeFormat), nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
