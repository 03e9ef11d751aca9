package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/justestif/go-spotify-replay/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	flagConfigPath string
	flagVerbose    bool
)

// cfg is loaded by the root PersistentPreRunE before any subcommand runs.
var cfg *config.Config

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "spotify-replay",
		Short:   "Keep a Spotify playlist of what you've been listening to",
		Version: version,
		// Errors are printed once by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			loaded, err := config.Load(flagConfigPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg = loaded
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newLoginCmd())

	return cmd
}

// buildLogger creates the process logger from the log config.
// --verbose always wins over the configured level.
func buildLogger(lc config.LogConfig, verbose bool) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(strings.ToLower(lc.Level))
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	if lc.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger, nil
}
