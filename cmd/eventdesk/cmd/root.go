package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/eventdesk/internal/config"
)

var (
	configPath string
	cfg        config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "eventdesk",
	Short: "EventDesk is an event registration desk for the terminal",
	Long: `A terminal client and development backend for browsing events, registering
attendees and managing the event catalogue.
Complete documentation is available at https://github.com/jmcleod/eventdesk`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath, nil)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger, err = cfg.NewLogger(os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("EVENTDESK_CONFIG"), "Path to a YAML config file")
}
