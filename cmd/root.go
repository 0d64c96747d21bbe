package cmd

import (
	"github.com/maxkimambo/taskman/internal/config"
	"github.com/maxkimambo/taskman/internal/logger"
	"github.com/spf13/cobra"
)

var (
	configFile string
	debug      bool
	verbose    bool
	jsonLogs   bool
	quiet      bool
	version    = "v0.1.0"

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "taskman",
		Short: "Run cancellable, progress-reporting tasks on a worker pool",
		Long: `taskman runs named, cancellable tasks on a shared worker pool and reports their
lifecycle events (started, progress, finished, failed, cancelled) as they happen.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configFile)
			if err != nil {
				return err
			}
			cfg = loaded

			// Flags win over the config file.
			logger.Setup(
				verbose || debug || cfg.Logging.Verbose,
				jsonLogs || cfg.Logging.JSON,
				quiet || cfg.Logging.Quiet,
			)
			if debug {
				logger.Op.Debug("Debug logging enabled")
			}
			return nil
		},
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (default ./taskman.yaml if present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	rootCmd.AddCommand(runCmd)
}
