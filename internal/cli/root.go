// Package cli implements the marquee command tree. Commands construct
// their collaborators from loaded config and inject the logger; nothing
// here is global except the flag-driven state the root command owns.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/marquee-ai/marquee/internal/config"
	"github.com/marquee-ai/marquee/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marquee",
		Short: "Marquee — conversational movie dataset agent",
		Long: "Marquee answers questions about the IMDb movie dataset by reasoning\n" +
			"over SQL queries and semantic search, as a CLI, an HTTP/WebSocket API,\n" +
			"or an MCP tool server.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Best-effort: production deployments won't have a .env.
			_ = godotenv.Load()

			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level, "console")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.marquee/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig reads the config file (defaults when absent) and rebuilds
// the package logger from it, unless --log-level pinned a level.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return config.Config{}, err
	}
	level := logLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	log = logging.New(nil, level, cfg.Logging.Format)
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
