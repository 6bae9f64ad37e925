package main

import (
	"fmt"
	"io"

	"github.com/Sternrassler/datecontext/internal/config"
	"github.com/Sternrassler/datecontext/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cli carries global flags and the loaded configuration to subcommands.
type cli struct {
	configPath string
	envFile    string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "datecontext",
		Short: "Location-aware date context for conversational agents",
		Long: `datecontext resolves a place name to its country and time zone and
answers date questions from the point of view of that place: today,
tomorrow, this and next week, local weekends and upcoming public holidays.

Configuration is read from an optional YAML file, then .env.local, then
environment variables (GOOGLE_API_KEY, PORT, MCP_API_KEY, MCP_TRANSPORT,
HOLIDAY_PROVIDER, CACHE_BACKEND, REDIS_ADDR, LOG_LEVEL).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded before environment overrides")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(c),
		newAnalyzeCmd(c),
		newHolidayCmd(c),
		newVersionCmd(),
	)

	return root
}

// load reads configuration and sets up logging. Logs go to stderr so the
// stdio transport and command output keep stdout to themselves.
func (c *cli) load(stderr io.Writer) error {
	// Step 1: dotenv, then file and environment
	if err := config.LoadEnvFile(c.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}

	// Step 2: Validate
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Step 3: Logging
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	c.logger = logging.Setup(logging.Config{
		Level:  level,
		Pretty: cfg.Logging.Pretty,
		Output: stderr,
	})
	c.cfg = cfg

	return nil
}
