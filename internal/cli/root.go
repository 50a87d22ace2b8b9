// Package cli wires configuration, storage and services into the
// telecom-monitor commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/config"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/logger"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/version"
)

// globalFlags are persistent flags that override environment configuration.
type globalFlags struct {
	configFile  string
	dataPath    string
	logLevel    string
	logEncoding string
	backend     string
	noColor     bool
	dev         bool
}

// command carries state shared by every subcommand.
type command struct {
	flags  globalFlags
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer

	// loadConfig is replaced in tests.
	loadConfig func() (*config.Config, error)
}

// Execute runs the root command with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// NewRootCmd builds the command tree.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &command{stdout: stdout, stderr: stderr, loadConfig: config.Load}
	return c.rootCmd()
}

func (c *command) rootCmd() *cobra.Command {
	run := c.runCmd()

	root := &cobra.Command{
		Use:   "telecom-monitor",
		Short: "China Telecom usage monitor",
		Long: `Queries balance, voice and data usage of one or more China Telecom
accounts, renders a report per account and sends one notification.`,
		Version:           version.Info(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		RunE:              run.RunE,
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.configFile, "config", "", "account config file (JSON or YAML, default telecom_config.json)")
	pf.StringVar(&c.flags.dataPath, "data", "", "data directory for state and logs")
	pf.StringVar(&c.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&c.flags.logEncoding, "log-encoding", "", "log encoding (json, console)")
	pf.StringVar(&c.flags.backend, "state-backend", "", "session state backend (sqlite, redis)")
	pf.BoolVar(&c.flags.noColor, "no-color", false, "disable colored output")
	pf.BoolVar(&c.flags.dev, "dev", false, "development mode")

	// The root command behaves like run.
	root.Flags().AddFlagSet(run.Flags())

	root.AddCommand(
		run,
		c.daemonCmd(),
		c.serveCmd(),
		c.statusCmd(),
		c.resetCmd(),
		c.historyCmd(),
		c.versionCmd(),
	)
	return root
}

// setup loads configuration, applies flag overrides and initializes logging.
func (c *command) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("config") {
		cfg.ConfigFile = c.flags.configFile
	}
	if flags.Changed("data") {
		cfg.DataPath = c.flags.dataPath
		if os.Getenv("TELECOM_DATABASE_PATH") == "" {
			cfg.DatabasePath = filepath.Join(cfg.DataPath, "telecom.db")
		}
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = c.flags.logLevel
	}
	if flags.Changed("log-encoding") {
		cfg.LogEncoding = c.flags.logEncoding
	}
	if flags.Changed("state-backend") {
		cfg.StateBackend = c.flags.backend
	}
	if flags.Changed("dev") {
		cfg.Dev = c.flags.dev
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := cfg.LogLevel
	if cfg.Dev {
		logLevel = "debug"
	}
	if err := logger.Init(logger.Options{
		Level:       logLevel,
		Encoding:    cfg.LogEncoding,
		OutputPaths: []string{"stderr", cfg.LogFile()},
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	c.cfg = cfg
	return nil
}

func (c *command) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Info())
			return err
		},
	}
}
