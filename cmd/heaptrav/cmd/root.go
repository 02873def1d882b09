// ABOUTME: Root cobra command with the flags and setup shared by every subcommand
// ABOUTME: Loads configuration and builds the zap logger before any command runs

// Package cmd implements the heaptrav command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prateek/heaptrav"
	"github.com/prateek/heaptrav/internal/config"
	"github.com/prateek/heaptrav/internal/logging"
)

type rootFlags struct {
	configFile string
	logLevel   string
	logFormat  string
}

var (
	rootOpts rootFlags

	// cfg and logger are set up by the root command's PersistentPreRunE.
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "heaptrav",
	Short: "Walk a paused heap from its roots and analyse the closure graph",
	Long: `heaptrav walks every closure reachable from a heap snapshot's roots,
logging each closure once together with the edge that discovered it. The
log can be converted into a JSON document and searched for retainers,
closures reaching many labelled targets, and retained sizes.`,
	Version:           heaptrav.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("heaptrav failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootOpts.configFile, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&rootOpts.logLevel, "log-level", "", "log level, overrides the config file")
	rootCmd.PersistentFlags().StringVar(&rootOpts.logFormat, "log-format", "", "log format (json or console), overrides the config file")
}

func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.LoadWithFile(rootOpts.configFile)
	if err != nil {
		return err
	}
	if rootOpts.logLevel != "" {
		c.Log.Level = rootOpts.logLevel
	}
	if rootOpts.logFormat != "" {
		c.Log.Format = rootOpts.logFormat
	}
	if err := c.Validate(); err != nil {
		return err
	}

	l, err := logging.New(c.Log.Level, c.Log.Format)
	if err != nil {
		return err
	}
	cfg = c
	logger = l.With(zap.String("command", cmd.Name()))
	return nil
}
