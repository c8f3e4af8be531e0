// Package cmd implements the lumi command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lumisearch/lumi/internal/engine"
	"github.com/lumisearch/lumi/pkg/config"
	"github.com/lumisearch/lumi/pkg/logger"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	dataDir    string
	logLevel   string
	cfg        *config.Config
}

// Execute runs the root command with signal-aware context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "lumi",
		Short: "Sharded full-text search over a local index",
		Long: `lumi searches, extends and inspects an on-disk index of
32 term-partitioned barrels, scoring matches with TF-IDF plus an
embedding similarity boost.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.dataDir != "" {
				cfg.Indexer.DataDir = opts.dataDir
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}
			// results go to stdout; logs stay on stderr
			logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, "text")
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVarP(&opts.dataDir, "data-dir", "d", "", "Index directory (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newSearchCmd(opts),
		newCompleteCmd(opts),
		newAddCmd(opts),
		newBuildCmd(opts),
		newStatsCmd(opts),
		newVerifyCmd(opts),
		newWatchCmd(opts),
		newPublishCmd(opts),
	)
	return cmd
}

func (o *globalOptions) openEngine() (*engine.Engine, error) {
	return engine.Open(o.cfg)
}
