package cmd

import (
	"fmt"

	"tradehistory/config"
	"tradehistory/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	logLevel string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tradehistory",
	Short: "Backfill Binance trade history into a shared binary log",
	Long: `tradehistory keeps an append-only log of every historical trade of every
Binance symbol. Each sync resumes where the log stops and pages backwards
until the first trade of each symbol is on disk.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default searches ./config, $HOME/.tradehistory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
}

// setup loads configuration and the logger for every command but version.
func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == versionCmd.Name() {
		return nil
	}

	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	l, err := logger.New(c.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	cfg, log = c, l
	return nil
}
