package cmd

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signalnine/martingale/internal/config"
	"github.com/signalnine/martingale/internal/outcome"
	"github.com/signalnine/martingale/internal/runner"
)

var (
	cfgFile       string
	flagOutcomes  string
	flagLogLevel  string
	flagLogFormat string
	flagSeed      uint64
)

// appCfg is loaded once per invocation in PersistentPreRunE.
var appCfg *config.Config

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "martingale",
		Short:         "Monte Carlo simulator for the Martingale betting strategy",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			appCfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "martingale.yaml", "config file path")
	root.PersistentFlags().StringVar(&flagOutcomes, "outcomes", "", "YAML outcome table overriding the config's")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format (text, json)")
	root.PersistentFlags().Uint64Var(&flagSeed, "seed", 0, "random seed (0 seeds from the clock)")
	root.AddCommand(newSimulateCmd())
	root.AddCommand(newScanCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newServeCmd())
	return root
}

// loadConfig reads the config file, then lets explicitly set persistent
// flags override it. The default config path may be absent.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	cfg, err := config.Load(cfgFile, !flags.Changed("config"))
	if err != nil {
		return nil, err
	}
	if flagOutcomes != "" {
		dist, err := outcome.LoadTable(flagOutcomes)
		if err != nil {
			return nil, err
		}
		cfg.SetDistribution(dist)
	}
	if flags.Changed("seed") {
		cfg.Seed = flagSeed
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}
	if err := setupLogging(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(l config.Log) error {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	switch l.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q", l.Format)
	}
	return nil
}

// explain turns a simulation error into the message shown to the user.
func explain(err error) error {
	switch {
	case errors.Is(err, runner.ErrEmptyRange):
		return fmt.Errorf("balance or bet range resulted in zero values, check start/end/step: %w", err)
	case errors.Is(err, runner.ErrNoFeasiblePoint):
		return fmt.Errorf("no valid parameter combinations (initial balance is below the bet everywhere): %w", err)
	case errors.Is(err, runner.ErrInvalidConfig):
		return fmt.Errorf("invalid simulation parameters: %w", err)
	case errors.Is(err, outcome.ErrInvalidDistribution):
		return fmt.Errorf("invalid outcome table: %w", err)
	default:
		return err
	}
}

// resolveSeed picks a clock seed for 0 so the stored run can be replayed.
func resolveSeed(seed uint64) uint64 {
	if seed == 0 {
		return uint64(time.Now().UnixNano())
	}
	return seed
}
