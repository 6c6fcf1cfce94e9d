package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/signalnine/martingale/internal/outcome"
	"github.com/signalnine/martingale/internal/runner"
)

type Config struct {
	Outcomes  []outcome.Outcome `yaml:"outcomes"`
	Target    string            `yaml:"target"`
	MaxRounds int               `yaml:"max_rounds"`
	Seed      uint64            `yaml:"seed"`
	Workers   int               `yaml:"workers"`
	Simulate  Simulate          `yaml:"simulate"`
	Scan      Scan              `yaml:"scan"`
	Results   Results           `yaml:"results"`
	Log       Log               `yaml:"log"`
	Server    Server            `yaml:"server"`

	dist *outcome.Distribution
}

type Simulate struct {
	Balance  float64 `yaml:"balance"`
	Bet      float64 `yaml:"bet"`
	Runs     int     `yaml:"runs"`
	PlotLast bool    `yaml:"plot_last"`
}

type Scan struct {
	Balance      runner.Range `yaml:"balance"`
	Bet          runner.Range `yaml:"bet"`
	RunsPerPoint int          `yaml:"runs_per_point"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Server struct {
	Addr string `yaml:"addr"`
	// MaxWork caps runs * max_rounds for a single API request.
	MaxWork int64 `yaml:"max_work"`
}

// Default returns the built-in settings used when no config file exists.
func Default() *Config {
	return &Config{
		Outcomes:  outcome.Default().Outcomes(),
		Target:    string(outcome.T),
		MaxRounds: 10000,
		Workers:   runtime.NumCPU(),
		Simulate: Simulate{
			Balance: 20,
			Bet:     0.1,
			Runs:    1,
		},
		Scan: Scan{
			Balance:      runner.Range{Start: 2, End: 20, Step: 1},
			Bet:          runner.Range{Start: 0.05, End: 1, Step: 0.05},
			RunsPerPoint: 50,
		},
		Results: Results{Dir: "results"},
		Log:     Log{Level: "info", Format: "text"},
		Server:  Server{Addr: ":8080", MaxWork: 50_000_000},
	}
}

// Load reads path on top of the defaults, then applies .env and
// MARTINGALE_* environment overrides. A missing file is an error unless
// optional is set, in which case defaults are used.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case optional && errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("MARTINGALE_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MARTINGALE_SEED: %w", err)
		}
		cfg.Seed = seed
	}
	if v := os.Getenv("MARTINGALE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MARTINGALE_WORKERS: %w", err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("MARTINGALE_RESULTS_DIR"); v != "" {
		cfg.Results.Dir = v
	}
	if v := os.Getenv("MARTINGALE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MARTINGALE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	return nil
}

// Validate checks the config and builds its outcome distribution.
func (cfg *Config) Validate() error {
	dist, err := outcome.NewDistribution(cfg.Outcomes)
	if err != nil {
		return err
	}
	if !dist.Has(outcome.Label(cfg.Target)) {
		return fmt.Errorf("target %q is not one of %v", cfg.Target, dist.Labels())
	}
	if cfg.MaxRounds < 1 {
		return fmt.Errorf("max_rounds must be at least 1")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Simulate.Runs < 0 {
		return fmt.Errorf("simulate.runs must not be negative")
	}
	if cfg.Scan.RunsPerPoint < 1 {
		return fmt.Errorf("scan.runs_per_point must be at least 1")
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	cfg.dist = dist
	return nil
}

// Distribution returns the validated outcome table.
func (cfg *Config) Distribution() *outcome.Distribution {
	if cfg.dist == nil {
		return outcome.Default()
	}
	return cfg.dist
}

// SetDistribution replaces the outcome table, e.g. from --outcomes.
func (cfg *Config) SetDistribution(d *outcome.Distribution) {
	cfg.dist = d
	cfg.Outcomes = d.Outcomes()
}
