// Package config loads service configuration from an optional YAML file
// overlaid by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"databaseUrl"`
	RedisURL    string `yaml:"redisUrl"`
	// DBMigrate applies the schema on startup when a database is configured.
	DBMigrate bool         `yaml:"dbMigrate"`
	Rate      RateConfig   `yaml:"rate"`
	Log       LogConfig    `yaml:"log"`
	Worker    WorkerConfig `yaml:"worker"`
	Solver    SolverConfig `yaml:"solver"`
}

// RateConfig limits solve submissions per client. RPS <= 0 disables it.
type RateConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type WorkerConfig struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	BatchSize    int           `yaml:"batchSize"`
}

// SolverConfig holds the defaults applied to solve requests that leave a
// setting unset.
type SolverConfig struct {
	TimeBudgetMs    int       `yaml:"timeBudgetMs" json:"timeBudgetMs"`
	MaxIterations   int       `yaml:"maxIterations" json:"maxIterations"`
	InitTemp        float64   `yaml:"initTemp" json:"initTemp"`
	Cooling         float64   `yaml:"cooling" json:"cooling"`
	OperatorWeights []float64 `yaml:"operatorWeights" json:"operatorWeights"`
}

func Default() Config {
	return Config{
		Port:      "8080",
		DBMigrate: true,
		Rate:      RateConfig{RPS: 5, Burst: 10},
		Log:       LogConfig{Level: "info"},
		Worker:    WorkerConfig{PollInterval: 500 * time.Millisecond, BatchSize: 4},
		Solver: SolverConfig{
			TimeBudgetMs:    300,
			InitTemp:        10,
			Cooling:         0.995,
			OperatorWeights: []float64{1, 1, 1},
		},
	}
}

// Load reads path (skipped when empty) over the defaults, then applies the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("PORT", &cfg.Port)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("REDIS_URL", &cfg.RedisURL)
	str("LOG_LEVEL", &cfg.Log.Level)

	if v, ok := lookup("DB_MIGRATE"); ok {
		cfg.DBMigrate = v != "false"
	}
	if v, ok := lookup("RATE_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: RATE_RPS: %w", err)
		}
		cfg.Rate.RPS = f
	}
	if v, ok := lookup("RATE_BURST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: RATE_BURST: %w", err)
		}
		cfg.Rate.Burst = n
	}
	if v, ok := lookup("WORKER_POLL_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: WORKER_POLL_INTERVAL: %w", err)
		}
		cfg.Worker.PollInterval = d
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.Rate.RPS > 0 && c.Rate.Burst < 1 {
		errs = append(errs, errors.New("rate.burst must be >= 1 when rate.rps is set"))
	}
	if c.Worker.PollInterval <= 0 {
		errs = append(errs, errors.New("worker.pollInterval must be > 0"))
	}
	if c.Worker.BatchSize < 1 {
		errs = append(errs, errors.New("worker.batchSize must be >= 1"))
	}
	if c.Solver.Cooling != 0 && (c.Solver.Cooling <= 0 || c.Solver.Cooling >= 1) {
		errs = append(errs, errors.New("solver.cooling must be in (0,1)"))
	}
	if n := len(c.Solver.OperatorWeights); n != 0 && n != 3 {
		errs = append(errs, errors.New("solver.operatorWeights must have length 3"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string { return ":" + c.Port }
