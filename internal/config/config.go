// Package config loads and validates the bridge's service configuration.
//
// Configuration comes from a YAML service file, with a small set of
// environment-variable overrides layered on top for deployment-specific
// values. Validation failures are startup-fatal: the process must not serve
// any feed with a malformed configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// defaultPollIntervalMS matches the platform's 10 Hz data cadence.
const defaultPollIntervalMS = 100

// ExecutionConfig selects and tunes the execution collaborator.
type ExecutionConfig struct {
	// Mode selects the collaborator implementation. Only the in-process
	// simulator ships with the bridge; the proprietary platform client is
	// wired in by its own build.
	Mode string `yaml:"mode" env:"NINJA_BRIDGE_EXECUTION_MODE" validate:"omitempty,oneof=sim"`

	// StartPrice seeds the simulator's price walk.
	StartPrice float64 `yaml:"start_price" validate:"gte=0"`

	// StepFraction bounds the simulator's per-poll price move.
	StepFraction float64 `yaml:"step_fraction" validate:"gte=0,lte=1"`

	// FillAfterPolls is how many fill queries a simulated order sees before
	// it fills.
	FillAfterPolls int `yaml:"fill_after_polls" validate:"gte=0"`
}

// Config is the bridge's resolved service configuration.
type Config struct {
	// Endpoint is the bus network endpoint to publish to and consume
	// orders from.
	Endpoint string `yaml:"endpoint" env:"NINJA_BRIDGE_ENDPOINT" validate:"required,url"`

	// Symbol is the base instrument symbol for the datafeed.
	Symbol string `yaml:"symbol" env:"NINJA_BRIDGE_SYMBOL" validate:"required"`

	// CandlePeriods lists the candle period lengths in seconds. Periods
	// must be distinct and positive.
	CandlePeriods []uint32 `yaml:"candle_periods" validate:"required,min=1,unique,dive,gt=0"`

	// PollIntervalMS is the driver cadence in milliseconds. Zero selects
	// the 100 ms default.
	PollIntervalMS int `yaml:"poll_interval_ms" env:"NINJA_BRIDGE_POLL_INTERVAL_MS" validate:"gte=0"`

	// Topics overrides bus topic names per message role. Roles without an
	// override use the role name as the topic.
	Topics map[string]string `yaml:"topics"`

	// Execution configures the execution collaborator.
	Execution ExecutionConfig `yaml:"execution"`
}

// Load reads the YAML service file at path, applies environment overrides
// and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("apply environment overrides: %w", err)
	}

	if cfg.PollIntervalMS == 0 {
		cfg.PollIntervalMS = defaultPollIntervalMS
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config %s: %w", path, err)
	}

	return cfg, nil
}

// PollInterval returns the driver cadence as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
