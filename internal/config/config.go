// Package config loads the scheduler configuration from a YAML file.
// Endpoint secrets (database DSN, AMQP URL) stay in the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Hours     HoursConfig     `yaml:"business_hours"`
	Ramp      RampConfig      `yaml:"ramp"`
	Autonomy  AutonomyConfig  `yaml:"autonomy"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type SchedulerConfig struct {
	TickIntervalSec     int `yaml:"tick_interval_sec"`
	StepGapSec          int `yaml:"step_gap_sec"`
	StepGapJitterSec    int `yaml:"step_gap_jitter_sec"`
	TransientRetryMin   int `yaml:"transient_retry_min"`
	EventBufferSize     int `yaml:"event_buffer_size"`
	WeeklyCapMultiplier int `yaml:"weekly_cap_multiplier"`
}

type HoursConfig struct {
	WindowStart      int `yaml:"window_start"`
	WindowEnd        int `yaml:"window_end"`
	LocalOffsetHours int `yaml:"local_offset_hours"`
}

type RampConfig struct {
	// Tiers are week-sized: Tiers[i] applies to days [i*7, i*7+6].
	// Days past the last tier use the final value.
	Tiers []int `yaml:"tiers"`
}

type AutonomyConfig struct {
	DefaultLevel     string `yaml:"default_level"`
	DefaultThreshold int    `yaml:"default_threshold"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Scheduler: SchedulerConfig{
			TickIntervalSec:     60,
			StepGapSec:          3,
			StepGapJitterSec:    4,
			TransientRetryMin:   15,
			EventBufferSize:     256,
			WeeklyCapMultiplier: 5,
		},
		Hours: HoursConfig{
			WindowStart:      9,
			WindowEnd:        17,
			LocalOffsetHours: 0,
		},
		Ramp: RampConfig{
			Tiers: []int{5, 10, 15, 20, 25},
		},
		Autonomy: AutonomyConfig{
			DefaultLevel:     "semi_autonomous",
			DefaultThreshold: 80,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path and overlays it on the defaults. A missing file is not an
// error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Hours.WindowStart < 0 || c.Hours.WindowEnd > 24 || c.Hours.WindowStart >= c.Hours.WindowEnd {
		return fmt.Errorf("invalid business hours window [%d, %d)", c.Hours.WindowStart, c.Hours.WindowEnd)
	}
	if c.Scheduler.TickIntervalSec <= 0 {
		return fmt.Errorf("tick_interval_sec must be positive, got %d", c.Scheduler.TickIntervalSec)
	}
	if len(c.Ramp.Tiers) == 0 {
		return fmt.Errorf("ramp tiers must not be empty")
	}
	for i, tier := range c.Ramp.Tiers {
		if tier < 0 {
			return fmt.Errorf("ramp tier %d is negative", i)
		}
		if i > 0 && tier < c.Ramp.Tiers[i-1] {
			return fmt.Errorf("ramp tiers must be non-decreasing, tier %d breaks that", i)
		}
	}
	return nil
}

func (c SchedulerConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSec) * time.Second
}

func (c SchedulerConfig) TransientRetry() time.Duration {
	return time.Duration(c.TransientRetryMin) * time.Minute
}
