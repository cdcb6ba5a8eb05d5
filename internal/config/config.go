// Copyright 2026 The Histoflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the engine's runtime configuration from an optional
// YAML file with environment-variable overrides, per spec.md §6
// "Configuration".
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	// MaxActiveUsers caps the number of distinct users with a RUNNING job at
	// any instant. Default 3.
	MaxActiveUsers int `yaml:"max_active_users"`

	// SchedulerPopTimeout is how long the scheduler blocks on the global
	// pending queue before looping to re-check its control state.
	SchedulerPopTimeout time.Duration `yaml:"scheduler_pop_timeout"`

	// DeferSleep is the pacing delay applied after a deferral, to avoid
	// tight cycling against a saturated active-user set.
	DeferSleep time.Duration `yaml:"defer_sleep"`

	// WorkerIdleSleep is how long a worker sleeps after finding its queue
	// empty before polling again.
	WorkerIdleSleep time.Duration `yaml:"worker_idle_sleep"`

	// SchedulerPausedSleep is how long the scheduler sleeps between checks
	// of its control state while paused.
	SchedulerPausedSleep time.Duration `yaml:"scheduler_paused_sleep"`

	Log LogConfig `yaml:"log"`
}

// LogConfig mirrors internal/log.Config in a form that survives YAML
// round-tripping.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration defaults from spec.md §6.
func Default() *Config {
	return &Config{
		MaxActiveUsers:       3,
		SchedulerPopTimeout:  time.Second,
		DeferSleep:           200 * time.Millisecond,
		WorkerIdleSleep:      500 * time.Millisecond,
		SchedulerPausedSleep: 500 * time.Millisecond,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the config at path (if non-empty and it exists) over the
// defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides cfg fields from ENGINE_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ENGINE_MAX_ACTIVE_USERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxActiveUsers = n
		}
	}
	if v := os.Getenv("ENGINE_SCHEDULER_POP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SchedulerPopTimeout = d
		}
	}
	if v := os.Getenv("ENGINE_DEFER_SLEEP"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DeferSleep = d
		}
	}
	if v := os.Getenv("ENGINE_WORKER_IDLE_SLEEP"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WorkerIdleSleep = d
		}
	}
	if v := os.Getenv("ENGINE_SCHEDULER_PAUSED_SLEEP"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SchedulerPausedSleep = d
		}
	}
	if v := os.Getenv("ENGINE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ENGINE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
