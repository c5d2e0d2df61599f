// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the process configuration from the environment.
package config // import "github.com/go-lpc/mockingbird/internal/config"

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-lpc/mockingbird/alert"
)

// Config holds the settings shared by the mockingbird commands.
// Command-line flags take their default values from it.
type Config struct {
	Rate      float64       `env:"MBIRD_RATE" envDefault:"1"`
	Loop      bool          `env:"MBIRD_LOOP"`
	Tick      time.Duration `env:"MBIRD_TICK" envDefault:"100us"`
	Tolerance time.Duration `env:"MBIRD_TOLERANCE" envDefault:"1ms"`
	Critical  time.Duration `env:"MBIRD_CRITICAL" envDefault:"10ms"`
	Driver    string        `env:"MBIRD_DRIVER" envDefault:"sim"`

	DB     string `env:"MBIRD_DB"`
	DBHost string `env:"MBIRD_DB_HOST" envDefault:"localhost"`
	DBUser string `env:"MBIRD_DB_USER" envDefault:"mbird"`
	DBPass string `env:"MBIRD_DB_PASSWORD"`

	Mail alert.Config
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	err := env.Parse(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: could not parse environment: %w", err)
	}
	return cfg, nil
}
