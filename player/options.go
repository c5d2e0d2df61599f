// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package player

import (
	"log"
	"os"

	"github.com/go-lpc/mockingbird/monitor"
)

type config struct {
	loop bool
	rate float64
	mon  []monitor.Option
	msg  *log.Logger
}

func newConfig() config {
	return config{
		rate: 1,
		msg:  log.New(os.Stdout, "player: ", 0),
	}
}

// Option configures a Scheduler.
type Option func(*config)

// WithLoop sets the default loop mode used by Play.
func WithLoop(loop bool) Option {
	return func(cfg *config) {
		cfg.loop = loop
	}
}

// WithRate sets the default clock rate used by Play.
func WithRate(rate float64) Option {
	return func(cfg *config) {
		cfg.rate = rate
	}
}

// WithMonitor configures the timing monitor of the scheduler.
func WithMonitor(opts ...monitor.Option) Option {
	return func(cfg *config) {
		cfg.mon = append(cfg.mon, opts...)
	}
}

// WithLogger sets the logger used to report session transitions.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}
