// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package monitor tracks the scheduling error of emitted digests.
package monitor // import "github.com/go-lpc/mockingbird/monitor"

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-lpc/mockingbird/digest"
)

// Default lateness thresholds.
const (
	DefaultTolerance = 1 * time.Millisecond
	DefaultCritical  = 10 * time.Millisecond
	DefaultHistory   = 64
)

// OverrunWarning reports a digest emitted later than the critical
// threshold. It is never returned as a playback failure.
type OverrunWarning struct {
	Index     int           // index of the digest in its table
	Digest    digest.Digest // emitted digest
	Lateness  time.Duration // measured lateness
	Threshold time.Duration // critical threshold in effect
}

func (w OverrunWarning) Error() string {
	return fmt.Sprintf(
		"monitor: critical overrun for digest #%d %v (lateness=%v > %v)",
		w.Index, w.Digest, w.Lateness, w.Threshold,
	)
}

// Stats holds aggregated lateness statistics.
type Stats struct {
	Emitted     uint64        // number of emitted digests
	Overruns    uint64        // emissions later than the tolerance
	Critical    uint64        // emissions later than the critical threshold
	MaxLateness time.Duration // largest recorded lateness
	MinLateness time.Duration // smallest recorded lateness
	Total       time.Duration // sum of all recorded lateness values
}

// Mean returns the mean lateness.
func (st Stats) Mean() time.Duration {
	if st.Emitted == 0 {
		return 0
	}
	return st.Total / time.Duration(st.Emitted)
}

type config struct {
	tolerance time.Duration
	critical  time.Duration
	history   int
	warn      func(OverrunWarning)
}

// Option configures a Monitor.
type Option func(*config)

// WithTolerance sets the lateness above which an emission is counted as
// an overrun.
func WithTolerance(d time.Duration) Option {
	return func(cfg *config) {
		cfg.tolerance = d
	}
}

// WithCritical sets the lateness above which an overrun is critical.
func WithCritical(d time.Duration) Option {
	return func(cfg *config) {
		cfg.critical = d
	}
}

// WithHistory sets the number of most recent warnings kept by the monitor.
func WithHistory(n int) Option {
	return func(cfg *config) {
		cfg.history = n
	}
}

// WithWarningFunc registers a function called for each critical overrun.
// f is called synchronously from Record and Warn, without any monitor
// lock held, and must not block.
func WithWarningFunc(f func(OverrunWarning)) Option {
	return func(cfg *config) {
		cfg.warn = f
	}
}

// Monitor records the lateness of each emission.
// It only observes: it never alters scheduling decisions.
// Monitor is safe for concurrent use.
type Monitor struct {
	cfg config

	mu    sync.RWMutex
	stats Stats
	warns []OverrunWarning // ring buffer of the most recent warnings
	beg   int
}

// New returns a new timing monitor.
func New(opts ...Option) *Monitor {
	cfg := config{
		tolerance: DefaultTolerance,
		critical:  DefaultCritical,
		history:   DefaultHistory,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.critical < cfg.tolerance {
		cfg.critical = cfg.tolerance
	}
	if cfg.history < 0 {
		cfg.history = 0
	}
	return &Monitor{cfg: cfg}
}

// Tolerance returns the overrun tolerance.
func (mon *Monitor) Tolerance() time.Duration { return mon.cfg.tolerance }

// Critical returns the critical overrun threshold.
func (mon *Monitor) Critical() time.Duration { return mon.cfg.critical }

// Record records the lateness of the emission of the i-th digest d.
// Lateness is signed: early emissions have a negative lateness.
// A critical overrun is passed to the warning function, if any.
func (mon *Monitor) Record(i int, d digest.Digest, lateness time.Duration) {
	warn, crit := mon.Observe(i, d, lateness)
	if crit {
		mon.Warn(warn)
	}
}

// Observe records the lateness of the emission of the i-th digest d,
// like Record, but returns the critical overrun instead of passing it
// to the warning function.
func (mon *Monitor) Observe(i int, d digest.Digest, lateness time.Duration) (OverrunWarning, bool) {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	st := &mon.stats
	if st.Emitted == 0 || lateness > st.MaxLateness {
		st.MaxLateness = lateness
	}
	if st.Emitted == 0 || lateness < st.MinLateness {
		st.MinLateness = lateness
	}
	st.Emitted++
	st.Total += lateness
	if lateness > mon.cfg.tolerance {
		st.Overruns++
	}
	if lateness <= mon.cfg.critical {
		return OverrunWarning{}, false
	}

	st.Critical++
	warn := OverrunWarning{
		Index:     i,
		Digest:    d,
		Lateness:  lateness,
		Threshold: mon.cfg.critical,
	}
	mon.push(warn)
	return warn, true
}

// Warn passes w to the warning function, if any.
func (mon *Monitor) Warn(w OverrunWarning) {
	if mon.cfg.warn == nil {
		return
	}
	mon.cfg.warn(w)
}

func (mon *Monitor) push(w OverrunWarning) {
	n := mon.cfg.history
	switch {
	case n == 0:
		return
	case len(mon.warns) < n:
		mon.warns = append(mon.warns, w)
	default:
		mon.warns[mon.beg] = w
		mon.beg = (mon.beg + 1) % n
	}
}

// Stats returns a snapshot of the lateness statistics.
func (mon *Monitor) Stats() Stats {
	mon.mu.RLock()
	defer mon.mu.RUnlock()
	return mon.stats
}

// Warnings returns the most recent critical overruns, oldest first.
func (mon *Monitor) Warnings() []OverrunWarning {
	mon.mu.RLock()
	defer mon.mu.RUnlock()
	if len(mon.warns) == 0 {
		return nil
	}
	out := make([]OverrunWarning, 0, len(mon.warns))
	out = append(out, mon.warns[mon.beg:]...)
	out = append(out, mon.warns[:mon.beg]...)
	return out
}

// Reset clears statistics and warnings.
func (mon *Monitor) Reset() {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	mon.stats = Stats{}
	mon.warns = mon.warns[:0]
	mon.beg = 0
}

var (
	_ error = OverrunWarning{}
)
