// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vclock maps hardware time onto a logical playback timeline that
// can be reset, paused and scaled.
package vclock // import "github.com/go-lpc/mockingbird/vclock"

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// InvalidRateError is returned when trying to set a non-positive
// (or non-finite) clock rate.
type InvalidRateError struct {
	Rate float64
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("vclock: invalid rate %v (must be > 0)", e.Rate)
}

// CheckRate returns an *InvalidRateError if f is not a valid clock rate.
func CheckRate(f float64) error {
	if !(f > 0) || math.IsInf(f, 0) {
		return &InvalidRateError{Rate: f}
	}
	return nil
}

// Clock is a virtual clock.
//
// Now returns the logical time elapsed since the clock epoch, scaled by
// the clock rate. Pausing the clock freezes logical time without losing
// the accumulated offset.
type Clock struct {
	src Source

	mu     sync.Mutex
	rate   float64
	epoch  time.Duration // source time of the last rebase
	offset time.Duration // logical time at the last rebase
	paused bool
}

// New returns a running clock with a rate of 1, whose epoch is the
// current source time.
func New(src Source) *Clock {
	return &Clock{
		src:   src,
		rate:  1,
		epoch: src.Now(),
	}
}

// Now returns the current logical time.
func (clk *Clock) Now() time.Duration {
	clk.mu.Lock()
	defer clk.mu.Unlock()
	return clk.now()
}

func (clk *Clock) now() time.Duration {
	if clk.paused {
		return clk.offset
	}
	dt := clk.src.Now() - clk.epoch
	if clk.rate != 1 {
		dt = time.Duration(float64(dt) * clk.rate)
	}
	return clk.offset + dt
}

// rebase folds the elapsed logical time into the offset.
func (clk *Clock) rebase() {
	clk.offset = clk.now()
	clk.epoch = clk.src.Now()
}

// Reset sets logical time back to zero, starting from the current
// source time. The pause state and rate are kept.
func (clk *Clock) Reset() {
	clk.ResetAt(clk.src.Now())
}

// ResetAt sets logical time back to zero at the provided source time.
func (clk *Clock) ResetAt(epoch time.Duration) {
	clk.mu.Lock()
	defer clk.mu.Unlock()
	clk.epoch = epoch
	clk.offset = 0
}

// Pause freezes logical time.
func (clk *Clock) Pause() {
	clk.mu.Lock()
	defer clk.mu.Unlock()
	if clk.paused {
		return
	}
	clk.rebase()
	clk.paused = true
}

// Resume lets logical time advance again from where it was paused.
func (clk *Clock) Resume() {
	clk.mu.Lock()
	defer clk.mu.Unlock()
	if !clk.paused {
		return
	}
	clk.epoch = clk.src.Now()
	clk.paused = false
}

// Paused reports whether the clock is paused.
func (clk *Clock) Paused() bool {
	clk.mu.Lock()
	defer clk.mu.Unlock()
	return clk.paused
}

// SetRate changes the speed at which logical time advances.
// Logical time accumulated so far is preserved.
// SetRate returns an *InvalidRateError and leaves the clock untouched
// if f is not strictly positive.
func (clk *Clock) SetRate(f float64) error {
	err := CheckRate(f)
	if err != nil {
		return err
	}

	clk.mu.Lock()
	defer clk.mu.Unlock()
	clk.rebase()
	clk.rate = f
	return nil
}

// Rate returns the current clock rate.
func (clk *Clock) Rate() float64 {
	clk.mu.Lock()
	defer clk.mu.Unlock()
	return clk.rate
}

// Source returns the underlying time source.
func (clk *Clock) Source() Source {
	return clk.src
}
