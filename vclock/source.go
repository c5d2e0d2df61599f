// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vclock

import (
	"sync"
	"time"
)

// Source is a monotonic hardware time source.
// Now returns the time elapsed since an arbitrary, fixed origin.
type Source interface {
	Now() time.Duration
}

// Real is a Source backed by the monotonic wall clock.
type Real struct {
	t0 time.Time
}

// NewReal returns a real-time source whose origin is the time of the call.
func NewReal() *Real {
	return &Real{t0: time.Now()}
}

func (src *Real) Now() time.Duration {
	return time.Since(src.t0)
}

// Manual is a Source that only moves when told to.
// Manual is safe for concurrent use.
type Manual struct {
	mu  sync.RWMutex
	cur time.Duration
}

// NewManual returns a manual source starting at t0.
func NewManual(t0 time.Duration) *Manual {
	return &Manual{cur: t0}
}

func (src *Manual) Now() time.Duration {
	src.mu.RLock()
	defer src.mu.RUnlock()
	return src.cur
}

// Advance moves the source forward by d.
// Advance panics if d is negative.
func (src *Manual) Advance(d time.Duration) {
	if d < 0 {
		panic("vclock: cannot advance by negative duration")
	}
	src.mu.Lock()
	src.cur += d
	src.mu.Unlock()
}

// Set moves the source to t.
// Set panics if t is before the current time.
func (src *Manual) Set(t time.Duration) {
	src.mu.Lock()
	defer src.mu.Unlock()
	if t < src.cur {
		panic("vclock: cannot set time to the past")
	}
	src.cur = t
}

var (
	_ Source = (*Real)(nil)
	_ Source = (*Manual)(nil)
)
