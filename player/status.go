// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package player

import (
	"time"

	"github.com/go-lpc/mockingbird/monitor"
	"github.com/google/uuid"
)

// Status is a snapshot of the scheduler state.
type Status struct {
	ID       uuid.UUID // current or last session, zero if none
	State    State
	Start    time.Time     // wall-clock start of the session
	Cursor   int           // index of the next digest to emit
	Size     int           // number of digests in the table
	Pass     int           // number of completed passes, in loop mode
	Now      time.Duration // logical time of the session clock, frozen once it ends
	Loop     bool
	Rate     float64
	Paused   bool
	Skipped  uint64 // ticks skipped because a previous one was still emitting
	Stats    monitor.Stats
	Warnings []monitor.OverrunWarning
	Err      error // failure that stopped the session
}

// Status returns the current state of the scheduler.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:    s.state,
		Skipped:  s.skipped.Load(),
		Stats:    s.mon.Stats(),
		Warnings: s.mon.Warnings(),
		Err:      s.err,
	}
	if s.tbl != nil {
		st.Size = s.tbl.Len()
	}

	if sess := s.sess; sess != nil {
		st.ID = sess.ID
		st.Start = sess.Start
		st.Cursor = sess.cursor
		st.Size = sess.tbl.Len()
		st.Pass = sess.pass
		st.Now = sess.clock.Now()
		st.Loop = sess.Loop
		st.Rate = sess.clock.Rate()
		// the clock of a finished session is frozen.
		st.Paused = s.state == Playing && sess.clock.Paused()
	}
	return st
}
