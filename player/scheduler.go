// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package player replays digest tables on a pin driver, following a
// virtual clock.
package player // import "github.com/go-lpc/mockingbird/player"

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-lpc/mockingbird/digest"
	"github.com/go-lpc/mockingbird/monitor"
	"github.com/go-lpc/mockingbird/pin"
	"github.com/go-lpc/mockingbird/vclock"
	"github.com/google/uuid"
)

// Session is a playback session: a cursor into a table, the virtual
// clock driving it and its identity.
type Session struct {
	ID    uuid.UUID
	Start time.Time // wall-clock time at which the session started
	Loop  bool

	tbl    *digest.Table
	clock  *vclock.Clock
	cursor int
	pass   int
}

func newSession(tbl *digest.Table, src vclock.Source, loop bool, rate float64) *Session {
	clk := vclock.New(src)
	_ = clk.SetRate(rate) // rate already validated.
	return &Session{
		ID:    uuid.New(),
		Start: time.Now().UTC(),
		Loop:  loop,
		tbl:   tbl,
		clock: clk,
	}
}

// due returns the logical time at which the digest under the cursor is due.
func (sess *Session) due() time.Duration {
	return time.Duration(sess.pass)*sess.tbl.Duration() + sess.tbl.At(sess.cursor).At()
}

// Scheduler walks a digest table in order and applies each digest on a
// pin driver once the session clock reaches its timestamp.
//
// The scheduler is driven by ticks: each call to Tick emits every digest
// that became due since the previous tick, in table order, and returns.
// Waiting for the next digest is doing nothing until the next tick.
type Scheduler struct {
	drv pin.Driver
	src vclock.Source
	cfg config
	msg *log.Logger
	mon *monitor.Monitor

	busy    atomic.Bool // single-flight guard around emissions
	stop    atomic.Bool // cooperative stop request
	skipped atomic.Uint64
	warns   []monitor.OverrunWarning // pending warnings, guarded by busy

	mu    sync.Mutex
	state State
	tbl   *digest.Table
	sess  *Session
	err   error
	done  chan struct{}
}

// New returns a scheduler driving drv, with session clocks derived
// from src.
func New(drv pin.Driver, src vclock.Source, opts ...Option) *Scheduler {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	done := make(chan struct{})
	close(done)
	return &Scheduler{
		drv:   drv,
		src:   src,
		cfg:   cfg,
		msg:   cfg.msg,
		mon:   monitor.New(cfg.mon...),
		state: Idle,
		done:  done,
	}
}

// Monitor returns the timing monitor of the scheduler.
func (s *Scheduler) Monitor() *monitor.Monitor {
	return s.mon
}

// Load arms the scheduler with a new table.
// Tables can only be swapped between sessions.
func (s *Scheduler) Load(tbl *digest.Table) error {
	if tbl == nil {
		return ErrNoTable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Playing {
		return ErrBusy
	}

	s.mon.Reset()
	s.tbl = tbl
	s.sess = nil
	s.err = nil
	s.state = Armed
	s.msg.Printf("loaded table (digests=%d, duration=%v)", tbl.Len(), tbl.Duration())
	return nil
}

// Play starts a session with the loop mode and rate set with the
// WithLoop and WithRate options.
func (s *Scheduler) Play() error {
	return s.Start(s.cfg.loop, s.cfg.rate)
}

// Start starts a new session over the loaded table, with a fresh clock
// running at the provided rate.
// Starting a completed session replays its table from the beginning.
// An empty table completes immediately, without emitting anything.
func (s *Scheduler) Start(loop bool, rate float64) error {
	err := vclock.CheckRate(rate)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Idle, Stopped:
		return ErrNoTable
	case Playing:
		return ErrBusy
	case Armed, Completed:
		// ok
	default:
		return fmt.Errorf("player: could not start session in state %v: %w", s.state, ErrState)
	}

	s.mon.Reset()
	s.stop.Store(false)
	s.skipped.Store(0)
	s.err = nil
	s.sess = newSession(s.tbl, s.src, loop, rate)
	s.done = make(chan struct{})
	s.state = Playing

	s.msg.Printf(
		"starting session %v (digests=%d, loop=%v, rate=%v)...",
		s.sess.ID, s.tbl.Len(), loop, rate,
	)

	if s.tbl.Len() == 0 {
		s.complete()
	}
	return nil
}

// Stop requests the cancellation of the current session.
// Stopping a stopped session is a no-op.
//
// The request takes effect before the next emission: an emission in
// progress is never interrupted. Stop waits for the in-flight tick, if
// any, to return. The table is released: a new one must be loaded
// before the next session.
func (s *Scheduler) Stop() error {
	s.stop.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Armed, Playing:
		s.halt(nil)
		return nil
	case Stopped:
		// already stopped, possibly by the in-flight tick.
		s.stop.Store(false)
		return nil
	default:
		s.stop.Store(false)
		return fmt.Errorf("player: could not stop session in state %v: %w", s.state, ErrState)
	}
}

// Tick emits all the digests that are due according to the session
// clock.
//
// Tick is non-reentrant: a tick that fires while another one is still
// emitting is skipped.
// Tick returns a *DriverFailure if the pin driver failed, in which case
// the session is stopped.
//
// Critical overruns are passed to the monitor warning function once
// the emissions are done and the scheduler is unlocked, so the warning
// function may call back into the scheduler.
func (s *Scheduler) Tick() error {
	if !s.busy.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		return nil
	}
	defer s.busy.Store(false)

	err := s.tick()
	for i, w := range s.warns {
		s.mon.Warn(w)
		s.warns[i] = monitor.OverrunWarning{}
	}
	s.warns = s.warns[:0]
	return err
}

// tick emits the due digests, collecting critical overruns in s.warns.
func (s *Scheduler) tick() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Playing {
		return nil
	}

	var (
		sess    = s.sess
		size    = s.tbl.Len()
		now     = sess.clock.Now()
		wrapped = false
	)

	for {
		if s.stop.Load() {
			s.halt(nil)
			return nil
		}

		if sess.cursor == size {
			if !sess.Loop {
				s.complete()
				return nil
			}
			if wrapped {
				return nil
			}
			sess.cursor = 0
			sess.pass++
			wrapped = true
		}

		due := sess.due()
		if due > now {
			return nil
		}

		d := s.tbl.At(sess.cursor)
		err := s.drv.SetLevel(d.Byte, d.Dir)
		if err != nil {
			fail := &DriverFailure{Index: sess.cursor, Digest: d, Err: err}
			s.halt(fail)
			return fail
		}
		if w, crit := s.mon.Observe(sess.cursor, d, now-due); crit {
			s.warns = append(s.warns, w)
		}
		sess.cursor++
	}
}

// complete and halt must be called with s.mu held.

func (s *Scheduler) complete() {
	s.state = Completed
	s.sess.clock.Pause()
	close(s.done)
	st := s.mon.Stats()
	s.msg.Printf(
		"session %v completed (emitted=%d, overruns=%d, max-lateness=%v)",
		s.sess.ID, st.Emitted, st.Overruns, st.MaxLateness,
	)
}

func (s *Scheduler) halt(err error) {
	prev := s.state
	s.state = Stopped
	s.tbl = nil
	s.err = err
	s.stop.Store(false)
	if prev == Playing {
		close(s.done)
	}
	if s.sess != nil {
		s.sess.clock.Pause()
	}

	var id uuid.UUID
	if s.sess != nil {
		id = s.sess.ID
	}
	switch err {
	case nil:
		s.msg.Printf("session %v stopped", id)
	default:
		s.msg.Printf("session %v stopped: %+v", id, err)
	}
}

// Pause freezes the session clock.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Playing {
		return fmt.Errorf("player: could not pause session in state %v: %w", s.state, ErrState)
	}
	s.sess.clock.Pause()
	return nil
}

// Resume lets the session clock advance again.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Playing {
		return fmt.Errorf("player: could not resume session in state %v: %w", s.state, ErrState)
	}
	s.sess.clock.Resume()
	return nil
}

// SetRate changes the rate of the session clock.
// An invalid rate is rejected with a *vclock.InvalidRateError and the
// session is left untouched.
func (s *Scheduler) SetRate(f float64) error {
	err := vclock.CheckRate(f)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Playing {
		return fmt.Errorf("player: could not set rate in state %v: %w", s.state, ErrState)
	}
	return s.sess.clock.SetRate(f)
}

// Done returns a channel closed when the current session leaves the
// Playing state.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err returns the error that stopped the last session, if any.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
