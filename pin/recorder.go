// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pin

import (
	"sync"
	"time"
)

// Event is a level change captured by a Recorder.
type Event struct {
	Seq  int           // sequence number of the write, starting at 0
	At   time.Duration // time of the write, as given by the recorder timer
	Byte byte
	Dir  bool
}

// Recorder is a simulated line that records level changes.
// Recorder is safe for concurrent use.
type Recorder struct {
	tm  Timer
	cap int // maximum number of retained events; 0 for no limit

	mu    sync.Mutex
	evts  []Event
	beg   int // index of the oldest event, once the history is full
	n     int
	limit int // number of successful writes before failing; -1 to never fail
	err   error
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithCapacity bounds the recorder history to the n most recent events.
// A zero or negative n keeps every event.
func WithCapacity(n int) RecorderOption {
	return func(rec *Recorder) {
		if n < 0 {
			n = 0
		}
		rec.cap = n
	}
}

// NewRecorder returns a recorder timestamping events with tm.
// tm may be nil, in which case events are not timestamped.
func NewRecorder(tm Timer, opts ...RecorderOption) *Recorder {
	rec := &Recorder{tm: tm, limit: -1}
	for _, opt := range opts {
		opt(rec)
	}
	return rec
}

// FailAfter scripts the recorder to accept n more writes and then fail
// every subsequent one with err.
func (rec *Recorder) FailAfter(n int, err error) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.limit = rec.n + n
	rec.err = err
}

func (rec *Recorder) SetLevel(v byte, dir bool) error {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.limit >= 0 && rec.n >= rec.limit {
		return rec.err
	}

	var at time.Duration
	if rec.tm != nil {
		at = rec.tm.Now()
	}
	evt := Event{Seq: rec.n, At: at, Byte: v, Dir: dir}
	switch {
	case rec.cap == 0 || len(rec.evts) < rec.cap:
		rec.evts = append(rec.evts, evt)
	default:
		rec.evts[rec.beg] = evt
		rec.beg = (rec.beg + 1) % rec.cap
	}
	rec.n++
	return nil
}

// Events returns a copy of the retained events, oldest first.
func (rec *Recorder) Events() []Event {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	o := make([]Event, 0, len(rec.evts))
	o = append(o, rec.evts[rec.beg:]...)
	o = append(o, rec.evts[:rec.beg]...)
	return o
}

// Len returns the number of level changes applied since the last reset,
// including the ones dropped from a bounded history.
func (rec *Recorder) Len() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.n
}

// Reset discards recorded events and any scripted failure.
func (rec *Recorder) Reset() {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.evts = rec.evts[:0]
	rec.beg = 0
	rec.n = 0
	rec.limit = -1
	rec.err = nil
}

var _ Driver = (*Recorder)(nil)
