// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package player

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-lpc/mockingbird/digest"
	"github.com/go-lpc/mockingbird/pin"
)

// stepSource advances by a fixed step each time it is read.
type stepSource struct {
	mu   sync.Mutex
	cur  time.Duration
	step time.Duration
}

func (src *stepSource) Now() time.Duration {
	src.mu.Lock()
	defer src.mu.Unlock()
	src.cur += src.step
	return src.cur
}

func TestRun(t *testing.T) {
	ds := []digest.Digest{
		{Timestamp: 0.0, Byte: 1},
		{Timestamp: 0.1, Byte: 2},
		{Timestamp: 0.2, Byte: 3},
	}

	t.Run("completed", func(t *testing.T) {
		rec := pin.NewRecorder(nil)
		s := New(rec, &stepSource{step: 20 * time.Millisecond}, WithLogger(discard))
		if err := s.Load(mustTable(t, ds)); err != nil {
			t.Fatalf("could not load: %+v", err)
		}
		if err := s.Start(false, 1); err != nil {
			t.Fatalf("could not start: %+v", err)
		}
		err := Run(context.Background(), s, time.Millisecond)
		if err != nil {
			t.Fatalf("could not run: %+v", err)
		}
		st := s.Status()
		if st.State != Completed || st.Cursor != 3 || rec.Len() != 3 {
			t.Fatalf("invalid status: state=%v, cursor=%d, n=%d", st.State, st.Cursor, rec.Len())
		}
	})

	t.Run("driver-failure", func(t *testing.T) {
		rec := pin.NewRecorder(nil)
		rec.FailAfter(2, errors.New("hardware fault"))
		s := New(rec, &stepSource{step: 20 * time.Millisecond}, WithLogger(discard))
		if err := s.Load(mustTable(t, ds)); err != nil {
			t.Fatalf("could not load: %+v", err)
		}
		if err := s.Start(true, 1); err != nil {
			t.Fatalf("could not start: %+v", err)
		}
		err := Run(context.Background(), s, time.Millisecond)
		var fail *DriverFailure
		if !errors.As(err, &fail) {
			t.Fatalf("invalid error: %+v", err)
		}
		if got, want := fail.Index, 2; got != want {
			t.Fatalf("invalid failure index: got=%d, want=%d", got, want)
		}
		if got, want := s.Status().State, Stopped; got != want {
			t.Fatalf("invalid state: got=%v, want=%v", got, want)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		rec := pin.NewRecorder(nil)
		s := New(rec, &stepSource{step: time.Millisecond}, WithLogger(discard))
		if err := s.Load(mustTable(t, ds)); err != nil {
			t.Fatalf("could not load: %+v", err)
		}
		if err := s.Start(true, 1); err != nil {
			t.Fatalf("could not start: %+v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := Run(ctx, s, time.Millisecond)
		if err != nil {
			t.Fatalf("could not run: %+v", err)
		}
		if got, want := s.Status().State, Stopped; got != want {
			t.Fatalf("invalid state: got=%v, want=%v", got, want)
		}
	})

	t.Run("not-playing", func(t *testing.T) {
		s := New(pin.NewRecorder(nil), &stepSource{}, WithLogger(discard))
		err := Run(context.Background(), s, time.Millisecond)
		if err != nil {
			t.Fatalf("could not run: %+v", err)
		}
	})
}

func TestReport(t *testing.T) {
	s, src, _ := newTestScheduler(t, []digest.Digest{
		{Timestamp: 0.0, Byte: 1},
		{Timestamp: 0.1, Byte: 2},
	})
	if err := s.Start(false, 1); err != nil {
		t.Fatalf("could not start: %+v", err)
	}
	src.Advance(150 * time.Millisecond)
	tick(t, s)

	st := s.Status()
	r := st.Report()
	if r.ID != st.ID.String() || r.State != "completed" || r.Emitted != 2 || r.Cursor != 2 || r.Size != 2 {
		t.Fatalf("invalid report: %+v", r)
	}
	if got, want := r.MaxLateness, 150*time.Millisecond; got != want {
		t.Fatalf("invalid max lateness: got=%v, want=%v", got, want)
	}
	if got, want := r.MeanLateness, 100*time.Millisecond; got != want {
		t.Fatalf("invalid mean lateness: got=%v, want=%v", got, want)
	}

	txt := r.String()
	for _, want := range []string{
		"session:  " + r.ID + "\n",
		"state:    completed\n",
		"cursor:   2/2 (passes=0, loop=false)\n",
		"overruns: 2 (critical=2)\n",
		"lateness: max=150ms, mean=100ms\n",
	} {
		if !strings.Contains(txt, want) {
			t.Fatalf("report is missing %q:\n%s", want, txt)
		}
	}
	if strings.Contains(txt, "error:") {
		t.Fatalf("report has an error line:\n%s", txt)
	}

	r.Error = "boom"
	if !strings.Contains(r.String(), "error:    boom\n") {
		t.Fatalf("report is missing its error:\n%s", r.String())
	}
}
