// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package player

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/mockingbird/digest"
)

// Server exposes a scheduler as a TDAQ run-control process.
//
//   - /config loads the table file named in the request,
//   - /init and /reset re-arm the scheduler with the configured table,
//   - /start starts a session (loop flag as u32, rate as a string),
//   - /stop and /quit stop the current session.
//
// The /status output stream publishes the JSON report of the session.
type Server struct {
	sched  *Scheduler
	period time.Duration // tick period
	every  time.Duration // status period

	fname string
	tbl   *digest.Table
	load  func(fname string) (*digest.Table, error)
}

// NewServer returns a run-control server driving sched with a tick
// every period.
func NewServer(sched *Scheduler, period time.Duration) *Server {
	return &Server{
		sched:  sched,
		period: period,
		every:  time.Second,
		load:   digest.ReadFile,
	}
}

func (srv *Server) rearm(ctx tdaq.Context) error {
	if srv.tbl == nil {
		return ErrNoTable
	}
	err := srv.sched.Load(srv.tbl)
	if err != nil {
		return fmt.Errorf("could not arm table %q: %w", srv.fname, err)
	}
	ctx.Msg.Infof("table %q armed (digests=%d)", srv.fname, srv.tbl.Len())
	return nil
}

func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
	fname := dec.ReadStr()
	if err := dec.Err(); err != nil {
		ctx.Msg.Errorf("could not decode /config request: %+v", err)
		return fmt.Errorf("could not decode /config request: %w", err)
	}

	tbl, err := srv.load(fname)
	if err != nil {
		ctx.Msg.Errorf("could not load table %q: %+v", fname, err)
		return fmt.Errorf("could not load table %q: %w", fname, err)
	}
	srv.fname = fname
	srv.tbl = tbl

	return srv.rearm(ctx)
}

func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	err := srv.rearm(ctx)
	if err != nil {
		ctx.Msg.Errorf("could not initialize player: %+v", err)
		return fmt.Errorf("could not initialize player: %w", err)
	}
	return nil
}

func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	srv.stop(ctx)
	if srv.tbl == nil {
		return nil
	}
	return srv.rearm(ctx)
}

func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	var (
		loop = srv.sched.cfg.loop
		rate = srv.sched.cfg.rate
	)
	if len(req.Body) > 0 {
		dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
		loop = dec.ReadU32() != 0
		str := dec.ReadStr()
		if err := dec.Err(); err != nil {
			ctx.Msg.Errorf("could not decode /start request: %+v", err)
			return fmt.Errorf("could not decode /start request: %w", err)
		}
		if str != "" {
			v, err := strconv.ParseFloat(str, 64)
			if err != nil {
				ctx.Msg.Errorf("could not parse rate %q: %+v", str, err)
				return fmt.Errorf("could not parse rate %q: %w", str, err)
			}
			rate = v
		}
	}

	err := srv.sched.Start(loop, rate)
	if err != nil {
		ctx.Msg.Errorf("could not start session: %+v", err)
		return fmt.Errorf("could not start session: %w", err)
	}
	ctx.Msg.Infof("session %v started (loop=%v, rate=%v)", srv.sched.Status().ID, loop, rate)
	return nil
}

func (srv *Server) stop(ctx tdaq.Context) {
	err := srv.sched.Stop()
	switch {
	case err == nil:
		ctx.Msg.Infof("session stopped")
	case errors.Is(err, ErrState):
		// nothing to stop.
	default:
		ctx.Msg.Errorf("could not stop session: %+v", err)
	}
}

func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	st := srv.sched.Status()
	ctx.Msg.Debugf("received /stop command... -> n=%d", st.Stats.Emitted)
	srv.stop(ctx)
	return nil
}

func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	srv.stop(ctx)
	return nil
}

// Status publishes the JSON report of the current session.
func (srv *Server) Status(ctx tdaq.Context, dst *tdaq.Frame) error {
	if ctx.Ctx.Err() != nil {
		dst.Body = nil
		return nil
	}

	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case <-time.After(srv.every):
	}

	raw, err := json.Marshal(srv.sched.Status().Report())
	if err != nil {
		return fmt.Errorf("could not marshal session report: %w", err)
	}
	dst.Body = raw
	return nil
}

// Run ticks the scheduler until the run is stopped.
func (srv *Server) Run(ctx tdaq.Context) error {
	tck := time.NewTicker(srv.period)
	defer tck.Stop()

	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		case <-tck.C:
			err := srv.sched.Tick()
			if err != nil {
				ctx.Msg.Errorf("session halted: %+v", err)
			}
		}
	}
}
