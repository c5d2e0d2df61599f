// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-lpc/mockingbird/digest"
	"github.com/go-lpc/mockingbird/internal/config"
	"github.com/go-lpc/mockingbird/monitor"
	"github.com/go-lpc/mockingbird/pin"
	"github.com/go-lpc/mockingbird/player"
	"github.com/go-lpc/mockingbird/vclock"
)

// simHistory is the number of level changes kept by the simulated line.
const simHistory = 1024

var cmdNames = []string{
	"help", "load", "start", "stop", "pause", "resume",
	"rate", "status", "wait", "quit",
}

const usage = `commands:
  load FILE [rebase]     load a digest table
  start [LOOP] [RATE]    start a session (LOOP: true|false)
  stop                   stop the current session
  pause                  freeze the session clock
  resume                 resume the session clock
  rate RATE              change the playback rate
  status                 display the session status
  wait                   wait for the end of the current session
  quit                   stop the current session and exit
`

type shell struct {
	w     io.Writer
	msg   *log.Logger
	sched *player.Scheduler
	tick  time.Duration
	loop  bool
	rate  float64

	flush func() error

	cancel context.CancelFunc
	done   chan struct{}
}

func newShell(w io.Writer, cfg config.Config, vcd string) (*shell, error) {
	var (
		src   = vclock.NewReal()
		drv   pin.Driver
		flush = func() error { return nil }
	)

	switch vcd {
	case "":
		drv = pin.NewRecorder(src, pin.WithCapacity(simHistory))
	default:
		f, err := os.Create(vcd)
		if err != nil {
			return nil, fmt.Errorf("could not create VCD trace: %w", err)
		}
		trace := pin.NewVCD(f, src)
		drv = trace
		flush = func() error {
			err := trace.Flush()
			if e := f.Close(); e != nil && err == nil {
				err = e
			}
			return err
		}
	}

	sh := &shell{
		w:   w,
		msg: log.New(w, "mbird-sh: ", 0),
		sched: player.New(
			drv, src,
			player.WithMonitor(
				monitor.WithTolerance(cfg.Tolerance),
				monitor.WithCritical(cfg.Critical),
			),
			player.WithLogger(log.New(w, "player: ", 0)),
		),
		tick:  cfg.Tick,
		loop:  cfg.Loop,
		rate:  cfg.Rate,
		flush: flush,
	}
	return sh, nil
}

func (sh *shell) close() error {
	_ = sh.sched.Stop()
	sh.wait()
	return sh.flush()
}

// exec runs a single console command.
func (sh *shell) exec(line string) (quit bool, err error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}

	switch cmd, args := args[0], args[1:]; cmd {
	case "help", "?":
		fmt.Fprint(sh.w, usage)
		return false, nil

	case "load":
		return false, sh.load(args)

	case "start":
		return false, sh.start(args)

	case "stop":
		err := sh.sched.Stop()
		sh.wait()
		return false, err

	case "pause":
		return false, sh.sched.Pause()

	case "resume":
		return false, sh.sched.Resume()

	case "rate":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: rate RATE")
		}
		f, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return false, fmt.Errorf("could not parse rate %q: %w", args[0], err)
		}
		return false, sh.sched.SetRate(f)

	case "status":
		sh.status()
		return false, nil

	case "wait":
		sh.wait()
		return false, nil

	case "quit", "exit":
		err := sh.sched.Stop()
		if err != nil && !isState(err) {
			return true, err
		}
		sh.wait()
		return true, nil
	}

	return false, fmt.Errorf("unknown command %q (try 'help')", args[0])
}

func (sh *shell) load(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: load FILE [rebase]")
	}

	tbl, err := digest.ReadFile(args[0])
	if err != nil {
		return err
	}
	if len(args) == 2 {
		if args[1] != "rebase" {
			return fmt.Errorf("invalid load option %q", args[1])
		}
		tbl = tbl.Rebase()
	}

	return sh.sched.Load(tbl)
}

func (sh *shell) start(args []string) error {
	var (
		loop = sh.loop
		rate = sh.rate
		err  error
	)

	switch len(args) {
	case 0:
	case 2:
		rate, err = strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("could not parse rate %q: %w", args[1], err)
		}
		fallthrough
	case 1:
		loop, err = strconv.ParseBool(args[0])
		if err != nil {
			return fmt.Errorf("could not parse loop mode %q: %w", args[0], err)
		}
	default:
		return fmt.Errorf("usage: start [LOOP] [RATE]")
	}

	// reap the goroutine of the previous session.
	sh.wait()

	err = sh.sched.Start(loop, rate)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	sh.cancel = cancel
	sh.done = done

	go func() {
		defer close(done)
		err := player.Run(ctx, sh.sched, sh.tick)
		if err != nil {
			sh.msg.Printf("session failed: %+v", err)
		}
	}()
	return nil
}

func (sh *shell) wait() {
	if sh.done == nil {
		return
	}
	<-sh.done
	sh.cancel()
	sh.done = nil
	sh.cancel = nil
}

func isState(err error) bool {
	return errors.Is(err, player.ErrState)
}

func (sh *shell) status() {
	st := sh.sched.Status()
	fmt.Fprintf(sh.w, "%s", st.Report())
	if st.Paused {
		fmt.Fprintf(sh.w, "paused:   true\n")
	}
	for _, w := range st.Warnings {
		fmt.Fprintf(sh.w, "warning:  %v\n", w)
	}
}
