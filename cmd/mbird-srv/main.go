// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command mbird-srv starts a TDAQ server replaying digest tables.
//
// The table is selected with the /config command, and sessions are
// controlled with /init, /start, /stop and /reset.
// The /status output streams the session report as JSON.
package main // import "github.com/go-lpc/mockingbird/cmd/mbird-srv"

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/mockingbird/internal/config"
	"github.com/go-lpc/mockingbird/monitor"
	"github.com/go-lpc/mockingbird/pin"
	"github.com/go-lpc/mockingbird/player"
	"github.com/go-lpc/mockingbird/vclock"
)

func main() {
	log.SetPrefix("mbird-srv: ")
	log.SetFlags(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load configuration: %+v", err)
	}

	cmd := flags.New()

	name := "mbird"
	if len(cmd.Args) > 0 {
		name = cmd.Args[0]
	}

	dev, err := newDevice(name, cfg, os.Stdout)
	if err != nil {
		log.Fatalf("could not create player: %+v", err)
	}
	defer dev.close()

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.srv.OnConfig)
	srv.CmdHandle("/init", dev.srv.OnInit)
	srv.CmdHandle("/reset", dev.srv.OnReset)
	srv.CmdHandle("/start", dev.srv.OnStart)
	srv.CmdHandle("/stop", dev.srv.OnStop)
	srv.CmdHandle("/quit", dev.srv.OnQuit)

	srv.OutputHandle("/status", dev.srv.Status)

	srv.RunHandle(dev.srv.Run)

	err = srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

// simHistory is the number of level changes kept by the simulated line.
const simHistory = 1024

type device struct {
	srv   *player.Server
	close func() error
}

// newDevice creates the player served under the provided name, driving
// a simulated line or a VCD trace written to name.vcd.
func newDevice(name string, cfg config.Config, w io.Writer) (*device, error) {
	var (
		src   = vclock.NewReal()
		drv   pin.Driver
		close = func() error { return nil }
	)

	switch cfg.Driver {
	case "sim":
		drv = pin.NewRecorder(src, pin.WithCapacity(simHistory))
	case "vcd":
		f, err := os.Create(name + ".vcd")
		if err != nil {
			return nil, fmt.Errorf("could not create VCD trace: %w", err)
		}
		vcd := pin.NewVCD(f, src)
		drv = vcd
		close = func() error {
			err := vcd.Flush()
			if e := f.Close(); e != nil && err == nil {
				err = e
			}
			return err
		}
	default:
		return nil, fmt.Errorf("unsupported pin driver %q", cfg.Driver)
	}

	sched := player.New(
		drv, src,
		player.WithLoop(cfg.Loop),
		player.WithRate(cfg.Rate),
		player.WithMonitor(
			monitor.WithTolerance(cfg.Tolerance),
			monitor.WithCritical(cfg.Critical),
		),
		player.WithLogger(log.New(w, "player: ", 0)),
	)

	return &device{
		srv:   player.NewServer(sched, cfg.Tick),
		close: close,
	}, nil
}
