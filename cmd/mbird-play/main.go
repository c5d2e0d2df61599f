// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command mbird-play replays a digest table on a pin driver.
//
// Usage: mbird-play [OPTIONS] TABLE
//
// Example:
//
//	$> mbird-play -drv=vcd -o trace.vcd -rebase ./testdata/digests.txt
//	mbird-play: loaded table "./testdata/digests.txt" (10 digests, duration=1.2s)
//	player: starting session 9f0c... (loop=false, rate=1)
//	session:  9f0c...
//	state:    completed
//	cursor:   10/10 (passes=0, loop=false)
//	[...]
package main // import "github.com/go-lpc/mockingbird/cmd/mbird-play"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/go-lpc/mockingbird"
	"github.com/go-lpc/mockingbird/alert"
	"github.com/go-lpc/mockingbird/digest"
	"github.com/go-lpc/mockingbird/internal/config"
	"github.com/go-lpc/mockingbird/monitor"
	"github.com/go-lpc/mockingbird/pin/ftdipin"
	"github.com/go-lpc/mockingbird/player"
	"github.com/go-lpc/mockingbird/runlog"
	"github.com/go-lpc/mockingbird/vclock"
	"github.com/pkg/profile"
	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
)

type options struct {
	drv  string // pin driver name
	out  string // output trace for the vcd drivers
	baud int

	mem  string // memory device for the mmap driver
	addr int64  // register address for the mmap driver
	bus  int    // i2c bus for the smbus driver
	i2c  uint   // i2c address for the smbus driver
	pid  uint   // FTDI product ID

	loop   bool
	rate   float64
	tick   time.Duration
	tol    time.Duration
	crit   time.Duration
	rebase bool
	watch  bool

	db   string
	mail bool
	cfg  config.Config

	pmon string        // pmon output file
	freq time.Duration // pmon frequency
	prof string        // CPU profile output directory
}

func main() {
	log.SetPrefix("mbird-play: ")
	log.SetFlags(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load configuration: %+v", err)
	}

	opts := newOptions(flag.CommandLine, cfg)

	version := flag.Bool("version", false, "display version and exit")

	flag.Usage = func() {
		fmt.Printf(`mbird-play replays a digest table on a pin driver.

Usage: mbird-play [OPTIONS] TABLE

Example:

 $> mbird-play -drv=vcd -o trace.vcd -rebase ./testdata/digests.txt

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if *version {
		v, sum := mockingbird.Version()
		fmt.Printf("mbird-play %s %s\n", v, sum)
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("missing path to digest table")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err = run(ctx, os.Stdout, flag.Arg(0), *opts)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

// newOptions registers the command-line flags on fset, with defaults
// taken from cfg.
func newOptions(fset *flag.FlagSet, cfg config.Config) *options {
	opts := &options{cfg: cfg}
	fset.StringVar(&opts.drv, "drv", cfg.Driver, "pin driver (sim, vcd, uart-vcd, mmap, gpio, smbus, ftdi)")
	fset.StringVar(&opts.out, "o", "mbird.vcd", "path to the output VCD trace")
	fset.IntVar(&opts.baud, "baud", 115200, "baud rate of the uart-vcd driver")
	fset.StringVar(&opts.mem, "mem", "/dev/mem", "memory device of the mmap driver")
	fset.Int64Var(&opts.addr, "addr", 0xff200000, "register address of the mmap driver")
	fset.IntVar(&opts.bus, "i2c-bus", 1, "i2c bus of the smbus driver")
	fset.UintVar(&opts.i2c, "i2c-addr", 0x20, "i2c address of the smbus driver")
	fset.UintVar(&opts.pid, "ftdi-pid", ftdipin.ProdFT2232, "product ID of the dual-channel FTDI device")
	fset.BoolVar(&opts.loop, "loop", cfg.Loop, "replay the table in a loop")
	fset.Float64Var(&opts.rate, "rate", cfg.Rate, "playback rate")
	fset.DurationVar(&opts.tick, "tick", cfg.Tick, "tick period")
	fset.DurationVar(&opts.tol, "tolerance", cfg.Tolerance, "lateness above which a digest is an overrun")
	fset.DurationVar(&opts.crit, "critical", cfg.Critical, "lateness above which an overrun is critical")
	fset.BoolVar(&opts.rebase, "rebase", false, "shift timestamps so the first digest happens at t=0")
	fset.BoolVar(&opts.watch, "watch", false, "replay the table whenever its file changes")
	fset.StringVar(&opts.db, "db", cfg.DB, "name of the database storing session reports")
	fset.BoolVar(&opts.mail, "mail", false, "send mail alerts on critical overruns")
	fset.StringVar(&opts.pmon, "pmon", "", "path to a pmon output file")
	fset.DurationVar(&opts.freq, "freq", 1*time.Second, "pmon frequency")
	fset.StringVar(&opts.prof, "cpuprofile", "", "directory of the CPU profile")
	return opts
}

func run(ctx context.Context, w io.Writer, fname string, opts options) error {
	if opts.prof != "" {
		defer profile.Start(
			profile.CPUProfile,
			profile.ProfilePath(opts.prof),
			profile.NoShutdownHook,
		).Stop()
	}

	if opts.pmon != "" {
		stop, err := monitorSelf(opts.pmon, opts.freq)
		if err != nil {
			return err
		}
		defer stop()
	}

	msg := log.New(w, "mbird-play: ", 0)

	tbl, err := load(fname, opts.rebase)
	if err != nil {
		return err
	}
	msg.Printf("loaded table %q (%d digests, duration=%v)", fname, tbl.Len(), tbl.Duration())

	src := vclock.NewReal()
	drv, err := openDriver(w, src, opts)
	if err != nil {
		return err
	}
	defer func() {
		err := drv.Close()
		if err != nil {
			msg.Printf("could not close driver %q: %+v", opts.drv, err)
		}
	}()

	var db *runlog.DB
	if opts.db != "" {
		db, err = runlog.Open(
			opts.db,
			runlog.WithHost(opts.cfg.DBHost),
			runlog.WithCredentials(opts.cfg.DBUser, opts.cfg.DBPass),
		)
		if err != nil {
			return fmt.Errorf("could not open run log: %w", err)
		}
		defer db.Close()

		err = db.CreateTable(ctx)
		if err != nil {
			return fmt.Errorf("could not create run log table: %w", err)
		}
	}

	monOpts := []monitor.Option{
		monitor.WithTolerance(opts.tol),
		monitor.WithCritical(opts.crit),
	}

	var mailer *alert.Mailer
	if opts.mail {
		mailer = alert.New("mbird-play", opts.cfg.Mail)
		if !mailer.Enabled() {
			msg.Printf("mail alerts requested but missing credentials")
		}
		monOpts = append(monOpts, monitor.WithWarningFunc(mailer.Notify))
	}

	sched := player.New(
		drv, src,
		player.WithLoop(opts.loop),
		player.WithRate(opts.rate),
		player.WithMonitor(monOpts...),
		player.WithLogger(log.New(w, "player: ", 0)),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	grp, ctx := errgroup.WithContext(ctx)
	swap := make(chan *digest.Table, 1)

	if opts.watch {
		watcher, err := newWatcher(fname)
		if err != nil {
			return err
		}
		grp.Go(func() error {
			return watch(ctx, watcher, fname, opts.rebase, swap, msg)
		})
	}

	if mailer != nil {
		grp.Go(func() error {
			return mailer.Run(ctx)
		})
	}

	grp.Go(func() error {
		defer cancel()
		p := playlist{
			w:      w,
			sched:  sched,
			opts:   opts,
			db:     db,
			mailer: mailer,
			msg:    msg,
		}
		return p.play(ctx, tbl, swap)
	})

	err = grp.Wait()
	if err != nil {
		return fmt.Errorf("could not play table %q: %w", fname, err)
	}
	return nil
}

func load(fname string, rebase bool) (*digest.Table, error) {
	tbl, err := digest.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	if rebase {
		tbl = tbl.Rebase()
	}
	return tbl, nil
}

// playlist plays one session per table until the input is exhausted.
type playlist struct {
	w      io.Writer
	sched  *player.Scheduler
	opts   options
	db     *runlog.DB
	mailer *alert.Mailer
	msg    *log.Logger
}

func (p *playlist) play(ctx context.Context, tbl *digest.Table, swap <-chan *digest.Table) error {
	for {
		next, err := p.session(ctx, tbl, swap)
		if err != nil {
			return err
		}
		if next != nil {
			tbl = next
			continue
		}

		if !p.opts.watch || ctx.Err() != nil {
			return nil
		}

		p.msg.Printf("waiting for table changes...")
		select {
		case <-ctx.Done():
			return nil
		case tbl = <-swap:
		}
	}
}

// session plays tbl until it completes, ctx is done or a new table is
// received on swap. The new table, if any, is returned.
func (p *playlist) session(ctx context.Context, tbl *digest.Table, swap <-chan *digest.Table) (*digest.Table, error) {
	err := p.sched.Load(tbl)
	if err != nil {
		return nil, fmt.Errorf("could not load table: %w", err)
	}
	if p.mailer != nil {
		p.mailer.Reset()
	}

	err = p.sched.Start(p.opts.loop, p.opts.rate)
	if err != nil {
		return nil, fmt.Errorf("could not start session: %w", err)
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		next = make(chan *digest.Table, 1)
		done = make(chan struct{})
	)
	go func() {
		defer close(done)
		select {
		case tbl := <-swap:
			p.msg.Printf("table changed, stopping session...")
			next <- tbl
			cancel()
		case <-sctx.Done():
		}
	}()

	err = player.Run(sctx, p.sched, p.opts.tick)
	cancel()
	<-done

	st := p.sched.Status()
	rep := st.Report()
	fmt.Fprintf(p.w, "%s", rep)

	if p.db != nil {
		err := p.db.Insert(context.Background(), rep)
		if err != nil {
			p.msg.Printf("could not store session report: %+v", err)
		}
	}

	if p.mailer != nil && (rep.Critical > 0 || rep.Error != "") {
		err := p.mailer.Summary(rep)
		if err != nil {
			p.msg.Printf("could not send session summary: %+v", err)
		}
	}

	if err != nil {
		return nil, err
	}

	select {
	case tbl := <-next:
		return tbl, nil
	default:
		return nil, nil
	}
}

func monitorSelf(fname string, freq time.Duration) (func(), error) {
	pid := os.Getpid()
	p, err := pmon.Monitor(pid)
	if err != nil {
		return nil, fmt.Errorf("could not start monitoring (pid=%d): %w", pid, err)
	}

	f, err := os.Create(fname)
	if err != nil {
		return nil, fmt.Errorf("could not create pmon log file: %w", err)
	}
	p.W = f
	p.Freq = freq

	go func() {
		err := p.Run()
		if err != nil {
			log.Printf("could not run pmon: %+v", err)
		}
	}()

	return func() {
		err := p.Kill()
		if err != nil {
			log.Printf("could not stop monitoring: %+v", err)
		}
		_ = f.Close()
	}, nil
}
