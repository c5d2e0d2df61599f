// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runlog

import (
	"context"
	"database/sql/driver"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/go-lpc/mockingbird/internal/fakedb"
	"github.com/go-lpc/mockingbird/player"
)

func init() {
	drvName = "fakedb"
}

func TestDSN(t *testing.T) {
	cfg := config{host: "localhost", usr: "mbird"}
	WithCredentials("bob", "s3cr3t")(&cfg)
	WithHost("db.example.org:3306")(&cfg)
	if got, want := cfg.dsn("mbird"), "bob:s3cr3t@tcp(db.example.org:3306)/mbird?parseTime=true"; got != want {
		t.Fatalf("got= %v\nwant=%v", got, want)
	}
}

func TestOpen(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open runlog: %+v", err)
	}
	defer db.Close()
}

var report = player.Report{
	ID:           "5f0e8a5e-0c1f-4a7b-9a55-0bd0c7d5b9e1",
	Start:        time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
	State:        "completed",
	Size:         3,
	Cursor:       3,
	Passes:       0,
	Loop:         false,
	Rate:         1,
	Elapsed:      100 * time.Millisecond,
	Emitted:      3,
	Overruns:     1,
	Critical:     0,
	MaxLateness:  2 * time.Millisecond,
	MeanLateness: 666666 * time.Nanosecond,
}

func TestInsert(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open runlog: %+v", err)
	}
	defer db.Close()

	execs, err := fakedb.Record(context.Background(), nil, func(ctx context.Context) error {
		err := db.CreateTable(ctx)
		if err != nil {
			return err
		}
		return db.Insert(ctx, report)
	})
	if err != nil {
		t.Fatalf("could not insert report: %+v", err)
	}

	if got, want := len(execs), 2; got != want {
		t.Fatalf("invalid number of statements: got=%d, want=%d", got, want)
	}
	if got, want := execs[0].Query, Schema; got != want {
		t.Fatalf("invalid schema statement: got=%q", got)
	}
	if got, want := execs[1].Query, insertQuery; got != want {
		t.Fatalf("invalid insert statement: got=%q", got)
	}
	want := []driver.Value{
		report.ID, report.Start, report.State, int64(3), int64(3), int64(0), false, 1.0,
		int64(100 * time.Millisecond), int64(3), int64(1), int64(0),
		int64(2 * time.Millisecond), int64(666666), "",
	}
	if got := execs[1].Args; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid insert arguments:\ngot= %#v\nwant=%#v", got, want)
	}
}

func TestInsertError(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open runlog: %+v", err)
	}
	defer db.Close()

	errDB := errors.New("db is read-only")
	_, err = fakedb.Record(context.Background(), errDB, func(ctx context.Context) error {
		return db.Insert(ctx, report)
	})
	if !errors.Is(err, errDB) {
		t.Fatalf("invalid error: %+v", err)
	}
	if got, want := err.Error(), "runlog: could not insert session "+report.ID+": db is read-only"; got != want {
		t.Fatalf("got= %v\nwant=%v", got, want)
	}
}

func TestSessions(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open runlog: %+v", err)
	}
	defer db.Close()

	stopped := report
	stopped.ID = "0b8bd3f6-8d51-4b5e-8a8e-3a3a7bb1c2d4"
	stopped.State = "stopped"
	stopped.Cursor = 1
	stopped.Error = "player: driver failure on digest #1"

	row := func(r player.Report) []driver.Value {
		return []driver.Value{
			r.ID, r.Start, r.State, int64(r.Size), int64(r.Cursor), int64(r.Passes),
			r.Loop, r.Rate, int64(r.Elapsed), int64(r.Emitted), int64(r.Overruns),
			int64(r.Critical), int64(r.MaxLateness), int64(r.MeanLateness), r.Error,
		}
	}

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{
			"id", "start", "state", "size", "cur", "passes", "looped", "rate",
			"elapsed_ns", "emitted", "overruns", "critical",
			"max_lateness_ns", "mean_lateness_ns", "err_msg",
		},
		Values: [][]driver.Value{
			row(stopped),
			row(report),
		},
	}, func(ctx context.Context) error {
		got, err := db.Sessions(ctx, 10)
		if err != nil {
			t.Fatalf("could not retrieve sessions: %+v", err)
		}
		want := []player.Report{stopped, report}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid sessions:\ngot= %+v\nwant=%+v", got, want)
		}
		return nil
	})
}
