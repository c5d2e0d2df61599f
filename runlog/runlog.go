// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runlog stores playback session reports in a MySQL database.
package runlog // import "github.com/go-lpc/mockingbird/runlog"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-lpc/mockingbird/player"
	_ "github.com/go-sql-driver/mysql"
)

const timeout = 5 * time.Second

var (
	drvName = "mysql"
)

// Schema is the definition of the sessions table.
const Schema = `CREATE TABLE IF NOT EXISTS sessions (
	id               CHAR(36) NOT NULL PRIMARY KEY,
	start            DATETIME(6) NOT NULL,
	state            VARCHAR(16) NOT NULL,
	size             INT NOT NULL,
	cur              INT NOT NULL,
	passes           INT NOT NULL,
	looped           BOOLEAN NOT NULL,
	rate             DOUBLE NOT NULL,
	elapsed_ns       BIGINT NOT NULL,
	emitted          BIGINT UNSIGNED NOT NULL,
	overruns         BIGINT UNSIGNED NOT NULL,
	critical         BIGINT UNSIGNED NOT NULL,
	max_lateness_ns  BIGINT NOT NULL,
	mean_lateness_ns BIGINT NOT NULL,
	err_msg          TEXT NOT NULL
)`

const (
	columns = "id, start, state, size, cur, passes, looped, rate, elapsed_ns, " +
		"emitted, overruns, critical, max_lateness_ns, mean_lateness_ns, err_msg"

	insertQuery = "INSERT INTO sessions (" + columns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	selectQuery = "SELECT " + columns + " FROM sessions ORDER BY start DESC LIMIT ?"
)

type config struct {
	host string
	usr  string
	pwd  string
}

// Option configures the connection to the database.
type Option func(*config)

// WithHost sets the address of the database server.
func WithHost(host string) Option {
	return func(cfg *config) {
		cfg.host = host
	}
}

// WithCredentials sets the user name and password used to connect.
func WithCredentials(usr, pwd string) Option {
	return func(cfg *config) {
		cfg.usr = usr
		cfg.pwd = pwd
	}
}

// DB is a connection to the sessions database.
type DB struct {
	db   *sql.DB
	name string
}

// Open opens a connection to the sessions database dbname.
func Open(dbname string, opts ...Option) (*DB, error) {
	cfg := config{
		host: "localhost",
		usr:  "mbird",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sql.Open(drvName, cfg.dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("runlog: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, name: dbname}, nil
}

func (cfg config) dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", cfg.usr, cfg.pwd, cfg.host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("runlog: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// CreateTable creates the sessions table if it does not exist yet.
func (db *DB) CreateTable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := db.db.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("runlog: could not create sessions table: %w", err)
	}
	return nil
}

// Insert stores a session report.
func (db *DB) Insert(ctx context.Context, r player.Report) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := db.db.ExecContext(
		ctx, insertQuery,
		r.ID, r.Start, r.State, r.Size, r.Cursor, r.Passes, r.Loop, r.Rate,
		int64(r.Elapsed), r.Emitted, r.Overruns, r.Critical,
		int64(r.MaxLateness), int64(r.MeanLateness), r.Error,
	)
	if err != nil {
		return fmt.Errorf("runlog: could not insert session %s: %w", r.ID, err)
	}
	return nil
}

// Sessions returns the most recent session reports, newest first.
func (db *DB) Sessions(ctx context.Context, limit int) ([]player.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := db.db.QueryContext(ctx, selectQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: could not query sessions: %w", err)
	}
	defer rows.Close()

	var reps []player.Report
	for rows.Next() {
		var (
			r       player.Report
			elapsed int64
			maxLate int64
			meanLat int64
		)
		err = rows.Scan(
			&r.ID, &r.Start, &r.State, &r.Size, &r.Cursor, &r.Passes, &r.Loop, &r.Rate,
			&elapsed, &r.Emitted, &r.Overruns, &r.Critical,
			&maxLate, &meanLat, &r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("runlog: could not get session values: %w", err)
		}
		r.Elapsed = time.Duration(elapsed)
		r.MaxLateness = time.Duration(maxLate)
		r.MeanLateness = time.Duration(meanLat)
		reps = append(reps, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runlog: could not scan db for sessions: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("runlog: context error while retrieving sessions: %w", err)
	}

	return reps, nil
}
