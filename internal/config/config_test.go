// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/mockingbird/alert"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("could not load config: %+v", err)
	}
	want := Config{
		Rate:      1,
		Tick:      100 * time.Microsecond,
		Tolerance: time.Millisecond,
		Critical:  10 * time.Millisecond,
		Driver:    "sim",
		DBHost:    "localhost",
		DBUser:    "mbird",
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("invalid defaults:\ngot= %+v\nwant=%+v", cfg, want)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("MBIRD_RATE", "2.5")
	t.Setenv("MBIRD_LOOP", "true")
	t.Setenv("MBIRD_TICK", "1ms")
	t.Setenv("MBIRD_DRIVER", "vcd")
	t.Setenv("MBIRD_DB", "mbird")
	t.Setenv("MAIL_USERNAME", "mbird@example.org")
	t.Setenv("MAIL_PASSWORD", "s3cr3t")
	t.Setenv("MAIL_SERVER", "smtp.example.org")
	t.Setenv("MAIL_PORT", "587")
	t.Setenv("MAIL_TGTS", "alice@example.org,bob@example.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("could not load config: %+v", err)
	}
	if cfg.Rate != 2.5 || !cfg.Loop || cfg.Tick != time.Millisecond || cfg.Driver != "vcd" || cfg.DB != "mbird" {
		t.Fatalf("invalid config: %+v", cfg)
	}
	want := alert.Config{
		Usr:     "mbird@example.org",
		Pwd:     "s3cr3t",
		Server:  "smtp.example.org",
		Port:    587,
		Targets: []string{"alice@example.org", "bob@example.org"},
	}
	if !reflect.DeepEqual(cfg.Mail, want) {
		t.Fatalf("invalid mail config:\ngot= %+v\nwant=%+v", cfg.Mail, want)
	}
}

func TestLoadError(t *testing.T) {
	t.Setenv("MBIRD_RATE", "fast")
	_, err := Load()
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.HasPrefix(err.Error(), "config: could not parse environment:") {
		t.Fatalf("invalid error: %+v", err)
	}
}
