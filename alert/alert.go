// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alert sends mail notifications about critical overruns and
// playback sessions.
package alert // import "github.com/go-lpc/mockingbird/alert"

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/go-lpc/mockingbird/monitor"
	"github.com/go-lpc/mockingbird/player"
	mail "gopkg.in/gomail.v2"
)

// MaxAlerts is the maximum number of overrun alerts sent per session.
const MaxAlerts = 5

// Config holds the mail server settings.
type Config struct {
	Usr     string   `env:"MAIL_USERNAME"`
	Pwd     string   `env:"MAIL_PASSWORD"`
	Server  string   `env:"MAIL_SERVER"`
	Port    int      `env:"MAIL_PORT"`
	Targets []string `env:"MAIL_TGTS" envSeparator:","`
}

func (cfg Config) valid() bool {
	return !(cfg.Usr == "" || cfg.Pwd == "" ||
		cfg.Server == "" || cfg.Port == 0 ||
		len(cfg.Targets) == 0)
}

type sender interface {
	DialAndSend(m ...*mail.Message) error
}

// Mailer sends alerts by mail.
//
// Notify only queues alerts so it can be called from the playback loop;
// queued alerts are sent by Run.
type Mailer struct {
	cfg  Config
	name string
	msg  *log.Logger
	send sender

	queue chan monitor.OverrunWarning

	mu      sync.Mutex
	n       int // number of alerts queued for the current session
	dropped int
}

// New returns a mailer tagging its messages with name.
func New(name string, cfg Config) *Mailer {
	dial := mail.NewDialer(cfg.Server, cfg.Port, cfg.Usr, cfg.Pwd)
	dial.TLSConfig = &tls.Config{
		ServerName: cfg.Server,
	}
	return &Mailer{
		cfg:   cfg,
		name:  name,
		msg:   log.New(os.Stdout, "alert: ", 0),
		send:  dial,
		queue: make(chan monitor.OverrunWarning, MaxAlerts),
	}
}

// Enabled reports whether the mailer has the credentials to send mails.
func (m *Mailer) Enabled() bool {
	return m.cfg.valid()
}

// Reset resets the per-session alert budget.
func (m *Mailer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n = 0
	m.dropped = 0
}

// Notify queues an alert about a critical overrun.
// At most MaxAlerts alerts are sent per session.
func (m *Mailer) Notify(w monitor.OverrunWarning) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.n >= MaxAlerts {
		m.dropped++
		return
	}
	select {
	case m.queue <- w:
		m.n++
	default:
		m.dropped++
	}
}

// Dropped returns the number of alerts that were not sent for the
// current session.
func (m *Mailer) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Run sends queued alerts until ctx is done.
func (m *Mailer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case w := <-m.queue:
			err := m.mail(
				fmt.Sprintf("[%s] critical overrun on digest #%d", m.name, w.Index),
				fmt.Sprintf(
					"digest:    #%d %v\nlateness:  %v\nthreshold: %v\n",
					w.Index, w.Digest, w.Lateness, w.Threshold,
				),
			)
			if err != nil {
				m.msg.Printf("could not send mail alert: %+v", err)
			}
		}
	}
}

// Summary sends the report of a finished session.
func (m *Mailer) Summary(r player.Report) error {
	var (
		dropped = m.Dropped()
		body    = r.String()
	)
	if dropped > 0 {
		body += fmt.Sprintf("dropped:  %d alerts\n", dropped)
	}
	return m.mail(
		fmt.Sprintf("[%s] session %s %s", m.name, r.ID, r.State),
		body,
	)
}

func (m *Mailer) mail(subject, body string) error {
	if !m.cfg.valid() {
		m.msg.Printf("could not send mail alert: missing credentials")
		return nil
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.cfg.Usr)
	msg.SetHeader("Bcc", m.cfg.Targets...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	err := m.send.DialAndSend(msg)
	if err != nil {
		return fmt.Errorf("alert: could not send mail %q: %w", subject, err)
	}
	return nil
}
