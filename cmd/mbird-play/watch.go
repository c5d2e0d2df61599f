// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/go-lpc/mockingbird/digest"
)

// newWatcher watches the directory holding fname, so tables replaced
// by a rename are still seen.
func newWatcher(fname string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}

	err = w.Add(filepath.Dir(fname))
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("could not watch table %q: %w", fname, err)
	}
	return w, nil
}

// watch reloads fname each time it is modified and sends the new table
// on swap. A pending table not yet consumed is replaced.
func watch(ctx context.Context, w *fsnotify.Watcher, fname string, rebase bool, swap chan *digest.Table, msg *log.Logger) error {
	defer w.Close()

	name := filepath.Clean(fname)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			tbl, err := load(fname, rebase)
			if err != nil {
				msg.Printf("could not reload table %q: %+v", fname, err)
				continue
			}
			msg.Printf("reloaded table %q (%d digests)", fname, tbl.Len())

			select {
			case <-swap:
			default:
			}
			swap <- tbl

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("could not watch table %q: %w", fname, err)
		}
	}
}
