// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package player

import (
	"context"
	"time"
)

// Run drives the current session of s with a tick every period, until
// the session leaves the Playing state.
//
// Cancelling ctx stops the session. Run returns the driver failure that
// stopped the session, if any.
func Run(ctx context.Context, s *Scheduler, period time.Duration) error {
	tck := time.NewTicker(period)
	defer tck.Stop()

	done := s.Done()
	err := s.Tick()
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			_ = s.Stop()
			return s.Err()
		case <-done:
			return s.Err()
		case <-tck.C:
			err := s.Tick()
			if err != nil {
				return err
			}
		}
	}
}
