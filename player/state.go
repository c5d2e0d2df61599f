// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package player

import (
	"errors"
	"fmt"

	"github.com/go-lpc/mockingbird/digest"
)

// State is the state of a playback scheduler.
type State uint8

const (
	Idle      State = iota // no table loaded
	Armed                  // table loaded, cursor at 0, clock not started
	Playing                // clock running, emitting digests
	Completed              // cursor reached the end of the table
	Stopped                // cancelled, or halted by a driver failure
)

func (st State) String() string {
	switch st {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Playing:
		return "playing"
	case Completed:
		return "completed"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", uint8(st))
}

var (
	// ErrNoTable is returned when starting a scheduler with no table.
	ErrNoTable = errors.New("player: no table loaded")

	// ErrBusy is returned when trying to swap the table of a playing session.
	ErrBusy = errors.New("player: session is playing")

	// ErrState is returned for control requests invalid in the current state.
	ErrState = errors.New("player: invalid request for current state")
)

// DriverFailure is returned when the pin driver fails to apply a digest.
// The session is stopped and the write is never retried.
type DriverFailure struct {
	Index  int           // index of the digest in the table
	Digest digest.Digest // digest that could not be applied
	Err    error         // driver error
}

func (e *DriverFailure) Error() string {
	return fmt.Sprintf("player: driver failure on digest #%d %v: %v", e.Index, e.Digest, e.Err)
}

func (e *DriverFailure) Unwrap() error { return e.Err }
