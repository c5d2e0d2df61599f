// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pin holds the output drivers used to reproduce digests on a
// physical or simulated line.
package pin // import "github.com/go-lpc/mockingbird/pin"

import (
	"fmt"
	"time"
)

// Driver sets the output level and direction of a line.
//
// SetLevel is synchronous: when it returns, the value has been applied.
// Implementations must not retry failed hardware writes.
type Driver interface {
	SetLevel(v byte, dir bool) error
}

// Timer provides the time at which a level change happens.
// A *vclock.Clock is a Timer.
type Timer interface {
	Now() time.Duration
}

// Func adapts a plain function to the Driver interface.
type Func func(v byte, dir bool) error

func (f Func) SetLevel(v byte, dir bool) error { return f(v, dir) }

type multi struct {
	ds []Driver
}

// Multi returns a driver that applies each level change to all the
// provided drivers, in order.
// The first failure aborts the fan-out and is returned.
func Multi(ds ...Driver) Driver {
	return &multi{ds: append([]Driver(nil), ds...)}
}

func (m *multi) SetLevel(v byte, dir bool) error {
	for i, d := range m.ds {
		err := d.SetLevel(v, dir)
		if err != nil {
			return fmt.Errorf("pin: could not set level on driver #%d: %w", i, err)
		}
	}
	return nil
}

func dirByte(dir bool) byte {
	if dir {
		return 1
	}
	return 0
}

var (
	_ Driver = (Func)(nil)
	_ Driver = (*multi)(nil)
)
