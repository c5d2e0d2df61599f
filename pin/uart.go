// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pin

import (
	"fmt"
	"time"
)

// DefaultBaud is the baud rate of the captured debug link.
const DefaultBaud = 115200

// Line is a single timed digital line. The idle level is high.
type Line interface {
	Edge(at time.Duration, level bool) error
}

// UART expands each byte into an asynchronous serial frame: a start bit,
// 8 data bits LSB first and stop bits.
//
// The direction flag selects the frame format of the captured link:
// 2 stop bits (8N2) when dir is true (debugger to target), 1 stop bit
// (8N1) otherwise.
// A frame starts at the current time, or when the previous frame
// ends if the line is still busy.
type UART struct {
	line Line
	tm   Timer
	baud int

	level bool
	busy  time.Duration
}

// UARTOption configures a UART driver.
type UARTOption func(*UART)

// WithBaud sets the baud rate of the serial line.
func WithBaud(baud int) UARTOption {
	return func(u *UART) {
		u.baud = baud
	}
}

// NewUART returns a serial driver writing frames on line, timed by tm.
func NewUART(line Line, tm Timer, opts ...UARTOption) *UART {
	u := &UART{
		line:  line,
		tm:    tm,
		baud:  DefaultBaud,
		level: true,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.baud <= 0 {
		panic(fmt.Errorf("pin: invalid baud rate %d", u.baud))
	}
	return u
}

// FrameLen returns the duration of a frame with the provided direction.
func (u *UART) FrameLen(dir bool) time.Duration {
	return u.bitAt(0, u.nbits(dir))
}

func (u *UART) nbits(dir bool) int {
	if dir {
		return 11
	}
	return 10
}

func (u *UART) bitAt(start time.Duration, i int) time.Duration {
	return start + time.Duration(int64(i)*int64(time.Second)/int64(u.baud))
}

func (u *UART) SetLevel(v byte, dir bool) error {
	start := u.tm.Now()
	if start < u.busy {
		start = u.busy
	}

	// start bit, data bits, then the line goes back to idle for the stop bits.
	var bits [10]bool
	for i := 0; i < 8; i++ {
		bits[i+1] = v&(1<<i) != 0
	}
	bits[9] = true

	for i, lvl := range bits {
		if lvl == u.level {
			continue
		}
		err := u.line.Edge(u.bitAt(start, i), lvl)
		if err != nil {
			return fmt.Errorf("pin: could not write uart frame 0x%02x: %w", v, err)
		}
		u.level = lvl
	}
	u.busy = u.bitAt(start, u.nbits(dir))
	return nil
}

var _ Driver = (*UART)(nil)
