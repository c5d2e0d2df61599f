// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pin

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// GPIOConfig describes the BCM pin numbers wired to the emulated bus.
type GPIOConfig struct {
	Data [8]int // data lines, LSB first
	Dir  int    // direction line
}

// DefaultGPIO is the pin assignment of the mockingbird RPi hat.
var DefaultGPIO = GPIOConfig{
	Data: [8]int{4, 5, 6, 12, 13, 16, 17, 18},
	Dir:  22,
}

type gpioLine interface {
	Output()
	Write(state rpio.State)
}

var (
	rpioOpen  = rpio.Open
	rpioClose = rpio.Close
	rpioLine  = func(n int) gpioLine { return rpio.Pin(n) }
)

// GPIO drives a line through the Raspberry-Pi GPIO header.
type GPIO struct {
	data [8]gpioLine
	dir  gpioLine
	cur  [9]rpio.State
	init bool
}

// OpenGPIO maps the GPIO memory and configures the provided pins as outputs.
func OpenGPIO(cfg GPIOConfig) (*GPIO, error) {
	err := rpioOpen()
	if err != nil {
		return nil, fmt.Errorf("pin: could not open GPIO memory: %w", err)
	}

	var dev GPIO
	for i, n := range cfg.Data {
		dev.data[i] = rpioLine(n)
		dev.data[i].Output()
	}
	dev.dir = rpioLine(cfg.Dir)
	dev.dir.Output()

	return &dev, nil
}

func state(b bool) rpio.State {
	if b {
		return rpio.High
	}
	return rpio.Low
}

// SetLevel only toggles the lines whose state changed.
func (dev *GPIO) SetLevel(v byte, dir bool) error {
	for i, line := range dev.data {
		s := state(v&(1<<i) != 0)
		if dev.init && dev.cur[i] == s {
			continue
		}
		line.Write(s)
		dev.cur[i] = s
	}
	s := state(dir)
	if !dev.init || dev.cur[8] != s {
		dev.dir.Write(s)
		dev.cur[8] = s
	}
	dev.init = true
	return nil
}

// Close unmaps the GPIO memory.
func (dev *GPIO) Close() error {
	err := rpioClose()
	if err != nil {
		return fmt.Errorf("pin: could not close GPIO memory: %w", err)
	}
	return nil
}

var _ Driver = (*GPIO)(nil)
