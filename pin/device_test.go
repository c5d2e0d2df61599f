// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pin

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"testing"

	"github.com/stianeikeland/go-rpio/v4"
)

type fakeSMBus struct {
	regs   map[uint8][]uint8
	addr   uint8
	fail   uint8
	closed bool
}

func (dev *fakeSMBus) WriteReg(addr, reg, v uint8) error {
	if addr != dev.addr {
		return fmt.Errorf("invalid address 0x%x", addr)
	}
	if reg == dev.fail {
		return io.EOF
	}
	dev.regs[reg] = append(dev.regs[reg], v)
	return nil
}

func (dev *fakeSMBus) Close() error {
	dev.closed = true
	return nil
}

func TestSMBus(t *testing.T) {
	dev := &fakeSMBus{regs: make(map[uint8][]uint8), addr: 0x20, fail: 0xff}
	smbusOpen = func(bus int, addr uint8) (smbusDevice, error) {
		if bus != 1 {
			return nil, fmt.Errorf("no such bus")
		}
		return dev, nil
	}
	defer func() {
		smbusOpen = smbusOpenImpl
	}()

	_, err := OpenSMBus(2, 0x20)
	if got, want := err.Error(), "pin: could not open i2c-2 device 0x20: no such bus"; got != want {
		t.Fatalf("got= %v\nwant=%v", got, want)
	}

	drv, err := OpenSMBus(1, 0x20)
	if err != nil {
		t.Fatalf("could not open smbus driver: %+v", err)
	}

	if err := drv.SetLevel(0xa5, true); err != nil {
		t.Fatalf("could not set level: %+v", err)
	}
	if err := drv.SetLevel(0x5a, false); err != nil {
		t.Fatalf("could not set level: %+v", err)
	}

	want := map[uint8][]uint8{
		regIODIRA: {0},
		regIODIRB: {0},
		regOLATA:  {0xa5, 0x5a},
		regOLATB:  {1, 0},
	}
	if !reflect.DeepEqual(dev.regs, want) {
		t.Fatalf("invalid registers:\ngot= %v\nwant=%v", dev.regs, want)
	}

	dev.fail = regOLATB
	err = drv.SetLevel(0x01, true)
	if got, want := err.Error(), "pin: could not write dir=true: EOF"; got != want {
		t.Fatalf("got= %v\nwant=%v", got, want)
	}

	_ = drv.Close()
	if !dev.closed {
		t.Fatalf("smbus device not closed")
	}

	dev = &fakeSMBus{regs: make(map[uint8][]uint8), addr: 0x20, fail: regIODIRB}
	_, err = OpenSMBus(1, 0x20)
	if got, want := err.Error(), "pin: could not configure i2c-1 device 0x20 (reg=0x1): EOF"; got != want {
		t.Fatalf("got= %v\nwant=%v", got, want)
	}
	if !dev.closed {
		t.Fatalf("smbus device not closed after configuration failure")
	}
}

type fakeLine struct {
	n     int
	state []rpio.State
	out   bool
}

func (l *fakeLine) Output() { l.out = true }
func (l *fakeLine) Write(s rpio.State) {
	l.state = append(l.state, s)
}

func TestGPIO(t *testing.T) {
	var (
		lines  = make(map[int]*fakeLine)
		opened bool
		closed bool
	)
	rpioOpen = func() error { opened = true; return nil }
	rpioClose = func() error { closed = true; return nil }
	rpioLine = func(n int) gpioLine {
		l := &fakeLine{n: n}
		lines[n] = l
		return l
	}
	defer func() {
		rpioOpen = rpio.Open
		rpioClose = rpio.Close
		rpioLine = func(n int) gpioLine { return rpio.Pin(n) }
	}()

	drv, err := OpenGPIO(DefaultGPIO)
	if err != nil {
		t.Fatalf("could not open gpio driver: %+v", err)
	}
	if !opened {
		t.Fatalf("gpio memory not opened")
	}
	if got, want := len(lines), 9; got != want {
		t.Fatalf("invalid number of lines: got=%d, want=%d", got, want)
	}
	for n, l := range lines {
		if !l.out {
			t.Fatalf("line %d not configured as output", n)
		}
	}

	if err := drv.SetLevel(0x01, true); err != nil {
		t.Fatalf("could not set level: %+v", err)
	}
	if err := drv.SetLevel(0x03, true); err != nil {
		t.Fatalf("could not set level: %+v", err)
	}

	d0 := lines[DefaultGPIO.Data[0]]
	d1 := lines[DefaultGPIO.Data[1]]
	d7 := lines[DefaultGPIO.Data[7]]
	dir := lines[DefaultGPIO.Dir]

	if got, want := d0.state, []rpio.State{rpio.High}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid d0 writes: got=%v, want=%v", got, want)
	}
	if got, want := d1.state, []rpio.State{rpio.Low, rpio.High}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid d1 writes: got=%v, want=%v", got, want)
	}
	if got, want := d7.state, []rpio.State{rpio.Low}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid d7 writes: got=%v, want=%v", got, want)
	}
	if got, want := dir.state, []rpio.State{rpio.High}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid dir writes: got=%v, want=%v", got, want)
	}

	if err := drv.Close(); err != nil || !closed {
		t.Fatalf("could not close gpio: closed=%v, err=%+v", closed, err)
	}

	rpioOpen = func() error { return errors.New("permission denied") }
	_, err = OpenGPIO(DefaultGPIO)
	if got, want := err.Error(), "pin: could not open GPIO memory: permission denied"; got != want {
		t.Fatalf("got= %v\nwant=%v", got, want)
	}
}
