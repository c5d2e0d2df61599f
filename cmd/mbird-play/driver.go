// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/mockingbird/pin"
	"github.com/go-lpc/mockingbird/pin/ftdipin"
)

// simHistory is the number of level changes kept by the simulated line.
const simHistory = 1024

type device interface {
	pin.Driver
	io.Closer
}

type simDevice struct {
	*pin.Recorder
	msg *log.Logger
}

func (dev simDevice) Close() error {
	dev.msg.Printf("simulated line recorded %d events", dev.Len())
	return nil
}

type vcdDevice struct {
	pin.Driver
	vcd *pin.VCD
	f   *os.File
}

func (dev vcdDevice) Close() error {
	err := dev.vcd.Flush()
	if err != nil {
		_ = dev.f.Close()
		return err
	}
	err = dev.f.Close()
	if err != nil {
		return fmt.Errorf("could not close VCD trace: %w", err)
	}
	return nil
}

func openDriver(w io.Writer, tm pin.Timer, opts options) (device, error) {
	switch opts.drv {
	case "sim":
		return simDevice{
			Recorder: pin.NewRecorder(tm, pin.WithCapacity(simHistory)),
			msg:      log.New(w, "sim: ", 0),
		}, nil

	case "vcd", "uart-vcd":
		f, err := os.Create(opts.out)
		if err != nil {
			return nil, fmt.Errorf("could not create VCD trace: %w", err)
		}
		vcd := pin.NewVCD(f, tm)
		dev := vcdDevice{Driver: vcd, vcd: vcd, f: f}
		if opts.drv == "uart-vcd" {
			dev.Driver = pin.NewUART(vcd, tm, pin.WithBaud(opts.baud))
		}
		return dev, nil

	case "mmap":
		dev, err := pin.OpenRegister(opts.mem, opts.addr)
		if err != nil {
			return nil, fmt.Errorf("could not open mmap driver: %w", err)
		}
		return dev, nil

	case "gpio":
		dev, err := pin.OpenGPIO(pin.DefaultGPIO)
		if err != nil {
			return nil, fmt.Errorf("could not open gpio driver: %w", err)
		}
		return dev, nil

	case "smbus":
		dev, err := pin.OpenSMBus(opts.bus, uint8(opts.i2c))
		if err != nil {
			return nil, fmt.Errorf("could not open smbus driver: %w", err)
		}
		return dev, nil

	case "ftdi":
		dev, err := ftdipin.Open(ftdipin.VendorFTDI, uint16(opts.pid))
		if err != nil {
			for _, info := range ftdipin.List(ftdipin.VendorFTDI) {
				log.Printf("found FTDI device: 0x%04x:0x%04x %q (serial=%q)",
					info.VendorID, info.ProdID, info.Description, info.Serial,
				)
			}
			return nil, fmt.Errorf("could not open ftdi driver: %w", err)
		}
		return dev, nil
	}

	return nil, fmt.Errorf("unknown pin driver %q", opts.drv)
}
