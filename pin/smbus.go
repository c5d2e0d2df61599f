// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pin

import (
	"fmt"

	"github.com/go-daq/smbus"
)

// MCP23017 registers (IOCON.BANK=0).
const (
	regIODIRA = 0x00
	regIODIRB = 0x01
	regOLATA  = 0x14
	regOLATB  = 0x15
)

type smbusDevice interface {
	WriteReg(addr, reg, v uint8) error
	Close() error
}

var (
	smbusOpen = smbusOpenImpl
)

func smbusOpenImpl(bus int, addr uint8) (smbusDevice, error) {
	return smbus.Open(bus, addr)
}

// SMBus drives a line through an MCP23017-like I2C I/O expander:
// port A carries the byte, bit 0 of port B carries the direction.
type SMBus struct {
	addr uint8
	dev  smbusDevice
}

// OpenSMBus opens the I/O expander at addr on the provided I2C bus and
// configures both of its ports as outputs.
func OpenSMBus(bus int, addr uint8) (*SMBus, error) {
	dev, err := smbusOpen(bus, addr)
	if err != nil {
		return nil, fmt.Errorf("pin: could not open i2c-%d device 0x%x: %w", bus, addr, err)
	}

	for _, reg := range []uint8{regIODIRA, regIODIRB} {
		err = dev.WriteReg(addr, reg, 0x00)
		if err != nil {
			_ = dev.Close()
			return nil, fmt.Errorf("pin: could not configure i2c-%d device 0x%x (reg=0x%x): %w",
				bus, addr, reg, err,
			)
		}
	}

	return &SMBus{addr: addr, dev: dev}, nil
}

func (dev *SMBus) SetLevel(v byte, dir bool) error {
	err := dev.dev.WriteReg(dev.addr, regOLATA, v)
	if err != nil {
		return fmt.Errorf("pin: could not write byte 0x%02x: %w", v, err)
	}
	err = dev.dev.WriteReg(dev.addr, regOLATB, dirByte(dir))
	if err != nil {
		return fmt.Errorf("pin: could not write dir=%v: %w", dir, err)
	}
	return nil
}

func (dev *SMBus) Close() error {
	return dev.dev.Close()
}

var _ Driver = (*SMBus)(nil)
