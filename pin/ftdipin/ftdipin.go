// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ftdipin drives a line through the bit-bang channels of a
// dual-channel FTDI chip.
package ftdipin // import "github.com/go-lpc/mockingbird/pin/ftdipin"

import (
	"fmt"
	"io"

	"github.com/go-lpc/mockingbird/pin"
	"github.com/ziutek/ftdi"
)

// FTDI vendor and product identifiers.
const (
	VendorFTDI = 0x0403
	ProdFT2232 = 0x6010 // dual-channel FT2232
)

// DeviceInfo describes a connected FTDI device.
type DeviceInfo struct {
	VendorID    uint16
	ProdID      uint16
	Serial      string
	Description string
}

type ftdiDevice interface {
	SetBitmode(iomask byte, mode ftdi.Mode) error
	io.Writer
	io.Closer
}

var (
	ftdiOpen = ftdiOpenImpl
	ftdiFind = ftdiFindImpl
)

func ftdiOpenImpl(vid, pid uint16, ch ftdi.Channel) (ftdiDevice, error) {
	dev, err := ftdi.OpenFirst(int(vid), int(pid), ch)
	return dev, err
}

func ftdiFindImpl(vid, pid uint16) ([]DeviceInfo, error) {
	lst, err := ftdi.FindAll(int(vid), int(pid))
	if err != nil {
		return nil, err
	}
	devs := make([]DeviceInfo, 0, len(lst))
	for _, dev := range lst {
		devs = append(devs, DeviceInfo{
			VendorID:    vid,
			ProdID:      pid,
			Serial:      dev.Serial,
			Description: dev.Description,
		})
		dev.Close()
	}
	return devs, nil
}

// List returns the dual-channel FTDI devices of vendor vid that can be
// used as bit-bang line drivers.
// Devices that could not be enumerated are skipped.
func List(vid uint16) []DeviceInfo {
	devs, err := ftdiFind(vid, ProdFT2232)
	if err != nil {
		return nil
	}
	return devs
}

// FTDI drives a line through the two bit-bang channels of an FTDI chip:
// channel A carries the byte, bit 0 of channel B carries the direction.
type FTDI struct {
	a, b ftdiDevice
	buf  [1]byte
}

// Open opens the first FTDI device matching vid and pid and puts
// both of its channels in bit-bang mode, all pins as outputs.
func Open(vid, pid uint16) (*FTDI, error) {
	a, err := openBitbang(vid, pid, ftdi.ChannelA)
	if err != nil {
		return nil, err
	}
	b, err := openBitbang(vid, pid, ftdi.ChannelB)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return &FTDI{a: a, b: b}, nil
}

func openBitbang(vid, pid uint16, ch ftdi.Channel) (ftdiDevice, error) {
	dev, err := ftdiOpen(vid, pid, ch)
	if err != nil {
		return nil, fmt.Errorf("ftdipin: could not open FTDI device (vid=0x%x, pid=0x%x, channel=%v): %w",
			vid, pid, ch, err,
		)
	}
	err = dev.SetBitmode(0xff, ftdi.ModeBitbang)
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("ftdipin: could not enable bitbang (vid=0x%x, pid=0x%x, channel=%v): %w",
			vid, pid, ch, err,
		)
	}
	return dev, nil
}

func (dev *FTDI) SetLevel(v byte, dir bool) error {
	err := dev.write(dev.a, v)
	if err != nil {
		return fmt.Errorf("ftdipin: could not write byte 0x%02x: %w", v, err)
	}
	err = dev.write(dev.b, dirByte(dir))
	if err != nil {
		return fmt.Errorf("ftdipin: could not write dir=%v: %w", dir, err)
	}
	return nil
}

func (dev *FTDI) write(w io.Writer, v byte) error {
	dev.buf[0] = v
	n, err := w.Write(dev.buf[:])
	switch {
	case err != nil:
		return err
	case n != len(dev.buf):
		return io.ErrShortWrite
	}
	return nil
}

// Close releases both channels.
func (dev *FTDI) Close() error {
	errA := dev.a.Close()
	errB := dev.b.Close()
	if errA != nil {
		return fmt.Errorf("ftdipin: could not close FTDI channel A: %w", errA)
	}
	if errB != nil {
		return fmt.Errorf("ftdipin: could not close FTDI channel B: %w", errB)
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
	_ pin.Driver = (*FTDI)(nil)
	_ io.Closer  = (*FTDI)(nil)
)
