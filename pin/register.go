// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pin

import (
	"fmt"
	"io"
	"os"

	"github.com/go-lpc/mockingbird/internal/mmap"
)

// Offsets of the output registers, relative to the register window base.
const (
	RegData = 0 // output byte
	RegDir  = 1 // direction flag (0 or 1)

	regSpan = 0x1000
)

// Register drives a line through a memory-mapped register window.
type Register struct {
	w    io.WriterAt
	base int64
	buf  [2]byte

	close func() error
}

// NewRegister returns a driver writing to the register window w, at the
// provided base offset.
func NewRegister(w io.WriterAt, base int64) *Register {
	return &Register{w: w, base: base, close: func() error { return nil }}
}

var (
	mmapOpen = mmapOpenImpl
)

func mmapOpenImpl(fname string, off int64) (io.WriterAt, func() error, error) {
	f, err := os.OpenFile(fname, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, nil, err
	}
	h, err := mmap.Map(f, off, regSpan)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return h, func() error {
		err := h.Close()
		if e := f.Close(); e != nil && err == nil {
			err = e
		}
		return err
	}, nil
}

// OpenRegister maps the register window located at the page-aligned
// physical offset addr of the memory device fname (e.g. /dev/mem).
func OpenRegister(fname string, addr int64) (*Register, error) {
	page := addr &^ (regSpan - 1)
	w, closeFct, err := mmapOpen(fname, page)
	if err != nil {
		return nil, fmt.Errorf("pin: could not mmap register window 0x%x of %q: %w", addr, fname, err)
	}
	reg := NewRegister(w, addr-page)
	reg.close = closeFct
	return reg, nil
}

func (reg *Register) SetLevel(v byte, dir bool) error {
	reg.buf[RegData] = v
	reg.buf[RegDir] = dirByte(dir)
	_, err := reg.w.WriteAt(reg.buf[:], reg.base)
	if err != nil {
		return fmt.Errorf("pin: could not write register (v=0x%02x, dir=%v): %w", v, dir, err)
	}
	return nil
}

// Close unmaps the register window.
func (reg *Register) Close() error {
	return reg.close()
}

var (
	_ Driver    = (*Register)(nil)
	_ io.Closer = (*Register)(nil)
)
