// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pin

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"time"
)

// VCD identifiers of the dumped signals.
const (
	vcdData = "!"
	vcdDir  = `"`
	vcdTx   = "#"
)

// VCD writes level changes as a Value Change Dump trace, with a
// nanosecond timescale.
//
// The trace holds three signals: the 8-bit data bus, the direction flag
// and a serial tx line (driven through the Line interface).
// Changes timestamped before the last dumped change are dumped at the
// time of that last change.
type VCD struct {
	w   *bufio.Writer
	tm  Timer
	err error

	hdr  bool
	last time.Duration
	data byte
	dir  bool
	tx   bool
}

// NewVCD returns a VCD trace writer timestamping bus changes with tm.
func NewVCD(w io.Writer, tm Timer) *VCD {
	return &VCD{w: bufio.NewWriter(w), tm: tm, tx: true}
}

func (vcd *VCD) printf(format string, args ...interface{}) {
	if vcd.err != nil {
		return
	}
	_, vcd.err = fmt.Fprintf(vcd.w, format, args...)
}

func (vcd *VCD) header() {
	if vcd.hdr {
		return
	}
	vcd.hdr = true
	vcd.printf("$version mockingbird $end\n")
	vcd.printf("$timescale 1ns $end\n")
	vcd.printf("$scope module mbird $end\n")
	vcd.printf("$var wire 8 %s data [7:0] $end\n", vcdData)
	vcd.printf("$var wire 1 %s dir $end\n", vcdDir)
	vcd.printf("$var wire 1 %s tx $end\n", vcdTx)
	vcd.printf("$upscope $end\n")
	vcd.printf("$enddefinitions $end\n")
	vcd.printf("#0\n$dumpvars\nb%s %s\n%d%s\n%d%s\n$end\n",
		strconv.FormatUint(uint64(vcd.data), 2), vcdData,
		bit(vcd.dir), vcdDir,
		bit(vcd.tx), vcdTx,
	)
}

func (vcd *VCD) stamp(at time.Duration) {
	vcd.header()
	if at <= vcd.last {
		return
	}
	vcd.last = at
	vcd.printf("#%d\n", int64(at))
}

func (vcd *VCD) SetLevel(v byte, dir bool) error {
	vcd.stamp(vcd.tm.Now())
	if v != vcd.data {
		vcd.data = v
		vcd.printf("b%s %s\n", strconv.FormatUint(uint64(v), 2), vcdData)
	}
	if dir != vcd.dir {
		vcd.dir = dir
		vcd.printf("%d%s\n", bit(dir), vcdDir)
	}
	if vcd.err != nil {
		return fmt.Errorf("pin: could not write vcd bus change: %w", vcd.err)
	}
	return nil
}

// Edge dumps a change of the tx line at the provided time.
func (vcd *VCD) Edge(at time.Duration, level bool) error {
	vcd.stamp(at)
	if level != vcd.tx {
		vcd.tx = level
		vcd.printf("%d%s\n", bit(level), vcdTx)
	}
	if vcd.err != nil {
		return fmt.Errorf("pin: could not write vcd tx edge: %w", vcd.err)
	}
	return nil
}

// Flush writes any buffered trace data to the underlying writer.
func (vcd *VCD) Flush() error {
	vcd.header()
	if vcd.err != nil {
		return fmt.Errorf("pin: could not write vcd trace: %w", vcd.err)
	}
	err := vcd.w.Flush()
	if err != nil {
		return fmt.Errorf("pin: could not flush vcd trace: %w", err)
	}
	return nil
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

var (
	_ Driver = (*VCD)(nil)
	_ Line   = (*VCD)(nil)
)
