// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package digest holds the timestamped bus events replayed on a pin,
// and the immutable tables that order them.
package digest // import "github.com/go-lpc/mockingbird/digest"

import (
	"fmt"
	"math"
	"time"
)

// Digest is one timestamped playback event.
type Digest struct {
	Timestamp float64 // seconds since the start of the recorded sequence
	Byte      uint8   // opaque payload
	Dir       bool    // opaque direction flag
}

// At returns the digest timestamp as a duration since the start of
// the sequence, rounded to the nanosecond.
func (d Digest) At() time.Duration {
	return time.Duration(math.Round(d.Timestamp * float64(time.Second)))
}

func (d Digest) String() string {
	return fmt.Sprintf("{%.9f, 0x%02x, %v}", d.Timestamp, d.Byte, d.Dir)
}

// MalformedTableError describes a table that violates the load-time
// invariants: a declared count that does not match the number of entries,
// or timestamps that are not monotonically non-decreasing.
type MalformedTableError struct {
	Reason   string
	Index    int // index of the offending entry, -1 if not applicable
	Declared int // declared count, when relevant
	Actual   int // actual number of entries, when relevant
}

func (e *MalformedTableError) Error() string {
	return "digest: malformed table: " + e.Reason
}

func errCount(declared, actual int) error {
	return &MalformedTableError{
		Reason:   fmt.Sprintf("declared count=%d, actual entries=%d", declared, actual),
		Index:    -1,
		Declared: declared,
		Actual:   actual,
	}
}

// Table is an ordered, immutable sequence of digests.
//
// A Table is a value: it can be shared between sessions and goroutines
// without copying nor locking.
type Table struct {
	ds []Digest
}

// New creates a table from the provided digests.
// The digests are copied.
func New(ds []Digest) (*Table, error) {
	return Load(ds, len(ds))
}

// Load creates a table from the provided digests and their declared count,
// as linked-in table symbols provide them.
// Load fails with a *MalformedTableError if the count does not match the
// number of digests or if timestamps are not sorted.
func Load(ds []Digest, count int) (*Table, error) {
	if count != len(ds) {
		return nil, errCount(count, len(ds))
	}

	err := validate(ds)
	if err != nil {
		return nil, err
	}

	tbl := &Table{ds: make([]Digest, len(ds))}
	copy(tbl.ds, ds)
	return tbl, nil
}

// maxNanos bounds timestamps to the range of time.Duration.
const maxNanos = float64(math.MaxInt64)

func validate(ds []Digest) error {
	for i, d := range ds {
		ts := d.Timestamp
		if math.IsNaN(ts) || math.IsInf(ts, 0) || ts < 0 || ts*float64(time.Second) >= maxNanos {
			return &MalformedTableError{
				Reason: fmt.Sprintf("invalid timestamp[%d]=%v", i, ts),
				Index:  i,
			}
		}
		if i == 0 {
			continue
		}
		if prev := ds[i-1].Timestamp; prev > ts {
			return &MalformedTableError{
				Reason: fmt.Sprintf(
					"timestamp[%d]=%.9f > timestamp[%d]=%.9f",
					i-1, prev, i, ts,
				),
				Index: i,
			}
		}
	}
	return nil
}

// Len returns the number of digests in the table.
// Len is zero for a nil table.
func (tbl *Table) Len() int {
	if tbl == nil {
		return 0
	}
	return len(tbl.ds)
}

// At returns the i-th digest.
// At panics if i is out of range.
func (tbl *Table) At(i int) Digest {
	return tbl.ds[i]
}

// Digests returns a copy of the table content.
func (tbl *Table) Digests() []Digest {
	if tbl == nil {
		return nil
	}
	o := make([]Digest, len(tbl.ds))
	copy(o, tbl.ds)
	return o
}

// Duration returns the time of the last digest, i.e. the length of one
// pass over the table.
func (tbl *Table) Duration() time.Duration {
	n := tbl.Len()
	if n == 0 {
		return 0
	}
	return tbl.ds[n-1].At()
}

// Rebase returns a new table whose first digest happens at t=0.
// Capture tools stamp digests with the acquisition time, which rarely
// starts at zero.
func (tbl *Table) Rebase() *Table {
	n := tbl.Len()
	if n == 0 {
		return &Table{}
	}
	t0 := tbl.ds[0].Timestamp
	o := &Table{ds: make([]Digest, n)}
	for i, d := range tbl.ds {
		d.Timestamp -= t0
		o.ds[i] = d
	}
	return o
}
