// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package digest

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Ext is the file extension of binary digest tables.
const Ext = ".mbt"

// ReadFile loads a digest table from the named file.
// Binary tables are recognized by their magic header, anything else is
// parsed as a text table.
func ReadFile(fname string) (*Table, error) {
	raw, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("digest: could not read table file: %w", err)
	}

	var tbl *Table
	switch {
	case bytes.HasPrefix(raw, magic[:]):
		tbl, err = NewDecoder(bytes.NewReader(raw)).Decode()
	default:
		tbl, err = ParseText(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("digest: could not load table %q: %w", fname, err)
	}
	return tbl, nil
}

// WriteFile writes the table to the named file, in binary form if the
// file name has the Ext extension and in text form otherwise.
func WriteFile(fname string, tbl *Table) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("digest: could not create table file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	switch filepath.Ext(fname) {
	case Ext:
		err = NewEncoder(w).Encode(tbl)
	default:
		err = WriteText(w, tbl)
	}
	if err != nil {
		return fmt.Errorf("digest: could not write table %q: %w", fname, err)
	}

	err = w.Flush()
	if err != nil {
		return fmt.Errorf("digest: could not flush table %q: %w", fname, err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("digest: could not close table %q: %w", fname, err)
	}
	return nil
}
