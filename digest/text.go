// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package digest

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	reEntry = regexp.MustCompile(`\{([^{}]*)\}`)
	reCount = regexp.MustCompile(`NUM_DIGESTS\s*=\s*([0-9a-fA-Fx]+)`)
	reType  = regexp.MustCompile(`\bstruct\s+\w*\s*\{`)
)

// ParseText reads a table from its textual form, one digest per line:
//
//	{16.627122092, 0x01, true},
//	{16.657150092, 58,   true},
//
// Blank lines, '//' comments, struct type declarations and the C array
// scaffolding around the entries are ignored. A 'NUM_DIGESTS = N' statement, when present,
// declares the expected number of entries.
func ParseText(r io.Reader) (*Table, error) {
	var (
		sc    = bufio.NewScanner(r)
		ds    []Digest
		count = -1
		line  = 0
	)
	for sc.Scan() {
		line++
		txt := sc.Text()
		if i := strings.Index(txt, "//"); i >= 0 {
			txt = txt[:i]
		}
		txt = strings.TrimSpace(txt)
		if txt == "" {
			continue
		}

		if m := reCount.FindStringSubmatch(txt); m != nil {
			v, err := strconv.ParseUint(m[1], 0, 32)
			if err != nil {
				return nil, fmt.Errorf("digest: could not parse declared count at line %d: %w", line, err)
			}
			count = int(v)
			continue
		}

		if reType.MatchString(txt) {
			continue
		}

		for _, m := range reEntry.FindAllStringSubmatch(txt, -1) {
			d, err := parseEntry(m[1])
			if err != nil {
				return nil, fmt.Errorf("digest: could not parse line %d: %w", line, err)
			}
			ds = append(ds, d)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("digest: could not scan text table: %w", err)
	}

	if count < 0 {
		count = len(ds)
	}
	return Load(ds, count)
}

func parseEntry(s string) (Digest, error) {
	var d Digest
	toks := strings.Split(s, ",")
	if len(toks) != 3 {
		return d, fmt.Errorf("invalid entry %q: got %d fields, want 3", s, len(toks))
	}
	for i := range toks {
		toks[i] = strings.TrimSpace(toks[i])
	}

	ts, err := strconv.ParseFloat(toks[0], 64)
	if err != nil {
		return d, fmt.Errorf("invalid timestamp %q: %w", toks[0], err)
	}

	v, err := strconv.ParseUint(toks[1], 0, 8)
	if err != nil {
		return d, fmt.Errorf("invalid byte value %q: %w", toks[1], err)
	}

	var dir bool
	switch strings.ToLower(toks[2]) {
	case "true", "1":
		dir = true
	case "false", "0":
		dir = false
	default:
		return d, fmt.Errorf("invalid dir value %q", toks[2])
	}

	d.Timestamp = ts
	d.Byte = uint8(v)
	d.Dir = dir
	return d, nil
}

// WriteText writes the table in its textual form.
// The output can be read back with ParseText.
func WriteText(w io.Writer, tbl *Table) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < tbl.Len(); i++ {
		d := tbl.At(i)
		_, err := fmt.Fprintf(bw, "{%s, 0x%02x, %v},\n",
			strconv.FormatFloat(d.Timestamp, 'f', -1, 64), d.Byte, d.Dir,
		)
		if err != nil {
			return fmt.Errorf("digest: could not write entry %d: %w", i, err)
		}
	}
	err := bw.Flush()
	if err != nil {
		return fmt.Errorf("digest: could not flush text table: %w", err)
	}
	return nil
}
