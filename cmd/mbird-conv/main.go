// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// mbird-conv converts and displays digest tables.
//
// Usage: mbird-conv [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Without -o, mbird-conv displays the content of each table.
// With -o, mbird-conv converts a single table: the output is a binary
// table if the output file name ends with .mbt, a text table otherwise.
//
// Example:
//
//	$> mbird-conv ./testdata/digests.txt
//	=== table "./testdata/digests.txt" ===
//	digests:          10
//	duration: 16.661292092s
//	  #0000 {16.627122092, 0x01, true}
//	  #0001 {16.657150092, 0x3a, true}
//	[...]
//
//	$> mbird-conv -rebase -o digests.mbt ./testdata/digests.txt
package main // import "github.com/go-lpc/mockingbird/cmd/mbird-conv"

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/mockingbird/digest"
)

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("mbird-conv: ")
	log.SetFlags(0)

	var (
		fset   = flag.NewFlagSet("mbird-conv", flag.ExitOnError)
		oname  = fset.String("o", "", "path to the converted output table")
		rebase = fset.Bool("rebase", false, "shift timestamps so the first digest happens at t=0")
		raw    = fset.Int("raw", -1, "decode input as a raw array image of N digest records")
	)

	fset.Usage = func() {
		fmt.Printf(`mbird-conv converts and displays digest tables.

Usage: mbird-conv [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> mbird-conv ./testdata/digests.txt
 $> mbird-conv -rebase -o digests.mbt ./testdata/digests.txt

Options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input table")
	}

	if *oname != "" {
		if fset.NArg() != 1 {
			log.Fatalf("conversion needs exactly one input table (got %d)", fset.NArg())
		}
		err := convert(*oname, fset.Arg(0), *raw, *rebase)
		if err != nil {
			log.Fatalf("could not convert table %q: %+v", fset.Arg(0), err)
		}
		return
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *raw, *rebase)
		if err != nil {
			log.Fatalf("could not dump table %q: %+v", fname, err)
		}
	}
}

func load(fname string, raw int, rebase bool) (*digest.Table, error) {
	var (
		tbl *digest.Table
		err error
	)
	switch {
	case raw >= 0:
		var img []byte
		img, err = os.ReadFile(fname)
		if err != nil {
			return nil, fmt.Errorf("could not read %q: %w", fname, err)
		}
		tbl, err = digest.DecodeRecords(img, raw)
	default:
		tbl, err = digest.ReadFile(fname)
	}
	if err != nil {
		return nil, err
	}
	if rebase {
		tbl = tbl.Rebase()
	}
	return tbl, nil
}

func convert(oname, fname string, raw int, rebase bool) error {
	tbl, err := load(fname, raw, rebase)
	if err != nil {
		return err
	}
	return digest.WriteFile(oname, tbl)
}

func process(w io.Writer, fname string, raw int, rebase bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	tbl, err := load(fname, raw, rebase)
	if err != nil {
		return err
	}

	fmt.Fprintf(wbuf, "=== table %q ===\n", fname)
	fmt.Fprintf(wbuf, "digests:  % 10d\n", tbl.Len())
	fmt.Fprintf(wbuf, "duration: %10v\n", tbl.Duration())
	for i := 0; i < tbl.Len(); i++ {
		fmt.Fprintf(wbuf, "  #%04d %v\n", i, tbl.At(i))
	}

	return nil
}
