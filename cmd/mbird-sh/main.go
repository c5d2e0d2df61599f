// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command mbird-sh is an interactive console controlling a digest
// table player.
//
// Example:
//
//	$> mbird-sh -vcd trace.vcd
//	mbird> load ./testdata/digests.txt rebase
//	mbird> start false 0.5
//	mbird> status
//	mbird> stop
//	mbird> quit
package main // import "github.com/go-lpc/mockingbird/cmd/mbird-sh"

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-lpc/mockingbird/internal/config"
	"github.com/peterh/liner"
)

func main() {
	log.SetPrefix("mbird-sh: ")
	log.SetFlags(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load configuration: %+v", err)
	}

	var (
		vcd  = flag.String("vcd", "", "path to a VCD trace (default: simulated line)")
		hist = flag.String("history", "", "path to the console history file")
	)

	flag.Parse()

	err = xmain(os.Stdout, cfg, *vcd, *hist)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(w io.Writer, cfg config.Config, vcd, hist string) error {
	sh, err := newShell(w, cfg, vcd)
	if err != nil {
		return err
	}
	defer sh.close()

	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(func(line string) []string {
		var o []string
		for _, name := range cmdNames {
			if strings.HasPrefix(name, line) {
				o = append(o, name)
			}
		}
		return o
	})

	if hist != "" {
		if f, err := os.Open(hist); err == nil {
			_, _ = term.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			f, err := os.Create(hist)
			if err != nil {
				log.Printf("could not save history: %+v", err)
				return
			}
			defer f.Close()
			_, _ = term.WriteHistory(f)
		}()
	}

	for {
		line, err := term.Prompt("mbird> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("could not read command: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		term.AppendHistory(line)

		quit, err := sh.exec(line)
		if err != nil {
			fmt.Fprintf(w, "error: %+v\n", err)
		}
		if quit {
			return nil
		}
	}
}
