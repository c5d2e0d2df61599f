// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestHandle(t *testing.T) {
	t.Run("nil-handle", func(t *testing.T) {
		var h *Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		_, err = h.WriteAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid write-at error: %+v", err)
		}

		err = h.Close()
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid close error: %+v", err)
		}
	})
	t.Run("nil-data", func(t *testing.T) {
		var h Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		_, err = h.WriteAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid write-at error: %+v", err)
		}

		err = h.Close()
		if err != nil {
			t.Fatalf("error closing nil-data handle: %+v", err)
		}
	})
}

func TestHandleFrom(t *testing.T) {
	h := HandleFrom([]byte{0, 1, 2, 3})

	if got, want := h.Len(), 4; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}

	if got, want := h.At(1), byte(1); got != want {
		t.Fatalf("invalid value: got=%d, want=%d", got, want)
	}

	_, err := h.WriteAt(nil, -1)
	if got, want := err.Error(), "mmap: invalid WriteAt offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}

	_, err = h.ReadAt(nil, -1)
	if got, want := err.Error(), "mmap: invalid ReadAt offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}
}

func TestMap(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "regs.bin")
	err := os.WriteFile(fname, make([]byte, 4096), 0644)
	if err != nil {
		t.Fatalf("could not create register file: %+v", err)
	}

	f, err := os.OpenFile(fname, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("could not open register file: %+v", err)
	}
	defer f.Close()

	h, err := Map(f, 0, 4096)
	if err != nil {
		t.Fatalf("could not mmap register file: %+v", err)
	}

	_, err = h.WriteAt([]byte{0x42, 0x01}, 16)
	if err != nil {
		t.Fatalf("could not write to mmap'd region: %+v", err)
	}

	err = h.Close()
	if err != nil {
		t.Fatalf("could not close mmap handle: %+v", err)
	}

	raw, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("could not read back register file: %+v", err)
	}
	if got, want := raw[16:18], []byte{0x42, 0x01}; string(got) != string(want) {
		t.Fatalf("invalid register content: got=%x, want=%x", got, want)
	}

	_, err = h.WriteAt([]byte{1}, 0)
	if !errors.Is(err, errClosed) {
		t.Fatalf("invalid write-at error after close: %+v", err)
	}
}
