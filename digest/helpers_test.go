// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package digest

import (
	"fmt"
	"math"
)

func mathBits(v float64) uint64 { return math.Float64bits(v) }

func hex16(v uint16) string { return fmt.Sprintf("%04x", v) }
