// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package player

import (
	"fmt"
	"strings"
	"time"
)

// Report summarizes a playback session.
type Report struct {
	ID           string        `json:"id"`
	Start        time.Time     `json:"start"`
	State        string        `json:"state"`
	Size         int           `json:"size"`
	Cursor       int           `json:"cursor"`
	Passes       int           `json:"passes"`
	Loop         bool          `json:"loop"`
	Rate         float64       `json:"rate"`
	Elapsed      time.Duration `json:"elapsed"`
	Emitted      uint64        `json:"emitted"`
	Overruns     uint64        `json:"overruns"`
	Critical     uint64        `json:"critical"`
	MaxLateness  time.Duration `json:"max_lateness"`
	MeanLateness time.Duration `json:"mean_lateness"`
	Error        string        `json:"error,omitempty"`
}

// Report returns the summary of the session described by st.
func (st Status) Report() Report {
	r := Report{
		ID:           st.ID.String(),
		Start:        st.Start,
		State:        st.State.String(),
		Size:         st.Size,
		Cursor:       st.Cursor,
		Passes:       st.Pass,
		Loop:         st.Loop,
		Rate:         st.Rate,
		Elapsed:      st.Now,
		Emitted:      st.Stats.Emitted,
		Overruns:     st.Stats.Overruns,
		Critical:     st.Stats.Critical,
		MaxLateness:  st.Stats.MaxLateness,
		MeanLateness: st.Stats.Mean(),
	}
	if st.Err != nil {
		r.Error = st.Err.Error()
	}
	return r
}

func (r Report) String() string {
	o := new(strings.Builder)
	fmt.Fprintf(o, "session:  %s\n", r.ID)
	fmt.Fprintf(o, "start:    %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(o, "state:    %s\n", r.State)
	fmt.Fprintf(o, "cursor:   %d/%d (passes=%d, loop=%v)\n", r.Cursor, r.Size, r.Passes, r.Loop)
	fmt.Fprintf(o, "rate:     %v\n", r.Rate)
	fmt.Fprintf(o, "elapsed:  %v\n", r.Elapsed)
	fmt.Fprintf(o, "emitted:  %d\n", r.Emitted)
	fmt.Fprintf(o, "overruns: %d (critical=%d)\n", r.Overruns, r.Critical)
	fmt.Fprintf(o, "lateness: max=%v, mean=%v\n", r.MaxLateness, r.MeanLateness)
	if r.Error != "" {
		fmt.Fprintf(o, "error:    %s\n", r.Error)
	}
	return o.String()
}
