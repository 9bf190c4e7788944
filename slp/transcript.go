// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrSkipped reports a run that was deliberately not completed: its
// transcript never announced the batch sizes.
var ErrSkipped = errors.New("run skipped")

// batchPrefix starts the transcript line announcing the batch sizes.
const batchPrefix = "Fit batch size:"

// A Transcript holds what the analysis needs from a host transcript.
type Transcript struct {
	FitBatch     int
	PredictBatch int
}

// Batch returns the batch size of mode m.
func (t Transcript) Batch(m Mode) int {
	if m == Fit {
		return t.FitBatch
	}
	return t.PredictBatch
}

// ParseTranscript reads the batch sizes from a line of the form
// "Fit batch size: <f>; predict batch size: <p>". If several lines
// match, the last wins. A transcript without a well-formed batch line
// yields an error wrapping ErrSkipped.
func ParseTranscript(r io.Reader) (Transcript, error) {
	var t Transcript
	found := false
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		l := sc.Text()
		if !strings.HasPrefix(l, batchPrefix) {
			continue
		}
		var tt Transcript
		if _, err := fmt.Sscanf(l, "Fit batch size: %d; predict batch size: %d", &tt.FitBatch, &tt.PredictBatch); err != nil {
			return Transcript{}, fmt.Errorf("malformed batch line %q: %w", l, ErrSkipped)
		}
		t, found = tt, true
	}
	if err := sc.Err(); err != nil {
		return Transcript{}, err
	}
	if !found {
		return Transcript{}, fmt.Errorf("no batch sizes in transcript: %w", ErrSkipped)
	}
	return t, nil
}
