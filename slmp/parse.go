// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slmp

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// handlerHeader is the required header row of a handler CSV.
var handlerHeader = []string{"cycles", "msg", "pkt", "dma", "notification"}

// A Handler is the average time spent in the accelerator handlers of
// one trial, in microseconds. Host DMA and notification are not
// distinguished since the host is notified on every write.
type Handler struct {
	Cycles       float64 `json:"cycles"`
	Msg          float64 `json:"msg"`
	Pkt          float64 `json:"pkt"`
	DMA          float64 `json:"dma"`
	Notification float64 `json:"notification"`
}

// Components returns the handler components in stacking order, which
// together make up Cycles.
func (h Handler) Components() []float64 {
	return []float64{h.Msg, h.Pkt, h.DMA, h.Notification}
}

// ComponentNames names the values returned by Handler.Components.
var ComponentNames = []string{"msg", "pkt", "dma", "notification"}

// ParseHandler parses a handler CSV. The header row must be exactly
// "cycles,msg,pkt,dma,notification"; the next row holds the average
// cycle counts, which are returned converted to microseconds.
func ParseHandler(r io.Reader) (Handler, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(handlerHeader)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return Handler{}, fmt.Errorf("reading header: %w", err)
	}
	if strings.Join(header, ",") != strings.Join(handlerHeader, ",") {
		return Handler{}, fmt.Errorf("unexpected header %q, want %q", strings.Join(header, ","), strings.Join(handlerHeader, ","))
	}
	row, err := cr.Read()
	if err == io.EOF {
		return Handler{}, fmt.Errorf("missing values row")
	} else if err != nil {
		return Handler{}, err
	}
	var vals [5]float64
	for i, s := range row {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Handler{}, fmt.Errorf("column %s: %w", handlerHeader[i], err)
		}
		vals[i] = CyclesToMicros(v)
	}
	return Handler{vals[0], vals[1], vals[2], vals[3], vals[4]}, nil
}

// ParseSender returns the elapsed seconds of every transfer in a
// sender log. Each line containing "Elapsed: " contributes the second
// space-separated field; other lines, such as "File size:" or
// "Timed out!", are ignored.
func ParseSender(r io.Reader) ([]float64, error) {
	var elapsed []float64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		l := sc.Text()
		if !strings.Contains(l, "Elapsed: ") {
			continue
		}
		f := strings.Split(l, " ")
		if len(f) < 2 {
			return nil, fmt.Errorf("line %d: malformed elapsed line %q", line, l)
		}
		v, err := strconv.ParseFloat(f[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		elapsed = append(elapsed, v)
	}
	return elapsed, sc.Err()
}
