// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package slmp derives throughput and handler latency figures from the
// raw output of the SLMP file transfer benchmark.
//
// A trial transfers one file of a given length with one kind of
// acknowledgement policy. Each trial leaves two artifacts: a CSV of
// the average handler cycles on the accelerator and a log of the
// sender's elapsed transfer times, one line per repetition.
package slmp

import (
	"fmt"
	"math"
)

const (
	// ClockHz is the accelerator clock used to convert handler
	// cycles to time.
	ClockHz = 40e6

	// PayloadSize is the usable payload of one SLMP packet in
	// bytes: 1462 rounded down to a multiple of 4.
	PayloadSize = 1462 / 4 * 4

	// MinLength and MaxLength bound the file lengths of the
	// standard sweep, which doubles from MinLength.
	MinLength = 100
	MaxLength = 2_000_000
)

// A Kind is the acknowledgement policy of a trial.
type Kind int

const (
	Default Kind = iota
	ForceACK
)

// Kinds lists the kinds of the standard sweep in plotting order.
var Kinds = []Kind{Default, ForceACK}

func (k Kind) String() string {
	switch k {
	case Default:
		return "Default"
	case ForceACK:
		return "Force ACK"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// prefix returns the file name prefix of trials of kind k.
func (k Kind) prefix() (string, error) {
	switch k {
	case Default:
		return "0", nil
	case ForceACK:
		return "1", nil
	}
	return "", fmt.Errorf("unknown trial kind %v", k)
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown trial kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, err := k.prefix(); err != nil {
		return nil, err
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	kk, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = kk
	return nil
}

// Lengths returns the file lengths of the standard sweep: MinLength
// doubling while at most MaxLength.
func Lengths() []int {
	var ls []int
	for l := MinLength; l <= MaxLength; l *= 2 {
		ls = append(ls, l)
	}
	return ls
}

// CyclesToMicros converts accelerator cycles to microseconds.
func CyclesToMicros(cycles float64) float64 {
	return 1e6 / ClockHz * cycles
}

// Packets returns the number of packets needed to carry length bytes.
func Packets(length int) int {
	return int(math.Ceil(float64(length) / PayloadSize))
}

// Throughput returns the throughput in Mbps of transferring length
// bytes in elapsed seconds.
func Throughput(length int, elapsed float64) float64 {
	return float64(length) * 8 / 1e6 / elapsed
}

// trialBase returns the artifact name stem of a trial, such as
// "0-100".
func trialBase(k Kind, length int) (string, error) {
	p, err := k.prefix()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d", p, length), nil
}
