// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchunit

import "testing"

func TestClassOf(t *testing.T) {
	test := func(unit string, cls Class) {
		t.Helper()
		got := ClassOf(unit)
		if got != cls {
			t.Errorf("for %s, want %s, got %s", unit, cls, got)
		}
	}
	test("bps", Decimal)
	test("s", Decimal)
	test("sec/B", Decimal)
	test("IOPS", Decimal)

	test("B", Binary)
	test("bytes", Binary)
	test("B/s", Binary)
	test("disk-B/sec", Binary)
}

func TestSplitPrefix(t *testing.T) {
	test := func(unit string, wantF float64, wantBase string) {
		t.Helper()
		f, base := SplitPrefix(unit)
		if f != wantF || base != wantBase {
			t.Errorf("SplitPrefix(%q) = %v, %q, want %v, %q", unit, f, base, wantF, wantBase)
		}
	}
	test("bps", 1, "bps")
	test("Mbps", 1e6, "bps")
	test("Gbps", 1e9, "bps")
	test("us", 1e-6, "s")
	test("µs", 1e-6, "s")
	test("ns", 1e-9, "s")
	test("KB", 1e3, "B")
	test("B", 1, "B")
	test("GIOPS", 1e9, "IOPS")
	test("furlongs", 1, "furlongs")
}
