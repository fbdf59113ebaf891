/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package destination

import "testing"

func addrs(names ...string) []Addr {
	out := make([]Addr, len(names))
	for i, n := range names {
		out[i] = Addr{Hostname: n, Port: uint16(1000 + i), ID: n}
	}
	return out
}

func hostSeq(ds []Destination) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Hostname
	}
	return out
}

// TestRoundRobinRotation covers testable property 7 / scenario S4.
func TestRoundRobinRotation(t *testing.T) {
	rr := NewRoundRobin(addrs("a", "b", "c"))

	want := [][]string{
		{"a", "b", "c"},
		{"b", "c", "a"},
		{"c", "a", "b"},
	}
	for i, w := range want {
		got := hostSeq(rr.Destinations())
		if !equalStrings(got, w) {
			t.Fatalf("round %d: got %v, want %v", i, got, w)
		}
	}
}

// TestNextAvailableStickiness covers testable property 6 / scenario S3.
func TestNextAvailableStickiness(t *testing.T) {
	na := NewNextAvailable(addrs("a", "b", "c"))

	first := na.Destinations()
	first[0].ConnectStatus(errFake)

	second := na.Destinations()
	if second[0].Good() {
		t.Fatalf("a should no longer be good after a failure")
	}
	if !second[1].Good() || !second[2].Good() {
		t.Fatalf("b and c should still be good")
	}
	if na.ValidIndex() != 1 {
		t.Fatalf("validNdx = %d, want 1", na.ValidIndex())
	}

	// A second error on a (already invalid) must not change state.
	second[0].ConnectStatus(errFake)
	if na.ValidIndex() != 1 {
		t.Fatalf("validNdx regressed/advanced unexpectedly: %d", na.ValidIndex())
	}

	// An error on b advances validNdx to 2; a and b are no longer good.
	second[1].ConnectStatus(errFake)
	third := na.Destinations()
	if third[0].Good() || third[1].Good() {
		t.Fatalf("a and b should be not-good after b's failure")
	}
	if !third[2].Good() {
		t.Fatalf("c should remain good")
	}
}

func TestFirstAvailableAlwaysGood(t *testing.T) {
	fa := NewFirstAvailable(addrs("a", "b"))
	ds := fa.Destinations()
	ds[0].ConnectStatus(errFake)

	again := fa.Destinations()
	if !again[0].Good() {
		t.Fatalf("first-available must report every destination good() regardless of feedback")
	}
}

func TestStaticURIRoundRobin(t *testing.T) {
	p, err := NewStatic("dest://a:3306,b:3306,c", 3306)
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	ds := p.Destinations()
	if len(ds) != 3 || ds[2].Port != 3306 {
		t.Fatalf("unexpected parse result: %+v", ds)
	}
}

func TestStaticURIEmpty(t *testing.T) {
	if _, err := NewStatic("", 3306); err == nil {
		t.Fatalf("expected error for empty URI")
	}
}

var errFake = fakeErr{}

type fakeErr struct{}

func (fakeErr) Error() string { return "connect failed" }

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
