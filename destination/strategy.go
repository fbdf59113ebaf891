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

import "sync"

// RoundRobin cycles through the address list, advancing its cursor by one
// on every Destinations() call. Every destination it yields is always
// Good(); ConnectStatus feedback is ignored, per §4.3.
type RoundRobin struct {
	mu       sync.Mutex
	addrs    []Addr
	startPos int
}

// NewRoundRobin returns a RoundRobin strategy over addrs.
func NewRoundRobin(addrs []Addr) *RoundRobin {
	return &RoundRobin{addrs: append([]Addr(nil), addrs...)}
}

func (r *RoundRobin) Destinations() []Destination {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.addrs)
	if n == 0 {
		return nil
	}

	out := make([]Destination, n)
	for i := 0; i < n; i++ {
		out[i] = Destination{
			Addr:  r.addrs[(r.startPos+i)%n],
			index: i,
			good:  func(int) bool { return true },
		}
	}
	r.startPos = (r.startPos + 1) % n
	return out
}

func (r *RoundRobin) Refresh(prev []Destination) ([]Destination, bool) {
	return r.Destinations(), len(r.addrs) > 0
}

// NextAvailable implements the "sticky failure" primary/backup policy:
// validNdx only ever advances, never regresses, and the list is never
// reordered.
type NextAvailable struct {
	mu       sync.Mutex
	addrs    []Addr
	validNdx int
}

// NewNextAvailable returns a NextAvailable strategy over addrs.
func NewNextAvailable(addrs []Addr) *NextAvailable {
	return &NextAvailable{addrs: append([]Addr(nil), addrs...)}
}

func (n *NextAvailable) Destinations() []Destination {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Destination, len(n.addrs))
	for i, a := range n.addrs {
		out[i] = Destination{
			Addr:  a,
			index: i,
			good:  n.goodFn(),
			status: func(idx int, err error) {
				if err == nil {
					return
				}
				n.mu.Lock()
				if idx+1 > n.validNdx {
					n.validNdx = idx + 1
				}
				n.mu.Unlock()
			},
		}
	}
	return out
}

func (n *NextAvailable) goodFn() func(int) bool {
	return func(idx int) bool {
		n.mu.Lock()
		defer n.mu.Unlock()
		return idx >= n.validNdx
	}
}

func (n *NextAvailable) Refresh(prev []Destination) ([]Destination, bool) {
	return n.Destinations(), len(n.addrs) > 0
}

// ValidIndex returns one past the highest index that has reported a
// connect failure; destinations below it are no longer Good(). Exposed
// for tests and observability.
func (n *NextAvailable) ValidIndex() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.validNdx
}

// FirstAvailable is NextAvailable with validNdx frozen at 0: Good() always
// reports true and ConnectStatus feedback never persists across
// Destinations() calls — exhaustion within one connect pass simply moves
// to the next entry, and the next pass starts over from index 0.
type FirstAvailable struct {
	addrs []Addr
}

// NewFirstAvailable returns a FirstAvailable strategy over addrs.
func NewFirstAvailable(addrs []Addr) *FirstAvailable {
	return &FirstAvailable{addrs: append([]Addr(nil), addrs...)}
}

func (f *FirstAvailable) Destinations() []Destination {
	out := make([]Destination, len(f.addrs))
	for i, a := range f.addrs {
		out[i] = Destination{
			Addr:  a,
			index: i,
			good:  func(int) bool { return true },
		}
	}
	return out
}

func (f *FirstAvailable) Refresh(prev []Destination) ([]Destination, bool) {
	return f.Destinations(), len(f.addrs) > 0
}
