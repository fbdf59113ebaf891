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

package routecontext

import (
	atmc "github.com/nabbar/dbrouter/atomic"
)

// Counters holds the live gauges and monotonic totals a route reports:
// how many connections are open right now, and how many it has handled
// (accepted, regardless of outcome) since start.
type Counters struct {
	active  atmc.Value[uint64]
	handled atmc.Value[uint64]
}

// NewCounters returns a zeroed Counters.
func NewCounters() *Counters {
	return &Counters{
		active:  atmc.NewValue[uint64](),
		handled: atmc.NewValue[uint64](),
	}
}

func casIncr(v atmc.Value[uint64]) uint64 {
	for {
		old := v.Load()
		n := old + 1
		if v.CompareAndSwap(old, n) {
			return n
		}
	}
}

func casDecr(v atmc.Value[uint64]) uint64 {
	for {
		old := v.Load()
		if old == 0 {
			return 0
		}
		n := old - 1
		if v.CompareAndSwap(old, n) {
			return n
		}
	}
}

// ConnectionOpened records the start of a new connection: increments
// both the active gauge and the lifetime handled total.
func (c *Counters) ConnectionOpened() {
	casIncr(c.active)
	casIncr(c.handled)
}

// ConnectionClosed decrements the active gauge. It is a no-op if the
// gauge is already zero.
func (c *Counters) ConnectionClosed() {
	casDecr(c.active)
}

// Active returns the number of currently open connections.
func (c *Counters) Active() uint64 {
	return c.active.Load()
}

// Handled returns the lifetime count of accepted connections.
func (c *Counters) Handled() uint64 {
	return c.handled.Load()
}
