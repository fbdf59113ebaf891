/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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

package atomic

import (
	"sync/atomic"
)

// Value is a type-safe, lock-free cell used for the per-connection and
// per-route counters that are read and written from goroutines outside
// their owner's lock: conn.Conn's serverAddr, acceptor.Acceptor's paused
// flag, and routecontext.Counters' active/handled tallies all share this
// shape rather than each hand-rolling a sync/atomic.Value wrapper.
type Value[T any] interface {
	// SetDefaultLoad sets the value Load returns when nothing has been
	// Stored yet. Call before the first Load.
	SetDefaultLoad(def T)
	// SetDefaultStore sets the value substituted whenever Store,
	// Swap, or CompareAndSwap is given the zero value of T.
	SetDefaultStore(def T)

	// Load returns the current value, or the default load value if
	// nothing has been stored yet.
	Load() (val T)
	// Store sets the current value. A zero value of T is replaced by
	// the configured default store value, so e.g. a counter can never
	// be reset to zero by a Store(0) that meant "clear" rather than
	// "subtract to zero".
	Store(val T)
	// Swap stores new and returns the value it replaced.
	Swap(new T) (old T)
	// CompareAndSwap stores new only if the current value equals old,
	// reporting whether it did.
	CompareAndSwap(old, new T) (swapped bool)
}

// NewValue returns a Value[T] with both defaults set to the zero value
// of T.
func NewValue[T any]() Value[T] {
	var (
		tmp1 T
		tmp2 T
	)

	return NewValueDefault[T](tmp1, tmp2)
}

// NewValueDefault returns a Value[T] with the given default load and
// store values already configured, for callers like routecontext.
// Counters that need a non-zero baseline (e.g. a counter that should
// read back as 0 rather than a cast failure before first use).
func NewValueDefault[T any](load, store T) Value[T] {
	o := &val[T]{
		av: new(atomic.Value),
		dl: new(atomic.Value),
		ds: new(atomic.Value),
	}

	o.SetDefaultLoad(load)
	o.SetDefaultStore(store)

	return o
}
