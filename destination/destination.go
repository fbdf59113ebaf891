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

import "net"

// Addr is a host/port/id triple as configured or discovered, before any
// per-fetch good()/status() wiring is attached.
type Addr struct {
	Hostname string
	Port     uint16
	ID       string
}

// Endpoint is a resolved transport address drawn from a Destination. One
// Destination yields zero or more Endpoints via DNS or address-family
// expansion.
type Endpoint struct {
	IP   net.IP
	Port uint16
}

// Destination is one candidate backend, annotated by its owning strategy
// with a goodness predicate and a connect-status sink for this iteration.
type Destination struct {
	Addr

	index  int
	good   func(index int) bool
	status func(index int, err error)
}

// Good reports whether the owning strategy still considers this
// destination viable for a new connection attempt.
func (d Destination) Good() bool {
	if d.good == nil {
		return true
	}
	return d.good(d.index)
}

// ConnectStatus reports the outcome of a connect attempt against this
// destination back to the owning strategy. A nil err means success.
func (d Destination) ConnectStatus(err error) {
	if d.status != nil {
		d.status(d.index, err)
	}
}

// Index returns the destination's position in the list it was fetched
// from, stable for the lifetime of one Destinations() call.
func (d Destination) Index() int {
	return d.index
}

// Resolve expands a destination's hostname into endpoints via the
// standard resolver. Errors are the caller's cue to advance to the next
// destination per §4.4's resolve step.
func Resolve(d Destination) ([]Endpoint, error) {
	ips, err := net.LookupIP(d.Hostname)
	if err != nil {
		return nil, err
	}

	out := make([]Endpoint, 0, len(ips))
	for _, ip := range ips {
		out = append(out, Endpoint{IP: ip, Port: d.Port})
	}
	return out, nil
}
