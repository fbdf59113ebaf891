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
	"net"
	"sync"
)

// ClientIPKey is a fixed-size, comparable representation of a client IP
// address, wide enough to hold an IPv6 address without allocation.
type ClientIPKey [16]byte

// KeyFromIP derives a ClientIPKey from ip. IPv4 addresses are stored
// in their 16-byte mapped form, same as net.IP.To16.
func KeyFromIP(ip net.IP) ClientIPKey {
	var k ClientIPKey
	copy(k[:], ip.To16())
	return k
}

type quarantineEntry struct {
	ip    string
	count uint64
}

// QuarantineCounters tracks, per client IP, the number of consecutive
// failed connection/handshake attempts observed on a route. Once a
// client's count reaches the route's configured threshold
// (max_connect_errors, default DefaultMaxConnectErrors), further
// attempts from that IP are reported as blocked until the counter is
// reset.
type QuarantineCounters struct {
	mu sync.Mutex
	m  map[ClientIPKey]*quarantineEntry
}

// NewQuarantineCounters returns an empty set of counters.
func NewQuarantineCounters() *QuarantineCounters {
	return &QuarantineCounters{m: make(map[ClientIPKey]*quarantineEntry)}
}

// RecordFailure increments the failure count for ip and reports whether
// the client is now (or already was) quarantined under maxConnectErrors.
func (q *QuarantineCounters) RecordFailure(ip net.IP, maxConnectErrors uint64) (blocked bool) {
	key := KeyFromIP(ip)

	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.m[key]
	if !ok {
		e = &quarantineEntry{ip: ip.String()}
		q.m[key] = e
	}
	e.count++
	return e.count > maxConnectErrors
}

// IsBlocked reports whether ip is currently past maxConnectErrors without
// recording a new failure.
func (q *QuarantineCounters) IsBlocked(ip net.IP, maxConnectErrors uint64) bool {
	key := KeyFromIP(ip)

	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.m[key]
	if !ok {
		return false
	}
	return e.count > maxConnectErrors
}

// Reset clears the failure count for ip, e.g. after a successful connect.
func (q *QuarantineCounters) Reset(ip net.IP) {
	key := KeyFromIP(ip)

	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.m, key)
}

// BlockedClientHosts returns a snapshot of every client IP string whose
// failure count exceeds maxConnectErrors.
func (q *QuarantineCounters) BlockedClientHosts(maxConnectErrors uint64) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]string, 0, len(q.m))
	for _, e := range q.m {
		if e.count > maxConnectErrors {
			out = append(out, e.ip)
		}
	}
	return out
}

// Len returns the number of client IPs currently tracked.
func (q *QuarantineCounters) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.m)
}
