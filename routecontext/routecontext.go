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

	"github.com/nabbar/dbrouter/destination"
	"github.com/nabbar/dbrouter/errors"
)

// FuncBlockClientHost is notified when a client host is quarantined, so
// a backend-side block can be mirrored onto it.
type FuncBlockClientHost func(host string)

// Context is the shared state every connection on one route reads from
// or updates: its normalized Options, its destination Provider, its
// live Counters, and its client-IP Quarantine.
type Context struct {
	opt Options

	Provider   destination.Provider
	Counters   *Counters
	Quarantine *QuarantineCounters

	mu      sync.Mutex
	onBlock FuncBlockClientHost
}

// New validates opt, normalizes its zero-valued fields to their
// documented defaults, and returns a Context bound to provider.
func New(opt Options, provider destination.Provider) (*Context, errors.Error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}

	opt.Normalize()

	return &Context{
		opt:        opt,
		Provider:   provider,
		Counters:   NewCounters(),
		Quarantine: NewQuarantineCounters(),
	}, nil
}

// Options returns a copy of the context's normalized options.
func (c *Context) Options() Options {
	return c.opt
}

// ThreadName returns the short worker-name label for this route, e.g.
// "RtS:x_ro" for route "routing:cluster_default_x_ro".
func (c *Context) ThreadName(prefix string) string {
	return ShortThreadName(c.opt.RouteName, prefix)
}

// OnBlockClientHost registers fn to be called whenever this route
// quarantines a client host. Only meaningful when Options.MirrorQuarantine
// is set; a single subscriber is kept, matching the acceptor-control
// callback slots in package destination.
func (c *Context) OnBlockClientHost(fn FuncBlockClientHost) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onBlock = fn
}

// RecordConnectFailure records a failed connect/handshake attempt from
// ip and reports whether that client is now quarantined. If this just
// crossed the quarantine threshold and MirrorQuarantine is enabled, the
// registered OnBlockClientHost callback is invoked with ip's string form.
func (c *Context) RecordConnectFailure(ip net.IP) (blocked bool) {
	wasBlocked := c.Quarantine.IsBlocked(ip, c.opt.MaxConnectErrors)
	blocked = c.Quarantine.RecordFailure(ip, c.opt.MaxConnectErrors)

	if blocked && !wasBlocked && c.opt.MirrorQuarantine {
		c.mu.Lock()
		fn := c.onBlock
		c.mu.Unlock()
		if fn != nil {
			fn(ip.String())
		}
	}

	return blocked
}

// IsClientBlocked reports whether ip is currently quarantined on this
// route, without recording a new failure.
func (c *Context) IsClientBlocked(ip net.IP) bool {
	return c.Quarantine.IsBlocked(ip, c.opt.MaxConnectErrors)
}

// BlockedClientHosts returns every client IP string currently
// quarantined on this route.
func (c *Context) BlockedClientHosts() []string {
	return c.Quarantine.BlockedClientHosts(c.opt.MaxConnectErrors)
}
