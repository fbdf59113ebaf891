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

package connector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/nabbar/dbrouter/destination"
	"github.com/nabbar/dbrouter/logger"
)

// Hooks are the Connector's side-channel notifications: the "on-success/
// on-failure" hooks from §4.4, plus the acceptor pause/resume and
// descriptor-release signals from §4.4's failure-classification rules.
// Every field is optional.
type Hooks struct {
	// OnSuccess is invoked with the destination a connection was opened
	// to, right before Connect returns it.
	OnSuccess func(addr destination.Addr)

	// OnFailure is invoked for every failed attempt against a destination,
	// after ConnectStatus has already been reported to the provider.
	OnFailure func(addr destination.Addr, kind FailureKind, err error)

	// RequestAcceptorPause is invoked once per Connect call that fails with
	// NoDestinations or DestinationsExhausted: there is nothing left to
	// route to, so the route's acceptor should stop taking new clients
	// until the destination set changes.
	RequestAcceptorPause func()

	// ReleasePooledDescriptors is invoked when a connect attempt fails with
	// KindResourceExhaustion ("too many open files"), so a collaborator
	// holding idle pooled descriptors can free some instead of the
	// Connector retrying in a tight loop.
	ReleasePooledDescriptors func()

	// QueryQuarantined lets the destination provider's §4.3
	// QueryQuarantined(addr) callback veto a destination before Connect
	// dials it. Route wiring sets this to destination.Callbacks.
	// QueryQuarantined when the provider exposes one; nil means nothing is
	// considered quarantined.
	QueryQuarantined func(addr destination.Addr) bool
}

// Connector walks a destination.Provider's candidate list down to one open
// socket, per §4.4's state machine.
type Connector struct {
	opt    Options
	hooks  Hooks
	log    logger.FuncLog
	sf     singleflight.Group
	refCnt sync.Map // not read or written; refresh keys singleflight by the provider's pointer
}

// New returns a Connector with opt normalized and validated. log may be
// nil, in which case the connector is silent.
func New(opt Options, hooks Hooks, log logger.FuncLog) (*Connector, error) {
	opt.Normalize()
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	return &Connector{opt: opt, hooks: hooks, log: log}, nil
}

func (c *Connector) logger() logger.Logger {
	if c.log == nil {
		return nil
	}
	return c.log()
}

// Connect runs the full §4.4 state machine against provider: walk
// destinations, resolve endpoints, connect with per-attempt timeout and
// per-endpoint failover, reporting outcomes back to provider and refreshing
// it once exhausted. It returns the open socket and the destination it
// belongs to, or an error classifying why every attempt failed.
func (c *Connector) Connect(ctx context.Context, provider destination.Provider) (net.Conn, destination.Addr, error) {
	dests := provider.Destinations()
	if len(dests) == 0 {
		c.pauseAcceptor()
		return nil, destination.Addr{}, ErrorNoDestinations.Error()
	}

	di := 0
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, destination.Addr{}, ctx.Err()
		}

		if di >= len(dests) {
			next, ok := c.refresh(provider, dests)
			if !ok {
				c.pauseAcceptor()
				return nil, destination.Addr{}, ErrorDestinationsExhausted.Error(lastErr)
			}
			dests = next
			di = 0
			continue
		}

		d := dests[di]

		if !d.Good() || c.isQuarantined(d.Addr) {
			di++
			continue
		}

		endpoints, err := destination.Resolve(d)
		if err != nil {
			d.ConnectStatus(err)
			c.reportFailure(d.Addr, KindDestinationUnresolvable, err)
			lastErr = err
			di++
			continue
		}
		if len(endpoints) == 0 {
			di++
			continue
		}

		conn, kind, err := c.connectEndpoints(ctx, endpoints)
		if err != nil {
			d.ConnectStatus(err)
			c.reportFailure(d.Addr, kind, err)
			lastErr = err
			if kind == KindResourceExhaustion && c.hooks.ReleasePooledDescriptors != nil {
				c.hooks.ReleasePooledDescriptors()
			}
			di++
			continue
		}

		d.ConnectStatus(nil)
		if c.hooks.OnSuccess != nil {
			c.hooks.OnSuccess(d.Addr)
		}
		if lg := c.logger(); lg != nil {
			lg.Debug("connector: connected").Field("host", d.Hostname).Field("port", d.Port).Log()
		}
		return conn, d.Addr, nil
	}
}

func (c *Connector) reportFailure(addr destination.Addr, kind FailureKind, err error) {
	if lg := c.logger(); lg != nil {
		lg.Warning("connector: connect attempt failed").
			Field("host", addr.Hostname).Field("port", addr.Port).Field("kind", kind.String()).
			Error(err).Log()
	}
	if c.hooks.OnFailure != nil {
		c.hooks.OnFailure(addr, kind, err)
	}
}

func (c *Connector) pauseAcceptor() {
	if c.hooks.RequestAcceptorPause != nil {
		c.hooks.RequestAcceptorPause()
	}
}

// isQuarantined consults Hooks.QueryQuarantined, if the route wired one
// from the provider's destination.Callbacks, so init_destination/advance
// destination can skip endpoints §4.3 already knows are unreachable.
func (c *Connector) isQuarantined(addr destination.Addr) bool {
	if c.hooks.QueryQuarantined == nil {
		return false
	}
	return c.hooks.QueryQuarantined(addr)
}

// connectEndpoints tries every resolved endpoint of one destination in
// order, returning the first successful connection or the last
// classified failure.
func (c *Connector) connectEndpoints(ctx context.Context, eps []destination.Endpoint) (net.Conn, FailureKind, error) {
	var (
		lastErr  error
		lastKind = KindEndpointRefused
	)

	for _, ep := range eps {
		conn, err := c.dialEndpoint(ctx, ep)
		if err == nil {
			return conn, KindNone, nil
		}
		lastErr = err
		lastKind = classifyDialErr(err)
	}

	return nil, lastKind, lastErr
}

type dialTimeoutErr struct{ err error }

func (e *dialTimeoutErr) Error() string   { return "connect timed out: " + e.err.Error() }
func (e *dialTimeoutErr) Unwrap() error   { return e.err }
func (e *dialTimeoutErr) Timeout() bool   { return true }
func (e *dialTimeoutErr) Temporary() bool { return true }

// dialEndpoint races a non-blocking connect against
// Options.DestinationConnectTimeout using an errgroup, per §4.4's
// try_connect/connect_finish steps and §9's "connect-wait timer"
// suspension point: a dedicated goroutine performs the dial, while the
// group's derived context is cancelled the instant the deadline fires.
func (c *Connector) dialEndpoint(ctx context.Context, ep destination.Endpoint) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.opt.DestinationConnectTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(dialCtx)

	var conn net.Conn
	addr := net.JoinHostPort(ep.IP.String(), strconv.Itoa(int(ep.Port)))

	g.Go(func() error {
		d := &net.Dialer{}
		var err error
		conn, err = d.DialContext(gctx, "tcp", addr)
		return err
	})

	if err := g.Wait(); err != nil {
		if dialCtx.Err() == context.DeadlineExceeded {
			return nil, &dialTimeoutErr{err: err}
		}
		return nil, err
	}

	tuneSocket(conn, c.opt.BindAddressNoPort)

	if err := soError(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

// classifyDialErr maps a dial error to a FailureKind per §7's error
// taxonomy.
func classifyDialErr(err error) FailureKind {
	if err == nil {
		return KindNone
	}

	var timeoutErr *dialTimeoutErr
	if errors.As(err, &timeoutErr) {
		return KindEndpointTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindEndpointRefused
	}
	if errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) {
		return KindResourceExhaustion
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindEndpointTimeout
	}

	return KindEndpointRefused
}

type refreshResult struct {
	next []destination.Destination
	ok   bool
}

// refresh asks provider to replace an exhausted destination list,
// de-duplicating concurrent refresh calls made through this Connector
// against the same provider with its singleflight.Group so only one
// metadata round-trip happens at a time, per the DOMAIN STACK's singleflight note.
func (c *Connector) refresh(provider destination.Provider, prev []destination.Destination) ([]destination.Destination, bool) {
	key := fmt.Sprintf("%p", provider)

	v, _, _ := c.sf.Do(key, func() (interface{}, error) {
		next, ok := provider.Refresh(prev)
		return refreshResult{next: next, ok: ok}, nil
	})

	r := v.(refreshResult)
	return r.next, r.ok
}
