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

package acceptor

import (
	"context"
	"net"
	"strconv"
	"sync"

	atmc "github.com/nabbar/dbrouter/atomic"
	"github.com/nabbar/dbrouter/conn"
	"github.com/nabbar/dbrouter/connector"
	"github.com/nabbar/dbrouter/container"
	"github.com/nabbar/dbrouter/destination"
	"github.com/nabbar/dbrouter/logger"
	"github.com/nabbar/dbrouter/routecontext"
)

// acceptorControlSource is satisfied by a destination.Callbacks (or
// anything embedding one): a provider implementing it lets this acceptor
// register itself as the single pause/resume subscriber instead of
// requiring the caller to wire that by hand.
type acceptorControlSource interface {
	SetStartAcceptor(fn destination.StartAcceptorFunc)
	SetStopAcceptor(fn destination.StopAcceptorFunc)
}

// quarantineQuerySource is satisfied by a destination.Callbacks (or
// anything embedding one): a provider implementing it lets this acceptor
// wire the Connector's §4.3 QueryQuarantined skip-list straight through to
// the provider instead of the Connector consulting nothing.
type quarantineQuerySource interface {
	QueryQuarantined(addr destination.Addr) bool
}

// Acceptor owns one route's listening socket: one net.Listener bound to
// Options.BindAddress:BindPort (§6), admission checks (total connection
// cap, quarantined hosts), and a conn state machine per admitted socket.
type Acceptor struct {
	route     *routecontext.Context
	connector *connector.Connector
	container *container.Container
	proto     conn.Protocol
	tls       conn.TLSConfigs
	log       logger.FuncLog

	ln     net.Listener
	paused atmc.Value[bool]
	wg     sync.WaitGroup
}

// New binds the route's listening socket and returns an Acceptor ready for
// Serve. copt configures the Connector this acceptor's connections dial
// through; its RequestAcceptorPause hook is wired to this Acceptor's own
// Pause, so an exhausted destination list stops new admissions until
// Resume is called, for example through the provider's next StartAcceptor
// call; a later successful connect does not resume it.
func New(route *routecontext.Context, copt connector.Options, proto conn.Protocol, tlsCfg conn.TLSConfigs, reg *container.Container, log logger.FuncLog) (*Acceptor, error) {
	if tlsCfg.Client == nil && tlsCfg.Server == nil {
		built, err := BuildTLSConfigs(route.Options())
		if err != nil {
			return nil, err
		}
		tlsCfg = built
	}

	a := &Acceptor{
		route:     route,
		container: reg,
		proto:     proto,
		tls:       tlsCfg,
		log:       log,
		paused:    atmc.NewValue[bool](),
	}

	hooks := connector.Hooks{
		RequestAcceptorPause: a.Pause,
	}
	if src, ok := route.Provider.(quarantineQuerySource); ok {
		hooks.QueryQuarantined = src.QueryQuarantined
	}

	connr, err := connector.New(copt, hooks, log)
	if err != nil {
		return nil, err
	}
	a.connector = connr

	opt := route.Options()
	addr := net.JoinHostPort(opt.BindAddress, strconv.Itoa(int(opt.BindPort)))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, ErrorListenFailed.Error(err)
	}
	a.ln = ln

	if src, ok := route.Provider.(acceptorControlSource); ok {
		src.SetStartAcceptor(a.Resume)
		src.SetStopAcceptor(a.Pause)
	}

	return a, nil
}

// Addr returns the bound listening address.
func (a *Acceptor) Addr() net.Addr {
	return a.ln.Addr()
}

// Pause stops admitting new client sockets; already-open connections are
// unaffected.
func (a *Acceptor) Pause() {
	a.paused.Store(true)
}

// Resume resumes admitting new client sockets.
func (a *Acceptor) Resume() {
	a.paused.Store(false)
}

// Paused reports whether this acceptor is currently refusing new clients.
func (a *Acceptor) Paused() bool {
	return a.paused.Load()
}

func isTemporary(err error) bool {
	if ne, ok := err.(net.Error); ok {
		return ne.Timeout()
	}
	return false
}

// admit applies the route's connection-admission rules to a freshly
// accepted socket: the total connection cap and client-host quarantine
// from §4.6/§4.7. It returns false (and closes nc) when the socket is
// refused.
func (a *Acceptor) admit(nc net.Conn) bool {
	opt := a.route.Options()

	if opt.MaxTotalConnections > 0 && a.container.Size() >= opt.MaxTotalConnections {
		_ = nc.Close()
		return false
	}

	if host, _, err := net.SplitHostPort(nc.RemoteAddr().String()); err == nil {
		if ip := net.ParseIP(host); ip != nil && a.route.IsClientBlocked(ip) {
			_ = nc.Close()
			return false
		}
	}

	return true
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed, spawning one conn.Conn per admitted socket. It blocks until
// every spawned connection has returned.
func (a *Acceptor) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = a.ln.Close()
	}()

	defer a.wg.Wait()

	for {
		nc, err := a.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if isTemporary(err) {
				continue
			}
			return err
		}

		if a.paused.Load() {
			_ = nc.Close()
			continue
		}
		if !a.admit(nc) {
			continue
		}

		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			c := conn.New(a.proto, nc, a.route, a.connector, a.container, a.tls, a.log)
			c.Run(ctx)
		}()
	}
}

// Shutdown closes the listening socket; in-flight connections are left to
// drain on their own (callers that also cancel Serve's ctx will have them
// torn down by conn.Conn.Disconnect via the route's container instead).
func (a *Acceptor) Shutdown() error {
	return a.ln.Close()
}
