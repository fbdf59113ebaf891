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

package conn

import (
	"context"
	"net"
	"strconv"
	"sync"

	uuid "github.com/hashicorp/go-uuid"

	atmc "github.com/nabbar/dbrouter/atomic"
	"github.com/nabbar/dbrouter/certificates"
	"github.com/nabbar/dbrouter/channel"
	"github.com/nabbar/dbrouter/connector"
	"github.com/nabbar/dbrouter/container"
	"github.com/nabbar/dbrouter/logger"
	"github.com/nabbar/dbrouter/protocol/classic"
	"github.com/nabbar/dbrouter/routecontext"
)

// Protocol identifies which wire protocol a Conn speaks.
type Protocol int

const (
	ProtocolClassic Protocol = iota
	ProtocolX
)

func (p Protocol) String() string {
	switch p {
	case ProtocolClassic:
		return "classic"
	case ProtocolX:
		return "x"
	default:
		return "unknown"
	}
}

// TLSConfigs bundles the optional client- and server-facing TLS material a
// route may terminate with. Either may be nil when the corresponding side's
// SSL mode never requires local termination (disabled or passthrough).
type TLSConfigs struct {
	Client certificates.TLSConfig
	Server certificates.TLSConfig
}

// stepFunc is one transition of the per-connection state machine: it acts
// on c and returns the next transition, or nil to end the run. Modeled
// after the tagged-enumeration-of-next-steps shape used for the owning
// route's start/reload hooks, generalized to a per-connection dispatch
// loop since each connection here runs as its own blocking goroutine
// rather than being resumed by an external I/O reactor.
type stepFunc func(c *Conn) stepFunc

// Conn is one client connection's run loop: its identity, the client and
// (once connected) backend byte streams, and the shared route state it
// reads quarantine/counters/TLS policy from.
type Conn struct {
	id    string
	proto Protocol

	route     *routecontext.Context
	connector *connector.Connector
	container *container.Container
	tls       TLSConfigs
	log       logger.FuncLog

	client     *channel.Channel
	clientAddr net.IP

	server     *channel.Channel
	serverAddr atmc.Value[string]

	seq *classic.SeqTracker

	clientBuf []byte
	serverBuf []byte
	runCtx    context.Context

	mu     sync.Mutex
	err    error
	closed bool
}

// New returns a Conn ready to Run over an already-accepted client socket.
// c is registered into reg by Run, not by New, so callers can inspect/log
// before the connection becomes visible to container-wide operations.
func New(proto Protocol, clientConn net.Conn, route *routecontext.Context, connr *connector.Connector, reg *container.Container, tlsCfg TLSConfigs, log logger.FuncLog) *Conn {
	id, err := uuid.GenerateUUID()
	if err != nil {
		id = clientConn.RemoteAddr().String()
	}

	var ip net.IP
	if host, _, e := net.SplitHostPort(clientConn.RemoteAddr().String()); e == nil {
		ip = net.ParseIP(host)
	}

	return &Conn{
		id:         id,
		proto:      proto,
		route:      route,
		connector:  connr,
		container:  reg,
		tls:        tlsCfg,
		log:        log,
		client:     channel.New(clientConn),
		clientAddr: ip,
		serverAddr: atmc.NewValue[string](),
		seq:        classic.NewSeqTracker(),
	}
}

// ID implements container.Entry.
func (c *Conn) ID() string { return c.id }

// ServerAddr implements container.Entry.
func (c *Conn) ServerAddr() string { return c.serverAddr.Load() }

// Disconnect implements container.Entry: requests teardown from outside
// the connection's own goroutine (e.g. DisconnectByAllowSet). It only
// closes the sockets; the run loop itself performs the container Erase
// once it observes the closed channels and reaches Done.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.client.Close()
	if c.server != nil {
		_ = c.server.Close()
	}
}

func (c *Conn) logger() logger.Logger {
	if c.log == nil {
		return nil
	}
	return c.log()
}

// Run drives this connection's entire lifecycle: registers it into the
// container, dispatches to the protocol-specific flow, then finalizes
// (closing sockets and erasing itself), per §4.5/§4.6.
func (c *Conn) Run(ctx context.Context) {
	c.runCtx = ctx
	c.route.Counters.ConnectionOpened()
	c.container.Put(c)

	defer func() {
		c.route.Counters.ConnectionClosed()
		c.container.Erase(c.id)
		c.finish()
	}()

	var first stepFunc
	switch c.proto {
	case ProtocolX:
		first = stepXClientRecvCmd
	default:
		first = stepClassicHandshake
	}

	step := first
	for step != nil {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.err = ctx.Err()
			c.mu.Unlock()
			return
		default:
		}
		step = step(c)
	}
}

// connectBackend drives §4.4 through the injected Connector, wraps the
// resulting socket in a Channel, and records the server address for
// ServerAddr()/DisconnectByAllowSet. On failure it records a quarantine
// strike for the client IP, per §4.7.
func (c *Conn) connectBackend(ctx context.Context) error {
	nc, addr, err := c.connector.Connect(ctx, c.route.Provider)
	if err != nil {
		if c.clientAddr != nil {
			c.route.RecordConnectFailure(c.clientAddr)
		}
		if lg := c.logger(); lg != nil {
			lg.Error("conn: backend connect failed").Field("conn_id", c.id).Error(err).Log()
		}
		return ErrorConnectFailed.Error(err)
	}

	c.server = channel.New(nc)
	c.serverAddr.Store(net.JoinHostPort(addr.Hostname, portString(addr.Port)))
	return nil
}

// finish implements §4.5's Finish/Done teardown: shut down whichever side
// is still open, send a TLS close-notify where a local session exists,
// and close both sockets. Container removal already happened in Run's
// deferred cleanup before finish is called.
func (c *Conn) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		_ = c.client.TLSShutdown()
		_ = c.client.Close()
	}
	if c.server != nil {
		_ = c.server.TLSShutdown()
		_ = c.server.Close()
	}
	c.closed = true
}

// Err returns the error (if any) the run loop terminated with.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Conn) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func portString(p uint16) string {
	return strconv.Itoa(int(p))
}
