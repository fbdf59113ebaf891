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
	"testing"
	"time"

	"github.com/nabbar/dbrouter/connector"
	"github.com/nabbar/dbrouter/container"
	"github.com/nabbar/dbrouter/destination"
	"github.com/nabbar/dbrouter/protocol/classic"
	"github.com/nabbar/dbrouter/protocol/x"
	"github.com/nabbar/dbrouter/protocol/x/messages"
	"github.com/nabbar/dbrouter/routecontext"
)

func listenerAddr(t *testing.T, ln net.Listener) (string, uint16) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	p, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("atoi port: %v", err)
	}
	return host, uint16(p)
}

func newTestRoute(t *testing.T, opt routecontext.Options, provider destination.Provider) *routecontext.Context {
	t.Helper()
	rc, err := routecontext.New(opt, provider)
	if err != nil {
		t.Fatalf("routecontext.New: %v", err)
	}
	return rc
}

func newTestConnector(t *testing.T) *connector.Connector {
	t.Helper()
	c, err := connector.New(connector.Options{DestinationConnectTimeout: time.Second}, connector.Hooks{}, nil)
	if err != nil {
		t.Fatalf("connector.New: %v", err)
	}
	return c
}

// TestClassicHandshakeRelay drives a full plaintext classic handshake
// (greeting, auth response, Ok) through Conn.Run and then checks that
// bytes sent after the handshake are relayed verbatim in both directions.
func TestClassicHandshakeRelay(t *testing.T) {
	backendLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer backendLn.Close()

	backendDone := make(chan struct{})
	go func() {
		defer close(backendDone)
		srv, err := backendLn.Accept()
		if err != nil {
			return
		}
		defer srv.Close()

		greeting := append([]byte{10}, []byte("8.0.30\x00")...)
		greeting = append(greeting, classic.FixedInt(1, 4)...)
		greeting = append(greeting, make([]byte, 8)...) // auth_plugin_data_1
		greeting = append(greeting, 0)                  // filler
		greeting = append(greeting, classic.FixedInt(0, 2)...)
		greeting = append(greeting, 0x21) // charset
		greeting = append(greeting, classic.FixedInt(2, 2)...)
		greeting = append(greeting, classic.FixedInt(0, 2)...)
		greeting = append(greeting, 21)
		greeting = append(greeting, make([]byte, 10)...)
		greeting = append(greeting, make([]byte, 13)...) // auth_plugin_data_2

		if _, err := srv.Write(classic.Encode(0, greeting)); err != nil {
			return
		}

		buf := make([]byte, 4096)
		n, err := srv.Read(buf)
		if err != nil {
			return
		}
		if _, _, err := classic.Decode(buf[:n]); err != nil {
			return
		}

		if _, err := srv.Write(classic.Encode(2, []byte{0x00, 0x00, 0x00, 0x02, 0x00, 0x00})); err != nil {
			return
		}

		relayBuf := make([]byte, 256)
		rn, rerr := srv.Read(relayBuf)
		if rerr == nil && rn > 0 {
			_, _ = srv.Write(relayBuf[:rn])
		}
	}()

	host, port := listenerAddr(t, backendLn)
	provider := destination.NewFirstAvailable([]destination.Addr{{Hostname: host, Port: port}})
	route := newTestRoute(t, routecontext.Options{RouteName: "classic_ro", BindPort: 6446, SourceSSLMode: routecontext.TLSDisabled, DestSSLMode: routecontext.TLSDisabled}, provider)
	connr := newTestConnector(t)
	reg := container.New(0)

	clientSide, routerSide := net.Pipe()
	c := New(ProtocolClassic, routerSide, route, connr, reg, TLSConfigs{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	connDone := make(chan struct{})
	go func() {
		defer close(connDone)
		c.Run(ctx)
	}()

	buf := make([]byte, 4096)
	n, err := clientSide.Read(buf)
	if err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	frame, _, err := classic.Decode(buf[:n])
	if err != nil {
		t.Fatalf("decode greeting: %v", err)
	}
	if frame.Header.SeqID != 0 {
		t.Fatalf("greeting seq = %d, want 0", frame.Header.SeqID)
	}

	authResp := make([]byte, 32)
	if _, err := clientSide.Write(classic.Encode(1, authResp)); err != nil {
		t.Fatalf("write auth response: %v", err)
	}

	n, err = clientSide.Read(buf)
	if err != nil {
		t.Fatalf("read ok: %v", err)
	}
	okFrame, _, err := classic.Decode(buf[:n])
	if err != nil {
		t.Fatalf("decode ok: %v", err)
	}
	if cls, ok := classic.ClassifyResponse(okFrame.Payload); !ok || cls != classic.RespOk {
		t.Fatalf("expected an Ok response, got classifier ok=%v cls=%v", ok, cls)
	}

	payload := []byte("select 1")
	if _, err := clientSide.Write(payload); err != nil {
		t.Fatalf("write relay payload: %v", err)
	}
	n, err = clientSide.Read(buf)
	if err != nil {
		t.Fatalf("read relay echo: %v", err)
	}
	if string(buf[:n]) != string(payload) {
		t.Fatalf("relay echo = %q, want %q", buf[:n], payload)
	}

	clientSide.Close()
	<-backendDone
	<-connDone

	if reg.Size() != 0 {
		t.Fatalf("container size after teardown = %d, want 0", reg.Size())
	}
}

// TestXProtocolCapabilitiesAndCommand drives a plaintext X protocol
// session through capability negotiation (no TLS requested), a backend
// connect, one forwarded command/Ok round trip, then a session close.
func TestXProtocolCapabilitiesAndCommand(t *testing.T) {
	backendLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer backendLn.Close()

	backendDone := make(chan struct{})
	go func() {
		defer close(backendDone)
		srv, err := backendLn.Accept()
		if err != nil {
			return
		}
		defer srv.Close()

		buf := make([]byte, 4096)
		n, err := srv.Read(buf)
		if err != nil {
			return
		}
		frame, _, err := x.Decode(buf[:n])
		if err != nil || frame.MsgType != messages.TypeSQLStmtExecute {
			return
		}
		if _, err := srv.Write(x.Encode(messages.TypeServerOk, nil)); err != nil {
			return
		}

		n, err = srv.Read(buf)
		if err != nil {
			return
		}
		if _, _, err := x.Decode(buf[:n]); err != nil {
			return
		}
	}()

	host, port := listenerAddr(t, backendLn)
	provider := destination.NewFirstAvailable([]destination.Addr{{Hostname: host, Port: port}})
	route := newTestRoute(t, routecontext.Options{RouteName: "x_ro", BindPort: 33070, SourceSSLMode: routecontext.TLSDisabled, DestSSLMode: routecontext.TLSDisabled}, provider)
	connr := newTestConnector(t)
	reg := container.New(0)

	clientSide, routerSide := net.Pipe()
	c := New(ProtocolX, routerSide, route, connr, reg, TLSConfigs{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	connDone := make(chan struct{})
	go func() {
		defer close(connDone)
		c.Run(ctx)
	}()

	set := messages.CapabilitiesSet{}
	payload, err := set.Marshal()
	if err != nil {
		t.Fatalf("marshal CapabilitiesSet: %v", err)
	}
	if _, err := clientSide.Write(x.Encode(messages.TypeClientCapabilitiesSet, payload)); err != nil {
		t.Fatalf("write CapabilitiesSet: %v", err)
	}

	buf := make([]byte, 4096)
	n, err := clientSide.Read(buf)
	if err != nil {
		t.Fatalf("read capabilities ack: %v", err)
	}
	ackFrame, _, err := x.Decode(buf[:n])
	if err != nil {
		t.Fatalf("decode capabilities ack: %v", err)
	}
	if ackFrame.MsgType != messages.TypeServerOk {
		t.Fatalf("capabilities ack type = %v, want Ok", ackFrame.MsgType)
	}

	if _, err := clientSide.Write(x.Encode(messages.TypeSQLStmtExecute, []byte("select 1"))); err != nil {
		t.Fatalf("write command: %v", err)
	}

	n, err = clientSide.Read(buf)
	if err != nil {
		t.Fatalf("read command response: %v", err)
	}
	respFrame, _, err := x.Decode(buf[:n])
	if err != nil {
		t.Fatalf("decode command response: %v", err)
	}
	if respFrame.MsgType != messages.TypeServerOk {
		t.Fatalf("command response type = %v, want Ok", respFrame.MsgType)
	}

	if _, err := clientSide.Write(x.Encode(messages.TypeSessClose, nil)); err != nil {
		t.Fatalf("write SessClose: %v", err)
	}

	<-backendDone
	<-connDone
	clientSide.Close()

	if reg.Size() != 0 {
		t.Fatalf("container size after teardown = %d, want 0", reg.Size())
	}
}

// TestConnImplementsContainerEntry is a compile-time-flavored check that
// Conn satisfies container.Entry, exercised via ID/ServerAddr/Disconnect
// directly rather than a type assertion so it also verifies zero-value
// safety of ServerAddr before any backend connects.
func TestConnImplementsContainerEntry(t *testing.T) {
	clientSide, routerSide := net.Pipe()
	defer clientSide.Close()

	provider := destination.NewFirstAvailable(nil)
	route := newTestRoute(t, routecontext.Options{RouteName: "idle_ro", BindPort: 6450}, provider)
	connr := newTestConnector(t)
	reg := container.New(0)

	c := New(ProtocolClassic, routerSide, route, connr, reg, TLSConfigs{}, nil)
	if c.ID() == "" {
		t.Fatalf("expected a non-empty connection id")
	}
	if c.ServerAddr() != "" {
		t.Fatalf("expected empty ServerAddr before any backend connects")
	}

	c.Disconnect()
	c.Disconnect() // idempotent
}
