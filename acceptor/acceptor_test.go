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
	"testing"
	"time"

	"github.com/nabbar/dbrouter/conn"
	"github.com/nabbar/dbrouter/connector"
	"github.com/nabbar/dbrouter/container"
	"github.com/nabbar/dbrouter/destination"
	"github.com/nabbar/dbrouter/routecontext"
)

// freePort asks the OS for an ephemeral port, releases it, and returns it
// as a uint16 so the caller can bind a routecontext.Options.BindPort to it.
func freePort(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	ln.Close()

	p, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("atoi port: %v", err)
	}
	return uint16(p)
}

// TestAcceptorRejectsWhilePaused verifies that a connection accepted while
// paused is closed immediately and never reaches the container.
func TestAcceptorRejectsWhilePaused(t *testing.T) {
	port := freePort(t)
	provider := destination.NewFirstAvailable(nil)
	route, err := routecontext.New(routecontext.Options{RouteName: "test_ro", BindAddress: "127.0.0.1", BindPort: port}, provider)
	if err != nil {
		t.Fatalf("routecontext.New: %v", err)
	}
	reg := container.New(0)

	a, err := New(route, connector.Options{DestinationConnectTimeout: time.Second}, conn.ProtocolClassic, conn.TLSConfigs{}, reg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveDone := make(chan error, 1)
	go func() { serveDone <- a.Serve(ctx) }()

	c, err := net.Dial("tcp", a.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	buf := make([]byte, 1)
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.Read(buf); err == nil {
		t.Fatalf("expected the paused acceptor to close the connection")
	}

	cancel()
	<-serveDone

	if reg.Size() != 0 {
		t.Fatalf("container size = %d, want 0 for a refused connection", reg.Size())
	}
}

// TestAcceptorShutdownStopsServe verifies that cancelling Serve's context
// causes it to return once the listener is closed.
func TestAcceptorShutdownStopsServe(t *testing.T) {
	port := freePort(t)
	provider := destination.NewFirstAvailable(nil)
	route, err := routecontext.New(routecontext.Options{RouteName: "test_ro2", BindAddress: "127.0.0.1", BindPort: port}, provider)
	if err != nil {
		t.Fatalf("routecontext.New: %v", err)
	}
	reg := container.New(0)

	a, err := New(route, connector.Options{DestinationConnectTimeout: time.Second}, conn.ProtocolClassic, conn.TLSConfigs{}, reg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- a.Serve(ctx) }()

	cancel()

	select {
	case <-serveDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not return after context cancellation")
	}
}

// TestAcceptorPauseResumeToggle exercises Pause/Resume/Paused directly.
func TestAcceptorPauseResumeToggle(t *testing.T) {
	port := freePort(t)
	provider := destination.NewFirstAvailable(nil)
	route, err := routecontext.New(routecontext.Options{RouteName: "test_ro3", BindAddress: "127.0.0.1", BindPort: port}, provider)
	if err != nil {
		t.Fatalf("routecontext.New: %v", err)
	}
	reg := container.New(0)

	a, err := New(route, connector.Options{DestinationConnectTimeout: time.Second}, conn.ProtocolClassic, conn.TLSConfigs{}, reg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown()

	if a.Paused() {
		t.Fatalf("expected a fresh acceptor to start unpaused")
	}
	a.Pause()
	if !a.Paused() {
		t.Fatalf("expected Paused() to be true after Pause()")
	}
	a.Resume()
	if a.Paused() {
		t.Fatalf("expected Paused() to be false after Resume()")
	}
}
