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
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nabbar/dbrouter/destination"
)

type emptyProvider struct{}

func (emptyProvider) Destinations() []destination.Destination { return nil }
func (emptyProvider) Refresh(prev []destination.Destination) ([]destination.Destination, bool) {
	return nil, false
}

// TestConnectNoDestinations covers testable property 10: an empty
// candidate list fails immediately and asks the acceptor to pause.
func TestConnectNoDestinations(t *testing.T) {
	var paused bool
	c, err := New(Options{}, Hooks{RequestAcceptorPause: func() { paused = true }}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, _, err = c.Connect(context.Background(), emptyProvider{})
	if err == nil {
		t.Fatalf("expected error for empty destination list")
	}
	if !paused {
		t.Fatalf("expected acceptor pause to be requested")
	}
}

func listenerPort(t *testing.T, ln net.Listener) uint16 {
	t.Helper()
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	p, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("atoi port: %v", err)
	}
	return uint16(p)
}

// TestConnectSuccess dials a real local listener and expects the
// destination to be reported as successfully connected.
func TestConnectSuccess(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	port := listenerPort(t, ln)
	provider := destination.NewFirstAvailable([]destination.Addr{{Hostname: "127.0.0.1", Port: port}})

	var succeeded destination.Addr
	c, err := New(Options{DestinationConnectTimeout: time.Second}, Hooks{
		OnSuccess: func(addr destination.Addr) { succeeded = addr },
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	conn, addr, err := c.Connect(context.Background(), provider)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	if addr.Port != port {
		t.Fatalf("got port %d, want %d", addr.Port, port)
	}
	if succeeded.Port != port {
		t.Fatalf("OnSuccess hook not fired with the right address")
	}
}

// TestConnectRefusedThenExhausted covers scenario S where every endpoint
// refuses the connection: the connector must classify the failure and
// surface DestinationsExhausted once the provider reports no replacement.
func TestConnectRefusedThenExhausted(t *testing.T) {
	// A listener bound then immediately closed frees the port but makes
	// connection attempts to it reliably refused on most platforms.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := listenerPort(t, ln)
	ln.Close()

	provider := destination.NewFirstAvailable([]destination.Addr{{Hostname: "127.0.0.1", Port: port}})

	var mu sync.Mutex
	var kinds []FailureKind

	c, err := New(Options{DestinationConnectTimeout: 500 * time.Millisecond}, Hooks{
		OnFailure: func(addr destination.Addr, kind FailureKind, err error) {
			mu.Lock()
			kinds = append(kinds, kind)
			mu.Unlock()
		},
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, _, err = c.Connect(context.Background(), provider)
	if err == nil {
		t.Fatalf("expected error, every destination should have failed")
	}
	if !strings.Contains(err.Error(), "none is reachable") {
		t.Fatalf("expected a DestinationsExhausted error, got: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) == 0 {
		t.Fatalf("expected at least one classified failure")
	}
}

// TestClassifyDialErrTimeout exercises the FailureKind taxonomy directly against
// the sentinel timeout error type, independent of real sockets.
func TestClassifyDialErrTimeout(t *testing.T) {
	err := &dialTimeoutErr{err: context.DeadlineExceeded}
	if got := classifyDialErr(err); got != KindEndpointTimeout {
		t.Fatalf("classifyDialErr(timeout) = %v, want KindEndpointTimeout", got)
	}
}

func TestOptionsValidateRejectsNegativeTimeout(t *testing.T) {
	o := Options{DestinationConnectTimeout: -1}
	if err := o.Validate(); err == nil {
		t.Fatalf("expected validation error for negative timeout")
	}
}

func TestOptionsNormalizeDefaultsTimeout(t *testing.T) {
	o := Options{}
	o.Normalize()
	if o.DestinationConnectTimeout != DefaultDestinationConnectTimeout {
		t.Fatalf("got %v, want default %v", o.DestinationConnectTimeout, DefaultDestinationConnectTimeout)
	}
}
