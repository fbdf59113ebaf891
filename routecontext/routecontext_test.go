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
	"testing"
)

func TestShortThreadNameScenarios(t *testing.T) {
	cases := []struct {
		route, prefix, want string
	}{
		{"routing:cluster_default_x_ro", "RtS", "RtS:x_ro"},
		{"routing", "RtS", "RtS:"},
		{"", "pre", "pre:parse err"},
	}

	for _, c := range cases {
		got := ShortThreadName(c.route, c.prefix)
		if got != c.want {
			t.Fatalf("ShortThreadName(%q, %q) = %q, want %q", c.route, c.prefix, got, c.want)
		}
	}
}

// TestQuarantineThreshold covers testable property 8: 100 failed
// handshakes from a client leave it unblocked, the 101st reports it
// blocked.
func TestQuarantineThreshold(t *testing.T) {
	q := NewQuarantineCounters()
	ip := net.ParseIP("10.0.0.5")

	var blocked bool
	for i := 0; i < 100; i++ {
		blocked = q.RecordFailure(ip, DefaultMaxConnectErrors)
	}
	if blocked {
		t.Fatalf("client should not be blocked after exactly max_connect_errors failures")
	}

	blocked = q.RecordFailure(ip, DefaultMaxConnectErrors)
	if !blocked {
		t.Fatalf("client should be blocked on the (max_connect_errors+1)th failure")
	}

	hosts := q.BlockedClientHosts(DefaultMaxConnectErrors)
	if len(hosts) != 1 || hosts[0] != ip.String() {
		t.Fatalf("BlockedClientHosts() = %v, want [%s]", hosts, ip.String())
	}

	q.Reset(ip)
	if q.IsBlocked(ip, DefaultMaxConnectErrors) {
		t.Fatalf("client should no longer be blocked after Reset")
	}
}

func TestCountersOpenClose(t *testing.T) {
	c := NewCounters()
	c.ConnectionOpened()
	c.ConnectionOpened()
	if c.Active() != 2 || c.Handled() != 2 {
		t.Fatalf("Active()=%d Handled()=%d, want 2 2", c.Active(), c.Handled())
	}

	c.ConnectionClosed()
	if c.Active() != 1 || c.Handled() != 2 {
		t.Fatalf("Active()=%d Handled()=%d, want 1 2", c.Active(), c.Handled())
	}
}

func TestOptionsNormalizeDefaults(t *testing.T) {
	o := Options{RouteName: "routing:cluster_default_x_ro", BindPort: 6446}
	o.Normalize()

	if o.BindAddress != DefaultBindAddress {
		t.Fatalf("BindAddress = %q, want %q", o.BindAddress, DefaultBindAddress)
	}
	if o.MaxConnectErrors != DefaultMaxConnectErrors {
		t.Fatalf("MaxConnectErrors = %d, want %d", o.MaxConnectErrors, DefaultMaxConnectErrors)
	}
	if o.NetBufferSize != DefaultNetBufferSize {
		t.Fatalf("NetBufferSize = %d, want %d", o.NetBufferSize, DefaultNetBufferSize)
	}
}

func TestContextMirrorsQuarantineOnBlock(t *testing.T) {
	opt := Options{RouteName: "routing:cluster_default_classic_rw", BindPort: 6446, MirrorQuarantine: true}
	ctx, err := New(opt, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var mirrored []string
	ctx.OnBlockClientHost(func(host string) {
		mirrored = append(mirrored, host)
	})

	ip := net.ParseIP("192.0.2.9")
	for i := uint64(0); i < ctx.Options().MaxConnectErrors; i++ {
		if ctx.RecordConnectFailure(ip) {
			t.Fatalf("should not be blocked before threshold (iter %d)", i)
		}
	}

	if !ctx.RecordConnectFailure(ip) {
		t.Fatalf("expected client to be blocked after crossing threshold")
	}
	if len(mirrored) != 1 || mirrored[0] != ip.String() {
		t.Fatalf("mirrored = %v, want exactly one entry for %s", mirrored, ip.String())
	}

	// Further failures must not re-fire the callback.
	ctx.RecordConnectFailure(ip)
	if len(mirrored) != 1 {
		t.Fatalf("callback fired again after already blocked: %v", mirrored)
	}
}

func TestOptionsValidateRequiresRouteName(t *testing.T) {
	o := Options{BindPort: 6446}
	if err := o.Validate(); err == nil {
		t.Fatalf("expected validation error for missing route name")
	}
}
