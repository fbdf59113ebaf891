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

package channel

import (
	"bytes"
	"crypto/tls"
	"net"
	"sync"

	"github.com/nabbar/dbrouter/certificates"
)

type wantMoreErr struct{}

func (wantMoreErr) Error() string { return "channel: want more data" }

// ErrWantMore is returned by passthrough TLS-record decoding when buf does
// not yet contain a full record.
var ErrWantMore error = wantMoreErr{}

// IsWantMore reports whether err is the partial-read sentinel.
func IsWantMore(err error) bool {
	_, ok := err.(wantMoreErr)
	return ok
}

// Channel is a bidirectional byte stream with an optional terminated TLS
// session (§4.2). While tls is non-nil, ReadToPlain and Write operate
// through it; FlushToSendBuf/FlushFromRecvBuf move bytes between the TLS
// layer and the raw network connection. While IsTLS() is true but no local
// TLS session exists, the channel is in passthrough mode: raw TLS records
// are only inspected for the fatal-Alert auto-downgrade rule, never
// decrypted.
type Channel struct {
	mu sync.Mutex

	conn net.Conn

	recvBuf bytes.Buffer // plaintext, or raw bytes in passthrough mode
	sendBuf bytes.Buffer

	tlsConn    *tls.Conn
	isTLSLayer bool
	closed     bool
}

// New wraps conn in a fresh plaintext Channel.
func New(conn net.Conn) *Channel {
	return &Channel{conn: conn}
}

// IsTLS reports whether the channel is in TLS mode, either terminated
// locally (tlsConn != nil) or passthrough (isTLSLayer with no tlsConn).
func (c *Channel) IsTLS() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tlsConn != nil || c.isTLSLayer
}

// SetPassthrough marks the channel as carrying a TLS session the router
// does not terminate; subsequent reads are demultiplexed as raw TLS
// records rather than plaintext.
func (c *Channel) SetPassthrough(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isTLSLayer = v
}

// Conn returns the underlying net.Conn, e.g. for the Connector to hand off
// a freshly connected socket.
func (c *Channel) Conn() net.Conn {
	return c.conn
}

// Write appends buf to the plaintext send path: through the TLS session if
// one is active, otherwise directly to the network.
func (c *Channel) Write(buf []byte) (int, error) {
	c.mu.Lock()
	tc := c.tlsConn
	cn := c.conn
	c.mu.Unlock()

	if tc != nil {
		return tc.Write(buf)
	}
	return cn.Write(buf)
}

// ReadToPlain reads up to n bytes of plaintext, through the TLS session if
// active, otherwise directly off the network.
func (c *Channel) ReadToPlain(n int) ([]byte, error) {
	c.mu.Lock()
	tc := c.tlsConn
	cn := c.conn
	c.mu.Unlock()

	buf := make([]byte, n)
	var (
		rn  int
		err error
	)
	if tc != nil {
		rn, err = tc.Read(buf)
	} else {
		rn, err = cn.Read(buf)
	}
	if err != nil && rn == 0 {
		return nil, err
	}
	return buf[:rn], err
}

// FlushToSendBuf drains the channel's internal send buffer to the network.
// With a terminated TLS session, writes already go straight through
// tls.Conn, so this is a no-op in that mode; it exists for the passthrough
// buffering path.
func (c *Channel) FlushToSendBuf() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendBuf.Len() == 0 {
		return nil
	}
	_, err := c.conn.Write(c.sendBuf.Bytes())
	c.sendBuf.Reset()
	return err
}

// FlushFromRecvBuf returns and clears any buffered bytes not yet consumed
// by ReadToPlain (used by the passthrough record demultiplexer to retain
// a partial record across reads).
func (c *Channel) FlushFromRecvBuf() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := append([]byte(nil), c.recvBuf.Bytes()...)
	c.recvBuf.Reset()
	return b
}

// TLSAccept drives a server-side TLS handshake using cfg, terminating TLS
// locally for this channel.
func (c *Channel) TLSAccept(cfg certificates.TLSConfig, serverName string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	tc := tls.Server(conn, cfg.TLS(serverName))
	if err := tc.Handshake(); err != nil {
		return ErrorTLSHandshake.Error(err)
	}

	c.mu.Lock()
	c.tlsConn = tc
	c.isTLSLayer = true
	c.mu.Unlock()
	return nil
}

// TLSConnect drives a client-side TLS handshake against the already
// connected backend socket.
func (c *Channel) TLSConnect(cfg certificates.TLSConfig, serverName string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	tc := tls.Client(conn, cfg.TLS(serverName))
	if err := tc.Handshake(); err != nil {
		return ErrorTLSHandshake.Error(err)
	}

	c.mu.Lock()
	c.tlsConn = tc
	c.isTLSLayer = true
	c.mu.Unlock()
	return nil
}

// TLSShutdown sends a TLS close-notify if a local session is active; a
// no-op in passthrough mode or on a plaintext channel.
func (c *Channel) TLSShutdown() error {
	c.mu.Lock()
	tc := c.tlsConn
	c.mu.Unlock()

	if tc == nil {
		return nil
	}
	return tc.Close()
}

// Close tears down the underlying network connection. Idempotent.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// DemuxTLSRecord decodes one raw TLS record from buf in passthrough mode
// and, per §4.2, reports whether observing it must downgrade both sides
// back to non-TLS (a fatal Alert record). Returns the record, bytes
// consumed, whether to downgrade, and an error (ErrWantMore on a partial
// record).
func (c *Channel) DemuxTLSRecord(buf []byte) (TLSRecord, int, bool, error) {
	rec, n, err := decodeTLSRecord(buf)
	if err != nil {
		return TLSRecord{}, 0, false, err
	}
	if rec.IsFatalAlert() {
		c.mu.Lock()
		c.isTLSLayer = false
		c.mu.Unlock()
		return rec, n, true, nil
	}
	return rec, n, false, nil
}
