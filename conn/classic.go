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
	"sync"

	"github.com/nabbar/dbrouter/channel"
	"github.com/nabbar/dbrouter/protocol/classic"
	"github.com/nabbar/dbrouter/routecontext"
)

// Capability bits this router cares about; everything else passes through
// the handshake packets untouched.
const (
	capSSL        uint32 = 0x00000800
	capPluginAuth uint32 = 0x00080000
)

// greeting is the decoded form of the server's initial handshake packet
// (protocol version 10), kept only long enough to flip the CLIENT_SSL
// capability bit before re-encoding and forwarding it to the client.
type greeting struct {
	protocolVersion   byte
	serverVersion     string
	threadID          uint32
	authPluginData1   []byte
	capabilities      uint32
	charset           byte
	status            uint16
	authPluginDataLen byte
	authPluginData2   []byte
	authPluginName    string
}

func decodeGreeting(payload []byte) (*greeting, error) {
	if len(payload) < 1 {
		return nil, ErrorBadMessage.Error()
	}

	g := &greeting{protocolVersion: payload[0]}
	i := 1

	sv, n, err := classic.NullTerminatedString(payload[i:])
	if err != nil {
		return nil, err
	}
	g.serverVersion = sv
	i += n

	if len(payload) < i+4+8+1+2+1+2+2+1+10 {
		return nil, ErrorBadMessage.Error()
	}

	tid, err := classic.DecodeFixedInt(payload[i:], 4)
	if err != nil {
		return nil, err
	}
	g.threadID = uint32(tid)
	i += 4

	g.authPluginData1 = append([]byte(nil), payload[i:i+8]...)
	i += 8
	i++ // filler

	capLower, err := classic.DecodeFixedInt(payload[i:], 2)
	if err != nil {
		return nil, err
	}
	i += 2

	g.charset = payload[i]
	i++

	status, err := classic.DecodeFixedInt(payload[i:], 2)
	if err != nil {
		return nil, err
	}
	g.status = uint16(status)
	i += 2

	capUpper, err := classic.DecodeFixedInt(payload[i:], 2)
	if err != nil {
		return nil, err
	}
	i += 2

	g.authPluginDataLen = payload[i]
	i++
	i += 10 // reserved

	g.capabilities = uint32(capLower) | uint32(capUpper)<<16

	remLen := int(g.authPluginDataLen) - 8
	if remLen < 13 {
		remLen = 13
	}
	if len(payload) < i+remLen {
		return nil, ErrorBadMessage.Error()
	}
	g.authPluginData2 = append([]byte(nil), payload[i:i+remLen]...)
	i += remLen

	if g.capabilities&capPluginAuth != 0 && i < len(payload) {
		if name, _, err := classic.NullTerminatedString(payload[i:]); err == nil {
			g.authPluginName = name
		}
	}

	return g, nil
}

func (g *greeting) encode() []byte {
	out := make([]byte, 0, 64+len(g.serverVersion)+len(g.authPluginName))
	out = append(out, g.protocolVersion)
	out = append(out, classic.EncodeNullTerminatedString(g.serverVersion)...)
	out = append(out, classic.FixedInt(uint64(g.threadID), 4)...)
	out = append(out, g.authPluginData1...)
	out = append(out, 0)
	out = append(out, classic.FixedInt(uint64(g.capabilities&0xffff), 2)...)
	out = append(out, g.charset)
	out = append(out, classic.FixedInt(uint64(g.status), 2)...)
	out = append(out, classic.FixedInt(uint64(g.capabilities>>16), 2)...)
	out = append(out, g.authPluginDataLen)
	out = append(out, make([]byte, 10)...)
	out = append(out, g.authPluginData2...)
	if g.authPluginName != "" {
		out = append(out, classic.EncodeNullTerminatedString(g.authPluginName)...)
	}
	return out
}

func decodeCapabilityFlagsPrefix(payload []byte) (uint32, error) {
	v, err := classic.DecodeFixedInt(payload, 4)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func stripCapabilitySSL(payload []byte) ([]byte, error) {
	flags, err := decodeCapabilityFlagsPrefix(payload)
	if err != nil {
		return nil, err
	}
	flags &^= capSSL
	out := append([]byte(nil), payload...)
	copy(out[0:4], classic.FixedInt(uint64(flags), 4))
	return out, nil
}

// readClassicFrame pulls bytes from ch into *acc until a full frame can be
// decoded, then returns it with the leftover bytes kept in *acc for the
// next call.
func readClassicFrame(ch *channel.Channel, acc *[]byte) (classic.Frame, error) {
	for {
		if classic.HasFrameHeader(*acc) {
			f, n, err := classic.Decode(*acc)
			if err == nil {
				*acc = append([]byte(nil), (*acc)[n:]...)
				return f, nil
			}
			if !classic.IsWantMore(err) {
				return classic.Frame{}, err
			}
		}

		chunk, err := ch.ReadToPlain(4096)
		if len(chunk) > 0 {
			*acc = append(*acc, chunk...)
			continue
		}
		if err != nil {
			return classic.Frame{}, err
		}
	}
}

func writeClassicFrame(ch *channel.Channel, seq byte, payload []byte) error {
	_, err := ch.Write(classic.Encode(seq, payload))
	return err
}

// errCodeSecureTransportRequired is MySQL's own ER_SECURE_TRANSPORT_REQUIRED
// (SQLSTATE HY000), reused here for the §4.5 "client attempts to
// authenticate without TLS on a REQUIRED route" fatal.
const errCodeSecureTransportRequired uint16 = 3159

// writeClassicError sends a minimal ERR_Packet (payload offset 0 = 0xFF,
// §4.1's response classifier) so a client that understands the classic
// protocol sees a proper fatal error instead of a bare connection close.
func writeClassicError(ch *channel.Channel, seq byte, code uint16, sqlState, msg string) error {
	payload := make([]byte, 0, 4+len(sqlState)+len(msg))
	payload = append(payload, byte(classic.RespErr))
	payload = append(payload, classic.FixedInt(uint64(code), 2)...)
	payload = append(payload, '#')
	payload = append(payload, sqlState...)
	payload = append(payload, msg...)
	return writeClassicFrame(ch, seq, payload)
}

// stepClassicHandshake is the classic protocol flow's entry point: it
// connects the backend, then either forwards its real greeting unchanged
// (passthrough) or forwards it with the CLIENT_SSL bit adjusted to the
// route's negotiated policy (§4.5).
func stepClassicHandshake(c *Conn) stepFunc {
	if err := c.connectBackend(c.runCtx); err != nil {
		c.setErr(err)
		return nil
	}

	if c.route.Options().SourceSSLMode == routecontext.TLSPassthrough {
		return stepClassicForwardGreetingRaw
	}
	return stepClassicGreeting
}

func stepClassicForwardGreetingRaw(c *Conn) stepFunc {
	frame, err := readClassicFrame(c.server, &c.serverBuf)
	if err != nil {
		c.setErr(err)
		return nil
	}
	if err := c.seq.Observe(frame.Header.SeqID); err != nil {
		c.setErr(err)
		return nil
	}
	if err := writeClassicFrame(c.client, frame.Header.SeqID, frame.Payload); err != nil {
		c.setErr(err)
		return nil
	}
	return stepClassicClientAuth
}

func stepClassicGreeting(c *Conn) stepFunc {
	frame, err := readClassicFrame(c.server, &c.serverBuf)
	if err != nil {
		c.setErr(err)
		return nil
	}
	if err := c.seq.Observe(frame.Header.SeqID); err != nil {
		c.setErr(err)
		return nil
	}

	g, err := decodeGreeting(frame.Payload)
	if err != nil {
		// Not a protocol-10 greeting we understand (e.g. the backend sent
		// an immediate error packet instead): forward unchanged.
		if werr := writeClassicFrame(c.client, frame.Header.SeqID, frame.Payload); werr != nil {
			c.setErr(werr)
			return nil
		}
		return stepClassicRelay
	}

	switch c.route.Options().SourceSSLMode {
	case routecontext.TLSRequired, routecontext.TLSPreferred:
		g.capabilities |= capSSL
	case routecontext.TLSDisabled:
		g.capabilities &^= capSSL
	}

	if err := writeClassicFrame(c.client, frame.Header.SeqID, g.encode()); err != nil {
		c.setErr(err)
		return nil
	}
	return stepClassicClientAuth
}

// stepClassicClientAuth forwards the client's handshake response. If the
// client set CLIENT_SSL, the remainder of the packet is an SSLRequest and
// everything past it is opaque to the router once TLS comes up, so the
// sequence tracker is force-disabled per §4.5's seq-1-as-seq-2 rule. A
// REQUIRED route rejects a client that skips the SSLRequest outright,
// before anything is forwarded to the backend.
func stepClassicClientAuth(c *Conn) stepFunc {
	frame, err := readClassicFrame(c.client, &c.clientBuf)
	if err != nil {
		c.setErr(err)
		return nil
	}
	if err := c.seq.Observe(frame.Header.SeqID); err != nil {
		c.setErr(err)
		return nil
	}

	opt := c.route.Options()
	sslRequested := false
	if flags, ferr := decodeCapabilityFlagsPrefix(frame.Payload); ferr == nil {
		sslRequested = flags&capSSL != 0
	}

	if opt.SourceSSLMode == routecontext.TLSRequired && !sslRequested {
		_ = writeClassicError(c.client, frame.Header.SeqID+1, errCodeSecureTransportRequired, "HY000", ErrorTLSRequired.Error().Error())
		c.setErr(ErrorTLSRequired.Error())
		return nil
	}

	payload := frame.Payload
	if opt.SourceSSLMode != routecontext.TLSPassthrough {
		if out, serr := stripCapabilitySSL(payload); serr == nil {
			payload = out
		}
	}

	if err := writeClassicFrame(c.server, frame.Header.SeqID, payload); err != nil {
		c.setErr(err)
		return nil
	}

	switch {
	case sslRequested && opt.SourceSSLMode == routecontext.TLSPassthrough:
		c.seq.ForceDone()
		return stepClassicForwardTLSInit
	case sslRequested && opt.SourceSSLMode != routecontext.TLSDisabled:
		c.seq.ForceDone()
		return stepClassicClientTLS
	}

	return stepClassicServerAuthResult
}

// stepClassicClientTLS terminates TLS on the client-facing side following
// an SSLRequest.
func stepClassicClientTLS(c *Conn) stepFunc {
	cfg := c.tls.Client
	if cfg == nil {
		c.setErr(ErrorCapabilityPrepareFailed.Error())
		return nil
	}
	if err := c.client.TLSAccept(cfg, ""); err != nil {
		c.setErr(err)
		return nil
	}
	return stepClassicServerTLSIfNeeded
}

// stepClassicServerTLSIfNeeded applies the dest_ssl_mode half of the TLS
// negotiation matrix once the client side's TLS state is known.
func stepClassicServerTLSIfNeeded(c *Conn) stepFunc {
	opt := c.route.Options()

	needTLS := false
	switch opt.DestSSLMode {
	case routecontext.TLSRequired, routecontext.TLSPreferred:
		needTLS = true
	case routecontext.TLSAsClient:
		needTLS = c.client.IsTLS()
	}

	if needTLS {
		if cfg := c.tls.Server; cfg != nil {
			if err := c.server.TLSConnect(cfg, ""); err != nil {
				c.setErr(err)
				return nil
			}
		}
	}

	return stepClassicRelay
}

// stepClassicForwardTLSInit is §4.5's ForwardTlsInit for the classic
// protocol: a PASSTHROUGH route never terminates the client's SSLRequest,
// so both sides are marked passthrough and the remainder of the connection
// is relayed at TLS-record granularity (ForwardTlsClient→Server /
// ForwardTlsServer→Client) instead of blind byte copy, so a fatal Alert can
// still trigger channel.Channel.DemuxTLSRecord's auto-downgrade per §4.2
// and Testable Property 5.
func stepClassicForwardTLSInit(c *Conn) stepFunc {
	c.client.SetPassthrough(true)
	c.server.SetPassthrough(true)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = forwardTLSPassthrough(c.server, c.client, c.clientBuf)
	}()
	go func() {
		defer wg.Done()
		_, _ = forwardTLSPassthrough(c.client, c.server, c.serverBuf)
	}()
	wg.Wait()
	return nil
}

// stepClassicServerAuthResult forwards the backend's reply to the client's
// auth packet. A 0xFF (Error) reply is forwarded unchanged and ends the
// handshake with no retry, per §4.5; anything that isn't a recognized
// terminal classifier (e.g. AuthSwitchRequest/AuthMoreData) loops back for
// another client/server exchange instead.
func stepClassicServerAuthResult(c *Conn) stepFunc {
	frame, err := readClassicFrame(c.server, &c.serverBuf)
	if err != nil {
		c.setErr(err)
		return nil
	}
	if err := c.seq.Observe(frame.Header.SeqID); err != nil {
		c.setErr(err)
		return nil
	}
	if err := writeClassicFrame(c.client, frame.Header.SeqID, frame.Payload); err != nil {
		c.setErr(err)
		return nil
	}

	if cls, ok := classic.ClassifyResponse(frame.Payload); ok {
		switch cls {
		case classic.RespErr:
			c.seq.ForceDone()
			return stepClassicRelay
		case classic.RespOk:
			return stepClassicRelay
		}
	}

	if c.seq.Done() {
		return stepClassicRelay
	}

	return stepClassicAuthContinueClient
}

func stepClassicAuthContinueClient(c *Conn) stepFunc {
	frame, err := readClassicFrame(c.client, &c.clientBuf)
	if err != nil {
		c.setErr(err)
		return nil
	}
	if err := c.seq.Observe(frame.Header.SeqID); err != nil {
		c.setErr(err)
		return nil
	}
	if err := writeClassicFrame(c.server, frame.Header.SeqID, frame.Payload); err != nil {
		c.setErr(err)
		return nil
	}
	return stepClassicServerAuthResult
}

// stepClassicRelay is the terminal state for an established session: raw
// bytes flow in both directions, framing-unaware, until either side closes.
func stepClassicRelay(c *Conn) stepFunc {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = copyChannel(c.server, c.client, c.clientBuf)
	}()
	go func() {
		defer wg.Done()
		_, _ = copyChannel(c.client, c.server, c.serverBuf)
	}()
	wg.Wait()
	return nil
}

// copyChannel relays bytes from src to dst, first flushing any bytes
// already accumulated in carry (leftover from frame-aware reads earlier in
// the handshake), until src returns an error (typically EOF on close).
func copyChannel(dst, src *channel.Channel, carry []byte) (int64, error) {
	var total int64

	if len(carry) > 0 {
		if _, err := dst.Write(carry); err != nil {
			return total, err
		}
		total += int64(len(carry))
	}

	for {
		chunk, err := src.ReadToPlain(32 * 1024)
		if len(chunk) > 0 {
			if _, werr := dst.Write(chunk); werr != nil {
				return total, werr
			}
			total += int64(len(chunk))
		}
		if err != nil {
			return total, err
		}
	}
}

// forwardTLSPassthrough relays bytes from src to dst one TLS record at a
// time via channel.Channel.DemuxTLSRecord instead of blind copy, so a
// fatal Alert record is observed before its bytes are forwarded. On the
// fatal-Alert auto-downgrade (§4.2), both channels are flipped back to
// non-TLS and the rest of the connection falls through to a plain
// copyChannel relay, carrying forward whatever bytes were already
// buffered but not yet classified as a complete record.
func forwardTLSPassthrough(dst, src *channel.Channel, carry []byte) (int64, error) {
	var total int64
	buf := append([]byte(nil), carry...)

	for {
		for {
			_, n, downgrade, err := src.DemuxTLSRecord(buf)
			if err != nil {
				if channel.IsWantMore(err) {
					break
				}
				return total, err
			}

			record := buf[:n]
			buf = buf[n:]
			if _, werr := dst.Write(record); werr != nil {
				return total, werr
			}
			total += int64(n)

			if downgrade {
				dst.SetPassthrough(false)
				n2, err2 := copyChannel(dst, src, buf)
				return total + n2, err2
			}
		}

		chunk, err := src.ReadToPlain(4096)
		if len(chunk) > 0 {
			buf = append(buf, chunk...)
			continue
		}
		if err != nil {
			if len(buf) > 0 {
				if _, werr := dst.Write(buf); werr != nil {
					return total, werr
				}
				total += int64(len(buf))
			}
			return total, err
		}
	}
}
