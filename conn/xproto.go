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
	"github.com/nabbar/dbrouter/protocol/x"
	"github.com/nabbar/dbrouter/protocol/x/messages"
	"github.com/nabbar/dbrouter/routecontext"
)

// terminal server message types: seeing one ends the current
// forward-then-wait loop and returns control to ClientRecvCmd.
func isTerminalServerType(t messages.Type) bool {
	switch t {
	case messages.TypeServerOk, messages.TypeResultsetStmtExecuteOk, messages.TypeServerError,
		messages.TypeSessAuthenticateOk:
		return true
	default:
		return false
	}
}

// non-terminal server message types the router expects and keeps looping
// on without error, per §4.5's ServerRecv*Response dispatch.
func isExpectedNonTerminalServerType(t messages.Type) bool {
	switch t {
	case messages.TypeNotice, messages.TypeResultsetColumnMetaData, messages.TypeResultsetRow,
		messages.TypeResultsetFetchDone, messages.TypeResultsetFetchSuspended,
		messages.TypeResultsetFetchDoneMoreResults, messages.TypeSessAuthenticateContinue2:
		return true
	default:
		return false
	}
}

func readXFrame(ch *channel.Channel, acc *[]byte) (x.Frame, error) {
	for {
		if x.HasFrameHeader(*acc) {
			f, n, err := x.Decode(*acc)
			if err == nil {
				*acc = append([]byte(nil), (*acc)[n:]...)
				return f, nil
			}
			if !x.IsWantMore(err) {
				return x.Frame{}, err
			}
		}

		chunk, err := ch.ReadToPlain(4096)
		if len(chunk) > 0 {
			*acc = append(*acc, chunk...)
			continue
		}
		if err != nil {
			return x.Frame{}, err
		}
	}
}

func writeXFrame(ch *channel.Channel, mt messages.Type, payload []byte) error {
	_, err := ch.Write(x.Encode(mt, payload))
	return err
}

func forwardXFrame(dst *channel.Channel, f x.Frame) error {
	return writeXFrame(dst, f.MsgType, f.Payload)
}

// stepXClientRecvCmd is the X protocol flow's idle state: wait for the next
// client frame and dispatch on its message type, per §4.5.
func stepXClientRecvCmd(c *Conn) stepFunc {
	frame, err := readXFrame(c.client, &c.clientBuf)
	if err != nil {
		c.setErr(err)
		return nil
	}

	switch frame.MsgType {
	case messages.TypeClientCapabilitiesSet:
		return xHandleCapabilitiesSet(c, frame)
	case messages.TypeSessClose:
		if c.server != nil {
			_ = forwardXFrame(c.server, frame)
		}
		return nil
	default:
		if c.server == nil {
			// No backend yet: everything before Connect must be a
			// capability/auth exchange the router understands.
			if !messages.Recognized(frame.MsgType) {
				c.setErr(ErrorBadMessage.Error())
				return nil
			}
		}
		return xDispatchToServer(c, frame)
	}
}

// xHandleCapabilitiesSet implements the capability filtering rules: TLS is
// only advertised/accepted when the router terminates it locally, and a
// compression request is rejected with ErrorCompressionUnsupported, which
// ends the connection, since this router never negotiates it.
// A PASSTHROUGH route never inspects/filters the message at all — it is
// forwarded to the backend unchanged per §4.5's TLS negotiation matrix.
func xHandleCapabilitiesSet(c *Conn, frame x.Frame) stepFunc {
	opt := c.route.Options()
	if opt.SourceSSLMode == routecontext.TLSPassthrough {
		return xHandleCapabilitiesSetPassthrough(c, frame)
	}

	var set messages.CapabilitiesSet
	if err := set.Unmarshal(frame.Payload); err != nil {
		c.setErr(ErrorCapabilityPrepareFailed.Error(err))
		return nil
	}

	wantsTLS := false
	filtered := set.Capabilities[:0]
	for _, capItem := range set.Capabilities {
		switch capItem.Name {
		case "tls":
			wantsTLS = true
			continue
		case "compression":
			c.setErr(ErrorCompressionUnsupported.Error())
			return nil
		default:
			filtered = append(filtered, capItem)
		}
	}
	set.Capabilities = filtered

	if wantsTLS {
		if opt.SourceSSLMode == routecontext.TLSDisabled {
			c.setErr(ErrorTLSRequired.Error())
			return nil
		}
		if err := writeXFrame(c.client, messages.TypeServerOk, nil); err != nil {
			c.setErr(err)
			return nil
		}
		return stepXTLSAcceptInit
	}

	if opt.SourceSSLMode == routecontext.TLSRequired {
		c.setErr(ErrorTLSRequired.Error())
		return nil
	}

	if err := writeXFrame(c.client, messages.TypeServerOk, nil); err != nil {
		c.setErr(err)
		return nil
	}
	return stepXConnect
}

// xHandleCapabilitiesSetPassthrough implements the PASSTHROUGH row of
// §4.5's TLS negotiation matrix for the X protocol and the S6 scenario:
// the CapabilitiesSet frame is forwarded to the backend byte-for-byte,
// unfiltered. A non-tls CapabilitiesSet just rejoins the normal
// forward-then-wait response loop; a tls CapabilitiesSet additionally
// waits for the backend's Ok before both channels are marked passthrough
// and handed to ForwardTlsInit's record-aware relay.
func xHandleCapabilitiesSetPassthrough(c *Conn, frame x.Frame) stepFunc {
	wantsTLS := false
	var set messages.CapabilitiesSet
	if err := set.Unmarshal(frame.Payload); err == nil {
		for _, capItem := range set.Capabilities {
			if capItem.Name == "tls" {
				wantsTLS = true
				break
			}
		}
	}

	if c.server == nil {
		if err := c.connectBackend(c.runCtx); err != nil {
			c.setErr(err)
			return nil
		}
	}

	if err := forwardXFrame(c.server, frame); err != nil {
		c.setErr(err)
		return nil
	}

	if !wantsTLS {
		return stepXServerRecvResponse
	}

	resp, err := readXFrame(c.server, &c.serverBuf)
	if err != nil {
		c.setErr(err)
		return nil
	}
	if err := forwardXFrame(c.client, resp); err != nil {
		c.setErr(err)
		return nil
	}
	if resp.MsgType != messages.TypeServerOk {
		return stepXClientRecvCmd
	}

	c.client.SetPassthrough(true)
	c.server.SetPassthrough(true)
	return stepXForwardTLSInit
}

// stepXForwardTLSInit is §4.5's ForwardTlsInit/ForwardTlsClient→Server/
// ForwardTlsServer→Client for the X protocol: once both channels are
// marked passthrough, the rest of the connection is relayed at TLS-record
// granularity so a fatal Alert can still trigger channel.Channel.
// DemuxTLSRecord's auto-downgrade per §4.2 and Testable Property 5.
func stepXForwardTLSInit(c *Conn) stepFunc {
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

// stepXTLSAcceptInit terminates TLS on the client side following a
// successful CapabilitiesSet{tls} exchange.
func stepXTLSAcceptInit(c *Conn) stepFunc {
	cfg := c.tls.Client
	if cfg == nil {
		c.setErr(ErrorCapabilityPrepareFailed.Error())
		return nil
	}
	if err := c.client.TLSAccept(cfg, ""); err != nil {
		c.setErr(err)
		return nil
	}
	return stepXConnect
}

// stepXConnect drives §4.4 to obtain a backend socket, then negotiates the
// server-facing half of the TLS matrix before returning control to the
// per-command dispatch loop.
func stepXConnect(c *Conn) stepFunc {
	if err := c.connectBackend(c.runCtx); err != nil {
		c.setErr(err)
		return nil
	}

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

	return stepXClientRecvCmd
}

// xDispatchToServer forwards a client command to the backend and then
// loops on the server's replies (§4.5's ForwardClientToServer/
// ServerRecv*Response) until a terminal message type is observed.
func xDispatchToServer(c *Conn, frame x.Frame) stepFunc {
	if c.server == nil {
		c.setErr(ErrorConnectFailed.Error())
		return nil
	}
	if err := forwardXFrame(c.server, frame); err != nil {
		c.setErr(err)
		return nil
	}
	return stepXServerRecvResponse
}

func stepXServerRecvResponse(c *Conn) stepFunc {
	frame, err := readXFrame(c.server, &c.serverBuf)
	if err != nil {
		c.setErr(err)
		return nil
	}
	if err := forwardXFrame(c.client, frame); err != nil {
		c.setErr(err)
		return nil
	}

	switch {
	case isTerminalServerType(frame.MsgType):
		return stepXClientRecvCmd
	case isExpectedNonTerminalServerType(frame.MsgType):
		return stepXServerRecvResponse
	case !messages.Recognized(frame.MsgType):
		// The frame has already been forwarded to the client; any type
		// outside both the terminal and non-terminal expected sets, whether
		// recognized or not, ends the connection as a protocol violation.
		c.setErr(ErrorUnexpectedMessage.Error())
		return nil
	default:
		c.setErr(ErrorUnexpectedMessage.Error())
		return nil
	}
}
