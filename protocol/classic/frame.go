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

package classic

// FrameHeaderSize is the fixed 3-byte length + 1-byte sequence header.
const FrameHeaderSize = 4

// FrameHeader is the 4-byte prefix of every classic protocol frame:
// a 24-bit little-endian payload length followed by a 1-byte sequence id.
type FrameHeader struct {
	PayloadLen uint32 // only the low 24 bits are meaningful
	SeqID      byte
}

// Frame is a fully decoded classic protocol frame.
type Frame struct {
	Header  FrameHeader
	Payload []byte
}

type wantMoreErr struct{}

func (wantMoreErr) Error() string { return "classic: want more data" }

// ErrWantMore is the sentinel decode error signaling a partial read.
var ErrWantMore error = wantMoreErr{}

// IsWantMore reports whether err is the partial-read sentinel.
func IsWantMore(err error) bool {
	_, ok := err.(wantMoreErr)
	return ok
}

// HasFrameHeader reports whether buf contains at least a full FrameHeader.
func HasFrameHeader(buf []byte) bool {
	return len(buf) >= FrameHeaderSize
}

// HasMsgPrefix reports whether buf contains a full frame header plus the
// first payload byte (the command/classifier byte).
func HasMsgPrefix(buf []byte) bool {
	return len(buf) >= FrameHeaderSize+1
}

// DecodeHeader parses the 4-byte header without validating the payload is
// present.
func DecodeHeader(buf []byte) (FrameHeader, error) {
	if !HasFrameHeader(buf) {
		return FrameHeader{}, ErrWantMore
	}
	return FrameHeader{
		PayloadLen: uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16,
		SeqID:      buf[3],
	}, nil
}

// EncodeHeader writes h's wire form into a fresh 4-byte slice.
func EncodeHeader(h FrameHeader) []byte {
	out := make([]byte, FrameHeaderSize)
	out[0] = byte(h.PayloadLen)
	out[1] = byte(h.PayloadLen >> 8)
	out[2] = byte(h.PayloadLen >> 16)
	out[3] = h.SeqID
	return out
}

// Decode parses one full frame (header + payload) out of buf, returning the
// frame and the number of bytes consumed. If buf does not yet hold a
// complete frame it returns ErrWantMore and the caller should read more.
func Decode(buf []byte) (Frame, int, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return Frame{}, 0, err
	}

	total := FrameHeaderSize + int(h.PayloadLen)
	if len(buf) < total {
		return Frame{}, 0, ErrWantMore
	}

	payload := make([]byte, h.PayloadLen)
	copy(payload, buf[FrameHeaderSize:total])

	return Frame{Header: h, Payload: payload}, total, nil
}

// Encode serializes a frame to its wire bytes.
func Encode(seqID byte, payload []byte) []byte {
	h := FrameHeader{PayloadLen: uint32(len(payload)), SeqID: seqID}
	out := make([]byte, 0, FrameHeaderSize+len(payload))
	out = append(out, EncodeHeader(h)...)
	out = append(out, payload...)
	return out
}

// SeqTracker enforces the handshake sequence-id rule from the routing
// state machine: every observed frame must satisfy observed == previous+1
// until the handshake is considered done, at which point tracking disables
// permanently (it is never re-armed, even across ChangeUser).
type SeqTracker struct {
	prev          byte
	started       bool
	handshakeDone bool
}

// NewSeqTracker returns a tracker ready to observe the first frame of a
// fresh handshake (expected seq_id 0).
func NewSeqTracker() *SeqTracker {
	return &SeqTracker{}
}

// Done reports whether sequence tracking has been permanently disabled.
func (t *SeqTracker) Done() bool {
	return t.handshakeDone
}

// ForceDone permanently disables sequence tracking without requiring
// Observe(2): used when a client's SSL request makes the renegotiated
// packet numbering opaque to the router (§4.5's seq-1-as-seq-2 case).
func (t *SeqTracker) ForceDone() {
	t.handshakeDone = true
}

// Observe validates seq against the running sequence. Once the handshake
// is done, Observe always succeeds and performs no further checks.
func (t *SeqTracker) Observe(seq byte) error {
	if t.handshakeDone {
		return nil
	}

	if !t.started {
		t.started = true
		t.prev = seq
	} else {
		if seq != t.prev+1 {
			return ErrorBadSequence.Error()
		}
		t.prev = seq
	}

	if seq == 2 {
		t.handshakeDone = true
	}

	return nil
}
