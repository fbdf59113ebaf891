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

package x

import (
	"github.com/nabbar/dbrouter/protocol/x/messages"
)

// FrameHeaderSize is the 4-byte little-endian length prefix. The length
// counts the message-type byte plus the payload, per §4.1.
const FrameHeaderSize = 4

// FrameHeader is the decoded length prefix of an X protocol frame.
type FrameHeader struct {
	PayloadLen uint32 // includes the 1-byte msg_type
}

// FrameInfo tracks partial-forward progress for one X frame as bytes
// stream in. Forwarded must never exceed TotalFrameSize; equality means
// the frame is complete.
type FrameInfo struct {
	TotalFrameSize int
	Forwarded      int
}

// Done reports whether the frame has been fully forwarded.
func (f FrameInfo) Done() bool {
	return f.Forwarded >= f.TotalFrameSize
}

// Frame is one fully decoded X protocol frame.
type Frame struct {
	Header  FrameHeader
	MsgType messages.Type
	Payload []byte // excludes the msg_type byte
}

type wantMoreErr struct{}

func (wantMoreErr) Error() string { return "x: want more data" }

// ErrWantMore is the sentinel decode error signaling a partial read.
var ErrWantMore error = wantMoreErr{}

// IsWantMore reports whether err is the partial-read sentinel.
func IsWantMore(err error) bool {
	_, ok := err.(wantMoreErr)
	return ok
}

// HasFrameHeader reports whether buf contains the full 4-byte length
// prefix.
func HasFrameHeader(buf []byte) bool {
	return len(buf) >= FrameHeaderSize
}

// HasMsgPrefix reports whether buf contains the length prefix plus the
// message-type byte.
func HasMsgPrefix(buf []byte) bool {
	return len(buf) >= FrameHeaderSize+1
}

// DecodeHeader parses the 4-byte length prefix.
func DecodeHeader(buf []byte) (FrameHeader, error) {
	if !HasFrameHeader(buf) {
		return FrameHeader{}, ErrWantMore
	}
	v := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	return FrameHeader{PayloadLen: v}, nil
}

// EncodeHeader writes h's wire form into a fresh 4-byte slice.
func EncodeHeader(h FrameHeader) []byte {
	out := make([]byte, FrameHeaderSize)
	out[0] = byte(h.PayloadLen)
	out[1] = byte(h.PayloadLen >> 8)
	out[2] = byte(h.PayloadLen >> 16)
	out[3] = byte(h.PayloadLen >> 24)
	return out
}

// Decode parses one full frame (header + msg_type + payload) from buf,
// returning the frame and the number of bytes consumed.
func Decode(buf []byte) (Frame, int, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return Frame{}, 0, err
	}

	total := FrameHeaderSize + int(h.PayloadLen)
	if len(buf) < total {
		return Frame{}, 0, ErrWantMore
	}
	if h.PayloadLen < 1 {
		return Frame{}, 0, ErrorBadMessage.Error()
	}

	mt := messages.Type(buf[FrameHeaderSize])
	payload := make([]byte, h.PayloadLen-1)
	copy(payload, buf[FrameHeaderSize+1:total])

	return Frame{Header: h, MsgType: mt, Payload: payload}, total, nil
}

// Encode serializes a message-type byte plus payload into a full wire
// frame.
func Encode(mt messages.Type, payload []byte) []byte {
	h := FrameHeader{PayloadLen: uint32(len(payload) + 1)}
	out := make([]byte, 0, FrameHeaderSize+1+len(payload))
	out = append(out, EncodeHeader(h)...)
	out = append(out, byte(mt))
	out = append(out, payload...)
	return out
}

// DecodeMessage decodes the recognized subset into its typed Message; for
// an unrecognized type it returns (nil, false, nil) so the caller knows to
// forward the frame opaquely instead of treating it as an error.
func DecodeMessage(f Frame) (messages.Message, bool, error) {
	if !messages.Recognized(f.MsgType) {
		return nil, false, nil
	}
	m := messages.New(f.MsgType)
	if m == nil {
		return nil, false, nil
	}
	if err := m.Unmarshal(f.Payload); err != nil {
		return nil, true, err
	}
	return m, true, nil
}
