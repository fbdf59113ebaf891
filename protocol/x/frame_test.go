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
	"bytes"
	"testing"

	"github.com/nabbar/dbrouter/protocol/x/messages"
)

func TestXFrameRoundTrip(t *testing.T) {
	m := &messages.AuthenticateStart{MechName: "MYSQL41", InitialResponse: []byte{1, 2, 3}}
	payload, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	wire := Encode(messages.TypeSessAuthenticateStart, payload)
	f, n, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != len(wire) {
		t.Fatalf("consumed %d, want %d", n, len(wire))
	}
	if f.MsgType != messages.TypeSessAuthenticateStart {
		t.Fatalf("MsgType = %v", f.MsgType)
	}

	got, recognized, err := DecodeMessage(f)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if !recognized {
		t.Fatalf("expected AuthenticateStart to be recognized")
	}
	as, ok := got.(*messages.AuthenticateStart)
	if !ok {
		t.Fatalf("got %T", got)
	}
	if as.MechName != "MYSQL41" || !bytes.Equal(as.InitialResponse, []byte{1, 2, 3}) {
		t.Fatalf("unexpected roundtrip: %+v", as)
	}
}

func TestXUnrecognizedForwardedOpaque(t *testing.T) {
	wire := Encode(messages.TypeSQLStmtExecute, []byte("opaque-protobuf-bytes"))
	f, _, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	_, recognized, err := DecodeMessage(f)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if recognized {
		t.Fatalf("StmtExecute must not be recognized; router only forwards it")
	}
}

func TestXWantMore(t *testing.T) {
	_, _, err := Decode([]byte{10, 0, 0, 0})
	if !IsWantMore(err) {
		t.Fatalf("expected ErrWantMore")
	}
}

func TestXHasFrameHeaderAndMsgPrefix(t *testing.T) {
	if HasFrameHeader([]byte{1, 2, 3}) {
		t.Fatalf("3 bytes should not satisfy HasFrameHeader")
	}
	if !HasMsgPrefix([]byte{1, 2, 3, 4, 5}) {
		t.Fatalf("5 bytes should satisfy HasMsgPrefix")
	}
}

func TestFrameInfoDone(t *testing.T) {
	fi := FrameInfo{TotalFrameSize: 10, Forwarded: 9}
	if fi.Done() {
		t.Fatalf("9/10 should not be done")
	}
	fi.Forwarded = 10
	if !fi.Done() {
		t.Fatalf("10/10 should be done")
	}
}

func TestCapabilitiesRoundTrip(t *testing.T) {
	m := &messages.CapabilitiesSet{Capabilities: []messages.Capability{
		{Name: "tls", Value: []byte{1}},
	}}
	b, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := &messages.CapabilitiesSet{}
	if err := got.Unmarshal(b); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Capabilities) != 1 || got.Capabilities[0].Name != "tls" {
		t.Fatalf("unexpected capabilities: %+v", got.Capabilities)
	}
}

func TestErrorMessageRoundTrip(t *testing.T) {
	m := &messages.Error{Severity: 0, Code: 5001, SQLState: "HY000", Msg: "Capability prepare failed for 'tls'"}
	b, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := &messages.Error{}
	if err := got.Unmarshal(b); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Code != 5001 || got.SQLState != "HY000" {
		t.Fatalf("unexpected: %+v", got)
	}
}
