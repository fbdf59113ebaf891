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

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		seq     byte
		payload []byte
	}{
		{"ping", 0, []byte{byte(ComPing)}},
		{"query", 3, append([]byte{byte(ComQuery)}, []byte("select 1")...)},
		{"empty", 7, []byte{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wire := Encode(tc.seq, tc.payload)
			f, n, err := Decode(wire)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if n != len(wire) {
				t.Fatalf("consumed %d, want %d", n, len(wire))
			}
			if f.Header.SeqID != tc.seq {
				t.Fatalf("seq = %d, want %d", f.Header.SeqID, tc.seq)
			}
			if !bytes.Equal(f.Payload, tc.payload) {
				t.Fatalf("payload = %x, want %x", f.Payload, tc.payload)
			}
		})
	}
}

// S1 from the testable-properties scenarios: encode(seq=0, Ping).
func TestFrameEncodePingLiteral(t *testing.T) {
	wire := Encode(0, []byte{byte(ComPing)})
	want := []byte{0x01, 0x00, 0x00, 0x00, 0x0e}
	if !bytes.Equal(wire, want) {
		t.Fatalf("wire = % x, want % x", wire, want)
	}

	f, n, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != 5 || f.Header.SeqID != 0 || len(f.Payload) != 1 || f.Payload[0] != byte(ComPing) {
		t.Fatalf("unexpected decode result: %+v n=%d", f, n)
	}
}

func TestFixedIntWidths(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 8} {
		if got := len(FixedInt(1, n)); got != n {
			t.Fatalf("FixedInt width = %d, want %d", got, n)
		}
	}
}

func TestDecodeWantMore(t *testing.T) {
	_, _, err := Decode([]byte{0x05, 0x00, 0x00, 0x00})
	if !IsWantMore(err) {
		t.Fatalf("expected ErrWantMore, got %v", err)
	}
}

func TestSeqTracker(t *testing.T) {
	tr := NewSeqTracker()
	for _, s := range []byte{0, 1, 2} {
		if err := tr.Observe(s); err != nil {
			t.Fatalf("Observe(%d): %v", s, err)
		}
	}
	if !tr.Done() {
		t.Fatalf("expected handshake done after seq 2")
	}
	// Once done, tracking never re-validates, even on an out-of-order seq.
	if err := tr.Observe(200); err != nil {
		t.Fatalf("Observe after done should never fail: %v", err)
	}
}

func TestSeqTrackerRejectsSkip(t *testing.T) {
	tr := NewSeqTracker()
	if err := tr.Observe(0); err != nil {
		t.Fatalf("Observe(0): %v", err)
	}
	if err := tr.Observe(1); err != nil {
		t.Fatalf("Observe(1): %v", err)
	}
	if err := tr.Observe(3); err == nil {
		t.Fatalf("expected error skipping seq 2 after seq 1")
	}
}

func TestLenIntWidths(t *testing.T) {
	cases := []struct {
		v    uint64
		want int
	}{
		{1, 1},
		{250, 1},
		{251, 3},
		{1 << 16, 4},
		{1 << 24, 9},
	}
	for _, tc := range cases {
		if got := EncodedLenIntSize(tc.v); got != tc.want {
			t.Fatalf("EncodedLenIntSize(%d) = %d, want %d", tc.v, got, tc.want)
		}
		enc := EncodeLenInt(tc.v)
		if len(enc) != tc.want {
			t.Fatalf("len(EncodeLenInt(%d)) = %d, want %d", tc.v, len(enc), tc.want)
		}
		got, n, err := DecodeLenInt(enc)
		if err != nil {
			t.Fatalf("DecodeLenInt: %v", err)
		}
		if n != tc.want || got != tc.v {
			t.Fatalf("DecodeLenInt(%x) = (%d, %d), want (%d, %d)", enc, got, n, tc.v, tc.want)
		}
	}
}

func TestLenIntNullSentinel(t *testing.T) {
	enc := EncodeLenIntNull()
	if len(enc) != 1 || enc[0] != 0xfb {
		t.Fatalf("EncodeLenIntNull = % x", enc)
	}
	v, n, err := DecodeLenInt(enc)
	if err != nil {
		t.Fatalf("DecodeLenInt: %v", err)
	}
	if n != 1 || !IsLenIntNull(v) {
		t.Fatalf("DecodeLenInt(null) = (%d, %d), want NULL sentinel", v, n)
	}
}

func TestLenEncString(t *testing.T) {
	enc := EncodeLenEncString("hello")
	s, n, err := LenEncString(enc)
	if err != nil {
		t.Fatalf("LenEncString: %v", err)
	}
	if s != "hello" || n != len(enc) {
		t.Fatalf("LenEncString = (%q, %d), want (\"hello\", %d)", s, n, len(enc))
	}
}

func TestNullTerminatedString(t *testing.T) {
	enc := EncodeNullTerminatedString("root")
	s, n, err := NullTerminatedString(enc)
	if err != nil {
		t.Fatalf("NullTerminatedString: %v", err)
	}
	if s != "root" || n != len(enc) {
		t.Fatalf("NullTerminatedString = (%q, %d)", s, n)
	}
}

func TestHasFrameHeaderAndMsgPrefix(t *testing.T) {
	if HasFrameHeader([]byte{1, 2, 3}) {
		t.Fatalf("3 bytes should not satisfy HasFrameHeader")
	}
	if !HasFrameHeader([]byte{1, 2, 3, 4}) {
		t.Fatalf("4 bytes should satisfy HasFrameHeader")
	}
	if HasMsgPrefix([]byte{1, 2, 3, 4}) {
		t.Fatalf("4 bytes should not satisfy HasMsgPrefix")
	}
	if !HasMsgPrefix([]byte{1, 2, 3, 4, 5}) {
		t.Fatalf("5 bytes should satisfy HasMsgPrefix")
	}
}

func TestClassifyResponse(t *testing.T) {
	cases := []struct {
		b    byte
		want ResponseClassifier
	}{
		{0x00, RespOk},
		{0xff, RespErr},
		{0xfe, RespEof},
	}
	for _, tc := range cases {
		got, ok := ClassifyResponse([]byte{tc.b})
		if !ok || got != tc.want {
			t.Fatalf("ClassifyResponse(%x) = (%v, %v), want %v", tc.b, got, ok, tc.want)
		}
	}
	if _, ok := ClassifyResponse([]byte{0x01}); ok {
		t.Fatalf("0x01 should not classify")
	}
}
