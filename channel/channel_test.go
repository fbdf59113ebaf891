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
	"net"
	"testing"
)

func TestTLSRecordRoundTrip(t *testing.T) {
	body := []byte{0x01, 0x02, 0x03}
	wire := []byte{byte(TLSRecordApplicationData), 0x03, 0x03, 0x00, byte(len(body))}
	wire = append(wire, body...)

	rec, n, err := decodeTLSRecord(wire)
	if err != nil {
		t.Fatalf("decodeTLSRecord: %v", err)
	}
	if n != len(wire) {
		t.Fatalf("consumed %d, want %d", n, len(wire))
	}
	if rec.Type != TLSRecordApplicationData || rec.Version != 0x0303 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestTLSRecordWantMore(t *testing.T) {
	_, _, err := decodeTLSRecord([]byte{byte(TLSRecordAlert), 0x03, 0x03, 0x00, 0x02})
	if !IsWantMore(err) {
		t.Fatalf("expected want-more for a truncated record body")
	}
}

// TestFatalAlertDowngrade covers S5/testable-property 5: a fatal Alert in
// passthrough mode must flip the channel back to non-TLS.
func TestFatalAlertDowngrade(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := New(server)
	c.SetPassthrough(true)

	if !c.IsTLS() {
		t.Fatalf("expected passthrough channel to report IsTLS() true")
	}

	alert := []byte{byte(TLSRecordAlert), 0x03, 0x03, 0x00, 0x02, 0x02, 0x28} // fatal, handshake_failure
	_, _, downgrade, err := c.DemuxTLSRecord(alert)
	if err != nil {
		t.Fatalf("DemuxTLSRecord: %v", err)
	}
	if !downgrade {
		t.Fatalf("fatal alert must request downgrade")
	}
	if c.IsTLS() {
		t.Fatalf("channel should no longer report TLS after fatal alert")
	}
}

func TestNonFatalRecordNoDowngrade(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := New(server)
	c.SetPassthrough(true)

	warning := []byte{byte(TLSRecordAlert), 0x03, 0x03, 0x00, 0x02, 0x01, 0x00} // warning level
	_, _, downgrade, err := c.DemuxTLSRecord(warning)
	if err != nil {
		t.Fatalf("DemuxTLSRecord: %v", err)
	}
	if downgrade {
		t.Fatalf("warning-level alert must not downgrade")
	}
	if !c.IsTLS() {
		t.Fatalf("channel should still report TLS")
	}
}
