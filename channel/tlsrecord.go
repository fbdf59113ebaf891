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

// TLSRecordType is the one-byte content-type field of a raw TLS record,
// observed only in passthrough mode (is_tls_layer == true, no local TLS
// session).
type TLSRecordType byte

const (
	TLSRecordChangeCipherSpec TLSRecordType = 0x14
	TLSRecordAlert            TLSRecordType = 0x15
	TLSRecordHandshake        TLSRecordType = 0x16
	TLSRecordApplicationData  TLSRecordType = 0x17
	TLSRecordHeartbeat        TLSRecordType = 0x18
)

// tlsRecordHeaderSize is type(1) + version(2) + length(2).
const tlsRecordHeaderSize = 5

// alertLevelFatal is the first body byte of a TLS Alert record signaling
// a fatal alert.
const alertLevelFatal = 0x02

// TLSRecord is one decoded raw TLS record in passthrough mode.
type TLSRecord struct {
	Type    TLSRecordType
	Version uint16
	Body    []byte
}

// IsFatalAlert reports whether r is an Alert record carrying a fatal
// alert level in its first body byte (per §4.2, alert-level lives in the
// first two body bytes: [level, description]).
func (r TLSRecord) IsFatalAlert() bool {
	return r.Type == TLSRecordAlert && len(r.Body) >= 1 && r.Body[0] == alertLevelFatal
}

// decodeTLSRecord parses one 5-byte-header-plus-body record from buf. It
// returns ErrWantMore if buf does not yet contain the full record.
func decodeTLSRecord(buf []byte) (TLSRecord, int, error) {
	if len(buf) < tlsRecordHeaderSize {
		return TLSRecord{}, 0, ErrWantMore
	}

	length := int(buf[3])<<8 | int(buf[4])
	total := tlsRecordHeaderSize + length
	if len(buf) < total {
		return TLSRecord{}, 0, ErrWantMore
	}

	rec := TLSRecord{
		Type:    TLSRecordType(buf[0]),
		Version: uint16(buf[1])<<8 | uint16(buf[2]),
		Body:    append([]byte(nil), buf[tlsRecordHeaderSize:total]...),
	}
	return rec, total, nil
}
