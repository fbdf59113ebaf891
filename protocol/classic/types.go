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

import "bytes"

// Length-encoded integer sentinel bytes. 0xfb marks SQL NULL (zero-width
// value, restored from the original classic_protocol.cc — the distilled
// spec only documents the wide-form sentinels below). 0xfc/0xfd/0xfe
// introduce the 2/3/8-byte wide forms.
const (
	lenIntNull  byte = 0xfb
	lenInt2     byte = 0xfc
	lenInt3     byte = 0xfd
	lenInt8     byte = 0xfe
)

// FixedInt encodes v into an n-byte little-endian integer, n ∈ {1,2,3,4,8}.
func FixedInt(v uint64, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = byte(v >> (8 * i))
	}
	return out
}

// DecodeFixedInt reads an n-byte little-endian integer from buf.
func DecodeFixedInt(buf []byte, n int) (uint64, error) {
	if len(buf) < n {
		return 0, ErrorTruncatedInteger.Error()
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(buf[i]) << (8 * i)
	}
	return v, nil
}

// LenIntNull is the sentinel decoded value signaling an SQL NULL column,
// distinguishing it from the legitimate small value 251 (0xfb).
const LenIntNull uint64 = ^uint64(0)

// IsLenIntNull reports whether a value returned by DecodeLenInt represents
// the NULL sentinel rather than a real integer.
func IsLenIntNull(v uint64) bool {
	return v == LenIntNull
}

// EncodeLenInt encodes v as a MySQL length-encoded integer: 1 byte for
// v<251, 3/4/9 bytes for the wide forms.
func EncodeLenInt(v uint64) []byte {
	switch {
	case v < 251:
		return []byte{byte(v)}
	case v < 1<<16:
		return append([]byte{lenInt2}, FixedInt(v, 2)...)
	case v < 1<<24:
		return append([]byte{lenInt3}, FixedInt(v, 3)...)
	default:
		return append([]byte{lenInt8}, FixedInt(v, 8)...)
	}
}

// EncodeLenIntNull returns the wire encoding of the NULL sentinel (0xfb,
// zero-width beyond the sentinel byte itself).
func EncodeLenIntNull() []byte {
	return []byte{lenIntNull}
}

// DecodeLenInt decodes a length-encoded integer from the start of buf,
// returning the value, the number of bytes consumed, and an error. A
// decoded NULL sentinel yields (LenIntNull, 1, nil); callers must check
// IsLenIntNull before treating the result as a real integer.
func DecodeLenInt(buf []byte) (uint64, int, error) {
	if len(buf) < 1 {
		return 0, 0, ErrorTruncatedInteger.Error()
	}

	switch buf[0] {
	case lenIntNull:
		return LenIntNull, 1, nil
	case lenInt2:
		v, err := DecodeFixedInt(buf[1:], 2)
		if err != nil {
			return 0, 0, err
		}
		return v, 3, nil
	case lenInt3:
		v, err := DecodeFixedInt(buf[1:], 3)
		if err != nil {
			return 0, 0, err
		}
		return v, 4, nil
	case lenInt8:
		v, err := DecodeFixedInt(buf[1:], 8)
		if err != nil {
			return 0, 0, err
		}
		return v, 9, nil
	default:
		return uint64(buf[0]), 1, nil
	}
}

// EncodedLenIntSize returns the number of bytes EncodeLenInt(v) would
// produce, without allocating.
func EncodedLenIntSize(v uint64) int {
	switch {
	case v < 251:
		return 1
	case v < 1<<16:
		return 3
	case v < 1<<24:
		return 4
	default:
		return 9
	}
}

// NullTerminatedString decodes a NUL-terminated string starting at buf[0],
// returning the string (without the terminator) and bytes consumed.
func NullTerminatedString(buf []byte) (string, int, error) {
	i := bytes.IndexByte(buf, 0)
	if i < 0 {
		return "", 0, ErrorTruncatedString.Error()
	}
	return string(buf[:i]), i + 1, nil
}

// EncodeNullTerminatedString appends a NUL terminator to s.
func EncodeNullTerminatedString(s string) []byte {
	out := make([]byte, 0, len(s)+1)
	out = append(out, []byte(s)...)
	return append(out, 0)
}

// LenEncString decodes a length-encoded string (length-encoded integer
// prefix followed by that many bytes).
func LenEncString(buf []byte) (string, int, error) {
	n, consumed, err := DecodeLenInt(buf)
	if err != nil {
		return "", 0, err
	}
	if IsLenIntNull(n) {
		return "", consumed, nil
	}
	end := consumed + int(n)
	if len(buf) < end {
		return "", 0, ErrorTruncatedString.Error()
	}
	return string(buf[consumed:end]), end, nil
}

// EncodeLenEncString prefixes s with its length-encoded size.
func EncodeLenEncString(s string) []byte {
	out := make([]byte, 0, len(s)+9)
	out = append(out, EncodeLenInt(uint64(len(s)))...)
	return append(out, []byte(s)...)
}

// FixedString reads exactly n bytes as a string.
func FixedString(buf []byte, n int) (string, error) {
	if len(buf) < n {
		return "", ErrorTruncatedString.Error()
	}
	return string(buf[:n]), nil
}
