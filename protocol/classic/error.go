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

// Package classic implements the MySQL classic wire protocol's framing and
// value codecs: frame headers, sequence tracking, fixed-width and
// length-encoded integers, and the string encodings built on top of them.
package classic

import "github.com/nabbar/dbrouter/errors"

const (
	ErrorShortBuffer errors.CodeError = iota + errors.MinPkgClassic
	ErrorBadSequence
	ErrorTruncatedString
	ErrorTruncatedInteger
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorShortBuffer)
	errors.RegisterIdFctMessage(ErrorShortBuffer, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorShortBuffer:
		return "buffer too short to decode a full frame"
	case ErrorBadSequence:
		return "frame sequence id is out of order"
	case ErrorTruncatedString:
		return "buffer truncated while decoding a string"
	case ErrorTruncatedInteger:
		return "buffer truncated while decoding a length-encoded integer"
	}

	return ""
}
