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

// Package conn implements the per-connection coroutine: one goroutine per
// accepted client socket, driving either the classic or X protocol flow to
// completion against a connected backend, then tearing itself down out of
// its owning container.Container.
package conn

import "github.com/nabbar/dbrouter/errors"

const (
	ErrorBadMessage errors.CodeError = iota + errors.MinPkgConn
	ErrorCapabilityPrepareFailed
	ErrorTLSRequired
	ErrorUnexpectedMessage
	ErrorCompressionUnsupported
	ErrorConnectFailed
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorBadMessage)
	errors.RegisterIdFctMessage(ErrorBadMessage, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorBadMessage:
		return "ER_X_BAD_MESSAGE: message type outside the recognized set for the current state"
	case ErrorCapabilityPrepareFailed:
		return "capability prepare failed for 'tls'"
	case ErrorTLSRequired:
		return "client must upgrade to TLS before authenticating on this route"
	case ErrorUnexpectedMessage:
		return "server responded with a message type outside the expected set for this state"
	case ErrorCompressionUnsupported:
		return "ER_X_CAPABILITY_COMPRESSION_INVALID_ALGORITHM"
	case ErrorConnectFailed:
		return "could not establish a backend connection for this client"
	}

	return ""
}
