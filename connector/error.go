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

// Package connector drives destination selection down to an open socket:
// walking a destination.Provider's candidate list, resolving each
// destination's endpoints, racing a non-blocking connect against a
// per-attempt timeout, and reporting outcomes back to the provider so
// strategies like next-available can record failures.
package connector

import "github.com/nabbar/dbrouter/errors"

const (
	ErrorNoDestinations errors.CodeError = iota + errors.MinPkgConnector
	ErrorDestinationsExhausted
	ErrorInvalidOptions
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorNoDestinations)
	errors.RegisterIdFctMessage(ErrorNoDestinations, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorNoDestinations:
		return "destination provider returned an empty candidate list"
	case ErrorDestinationsExhausted:
		return "connecting to backend failed: every destination was tried and none is reachable"
	case ErrorInvalidOptions:
		return "connector options failed validation"
	}

	return ""
}

// FailureKind classifies why one connect attempt failed, restored from the
// original router's destination_error.h enum so callers can switch on kind
// instead of string-matching an error message.
type FailureKind int

const (
	KindNone FailureKind = iota
	KindTransientNetwork
	KindEndpointRefused
	KindEndpointTimeout
	KindDestinationUnresolvable
	KindDestinationsExhausted
	KindResourceExhaustion
)

// String returns a short mnemonic for the failure kind, for logging only.
func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransientNetwork:
		return "transient-network"
	case KindEndpointRefused:
		return "endpoint-refused"
	case KindEndpointTimeout:
		return "endpoint-timeout"
	case KindDestinationUnresolvable:
		return "destination-unresolvable"
	case KindDestinationsExhausted:
		return "destinations-exhausted"
	case KindResourceExhaustion:
		return "resource-exhaustion"
	default:
		return "unknown"
	}
}
