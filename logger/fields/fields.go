/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

// Package fields holds structured key/value context attached to log entries.
package fields

import "github.com/sirupsen/logrus"

// Fields is the structured, per-entry context merged into every log line.
// Route name, client IP, and destination are carried this way rather than
// string-formatted into the message.
type Fields map[string]interface{}

// New returns an empty Fields set.
func New() Fields {
	return make(Fields)
}

// Clone returns a shallow copy so callers can add fields without mutating
// a shared base set (e.g. a route-level Fields used as the template for
// every connection on that route).
func (f Fields) Clone() Fields {
	n := make(Fields, len(f))
	for k, v := range f {
		n[k] = v
	}
	return n
}

// Add sets one key and returns the receiver for chaining.
func (f Fields) Add(key string, val interface{}) Fields {
	f[key] = val
	return f
}

// Merge overlays other on top of f, returning a new Fields.
func (f Fields) Merge(other Fields) Fields {
	n := f.Clone()
	for k, v := range other {
		n[k] = v
	}
	return n
}

// Logrus converts to logrus.Fields for use with a logrus entry.
func (f Fields) Logrus() logrus.Fields {
	return logrus.Fields(f)
}
