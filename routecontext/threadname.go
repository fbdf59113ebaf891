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

package routecontext

import "strings"

// ShortThreadName builds the short, fixed-prefix label used for worker
// goroutine names and log fields. routeName is expected in the form
// "routing:cluster_<name>_<protocol>_<mode>"; the suffix kept is the
// last two "_"-separated fields (protocol_mode), e.g.
// "routing:cluster_default_x_ro" -> "RtS:x_ro". A routeName with no
// ":" yields just "prefix:". An empty routeName is reported as a parse
// error suffix so a misconfigured route is obvious in logs.
func ShortThreadName(routeName, prefix string) string {
	if routeName == "" {
		return prefix + ":parse err"
	}

	ndx := strings.IndexByte(routeName, ':')
	if ndx < 0 {
		return prefix + ":"
	}

	suffix := routeName[ndx+1:]
	parts := strings.Split(suffix, "_")
	if len(parts) >= 2 {
		suffix = strings.Join(parts[len(parts)-2:], "_")
	}

	return prefix + ":" + suffix
}
