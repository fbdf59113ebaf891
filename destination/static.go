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

package destination

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Strategy names a destination-ordering policy, used when building a
// Static provider out of a parsed URI.
type Strategy string

const (
	StrategyRoundRobin     Strategy = "round-robin"
	StrategyNextAvailable  Strategy = "next-available"
	StrategyFirstAvailable Strategy = "first-available"
)

// staticOptions holds the query-parameter options recognized on a
// dest://host:port,... URI, decoded the same way the teacher's own
// component configs decode query/form values with mapstructure.
type staticOptions struct {
	Strategy    string `mapstructure:"strategy"`
	DefaultPort uint16 `mapstructure:"default_port"`
}

// metadataOptions holds the query parameters recognized on a
// metadata-cache://<cluster>/<role> URI. Only the shape is modeled here —
// §1 keeps metadata-cache integration an external collaborator.
type metadataOptions struct {
	Role string `mapstructure:"role"`
}

// NewStatic parses a `dest://host[:port][,host[:port]...]` URI (optionally
// with `?strategy=round-robin|next-available|first-available` and
// `?default_port=N`) and returns the corresponding Provider.
func NewStatic(uri string, defaultPort uint16) (Provider, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, ErrorEmptyURI.Error()
	}

	base, rawQuery, _ := strings.Cut(uri, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, ErrorBadURI.Error(err)
	}

	opts := staticOptions{Strategy: string(StrategyRoundRobin), DefaultPort: defaultPort}
	if err = decodeQuery(q, &opts); err != nil {
		return nil, ErrorBadURI.Error(err)
	}

	hostlist := base
	if _, after, ok := strings.Cut(base, "://"); ok {
		hostlist = after
	}

	addrs, err := parseHostList(hostlist, opts.DefaultPort)
	if err != nil {
		return nil, err
	}

	return newStrategy(Strategy(opts.Strategy), addrs)
}

func newStrategy(kind Strategy, addrs []Addr) (Provider, error) {
	switch kind {
	case StrategyRoundRobin, "":
		return NewRoundRobin(addrs), nil
	case StrategyNextAvailable:
		return NewNextAvailable(addrs), nil
	case StrategyFirstAvailable:
		return NewFirstAvailable(addrs), nil
	default:
		return nil, ErrorUnknownStrategy.Error()
	}
}

func decodeQuery(q url.Values, out interface{}) error {
	m := make(map[string]interface{}, len(q))
	for k, v := range q {
		if len(v) > 0 {
			m[k] = v[0]
		}
	}
	return mapstructure.WeakDecode(m, out)
}

func parseHostList(list string, defaultPort uint16) ([]Addr, error) {
	list = strings.TrimPrefix(list, "//")
	parts := strings.Split(list, ",")

	out := make([]Addr, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		host := p
		port := defaultPort
		if idx := strings.LastIndex(p, ":"); idx >= 0 {
			host = p[:idx]
			n, err := strconv.ParseUint(p[idx+1:], 10, 16)
			if err != nil {
				return nil, ErrorBadURI.Error(err)
			}
			port = uint16(n)
		}

		out = append(out, Addr{
			Hostname: host,
			Port:     port,
			ID:       fmt.Sprintf("%s:%d#%d", host, port, i),
		})
	}

	if len(out) == 0 {
		return nil, ErrorEmptyURI.Error()
	}
	return out, nil
}
