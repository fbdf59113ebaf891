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

package certificates

import (
	tlsvrs "github.com/nabbar/dbrouter/certificates/tlsversion"
)

// Material is the PEM file material a route carries for one side
// (client-facing or backend-facing) of a connection, per §4.5's TLS
// negotiation matrix. CertFile/KeyFile are only needed when this side is
// ever terminated locally (SourceSSLMode/DestSSLMode other than disabled
// or passthrough); RootCAFiles verify the peer's certificate when set.
type Material struct {
	CertFile    string
	KeyFile     string
	RootCAFiles []string
}

// Empty reports whether m carries no PEM material at all, the signal a
// route uses to skip building a TLSConfig for a side that never
// terminates TLS locally.
func (m Material) Empty() bool {
	return m.CertFile == "" && m.KeyFile == "" && len(m.RootCAFiles) == 0
}

// NewRouteTLSConfig builds the TLSConfig for one side of a route from its
// Material and the route's negotiated TLS version bounds. It is the
// production counterpart to New(): where New() returns an empty,
// caller-populated config, this loads and validates the PEM files a
// route's acceptor or connector actually dials/accepts with.
func NewRouteTLSConfig(mat Material, minVersion, maxVersion tlsvrs.Version) (TLSConfig, error) {
	cfg := New()

	if mat.CertFile != "" || mat.KeyFile != "" {
		if err := cfg.AddCertificatePairFile(mat.KeyFile, mat.CertFile); err != nil {
			return nil, err
		}
	}

	for _, f := range mat.RootCAFiles {
		if err := cfg.AddRootCAFile(f); err != nil {
			return nil, err
		}
	}

	if minVersion != 0 {
		cfg.SetVersionMin(minVersion)
	}
	if maxVersion != 0 {
		cfg.SetVersionMax(maxVersion)
	}

	return cfg, nil
}
