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

package acceptor

import (
	"github.com/nabbar/dbrouter/certificates"
	"github.com/nabbar/dbrouter/conn"
	"github.com/nabbar/dbrouter/routecontext"
)

// BuildTLSConfigs loads the route's ClientTLS/ServerTLS material into the
// conn.TLSConfigs a Conn needs to terminate TLS locally. A side whose
// Material is empty is left nil, which is correct for a route whose
// SourceSSLMode/DestSSLMode never terminates TLS (disabled, passthrough,
// or a dest_ssl_mode of as_client that turns out not to need it).
func BuildTLSConfigs(opt routecontext.Options) (conn.TLSConfigs, error) {
	var out conn.TLSConfigs

	if !opt.ClientTLS.Empty() {
		cfg, err := certificates.NewRouteTLSConfig(opt.ClientTLS, opt.TLSVersionMin, opt.TLSVersionMax)
		if err != nil {
			return conn.TLSConfigs{}, ErrorTLSMaterialInvalid.Error(err)
		}
		out.Client = cfg
	}

	if !opt.ServerTLS.Empty() {
		cfg, err := certificates.NewRouteTLSConfig(opt.ServerTLS, opt.TLSVersionMin, opt.TLSVersionMax)
		if err != nil {
			return conn.TLSConfigs{}, ErrorTLSMaterialInvalid.Error(err)
		}
		out.Server = cfg
	}

	return out, nil
}
