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
	"testing"

	tlsvrs "github.com/nabbar/dbrouter/certificates/tlsversion"
)

func TestMaterialEmpty(t *testing.T) {
	if !(Material{}).Empty() {
		t.Fatalf("zero-value Material should be Empty")
	}
	if (Material{RootCAFiles: []string{"ca.pem"}}).Empty() {
		t.Fatalf("Material with a root CA file should not be Empty")
	}
}

func TestNewRouteTLSConfigNoMaterial(t *testing.T) {
	cfg, err := NewRouteTLSConfig(Material{}, tlsvrs.VersionTLS12, tlsvrs.VersionTLS13)
	if err != nil {
		t.Fatalf("NewRouteTLSConfig: %v", err)
	}
	if cfg.GetVersionMin() != tlsvrs.VersionTLS12 {
		t.Fatalf("expected min version %v, got %v", tlsvrs.VersionTLS12, cfg.GetVersionMin())
	}
	if cfg.GetVersionMax() != tlsvrs.VersionTLS13 {
		t.Fatalf("expected max version %v, got %v", tlsvrs.VersionTLS13, cfg.GetVersionMax())
	}
	if cfg.LenCertificatePair() != 0 {
		t.Fatalf("expected no certificate pairs loaded")
	}
}

func TestNewRouteTLSConfigBadFile(t *testing.T) {
	_, err := NewRouteTLSConfig(Material{RootCAFiles: []string{"/nonexistent/ca.pem"}}, 0, 0)
	if err == nil {
		t.Fatalf("expected an error loading a nonexistent root CA file")
	}
}
