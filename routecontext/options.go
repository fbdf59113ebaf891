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

import (
	"fmt"
	"time"

	libval "github.com/go-playground/validator/v10"

	"github.com/nabbar/dbrouter/certificates"
	tlsvrs "github.com/nabbar/dbrouter/certificates/tlsversion"
	"github.com/nabbar/dbrouter/errors"
)

// TLSMode controls how a route treats TLS on its client- or
// server-facing side.
type TLSMode string

const (
	TLSDisabled   TLSMode = "disabled"
	TLSPreferred  TLSMode = "preferred"
	TLSRequired   TLSMode = "required"
	TLSAsClient   TLSMode = "as_client"
	TLSPassthrough TLSMode = "passthrough"
)

// Default configuration values, per the routing defaults table: a route
// that leaves a field unset behaves as if it had been set to these.
const (
	DefaultWaitTimeout                         = 0 * time.Second
	DefaultMaxConnections                      = 0
	DefaultDestinationConnectTimeout           = 5 * time.Second
	DefaultMaxConnectErrors              uint64 = 100
	DefaultBindAddress                          = "127.0.0.1"
	DefaultNetBufferSize                        = 16384
	DefaultClientConnectTimeout                = 9 * time.Second
	DefaultConnectionSharingDelay               = 1000 * time.Millisecond
	DefaultUnreachableDestinationRefresh        = 1 * time.Second
	DefaultSSLSessionCacheSize                  = 1024
	DefaultSSLSessionCacheTimeout                = 300 * time.Second
	DefaultMaxTotalConnections                  = 512
)

// Options configures a routing context. Fields left at their zero value
// fall back to the Default* constants when Options.Normalize is called.
type Options struct {
	RouteName string `mapstructure:"route_name" validate:"required"`

	BindAddress string `mapstructure:"bind_address"`
	BindPort    uint16 `mapstructure:"bind_port" validate:"required"`

	WaitTimeout                  time.Duration `mapstructure:"wait_timeout"`
	MaxConnections                int           `mapstructure:"max_connections" validate:"gte=0"`
	DestinationConnectTimeout    time.Duration `mapstructure:"destination_connect_timeout"`
	MaxConnectErrors              uint64        `mapstructure:"max_connect_errors"`
	NetBufferSize                 int           `mapstructure:"net_buffer_size" validate:"gte=0"`
	ClientConnectTimeout          time.Duration `mapstructure:"client_connect_timeout"`
	ConnectionSharingDelay        time.Duration `mapstructure:"connection_sharing_delay"`
	UnreachableDestinationRefresh time.Duration `mapstructure:"unreachable_destination_refresh"`
	MaxTotalConnections            int           `mapstructure:"max_total_connections" validate:"gte=0"`

	SourceSSLMode TLSMode `mapstructure:"source_ssl_mode" validate:"omitempty,oneof=disabled preferred required passthrough"`
	DestSSLMode   TLSMode `mapstructure:"dest_ssl_mode" validate:"omitempty,oneof=disabled preferred required as_client"`

	// ClientTLS/ServerTLS are the PEM material this route loads into a
	// certificates.TLSConfig for its client- and backend-facing sides,
	// used when the corresponding SSLMode ever terminates TLS locally.
	ClientTLS certificates.Material `mapstructure:"client_tls"`
	ServerTLS certificates.Material `mapstructure:"server_tls"`

	TLSVersionMin tlsvrs.Version `mapstructure:"tls_version_min"`
	TLSVersionMax tlsvrs.Version `mapstructure:"tls_version_max"`

	SSLSessionCacheMode    bool          `mapstructure:"ssl_session_cache_mode"`
	SSLSessionCacheSize    int           `mapstructure:"ssl_session_cache_size" validate:"gte=0"`
	SSLSessionCacheTimeout time.Duration `mapstructure:"ssl_session_cache_timeout"`

	// MirrorQuarantine, when true, makes the route notify
	// Context.OnBlockClientHost's registered callback when a client is
	// quarantined, so a backend-side block can mirror the router's own.
	MirrorQuarantine bool `mapstructure:"mirror_quarantine"`
}

// Normalize fills every zero-valued optional field with its documented
// default. It must be called once, after Validate succeeds.
func (o *Options) Normalize() {
	if o.BindAddress == "" {
		o.BindAddress = DefaultBindAddress
	}
	if o.DestinationConnectTimeout == 0 {
		o.DestinationConnectTimeout = DefaultDestinationConnectTimeout
	}
	if o.MaxConnectErrors == 0 {
		o.MaxConnectErrors = DefaultMaxConnectErrors
	}
	if o.NetBufferSize == 0 {
		o.NetBufferSize = DefaultNetBufferSize
	}
	if o.ClientConnectTimeout == 0 {
		o.ClientConnectTimeout = DefaultClientConnectTimeout
	}
	if o.ConnectionSharingDelay == 0 {
		o.ConnectionSharingDelay = DefaultConnectionSharingDelay
	}
	if o.UnreachableDestinationRefresh == 0 {
		o.UnreachableDestinationRefresh = DefaultUnreachableDestinationRefresh
	}
	if o.SSLSessionCacheSize == 0 {
		o.SSLSessionCacheSize = DefaultSSLSessionCacheSize
	}
	if o.SSLSessionCacheTimeout == 0 {
		o.SSLSessionCacheTimeout = DefaultSSLSessionCacheTimeout
	}
	if o.MaxTotalConnections == 0 {
		o.MaxTotalConnections = DefaultMaxTotalConnections
	}
	if o.SourceSSLMode == "" {
		o.SourceSSLMode = TLSPreferred
	}
	if o.DestSSLMode == "" {
		o.DestSSLMode = TLSAsClient
	}
}

// Validate runs struct-tag validation over o, returning a registered
// CodeError wrapping every failing constraint.
func (o Options) Validate() errors.Error {
	err := ErrorInvalidOptions.Error(nil)

	if er := libval.New().Struct(o); er != nil {
		if e, ok := er.(*libval.InvalidValidationError); ok {
			err.Add(e)
		} else if ve, ok := er.(libval.ValidationErrors); ok {
			for _, e := range ve {
				//nolint goerr113
				err.Add(fmt.Errorf("routing context field '%s' is not validated by constraint '%s'", e.Namespace(), e.ActualTag()))
			}
		} else {
			err.Add(er)
		}
	}

	if err.HasParent() {
		return err
	}

	return nil
}
