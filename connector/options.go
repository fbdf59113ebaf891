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

package connector

import (
	"fmt"
	"time"

	libval "github.com/go-playground/validator/v10"

	liberr "github.com/nabbar/dbrouter/errors"
)

// DefaultDestinationConnectTimeout is used when Options.DestinationConnectTimeout
// is left at its zero value, matching the routing defaults table's 5s.
const DefaultDestinationConnectTimeout = 5 * time.Second

// Options configures one Connector run.
type Options struct {
	// DestinationConnectTimeout bounds a single connect attempt against one
	// resolved endpoint. Must be > 0 once normalized.
	DestinationConnectTimeout time.Duration `mapstructure:"destination_connect_timeout" validate:"gte=0"`

	// BindAddressNoPort requests IP_BIND_ADDRESS_NO_PORT on platforms that
	// support it (linux), deferring ephemeral source-port allocation until
	// connect() instead of bind(), which reduces port-reuse pressure on a
	// router handling many short-lived outbound connections.
	BindAddressNoPort bool `mapstructure:"bind_address_no_port"`
}

// Normalize fills zero-valued optional fields with their documented
// defaults.
func (o *Options) Normalize() {
	if o.DestinationConnectTimeout <= 0 {
		o.DestinationConnectTimeout = DefaultDestinationConnectTimeout
	}
}

// Validate runs struct-tag validation over o.
func (o Options) Validate() liberr.Error {
	err := ErrorInvalidOptions.Error(nil)

	if er := libval.New().Struct(o); er != nil {
		if e, ok := er.(*libval.InvalidValidationError); ok {
			err.Add(e)
		} else if ve, ok := er.(libval.ValidationErrors); ok {
			for _, e := range ve {
				//nolint goerr113
				err.Add(fmt.Errorf("connector option field '%s' is not validated by constraint '%s'", e.Namespace(), e.ActualTag()))
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
