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

package messages

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every recognized Mysqlx.* payload this package
// models. Marshal/Unmarshal speak the real protobuf wire format (tag +
// varint/length-delimited field encoding via protowire), so a message
// produced here is byte-compatible with a full protoc-generated
// counterpart even though this package hand-rolls the field tables instead
// of depending on generated code.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// Capability is one entry of a CapabilitiesSet/CapabilitiesRows list. Value
// is carried as opaque bytes (a serialized Mysqlx.Datatypes.Any) since the
// router only ever needs to read/write capability names and a small set of
// scalar values (bool/string), never the full Any union.
type Capability struct {
	Name  string
	Value []byte
}

// CapabilitiesGet is sent by the client to request the server's
// capability list. It carries no fields.
type CapabilitiesGet struct{}

func (m *CapabilitiesGet) Marshal() ([]byte, error) { return nil, nil }
func (m *CapabilitiesGet) Unmarshal(b []byte) error {
	if len(b) != 0 {
		return fmt.Errorf("x messages: CapabilitiesGet expects an empty payload")
	}
	return nil
}

// CapabilitiesSet carries the client's requested capability changes.
type CapabilitiesSet struct {
	Capabilities []Capability
}

const fieldCapabilitiesSetCapabilities protowire.Number = 1
const fieldCapabilityName protowire.Number = 1
const fieldCapabilityValue protowire.Number = 2

func marshalCapability(c Capability) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldCapabilityName, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(c.Name))
	if len(c.Value) > 0 {
		b = protowire.AppendTag(b, fieldCapabilityValue, protowire.BytesType)
		b = protowire.AppendBytes(b, c.Value)
	}
	return b
}

func unmarshalCapability(b []byte) (Capability, error) {
	var c Capability
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return c, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldCapabilityName && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return c, protowire.ParseError(m)
			}
			c.Name = string(v)
			b = b[m:]
		case num == fieldCapabilityValue && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return c, protowire.ParseError(m)
			}
			c.Value = append([]byte(nil), v...)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return c, protowire.ParseError(m)
			}
			b = b[m:]
		}
	}
	return c, nil
}

func (m *CapabilitiesSet) Marshal() ([]byte, error) {
	var b []byte
	for _, c := range m.Capabilities {
		b = protowire.AppendTag(b, fieldCapabilitiesSetCapabilities, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalCapability(c))
	}
	return b, nil
}

func (m *CapabilitiesSet) Unmarshal(b []byte) error {
	m.Capabilities = nil
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if num == fieldCapabilitiesSetCapabilities && typ == protowire.BytesType {
			v, m2 := protowire.ConsumeBytes(b)
			if m2 < 0 {
				return protowire.ParseError(m2)
			}
			c, err := unmarshalCapability(v)
			if err != nil {
				return err
			}
			m.Capabilities = append(m.Capabilities, c)
			b = b[m2:]
			continue
		}

		m2 := protowire.ConsumeFieldValue(num, typ, b)
		if m2 < 0 {
			return protowire.ParseError(m2)
		}
		b = b[m2:]
	}
	return nil
}

// CapabilitiesRows is the server's response listing its capabilities.
type CapabilitiesRows struct {
	Capabilities []Capability
}

func (m *CapabilitiesRows) Marshal() ([]byte, error) {
	return (&CapabilitiesSet{Capabilities: m.Capabilities}).Marshal()
}

func (m *CapabilitiesRows) Unmarshal(b []byte) error {
	tmp := &CapabilitiesSet{}
	if err := tmp.Unmarshal(b); err != nil {
		return err
	}
	m.Capabilities = tmp.Capabilities
	return nil
}

// AuthenticateStart begins a SASL-style authentication exchange.
type AuthenticateStart struct {
	MechName        string
	AuthData        []byte
	InitialResponse []byte
}

func (m *AuthenticateStart) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(m.MechName))
	if len(m.AuthData) > 0 {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, m.AuthData)
	}
	if len(m.InitialResponse) > 0 {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, m.InitialResponse)
	}
	return b, nil
}

func (m *AuthenticateStart) Unmarshal(b []byte) error {
	*m = AuthenticateStart{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		v, n2 := protowire.ConsumeBytes(b)
		if n2 < 0 {
			return protowire.ParseError(n2)
		}
		switch num {
		case 1:
			m.MechName = string(v)
		case 2:
			m.AuthData = append([]byte(nil), v...)
		case 3:
			m.InitialResponse = append([]byte(nil), v...)
		}
		_ = typ
		b = b[n2:]
	}
	return nil
}

// AuthenticateContinue carries one round of SASL challenge/response data,
// used by both the client and server directions.
type AuthenticateContinue struct {
	AuthData []byte
}

func (m *AuthenticateContinue) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, m.AuthData)
	return b, nil
}

func (m *AuthenticateContinue) Unmarshal(b []byte) error {
	m.AuthData = nil
	for len(b) > 0 {
		num, _, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		v, n2 := protowire.ConsumeBytes(b)
		if n2 < 0 {
			return protowire.ParseError(n2)
		}
		if num == 1 {
			m.AuthData = append([]byte(nil), v...)
		}
		b = b[n2:]
	}
	return nil
}

// AuthenticateOk terminates a successful authentication exchange.
type AuthenticateOk struct {
	AuthData []byte
}

func (m *AuthenticateOk) Marshal() ([]byte, error) {
	if len(m.AuthData) == 0 {
		return nil, nil
	}
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, m.AuthData)
	return b, nil
}

func (m *AuthenticateOk) Unmarshal(b []byte) error {
	m.AuthData = nil
	for len(b) > 0 {
		num, _, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		v, n2 := protowire.ConsumeBytes(b)
		if n2 < 0 {
			return protowire.ParseError(n2)
		}
		if num == 1 {
			m.AuthData = append([]byte(nil), v...)
		}
		b = b[n2:]
	}
	return nil
}

// Notice is an asynchronous server notification (warnings, session state
// changes, group-replication state, …). Payload is left opaque; the router
// only inspects Type/Scope for forwarding accounting.
type Notice struct {
	Type    uint32
	Scope   uint32
	Payload []byte
}

func (m *Notice) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Type))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Scope))
	if len(m.Payload) > 0 {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Payload)
	}
	return b, nil
}

func (m *Notice) Unmarshal(b []byte) error {
	*m = Notice{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n2 := protowire.ConsumeVarint(b)
			if n2 < 0 {
				return protowire.ParseError(n2)
			}
			m.Type = uint32(v)
			b = b[n2:]
		case num == 2 && typ == protowire.VarintType:
			v, n2 := protowire.ConsumeVarint(b)
			if n2 < 0 {
				return protowire.ParseError(n2)
			}
			m.Scope = uint32(v)
			b = b[n2:]
		case num == 3 && typ == protowire.BytesType:
			v, n2 := protowire.ConsumeBytes(b)
			if n2 < 0 {
				return protowire.ParseError(n2)
			}
			m.Payload = append([]byte(nil), v...)
			b = b[n2:]
		default:
			n2 := protowire.ConsumeFieldValue(num, typ, b)
			if n2 < 0 {
				return protowire.ParseError(n2)
			}
			b = b[n2:]
		}
	}
	return nil
}

// Ok is a terminal success response with an optional human-readable
// message.
type Ok struct {
	Msg string
}

func (m *Ok) Marshal() ([]byte, error) {
	if m.Msg == "" {
		return nil, nil
	}
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(m.Msg))
	return b, nil
}

func (m *Ok) Unmarshal(b []byte) error {
	m.Msg = ""
	for len(b) > 0 {
		num, _, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		v, n2 := protowire.ConsumeBytes(b)
		if n2 < 0 {
			return protowire.ParseError(n2)
		}
		if num == 1 {
			m.Msg = string(v)
		}
		b = b[n2:]
	}
	return nil
}

// Error is a terminal failure response.
type Error struct {
	Severity uint32
	Code     uint32
	SQLState string
	Msg      string
}

func (m *Error) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Severity))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Code))
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(m.SQLState))
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(m.Msg))
	return b, nil
}

func (m *Error) Unmarshal(b []byte) error {
	*m = Error{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType:
			v, n2 := protowire.ConsumeVarint(b)
			if n2 < 0 {
				return protowire.ParseError(n2)
			}
			if num == 1 {
				m.Severity = uint32(v)
			} else if num == 2 {
				m.Code = uint32(v)
			}
			b = b[n2:]
		case typ == protowire.BytesType:
			v, n2 := protowire.ConsumeBytes(b)
			if n2 < 0 {
				return protowire.ParseError(n2)
			}
			if num == 3 {
				m.SQLState = string(v)
			} else if num == 4 {
				m.Msg = string(v)
			}
			b = b[n2:]
		default:
			n2 := protowire.ConsumeFieldValue(num, typ, b)
			if n2 < 0 {
				return protowire.ParseError(n2)
			}
			b = b[n2:]
		}
	}
	return nil
}

// SessionClose requests graceful session termination.
type SessionClose struct{}

func (m *SessionClose) Marshal() ([]byte, error) { return nil, nil }
func (m *SessionClose) Unmarshal(b []byte) error {
	if len(b) != 0 {
		return fmt.Errorf("x messages: SessionClose expects an empty payload")
	}
	return nil
}

// New allocates a zero-value Message for the given recognized type, or nil
// if t is not one this package decodes.
func New(t Type) Message {
	switch t {
	case TypeClientCapabilitiesGet:
		return &CapabilitiesGet{}
	case TypeClientCapabilitiesSet:
		return &CapabilitiesSet{}
	case TypeConnCapabilities:
		return &CapabilitiesRows{}
	case TypeSessAuthenticateStart:
		return &AuthenticateStart{}
	case TypeSessAuthenticateContinue:
		return &AuthenticateContinue{}
	case TypeSessAuthenticateOk:
		return &AuthenticateOk{}
	case TypeNotice:
		return &Notice{}
	case TypeServerOk:
		return &Ok{}
	case TypeServerError:
		return &Error{}
	case TypeSessClose:
		return &SessionClose{}
	default:
		return nil
	}
}
