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

// Package messages holds the recognized subset of X protocol handshake,
// capability, authentication, and notice messages. The router decodes only
// these message types; every other Mysqlx.* message type is forwarded as
// opaque framed bytes.
package messages

// Type is the one-byte message-type value that follows the frame's 4-byte
// length prefix, restored from the X protocol's ClientMessages/
// ServerMessages dispatch enumerations (the distilled spec names the state
// machine but not these literal byte values).
type Type byte

// Client-to-server message types (Mysqlx.ClientMessages.Type).
const (
	TypeClientCapabilitiesGet     Type = 1
	TypeClientCapabilitiesSet     Type = 2
	TypeSessAuthenticateStart     Type = 3
	TypeSessAuthenticateContinue  Type = 4
	TypeSessReset                 Type = 6
	TypeSessClose                 Type = 7
	TypeSQLStmtExecute            Type = 12
	TypeCrudFind                  Type = 17
	TypeCrudInsert                Type = 18
	TypeCrudUpdate                Type = 19
	TypeCrudDelete                Type = 20
	TypePrepPrepare               Type = 40
	TypePrepExecute               Type = 41
	TypePrepDeallocate             Type = 42
	TypeCursorOpen                Type = 43
	TypeCursorClose               Type = 44
	TypeCursorFetch               Type = 45
	TypeExpectOpen                Type = 48
	TypeExpectClose               Type = 49
	TypeCrudCreateView            Type = 30
	TypeCrudModifyView            Type = 31
	TypeCrudDropView              Type = 32
	TypeConClose                  Type = 5
)

// Server-to-client message types (Mysqlx.ServerMessages.Type).
const (
	TypeServerOk                  Type = 0
	TypeServerError               Type = 1
	TypeConnCapabilities          Type = 2
	TypeSessAuthenticateContinue2 Type = 3 // AuthenticateContinue, server direction
	TypeSessAuthenticateOk        Type = 4
	TypeNotice                    Type = 11
	TypeResultsetColumnMetaData   Type = 12
	TypeResultsetRow              Type = 13
	TypeResultsetFetchDone        Type = 14
	TypeResultsetFetchSuspended   Type = 15
	TypeResultsetFetchDoneMoreResults Type = 16
	TypeResultsetStmtExecuteOk    Type = 17
)

// String returns a short mnemonic for the message type, used for tracing
// only.
func (t Type) String() string {
	switch t {
	case TypeClientCapabilitiesGet:
		return "CapabilitiesGet"
	case TypeClientCapabilitiesSet:
		return "CapabilitiesSet"
	case TypeSessAuthenticateStart:
		return "AuthenticateStart"
	case TypeSessAuthenticateContinue:
		return "AuthenticateContinue"
	case TypeSessReset:
		return "SessionReset"
	case TypeSessClose:
		return "SessionClose"
	case TypeConClose:
		return "ConClose"
	case TypeServerOk:
		return "Ok"
	case TypeServerError:
		return "Error"
	case TypeConnCapabilities:
		return "CapabilitiesRows"
	case TypeSessAuthenticateOk:
		return "AuthenticateOk"
	case TypeNotice:
		return "Notice"
	default:
		return "Unknown"
	}
}

// Recognized reports whether the router decodes this message type's
// payload, as opposed to forwarding it as opaque bytes.
func Recognized(t Type) bool {
	switch t {
	case TypeClientCapabilitiesGet, TypeClientCapabilitiesSet, TypeConnCapabilities,
		TypeSessAuthenticateStart, TypeSessAuthenticateContinue, TypeSessAuthenticateOk,
		TypeServerOk, TypeServerError, TypeNotice, TypeSessClose:
		return true
	default:
		return false
	}
}
