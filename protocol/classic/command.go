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

package classic

// CommandByte identifies the first payload byte of a client command frame.
type CommandByte byte

const (
	ComQuit                 CommandByte = 0x01
	ComInitSchema            CommandByte = 0x02
	ComQuery                 CommandByte = 0x03
	ComListFields            CommandByte = 0x04
	ComReload                CommandByte = 0x07
	ComStatistics            CommandByte = 0x09
	ComKill                  CommandByte = 0x0c
	ComPing                  CommandByte = 0x0e
	ComChangeUser            CommandByte = 0x11
	ComStmtPrepare           CommandByte = 0x16
	ComStmtExecute           CommandByte = 0x17
	ComStmtParamAppendData   CommandByte = 0x18
	ComStmtClose             CommandByte = 0x19
	ComStmtReset             CommandByte = 0x1a
	ComSetOption             CommandByte = 0x1b
	ComStmtFetch             CommandByte = 0x1c
	ComResetConnection       CommandByte = 0x1f
	ComClone                 CommandByte = 0x20
)

// commandNames is only consulted for logging/tracing, never for routing
// decisions.
var commandNames = map[CommandByte]string{
	ComQuit:               "Quit",
	ComInitSchema:         "InitSchema",
	ComQuery:              "Query",
	ComListFields:         "ListFields",
	ComReload:             "Reload",
	ComStatistics:         "Statistics",
	ComKill:               "Kill",
	ComPing:               "Ping",
	ComChangeUser:         "ChangeUser",
	ComStmtPrepare:        "StmtPrepare",
	ComStmtExecute:        "StmtExecute",
	ComStmtParamAppendData: "StmtParamAppendData",
	ComStmtClose:          "StmtClose",
	ComStmtReset:          "StmtReset",
	ComSetOption:          "SetOption",
	ComStmtFetch:          "StmtFetch",
	ComResetConnection:    "ResetConnection",
	ComClone:              "Clone",
}

// String returns the command's mnemonic name, or "Unknown" for a command
// byte outside the recognized accounting set.
func (c CommandByte) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return "Unknown"
}

// ResponseClassifier is the byte observed at payload offset 0 of a server
// reply, used to tell Ok/Error/Eof apart without parsing the rest of the
// packet.
type ResponseClassifier byte

const (
	RespOk    ResponseClassifier = 0x00
	RespErr   ResponseClassifier = 0xff
	RespEof   ResponseClassifier = 0xfe
)

// ClassifyResponse reads the classifier byte out of a payload (not a full
// frame — callers pass frame.Payload, not the raw wire bytes).
func ClassifyResponse(payload []byte) (ResponseClassifier, bool) {
	if len(payload) < 1 {
		return 0, false
	}
	switch payload[0] {
	case byte(RespOk):
		return RespOk, true
	case byte(RespErr):
		return RespErr, true
	case byte(RespEof):
		return RespEof, true
	default:
		return 0, false
	}
}
