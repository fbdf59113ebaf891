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

//go:build linux || darwin

package connector

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// tuneSocket sets TCP_NODELAY (so framed protocol messages aren't delayed
// by Nagle's algorithm) and, when requested and supported, the platform's
// "defer source-port selection to connect()" socket option, via raw
// syscalls since net.Dialer exposes neither directly.
func tuneSocket(conn net.Conn, bindAddressNoPort bool) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.SetNoDelay(true)

	if !bindAddressNoPort {
		return
	}

	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		setBindAddressNoPort(int(fd))
	})
}

// soError reads and clears the socket's pending SO_ERROR, used after a
// non-blocking connect's writability wakes to learn the real outcome.
func soError(conn net.Conn) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}

	var serr error
	cerr := raw.Control(func(fd uintptr) {
		v, e := unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ERROR)
		if e != nil {
			serr = e
			return
		}
		if v != 0 {
			serr = syscall.Errno(v)
		}
	})
	if cerr != nil {
		return cerr
	}
	return serr
}
