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

package errors

const (
	MinPkgCertificate  = 300
	MinPkgConfig       = 500
	MinPkgLogger       = 1600

	// MinPkgClassic is the error-code base for package protocol/classic.
	MinPkgClassic = 2000
	// MinPkgXProto is the error-code base for package protocol/x.
	MinPkgXProto = 2100
	// MinPkgChannel is the error-code base for package channel.
	MinPkgChannel = 2200
	// MinPkgDestination is the error-code base for package destination.
	MinPkgDestination = 2300
	// MinPkgConnector is the error-code base for package connector.
	MinPkgConnector = 2400
	// MinPkgContainer is the error-code base for package container.
	MinPkgContainer = 2500
	// MinPkgRouteContext is the error-code base for package routecontext.
	MinPkgRouteContext = 2600
	// MinPkgConn is the error-code base for package conn.
	MinPkgConn = 2700
	// MinPkgAcceptor is the error-code base for package acceptor.
	MinPkgAcceptor = 2800

	MinAvailable = 4000

	// MIN_AVAILABLE @Deprecated use MinAvailable constant
	MIN_AVAILABLE = MinAvailable
)
