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

package container

import (
	"fmt"
	"sync"
	"testing"
)

type fakeConn struct {
	id         string
	server     string
	disconnect chan struct{}
}

func newFakeConn(id, server string) *fakeConn {
	return &fakeConn{id: id, server: server, disconnect: make(chan struct{}, 1)}
}

func (f *fakeConn) ID() string         { return f.id }
func (f *fakeConn) ServerAddr() string { return f.server }
func (f *fakeConn) Disconnect() {
	select {
	case f.disconnect <- struct{}{}:
	default:
	}
}

func TestContainerPutEraseSize(t *testing.T) {
	c := New(DefaultBucketCount)
	a := newFakeConn("a", "s1")
	c.Put(a)
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
	c.Erase(a.ID())
	if c.Size() != 0 {
		t.Fatalf("Size() = %d, want 0 after erase", c.Size())
	}
}

// TestDisconnectByAllowSet covers testable property 9: given connections to
// s1..sN and an allowed set s2..sN, exactly the connections to s1 observe
// a disconnect request.
func TestDisconnectByAllowSet(t *testing.T) {
	c := New(DefaultBucketCount)
	n := 6
	conns := make([]*fakeConn, 0, n)
	for i := 1; i <= n; i++ {
		fc := newFakeConn(fmt.Sprintf("c%d", i), fmt.Sprintf("s%d", i))
		conns = append(conns, fc)
		c.Put(fc)
	}

	allowed := make(map[string]struct{})
	for i := 2; i <= n; i++ {
		allowed[fmt.Sprintf("s%d", i)] = struct{}{}
	}

	c.DisconnectByAllowSet(allowed)

	for _, fc := range conns {
		select {
		case <-fc.disconnect:
			if fc.server == "s1" {
				continue
			}
			t.Fatalf("connection to %s should not have been disconnected", fc.server)
		default:
			if fc.server == "s1" {
				t.Fatalf("connection to %s should have been disconnected", fc.server)
			}
		}
	}
}

func TestForEachConcurrentMutation(t *testing.T) {
	c := New(DefaultBucketCount)
	for i := 0; i < 50; i++ {
		c.Put(newFakeConn(fmt.Sprintf("c%d", i), "s1"))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.ForEach(func(id string, _ Entry) {
			// mutating a different bucket mid-iteration must not deadlock
			c.Put(newFakeConn("extra-"+id, "s2"))
		})
	}()
	wg.Wait()
}

func TestDisconnectAll(t *testing.T) {
	c := New(DefaultBucketCount)
	conns := []*fakeConn{newFakeConn("a", "s1"), newFakeConn("b", "s2")}
	for _, fc := range conns {
		c.Put(fc)
	}
	c.DisconnectAll()
	for _, fc := range conns {
		select {
		case <-fc.disconnect:
		default:
			t.Fatalf("connection %s was not disconnected", fc.id)
		}
	}
}
