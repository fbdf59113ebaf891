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
	"hash/fnv"
	"sync"
)

// DefaultBucketCount is the number of buckets a Container uses when none
// is specified. 127 is prime, chosen (per the original connection
// container this is adapted from) to spread short route-name-derived
// connection ids evenly across buckets.
const DefaultBucketCount = 127

// Entry is anything the container can hold: a live connection that knows
// its own identity, the server address it is routed to, and how to request
// its own teardown.
type Entry interface {
	ID() string
	ServerAddr() string
	Disconnect()
}

type bucket struct {
	mu sync.Mutex
	m  map[string]Entry
}

// Container is a hash table of live connections keyed by connection
// identity, sharded into a fixed number of independently-locked buckets.
type Container struct {
	buckets []*bucket
}

// New returns a Container with the given number of buckets. n <= 0 uses
// DefaultBucketCount.
func New(n int) *Container {
	if n <= 0 {
		n = DefaultBucketCount
	}
	c := &Container{buckets: make([]*bucket, n)}
	for i := range c.buckets {
		c.buckets[i] = &bucket{m: make(map[string]Entry)}
	}
	return c
}

func (c *Container) bucketFor(id string) *bucket {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return c.buckets[int(h.Sum32())%len(c.buckets)]
}

// Put inserts conn, uniquely owned by the container from this point.
func (c *Container) Put(conn Entry) {
	b := c.bucketFor(conn.ID())
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[conn.ID()] = conn
}

// Erase removes the connection with the given id, if present.
func (c *Container) Erase(id string) {
	b := c.bucketFor(id)
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.m, id)
}

// ForEach applies visitor to every (id, conn) pair, locking each bucket in
// turn rather than holding a single lock across the whole container.
// Mutation of bucket B while iterating bucket A is permitted; visitors may
// call Disconnect but must not call Erase (a connection erases itself on
// reaching its terminal state).
func (c *Container) ForEach(visitor func(id string, conn Entry)) {
	for _, b := range c.buckets {
		b.mu.Lock()
		snapshot := make([]Entry, 0, len(b.m))
		for _, e := range b.m {
			snapshot = append(snapshot, e)
		}
		b.mu.Unlock()

		for _, e := range snapshot {
			visitor(e.ID(), e)
		}
	}
}

// DisconnectByAllowSet calls Disconnect on every connection whose server
// address is not in allowed.
func (c *Container) DisconnectByAllowSet(allowed map[string]struct{}) {
	c.ForEach(func(_ string, conn Entry) {
		if _, ok := allowed[conn.ServerAddr()]; !ok {
			conn.Disconnect()
		}
	})
}

// DisconnectAll calls Disconnect on every entry.
func (c *Container) DisconnectAll() {
	c.ForEach(func(_ string, conn Entry) {
		conn.Disconnect()
	})
}

// Size returns the sum of bucket sizes.
func (c *Container) Size() int {
	total := 0
	for _, b := range c.buckets {
		b.mu.Lock()
		total += len(b.m)
		b.mu.Unlock()
	}
	return total
}
