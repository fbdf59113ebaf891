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

package destination

import "sync"

// Provider yields, on demand, the current preference-ordered list of
// candidate destinations, and absorbs connect-status feedback through
// each Destination's ConnectStatus sink.
type Provider interface {
	// Destinations returns the current ordered candidate list. Strategies
	// annotate each entry's Good()/ConnectStatus() before returning it.
	Destinations() []Destination

	// Refresh is called once a Connector run has exhausted every
	// destination in prev. ok is false when there is no replacement list
	// ("None" in §4.3), which the connector surfaces as
	// DestinationsExhausted.
	Refresh(prev []Destination) (next []Destination, ok bool)
}

// MetadataProvider documents the external metadata-cache URI contract
// (§6: "metadata-cache://<cluster>/<role>?role=PRIMARY|SECONDARY|…")
// without implementing it — metadata-cache integration is an external
// collaborator per §1; this type exists only so route wiring has a named
// slot to plug a real implementation into.
type MetadataProvider interface {
	Provider
}

// AllowedNodesChangedFunc is invoked when the set of acceptable
// destinations changes.
type AllowedNodesChangedFunc func(allowed []Addr, forNewConnections []Addr, disconnectExisting bool, reason string)

// MetadataRefreshFunc is an informational callback fired after a metadata
// refresh completes.
type MetadataRefreshFunc func(changed bool, newAllowed []Addr)

// StartAcceptorFunc resumes accepting new client connections.
type StartAcceptorFunc func()

// StopAcceptorFunc pauses accepting new client connections.
type StopAcceptorFunc func()

// QueryQuarantinedFunc lets the Connector skip destinations known to be
// unreachable.
type QueryQuarantinedFunc func(addr Addr) bool

// Callbacks is the "callbacks as source" registry from §9: multiple
// subscribers for AllowedNodesChanged/MetadataRefresh, single-subscriber
// semantics for the acceptor-control slots.
type Callbacks struct {
	mu sync.Mutex

	nextHandle int
	allowed    map[int]AllowedNodesChangedFunc
	refresh    map[int]MetadataRefreshFunc

	startAcceptor StartAcceptorFunc
	stopAcceptor  StopAcceptorFunc
	quarantined   QueryQuarantinedFunc
}

// NewCallbacks returns an empty callback registry.
func NewCallbacks() *Callbacks {
	return &Callbacks{
		allowed: make(map[int]AllowedNodesChangedFunc),
		refresh: make(map[int]MetadataRefreshFunc),
	}
}

// Handle identifies a registered multi-subscriber callback for later
// unregistration.
type Handle int

// OnAllowedNodesChanged registers a subscriber and returns a handle usable
// with Unregister.
func (c *Callbacks) OnAllowedNodesChanged(fn AllowedNodesChangedFunc) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextHandle++
	h := c.nextHandle
	c.allowed[h] = fn
	return Handle(h)
}

// OnMetadataRefresh registers a subscriber and returns a handle usable
// with Unregister.
func (c *Callbacks) OnMetadataRefresh(fn MetadataRefreshFunc) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextHandle++
	h := c.nextHandle
	c.refresh[h] = fn
	return Handle(h)
}

// Unregister removes a previously registered AllowedNodesChanged or
// MetadataRefresh subscriber.
func (c *Callbacks) Unregister(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.allowed, int(h))
	delete(c.refresh, int(h))
}

// SetStartAcceptor installs the single acceptor-resume subscriber,
// replacing any previous one.
func (c *Callbacks) SetStartAcceptor(fn StartAcceptorFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startAcceptor = fn
}

// SetStopAcceptor installs the single acceptor-pause subscriber, replacing
// any previous one.
func (c *Callbacks) SetStopAcceptor(fn StopAcceptorFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopAcceptor = fn
}

// SetQueryQuarantined installs the single quarantine-lookup subscriber.
func (c *Callbacks) SetQueryQuarantined(fn QueryQuarantinedFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quarantined = fn
}

// FireAllowedNodesChanged notifies every AllowedNodesChanged subscriber.
func (c *Callbacks) FireAllowedNodesChanged(allowed, forNew []Addr, disconnectExisting bool, reason string) {
	c.mu.Lock()
	subs := make([]AllowedNodesChangedFunc, 0, len(c.allowed))
	for _, fn := range c.allowed {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(allowed, forNew, disconnectExisting, reason)
	}
}

// FireMetadataRefresh notifies every MetadataRefresh subscriber.
func (c *Callbacks) FireMetadataRefresh(changed bool, newAllowed []Addr) {
	c.mu.Lock()
	subs := make([]MetadataRefreshFunc, 0, len(c.refresh))
	for _, fn := range c.refresh {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(changed, newAllowed)
	}
}

// StartAcceptor invokes the single acceptor-resume subscriber, if any.
func (c *Callbacks) StartAcceptor() {
	c.mu.Lock()
	fn := c.startAcceptor
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// StopAcceptor invokes the single acceptor-pause subscriber, if any.
func (c *Callbacks) StopAcceptor() {
	c.mu.Lock()
	fn := c.stopAcceptor
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// QueryQuarantined invokes the single quarantine-lookup subscriber; with
// none registered, nothing is considered quarantined.
func (c *Callbacks) QueryQuarantined(addr Addr) bool {
	c.mu.Lock()
	fn := c.quarantined
	c.mu.Unlock()
	if fn == nil {
		return false
	}
	return fn(addr)
}
