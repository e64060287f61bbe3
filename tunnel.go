package il

import "fmt"

// tunnel connects the port with the port of a peer component. Buffers
// returned by a tunneled port go to the peer instead of the client.
type tunnel struct {
	peer     *Component
	peerPort int
	// supplier port allocates the buffers and keeps them while they are
	// not used by either side.
	supplier bool
	quota    int
	// held buffers are owned by supplier and not queued. Guarded by port
	// mutex.
	held []*Buffer
}

// SetupTunnel connects output port of one component with input port of
// another. The side named by supplier allocates the buffers. Both
// components must be in Loaded state or have the ports disabled. The
// ports negotiate the largest buffer count and size of the two.
func SetupTunnel(out *Component, outPort int, in *Component, inPort int, supplier Direction) error {
	if out == nil || in == nil || out == in || (supplier != Input && supplier != Output) {
		return ErrBadParameter
	}
	op, err := out.port(outPort, Output)
	if err != nil {
		return err
	}
	ip, err := in.port(inPort, Input)
	if err != nil {
		return err
	}
	if !out.configurable(op) || !in.configurable(ip) {
		return ErrIncorrectState
	}

	op.mu.Lock()
	defer op.mu.Unlock()
	ip.mu.Lock()
	defer ip.mu.Unlock()
	if op.def.Domain != ip.def.Domain {
		return fmt.Errorf("%w: %v domain %d and %v domain %d", ErrTunnelingUnsupported, out, op.def.Domain, in, ip.def.Domain)
	}
	if len(op.buffers) > 0 || len(ip.buffers) > 0 {
		return fmt.Errorf("%w: ports already have buffers", ErrIncorrectState)
	}
	def := op.def
	if ip.def.BufferCount > def.BufferCount {
		def.BufferCount = ip.def.BufferCount
	}
	if ip.def.BufferSize > def.BufferSize {
		def.BufferSize = ip.def.BufferSize
	}
	op.setDefinition(def)
	def.Direction = Input
	ip.setDefinition(def)
	op.tunnel = &tunnel{
		peer:     in,
		peerPort: inPort,
		supplier: supplier == Output,
		quota:    def.BufferCount,
	}
	ip.tunnel = &tunnel{
		peer:     out,
		peerPort: outPort,
		supplier: supplier == Input,
		quota:    def.BufferCount,
	}
	out.log.Debug(fmt.Sprintf("%v port %d tunneled to %v port %d", out, outPort, in, inPort))
	return nil
}

// Tunnel returns the peer of the tunneled port.
func (c *Component) Tunnel(index int) (*Component, int, error) {
	p, err := c.anyPort(index)
	if err != nil {
		return nil, 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tunnel == nil {
		return nil, 0, ErrNotTunneled
	}
	return p.tunnel.peer, p.tunnel.peerPort, nil
}

// IsSupplier reports if the port supplies buffers to its tunnel.
func (c *Component) IsSupplier(index int) bool {
	p, err := c.anyPort(index)
	if err != nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tunnel != nil && p.tunnel.supplier
}

// returnBuffer gives the buffer back to its owner: client, tunneled peer
// or, for supplier ports that are not exchanging buffers, the port
// itself.
func (c *Component) returnBuffer(p *port, b *Buffer) {
	c.meter.Returned(p.index)
	p.mu.Lock()
	delete(p.owned, b)
	p.mu.Unlock()
	t := p.tunnel
	if t == nil {
		if p.def.Direction == Input {
			if c.callbacks.EmptyBufferDone != nil {
				c.callbacks.EmptyBufferDone(c, b)
			}
		} else if c.callbacks.FillBufferDone != nil {
			c.callbacks.FillBufferDone(c, b)
		}
		return
	}
	if t.supplier {
		p.mu.Lock()
		if c.retains(p) {
			t.held = append(t.held, b)
			p.settled.Broadcast()
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
	}
	var err error
	if p.def.Direction == Input {
		b.Filled = 0
		b.Offset = 0
		err = t.peer.FillThisBuffer(t.peerPort, b)
	} else {
		err = t.peer.EmptyThisBuffer(t.peerPort, b)
	}
	if err != nil {
		c.log.Error(fmt.Sprintf("%v port %d failed to return buffer to %v: %v", c, p.index, t.peer, err))
		c.raiseError(p.index, err)
	}
}

// retains reports if supplier port keeps buffers instead of passing them
// to the peer. Must be called with port mutex held.
func (c *Component) retains(p *port) bool {
	return p.flushing || !p.enabled || c.draining.Load()
}

// bounces reports if non-supplier tunneled port gives buffers straight
// back to the supplier. It happens while component is stopping, so the
// supplier can collect its pool.
func (c *Component) bounces(p *port) bool {
	return p.tunnel != nil && !p.tunnel.supplier && c.draining.Load()
}

// allocateSupplied creates the supplier pool and registers it on the
// peer port.
func (c *Component) allocateSupplied(p *port) error {
	t := p.tunnel
	p.mu.Lock()
	if len(p.buffers) > 0 {
		p.mu.Unlock()
		return nil
	}
	bufs := make([]*Buffer, 0, t.quota)
	for i := 0; i < t.quota; i++ {
		b := &Buffer{Payload: make([]byte, p.def.BufferSize)}
		if err := p.addBuffer(b); err != nil {
			p.mu.Unlock()
			return err
		}
		bufs = append(bufs, b)
	}
	t.held = append(t.held[:0], bufs...)
	p.mu.Unlock()

	for _, b := range bufs {
		if err := t.peer.register(t.peerPort, b); err != nil {
			return err
		}
	}
	c.notifyPool()
	return nil
}

// freeSupplied releases the supplier pool and unregisters it from the
// peer port. All buffers must be held.
func (c *Component) freeSupplied(p *port) {
	t := p.tunnel
	p.mu.Lock()
	bufs := p.buffers
	p.buffers = nil
	t.held = nil
	p.mu.Unlock()
	for _, b := range bufs {
		t.peer.unregister(t.peerPort, b)
	}
	c.notifyPool()
}

// register adds buffer allocated by the tunnel supplier to the port pool.
func (c *Component) register(index int, b *Buffer) error {
	p, err := c.anyPort(index)
	if err != nil {
		return err
	}
	p.mu.Lock()
	err = p.addBuffer(b)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	c.notifyPool()
	return nil
}

func (c *Component) unregister(index int, b *Buffer) {
	p, err := c.anyPort(index)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.removeBuffer(b)
	p.mu.Unlock()
	c.notifyPool()
}

// prime starts the exchange of supplier buffers. Held output buffers are
// queued to be filled by this component, held input buffers are sent to
// the peer to be filled there.
func (c *Component) prime(p *port) {
	t := p.tunnel
	if t == nil || !t.supplier {
		return
	}
	p.mu.Lock()
	if !p.enabled {
		p.mu.Unlock()
		return
	}
	held := t.held
	t.held = nil
	if p.def.Direction == Output {
		for _, b := range held {
			b.reset()
			if err := p.push(b); err != nil {
				panic(fmt.Sprintf("il: %v port %d cannot queue its own buffer: %v", c, p.index, err))
			}
		}
		p.mu.Unlock()
		c.meter.Queued(p.index, len(held))
		return
	}
	p.mu.Unlock()
	for _, b := range held {
		b.reset()
		if err := t.peer.FillThisBuffer(t.peerPort, b); err != nil {
			c.log.Error(fmt.Sprintf("%v port %d failed to prime %v: %v", c, p.index, t.peer, err))
			c.raiseError(p.index, err)
			p.mu.Lock()
			t.held = append(t.held, b)
			p.mu.Unlock()
		}
	}
}
