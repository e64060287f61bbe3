package il

import (
	"fmt"
)

// State of the component.
type State int32

// Component states.
const (
	StateInvalid State = iota
	StateLoaded
	StateIdle
	StateExecuting
	StatePause
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "invalid"
	case StateLoaded:
		return "loaded"
	case StateIdle:
		return "idle"
	case StateExecuting:
		return "executing"
	case StatePause:
		return "pause"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// setState changes the state and wakes processing goroutine.
func (c *Component) setState(s State) {
	c.mu.Lock()
	c.state.Store(int32(s))
	c.transient.Store(int32(s))
	c.pauseCond.Broadcast()
	c.mu.Unlock()
	c.log.Debug(fmt.Sprintf("%v is %v", c, s))
}

// transition moves component into the target state.
func (c *Component) transition(to State) error {
	from := c.State()
	switch {
	case from == to:
		if to == StateLoaded && c.cancel.Swap(false) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrSameState, to)
	case from == StateInvalid:
		return ErrInvalidState
	case to == StateInvalid:
		c.setState(StateInvalid)
		return nil
	case from == StateLoaded && to == StateIdle:
		return c.toIdle()
	case from == StateIdle && to == StateLoaded:
		return c.toLoaded()
	case from == StateIdle && (to == StateExecuting || to == StatePause):
		c.start(to)
		return nil
	case from == StateExecuting && to == StatePause,
		from == StatePause && to == StateExecuting:
		c.setState(to)
		return nil
	case (from == StateExecuting || from == StatePause) && to == StateIdle:
		c.stop()
		return nil
	}
	return fmt.Errorf("%w: %v to %v", ErrIncorrectStateTransition, from, to)
}

// toIdle populates the ports and starts processing goroutine.
func (c *Component) toIdle() error {
	if c.cancel.Load() {
		return fmt.Errorf("%v idle: %w", c, ErrCanceled)
	}
	c.transient.Store(int32(StateIdle))
	start, _ := c.role.hooks()
	if err := callHook(start); err != nil {
		c.transient.Store(int32(StateLoaded))
		return fmt.Errorf("%v start: %w", c, err)
	}
	for _, p := range c.ports {
		if !c.IsSupplier(p.index) || !p.isEnabled() {
			continue
		}
		if err := c.allocateSupplied(p); err != nil {
			c.transient.Store(int32(StateLoaded))
			return fmt.Errorf("%v port %d: %w", c, p.index, err)
		}
	}
	c.waitPool(func() bool {
		if c.cancel.Load() {
			return true
		}
		for _, p := range c.ports {
			if !p.populated() {
				return false
			}
		}
		return true
	})
	if c.cancel.Load() {
		c.abortIdle()
		return fmt.Errorf("%v idle: %w", c, ErrCanceled)
	}
	c.closing.Store(false)
	c.loopDone = make(chan struct{})
	c.setState(StateIdle)
	go c.run()
	return nil
}

// abortIdle returns component to Loaded after canceled population.
func (c *Component) abortIdle() {
	for _, p := range c.ports {
		if c.IsSupplier(p.index) {
			c.freeSupplied(p)
		}
	}
	_, stop := c.role.hooks()
	if err := callHook(stop); err != nil {
		c.log.Warn(fmt.Sprintf("%v stop: %v", c, err))
	}
	c.transient.Store(int32(StateLoaded))
}

// toLoaded stops processing goroutine and waits until all buffers are
// freed.
func (c *Component) toLoaded() error {
	c.cancel.Store(false)
	c.transient.Store(int32(StateLoaded))
	c.closing.Store(true)
	c.interrupt()
	<-c.loopDone
	c.loopDone = nil
	c.flushPorts(c.ports)
	for _, p := range c.ports {
		if c.IsSupplier(p.index) {
			c.freeSupplied(p)
		}
	}
	c.waitPool(func() bool {
		for _, p := range c.ports {
			if !p.depopulated() {
				return false
			}
		}
		return true
	})
	c.closing.Store(false)
	c.mu.Lock()
	c.ended = false
	c.marks = nil
	c.mu.Unlock()

	_, stop := c.role.hooks()
	if err := callHook(stop); err != nil {
		c.setState(StateInvalid)
		return fmt.Errorf("%v stop: %w", c, err)
	}
	c.setState(StateLoaded)
	return nil
}

// start begins the exchange of supplier buffers.
func (c *Component) start(to State) {
	c.draining.Store(false)
	c.setState(to)
	for _, p := range c.ports {
		c.prime(p)
	}
}

// stop returns all buffers to their owners. Supplier ports wait until all
// their buffers are back. Other tunneled ports keep bouncing buffers until
// the supplier has stopped, so none of them is queued after stop.
func (c *Component) stop() {
	c.transient.Store(int32(StateIdle))
	c.draining.Store(true)
	c.notifyPeers()
	c.flushPorts(c.ports)
	for _, p := range c.ports {
		t := p.tunnel
		if t == nil || t.supplier {
			continue
		}
		c.waitPool(func() bool {
			s := t.peer.State()
			return !t.peer.draining.Load() && s != StateExecuting && s != StatePause
		})
	}
	c.setState(StateIdle)
	c.draining.Store(false)
	c.notifyPeers()
}

// notifyPeers wakes tunneled peers waiting for this component to stop.
func (c *Component) notifyPeers() {
	for _, p := range c.ports {
		if t := p.tunnel; t != nil {
			t.peer.notifyPool()
		}
	}
}

// waitPool blocks until done returns true. It's reevaluated every time
// a pool changes.
func (c *Component) waitPool(done func() bool) {
	c.mu.Lock()
	for !done() {
		c.poolCond.Wait()
	}
	c.mu.Unlock()
}

// disable flushes the ports and waits until their pools are freed.
func (c *Component) disable(ports []*port) {
	for _, p := range ports {
		p.setEnabled(false)
	}
	if c.State() == StateLoaded {
		return
	}
	c.flushPorts(ports)
	for _, p := range ports {
		if c.IsSupplier(p.index) {
			c.freeSupplied(p)
		}
	}
	c.waitPool(func() bool {
		for _, p := range ports {
			if !p.depopulated() {
				return false
			}
		}
		return true
	})
}

// enable waits until the ports are populated and resumes the exchange.
func (c *Component) enable(ports []*port) error {
	if c.State() == StateLoaded {
		for _, p := range ports {
			p.setEnabled(true)
		}
		return nil
	}
	for _, p := range ports {
		if !c.IsSupplier(p.index) {
			continue
		}
		if err := c.allocateSupplied(p); err != nil {
			return fmt.Errorf("%v port %d: %w", c, p.index, err)
		}
	}
	c.waitPool(func() bool {
		for _, p := range ports {
			if !p.full() {
				return false
			}
		}
		return true
	})
	for _, p := range ports {
		p.setEnabled(true)
	}
	c.interrupt()
	if s := c.State(); s == StateExecuting || s == StatePause {
		for _, p := range ports {
			c.prime(p)
		}
	}
	return nil
}
