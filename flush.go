package il

import "fmt"

// flushPorts returns all buffers of the ports to their owners. Buffer held
// by processing goroutine is released first, then queued buffers are
// drained. Supplier ports complete when all their buffers are back and
// keep them until resumed.
func (c *Component) flushPorts(ports []*port) {
	waits := make([]bool, len(ports))
	for i, p := range ports {
		p.mu.Lock()
		p.flushing = true
		if p.underProcess {
			p.waitingOnFlush = true
			waits[i] = true
		}
		p.mu.Unlock()
	}
	// wake processing goroutine wherever it waits, including pause
	c.interrupt()
	for i, p := range ports {
		if waits[i] {
			<-p.flushRelease
		}
	}

	for _, p := range ports {
		p.mu.Lock()
		drained := p.drain()
		p.mu.Unlock()
		for _, b := range drained {
			c.returnBuffer(p, b)
		}
		c.meter.Flushed(p.index, len(drained))
		c.meter.Queued(p.index, 0)
		if t := p.tunnel; t != nil && t.supplier {
			p.mu.Lock()
			for len(t.held) < len(p.buffers) {
				p.settled.Wait()
			}
			p.mu.Unlock()
		}
		c.log.Debug(fmt.Sprintf("%v port %d flushed %d buffers", c, p.index, len(drained)))
	}

	c.mu.Lock()
	for _, p := range ports {
		p.mu.Lock()
		p.flushing = false
		p.waitingOnFlush = false
		p.mu.Unlock()
		if p.index == c.out {
			c.ended = false
		}
	}
	c.flushCond.Broadcast()
	c.mu.Unlock()
}

// resume restarts the exchange of flushed supplier ports while component
// keeps executing.
func (c *Component) resume(ports []*port) {
	if s := c.State(); (s == StateExecuting || s == StatePause) && c.transientState() != StateIdle {
		for _, p := range ports {
			c.prime(p)
		}
	}
}
