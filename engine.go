package il

import (
	"fmt"
	"time"
)

// run is the processing goroutine. It claims buffers from the role ports,
// calls the algorithm and returns the buffers which are done. Buffers held
// at exit are returned to their owners.
func (c *Component) run() {
	defer close(c.loopDone)
	held := make([]*Buffer, len(c.ports))
	// processed is set when held buffers were passed to the algorithm but
	// not completed yet.
	processed := false
	eos := false
	for {
		e := c.epoch.Load()
		if !c.admit(held) {
			break
		}
		if !processed {
			if c.in >= 0 && held[c.in] == nil {
				b, ok := c.claim(c.ports[c.in], e)
				if !ok {
					continue
				}
				held[c.in] = b
				eos = false
			}
			if c.out >= 0 && held[c.out] == nil {
				b, ok := c.claim(c.ports[c.out], e)
				if !ok {
					continue
				}
				b.reset()
				held[c.out] = b
			}
		}
		if !c.gate(e) {
			continue
		}
		if !processed {
			eos = c.process(c.buffer(held, c.in), c.buffer(held, c.out), eos)
			processed = true
		}
		if !c.gate(e) {
			continue
		}
		c.complete(held)
		processed = false
	}
	for i, b := range held {
		if b != nil {
			c.release(c.ports[i], b)
		}
	}
}

func (c *Component) buffer(held []*Buffer, index int) *Buffer {
	if index < 0 {
		return nil
	}
	return held[index]
}

// admit blocks while any role port is flushed or disabled. Buffers held
// on such ports are released. Returns false when component is closing.
func (c *Component) admit(held []*Buffer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if c.closing.Load() {
			return false
		}
		blocked, released := false, false
		for i, p := range c.ports {
			if !p.blocked() {
				continue
			}
			blocked = true
			if b := held[i]; b != nil {
				held[i] = nil
				c.mu.Unlock()
				c.release(p, b)
				c.mu.Lock()
				released = true
			}
		}
		if released {
			continue
		}
		if !blocked && !(c.in < 0 && c.ended) {
			return true
		}
		c.flushCond.Wait()
	}
}

// claim takes the next buffer from the port queue. Waiting is cancelled
// if port is flushed or disabled, component is closing or epoch changed.
func (c *Component) claim(p *port, e uint64) (*Buffer, bool) {
	p.mu.Lock()
	cancelled := func() bool {
		return p.flushing || !p.enabled || c.closing.Load() || c.epoch.Load() != e
	}
	if !p.avail.Down(cancelled) {
		p.mu.Unlock()
		return nil, false
	}
	b, err := p.queue.Pop()
	if err != nil {
		p.mu.Unlock()
		panic(fmt.Sprintf("il: %v port %d has credit and empty queue", c, p.index))
	}
	p.underProcess = true
	queued := p.queue.Len()
	p.mu.Unlock()
	c.meter.Queued(p.index, queued)
	return b, true
}

// gate blocks until component is executing. Returns false if waiting was
// interrupted by flush or teardown.
func (c *Component) gate(e uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.State() != StateExecuting && !c.closing.Load() && c.epoch.Load() == e {
		c.pauseCond.Wait()
	}
	return c.State() == StateExecuting && !c.closing.Load() && c.epoch.Load() == e
}

// process calls the algorithm and handles marks and end of stream. eos
// reports if end of stream of the input buffer was already raised.
func (c *Component) process(in, out *Buffer, eos bool) bool {
	c.attachMark(in, out)
	// sink raises end of stream before the buffer is consumed
	if in != nil && out == nil && in.Has(FlagEOS) && !eos {
		c.raise(Event{Type: EventBufferFlag, Port: c.in, Flags: in.Flags})
		eos = true
	}

	// output carries the time of the first input it's filled from
	if in != nil && out != nil && out.Filled == 0 {
		out.Timestamp = in.Timestamp
	}
	if in == nil || in.Filled > 0 {
		start := time.Now()
		if err := c.role.call(in, out); err != nil {
			c.log.Error(fmt.Sprintf("%v callback failed: %v", c, err))
			c.raiseError(c.failedPort(), err)
			if in != nil {
				in.Filled = 0
			} else {
				c.setEnded()
			}
		}
		c.meter.Processed(time.Since(start))
	}

	c.propagateMark(in, out)
	switch {
	case in != nil && out != nil:
		if in.Filled == 0 && in.Has(FlagEOS) && !eos {
			out.Flags |= FlagEOS
			c.raise(Event{Type: EventBufferFlag, Port: c.out, Flags: out.Flags})
			eos = true
		}
	case in == nil:
		if out.Has(FlagEOS) {
			c.raise(Event{Type: EventBufferFlag, Port: c.out, Flags: out.Flags})
			c.setEnded()
		}
	}
	return eos
}

func (c *Component) failedPort() int {
	if c.in >= 0 {
		return c.in
	}
	return c.out
}

func (c *Component) setEnded() {
	c.mu.Lock()
	c.ended = true
	c.mu.Unlock()
}

// attachMark puts the pending mark on the processed buffer.
func (c *Component) attachMark(in, out *Buffer) {
	target := in
	if target == nil {
		target = out
	}
	if target.MarkTarget != nil {
		return
	}
	c.mu.Lock()
	if len(c.marks) > 0 {
		m := c.marks[0]
		c.marks = c.marks[1:]
		target.MarkTarget, target.MarkData = m.Target, m.Data
	}
	c.mu.Unlock()
}

// propagateMark raises the mark event if component is the mark target
// and passes the mark downstream otherwise.
func (c *Component) propagateMark(in, out *Buffer) {
	switch {
	case in != nil && in.MarkTarget != nil:
		switch {
		case in.MarkTarget == c:
			data := in.MarkData
			in.clearMark()
			c.raise(Event{Type: EventMark, Port: c.in, Data: data})
		case out != nil:
			out.MarkTarget, out.MarkData = in.MarkTarget, in.MarkData
			in.clearMark()
		default:
			c.diag.Warnf("mark dropped", fmt.Sprintf("%v is not the target of mark", c))
			in.clearMark()
		}
	case in == nil && out.MarkTarget == c:
		data := out.MarkData
		out.clearMark()
		c.raise(Event{Type: EventMark, Port: c.out, Data: data})
	}
}

// complete returns the buffers which are done. Input is done when it's
// fully consumed, output when it has data or end of stream.
func (c *Component) complete(held []*Buffer) {
	if c.in >= 0 {
		if b := held[c.in]; b != nil && b.Filled == 0 {
			held[c.in] = nil
			c.release(c.ports[c.in], b)
		}
	}
	if c.out >= 0 {
		if b := held[c.out]; b != nil && (b.Filled > 0 || b.Has(FlagEOS)) {
			held[c.out] = nil
			c.release(c.ports[c.out], b)
		}
	}
}

// release returns the buffer held by processing goroutine and wakes the
// flush waiting for it.
func (c *Component) release(p *port, b *Buffer) {
	c.returnBuffer(p, b)
	p.mu.Lock()
	p.underProcess = false
	if p.waitingOnFlush {
		p.waitingOnFlush = false
		p.flushRelease <- struct{}{}
	}
	p.mu.Unlock()
}

// interrupt cancels all blocking waits of the processing goroutine.
func (c *Component) interrupt() {
	c.epoch.Add(1)
	for _, p := range c.ports {
		p.mu.Lock()
		p.avail.Broadcast()
		p.mu.Unlock()
	}
	c.mu.Lock()
	c.pauseCond.Broadcast()
	c.flushCond.Broadcast()
	c.mu.Unlock()
}
