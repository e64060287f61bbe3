package il

import (
	"fmt"
	"sync"

	"pipelined.dev/il/internal/queue"
	"pipelined.dev/il/internal/sem"
)

// Domain of the data exchanged through the port. Only ports of the same
// domain can be tunneled.
type Domain int

// Port domains.
const (
	DomainAudio Domain = iota
	DomainVideo
	DomainImage
	DomainOther
)

// AllPorts addresses all ports of the component in port commands.
const AllPorts = -1

// PortDefinition describes the buffers a port exchanges.
type PortDefinition struct {
	Direction   Direction
	BufferCount int
	BufferSize  int
	Domain      Domain
}

// PortStatus is a snapshot of the port state.
type PortStatus struct {
	// Queued is the number of buffers waiting for processing.
	Queued int
	// Available is the number of credits of the availability semaphore.
	Available    int
	UnderProcess bool
	Flushing     bool
	Enabled      bool
	// Buffers is the number of buffers in the port pool.
	Buffers int
	// Held is the number of buffers kept by a tunnel supplier port.
	Held int
}

// port owns the queue and the synchronization state of one component
// port. The availability semaphore and the queue are guarded by mu, so
// taking a credit and popping a buffer is atomic.
type port struct {
	index int

	mu           sync.Mutex
	def          PortDefinition
	queue        *queue.Queue[*Buffer]
	avail        *sem.Semaphore
	underProcess bool
	flushing     bool
	// waitingOnFlush is set when flush waits for the buffer under process.
	waitingOnFlush bool
	flushRelease   chan struct{}
	// settled is signaled when supplier gets one of its buffers back.
	settled *sync.Cond
	enabled bool
	buffers []*Buffer
	// owned buffers are queued or under process.
	owned  map[*Buffer]struct{}
	tunnel *tunnel
}

func newPort(index int, def PortDefinition) *port {
	p := &port{
		index:        index,
		def:          def,
		queue:        queue.New[*Buffer](def.BufferCount),
		flushRelease: make(chan struct{}, 1),
		enabled:      true,
		owned:        make(map[*Buffer]struct{}),
	}
	p.avail = sem.New(&p.mu)
	p.settled = sync.NewCond(&p.mu)
	return p
}

// setDefinition replaces the definition and resizes the queue. Port must
// be empty.
func (p *port) setDefinition(def PortDefinition) {
	p.def = def
	if p.queue.Cap() != def.BufferCount {
		p.queue = queue.New[*Buffer](def.BufferCount)
	}
}

// push queues the buffer and adds a credit. Must be called with mu held.
func (p *port) push(b *Buffer) error {
	if err := p.queue.Push(b); err != nil {
		return ErrQueueFull
	}
	p.owned[b] = struct{}{}
	p.avail.Up()
	return nil
}

// drain removes all queued buffers. Must be called with mu held.
func (p *port) drain() []*Buffer {
	var drained []*Buffer
	for p.avail.TryDown() {
		b, err := p.queue.Pop()
		if err != nil {
			panic(fmt.Sprintf("il: port %d has %d credits and empty queue", p.index, p.avail.Value()+1))
		}
		drained = append(drained, b)
	}
	return drained
}

// blocked reports if processing of the port must stop.
func (p *port) blocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushing || !p.enabled
}

func (p *port) populated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.enabled || len(p.buffers) == p.def.BufferCount
}

func (p *port) depopulated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffers) == 0
}

func (p *port) status() PortStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := PortStatus{
		Queued:       p.queue.Len(),
		Available:    p.avail.Value(),
		UnderProcess: p.underProcess,
		Flushing:     p.flushing,
		Enabled:      p.enabled,
		Buffers:      len(p.buffers),
	}
	if p.tunnel != nil {
		s.Held = len(p.tunnel.held)
	}
	return s
}

// addBuffer registers the buffer in the port pool. Must be called with mu
// held.
func (p *port) addBuffer(b *Buffer) error {
	if len(p.buffers) >= p.def.BufferCount {
		return fmt.Errorf("%w: port %d already has %d buffers", ErrInsufficientResources, p.index, len(p.buffers))
	}
	if p.def.Direction == Input {
		b.InputPort = p.index
	} else {
		b.OutputPort = p.index
	}
	p.buffers = append(p.buffers, b)
	return nil
}

// removeBuffer unregisters the buffer from the port pool. Must be called
// with mu held.
func (p *port) removeBuffer(b *Buffer) bool {
	for i := range p.buffers {
		if p.buffers[i] == b {
			p.buffers = append(p.buffers[:i], p.buffers[i+1:]...)
			return true
		}
	}
	return false
}

// has reports if the buffer is in the port pool. Must be called with mu
// held.
func (p *port) has(b *Buffer) bool {
	for _, pb := range p.buffers {
		if pb == b {
			return true
		}
	}
	return false
}

// owns reports if the buffer is queued or under process. Must be called
// with mu held.
func (p *port) owns(b *Buffer) bool {
	_, ok := p.owned[b]
	return ok
}

func (p *port) full() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffers) == p.def.BufferCount
}

func (p *port) setEnabled(enabled bool) {
	p.mu.Lock()
	p.enabled = enabled
	p.mu.Unlock()
}

func (p *port) isEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}
