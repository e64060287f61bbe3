package il

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"pipelined.dev/il/internal/config"
	"pipelined.dev/il/log"
	"pipelined.dev/il/metric"
)

// Component exchanges buffers through its ports and runs the role
// algorithm in its own goroutine.
type Component struct {
	id        string
	name      string
	role      Role
	log       log.Logger
	diag      *log.Diagnostics
	metric    *metric.Metric
	meter     *metric.Meter
	callbacks Callbacks
	ports     []*port
	// in and out are indexes of role ports, -1 if role has no such port.
	in, out int

	state     atomic.Int32
	transient atomic.Int32
	// draining is set while component is stopping to Idle.
	draining atomic.Bool
	closing  atomic.Bool
	// cancel is set when Loaded is requested before Idle is reached.
	cancel      atomic.Bool
	pendingIdle atomic.Int32
	// epoch is the cancellation token of blocking waits in processing
	// goroutine. Every flush and teardown increments it.
	epoch atomic.Uint64

	// mu guards conditions below and is always locked before port mutex.
	mu        sync.Mutex
	pauseCond *sync.Cond
	flushCond *sync.Cond
	poolCond  *sync.Cond
	// ended is set when source produced end of stream.
	ended bool
	marks []Mark

	commands chan command
	done     chan struct{}
	loopDone chan struct{}
}

// New creates a component in Loaded state.
func New(role Role, options ...Option) (*Component, error) {
	if role == nil {
		return nil, fmt.Errorf("%w: nil role", ErrBadParameter)
	}
	if s, ok := role.(Source); ok && s.Produce == nil {
		return nil, fmt.Errorf("%w: source without produce function", ErrBadParameter)
	}
	if s, ok := role.(*Source); ok && s.Produce == nil {
		return nil, fmt.Errorf("%w: source without produce function", ErrBadParameter)
	}
	cfg := config.LoadOrDefault()
	c := &Component{
		id:       xid.New().String(),
		name:     roleName(role),
		role:     role,
		in:       -1,
		out:      -1,
		commands: make(chan command),
		done:     make(chan struct{}),
	}
	c.pauseCond = sync.NewCond(&c.mu)
	c.flushCond = sync.NewCond(&c.mu)
	c.poolCond = sync.NewCond(&c.mu)
	for i, d := range role.directions() {
		c.ports = append(c.ports, newPort(i, PortDefinition{
			Direction:   d,
			BufferCount: cfg.Buffer.Count,
			BufferSize:  cfg.Buffer.Size,
		}))
		if d == Input {
			c.in = i
		} else {
			c.out = i
		}
	}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	if c.log == nil {
		c.log = log.GetLogger()
	}
	c.log = log.With(c.log, logrus.Fields{"component": c.name, "id": c.id})
	c.diag = log.NewDiagnostics(c.log, cfg.Diag.PerSecond)
	c.meter = c.metric.Meter(c.name)
	c.state.Store(int32(StateLoaded))
	c.transient.Store(int32(StateLoaded))
	go c.control()
	return c, nil
}

func roleName(r Role) string {
	switch r.(type) {
	case Sink, *Sink:
		return "sink"
	case Source, *Source:
		return "source"
	case Filter, *Filter:
		return "filter"
	}
	return "component"
}

// ID returns unique id of the component.
func (c *Component) ID() string {
	return c.id
}

// Name returns the component name.
func (c *Component) Name() string {
	return c.name
}

func (c *Component) String() string {
	return c.name
}

// State returns the current state.
func (c *Component) State() State {
	return State(c.state.Load())
}

func (c *Component) transientState() State {
	return State(c.transient.Load())
}

// NumPorts returns the number of component ports.
func (c *Component) NumPorts() int {
	return len(c.ports)
}

// PortDefinition returns the definition of the port.
func (c *Component) PortDefinition(index int) (PortDefinition, error) {
	p, err := c.anyPort(index)
	if err != nil {
		return PortDefinition{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.def, nil
}

// SetPortDefinition changes the definition of the port. It's allowed in
// Loaded state or when port is disabled. Direction cannot be changed.
func (c *Component) SetPortDefinition(index int, def PortDefinition) error {
	p, err := c.anyPort(index)
	if err != nil {
		return err
	}
	if !c.configurable(p) {
		return ErrIncorrectState
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return setDefinition(p, def)
}

func setDefinition(p *port, def PortDefinition) error {
	if def.Direction != p.def.Direction {
		return fmt.Errorf("%w: port %d is %v", ErrBadPortIndex, p.index, p.def.Direction)
	}
	if def.BufferCount < 1 || def.BufferSize < 1 {
		return fmt.Errorf("%w: buffer count %d and size %d must be positive", ErrBadParameter, def.BufferCount, def.BufferSize)
	}
	if len(p.buffers) > 0 {
		return fmt.Errorf("%w: port %d is populated", ErrIncorrectState, p.index)
	}
	if p.tunnel != nil && def.BufferCount != p.tunnel.quota {
		return fmt.Errorf("%w: tunneled port %d has quota %d", ErrBadParameter, p.index, p.tunnel.quota)
	}
	p.setDefinition(def)
	return nil
}

// PortStatus returns the snapshot of the port state.
func (c *Component) PortStatus(index int) (PortStatus, error) {
	p, err := c.anyPort(index)
	if err != nil {
		return PortStatus{}, err
	}
	return p.status(), nil
}

func (c *Component) configurable(p *port) bool {
	if c.State() == StateLoaded {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.enabled
}

func (c *Component) anyPort(index int) (*port, error) {
	if index < 0 || index >= len(c.ports) {
		return nil, fmt.Errorf("%w: %d", ErrBadPortIndex, index)
	}
	return c.ports[index], nil
}

func (c *Component) port(index int, d Direction) (*port, error) {
	p, err := c.anyPort(index)
	if err != nil {
		return nil, err
	}
	if p.def.Direction != d {
		return nil, fmt.Errorf("%w: port %d is not %v", ErrBadPortIndex, index, d)
	}
	return p, nil
}

// selectPorts returns the port addressed by index or all ports.
func (c *Component) selectPorts(index int) ([]*port, error) {
	if index == AllPorts {
		return c.ports, nil
	}
	p, err := c.anyPort(index)
	if err != nil {
		return nil, err
	}
	return []*port{p}, nil
}

// EmptyThisBuffer submits filled buffer to the input port.
func (c *Component) EmptyThisBuffer(index int, b *Buffer) error {
	return c.submit(index, Input, b)
}

// FillThisBuffer submits empty buffer to the output port.
func (c *Component) FillThisBuffer(index int, b *Buffer) error {
	return c.submit(index, Output, b)
}

func (c *Component) submit(index int, d Direction, b *Buffer) error {
	p, err := c.port(index, d)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrBadParameter)
	}
	switch c.State() {
	case StateIdle, StateExecuting, StatePause:
	default:
		return fmt.Errorf("%w: %v is %v", ErrIncorrectState, c, c.State())
	}

	p.mu.Lock()
	if !p.has(b) {
		p.mu.Unlock()
		return fmt.Errorf("%w: buffer is not in port %d pool", ErrBadParameter, index)
	}
	if p.owns(b) {
		p.mu.Unlock()
		return fmt.Errorf("%w: buffer is already owned by port %d", ErrIncorrectState, index)
	}
	if t := p.tunnel; t != nil && t.supplier && c.retains(p) {
		t.held = append(t.held, b)
		p.settled.Broadcast()
		p.mu.Unlock()
		return nil
	}
	if p.flushing || c.bounces(p) {
		p.mu.Unlock()
		c.returnBuffer(p, b)
		return nil
	}
	if !p.enabled {
		p.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrPortDisabled, index)
	}
	err = p.push(b)
	queued := p.queue.Len()
	p.mu.Unlock()
	if err != nil {
		c.diag.Warnf("queue full", fmt.Sprintf("port %d rejected buffer", index))
		return err
	}
	c.meter.Queued(index, queued)
	return nil
}

// AllocateBuffer adds a new buffer with payload of provided size to the
// port pool. It's allowed in Loaded state or when port is disabled.
func (c *Component) AllocateBuffer(index int, size int) (*Buffer, error) {
	p, err := c.poolPort(index)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	if size < p.def.BufferSize {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: size %d is less than %d", ErrInsufficientResources, size, p.def.BufferSize)
	}
	b := &Buffer{Payload: make([]byte, size)}
	err = p.addBuffer(b)
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	c.notifyPool()
	return b, nil
}

// UseBuffer adds a new buffer with provided payload to the port pool.
func (c *Component) UseBuffer(index int, payload []byte) (*Buffer, error) {
	p, err := c.poolPort(index)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	if len(payload) < p.def.BufferSize {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: size %d is less than %d", ErrInsufficientResources, len(payload), p.def.BufferSize)
	}
	b := &Buffer{Payload: payload}
	err = p.addBuffer(b)
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	c.notifyPool()
	return b, nil
}

// FreeBuffer removes the buffer from the port pool. It's allowed in
// Loaded and Idle states or when port is disabled. Buffers queued or under
// process cannot be freed.
func (c *Component) FreeBuffer(index int, b *Buffer) error {
	p, err := c.anyPort(index)
	if err != nil {
		return err
	}
	switch c.State() {
	case StateLoaded, StateIdle, StateInvalid:
	default:
		if c.configurable(p) {
			break
		}
		return fmt.Errorf("%w: %v is %v", ErrIncorrectState, c, c.State())
	}
	p.mu.Lock()
	if p.owns(b) {
		p.mu.Unlock()
		return fmt.Errorf("%w: buffer is owned by port %d", ErrIncorrectState, index)
	}
	ok := p.removeBuffer(b)
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: buffer is not in port %d pool", ErrBadParameter, index)
	}
	c.notifyPool()
	return nil
}

func (c *Component) poolPort(index int) (*port, error) {
	p, err := c.anyPort(index)
	if err != nil {
		return nil, err
	}
	if !c.configurable(p) {
		return nil, fmt.Errorf("%w: %v is %v", ErrIncorrectState, c, c.State())
	}
	if _, _, err := c.Tunnel(index); err == nil {
		return nil, fmt.Errorf("%w: port %d is tunneled", ErrIncorrectState, index)
	}
	return p, nil
}

func (c *Component) notifyPool() {
	c.mu.Lock()
	c.poolCond.Broadcast()
	c.mu.Unlock()
}
