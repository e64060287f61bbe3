// Package mock provides client and algorithm mocks to test components.
package mock

import (
	"errors"
	"sync"

	"pipelined.dev/il"
)

// ErrMock is returned by mocked algorithms when failure is requested.
var ErrMock = errors.New("mock error")

// Returned is a buffer given back to the client.
type Returned struct {
	Buffer *il.Buffer
	// Filled and Flags are captured when buffer was returned.
	Filled int
	Flags  il.Flag
}

// Client records everything components return to it.
type Client struct {
	mu      sync.Mutex
	emptied map[*il.Component][]Returned
	filled  map[*il.Component][]Returned
	events  map[*il.Component][]il.Event
	// onFilled is called after output buffer is recorded.
	onFilled func(*il.Component, *il.Buffer)
}

// OnFilled sets the function called for every returned output buffer.
func (cl *Client) OnFilled(fn func(*il.Component, *il.Buffer)) {
	cl.mu.Lock()
	cl.onFilled = fn
	cl.mu.Unlock()
}

// Callbacks returns component callbacks bound to the client.
func (cl *Client) Callbacks() il.Callbacks {
	return il.Callbacks{
		EventHandler: func(c *il.Component, e il.Event) {
			cl.mu.Lock()
			if cl.events == nil {
				cl.events = make(map[*il.Component][]il.Event)
			}
			cl.events[c] = append(cl.events[c], e)
			cl.mu.Unlock()
		},
		EmptyBufferDone: func(c *il.Component, b *il.Buffer) {
			cl.mu.Lock()
			if cl.emptied == nil {
				cl.emptied = make(map[*il.Component][]Returned)
			}
			cl.emptied[c] = append(cl.emptied[c], Returned{Buffer: b, Filled: b.Filled, Flags: b.Flags})
			cl.mu.Unlock()
		},
		FillBufferDone: func(c *il.Component, b *il.Buffer) {
			cl.mu.Lock()
			if cl.filled == nil {
				cl.filled = make(map[*il.Component][]Returned)
			}
			cl.filled[c] = append(cl.filled[c], Returned{Buffer: b, Filled: b.Filled, Flags: b.Flags})
			fn := cl.onFilled
			cl.mu.Unlock()
			if fn != nil {
				fn(c, b)
			}
		},
	}
}

// Emptied returns input buffers returned by the component.
func (cl *Client) Emptied(c *il.Component) []Returned {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return append([]Returned(nil), cl.emptied[c]...)
}

// Filled returns output buffers returned by the component.
func (cl *Client) Filled(c *il.Component) []Returned {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return append([]Returned(nil), cl.filled[c]...)
}

// Events returns events of provided type raised by the component.
func (cl *Client) Events(c *il.Component, t il.EventType) []il.Event {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	var events []il.Event
	for _, e := range cl.events[c] {
		if e.Type == t {
			events = append(events, e)
		}
	}
	return events
}

// Hold blocks algorithm calls until released. Zero value doesn't block.
type Hold struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

// NewHold returns hold which blocks calls until Release is called.
func NewHold() *Hold {
	return &Hold{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

// Entered is signaled when the first call is blocked.
func (h *Hold) Entered() <-chan struct{} {
	return h.entered
}

// Release unblocks all calls.
func (h *Hold) Release() {
	h.once.Do(func() { close(h.release) })
}

func (h *Hold) wait() {
	if h == nil || h.release == nil {
		return
	}
	select {
	case h.entered <- struct{}{}:
	default:
	}
	<-h.release
}

// counter counts algorithm calls.
type counter struct {
	mu    sync.Mutex
	calls int
}

// Calls returns the number of algorithm calls.
func (c *counter) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *counter) inc() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

// Consumer is a sink algorithm which records consumed data.
type Consumer struct {
	counter
	// Chunk limits bytes consumed per call, zero consumes everything.
	Chunk int
	Fail  bool
	Hold  *Hold
	data  []byte
}

// Consume implements il.ConsumeFunc.
func (s *Consumer) Consume(in *il.Buffer) error {
	s.inc()
	s.Hold.wait()
	if s.Fail {
		return ErrMock
	}
	n := in.Filled
	if s.Chunk > 0 && s.Chunk < n {
		n = s.Chunk
	}
	s.mu.Lock()
	s.data = append(s.data, in.Payload[in.Offset:in.Offset+n]...)
	s.mu.Unlock()
	in.Offset += n
	in.Filled -= n
	return nil
}

// Data returns all consumed bytes.
func (s *Consumer) Data() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

// Producer is a source algorithm which fills buffers with a value.
type Producer struct {
	counter
	// Limit is the number of produced buffers, the last one has end of
	// stream flag.
	Limit int
	// Size of produced chunks, zero fills whole buffer.
	Size  int
	Value byte
	Hold  *Hold
	// produced buffers
	produced int
}

// Produce implements il.ProduceFunc.
func (p *Producer) Produce(out *il.Buffer) error {
	p.inc()
	p.Hold.wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Limit > 0 && p.produced >= p.Limit {
		out.Flags |= il.FlagEOS
		return nil
	}
	free := out.Free()
	n := len(free)
	if p.Size > 0 && p.Size < n {
		n = p.Size
	}
	for i := 0; i < n; i++ {
		free[i] = p.Value
	}
	out.Filled += n
	p.produced++
	if p.produced == p.Limit {
		out.Flags |= il.FlagEOS
	}
	return nil
}

// Produced returns the number of produced buffers.
func (p *Producer) Produced() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.produced
}

// Copier is a filter algorithm which copies input to output.
type Copier struct {
	counter
	Fail bool
	Hold *Hold
}

// Transform implements il.TransformFunc.
func (f *Copier) Transform(in, out *il.Buffer) error {
	f.inc()
	f.Hold.wait()
	if f.Fail {
		return ErrMock
	}
	n := copy(out.Free(), in.Bytes())
	out.Filled += n
	in.Offset += n
	in.Filled -= n
	return nil
}
