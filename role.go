package il

// ConsumeFunc consumes the input buffer. It must decrease Filled by the
// number of consumed bytes and set it to zero once the buffer is
// exhausted.
type ConsumeFunc func(in *Buffer) error

// ProduceFunc fills the output buffer. It must set Filled to the number
// of produced bytes and FlagEOS after the last chunk.
type ProduceFunc func(out *Buffer) error

// TransformFunc consumes the input buffer and appends to the output
// buffer. Output is returned to its owner as soon as it's not empty.
type TransformFunc func(in, out *Buffer) error

// HookFunc is called when component enters Idle from Loaded and when it
// returns back to Loaded.
type HookFunc func() error

// Role defines ports and algorithm of the component. It's implemented by
// Sink, Source and Filter.
type Role interface {
	directions() []Direction
	call(in, out *Buffer) error
	hooks() (start, stop HookFunc)
}

// Sink has a single input port with index 0.
type Sink struct {
	Consume ConsumeFunc
	Start   HookFunc
	Stop    HookFunc
}

// Source has a single output port with index 0.
type Source struct {
	Produce ProduceFunc
	Start   HookFunc
	Stop    HookFunc
}

// Filter has input port with index 0 and output port with index 1.
type Filter struct {
	Transform TransformFunc
	Start     HookFunc
	Stop      HookFunc
}

func (Sink) directions() []Direction {
	return []Direction{Input}
}

func (s Sink) call(in, _ *Buffer) error {
	if s.Consume == nil {
		in.Filled = 0
		return nil
	}
	return s.Consume(in)
}

func (s Sink) hooks() (HookFunc, HookFunc) {
	return s.Start, s.Stop
}

func (Source) directions() []Direction {
	return []Direction{Output}
}

func (s Source) call(_, out *Buffer) error {
	return s.Produce(out)
}

func (s Source) hooks() (HookFunc, HookFunc) {
	return s.Start, s.Stop
}

func (Filter) directions() []Direction {
	return []Direction{Input, Output}
}

func (f Filter) call(in, out *Buffer) error {
	if f.Transform == nil {
		in.Filled = 0
		return nil
	}
	return f.Transform(in, out)
}

func (f Filter) hooks() (HookFunc, HookFunc) {
	return f.Start, f.Stop
}

func callHook(fn HookFunc) error {
	if fn == nil {
		return nil
	}
	return fn()
}
