package il

import "fmt"

// EventType identifies the event raised to the client.
type EventType int

// Event types.
const (
	// EventCmdComplete is raised when a command is done.
	EventCmdComplete EventType = iota
	// EventError is raised when a command or processing fails.
	EventError
	// EventMark is raised when a marked buffer reaches its target.
	EventMark
	// EventBufferFlag is raised when a buffer with end of stream is
	// processed.
	EventBufferFlag
)

func (t EventType) String() string {
	switch t {
	case EventCmdComplete:
		return "cmd_complete"
	case EventError:
		return "error"
	case EventMark:
		return "mark"
	case EventBufferFlag:
		return "buffer_flag"
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// Command identifies a command sent to the component.
type Command int

// Commands.
const (
	CommandStateSet Command = iota
	CommandFlush
	CommandPortDisable
	CommandPortEnable
	CommandMarkBuffer
)

func (c Command) String() string {
	switch c {
	case CommandStateSet:
		return "state set"
	case CommandFlush:
		return "flush"
	case CommandPortDisable:
		return "port disable"
	case CommandPortEnable:
		return "port enable"
	case CommandMarkBuffer:
		return "mark buffer"
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// Event is raised by the component to the client.
type Event struct {
	Type    EventType
	Command Command
	// Port is the port index of port commands, mark and buffer flag
	// events.
	Port  int
	State State
	Flags Flag
	// Data is the mark data of EventMark.
	Data interface{}
	Err  error
}

// Callbacks are used by component to notify the client. All of them are
// optional. Callbacks are called from component goroutines and must not
// block.
type Callbacks struct {
	EventHandler func(*Component, Event)
	// EmptyBufferDone returns consumed input buffer to the client.
	EmptyBufferDone func(*Component, *Buffer)
	// FillBufferDone returns filled output buffer to the client.
	FillBufferDone func(*Component, *Buffer)
}

// raise notifies the client about the event. Must not be called with any
// lock held.
func (c *Component) raise(e Event) {
	c.meter.Event(e.Type.String())
	if c.callbacks.EventHandler != nil {
		c.callbacks.EventHandler(c, e)
	}
}

func (c *Component) raiseError(port int, err error) {
	c.raise(Event{Type: EventError, Port: port, Err: err})
}
