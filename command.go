package il

import "fmt"

// command is passed into component's command channel.
type command struct {
	kind  Command
	close bool
	state State
	port  int
	mark  Mark
	errc  chan error
}

// SetState sends a state transition command.
func (c *Component) SetState(s State) chan error {
	if s < StateInvalid || s > StatePause {
		return failed(fmt.Errorf("%w: state %v", ErrBadParameter, s))
	}
	switch {
	case s == StateIdle:
		c.pendingIdle.Add(1)
	case s == StateLoaded && c.State() == StateLoaded && c.pendingIdle.Load() > 0:
		// population of ports is awaited in control goroutine, so the
		// cancellation bypasses the command channel
		c.cancel.Store(true)
		c.notifyPool()
	}
	return c.send(command{kind: CommandStateSet, state: s})
}

// Flush sends a command to return all buffers of the port to their
// owners. Use AllPorts to flush every port.
func (c *Component) Flush(port int) chan error {
	return c.portCommand(CommandFlush, port)
}

// DisablePort sends a command to flush the port and wait until its
// buffers are freed.
func (c *Component) DisablePort(port int) chan error {
	return c.portCommand(CommandPortDisable, port)
}

// EnablePort sends a command to wait until the port is populated and
// resume its buffer exchange.
func (c *Component) EnablePort(port int) chan error {
	return c.portCommand(CommandPortEnable, port)
}

// MarkBuffer sends a command to attach the mark to the next buffer
// processed by the component.
func (c *Component) MarkBuffer(port int, m Mark) chan error {
	if _, err := c.anyPort(port); err != nil {
		return failed(err)
	}
	return c.send(command{kind: CommandMarkBuffer, port: port, mark: m})
}

// Close stops the control goroutine of the component. It's allowed in
// Loaded and Invalid states. Commands sent after close fail with
// ErrInvalidState.
func (c *Component) Close() chan error {
	return c.send(command{close: true})
}

func (c *Component) portCommand(kind Command, port int) chan error {
	if _, err := c.selectPorts(port); err != nil {
		return failed(err)
	}
	return c.send(command{kind: kind, port: port})
}

func (c *Component) send(cmd command) chan error {
	cmd.errc = make(chan error, 1)
	select {
	case c.commands <- cmd:
	case <-c.done:
		cmd.errc <- ErrInvalidState
		close(cmd.errc)
	}
	return cmd.errc
}

func failed(err error) chan error {
	errc := make(chan error, 1)
	errc <- err
	close(errc)
	return errc
}

// Wait for command to complete or first error to occur.
func Wait(errc chan error) error {
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

// control executes commands until component is closed.
func (c *Component) control() {
	defer close(c.done)
	for cmd := range c.commands {
		if cmd.close {
			if err := c.close(); err != nil {
				cmd.errc <- err
				close(cmd.errc)
				continue
			}
			close(cmd.errc)
			return
		}
		err := c.execute(cmd)
		if cmd.kind == CommandStateSet && cmd.state == StateIdle {
			c.pendingIdle.Add(-1)
		}
		if err != nil {
			c.log.Warn(fmt.Sprintf("%v %v failed: %v", c, cmd.kind, err))
			c.raise(Event{Type: EventError, Command: cmd.kind, Port: cmd.port, State: cmd.state, Err: err})
			cmd.errc <- err
		}
		close(cmd.errc)
	}
}

func (c *Component) execute(cmd command) error {
	if cmd.kind == CommandStateSet {
		if err := c.transition(cmd.state); err != nil {
			return err
		}
		c.raise(Event{Type: EventCmdComplete, Command: cmd.kind, State: cmd.state})
		return nil
	}

	switch s := c.State(); {
	case s == StateInvalid:
		return ErrInvalidState
	case s == StateLoaded && (cmd.kind == CommandFlush || cmd.kind == CommandMarkBuffer):
		return fmt.Errorf("%w: %v in %v", ErrIncorrectState, cmd.kind, s)
	}
	ports, err := c.selectPorts(cmd.port)
	if err != nil {
		return err
	}
	switch cmd.kind {
	case CommandFlush:
		c.flushPorts(ports)
	case CommandPortDisable:
		c.disable(ports)
	case CommandPortEnable:
		if err := c.enable(ports); err != nil {
			return err
		}
	case CommandMarkBuffer:
		c.mu.Lock()
		c.marks = append(c.marks, cmd.mark)
		c.mu.Unlock()
		c.raise(Event{Type: EventCmdComplete, Command: cmd.kind, Port: cmd.port})
		return nil
	}
	for _, p := range ports {
		c.raise(Event{Type: EventCmdComplete, Command: cmd.kind, Port: p.index})
	}
	if cmd.kind == CommandFlush {
		c.resume(ports)
	}
	return nil
}

// close stops processing goroutine if component was invalidated while
// running.
func (c *Component) close() error {
	switch s := c.State(); s {
	case StateLoaded, StateInvalid:
	default:
		return fmt.Errorf("%w: close in %v", ErrIncorrectState, s)
	}
	if c.loopDone != nil {
		c.closing.Store(true)
		c.interrupt()
		<-c.loopDone
		c.loopDone = nil
	}
	c.log.Debug(fmt.Sprintf("%v closed", c))
	return nil
}
