package il

import "errors"

var (
	// ErrBadPortIndex is returned if port doesn't exist or has unexpected
	// direction.
	ErrBadPortIndex = errors.New("bad port index")
	// ErrBadParameter is returned if argument is not valid.
	ErrBadParameter = errors.New("bad parameter")
	// ErrIncorrectStateTransition is returned if state cannot be reached
	// from the current one.
	ErrIncorrectStateTransition = errors.New("incorrect state transition")
	// ErrIncorrectState is returned if operation is not allowed in the
	// current state.
	ErrIncorrectState = errors.New("incorrect state operation")
	// ErrInsufficientResources is returned if buffer cannot be added to
	// the port pool.
	ErrInsufficientResources = errors.New("insufficient resources")
	// ErrPortDisabled is returned if buffer is submitted to disabled port.
	ErrPortDisabled = errors.New("port disabled")
	// ErrQueueFull is returned if port already queues all its buffers.
	ErrQueueFull = errors.New("port queue is full")
	// ErrNotTunneled is returned if port has no tunnel.
	ErrNotTunneled = errors.New("port is not tunneled")
	// ErrTunnelingUnsupported is returned if ports cannot be tunneled.
	ErrTunnelingUnsupported = errors.New("tunneling unsupported")
	// ErrSameState is returned if component is already in requested state.
	ErrSameState = errors.New("same state")
	// ErrInvalidState is returned if component is invalid or closed.
	ErrInvalidState = errors.New("invalid state")
	// ErrCanceled is returned if transition to Idle was canceled by a
	// transition back to Loaded.
	ErrCanceled = errors.New("command canceled")
)
