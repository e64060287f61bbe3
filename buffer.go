package il

import "fmt"

// Direction of a port.
type Direction int

// Port directions.
const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Flag is a set of buffer flags.
type Flag uint32

// Buffer flags.
const (
	// FlagEOS marks the last buffer of the stream.
	FlagEOS Flag = 1 << iota
	FlagStartTime
	FlagDecodeOnly
	FlagDataCorrupt
	FlagEndOfFrame
)

// Buffer is a header of a data chunk. Exactly one side owns it at any
// moment: the client, a port queue, the processing goroutine or a tunneled
// peer. Ownership is transferred by EmptyThisBuffer, FillThisBuffer and the
// done callbacks.
type Buffer struct {
	Payload []byte
	// Filled is the number of valid bytes starting at Offset.
	Filled    int
	Offset    int
	Flags     Flag
	Timestamp int64

	// MarkTarget is the component that raises EventMark when it processes
	// this buffer. Other components pass the mark downstream.
	MarkTarget *Component
	MarkData   interface{}

	// AppPrivate is never touched by components.
	AppPrivate interface{}

	InputPort  int
	OutputPort int
}

// Bytes returns the valid part of the payload.
func (b *Buffer) Bytes() []byte {
	return b.Payload[b.Offset : b.Offset+b.Filled]
}

// Free returns the part of the payload after the valid bytes.
func (b *Buffer) Free() []byte {
	return b.Payload[b.Offset+b.Filled:]
}

// Has checks if all flags are set.
func (b *Buffer) Has(f Flag) bool {
	return b.Flags&f == f
}

func (b *Buffer) clearMark() {
	b.MarkTarget = nil
	b.MarkData = nil
}

// reset prepares output buffer to be filled.
func (b *Buffer) reset() {
	b.Filled = 0
	b.Offset = 0
	b.Flags = 0
	b.Timestamp = 0
	b.clearMark()
}

// Mark identifies the component which raises EventMark when a marked
// buffer reaches it.
type Mark struct {
	Target *Component
	Data   interface{}
}
