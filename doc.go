/*
Package il implements components that exchange data buffers through ports.

Concept

A component has one or two ports and a processing goroutine. Buffers are
submitted to a port, wait in its queue and are claimed by the processing
goroutine in submission order. The goroutine hands them to the component's
algorithm and gives them back to their owner once they are done:

    Sink - consumes input buffers;
    Source - produces output buffers;
    Filter - transforms input buffers into output buffers.

The owner of a buffer is either the client, notified with the
EmptyBufferDone and FillBufferDone callbacks, or a tunneled peer component.
Two tunneled ports exchange buffers directly. One of them, the supplier,
allocates the buffers and keeps them when they are not in use.

Commands

Components are driven with commands which are executed asynchronously by
a control goroutine:

    SetState - Loaded, Idle, Executing, Pause transitions;
    Flush - return all buffers of a port to their owners;
    DisablePort and EnablePort - take a port out of the exchange;
    MarkBuffer - attach a mark to the next processed buffer.

Every command returns a channel which receives an error if command failed
and is closed when it's done. Use Wait to block until then:

    err := il.Wait(c.SetState(il.StateIdle))

Completion of every command is also reported as EventCmdComplete.

Transition from Loaded to Idle completes only when every enabled port is
populated. Requesting Loaded before that cancels it with ErrCanceled.

Flush

Flush is safe while the processing goroutine holds a buffer of the flushed
port, is blocked waiting for another port or is paused. Every blocking wait
of the processing goroutine observes a cancellation token, so it gives the
buffers of a flushed port back and waits until the flush completes.
*/
package il
