package il_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pipelined.dev/il"
	"pipelined.dev/il/log"
	"pipelined.dev/il/mock"
)

const (
	timeout = 2 * time.Second
	tick    = time.Millisecond
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/joeycumines/go-catrate.(*Limiter).worker"))
}

func newComponent(t *testing.T, role il.Role, client *mock.Client, defs ...il.PortDefinition) *il.Component {
	t.Helper()
	options := []il.Option{
		il.WithLogger(log.Silent()),
		il.WithCallbacks(client.Callbacks()),
	}
	for i, def := range defs {
		options = append(options, il.WithPortDefinition(i, def))
	}
	c, err := il.New(role, options...)
	require.NoError(t, err)
	return c
}

// load moves component to Idle and allocates client buffers on every
// port which is not tunneled.
func load(t *testing.T, c *il.Component) [][]*il.Buffer {
	t.Helper()
	errc := c.SetState(il.StateIdle)
	bufs := make([][]*il.Buffer, c.NumPorts())
	for i := range bufs {
		if _, _, err := c.Tunnel(i); err == nil {
			continue
		}
		def, err := c.PortDefinition(i)
		require.NoError(t, err)
		for j := 0; j < def.BufferCount; j++ {
			b, err := c.AllocateBuffer(i, def.BufferSize)
			require.NoError(t, err)
			bufs[i] = append(bufs[i], b)
		}
	}
	require.NoError(t, il.Wait(errc))
	return bufs
}

// unload moves idle component to Loaded, frees the buffers and closes
// the component. Buffers held by component are freed once they are
// returned.
func unload(t *testing.T, c *il.Component, bufs [][]*il.Buffer) {
	t.Helper()
	errc := c.SetState(il.StateLoaded)
	for i := range bufs {
		for _, b := range bufs[i] {
			require.Eventually(t, func() bool {
				return c.FreeBuffer(i, b) == nil
			}, timeout, tick)
		}
	}
	require.NoError(t, il.Wait(errc))
	require.NoError(t, il.Wait(c.Close()))
}

// setState moves all components to the state concurrently.
func setState(t *testing.T, s il.State, components ...*il.Component) {
	t.Helper()
	var errcs []chan error
	for _, c := range components {
		errcs = append(errcs, c.SetState(s))
	}
	for _, errc := range errcs {
		require.NoError(t, il.Wait(errc))
	}
}

func fill(b *il.Buffer, v byte) {
	for i := range b.Payload {
		b.Payload[i] = v
	}
	b.Offset = 0
	b.Filled = len(b.Payload)
}

func status(t *testing.T, c *il.Component, port int) il.PortStatus {
	t.Helper()
	s, err := c.PortStatus(port)
	require.NoError(t, err)
	return s
}
