package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pipelined.dev/il"
	"pipelined.dev/il/log"
	"pipelined.dev/il/metric"
	"pipelined.dev/il/mock"
	"pipelined.dev/il/pipeline"
)

const timeout = 2 * time.Second

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/joeycumines/go-catrate.(*Limiter).worker"))
}

func TestRun(t *testing.T) {
	run := func(supplier il.Direction, filters int) func(*testing.T) {
		return func(t *testing.T) {
			producer := &mock.Producer{Limit: 10, Size: 4, Value: 7}
			consumer := &mock.Consumer{Chunk: 3}
			line := pipeline.Line{
				Source: il.Source{Produce: producer.Produce},
				Sink:   il.Sink{Consume: consumer.Consume},
			}
			copiers := make([]*mock.Copier, filters)
			for i := range copiers {
				copiers[i] = &mock.Copier{}
				line.Filters = append(line.Filters, il.Filter{Transform: copiers[i].Transform})
			}
			p, err := pipeline.New(line,
				pipeline.WithLogger(log.Silent()),
				pipeline.WithSupplier(supplier),
				pipeline.WithBuffers(2, 4),
			)
			require.NoError(t, err)
			assert.Len(t, p.Components(), filters+2)

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			require.NoError(t, p.Run(ctx))
			assert.Equal(t, 10, producer.Produced())
			for _, c := range p.Components() {
				assert.Equal(t, il.StateLoaded, c.State())
			}
			require.NoError(t, p.Close())
		}
	}
	t.Run("output supplier", run(il.Output, 0))
	t.Run("input supplier", run(il.Input, 0))
	t.Run("filters", run(il.Output, 2))
}

func TestRunConsumesAllData(t *testing.T) {
	producer := &mock.Producer{Limit: 5, Size: 4, Value: 1}
	consumer := &mock.Consumer{}
	copier := &mock.Copier{}
	p, err := pipeline.New(pipeline.Line{
		Source:  il.Source{Produce: producer.Produce},
		Filters: []il.Filter{{Transform: copier.Transform}},
		Sink:    il.Sink{Consume: consumer.Consume},
	}, pipeline.WithLogger(log.Silent()), pipeline.WithBuffers(3, 4))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	require.NoError(t, p.Run(ctx))
	data := consumer.Data()
	assert.Len(t, data, 20)
	for _, v := range data {
		assert.Equal(t, byte(1), v)
	}
	require.NoError(t, p.Close())
}

func TestRunCanceled(t *testing.T) {
	producer := &mock.Producer{Size: 4}
	p, err := pipeline.New(pipeline.Line{
		Source: il.Source{Produce: producer.Produce},
		Sink:   il.Sink{},
	}, pipeline.WithLogger(log.Silent()), pipeline.WithBuffers(2, 4))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = p.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, producer.Produced(), 0)
	require.NoError(t, p.Close())
}

func TestRunCallbackError(t *testing.T) {
	producer := &mock.Producer{Size: 4}
	consumer := &mock.Consumer{Fail: true}
	p, err := pipeline.New(pipeline.Line{
		Source: il.Source{Produce: producer.Produce},
		Sink:   il.Sink{Consume: consumer.Consume},
	}, pipeline.WithLogger(log.Silent()), pipeline.WithBuffers(2, 4))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	assert.ErrorIs(t, p.Run(ctx), mock.ErrMock)
	require.NoError(t, p.Close())
}

func TestStartFailure(t *testing.T) {
	run := func(supplier il.Direction) func(*testing.T) {
		return func(t *testing.T) {
			producer := &mock.Producer{Size: 4}
			copier := &mock.Copier{}
			p, err := pipeline.New(pipeline.Line{
				Source: il.Source{
					Produce: producer.Produce,
					Start:   func() error { return mock.ErrMock },
				},
				Filters: []il.Filter{{Transform: copier.Transform}},
				Sink:    il.Sink{},
			}, pipeline.WithLogger(log.Silent()), pipeline.WithSupplier(supplier))
			require.NoError(t, err)

			assert.ErrorIs(t, p.Start(), mock.ErrMock)
			for _, c := range p.Components() {
				assert.Equal(t, il.StateLoaded, c.State())
				for i := 0; i < c.NumPorts(); i++ {
					s, err := c.PortStatus(i)
					require.NoError(t, err)
					assert.Zero(t, s.Buffers)
				}
			}
			assert.Zero(t, producer.Calls())
			require.NoError(t, p.Close())
		}
	}
	t.Run("output supplier", run(il.Output))
	t.Run("input supplier", run(il.Input))
}

func TestNew(t *testing.T) {
	_, err := pipeline.New(pipeline.Line{}, pipeline.WithLogger(log.Silent()))
	assert.ErrorIs(t, err, il.ErrBadParameter)

	line := pipeline.Line{
		Source: il.Source{Produce: (&mock.Producer{}).Produce},
	}
	_, err = pipeline.New(line, pipeline.WithBuffers(0, 4))
	assert.ErrorIs(t, err, il.ErrBadParameter)
	_, err = pipeline.New(line, pipeline.WithSupplier(il.Direction(5)))
	assert.ErrorIs(t, err, il.ErrBadParameter)
}

func TestMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	producer := &mock.Producer{Limit: 3, Size: 4}
	p, err := pipeline.New(pipeline.Line{
		Source: il.Source{Produce: producer.Produce},
		Sink:   il.Sink{},
	},
		pipeline.WithLogger(log.Silent()),
		pipeline.WithMetric(metric.New(reg)),
		pipeline.WithBuffers(2, 4),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	require.NoError(t, p.Run(ctx))
	require.NoError(t, p.Close())

	n, err := testutil.GatherAndCount(reg, "il_buffers_processed_total")
	require.NoError(t, err)
	// one series per component
	assert.Equal(t, 2, n)
}
