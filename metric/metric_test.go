package metric_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"pipelined.dev/il/metric"
)

func TestMeter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metric.New(reg)
	sink := m.Meter("sink")
	src := m.Meter("source")

	sink.Processed(time.Millisecond)
	sink.Processed(time.Millisecond)
	sink.Returned(0)
	sink.Flushed(0, 3)
	sink.Flushed(0, 0)
	sink.Event("mark")
	sink.Queued(0, 2)
	src.Returned(0)

	n, err := testutil.GatherAndCount(reg, "il_buffers_processed_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	expected := 2
	got, err := testutil.GatherAndCount(reg, "il_buffers_returned_total")
	assert.NoError(t, err)
	assert.Equal(t, expected, got)

	got, err = testutil.GatherAndCount(reg, "il_buffers_flushed_total", "il_events_total", "il_buffers_queued")
	assert.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestNilMeter(t *testing.T) {
	var m *metric.Metric
	meter := m.Meter("nil")
	assert.Nil(t, meter)
	// must not panic
	meter.Processed(time.Second)
	meter.Returned(1)
	meter.Flushed(1, 1)
	meter.Event("error")
	meter.Queued(1, 1)
}
