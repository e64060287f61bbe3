package signal_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/il/signal"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		bitDepth signal.BitDepth
		samples  []int
		payload  []byte
	}{
		{
			bitDepth: signal.BitDepth16,
			samples:  []int{0, 1, -1, math.MaxInt16, math.MinInt16},
			payload:  []byte{0, 0, 1, 0, 0xff, 0xff, 0xff, 0x7f, 0, 0x80},
		},
		{
			bitDepth: signal.BitDepth32,
			samples:  []int{1, -2},
			payload:  []byte{1, 0, 0, 0, 0xfe, 0xff, 0xff, 0xff},
		},
	}
	for _, test := range tests {
		payload := make([]byte, len(test.payload)+3)
		n := test.bitDepth.Encode(payload, test.samples)
		assert.Equal(t, len(test.payload), n)
		assert.Equal(t, test.payload, payload[:n])

		// trailing partial sample is ignored
		samples := test.bitDepth.Decode(nil, payload[:n+1])
		assert.Equal(t, test.samples, samples)
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		bitDepth signal.BitDepth
		value    float64
		expected int
	}{
		{signal.BitDepth16, 1.6, 2},
		{signal.BitDepth16, -1.6, -2},
		{signal.BitDepth16, 40000, math.MaxInt16},
		{signal.BitDepth16, -40000, math.MinInt16},
		{signal.BitDepth32, 1e10, math.MaxInt32},
		{signal.BitDepth32, -1e10, math.MinInt32},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, test.bitDepth.Clip(test.value))
	}
	assert.Panics(t, func() { signal.BitDepth(8).Clip(0) })
}

func TestBitDepth(t *testing.T) {
	assert.True(t, signal.BitDepth16.Supported())
	assert.True(t, signal.BitDepth32.Supported())
	assert.False(t, signal.BitDepth(24).Supported())
	assert.Equal(t, 2, signal.BitDepth16.Size())
	assert.Equal(t, 4, signal.BitDepth32.Size())
}

func TestDurationOf(t *testing.T) {
	assert.Equal(t, time.Second, signal.DurationOf(44100, 44100))
	assert.Equal(t, 500*time.Millisecond, signal.DurationOf(8000, 4000))
}
