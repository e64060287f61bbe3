package volume_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/il"
	"pipelined.dev/il/signal"
	"pipelined.dev/il/volume"
)

func payload(bitDepth signal.BitDepth, samples ...int) []byte {
	b := make([]byte, len(samples)*bitDepth.Size())
	bitDepth.Encode(b, samples)
	return b
}

func TestGain(t *testing.T) {
	tests := []struct {
		bitDepth int
		value    float64
		in       []int
		expected []int
	}{
		{
			bitDepth: 16,
			value:    0.5,
			in:       []int{100, -100, 3},
			expected: []int{50, -50, 2},
		},
		{
			bitDepth: 16,
			value:    2,
			in:       []int{20000, -20000, 1},
			expected: []int{math.MaxInt16, math.MinInt16, 2},
		},
		{
			bitDepth: 32,
			value:    -1,
			in:       []int{7, math.MinInt32},
			expected: []int{-7, math.MaxInt32},
		},
	}
	for _, test := range tests {
		g, err := volume.New(test.value, test.bitDepth)
		require.NoError(t, err)
		d := signal.BitDepth(test.bitDepth)
		data := payload(d, test.in...)
		in := &il.Buffer{Payload: data, Filled: len(data)}
		out := &il.Buffer{Payload: make([]byte, len(data))}
		require.NoError(t, g.Transform(in, out))
		assert.Equal(t, 0, in.Filled)
		assert.Equal(t, test.expected, d.Decode(nil, out.Bytes()))
	}
}

func TestGainSplitsInput(t *testing.T) {
	g, err := volume.New(1, 16)
	require.NoError(t, err)
	data := payload(signal.BitDepth16, 1, 2, 3, 4, 5)
	in := &il.Buffer{Payload: data, Filled: len(data)}

	var result []int
	for in.Filled > 0 {
		// odd size only fits whole samples
		out := &il.Buffer{Payload: make([]byte, 5)}
		require.NoError(t, g.Transform(in, out))
		assert.Zero(t, out.Filled%2)
		assert.LessOrEqual(t, out.Filled, 4)
		result = signal.BitDepth16.Decode(result, out.Bytes())
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, result)
}

func TestGainEdgeCases(t *testing.T) {
	_, err := volume.New(1, 24)
	assert.ErrorIs(t, err, volume.ErrUnsupportedBitDepth)

	g, err := volume.New(1, 32)
	require.NoError(t, err)

	in := &il.Buffer{Payload: []byte{1, 2, 3}, Filled: 3}
	require.NoError(t, g.Transform(in, &il.Buffer{Payload: make([]byte, 8)}))
	assert.Equal(t, 0, in.Filled, "partial sample is dropped")

	in = &il.Buffer{Payload: make([]byte, 8), Filled: 8}
	err = g.Transform(in, &il.Buffer{Payload: make([]byte, 2)})
	assert.ErrorIs(t, err, volume.ErrShortBuffer)

	f := g.Role()
	assert.NotNil(t, f.Transform)
}
