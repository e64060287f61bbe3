// Package volume provides a filter which scales PCM samples by a gain.
package volume

import (
	"errors"

	"pipelined.dev/il"
	"pipelined.dev/il/signal"
)

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16 and 32 bit depth is supported")
	// ErrShortBuffer is returned when output buffer cannot fit a sample.
	ErrShortBuffer = errors.New("output buffer is smaller than a sample")
)

// Gain scales samples by Value. Results out of the range of bit depth are
// clipped.
type Gain struct {
	Value    float64
	bitDepth signal.BitDepth
	samples  []int
}

// New returns a gain for samples of given bit depth.
func New(value float64, bitDepth int) (*Gain, error) {
	d := signal.BitDepth(bitDepth)
	if !d.Supported() {
		return nil, ErrUnsupportedBitDepth
	}
	return &Gain{
		Value:    value,
		bitDepth: d,
	}, nil
}

// Role returns the filter role of component.
func (g *Gain) Role() il.Filter {
	return il.Filter{Transform: g.Transform}
}

// Transform implements il.TransformFunc. It processes as many whole samples
// as fit into the output buffer.
func (g *Gain) Transform(in, out *il.Buffer) error {
	size := g.bitDepth.Size()
	n := in.Filled
	if free := len(out.Free()); free < n {
		n = free
	}
	n -= n % size
	if n == 0 {
		if in.Filled >= size {
			return ErrShortBuffer
		}
		// partial sample left
		in.Filled = 0
		return nil
	}
	g.samples = g.bitDepth.Decode(g.samples[:0], in.Bytes()[:n])
	for i, v := range g.samples {
		g.samples[i] = g.bitDepth.Clip(float64(v) * g.Value)
	}
	out.Filled += g.bitDepth.Encode(out.Free(), g.samples)
	in.Offset += n
	in.Filled -= n
	return nil
}
