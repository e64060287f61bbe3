// Package signal provides conversions of interleaved integer PCM. Payload
// of audio buffers is little-endian signed samples of some bit depth.
package signal

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// BitDepth is the number of bits per sample.
type BitDepth int

const (
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// Supported reports if payload of this bit depth can be converted.
func (d BitDepth) Supported() bool {
	return d == BitDepth16 || d == BitDepth32
}

// Size returns the size of sample in bytes.
func (d BitDepth) Size() int {
	return int(d) / 8
}

// Clip limits the value to the range of bit depth.
func (d BitDepth) Clip(v float64) int {
	var max float64
	switch d {
	case BitDepth16:
		max = math.MaxInt16
	case BitDepth32:
		max = math.MaxInt32
	default:
		panic(fmt.Sprintf("signal: unsupported %d bit depth", d))
	}
	switch {
	case v > max:
		return int(max)
	case v < -max-1:
		return int(-max - 1)
	}
	return int(math.Round(v))
}

// Encode writes samples to dst and returns number of written bytes. The
// dst must fit all samples.
func (d BitDepth) Encode(dst []byte, samples []int) int {
	switch d {
	case BitDepth16:
		for i, v := range samples {
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(int16(v)))
		}
	case BitDepth32:
		for i, v := range samples {
			binary.LittleEndian.PutUint32(dst[i*4:], uint32(int32(v)))
		}
	default:
		panic(fmt.Sprintf("signal: unsupported %d bit depth", d))
	}
	return len(samples) * d.Size()
}

// Decode appends samples of payload to dst. Trailing partial sample is
// ignored.
func (d BitDepth) Decode(dst []int, payload []byte) []int {
	switch d {
	case BitDepth16:
		for i := 0; i+2 <= len(payload); i += 2 {
			dst = append(dst, int(int16(binary.LittleEndian.Uint16(payload[i:]))))
		}
	case BitDepth32:
		for i := 0; i+4 <= len(payload); i += 4 {
			dst = append(dst, int(int32(binary.LittleEndian.Uint32(payload[i:]))))
		}
	default:
		panic(fmt.Sprintf("signal: unsupported %d bit depth", d))
	}
	return dst
}

// DurationOf returns time duration of passed samples for this sample rate.
func DurationOf(sampleRate int, samples int64) time.Duration {
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}
