// Package test contains helper functions useful for testing il packages.
package test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// Signal describes generated wav file.
type Signal struct {
	SampleRate  int
	NumChannels int
	BitDepth    int
	Frames      int
}

// Samples returns deterministic interleaved samples of the signal. Every
// channel gets its own ramp so swapped channels are noticed.
func (s Signal) Samples() []int {
	data := make([]int, s.Frames*s.NumChannels)
	for i := range data {
		frame, channel := i/s.NumChannels, i%s.NumChannels
		data[i] = (frame%2000 - 1000) * (channel + 1)
	}
	return data
}

// Write creates wav file with the signal in the test temp dir.
func (s Signal) Write(t testing.TB, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	e := wav.NewEncoder(f, s.SampleRate, s.BitDepth, s.NumChannels, 1)
	err = e.Write(&audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: s.NumChannels,
			SampleRate:  s.SampleRate,
		},
		Data:           s.Samples(),
		SourceBitDepth: s.BitDepth,
	})
	require.NoError(t, err)
	require.NoError(t, e.Close())
	require.NoError(t, f.Close())
	return path
}

// Read returns the signal and samples stored in wav file.
func Read(t testing.TB, path string) (Signal, []int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	d := wav.NewDecoder(f)
	require.True(t, d.IsValidFile(), "invalid wav %s", path)
	b, err := d.FullPCMBuffer()
	require.NoError(t, err)
	s := Signal{
		SampleRate:  int(d.SampleRate),
		NumChannels: int(d.NumChans),
		BitDepth:    int(d.BitDepth),
	}
	if s.NumChannels > 0 {
		s.Frames = len(b.Data) / s.NumChannels
	}
	return s, b.Data
}
