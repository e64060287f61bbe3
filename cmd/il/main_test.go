package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pipelined.dev/il/test"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("github.com/joeycumines/go-catrate.(*Limiter).worker"),
		goleak.IgnoreAnyFunction("os/signal.signal_recv"),
		goleak.IgnoreAnyFunction("os/signal.loop"),
	)
}

func runArgs(args ...string) (int, string) {
	var out bytes.Buffer
	a := app{
		args: append([]string{"il"}, args...),
		out:  &out,
	}
	return a.run(), out.String()
}

func TestInit(t *testing.T) {
	// check if commands are registered
	assert.Len(t, commands(), 2)

	code, out := runArgs()
	assert.Equal(t, errorExitCode, code)
	assert.Contains(t, out, "process")
	assert.Contains(t, out, "info")

	code, _ = runArgs("unknown")
	assert.Equal(t, errorExitCode, code)
}

func TestInfo(t *testing.T) {
	s := test.Signal{SampleRate: 44100, NumChannels: 2, BitDepth: 16, Frames: 441}
	in := s.Write(t, "in.wav")

	code, out := runArgs("info", "-in", in)
	assert.Equal(t, successExitCode, code, out)
	assert.Contains(t, out, "44100 Hz, 2 channels, 16 bit")

	code, out = runArgs("info")
	assert.Equal(t, errorExitCode, code)
	assert.Contains(t, out, "missing -in")
}

func TestProcess(t *testing.T) {
	tests := []struct {
		signal test.Signal
		gain   string
		size   string
		expect func(int) int
	}{
		{
			signal: test.Signal{SampleRate: 44100, NumChannels: 2, BitDepth: 16, Frames: 3000},
			gain:   "2",
			size:   "1001",
			expect: func(v int) int { return v * 2 },
		},
		{
			signal: test.Signal{SampleRate: 8000, NumChannels: 1, BitDepth: 32, Frames: 500},
			gain:   "-1",
			size:   "64",
			expect: func(v int) int { return -v },
		},
	}
	for _, tt := range tests {
		in := tt.signal.Write(t, "in.wav")
		out := filepath.Join(t.TempDir(), "out.wav")
		code, msg := runArgs("process", "-in", in, "-out", out, "-gain", tt.gain, "-buffers", "3", "-size", tt.size)
		require.Equal(t, successExitCode, code, msg)

		written, samples := test.Read(t, out)
		assert.Equal(t, tt.signal, written)
		expected := tt.signal.Samples()
		for i := range expected {
			expected[i] = tt.expect(expected[i])
		}
		assert.Equal(t, expected, samples)
	}
}

func TestProcessInvalid(t *testing.T) {
	code, out := runArgs("process", "-in", "in.wav")
	assert.Equal(t, errorExitCode, code)
	assert.Contains(t, out, "-out")

	s := test.Signal{SampleRate: 44100, NumChannels: 2, BitDepth: 16, Frames: 10}
	in := s.Write(t, "in.wav")
	code, out = runArgs("process", "-in", in, "-out", filepath.Join(t.TempDir(), "out.wav"), "-size", "3")
	assert.Equal(t, errorExitCode, code)
	assert.Contains(t, out, "less than frame size")

	code, _ = runArgs("process", "-unknown")
	assert.Equal(t, errorExitCode, code)
}
