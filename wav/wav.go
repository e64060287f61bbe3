// Package wav provides il roles which read and write wav files. Buffers
// carry interleaved little-endian PCM with the bit depth of the file.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipelined.dev/il"
	"pipelined.dev/il/signal"
)

// pcmFormat is the wav audio format of integer PCM.
const pcmFormat = 1

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16 and 32 bit depth is supported")
	// ErrInvalidFile is returned when file is not a valid wav.
	ErrInvalidFile = errors.New("wav is not valid")
	// ErrShortBuffer is returned when buffer cannot fit a single frame.
	ErrShortBuffer = errors.New("buffer is smaller than a frame")
	// ErrMisaligned is returned when buffer contains partial sample.
	ErrMisaligned = errors.New("buffer is not aligned to sample size")
	// ErrPartialFrame is returned when stream ends in the middle of a frame.
	ErrPartialFrame = errors.New("stream ends with partial frame")
)

// Properties of wav stream.
type Properties struct {
	SampleRate  int
	NumChannels int
	BitDepth    int
	Duration    time.Duration
}

func (p Properties) String() string {
	return fmt.Sprintf("%d Hz, %d channels, %d bit, %v", p.SampleRate, p.NumChannels, p.BitDepth, p.Duration)
}

// FrameSize returns the size of a single frame in bytes.
func (p Properties) FrameSize() int {
	return p.NumChannels * p.BitDepth / 8
}

// Info reads properties of wav file.
func Info(path string) (Properties, error) {
	f, err := os.Open(path)
	if err != nil {
		return Properties{}, err
	}
	defer f.Close()
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Properties{}, fmt.Errorf("%s: %w", path, ErrInvalidFile)
	}
	duration, err := d.Duration()
	if err != nil {
		return Properties{}, fmt.Errorf("%s duration: %w", path, err)
	}
	return Properties{
		SampleRate:  int(d.SampleRate),
		NumChannels: int(d.NumChans),
		BitDepth:    int(d.BitDepth),
		Duration:    duration,
	}, nil
}

func validBitDepth(bitDepth int) bool {
	return signal.BitDepth(bitDepth).Supported()
}

// Source reads wav file into output buffers. File is opened when
// component enters Idle and closed when it returns to Loaded.
type Source struct {
	path    string
	file    *os.File
	decoder *wav.Decoder
	props   Properties
	ib      *audio.IntBuffer
}

// NewSource creates a new wav source.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Role returns the source role of component.
func (s *Source) Role() il.Source {
	return il.Source{
		Produce: s.produce,
		Start:   s.open,
		Stop:    s.close,
	}
}

// Properties returns properties of the opened file.
func (s *Source) Properties() Properties {
	return s.props
}

func (s *Source) open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		f.Close()
		return fmt.Errorf("%s: %w", s.path, ErrInvalidFile)
	}
	if !validBitDepth(int(d.BitDepth)) {
		f.Close()
		return fmt.Errorf("%s: %w", s.path, ErrUnsupportedBitDepth)
	}
	s.file = f
	s.decoder = d
	s.props = Properties{
		SampleRate:  int(d.SampleRate),
		NumChannels: int(d.NumChans),
		BitDepth:    int(d.BitDepth),
	}
	s.ib = &audio.IntBuffer{
		Format:         d.Format(),
		SourceBitDepth: int(d.BitDepth),
	}
	return nil
}

func (s *Source) close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file, s.decoder = nil, nil
	return err
}

// produce reads as many whole frames as fit into the buffer. Short read
// means end of stream.
func (s *Source) produce(out *il.Buffer) error {
	frame := s.props.FrameSize()
	free := out.Free()
	frames := len(free) / frame
	if frames == 0 {
		return ErrShortBuffer
	}
	samples := frames * s.props.NumChannels
	if cap(s.ib.Data) < samples {
		s.ib.Data = make([]int, samples)
	}
	s.ib.Data = s.ib.Data[:samples]
	n, err := s.decoder.PCMBuffer(s.ib)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	// keep whole frames only
	n -= n % s.props.NumChannels
	out.Filled += signal.BitDepth(s.props.BitDepth).Encode(free, s.ib.Data[:n])
	if n < samples {
		out.Flags |= il.FlagEOS
	}
	return nil
}

// Sink writes input buffers to wav file. File is created when component
// enters Idle and finalized when it returns to Loaded.
type Sink struct {
	path    string
	props   Properties
	file    *os.File
	encoder *wav.Encoder
	ib      *audio.IntBuffer
	// pending samples of a frame split between buffers.
	pending []int
}

// NewSink creates new wav sink.
func NewSink(path string, props Properties) (*Sink, error) {
	if !validBitDepth(props.BitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	return &Sink{
		path:  path,
		props: props,
	}, nil
}

// Role returns the sink role of component.
func (s *Sink) Role() il.Sink {
	return il.Sink{
		Consume: s.consume,
		Start:   s.create,
		Stop:    s.flush,
	}
}

func (s *Sink) create() error {
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	s.file = f
	s.encoder = wav.NewEncoder(f, s.props.SampleRate, s.props.BitDepth, s.props.NumChannels, pcmFormat)
	s.ib = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: s.props.NumChannels,
			SampleRate:  s.props.SampleRate,
		},
		SourceBitDepth: s.props.BitDepth,
	}
	s.pending = s.pending[:0]
	return nil
}

// flush finalizes the header and closes the file.
func (s *Sink) flush() error {
	if s.file == nil {
		return nil
	}
	defer func() {
		s.file, s.encoder = nil, nil
	}()
	if err := s.encoder.Close(); err != nil {
		s.file.Close()
		return err
	}
	if err := s.file.Close(); err != nil {
		return err
	}
	if len(s.pending) > 0 {
		return fmt.Errorf("%s: %w of %d samples", s.path, ErrPartialFrame, len(s.pending))
	}
	return nil
}

// consume writes whole frames of the buffer. Samples of the last partial
// frame are kept until the next buffer.
func (s *Sink) consume(in *il.Buffer) error {
	data := in.Bytes()
	in.Filled = 0
	bitDepth := signal.BitDepth(s.props.BitDepth)
	if len(data)%bitDepth.Size() != 0 {
		return ErrMisaligned
	}
	s.pending = bitDepth.Decode(s.pending, data)
	n := len(s.pending) - len(s.pending)%s.props.NumChannels
	if n == 0 {
		return nil
	}
	s.ib.Data = append(s.ib.Data[:0], s.pending[:n]...)
	s.pending = append(s.pending[:0], s.pending[n:]...)
	return s.encoder.Write(s.ib)
}
