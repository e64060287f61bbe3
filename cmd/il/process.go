package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"pipelined.dev/il"
	"pipelined.dev/il/internal/config"
	"pipelined.dev/il/log"
	"pipelined.dev/il/pipeline"
	"pipelined.dev/il/volume"
	"pipelined.dev/il/wav"
)

type processCommand struct {
	in      string
	out     string
	gain    float64
	buffers int
	size    int
}

func (cmd *processCommand) Name() string {
	return "process"
}

func (cmd *processCommand) Help() string {
	return "Apply gain to wav file"
}

func (cmd *processCommand) Register(fs *flag.FlagSet) {
	defaults := config.LoadOrDefault().Buffer
	fs.StringVar(&cmd.in, "in", "", "input wav file to process (required)")
	fs.StringVar(&cmd.out, "out", "", "output wav file to save processed audio (required)")
	fs.Float64Var(&cmd.gain, "gain", 1, "gain applied to samples")
	fs.IntVar(&cmd.buffers, "buffers", defaults.Count, "number of buffers per tunnel")
	fs.IntVar(&cmd.size, "size", defaults.Size, "size of buffer in bytes")
}

func (cmd *processCommand) Run(out io.Writer) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	props, err := wav.Info(cmd.in)
	if err != nil {
		return err
	}
	// buffers carry whole frames only
	size := cmd.size - cmd.size%props.FrameSize()
	if size == 0 {
		return fmt.Errorf("buffer size %d is less than frame size %d", cmd.size, props.FrameSize())
	}
	sink, err := wav.NewSink(cmd.out, props)
	if err != nil {
		return err
	}
	gain, err := volume.New(cmd.gain, props.BitDepth)
	if err != nil {
		return err
	}
	p, err := pipeline.New(
		pipeline.Line{
			Source:  wav.NewSource(cmd.in).Role(),
			Filters: []il.Filter{gain.Role()},
			Sink:    sink.Role(),
		},
		pipeline.WithLogger(log.GetLogger()),
		pipeline.WithBuffers(cmd.buffers, size),
	)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := p.Run(ctx); err != nil {
		p.Close()
		return err
	}
	if err := p.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %v, gain %v\n", cmd.out, props, cmd.gain)
	return nil
}

func (cmd *processCommand) validate() error {
	var missing []string
	if cmd.in == "" {
		missing = append(missing, "-in")
	}
	if cmd.out == "" {
		missing = append(missing, "-out")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s required flags", strings.Join(missing, ", "))
	}
	if cmd.buffers <= 0 || cmd.size <= 0 {
		return fmt.Errorf("invalid %d buffers of %d bytes", cmd.buffers, cmd.size)
	}
	return nil
}
