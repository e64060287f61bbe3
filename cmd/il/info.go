package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"pipelined.dev/il/wav"
)

type infoCommand struct {
	in string
}

func (cmd *infoCommand) Name() string {
	return "info"
}

func (cmd *infoCommand) Help() string {
	return "Print properties of wav file"
}

func (cmd *infoCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.in, "in", "", "input wav file (required)")
}

func (cmd *infoCommand) Run(out io.Writer) error {
	if cmd.in == "" {
		return errors.New("missing -in required flag")
	}
	props, err := wav.Info(cmd.in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %v\n", cmd.in, props)
	return nil
}
