// Package pipeline connects components into a chain of tunnels and drives
// them through state transitions together.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pipelined.dev/il"
	"pipelined.dev/il/log"
	"pipelined.dev/il/metric"
)

// Line defines the roles of chained components. It has a single source,
// zero or many filters and a single sink.
type Line struct {
	Source  il.Source
	Filters []il.Filter
	Sink    il.Sink
}

// Pipeline is a chain of tunneled components.
type Pipeline struct {
	id       string
	log      log.Logger
	metric   *metric.Metric
	supplier il.Direction
	count    int
	size     int

	components []*il.Component

	mu    sync.Mutex
	eos   chan struct{}
	ended bool
	errc  chan error
}

// Option provides a way to set functional parameters to pipeline.
type Option func(*Pipeline) error

// WithLogger sets logger to pipeline and its components.
func WithLogger(l log.Logger) Option {
	return func(p *Pipeline) error {
		p.log = l
		return nil
	}
}

// WithMetric enables metrics collection of all components.
func WithMetric(m *metric.Metric) Option {
	return func(p *Pipeline) error {
		p.metric = m
		return nil
	}
}

// WithSupplier sets which side of every tunnel allocates buffers. Output
// is used by default.
func WithSupplier(d il.Direction) Option {
	return func(p *Pipeline) error {
		if d != il.Input && d != il.Output {
			return fmt.Errorf("%w: supplier %v", il.ErrBadParameter, d)
		}
		p.supplier = d
		return nil
	}
}

// WithBuffers sets buffer count and size of every port.
func WithBuffers(count, size int) Option {
	return func(p *Pipeline) error {
		if count <= 0 || size <= 0 {
			return fmt.Errorf("%w: %d buffers of %d bytes", il.ErrBadParameter, count, size)
		}
		p.count, p.size = count, size
		return nil
	}
}

// New creates components of the line and tunnels them. Returned
// pipeline is in Loaded state.
func New(l Line, options ...Option) (*Pipeline, error) {
	p := &Pipeline{
		id:       xid.New().String(),
		supplier: il.Output,
		eos:      make(chan struct{}),
		errc:     make(chan error, 1),
	}
	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}
	if p.log == nil {
		p.log = log.GetLogger()
	}
	p.log = log.With(p.log, logrus.Fields{"pipeline": p.id})

	roles := []il.Role{l.Source}
	names := []string{"source"}
	for i := range l.Filters {
		roles = append(roles, l.Filters[i])
		names = append(names, fmt.Sprintf("filter%d", i))
	}
	roles = append(roles, l.Sink)
	names = append(names, "sink")

	for i, role := range roles {
		c, err := il.New(role, p.componentOptions(names[i], role)...)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("%s: %w", names[i], err)
		}
		p.components = append(p.components, c)
	}
	for i := 1; i < len(p.components); i++ {
		out, in := p.components[i-1], p.components[i]
		if err := il.SetupTunnel(out, out.NumPorts()-1, in, 0, p.supplier); err != nil {
			p.Close()
			return nil, fmt.Errorf("tunnel %v to %v: %w", out, in, err)
		}
	}
	p.log.Debug(fmt.Sprintf("pipeline of %d components created", len(p.components)))
	return p, nil
}

func (p *Pipeline) componentOptions(name string, role il.Role) []il.Option {
	options := []il.Option{
		il.WithName(name),
		il.WithLogger(p.log),
		il.WithMetric(p.metric),
		il.WithCallbacks(il.Callbacks{EventHandler: p.handle}),
	}
	if p.count == 0 {
		return options
	}
	directions := []il.Direction{il.Input, il.Output}
	switch role.(type) {
	case il.Source:
		directions = []il.Direction{il.Output}
	case il.Sink:
		directions = []il.Direction{il.Input}
	}
	for i, d := range directions {
		options = append(options, il.WithPortDefinition(i, il.PortDefinition{
			Direction:   d,
			BufferCount: p.count,
			BufferSize:  p.size,
			Domain:      il.DomainAudio,
		}))
	}
	return options
}

// Components returns the chain from source to sink.
func (p *Pipeline) Components() []*il.Component {
	return p.components
}

func (p *Pipeline) sink() *il.Component {
	return p.components[len(p.components)-1]
}

// handle is the event handler of all components. It's called from
// component goroutines.
func (p *Pipeline) handle(c *il.Component, e il.Event) {
	switch e.Type {
	case il.EventBufferFlag:
		if c != p.sink() || e.Flags&il.FlagEOS == 0 {
			return
		}
		p.mu.Lock()
		if !p.ended {
			p.ended = true
			close(p.eos)
		}
		p.mu.Unlock()
		p.log.Debug(fmt.Sprintf("%v reached end of stream", c))
	case il.EventError:
		select {
		case p.errc <- fmt.Errorf("%v: %w", c, e.Err):
		default:
		}
	}
}

// reset prepares end of stream and error signals for a new run.
func (p *Pipeline) reset() {
	p.mu.Lock()
	if p.ended {
		p.eos = make(chan struct{})
		p.ended = false
	}
	p.mu.Unlock()
	select {
	case <-p.errc:
	default:
	}
}

// Start moves all components to Idle and then to Executing. If any
// component fails, the pipeline is returned to Loaded.
func (p *Pipeline) Start() error {
	p.reset()
	var cancel sync.Once
	err := p.transition(il.StateIdle, func(failed *il.Component) {
		// peers of failed component never get populated
		cancel.Do(func() { p.cancelIdle(failed) })
	})
	if err != nil {
		p.rollback()
		return fmt.Errorf("pipeline idle: %w", err)
	}
	if err := p.transition(il.StateExecuting, nil); err != nil {
		p.rollback()
		return fmt.Errorf("pipeline execute: %w", err)
	}
	p.log.Info("pipeline started")
	return nil
}

// Wait blocks until sink reaches end of stream, any component reports an
// error or context is done.
func (p *Pipeline) Wait(ctx context.Context) error {
	p.mu.Lock()
	eos := p.eos
	p.mu.Unlock()
	select {
	case <-eos:
		return nil
	case err := <-p.errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop moves executing pipeline to Idle and then to Loaded.
func (p *Pipeline) Stop() error {
	if err := p.transition(il.StateIdle, nil); err != nil {
		p.rollback()
		return fmt.Errorf("pipeline idle: %w", err)
	}
	if err := p.transition(il.StateLoaded, nil); err != nil {
		return fmt.Errorf("pipeline loaded: %w", err)
	}
	p.log.Info("pipeline stopped")
	return nil
}

// Run starts the pipeline, waits for the end of stream and stops it.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Start(); err != nil {
		return err
	}
	var e errs
	e.add(p.Wait(ctx))
	e.add(p.Stop())
	return e.ret()
}

// Close releases all components. Pipeline must be in Loaded state.
func (p *Pipeline) Close() error {
	var e errs
	for _, c := range p.components {
		e.add(il.Wait(c.Close()))
	}
	return e.ret()
}

// transition moves all components into the state concurrently. Tunneled
// components wait for each other, so all commands are sent before waiting.
// onError is called when component fails.
func (p *Pipeline) transition(s il.State, onError func(*il.Component)) error {
	errcs := make([]chan error, len(p.components))
	for i, c := range p.components {
		errcs[i] = c.SetState(s)
	}
	results := make([]error, len(p.components))
	var g errgroup.Group
	for i, c := range p.components {
		g.Go(func() error {
			if err := il.Wait(errcs[i]); err != nil {
				results[i] = fmt.Errorf("%v: %w", c, err)
				if onError != nil {
					onError(c)
				}
			}
			return results[i]
		})
	}
	first := g.Wait()
	if first == nil {
		return nil
	}
	// cancellations are caused by other failures
	var e errs
	for _, err := range results {
		if err != nil && !errors.Is(err, il.ErrCanceled) {
			e.add(err)
		}
	}
	if len(e) == 0 {
		return first
	}
	return e.ret()
}

// cancelIdle requests Loaded from every component except the failed one.
// It cancels the pending population of their ports.
func (p *Pipeline) cancelIdle(failed *il.Component) {
	for _, c := range p.components {
		if c != failed && c.State() == il.StateLoaded {
			c.SetState(il.StateLoaded)
		}
	}
}

// rollback returns all components to Loaded. Components which are
// already there are skipped.
func (p *Pipeline) rollback() {
	for _, s := range []il.State{il.StateIdle, il.StateLoaded} {
		var g errgroup.Group
		for _, c := range p.components {
			switch c.State() {
			case il.StateExecuting, il.StatePause:
			case il.StateIdle:
				if s == il.StateIdle {
					continue
				}
			default:
				continue
			}
			g.Go(func() error {
				return il.Wait(c.SetState(s))
			})
		}
		if err := g.Wait(); err != nil {
			p.log.Warn(fmt.Sprintf("pipeline rollback to %v: %v", s, err))
		}
	}
}

// errs wraps errors that might occur when multiple components are
// failing.
type errs []error

func (e *errs) add(err error) {
	if err != nil {
		*e = append(*e, err)
	}
}

func (e errs) Error() string {
	s := []string{}
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

func (e errs) Unwrap() []error {
	return e
}

// ret returns untyped nil if error is list is empty.
func (e errs) ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
