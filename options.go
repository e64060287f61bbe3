package il

import (
	"fmt"

	"pipelined.dev/il/log"
	"pipelined.dev/il/metric"
)

// Option provides a way to set functional parameters to component.
type Option func(*Component) error

// WithName sets the name of the component used in logs and metrics.
func WithName(name string) Option {
	return func(c *Component) error {
		c.name = name
		return nil
	}
}

// WithLogger sets logger to component.
func WithLogger(l log.Logger) Option {
	return func(c *Component) error {
		c.log = l
		return nil
	}
}

// WithMetric enables metrics collection.
func WithMetric(m *metric.Metric) Option {
	return func(c *Component) error {
		c.metric = m
		return nil
	}
}

// WithCallbacks sets client callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(c *Component) error {
		c.callbacks = cb
		return nil
	}
}

// WithPortDefinition overrides the default definition of the port.
func WithPortDefinition(index int, def PortDefinition) Option {
	return func(c *Component) error {
		p, err := c.anyPort(index)
		if err != nil {
			return err
		}
		if err := setDefinition(p, def); err != nil {
			return fmt.Errorf("port %d definition: %w", index, err)
		}
		return nil
	}
}
