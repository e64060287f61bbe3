// Package log provides the loggers used by components.
package log

import (
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/sirupsen/logrus"

	"pipelined.dev/il/internal/config"
)

// Logger is a global interface for component loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
}

type fieldLogger interface {
	WithFields(logrus.Fields) *logrus.Entry
}

// GetLogger returns a new logger instance configured from the
// environment.
func GetLogger() *logrus.Logger {
	return newLogger(config.LoadOrDefault().Log)
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	l := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.Level); err == nil {
		l.SetLevel(lvl)
	}
	if cfg.Debug {
		l.SetLevel(logrus.DebugLevel)
	}
	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}

// With attaches fields to the logger if it supports structured fields.
// Other loggers are returned as is.
func With(l Logger, fields logrus.Fields) Logger {
	if fl, ok := l.(fieldLogger); ok {
		return fl.WithFields(fields)
	}
	return l
}

// Silent returns a logger that discards everything.
func Silent() Logger {
	return silentLogger{}
}

type silentLogger struct{}

func (silentLogger) Debug(...interface{}) {}

func (silentLogger) Info(...interface{}) {}

func (silentLogger) Warn(...interface{}) {}

func (silentLogger) Error(...interface{}) {}

// Diagnostics logs warnings that can repeat for every buffer. Each
// category is rate limited on its own, so a flood of one kind does not
// hide the others.
type Diagnostics struct {
	Logger
	limiter *catrate.Limiter
}

// NewDiagnostics returns diagnostics that let through perSecond messages
// of each category every second.
func NewDiagnostics(l Logger, perSecond int) *Diagnostics {
	if perSecond < 1 {
		perSecond = 1
	}
	return &Diagnostics{
		Logger: l,
		limiter: catrate.NewLimiter(map[time.Duration]int{
			time.Second: perSecond,
		}),
	}
}

// Warnf logs the message if the category is within its rate. It reports
// whether the message was logged.
func (d *Diagnostics) Warnf(category string, args ...interface{}) bool {
	if _, ok := d.limiter.Allow(category); !ok {
		return false
	}
	d.Logger.Warn(append([]interface{}{category + ": "}, args...)...)
	return true
}
