// Package corelog provides the leveled, structured logger used by the
// providers and the sync engine. Pure components (worldstate, planner,
// builder, workflow) never import this package — per the propagation policy,
// they return typed failures and leave logging to the caller.
package corelog

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the structured logger interface the core depends on, narrowed to
// the handful of methods providers and the sync engine actually call.
type Logger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
	Error(msg interface{}, keyvals ...interface{})
	With(keyvals ...interface{}) Logger
}

type charmLogger struct {
	l *log.Logger
}

// New creates the default structured logger, writing to stderr at the given
// level ("debug", "info", "warn", "error"; defaults to "info").
func New(level string) Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	l.SetLevel(parseLevel(level))
	return &charmLogger{l: l}
}

func parseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func (c *charmLogger) Debug(msg interface{}, keyvals ...interface{}) { c.l.Debug(msg, keyvals...) }
func (c *charmLogger) Info(msg interface{}, keyvals ...interface{})  { c.l.Info(msg, keyvals...) }
func (c *charmLogger) Warn(msg interface{}, keyvals ...interface{})  { c.l.Warn(msg, keyvals...) }
func (c *charmLogger) Error(msg interface{}, keyvals ...interface{}) { c.l.Error(msg, keyvals...) }
func (c *charmLogger) With(keyvals ...interface{}) Logger {
	return &charmLogger{l: c.l.With(keyvals...)}
}

// Nop returns a logger that discards everything, useful for pure-component
// tests that accept a Logger but assert nothing about its output.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(interface{}, ...interface{}) {}
func (nopLogger) Info(interface{}, ...interface{})  {}
func (nopLogger) Warn(interface{}, ...interface{})  {}
func (nopLogger) Error(interface{}, ...interface{}) {}
func (n nopLogger) With(...interface{}) Logger      { return n }
