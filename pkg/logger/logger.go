// Package logger builds the *slog.Logger used across scaffold. Library packages
// take a logger as a dependency and fall back to Nop when none is provided; the
// CLI builds a pretty stderr logger and, optionally, a JSON log file.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
}

// New creates a logger from opts. The zero configuration writes Info level
// text records to os.Stderr.
func New(opts ...Option) *slog.Logger {
	c := config{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(&c)
	}
	return slog.New(c.handler(c.output()))
}

func (c *config) output() io.Writer {
	switch len(c.writers) {
	case 0:
		return os.Stderr
	case 1:
		return c.writers[0]
	default:
		return io.MultiWriter(c.writers...)
	}
}

func (c *config) handler(w io.Writer) slog.Handler {
	ho := &slog.HandlerOptions{Level: c.level, AddSource: c.source}

	switch c.selected() {
	case formatPretty:
		return charmlog.NewWithOptions(w, charmlog.Options{
			Level:        charmlog.Level(c.level),
			ReportCaller: c.source,
		})
	case formatJSON:
		return slog.NewJSONHandler(w, ho)
	default:
		return slog.NewTextHandler(w, ho)
	}
}

// Nop returns a logger that discards every record.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

// OrNop returns l, or a Nop logger when l is nil.
func OrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
