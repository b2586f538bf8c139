package logger

import (
	"io"
	"log/slog"
)

type format int

const (
	formatText format = iota
	formatJSON
	formatPretty
)

// Option configures a logger created with New.
type Option func(*config)

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(c *config) { c.level = level }
}

// WithDebug is WithLevel(slog.LevelDebug) when true and WithLevel(slog.LevelInfo)
// otherwise.
func WithDebug(debug bool) Option {
	if debug {
		return WithLevel(slog.LevelDebug)
	}
	return WithLevel(slog.LevelInfo)
}

// WithPretty selects the colorized charmbracelet/log handler. It takes
// precedence over WithJSON regardless of order.
func WithPretty(pretty bool) Option {
	return func(c *config) { c.pretty = pretty }
}

// WithJSON selects slog's JSON handler.
func WithJSON(json bool) Option {
	return func(c *config) { c.json = json }
}

// WithWriter replaces the output writers with w.
func WithWriter(w io.Writer) Option {
	return WithWriters(w)
}

// WithWriters writes every record to all of ws.
func WithWriters(ws ...io.Writer) Option {
	return func(c *config) { c.writers = ws }
}

// WithSource adds the caller's file:line to records.
func WithSource(source bool) Option {
	return func(c *config) { c.source = source }
}

func (c *config) selected() format {
	switch {
	case c.pretty:
		return formatPretty
	case c.json:
		return formatJSON
	default:
		return formatText
	}
}
