// Package vars implements scaffold's placeholder substitution.
//
// Placeholders take the form {{name}}, where name may be a dotted path into
// nested variable maps. Pipe segments after the name are either a named case
// transform (lower, upper, capitalize, kebab, snake, camel, pascal) or a literal
// default used when the variable is absent:
//
//	{{project.name}}
//	{{env|production}}
//	{{name|My App|kebab}}
//
// The built-ins date, timestamp and uuid are always available.
package vars

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	placeholderRe = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)
	nameRe        = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_\-]*(\.[A-Za-z0-9_\-]+)*$`)
)

// Built-in variable names.
const (
	BuiltinDate      = "date"
	BuiltinTimestamp = "timestamp"
	BuiltinUUID      = "uuid"
)

// MissingVariableError is returned in strict mode when a placeholder has no
// value and no default.
type MissingVariableError struct {
	Name string
}

func (e MissingVariableError) Error() string {
	return "missing variable: " + e.Name
}

// Engine substitutes placeholders. The zero value is not usable, use New.
type Engine struct {
	strict  bool
	now     func() time.Time
	newUUID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrict controls whether missing variables are an error (the default) or
// substitute as the empty string.
func WithStrict(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// WithClock overrides the time source for the date and timestamp built-ins.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithUUIDFunc overrides the generator for the uuid built-in.
func WithUUIDFunc(fn func() string) Option {
	return func(e *Engine) {
		e.newUUID = fn
	}
}

// New creates an Engine in strict mode.
func New(opts ...Option) *Engine {
	e := &Engine{
		strict:  true,
		now:     time.Now,
		newUUID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strict reports whether the engine fails on missing variables.
func (e *Engine) Strict() bool {
	return e.strict
}

// placeholder is a parsed {{...}} expression.
type placeholder struct {
	name       string
	def        string
	hasDefault bool
	transforms []string
}

func parsePlaceholder(expr string) (placeholder, bool) {
	parts := strings.Split(expr, "|")
	p := placeholder{name: strings.TrimSpace(parts[0])}
	if !nameRe.MatchString(p.name) {
		return p, false
	}

	for _, seg := range parts[1:] {
		seg = strings.TrimSpace(seg)
		if _, ok := transforms[seg]; ok {
			p.transforms = append(p.transforms, seg)
			continue
		}
		if !p.hasDefault {
			p.def = seg
			p.hasDefault = true
		}
	}
	return p, true
}

// Substitute replaces every placeholder in text. Built-ins are computed once
// per call, so repeated {{uuid}} placeholders in one text agree with each other
// but not with other calls.
func (e *Engine) Substitute(text string, variables map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	builtins := e.builtins()
	var firstErr error

	out := placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		if firstErr != nil {
			return match
		}

		sub := placeholderRe.FindStringSubmatch(match)
		p, ok := parsePlaceholder(sub[1])
		if !ok {
			return match
		}

		value, found := Lookup(variables, p.name)
		if !found {
			value, found = builtins.get(p.name)
		}

		var s string
		switch {
		case found:
			s = format(value)
		case p.hasDefault:
			s = p.def
		case e.strict:
			firstErr = MissingVariableError{Name: p.name}
			return match
		}

		for _, name := range p.transforms {
			s = transforms[name](s)
		}
		return s
	})

	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// ExtractVariables returns the base variable names referenced by text in order
// of first occurrence, without duplicates, defaults or transforms.
func ExtractVariables(text string) []string {
	var names []string
	seen := make(map[string]bool)

	for _, sub := range placeholderRe.FindAllStringSubmatch(text, -1) {
		p, ok := parsePlaceholder(sub[1])
		if !ok || seen[p.name] {
			continue
		}
		seen[p.name] = true
		names = append(names, p.name)
	}

	return names
}

// SubstituteInPath substitutes each slash separated segment of path. A
// segment that resolves to an empty string, "." or "..", or that would
// introduce a new separator, is rejected.
func (e *Engine) SubstituteInPath(path string, variables map[string]any) (string, error) {
	segments := strings.Split(strings.ReplaceAll(path, "\\", "/"), "/")

	for i, seg := range segments {
		if !strings.Contains(seg, "{{") {
			continue
		}

		resolved, err := e.Substitute(seg, variables)
		if err != nil {
			return "", fmt.Errorf("substituting path %q: %w", path, err)
		}

		if resolved == "" || resolved == "." || resolved == ".." || strings.ContainsAny(resolved, `/\`) {
			return "", fmt.Errorf("path segment %q of %q resolved to invalid name %q", seg, path, resolved)
		}
		segments[i] = resolved
	}

	return strings.Join(segments, "/"), nil
}

type builtinSet struct {
	e     *Engine
	cache map[string]string
}

func (e *Engine) builtins() *builtinSet {
	return &builtinSet{e: e, cache: make(map[string]string, 3)}
}

func (b *builtinSet) get(name string) (any, bool) {
	if v, ok := b.cache[name]; ok {
		return v, true
	}

	var v string
	switch name {
	case BuiltinDate:
		v = b.e.now().Format("2006-01-02")
	case BuiltinTimestamp:
		v = b.e.now().Format(time.RFC3339)
	case BuiltinUUID:
		v = b.e.newUUID()
	default:
		return nil, false
	}

	b.cache[name] = v
	return v, true
}

// Lookup resolves a dotted path in a nested variable map. An exact key match
// takes precedence over traversal, so {"a.b": 1} resolves "a.b" directly.
func Lookup(variables map[string]any, path string) (any, bool) {
	if variables == nil {
		return nil, false
	}

	if v, ok := variables[path]; ok && v != nil {
		return v, true
	}

	var current any = variables
	for _, key := range strings.Split(path, ".") {
		switch m := current.(type) {
		case map[string]any:
			v, ok := m[key]
			if !ok {
				return nil, false
			}
			current = v
		case map[string]string:
			v, ok := m[key]
			if !ok {
				return nil, false
			}
			current = v
		case map[any]any:
			v, ok := m[key]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}

	if current == nil {
		return nil, false
	}
	return current, true
}

func format(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(val)
	case fmt.Stringer:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
