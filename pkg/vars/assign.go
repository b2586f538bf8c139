package vars

import (
	"fmt"
	"strings"
)

// ParseAssignments turns CLI style key=value pairs into a nested variable map.
// Dotted keys create nested maps: "db.host=localhost" -> {"db": {"host": ...}}.
func ParseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable assignment %q (expected key=value)", pair)
		}
		if !nameRe.MatchString(key) {
			return nil, fmt.Errorf("invalid variable name %q", key)
		}
		if err := SetPath(out, key, value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SetPath stores value at the dotted path in variables, creating intermediate
// maps as needed.
func SetPath(variables map[string]any, path string, value any) error {
	keys := strings.Split(path, ".")
	current := variables

	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key]
		if !ok {
			m := make(map[string]any)
			current[key] = m
			current = m
			continue
		}

		m, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot set %q: %q is not a map", path, key)
		}
		current = m
	}

	current[keys[len(keys)-1]] = value
	return nil
}

// Merge returns a new map with overlay applied on top of base. Nested maps are
// merged recursively; any other overlay value replaces the base value.
func Merge(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}

	for k, v := range overlay {
		bm, bok := out[k].(map[string]any)
		om, ook := v.(map[string]any)
		if bok && ook {
			out[k] = Merge(bm, om)
			continue
		}
		out[k] = v
	}

	return out
}
