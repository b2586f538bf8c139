package template

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/papercomputeco/scaffold/pkg/vars"
)

// VariableError reports a provided value that violates its declaration.
type VariableError struct {
	Name   string
	Reason string
}

func (e *VariableError) Error() string {
	return fmt.Sprintf("variable %q: %s", e.Name, e.Reason)
}

// ResolveVariables merges provided over the template's declared defaults and
// checks every declaration: required variables must end with a value, and
// present values must satisfy type, pattern and enum. Missing required
// variables fail with vars.MissingVariableError.
func ResolveVariables(t *Template, provided map[string]any) (map[string]any, error) {
	out := vars.Merge(map[string]any{}, provided)

	var errs []error
	for _, decl := range t.Variables {
		value, ok := vars.Lookup(out, decl.Name)
		if !ok && decl.Default != nil {
			if err := vars.SetPath(out, decl.Name, decl.Default); err != nil {
				errs = append(errs, err)
				continue
			}
			value, ok = decl.Default, true
		}

		if !ok {
			if decl.Required {
				errs = append(errs, vars.MissingVariableError{Name: decl.Name})
			}
			continue
		}

		if err := checkValue(decl, value, out); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// checkValue validates value against decl. CLI values arrive as strings, so
// number and boolean declarations accept their string forms and store the
// converted value back into out.
func checkValue(decl Variable, value any, out map[string]any) error {
	switch decl.Type {
	case VarNumber:
		if s, ok := value.(string); ok {
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return &VariableError{Name: decl.Name, Reason: fmt.Sprintf("%q is not a number", s)}
			}
			value = n
			if err := vars.SetPath(out, decl.Name, n); err != nil {
				return err
			}
		}
		switch value.(type) {
		case int, int64, float64, float32, int32:
		default:
			return &VariableError{Name: decl.Name, Reason: fmt.Sprintf("expected number, got %T", value)}
		}
	case VarBoolean:
		if s, ok := value.(string); ok {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return &VariableError{Name: decl.Name, Reason: fmt.Sprintf("%q is not a boolean", s)}
			}
			value = b
			if err := vars.SetPath(out, decl.Name, b); err != nil {
				return err
			}
		}
		if _, ok := value.(bool); !ok {
			return &VariableError{Name: decl.Name, Reason: fmt.Sprintf("expected boolean, got %T", value)}
		}
	}

	text := fmt.Sprint(value)

	if decl.Pattern != "" {
		re, err := regexp.Compile(decl.Pattern)
		if err != nil {
			return &VariableError{Name: decl.Name, Reason: fmt.Sprintf("invalid pattern: %v", err)}
		}
		if !re.MatchString(text) {
			return &VariableError{Name: decl.Name, Reason: fmt.Sprintf("%q does not match %s", text, decl.Pattern)}
		}
	}

	if len(decl.Enum) > 0 && !slices.Contains(decl.Enum, text) {
		return &VariableError{Name: decl.Name, Reason: fmt.Sprintf("%q is not one of %v", text, decl.Enum)}
	}

	return nil
}
