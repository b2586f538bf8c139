package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/scaffold/pkg/fsprovider"
	"github.com/papercomputeco/scaffold/pkg/template"
)

// PredicateInput is what a custom check sees.
type PredicateInput struct {
	// Root is the absolute project root.
	Root string

	// Path is the rule target relative to the project root, slash separated.
	Path string

	// AbsPath is Path resolved against Root.
	AbsPath string

	Rule      template.Rule
	Variables map[string]any
	FS        fsprovider.Provider
}

// Violation is one failure reported by a custom check.
type Violation struct {
	Path    string
	Message string
}

// Predicate implements a custom rule, selected by the rule's check name.
type Predicate interface {
	Check(ctx context.Context, in PredicateInput) ([]Violation, error)
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(ctx context.Context, in PredicateInput) ([]Violation, error)

func (f PredicateFunc) Check(ctx context.Context, in PredicateInput) ([]Violation, error) {
	return f(ctx, in)
}

// BuiltinPredicates are registered on every engine.
func BuiltinPredicates() map[string]Predicate {
	return map[string]Predicate{
		"not_empty":   PredicateFunc(notEmpty),
		"valid_json":  PredicateFunc(validJSON),
		"valid_jsonc": PredicateFunc(validJSONC),
		"valid_yaml":  PredicateFunc(validYAML),
	}
}

func readTarget(in PredicateInput) ([]byte, []Violation, error) {
	exists, err := in.FS.Exists(in.AbsPath)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, []Violation{{Path: in.Path, Message: in.Path + " does not exist"}}, nil
	}
	data, err := in.FS.ReadFile(in.AbsPath)
	return data, nil, err
}

func notEmpty(_ context.Context, in PredicateInput) ([]Violation, error) {
	data, v, err := readTarget(in)
	if err != nil || v != nil {
		return v, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Violation{{Path: in.Path, Message: in.Path + " is empty"}}, nil
	}
	return nil, nil
}

func validJSON(_ context.Context, in PredicateInput) ([]Violation, error) {
	data, v, err := readTarget(in)
	if err != nil || v != nil {
		return v, err
	}
	if !json.Valid(data) {
		return []Violation{{Path: in.Path, Message: in.Path + " is not valid JSON"}}, nil
	}
	return nil, nil
}

func validJSONC(_ context.Context, in PredicateInput) ([]Violation, error) {
	data, v, err := readTarget(in)
	if err != nil || v != nil {
		return v, err
	}
	if !json.Valid(jsonc.ToJSON(data)) {
		return []Violation{{Path: in.Path, Message: in.Path + " is not valid JSONC"}}, nil
	}
	return nil, nil
}

func validYAML(_ context.Context, in PredicateInput) ([]Violation, error) {
	data, v, err := readTarget(in)
	if err != nil || v != nil {
		return v, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return []Violation{{Path: in.Path, Message: fmt.Sprintf("%s is not valid YAML: %v", in.Path, err)}}, nil
	}
	return nil, nil
}
