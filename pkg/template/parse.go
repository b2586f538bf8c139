package template

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format is an authoring file format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONC Format = "jsonc"
	FormatYAML  Format = "yaml"
)

// FilesDir is the directory next to an authoring document whose entries
// File.Source refers to.
const FilesDir = "files"

// definitionNames are probed, in order, when loading a template directory.
var definitionNames = []string{
	"template.json",
	"template.jsonc",
	"template.yaml",
	"template.yml",
}

// ErrNoDefinition is returned when a template directory holds no definition
// document.
var ErrNoDefinition = errors.New("no template definition found")

// FormatForPath infers the authoring format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonc":
		return FormatJSONC, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported template format %q", filepath.Ext(path))
	}
}

// Parse decodes an authoring document of the given format.
func Parse(data []byte, format Format) (*Template, error) {
	t := &Template{}

	switch format {
	case FormatJSON, FormatJSONC:
		// jsonc.ToJSON is a superset transform: plain JSON passes through.
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(t); err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", format, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(t); err != nil {
			return nil, fmt.Errorf("parsing yaml template: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported template format %q", format)
	}

	return t, nil
}

// Load reads a template from an authoring file or a directory containing
// template.{json,jsonc,yaml,yml}. File sources under files/ are inlined and
// the result is validated.
func Load(path string) (*Template, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}

	docPath := path
	if info.IsDir() {
		docPath, err = findDefinition(path)
		if err != nil {
			return nil, err
		}
	}

	format, err := FormatForPath(docPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", docPath, err)
	}

	t, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", docPath, err)
	}

	if err := inlineSources(t, filepath.Join(filepath.Dir(docPath), FilesDir)); err != nil {
		return nil, err
	}

	if err := Validate(t); err != nil {
		return nil, err
	}

	return t, nil
}

func findDefinition(dir string) (string, error) {
	for _, name := range definitionNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s: %w", dir, ErrNoDefinition)
}

func inlineSources(t *Template, filesDir string) error {
	for i := range t.Files {
		f := &t.Files[i]
		if f.Source == "" {
			continue
		}
		if f.Content != "" {
			return fmt.Errorf("file %q: content and source are mutually exclusive", f.Path)
		}

		src := filepath.Clean(filepath.FromSlash(f.Source))
		if filepath.IsAbs(src) || src == ".." || strings.HasPrefix(src, ".."+string(filepath.Separator)) {
			return fmt.Errorf("file %q: source %q escapes %s/", f.Path, f.Source, FilesDir)
		}

		data, err := os.ReadFile(filepath.Join(filesDir, src))
		if err != nil {
			return fmt.Errorf("inlining source for %q: %w", f.Path, err)
		}

		f.Content = string(data)
		f.Source = ""
	}
	return nil
}
