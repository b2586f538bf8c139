package scaffold

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/scaffold/pkg/conflict"
	"github.com/papercomputeco/scaffold/pkg/fsprovider"
	"github.com/papercomputeco/scaffold/pkg/manifest"
	"github.com/papercomputeco/scaffold/pkg/template"
	"github.com/papercomputeco/scaffold/pkg/vars"
)

// CycleError reports templates that depend on each other.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Chain, " -> ")
}

// ApplyOptions selects a template and how to apply it.
type ApplyOptions struct {
	// Ref is an alias, full hash or short hash.
	Ref string

	// Variables override the project variables for this application.
	Variables map[string]any

	// RootFolder overrides the template rootFolder, relative to the project
	// root. It applies to dependencies too.
	RootFolder string

	// Policy overrides the template conflict policy.
	Policy conflict.Policy
}

// CreateOptions describes a new project.
type CreateOptions struct {
	ApplyOptions

	// Dir is the project directory. It is created if missing.
	Dir string

	// ProjectName defaults to the base name of Dir.
	ProjectName string
}

// Result describes one create or extend.
type Result struct {
	Root      string
	Manifest  *manifest.Manifest
	Applied   []manifest.AppliedTemplate
	Changes   []manifest.ChangeRecord
	Conflicts []manifest.ConflictRecord
}

// planned is one template to apply, dependencies first.
type planned struct {
	hash       string
	tpl        *template.Template
	dependency bool
}

// rendered is a planned template with its paths and content substituted.
type rendered struct {
	planned
	rootFolder string
	variables  map[string]any
	builtins   manifest.Builtins
	folders    []renderedFolder
	files      []renderedFile
}

type renderedFolder struct {
	rel     string
	gitkeep bool
}

type renderedFile struct {
	rel     string
	content []byte
	perm    fs.FileMode
}

// Create initialises a project at opts.Dir and applies the template and its
// dependencies to it.
func (s *Service) Create(ctx context.Context, opts CreateOptions) (*Result, error) {
	plan, err := s.plan(ctx, opts.Ref)
	if err != nil {
		return nil, err
	}

	if _, err := s.render(&manifest.Manifest{}, plan, opts.ApplyOptions); err != nil {
		return nil, err
	}

	root, err := s.fs.ResolvePath(opts.Dir)
	if err != nil {
		return nil, err
	}
	name := opts.ProjectName
	if name == "" {
		name = filepath.Base(root)
	}

	if _, err := s.Init(root, name, nil); err != nil {
		return nil, err
	}
	return s.apply(ctx, root, manifest.ActionCreate, plan, opts.ApplyOptions)
}

// Extend applies a template to the project containing start.
func (s *Service) Extend(ctx context.Context, start string, opts ApplyOptions) (*Result, error) {
	loc, err := s.locate(start)
	if err != nil {
		return nil, err
	}

	plan, err := s.plan(ctx, opts.Ref)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, loc.ProjectPath, manifest.ActionExtend, plan, opts)
}

// plan resolves ref and its dependencies depth first.
func (s *Service) plan(ctx context.Context, ref string) ([]planned, error) {
	const (
		visiting = iota + 1
		done
	)

	var (
		out   []planned
		chain []string
		state = map[string]int{}
	)

	var visit func(ref string, dependency bool) error
	visit = func(ref string, dependency bool) error {
		hash, tpl, err := s.templates.Get(ctx, ref)
		if err != nil {
			return fmt.Errorf("resolving template %q: %w", ref, err)
		}

		switch state[hash] {
		case done:
			return nil
		case visiting:
			return &CycleError{Chain: append(append([]string(nil), chain...), tpl.Name)}
		}

		state[hash] = visiting
		chain = append(chain, tpl.Name)
		for _, dep := range tpl.Dependencies {
			if err := visit(dep, true); err != nil {
				return err
			}
		}
		chain = chain[:len(chain)-1]
		state[hash] = done

		out = append(out, planned{hash: hash, tpl: tpl, dependency: dependency})
		return nil
	}

	if err := visit(ref, false); err != nil {
		return nil, err
	}
	return out, nil
}

// render resolves variables and substitutes every path and file of the plan
// against m without touching the file system. Dependencies already active at
// their root are dropped.
func (s *Service) render(m *manifest.Manifest, plan []planned, opts ApplyOptions) ([]rendered, error) {
	provided := vars.Merge(m.Variables, opts.Variables)
	now := s.now().UTC()

	out := make([]rendered, 0, len(plan))
	for _, p := range plan {
		rootFolder := cleanRoot(p.tpl.RootFolder)
		if opts.RootFolder != "" {
			rootFolder = cleanRoot(opts.RootFolder)
		}

		existing := m.FindActive(p.hash, rootFolder)
		if p.dependency && existing != nil {
			s.logger.Debug("dependency already applied", "hash", p.hash, "root", rootFolder)
			continue
		}

		resolved, err := template.ResolveVariables(p.tpl, provided)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", p.tpl.Name, err)
		}

		r := rendered{
			planned:    p,
			rootFolder: rootFolder,
			variables:  resolved,
			builtins:   manifest.Builtins{UUID: uuid.NewString(), Time: now},
		}
		if existing != nil && existing.Builtins != nil {
			r.builtins = *existing.Builtins
		}

		if err := s.renderOne(&r); err != nil {
			return nil, fmt.Errorf("template %s: %w", p.tpl.Name, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Service) renderOne(r *rendered) error {
	subst := vars.New(
		vars.WithStrict(s.strictVars),
		vars.WithClock(func() time.Time { return r.builtins.Time }),
		vars.WithUUIDFunc(func() string { return r.builtins.UUID }),
	)

	for _, d := range r.tpl.Folders {
		rel, err := subst.SubstituteInPath(d.Path, r.variables)
		if err != nil {
			return fmt.Errorf("folder %q: %w", d.Path, err)
		}
		rel, err = within(r.rootFolder, rel)
		if err != nil {
			return err
		}
		r.folders = append(r.folders, renderedFolder{rel: rel, gitkeep: d.Gitkeep})
	}

	for _, f := range r.tpl.Files {
		rel, err := subst.SubstituteInPath(f.Path, r.variables)
		if err != nil {
			return fmt.Errorf("file %q: %w", f.Path, err)
		}
		rel, err = within(r.rootFolder, rel)
		if err != nil {
			return err
		}

		text, err := subst.Substitute(f.Content, r.variables)
		if err != nil {
			return fmt.Errorf("file %q: %w", f.Path, err)
		}

		perm := fsprovider.FilePerm
		if f.Executable {
			perm = fsprovider.ExecPerm
		}
		r.files = append(r.files, renderedFile{rel: rel, content: []byte(text), perm: perm})
	}
	return nil
}

func (s *Service) apply(ctx context.Context, root string, action manifest.Action, plan []planned, opts ApplyOptions) (*Result, error) {
	res := &Result{Root: root}

	m, err := s.manifests.Update(root, func(m *manifest.Manifest) error {
		batch, err := s.render(m, plan, opts)
		if err != nil {
			return err
		}

		resolvedAll := map[string]any{}
		var hashes []string

		for _, r := range batch {
			at, changes, conflicts, err := s.write(ctx, root, m, r, opts.Policy)
			if err != nil {
				return fmt.Errorf("applying template %s: %w", r.tpl.Name, err)
			}

			m.Apply(at)
			for _, c := range conflicts {
				m.AddConflict(r.hash, r.rootFolder, c)
			}
			if applied := m.FindActive(r.hash, r.rootFolder); applied != nil {
				res.Applied = append(res.Applied, *applied)
			}

			resolvedAll = vars.Merge(resolvedAll, r.variables)
			res.Changes = append(res.Changes, changes...)
			res.Conflicts = append(res.Conflicts, conflicts...)
			hashes = append(hashes, r.hash)
		}

		m.Variables = vars.Merge(m.Variables, resolvedAll)
		m.AddHistory(s.manifests.NewHistoryEntry(action, hashes, res.Changes))
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Manifest = m
	return res, nil
}

// write puts one rendered template's folders and files on disk.
func (s *Service) write(
	ctx context.Context,
	root string,
	m *manifest.Manifest,
	r rendered,
	policy conflict.Policy,
) (manifest.AppliedTemplate, []manifest.ChangeRecord, []manifest.ConflictRecord, error) {
	resolver := s.resolver.WithPolicy(conflict.Effective(policy, conflict.Policy(r.tpl.Rules.ConflictResolution), s.resolver.Policy()))

	builtins := r.builtins
	at := manifest.AppliedTemplate{
		TemplateHash: r.hash,
		Name:         r.tpl.Name,
		Version:      r.tpl.Version,
		RootFolder:   r.rootFolder,
		AppliedAt:    s.now().UTC(),
		AppliedBy:    s.actor,
		Status:       manifest.StatusActive,
		Builtins:     &builtins,
		Files:        map[string]string{},
	}

	var (
		changes   []manifest.ChangeRecord
		conflicts []manifest.ConflictRecord
	)
	change := func(typ manifest.ChangeType, rel string) {
		changes = append(changes, manifest.ChangeRecord{Type: typ, Path: rel, TemplateHash: r.hash})
	}
	abs := func(rel string) string {
		return filepath.Join(root, filepath.FromSlash(rel))
	}

	if r.rootFolder != "" {
		created, err := s.ensureDir(abs(r.rootFolder))
		if err != nil {
			return at, nil, nil, err
		}
		if created {
			change(manifest.ChangeCreate, r.rootFolder)
		}
	}

	for _, d := range r.folders {
		if err := ctx.Err(); err != nil {
			return at, nil, nil, err
		}

		created, err := s.ensureDir(abs(d.rel))
		if err != nil {
			return at, nil, nil, err
		}
		if created {
			change(manifest.ChangeCreate, d.rel)
		}

		if d.gitkeep {
			keep := path.Join(d.rel, ".gitkeep")
			exists, err := s.fs.Exists(abs(keep))
			if err != nil {
				return at, nil, nil, err
			}
			if !exists {
				if err := s.fs.WriteFile(abs(keep), nil, fsprovider.FilePerm); err != nil {
					return at, nil, nil, err
				}
				change(manifest.ChangeCreate, keep)
			}
			at.Files[keep] = conflict.Checksum(nil)
		}
	}

	for _, f := range r.files {
		if err := ctx.Err(); err != nil {
			return at, nil, nil, err
		}

		rel, content := f.rel, f.content
		if _, err := s.ensureDir(filepath.Dir(abs(rel))); err != nil {
			return at, nil, nil, err
		}

		exists, err := s.fs.Exists(abs(rel))
		if err != nil {
			return at, nil, nil, err
		}

		typ := manifest.ChangeCreate
		if exists {
			local, err := s.fs.ReadFile(abs(rel))
			if err != nil {
				return at, nil, nil, err
			}
			if bytes.Equal(local, content) {
				at.Files[rel] = conflict.Checksum(content)
				continue
			}

			c := conflict.Conflict{Path: rel, Local: local, Incoming: content, LastApplied: lastApplied(m, r.hash, r.rootFolder, rel)}
			if c.IsConflict() {
				d, err := resolver.Resolve(ctx, c)
				if err != nil {
					return at, nil, nil, err
				}
				conflicts = append(conflicts, d.Record)
				if !d.Write {
					s.logger.Debug("kept local file", "path", rel, "hash", r.hash)
					continue
				}
				content = d.Content
			}
			typ = manifest.ChangeModify
		}

		if err := s.fs.WriteFile(abs(rel), content, f.perm); err != nil {
			return at, nil, nil, err
		}
		change(typ, rel)
		at.Files[rel] = conflict.Checksum(f.content)
	}

	s.logger.Debug("applied template",
		"hash", r.hash,
		"name", r.tpl.Name,
		"root", r.rootFolder,
		"changes", len(changes),
		"conflicts", len(conflicts),
	)
	return at, changes, conflicts, nil
}

// ensureDir creates dir if missing and reports whether it did.
func (s *Service) ensureDir(dir string) (bool, error) {
	exists, err := s.fs.Exists(dir)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	return true, s.fs.EnsureDirectory(dir)
}

// lastApplied returns the checksum last written for rel, preferring the
// entry for the same template.
func lastApplied(m *manifest.Manifest, hash, rootFolder, rel string) string {
	if at := m.FindActive(hash, rootFolder); at != nil {
		if sum, ok := at.Files[rel]; ok {
			return sum
		}
	}
	for _, at := range m.Active() {
		if sum, ok := at.Files[rel]; ok {
			return sum
		}
	}
	return ""
}

func cleanRoot(root string) string {
	root = path.Clean(strings.TrimPrefix(filepath.ToSlash(root), "./"))
	if root == "." || root == "/" {
		return ""
	}
	return root
}

// within joins rel to rootFolder, rejecting paths that leave the project.
func within(rootFolder, rel string) (string, error) {
	joined := path.Join(rootFolder, rel)
	if joined == ".." || strings.HasPrefix(joined, "../") || path.IsAbs(rel) {
		return "", fmt.Errorf("path %q escapes the project", rel)
	}
	return joined, nil
}
