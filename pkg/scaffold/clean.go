package scaffold

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/papercomputeco/scaffold/pkg/conflict"
	"github.com/papercomputeco/scaffold/pkg/manifest"
)

// CleanOptions selects the applied template to remove.
type CleanOptions struct {
	// Ref is an alias, hash, hash prefix or template name.
	Ref string

	// RootFolder disambiguates a template applied more than once.
	RootFolder string
}

// CleanResult describes one clean.
type CleanResult struct {
	Hash    string
	Changes []manifest.ChangeRecord

	// Kept lists generated files left in place because they were edited
	// since they were written.
	Kept []string
}

// Clean marks an applied template removed and deletes the files it generated
// that are unchanged since.
func (s *Service) Clean(ctx context.Context, start string, opts CleanOptions) (*CleanResult, error) {
	loc, err := s.locate(start)
	if err != nil {
		return nil, err
	}
	root := loc.ProjectPath

	current, err := s.manifests.Load(root)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, manifest.ErrNotFound
	}

	target, err := s.findApplied(ctx, current, opts)
	if err != nil {
		return nil, err
	}

	res := &CleanResult{Hash: target.TemplateHash}
	_, err = s.manifests.Update(root, func(m *manifest.Manifest) error {
		at, ok := m.Remove(target.TemplateHash, target.RootFolder)
		if !ok {
			return fmt.Errorf("template %s is not applied", target.TemplateHash)
		}

		paths := make([]string, 0, len(at.Files))
		for p := range at.Files {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		dirs := map[string]struct{}{}
		for _, rel := range paths {
			if err := ctx.Err(); err != nil {
				return err
			}

			abs := filepath.Join(root, filepath.FromSlash(rel))
			exists, err := s.fs.Exists(abs)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}

			data, err := s.fs.ReadFile(abs)
			if err != nil {
				return err
			}
			if conflict.Checksum(data) != at.Files[rel] {
				res.Kept = append(res.Kept, rel)
				continue
			}

			if err := s.fs.Remove(abs); err != nil {
				return err
			}
			res.Changes = append(res.Changes, manifest.ChangeRecord{Type: manifest.ChangeDelete, Path: rel, TemplateHash: at.TemplateHash})

			for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
				dirs[dir] = struct{}{}
			}
		}

		pruned, err := s.pruneEmpty(root, dirs)
		if err != nil {
			return err
		}
		for _, dir := range pruned {
			res.Changes = append(res.Changes, manifest.ChangeRecord{Type: manifest.ChangeDelete, Path: dir, TemplateHash: at.TemplateHash})
		}

		m.AddHistory(s.manifests.NewHistoryEntry(manifest.ActionClean, []string{at.TemplateHash}, res.Changes))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// findApplied picks the active entry opts refers to: a stored template
// reference first, then a hash prefix or name among the applied entries.
func (s *Service) findApplied(ctx context.Context, m *manifest.Manifest, opts CleanOptions) (*manifest.AppliedTemplate, error) {
	rootFolder := cleanRoot(opts.RootFolder)
	matches := func(at manifest.AppliedTemplate) bool {
		return opts.RootFolder == "" || at.RootFolder == rootFolder
	}

	if hash, _, err := s.templates.Get(ctx, opts.Ref); err == nil {
		for _, at := range m.Active() {
			if at.TemplateHash == hash && matches(at) {
				return &at, nil
			}
		}
		return nil, fmt.Errorf("template %s is not applied to this project", opts.Ref)
	}

	var found []manifest.AppliedTemplate
	for _, at := range m.Active() {
		if !matches(at) {
			continue
		}
		if at.Name == opts.Ref || (len(opts.Ref) >= 4 && strings.HasPrefix(at.TemplateHash, opts.Ref)) {
			found = append(found, at)
		}
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("template %s is not applied to this project", opts.Ref)
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("reference %q matches several applied templates; pass a root folder or a longer hash", opts.Ref)
	}
}

// pruneEmpty removes the now-empty directories among dirs, deepest first,
// and returns the ones removed.
func (s *Service) pruneEmpty(root string, dirs map[string]struct{}) ([]string, error) {
	ordered := make([]string, 0, len(dirs))
	for d := range dirs {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool {
		di, dj := strings.Count(ordered[i], "/"), strings.Count(ordered[j], "/")
		if di != dj {
			return di > dj
		}
		return ordered[i] < ordered[j]
	})

	var removed []string
	for _, rel := range ordered {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		empty, err := s.isEmptyDir(abs)
		if err != nil {
			return nil, err
		}
		if !empty {
			continue
		}
		if err := s.fs.Remove(abs); err != nil {
			return nil, err
		}
		removed = append(removed, rel)
	}
	return removed, nil
}

func (s *Service) isEmptyDir(dir string) (bool, error) {
	isDir, err := s.fs.IsDir(dir)
	if err != nil || !isDir {
		return false, err
	}

	empty := true
	err = s.fs.Walk(dir, func(p string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}
		empty = false
		return fs.SkipAll
	})
	return empty, err
}
