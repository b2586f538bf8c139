package validate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/papercomputeco/scaffold/pkg/conflict"
	"github.com/papercomputeco/scaffold/pkg/fsprovider"
	"github.com/papercomputeco/scaffold/pkg/manifest"
	"github.com/papercomputeco/scaffold/pkg/template"
)

// FixError reports a repair attempt that did not complete.
type FixError struct {
	RuleID string
	Path   string
	Action template.FixAction
	Err    error
}

func (e *FixError) Error() string {
	return fmt.Sprintf("fix %s for rule %s on %s: %v", e.Action, e.RuleID, e.Path, e.Err)
}

func (e *FixError) Unwrap() error {
	return e.Err
}

// errKeptLocal marks a fix declined by conflict resolution.
var errKeptLocal = errors.New("local changes kept")

// fixer applies the fixes of one template serially and accumulates what it
// changed.
type fixer struct {
	e   *Engine
	rs  *runState
	t   *tplRun
	out *Outcome
}

func (fx *fixer) change(typ manifest.ChangeType, r *ruleRun, p, to string) {
	fx.out.Changes = append(fx.out.Changes, manifest.ChangeRecord{
		Type:         typ,
		Path:         p,
		To:           to,
		RuleID:       r.id,
		TemplateHash: fx.t.hash,
	})
}

func (fx *fixer) checksum(p, sum string) {
	fx.out.Checksums = append(fx.out.Checksums, ChecksumUpdate{
		TemplateHash: fx.t.hash,
		RootFolder:   fx.t.at.RootFolder,
		Path:         p,
		Sum:          sum,
	})
}

// apply performs r's fix for one finding.
func (fx *fixer) apply(ctx context.Context, r *ruleRun, f finding) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fix := r.rule.Fix
	switch fix.Action {
	case template.FixCreate:
		if r.rule.Type == template.RuleRequiredFolder {
			return fx.createFolder(r, f.path)
		}
		content, err := fx.content(fix, f, true)
		if err != nil {
			return err
		}
		return fx.write(ctx, r, f.path, content)

	case template.FixModify:
		content, err := fx.content(fix, f, false)
		if err != nil {
			return err
		}
		return fx.write(ctx, r, f.path, content)

	case template.FixDelete:
		return fx.remove(r, f.path)

	case template.FixRename:
		to, err := fx.t.subst.SubstituteInPath(fix.To, fx.t.vars)
		if err != nil {
			return err
		}
		dest, err := fx.t.join(to)
		if err != nil {
			return err
		}
		return fx.rename(r, f.path, dest)

	default:
		return fmt.Errorf("action %q cannot be applied automatically", fix.Action)
	}
}

// content picks what to write: the expected template content for the path,
// else the fix's own content. allowEmpty permits creating empty files.
func (fx *fixer) content(fix *template.Fix, f finding, allowEmpty bool) ([]byte, error) {
	if f.hasExpected {
		return f.expected, nil
	}
	if fix.Content != "" {
		s, err := fx.t.subst.Substitute(fix.Content, fx.t.vars)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	}
	if d, ok := fx.t.files[f.path]; ok {
		return d.content, nil
	}
	if allowEmpty {
		return []byte{}, nil
	}
	return nil, errors.New("no template content to write")
}

func (fx *fixer) createFolder(r *ruleRun, p string) error {
	if err := fx.rs.fs.EnsureDirectory(fx.rs.abs(p)); err != nil {
		return err
	}
	fx.change(manifest.ChangeCreate, r, p, "")

	if fx.t.dirs[p] {
		keep := path.Join(p, ".gitkeep")
		if err := fx.rs.fs.WriteFile(fx.rs.abs(keep), nil, fsprovider.FilePerm); err != nil {
			return err
		}
		fx.change(manifest.ChangeCreate, r, keep, "")
	}
	return nil
}

// write replaces p with content, routing divergent local edits through the
// conflict resolver.
func (fx *fixer) write(ctx context.Context, r *ruleRun, p string, content []byte) error {
	exists, isDir, err := fx.rs.stat(p)
	if err != nil {
		return err
	}
	if isDir {
		return fmt.Errorf("%s is a directory", p)
	}

	perm := fsprovider.FilePerm
	if d, ok := fx.t.files[p]; ok && d.executable {
		perm = fsprovider.ExecPerm
	}

	templateSum := conflict.Checksum(content)
	typ := manifest.ChangeCreate

	if exists {
		local, err := fx.rs.read(p)
		if err != nil {
			return err
		}
		if bytes.Equal(local, content) {
			fx.checksum(p, templateSum)
			return nil
		}

		c := conflict.Conflict{Path: p, Local: local, Incoming: content, LastApplied: fx.t.at.Files[p]}
		if c.IsConflict() {
			d, err := fx.t.resolver.Resolve(ctx, c)
			if err != nil {
				return err
			}
			fx.out.Conflicts = append(fx.out.Conflicts, AppliedConflict{
				TemplateHash: fx.t.hash,
				RootFolder:   fx.t.at.RootFolder,
				Record:       d.Record,
			})
			if !d.Write {
				return errKeptLocal
			}
			content = d.Content
		}
		typ = manifest.ChangeModify
	}

	if err := fx.rs.fs.WriteFile(fx.rs.abs(p), content, perm); err != nil {
		return err
	}
	fx.change(typ, r, p, "")
	fx.checksum(p, templateSum)
	return nil
}

func (fx *fixer) remove(r *ruleRun, p string) error {
	isDir, err := fx.rs.fs.IsDir(fx.rs.abs(p))
	if err != nil {
		return err
	}

	if isDir {
		// Remove children deepest first; Provider.Remove only takes empty
		// directories.
		var paths []string
		err := fx.rs.fs.Walk(fx.rs.abs(p), func(p string, _ fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			paths = append(paths, p)
			return nil
		})
		if err != nil {
			return err
		}
		sort.Sort(sort.Reverse(sort.StringSlice(paths)))
		for _, child := range paths {
			if err := fx.rs.fs.Remove(child); err != nil {
				return err
			}
		}
	} else if err := fx.rs.fs.Remove(fx.rs.abs(p)); err != nil {
		return err
	}

	fx.change(manifest.ChangeDelete, r, p, "")
	if _, tracked := fx.t.at.Files[p]; tracked {
		fx.checksum(p, "")
	}
	return nil
}

func (fx *fixer) rename(r *ruleRun, from, to string) error {
	exists, err := fx.rs.fs.Exists(fx.rs.abs(to))
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("rename destination %s already exists", to)
	}

	if err := fx.rs.fs.Rename(fx.rs.abs(from), fx.rs.abs(to)); err != nil {
		return err
	}

	fx.change(manifest.ChangeRename, r, from, to)
	if sum, tracked := fx.t.at.Files[from]; tracked {
		fx.checksum(from, "")
		fx.checksum(to, sum)
	}
	return nil
}
