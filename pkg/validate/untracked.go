package validate

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/scaffold/pkg/dotdir"
	"github.com/papercomputeco/scaffold/pkg/template"
)

// declaredSet is the union of paths generated or required by every active
// template in the project.
type declaredSet struct {
	files map[string]struct{}
	dirs  map[string]struct{}
}

func newDeclaredSet(runs []*tplRun) *declaredSet {
	d := &declaredSet{files: map[string]struct{}{}, dirs: map[string]struct{}{}}

	for _, t := range runs {
		d.dir(t.root)
		for p := range t.files {
			d.file(p)
		}
		for p, gitkeep := range t.dirs {
			d.dir(p)
			if gitkeep {
				d.file(path.Join(p, ".gitkeep"))
			}
		}
		for p := range t.at.Files {
			d.file(p)
		}
		for _, r := range t.rules {
			if r.glob != nil || r.setupErr != nil {
				continue
			}
			switch r.rule.Type {
			case template.RuleRequiredFile, template.RuleFileContent:
				d.file(r.target)
			case template.RuleRequiredFolder:
				d.dir(r.target)
			}
		}
	}
	return d
}

// file records p and every ancestor directory.
func (d *declaredSet) file(p string) {
	d.files[p] = struct{}{}
	d.dir(path.Dir(p))
}

func (d *declaredSet) dir(p string) {
	for p != "" && p != "." && p != "/" {
		d.dirs[p] = struct{}{}
		p = path.Dir(p)
	}
}

// untracked reports files and folders under t's root that no active template
// declares, unless the template allows extras.
func (e *Engine) untracked(rs *runState, t *tplRun, declared *declaredSet) ([]Issue, error) {
	rules := t.tpl.Rules
	if rules.AllowExtraFiles && rules.AllowExtraFolders {
		return nil, nil
	}

	base := rs.abs(t.root)
	isDir, err := rs.fs.IsDir(base)
	if err != nil || !isDir {
		return nil, err
	}

	var issues []Issue
	err = rs.fs.Walk(base, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == base {
			return nil
		}

		rel, err := filepath.Rel(rs.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if rel == dotdir.DirName || strings.HasPrefix(rel, dotdir.DirName+"/") || t.excluded(rel) {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rs.touch(rel)

		if entry.IsDir() {
			if _, ok := declared.dirs[rel]; ok || rules.AllowExtraFolders {
				return nil
			}
			issues = append(issues, Issue{
				TemplateHash: t.hash,
				RuleID:       RuleExtraFolders,
				Severity:     template.SeverityError,
				Path:         rel,
				Message:      fmt.Sprintf("folder %s is not declared by any template", rel),
				State:        StateFailed,
			})
			return fs.SkipDir
		}

		if _, ok := declared.files[rel]; ok || rules.AllowExtraFiles {
			return nil
		}
		issues = append(issues, Issue{
			TemplateHash: t.hash,
			RuleID:       RuleExtraFiles,
			Severity:     template.SeverityError,
			Path:         rel,
			Message:      fmt.Sprintf("file %s is not declared by any template", rel),
			State:        StateFailed,
		})
		return nil
	})
	return issues, err
}
