package scaffold

import (
	"context"
	"fmt"

	"github.com/papercomputeco/scaffold/pkg/conflict"
	"github.com/papercomputeco/scaffold/pkg/manifest"
	"github.com/papercomputeco/scaffold/pkg/validate"
)

// CheckOptions limits a check or sync.
type CheckOptions struct {
	// Templates are references to applied templates. Empty means all.
	Templates []string

	// Policy overrides every template's conflict policy. Sync only.
	Policy conflict.Policy
}

// Check validates the project containing start and records a check history
// entry unless running dry.
func (s *Service) Check(ctx context.Context, start string, opts CheckOptions) (*validate.Report, error) {
	out, root, err := s.run(ctx, start, opts, false)
	if err != nil {
		return nil, err
	}

	if !s.dryRun {
		_, err := s.manifests.Update(root, func(m *manifest.Manifest) error {
			m.AddHistory(s.manifests.NewHistoryEntry(manifest.ActionCheck, out.Templates, nil))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("recording check: %w", err)
		}
	}
	return out.Report, nil
}

// Sync repairs the project containing start and commits the changes,
// conflicts and checksums of the run in one manifest write.
func (s *Service) Sync(ctx context.Context, start string, opts CheckOptions) (*validate.Outcome, error) {
	out, root, err := s.run(ctx, start, opts, true)
	if err != nil {
		return nil, err
	}

	_, err = s.manifests.Update(root, func(m *manifest.Manifest) error {
		out.Commit(m)
		m.AddHistory(s.manifests.NewHistoryEntry(manifest.ActionSync, out.Templates, out.Changes))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording sync: %w", err)
	}
	return out, nil
}

func (s *Service) run(ctx context.Context, start string, opts CheckOptions, repair bool) (*validate.Outcome, string, error) {
	m, loc, err := s.Status(start)
	if err != nil {
		return nil, "", err
	}

	var hashes []string
	for _, ref := range opts.Templates {
		hash, _, err := s.templates.Get(ctx, ref)
		if err != nil {
			return nil, "", fmt.Errorf("resolving template %q: %w", ref, err)
		}
		hashes = append(hashes, hash)
	}

	out, err := s.engine.Run(ctx, loc.ProjectPath, m, validate.RunOptions{
		Repair:    repair,
		Templates: hashes,
		Policy:    opts.Policy,
	})
	if err != nil {
		return nil, "", err
	}

	// A cancellation after the run must not reach the manifest.
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	return out, loc.ProjectPath, nil
}
