package identity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/papercomputeco/scaffold/pkg/logger"
	"github.com/papercomputeco/scaffold/pkg/storage"
	"github.com/papercomputeco/scaffold/pkg/template"
)

// Catalog is the reference-aware facade over the template store.
type Catalog struct {
	store    storage.Driver
	registry *Registry
	resolver *Resolver
	logger   *slog.Logger
}

// NewCatalog wires a store and alias registry together.
func NewCatalog(store storage.Driver, registry *Registry, l *slog.Logger) *Catalog {
	l = logger.OrNop(l)
	return &Catalog{
		store:    store,
		registry: registry,
		resolver: NewResolver(store, registry, l),
		logger:   l,
	}
}

// Resolver exposes the catalog's resolver.
func (c *Catalog) Resolver() *Resolver {
	return c.resolver
}

// Put validates and stores a template, returning its hash.
func (c *Catalog) Put(ctx context.Context, t *template.Template) (string, bool, error) {
	if err := template.Validate(t); err != nil {
		return "", false, fmt.Errorf("invalid template: %w", err)
	}

	hash, isNew, err := c.store.Put(ctx, t)
	if err != nil {
		return "", false, fmt.Errorf("storing template: %w", err)
	}

	c.logger.Debug("put template", "hash", hash, "name", t.Name, "new", isNew)
	return hash, isNew, nil
}

// Get resolves ref and loads the template it names.
func (c *Catalog) Get(ctx context.Context, ref string) (string, *template.Template, error) {
	hash, err := c.resolver.Resolve(ctx, ref)
	if err != nil {
		return "", nil, err
	}

	t, err := c.store.Get(ctx, hash)
	if err != nil {
		return "", nil, err
	}
	return hash, t, nil
}

// List returns a summary for each stored template sorted by name, then
// version, then hash.
func (c *Catalog) List(ctx context.Context) ([]template.Summary, error) {
	entries, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	all, err := c.registry.All()
	if err != nil {
		return nil, err
	}
	reverse := map[string][]string{}
	for alias, hash := range all {
		reverse[hash] = append(reverse[hash], alias)
	}

	summaries := make([]template.Summary, 0, len(entries))
	for _, e := range entries {
		aliases := reverse[e.Hash]
		sort.Strings(aliases)
		summaries = append(summaries, template.Summary{
			Hash:        e.Hash,
			ShortHash:   template.ShortHash(e.Hash),
			Name:        e.Template.Name,
			Version:     e.Template.Version,
			Description: e.Template.Description,
			Aliases:     aliases,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		return a.Hash < b.Hash
	})
	return summaries, nil
}

// Delete removes the template ref resolves to. While aliases still point at
// it the delete fails with AliasesExistError, unless force is set, in which
// case the aliases are removed as well.
func (c *Catalog) Delete(ctx context.Context, ref string, force bool) (string, error) {
	hash, err := c.resolver.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}

	aliases, err := c.registry.Aliases(hash)
	if err != nil {
		return "", err
	}
	if len(aliases) > 0 && !force {
		return "", AliasesExistError{Hash: hash, Aliases: aliases}
	}

	if err := c.store.Delete(ctx, hash); err != nil {
		return "", err
	}

	if len(aliases) > 0 {
		if _, err := c.registry.UnbindHash(hash); err != nil {
			return "", fmt.Errorf("removing aliases of %s: %w", hash, err)
		}
	}

	c.logger.Debug("deleted template", "hash", hash, "aliases", aliases)
	return hash, nil
}
