package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/papercomputeco/scaffold/pkg/logger"
	"github.com/papercomputeco/scaffold/pkg/storage"
	"github.com/papercomputeco/scaffold/pkg/template"
)

// Resolver turns template references into full hashes. A reference is an
// alias, a full hash or a hex prefix of at least template.ShortHashLen
// characters, tried in that order.
type Resolver struct {
	store    storage.Driver
	registry *Registry
	logger   *slog.Logger
}

// NewResolver returns a resolver over store and registry.
func NewResolver(store storage.Driver, registry *Registry, l *slog.Logger) *Resolver {
	return &Resolver{
		store:    store,
		registry: registry,
		logger:   logger.OrNop(l),
	}
}

// Resolve returns the full hash ref refers to.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", NotFoundError{Ref: ref}
	}

	hash, ok, err := r.registry.Lookup(ref)
	if err != nil {
		return "", err
	}
	if ok {
		r.logger.Debug("resolved alias", "alias", ref, "hash", hash)
		return hash, nil
	}

	ref = strings.ToLower(ref)
	if template.IsFullHash(ref) {
		has, err := r.store.Has(ctx, ref)
		if err != nil {
			return "", err
		}
		if !has {
			return "", NotFoundError{Ref: ref}
		}
		return ref, nil
	}

	if len(ref) < template.ShortHashLen || !template.IsHex(ref) {
		return "", NotFoundError{Ref: ref}
	}

	entries, err := r.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("listing templates: %w", err)
	}

	var matches []string
	for _, e := range entries {
		if strings.HasPrefix(e.Hash, ref) {
			matches = append(matches, e.Hash)
		}
	}

	switch len(matches) {
	case 0:
		return "", NotFoundError{Ref: ref}
	case 1:
		r.logger.Debug("resolved prefix", "prefix", ref, "hash", matches[0])
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", AmbiguousPrefixError{Prefix: ref, Matches: matches}
	}
}

// RegisterAlias binds alias to the template ref resolves to. Registering the
// same pair twice is a no-op. The alias is checked by Registry.Bind.
func (r *Resolver) RegisterAlias(ctx context.Context, ref, alias string) (string, error) {
	hash, err := r.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}

	if err := r.registry.Bind(alias, hash); err != nil {
		return "", err
	}
	return hash, nil
}

// UnregisterAlias removes an alias and returns the hash it pointed to.
func (r *Resolver) UnregisterAlias(alias string) (string, error) {
	return r.registry.Unbind(alias)
}

// ListAliases returns the sorted aliases bound to hash.
func (r *Resolver) ListAliases(hash string) ([]string, error) {
	return r.registry.Aliases(hash)
}

// IsNotFound reports whether err means a reference or hash did not resolve.
func IsNotFound(err error) bool {
	return errors.As(err, &NotFoundError{}) || errors.As(err, &storage.NotFoundError{})
}
