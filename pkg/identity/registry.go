// Package identity resolves human references (aliases, short hashes) to the
// content hashes templates are stored under.
package identity

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"sort"
	"sync"

	"github.com/papercomputeco/scaffold/pkg/fsprovider"
	"github.com/papercomputeco/scaffold/pkg/logger"
	"github.com/papercomputeco/scaffold/pkg/template"
)

// RegistryVersion is the alias document format version.
const RegistryVersion = 1

var aliasRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// document is the persisted alias registry.
type document struct {
	Version int                 `json:"version"`
	Aliases map[string]string   `json:"aliases"`
	Reverse map[string][]string `json:"reverse"`
}

func newDocument() *document {
	return &document{
		Version: RegistryVersion,
		Aliases: map[string]string{},
		Reverse: map[string][]string{},
	}
}

// Registry is the global alias → hash binding table, persisted as a single
// JSON document. Every mutation re-reads the document and writes it back.
type Registry struct {
	mu     sync.Mutex
	path   string
	fs     fsprovider.Provider
	logger *slog.Logger
}

// NewRegistry returns a registry persisted at path.
func NewRegistry(path string, provider fsprovider.Provider, l *slog.Logger) *Registry {
	if provider == nil {
		provider = fsprovider.NewOS()
	}
	return &Registry{
		path:   path,
		fs:     provider,
		logger: logger.OrNop(l),
	}
}

// ValidateAlias checks an alias name. Names that are pure hex of at least the
// short hash length are refused, since they would shadow hash prefixes.
func ValidateAlias(alias string) error {
	if !aliasRe.MatchString(alias) {
		return InvalidAliasError{Alias: alias, Reason: "must match " + aliasRe.String()}
	}
	if len(alias) >= template.ShortHashLen && template.IsHex(alias) {
		return InvalidAliasError{Alias: alias, Reason: "looks like a hash prefix"}
	}
	return nil
}

func (r *Registry) load() (*document, error) {
	exists, err := r.fs.Exists(r.path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return newDocument(), nil
	}

	doc := newDocument()
	if err := r.fs.ReadJSON(r.path, doc); err != nil {
		return nil, fmt.Errorf("reading alias registry: %w", err)
	}
	if doc.Aliases == nil {
		doc.Aliases = map[string]string{}
	}

	// The forward map is authoritative; rebuild reverse from it.
	doc.Reverse = map[string][]string{}
	for alias, hash := range doc.Aliases {
		doc.Reverse[hash] = append(doc.Reverse[hash], alias)
	}
	for hash := range doc.Reverse {
		sort.Strings(doc.Reverse[hash])
	}
	return doc, nil
}

func (r *Registry) save(doc *document) error {
	doc.Version = RegistryVersion
	if err := r.fs.WriteJSON(r.path, doc); err != nil {
		return fmt.Errorf("writing alias registry: %w", err)
	}
	return nil
}

// Lookup returns the hash an alias is bound to.
func (r *Registry) Lookup(alias string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return "", false, err
	}
	hash, ok := doc.Aliases[alias]
	return hash, ok, nil
}

// Bind binds alias to hash. Binding the same pair again is a no-op; binding
// an alias that points elsewhere fails with AliasConflictError.
func (r *Registry) Bind(alias, hash string) error {
	if err := ValidateAlias(alias); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}

	if existing, ok := doc.Aliases[alias]; ok {
		if existing == hash {
			return nil
		}
		return AliasConflictError{Alias: alias, Existing: existing, Requested: hash}
	}

	doc.Aliases[alias] = hash
	doc.Reverse[hash] = append(doc.Reverse[hash], alias)
	sort.Strings(doc.Reverse[hash])

	r.logger.Debug("bound alias", "alias", alias, "hash", hash)
	return r.save(doc)
}

// Unbind removes an alias and returns the hash it pointed to.
func (r *Registry) Unbind(alias string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return "", err
	}

	hash, ok := doc.Aliases[alias]
	if !ok {
		return "", NotFoundError{Ref: alias}
	}

	delete(doc.Aliases, alias)
	removeAlias(doc, hash, alias)

	r.logger.Debug("unbound alias", "alias", alias, "hash", hash)
	return hash, r.save(doc)
}

// UnbindHash removes every alias pointing at hash and returns them.
func (r *Registry) UnbindHash(hash string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}

	aliases := doc.Reverse[hash]
	if len(aliases) == 0 {
		return nil, nil
	}
	for _, alias := range aliases {
		delete(doc.Aliases, alias)
	}
	delete(doc.Reverse, hash)

	return aliases, r.save(doc)
}

func removeAlias(doc *document, hash, alias string) {
	rest := slices.DeleteFunc(doc.Reverse[hash], func(a string) bool { return a == alias })
	if len(rest) == 0 {
		delete(doc.Reverse, hash)
		return
	}
	doc.Reverse[hash] = rest
}

// Aliases returns the sorted aliases bound to hash.
func (r *Registry) Aliases(hash string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	return slices.Clone(doc.Reverse[hash]), nil
}

// All returns a copy of the alias → hash table.
func (r *Registry) All() (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(doc.Aliases))
	for k, v := range doc.Aliases {
		out[k] = v
	}
	return out, nil
}
