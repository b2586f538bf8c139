package identity_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scaffold/pkg/identity"
	"github.com/papercomputeco/scaffold/pkg/storage"
	"github.com/papercomputeco/scaffold/pkg/storage/inmemory"
	"github.com/papercomputeco/scaffold/pkg/template"
)

// fixedStore is a storage.Driver whose hashes are chosen by the test, so
// prefix collisions can be arranged.
type fixedStore struct {
	templates map[string]*template.Template
}

func (f *fixedStore) Put(context.Context, *template.Template) (string, bool, error) {
	return "", false, errors.New("read only")
}

func (f *fixedStore) Get(_ context.Context, hash string) (*template.Template, error) {
	t, ok := f.templates[hash]
	if !ok {
		return nil, storage.NotFoundError{Hash: hash}
	}
	return t, nil
}

func (f *fixedStore) Has(_ context.Context, hash string) (bool, error) {
	_, ok := f.templates[hash]
	return ok, nil
}

func (f *fixedStore) List(context.Context) ([]storage.Entry, error) {
	var out []storage.Entry
	for h, t := range f.templates {
		out = append(out, storage.Entry{Hash: h, Template: t})
	}
	return out, nil
}

func (f *fixedStore) Delete(context.Context, string) error { return nil }
func (f *fixedStore) Close() error                         { return nil }

func tpl(name, version string) *template.Template {
	return &template.Template{Name: name, Version: version, Rules: template.RuleSet{AllowExtraFiles: true}}
}

var _ = Describe("Identity", func() {
	var (
		ctx      context.Context
		tmpDir   string
		registry *identity.Registry
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		tmpDir, err = os.MkdirTemp("", "identity-*")
		Expect(err).NotTo(HaveOccurred())
		registry = identity.NewRegistry(filepath.Join(tmpDir, "aliases.json"), nil, nil)
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("Resolver", func() {
		var (
			store    *inmemory.Driver
			resolver *identity.Resolver
			h1, h2   string
		)

		BeforeEach(func() {
			store = inmemory.NewDriver()
			resolver = identity.NewResolver(store, registry, nil)

			var err error
			h1, _, err = store.Put(ctx, tpl("one", "1.0.0"))
			Expect(err).NotTo(HaveOccurred())
			h2, _, err = store.Put(ctx, tpl("two", "1.0.0"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("resolves full hashes, prefixes and aliases", func() {
			Expect(resolver.Resolve(ctx, h1)).To(Equal(h1))
			Expect(resolver.Resolve(ctx, h1[:12])).To(Equal(h1))
			Expect(resolver.Resolve(ctx, strings.ToUpper(h1[:12]))).To(Equal(h1))

			_, err := resolver.RegisterAlias(ctx, h2[:10], "two")
			Expect(err).NotTo(HaveOccurred())
			Expect(resolver.Resolve(ctx, "two")).To(Equal(h2))
		})

		It("rejects rebinding an alias to a different hash", func() {
			_, err := resolver.RegisterAlias(ctx, h1, "web")
			Expect(err).NotTo(HaveOccurred())

			_, err = resolver.RegisterAlias(ctx, h2, "web")
			var conflict identity.AliasConflictError
			Expect(errors.As(err, &conflict)).To(BeTrue())
			Expect(conflict.Existing).To(Equal(h1))
			Expect(conflict.Requested).To(Equal(h2))
		})

		It("is idempotent for the same pair", func() {
			_, err := resolver.RegisterAlias(ctx, h1, "web")
			Expect(err).NotTo(HaveOccurred())
			_, err = resolver.RegisterAlias(ctx, h1, "web")
			Expect(err).NotTo(HaveOccurred())

			Expect(resolver.ListAliases(h1)).To(Equal([]string{"web"}))
		})

		It("lists aliases sorted and unregisters them", func() {
			for _, a := range []string{"zeta", "alpha", "mid"} {
				_, err := resolver.RegisterAlias(ctx, h1, a)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(resolver.ListAliases(h1)).To(Equal([]string{"alpha", "mid", "zeta"}))

			Expect(resolver.UnregisterAlias("mid")).To(Equal(h1))
			Expect(resolver.ListAliases(h1)).To(Equal([]string{"alpha", "zeta"}))

			_, err := resolver.UnregisterAlias("mid")
			Expect(identity.IsNotFound(err)).To(BeTrue())
		})

		It("refuses invalid alias names", func() {
			for _, bad := range []string{"Web", "-web", "with space", "deadbeef"} {
				_, err := resolver.RegisterAlias(ctx, h1, bad)
				Expect(errors.As(err, &identity.InvalidAliasError{})).To(BeTrue(), bad)

				err = registry.Bind(bad, h1)
				Expect(errors.As(err, &identity.InvalidAliasError{})).To(BeTrue(), bad)
			}
			Expect(resolver.ListAliases(h1)).To(BeEmpty())
		})

		It("reports unknown references and short prefixes as not found", func() {
			for _, ref := range []string{"missing", h1[:6], strings.Repeat("0", 64), "ffffffffff"} {
				_, err := resolver.Resolve(ctx, ref)
				Expect(identity.IsNotFound(err)).To(BeTrue(), ref)
			}
		})

		It("persists aliases across registry instances", func() {
			_, err := resolver.RegisterAlias(ctx, h1, "web")
			Expect(err).NotTo(HaveOccurred())

			reopened := identity.NewRegistry(filepath.Join(tmpDir, "aliases.json"), nil, nil)
			hash, ok, err := reopened.Lookup("web")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(hash).To(Equal(h1))

			data, err := os.ReadFile(filepath.Join(tmpDir, "aliases.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"reverse"`))
		})
	})

	Describe("ambiguous prefixes", func() {
		It("lists every match when an 8 char prefix is shared", func() {
			a := "abcdef01" + strings.Repeat("1", 56)
			b := "abcdef01" + strings.Repeat("2", 56)
			store := &fixedStore{templates: map[string]*template.Template{
				a: tpl("a", "1"),
				b: tpl("b", "1"),
			}}
			resolver := identity.NewResolver(store, registry, nil)

			_, err := resolver.Resolve(ctx, "abcdef01")
			var ambiguous identity.AmbiguousPrefixError
			Expect(errors.As(err, &ambiguous)).To(BeTrue())
			Expect(ambiguous.Matches).To(Equal([]string{a, b}))

			Expect(resolver.Resolve(ctx, "abcdef011111")).To(Equal(a))
		})
	})

	Describe("Catalog", func() {
		var catalog *identity.Catalog

		BeforeEach(func() {
			catalog = identity.NewCatalog(inmemory.NewDriver(), registry, nil)
		})

		It("lists summaries sorted by name then version with aliases", func() {
			hB, _, err := catalog.Put(ctx, tpl("beta", "1.0.0"))
			Expect(err).NotTo(HaveOccurred())
			_, _, err = catalog.Put(ctx, tpl("alpha", "2.0.0"))
			Expect(err).NotTo(HaveOccurred())
			_, _, err = catalog.Put(ctx, tpl("alpha", "1.0.0"))
			Expect(err).NotTo(HaveOccurred())
			_, err = catalog.Resolver().RegisterAlias(ctx, hB, "b")
			Expect(err).NotTo(HaveOccurred())

			list, err := catalog.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(3))
			Expect(list[0].Name + "@" + list[0].Version).To(Equal("alpha@1.0.0"))
			Expect(list[1].Name + "@" + list[1].Version).To(Equal("alpha@2.0.0"))
			Expect(list[2].Aliases).To(Equal([]string{"b"}))
			Expect(list[2].ShortHash).To(Equal(hB[:8]))
		})

		It("rejects invalid templates", func() {
			_, _, err := catalog.Put(ctx, &template.Template{})
			Expect(err).To(MatchError(ContainSubstring("invalid template")))
		})

		It("refuses to delete aliased templates unless forced", func() {
			hash, _, err := catalog.Put(ctx, tpl("svc", "1"))
			Expect(err).NotTo(HaveOccurred())
			_, err = catalog.Resolver().RegisterAlias(ctx, hash, "svc")
			Expect(err).NotTo(HaveOccurred())

			_, err = catalog.Delete(ctx, "svc", false)
			var exists identity.AliasesExistError
			Expect(errors.As(err, &exists)).To(BeTrue())
			Expect(exists.Aliases).To(Equal([]string{"svc"}))

			Expect(catalog.Delete(ctx, "svc", true)).To(Equal(hash))
			_, _, err = catalog.Get(ctx, hash)
			Expect(identity.IsNotFound(err)).To(BeTrue())

			_, ok, err := registry.Lookup("svc")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})
})
