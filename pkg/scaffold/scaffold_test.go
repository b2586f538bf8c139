package scaffold_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scaffold/pkg/conflict"
	"github.com/papercomputeco/scaffold/pkg/fsprovider"
	"github.com/papercomputeco/scaffold/pkg/identity"
	"github.com/papercomputeco/scaffold/pkg/manifest"
	"github.com/papercomputeco/scaffold/pkg/scaffold"
	"github.com/papercomputeco/scaffold/pkg/storage/inmemory"
	"github.com/papercomputeco/scaffold/pkg/template"
	"github.com/papercomputeco/scaffold/pkg/validate"
	"github.com/papercomputeco/scaffold/pkg/vars"
)

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		tmpDir  string
		project string
		catalog *identity.Catalog
		store   *inmemory.Driver
	)

	newService := func(provider fsprovider.Provider, opts ...scaffold.Option) *scaffold.Service {
		manifests := manifest.NewService(manifest.WithProvider(provider))
		engine := validate.New(store, validate.WithProvider(provider))
		opts = append([]scaffold.Option{scaffold.WithProvider(provider), scaffold.WithActor("tester")}, opts...)
		return scaffold.NewService(catalog, manifests, engine, opts...)
	}

	put := func(t *template.Template) string {
		hash, _, err := catalog.Put(ctx, t)
		Expect(err).NotTo(HaveOccurred())
		return hash
	}

	read := func(rel string) string {
		data, err := os.ReadFile(filepath.Join(project, rel))
		Expect(err).NotTo(HaveOccurred())
		return string(data)
	}

	service := func() *template.Template {
		return &template.Template{
			Name:    "service",
			Version: "1.0.0",
			Folders: []template.Folder{{Path: "cmd"}, {Path: "docs", Gitkeep: true}},
			Files: []template.File{
				{Path: "README.md", Content: "# {{name}}\n"},
				{Path: "cmd/{{name|kebab}}/main.go", Content: "package main\n"},
			},
			Variables: []template.Variable{{Name: "name", Required: true}},
			Rules: template.RuleSet{
				AllowExtraFiles:   true,
				AllowExtraFolders: true,
				Rules: []template.Rule{{
					ID:     "readme",
					Type:   template.RuleRequiredFile,
					Target: "README.md",
					Fix:    &template.Fix{Action: template.FixCreate, AutoFix: true},
				}},
			},
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		tmpDir, err = os.MkdirTemp("", "scaffold-test-*")
		Expect(err).NotTo(HaveOccurred())
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		project = filepath.Join(tmpDir, "demo")

		store = inmemory.NewDriver()
		registry := identity.NewRegistry(filepath.Join(tmpDir, "aliases.json"), fsprovider.NewOS(), nil)
		catalog = identity.NewCatalog(store, registry, nil)
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("Create", func() {
		It("writes the substituted tree and records it", func() {
			hash := put(service())
			svc := newService(fsprovider.NewOS())

			res, err := svc.Create(ctx, scaffold.CreateOptions{
				ApplyOptions: scaffold.ApplyOptions{Ref: hash, Variables: map[string]any{"name": "MyApp"}},
				Dir:          project,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Root).To(Equal(project))

			Expect(read("README.md")).To(Equal("# MyApp\n"))
			Expect(read("cmd/my-app/main.go")).To(Equal("package main\n"))
			Expect(filepath.Join(project, "docs", ".gitkeep")).To(BeAnExistingFile())

			m := res.Manifest
			Expect(m.ProjectName).To(Equal("demo"))
			Expect(m.Variables).To(HaveKeyWithValue("name", "MyApp"))
			Expect(m.Templates).To(HaveLen(1))
			at := m.Templates[0]
			Expect(at.TemplateHash).To(Equal(hash))
			Expect(at.AppliedBy).To(Equal("tester"))
			Expect(at.Files).To(HaveKeyWithValue("README.md", conflict.Checksum([]byte("# MyApp\n"))))
			Expect(at.Files).To(HaveKey("cmd/my-app/main.go"))

			Expect(m.History).To(HaveLen(1))
			Expect(m.History[0].ID).NotTo(BeEmpty())
			Expect(m.History[0].Action).To(Equal(manifest.ActionCreate))
			Expect(m.History[0].Templates).To(Equal([]string{hash}))
			Expect(m.History[0].Changes).To(ContainElement(manifest.ChangeRecord{
				Type: manifest.ChangeCreate, Path: "README.md", TemplateHash: hash,
			}))

			_, err = svc.Create(ctx, scaffold.CreateOptions{ApplyOptions: scaffold.ApplyOptions{Ref: hash, Variables: map[string]any{"name": "x"}}, Dir: project})
			Expect(err).To(MatchError(ContainSubstring("already exists")))
		})

		It("fails before touching disk when a required variable is missing", func() {
			hash := put(service())

			_, err := newService(fsprovider.NewOS()).Create(ctx, scaffold.CreateOptions{
				ApplyOptions: scaffold.ApplyOptions{Ref: hash},
				Dir:          project,
			})
			Expect(errors.As(err, &vars.MissingVariableError{})).To(BeTrue())
			Expect(project).NotTo(BeADirectory())
		})

		It("applies dependencies first and only once", func() {
			base := &template.Template{
				Name:    "base",
				Version: "1.0.0",
				Files:   []template.File{{Path: "LICENSE", Content: "MIT\n"}},
				Rules:   template.RuleSet{AllowExtraFiles: true, AllowExtraFolders: true},
			}
			baseHash := put(base)
			_, err := catalog.Resolver().RegisterAlias(ctx, baseHash, "base")
			Expect(err).NotTo(HaveOccurred())

			app := service()
			app.Dependencies = []string{"base"}
			hash := put(app)

			res, err := newService(fsprovider.NewOS()).Create(ctx, scaffold.CreateOptions{
				ApplyOptions: scaffold.ApplyOptions{Ref: hash, Variables: map[string]any{"name": "x"}},
				Dir:          project,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(read("LICENSE")).To(Equal("MIT\n"))
			Expect(res.Applied).To(HaveLen(2))
			Expect(res.Applied[0].TemplateHash).To(Equal(baseHash))
			Expect(res.Applied[1].TemplateHash).To(Equal(hash))
			Expect(res.Manifest.History[0].Templates).To(Equal([]string{baseHash, hash}))
		})

		It("writes nothing when a later template in the plan fails to render", func() {
			base := &template.Template{
				Name:    "base",
				Version: "1.0.0",
				Files:   []template.File{{Path: "LICENSE", Content: "MIT\n"}},
				Rules:   template.RuleSet{AllowExtraFiles: true, AllowExtraFolders: true},
			}
			_, err := catalog.Resolver().RegisterAlias(ctx, put(base), "base")
			Expect(err).NotTo(HaveOccurred())

			app := service()
			app.Dependencies = []string{"base"}
			app.Files = append(app.Files, template.File{Path: "OWNERS", Content: "{{owner}}\n"})
			hash := put(app)

			_, err = newService(fsprovider.NewOS()).Create(ctx, scaffold.CreateOptions{
				ApplyOptions: scaffold.ApplyOptions{Ref: hash, Variables: map[string]any{"name": "x"}},
				Dir:          project,
			})
			Expect(errors.As(err, &vars.MissingVariableError{})).To(BeTrue())
			Expect(project).NotTo(BeADirectory())
		})

		It("rejects dependency cycles through aliases", func() {
			a := &template.Template{Name: "a", Version: "1", Dependencies: []string{"tpl-b"}}
			b := &template.Template{Name: "b", Version: "1", Dependencies: []string{"tpl-a"}}
			aHash, bHash := put(a), put(b)
			_, err := catalog.Resolver().RegisterAlias(ctx, aHash, "tpl-a")
			Expect(err).NotTo(HaveOccurred())
			_, err = catalog.Resolver().RegisterAlias(ctx, bHash, "tpl-b")
			Expect(err).NotTo(HaveOccurred())

			_, err = newService(fsprovider.NewOS()).Create(ctx, scaffold.CreateOptions{
				ApplyOptions: scaffold.ApplyOptions{Ref: "tpl-a"},
				Dir:          project,
			})
			var cycle *scaffold.CycleError
			Expect(errors.As(err, &cycle)).To(BeTrue())
			Expect(cycle.Chain).To(Equal([]string{"a", "b", "a"}))
		})

		It("writes nothing in dry-run mode", func() {
			hash := put(service())
			sim := fsprovider.NewSimulated(fsprovider.NewOS(), nil)

			res, err := newService(sim, scaffold.WithDryRun(true)).Create(ctx, scaffold.CreateOptions{
				ApplyOptions: scaffold.ApplyOptions{Ref: hash, Variables: map[string]any{"name": "x"}},
				Dir:          project,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Changes).NotTo(BeEmpty())
			Expect(project).NotTo(BeADirectory())
			Expect(sim.WrittenPaths()).To(ContainElement(filepath.Join(project, "README.md")))
			Expect(sim.WrittenPaths()).To(ContainElement(manifest.Path(project)))
		})
	})

	Describe("Extend", func() {
		var svc *scaffold.Service

		BeforeEach(func() {
			svc = newService(fsprovider.NewOS())
			_, err := svc.Init(project, "demo", map[string]any{"name": "demo"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("applies into the nearest project and under a root folder", func() {
			hash := put(service())
			nested := filepath.Join(project, "deep", "er")
			Expect(os.MkdirAll(nested, 0o755)).To(Succeed())

			res, err := svc.Extend(ctx, nested, scaffold.ApplyOptions{Ref: hash, RootFolder: "services/api"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Root).To(Equal(project))
			Expect(read("services/api/README.md")).To(Equal("# demo\n"))
			Expect(res.Applied[0].RootFolder).To(Equal("services/api"))
			Expect(res.Manifest.History[0].Action).To(Equal(manifest.ActionExtend))
		})

		It("records the same template at a root folder and at the project root separately", func() {
			hash := put(service())

			_, err := svc.Extend(ctx, project, scaffold.ApplyOptions{Ref: hash, RootFolder: "sub"})
			Expect(err).NotTo(HaveOccurred())
			res, err := svc.Extend(ctx, project, scaffold.ApplyOptions{Ref: hash})
			Expect(err).NotTo(HaveOccurred())

			active := res.Manifest.Active()
			Expect(active).To(HaveLen(2))
			Expect(active[0].RootFolder).To(Equal("sub"))
			Expect(active[0].Files).To(HaveKey("sub/README.md"))
			Expect(active[0].Files).NotTo(HaveKey("README.md"))
			Expect(active[1].RootFolder).To(BeEmpty())
			Expect(active[1].Files).To(HaveKey("README.md"))
			Expect(active[1].Files).NotTo(HaveKey("sub/README.md"))
			Expect(read("README.md")).To(Equal("# demo\n"))
			Expect(read("sub/README.md")).To(Equal("# demo\n"))
		})

		It("keeps local edits under skip and records the conflict", func() {
			hash := put(service())
			Expect(os.WriteFile(filepath.Join(project, "README.md"), []byte("# mine\n"), 0o644)).To(Succeed())

			res, err := svc.Extend(ctx, project, scaffold.ApplyOptions{Ref: hash})
			Expect(err).NotTo(HaveOccurred())
			Expect(read("README.md")).To(Equal("# mine\n"))
			Expect(res.Conflicts).To(HaveLen(1))
			Expect(res.Conflicts[0].Resolution).To(Equal(manifest.ResolutionKeptLocal))
			Expect(res.Applied[0].Conflicts).To(HaveLen(1))
			Expect(res.Applied[0].Files).NotTo(HaveKey("README.md"))
		})

		It("replaces local edits when asked", func() {
			hash := put(service())
			Expect(os.WriteFile(filepath.Join(project, "README.md"), []byte("# mine\n"), 0o644)).To(Succeed())

			res, err := svc.Extend(ctx, project, scaffold.ApplyOptions{Ref: hash, Policy: conflict.PolicyReplace})
			Expect(err).NotTo(HaveOccurred())
			Expect(read("README.md")).To(Equal("# demo\n"))
			Expect(res.Conflicts[0].Resolution).To(Equal(manifest.ResolutionUsedTemplate))
		})

		It("fails outside a project", func() {
			hash := put(service())
			_, err := svc.Extend(ctx, tmpDir, scaffold.ApplyOptions{Ref: hash})
			Expect(errors.Is(err, manifest.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("Clean", func() {
		It("removes unmodified generated files and keeps edited ones", func() {
			hash := put(service())
			svc := newService(fsprovider.NewOS())
			_, err := svc.Create(ctx, scaffold.CreateOptions{
				ApplyOptions: scaffold.ApplyOptions{Ref: hash, Variables: map[string]any{"name": "app"}},
				Dir:          project,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(os.WriteFile(filepath.Join(project, "README.md"), []byte("# edited\n"), 0o644)).To(Succeed())

			res, err := svc.Clean(ctx, project, scaffold.CleanOptions{Ref: "service"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Hash).To(Equal(hash))
			Expect(res.Kept).To(Equal([]string{"README.md"}))
			Expect(filepath.Join(project, "README.md")).To(BeAnExistingFile())
			Expect(filepath.Join(project, "cmd", "app")).NotTo(BeADirectory())
			Expect(filepath.Join(project, "docs")).NotTo(BeADirectory())

			m, _, err := svc.Status(project)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Templates[0].Status).To(Equal(manifest.StatusRemoved))
			Expect(m.History[len(m.History)-1].Action).To(Equal(manifest.ActionClean))

			_, err = svc.Clean(ctx, project, scaffold.CleanOptions{Ref: hash})
			Expect(err).To(MatchError(ContainSubstring("not applied")))
		})
	})

	Describe("built-in variables", func() {
		It("validates generated files against the values they were written with", func() {
			tpl := &template.Template{
				Name:    "ids",
				Version: "1.0.0",
				Files:   []template.File{{Path: "id.txt", Content: "id={{uuid}}\n"}},
				Rules: template.RuleSet{
					AllowExtraFiles:   true,
					AllowExtraFolders: true,
					Rules: []template.Rule{{
						ID:     "id",
						Type:   template.RuleFileContent,
						Target: "id.txt",
						Fix:    &template.Fix{Action: template.FixModify, AutoFix: true},
					}},
				},
			}
			hash := put(tpl)
			svc := newService(fsprovider.NewOS())

			res, err := svc.Create(ctx, scaffold.CreateOptions{
				ApplyOptions: scaffold.ApplyOptions{Ref: hash},
				Dir:          project,
			})
			Expect(err).NotTo(HaveOccurred())
			written := read("id.txt")
			Expect(written).To(MatchRegexp(`^id=[0-9a-f-]{36}\n$`))
			Expect(res.Applied[0].Builtins).NotTo(BeNil())
			Expect(written).To(Equal("id=" + res.Applied[0].Builtins.UUID + "\n"))

			report, err := svc.Check(ctx, project, scaffold.CheckOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Errors).To(BeEmpty())

			out, err := svc.Sync(ctx, project, scaffold.CheckOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Report.Stats.FixesApplied).To(BeZero())
			Expect(read("id.txt")).To(Equal(written))

			_, err = svc.Extend(ctx, project, scaffold.ApplyOptions{Ref: hash})
			Expect(err).NotTo(HaveOccurred())
			Expect(read("id.txt")).To(Equal(written))
		})
	})

	Describe("Check and Sync", func() {
		var (
			svc  *scaffold.Service
			hash string
		)

		BeforeEach(func() {
			hash = put(service())
			svc = newService(fsprovider.NewOS())
			_, err := svc.Create(ctx, scaffold.CreateOptions{
				ApplyOptions: scaffold.ApplyOptions{Ref: hash, Variables: map[string]any{"name": "app"}},
				Dir:          project,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Remove(filepath.Join(project, "README.md"))).To(Succeed())
		})

		It("reports and records a check", func() {
			report, err := svc.Check(ctx, project, scaffold.CheckOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Errors).To(HaveLen(1))
			Expect(report.Errors[0].RuleID).To(Equal("readme"))

			m, _, err := svc.Status(project)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.History).To(HaveLen(2))
			Expect(m.History[1].Action).To(Equal(manifest.ActionCheck))
		})

		It("records no check history when running dry", func() {
			dry := newService(fsprovider.NewOS(), scaffold.WithDryRun(true))
			_, err := dry.Check(ctx, project, scaffold.CheckOptions{Templates: []string{hash}})
			Expect(err).NotTo(HaveOccurred())

			m, _, err := svc.Status(project)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.History).To(HaveLen(1))
		})

		It("repairs and commits the changes in one entry", func() {
			out, err := svc.Sync(ctx, project, scaffold.CheckOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Report.Stats.FixesApplied).To(Equal(1))
			Expect(read("README.md")).To(Equal("# app\n"))

			m, _, err := svc.Status(project)
			Expect(err).NotTo(HaveOccurred())
			last := m.History[len(m.History)-1]
			Expect(last.Action).To(Equal(manifest.ActionSync))
			Expect(last.Changes).To(ConsistOf(manifest.ChangeRecord{
				Type: manifest.ChangeCreate, Path: "README.md", RuleID: "readme", TemplateHash: hash,
			}))

			report, err := svc.Check(ctx, project, scaffold.CheckOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Errors).To(BeEmpty())
		})

		It("leaves the manifest untouched when cancelled", func() {
			before, err := os.ReadFile(manifest.Path(project))
			Expect(err).NotTo(HaveOccurred())

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err = svc.Sync(cancelled, project, scaffold.CheckOptions{})
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())

			after, err := os.ReadFile(manifest.Path(project))
			Expect(err).NotTo(HaveOccurred())
			Expect(after).To(Equal(before))
		})
	})
})
