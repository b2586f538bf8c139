package scaffoldcmder_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	scaffoldcmder "github.com/papercomputeco/scaffold/cmd/scaffold"
	checkcmder "github.com/papercomputeco/scaffold/cmd/scaffold/check"
	"github.com/papercomputeco/scaffold/pkg/manifest"
)

const templateYAML = `name: service
version: 1.0.0
description: A small service
folders:
  - path: docs
    gitkeep: true
files:
  - path: README.md
    source: README.md
  - path: cmd/{{name|kebab}}/main.go
    content: "package main\n"
variables:
  - name: name
    required: true
rules:
  allowExtraFiles: true
  allowExtraFolders: true
  rules:
    - id: readme
      type: required_file
      target: README.md
      fix:
        action: create
        autoFix: true
`

var _ = Describe("NewScaffoldCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := scaffoldcmder.NewScaffoldCmd()
		Expect(cmd.Use).To(Equal("scaffold"))
	})

	It("has every subcommand", func() {
		cmd := scaffoldcmder.NewScaffoldCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"init", "create", "extend", "check", "sync", "clean", "status", "template", "config", "version",
		))
	})

	It("registers the global flags", func() {
		cmd := scaffoldcmder.NewScaffoldCmd()
		for _, name := range []string{"dry-run", "force", "verbose", "debug", "config-dir", "storage-driver", "templates-dir", "aliases", "workers"} {
			Expect(cmd.PersistentFlags().Lookup(name)).NotTo(BeNil(), name)
		}
	})
})

var _ = Describe("Scaffold command execution", func() {
	var (
		tmpDir  string
		origDir string
		tplDir  string
		global  []string
	)

	run := func(args ...string) (string, error) {
		var out, errOut bytes.Buffer
		cmd := scaffoldcmder.NewScaffoldCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetIn(strings.NewReader(""))
		cmd.SetArgs(append(args, global...))
		err := cmd.Execute()
		return out.String(), err
	}

	mustRun := func(args ...string) string {
		out, err := run(args...)
		Expect(err).NotTo(HaveOccurred(), out)
		return out
	}

	read := func(path string) string {
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		return string(data)
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "scaffold-cmd-test-*")
		Expect(err).NotTo(HaveOccurred())
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		global = []string{
			"--config-dir", filepath.Join(tmpDir, "config"),
			"--templates-dir", filepath.Join(tmpDir, "store"),
			"--aliases", filepath.Join(tmpDir, "aliases.json"),
		}

		tplDir = filepath.Join(tmpDir, "tpl")
		Expect(os.MkdirAll(filepath.Join(tplDir, "files"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(tplDir, "template.yaml"), []byte(templateYAML), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(tplDir, "files", "README.md"), []byte("# {{name}}\n"), 0o644)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	Describe("template", func() {
		It("stores, aliases, lists and shows a template", func() {
			out := mustRun("template", "add", tplDir, "--alias", "service")
			Expect(out).To(ContainSubstring("Stored"))
			Expect(out).To(ContainSubstring("Alias service"))

			out = mustRun("template", "add", tplDir)
			Expect(out).To(ContainSubstring("Already stored"))

			Expect(mustRun("template", "list")).To(ContainSubstring("service"))
			Expect(mustRun("template", "show", "service", "--json")).To(ContainSubstring(`"name": "service"`))
			Expect(mustRun("template", "show", "service")).To(ContainSubstring("service"))
		})

		It("prints full and short hashes", func() {
			full := strings.TrimSpace(mustRun("template", "hash", tplDir))
			short := strings.TrimSpace(mustRun("template", "hash", tplDir, "--short"))
			Expect(full).To(HaveLen(64))
			Expect(full).To(HavePrefix(short))
			Expect(short).To(HaveLen(8))
		})

		It("rebinding an alias to another template fails", func() {
			mustRun("template", "add", tplDir, "--alias", "service")

			other := filepath.Join(tmpDir, "other.yaml")
			Expect(os.WriteFile(other, []byte("name: other\nversion: 1.0.0\nrules:\n  allowExtraFiles: true\n  allowExtraFolders: true\n"), 0o644)).To(Succeed())
			mustRun("template", "add", other)

			hash := strings.TrimSpace(mustRun("template", "hash", other))
			_, err := run("template", "alias", hash, "service")
			Expect(err).To(HaveOccurred())
		})

		It("deletes aliased templates only when forced", func() {
			mustRun("template", "add", tplDir, "--alias", "service")

			_, err := run("template", "delete", "service")
			Expect(err).To(MatchError(ContainSubstring("still aliased")))

			Expect(mustRun("template", "delete", "service", "--force")).To(ContainSubstring("Deleted"))
			Expect(mustRun("template", "list")).To(ContainSubstring("No templates stored"))
		})

		It("unbinds aliases", func() {
			mustRun("template", "add", tplDir, "--alias", "service")
			Expect(mustRun("template", "unalias", "service")).To(ContainSubstring("Removed alias"))

			_, err := run("template", "show", "service")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("project lifecycle", func() {
		var project string

		BeforeEach(func() {
			project = filepath.Join(tmpDir, "demo")
			mustRun("template", "add", tplDir, "--alias", "service")
		})

		It("creates, checks, repairs, reports and cleans a project", func() {
			out := mustRun("create", "service", project, "--var", "name=demo")
			Expect(out).To(ContainSubstring("Applied service"))
			Expect(read(filepath.Join(project, "README.md"))).To(Equal("# demo\n"))
			Expect(filepath.Join(project, "cmd", "demo", "main.go")).To(BeAnExistingFile())
			Expect(filepath.Join(project, "docs", ".gitkeep")).To(BeAnExistingFile())
			Expect(manifest.Path(project)).To(BeAnExistingFile())

			Expect(os.Chdir(project)).To(Succeed())

			Expect(mustRun("check")).To(ContainSubstring("0 errors"))

			Expect(os.Remove(filepath.Join(project, "README.md"))).To(Succeed())
			_, err := run("check")
			Expect(err).To(MatchError(checkcmder.ErrCheckFailed))

			out = mustRun("sync")
			Expect(out).To(ContainSubstring("README.md"))
			Expect(read(filepath.Join(project, "README.md"))).To(Equal("# demo\n"))
			mustRun("check")

			out = mustRun("status")
			Expect(out).To(ContainSubstring("demo"))
			Expect(out).To(ContainSubstring("service"))
			Expect(out).To(ContainSubstring("sync"))

			out = mustRun("clean", "service")
			Expect(out).To(ContainSubstring("Removed"))
			Expect(filepath.Join(project, "README.md")).NotTo(BeAnExistingFile())
			Expect(filepath.Join(project, "cmd")).NotTo(BeAnExistingFile())
		})

		It("fails without the required variable and creates nothing", func() {
			_, err := run("create", "service", project)
			Expect(err).To(MatchError(ContainSubstring("name")))
			Expect(project).NotTo(BeAnExistingFile())
		})

		It("writes nothing on a dry run", func() {
			out := mustRun("create", "service", project, "--var", "name=demo", "--dry-run")
			Expect(out).To(ContainSubstring("Dry run"))
			Expect(out).To(ContainSubstring("README.md"))
			Expect(project).NotTo(BeAnExistingFile())
		})

		It("extends an initialized project under a root folder", func() {
			Expect(os.MkdirAll(project, 0o755)).To(Succeed())
			Expect(mustRun("init", project, "--var", "name=api")).To(ContainSubstring("Initialized"))

			_, err := run("init", project)
			Expect(err).To(MatchError(ContainSubstring("already exists")))

			Expect(os.Chdir(project)).To(Succeed())
			mustRun("extend", "service", "--root", "services/api")
			Expect(read(filepath.Join(project, "services", "api", "README.md"))).To(Equal("# api\n"))
		})

		It("keeps local edits on extend unless forced", func() {
			Expect(os.MkdirAll(project, 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(project, "README.md"), []byte("mine\n"), 0o644)).To(Succeed())
			mustRun("init", project, "--var", "name=demo")
			Expect(os.Chdir(project)).To(Succeed())

			out := mustRun("extend", "service")
			Expect(out).To(ContainSubstring("kept_local"))
			Expect(read(filepath.Join(project, "README.md"))).To(Equal("mine\n"))

			mustRun("clean", "service")
			mustRun("extend", "service", "--force")
			Expect(read(filepath.Join(project, "README.md"))).To(Equal("# demo\n"))
		})

		It("merges local additions with --conflict merge", func() {
			Expect(os.MkdirAll(project, 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(project, "README.md"), []byte("# demo\nlocal notes\n"), 0o644)).To(Succeed())
			mustRun("init", project, "--var", "name=demo")
			Expect(os.Chdir(project)).To(Succeed())

			Expect(mustRun("extend", "service", "--conflict", "merge")).To(ContainSubstring("merged"))
			Expect(read(filepath.Join(project, "README.md"))).To(Equal("# demo\nlocal notes\n"))
		})

		It("fails outside a project", func() {
			_, err := run("check")
			Expect(err).To(MatchError(manifest.ErrNotFound))
		})
	})

	Describe("config", func() {
		It("sets, gets and lists values", func() {
			Expect(mustRun("config", "set", "validation.workers", "8")).To(ContainSubstring("Set"))
			Expect(filepath.Join(tmpDir, "config", "config.toml")).To(BeAnExistingFile())
			Expect(mustRun("config", "get", "validation.workers")).To(ContainSubstring("8"))
			listed := mustRun("config", "list")
			Expect(listed).To(ContainSubstring("validation.conflict_resolution"))
			Expect(listed).To(MatchRegexp(`validation\.workers\s+│\s+8\s+│\s+config\.toml`))
			Expect(listed).To(MatchRegexp(`storage\.driver\s+│\s+filesystem\s+│\s+default`))
			Expect(mustRun("config", "list", "--json")).To(ContainSubstring(`"validation.workers": "8"`))
		})

		It("rejects unknown keys and invalid values", func() {
			_, err := run("config", "set", "proxy.provider", "anthropic")
			Expect(err).To(HaveOccurred())

			_, err = run("config", "set", "validation.conflict_resolution", "overwrite")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("version", func() {
		It("prints build metadata", func() {
			Expect(mustRun("version")).To(ContainSubstring("Version: dev"))
			Expect(mustRun("version", "--short")).To(Equal("dev\n"))
		})
	})
})
