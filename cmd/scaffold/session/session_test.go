package session_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	scaffoldcmder "github.com/papercomputeco/scaffold/cmd/scaffold"
	"github.com/papercomputeco/scaffold/cmd/scaffold/session"
	"github.com/papercomputeco/scaffold/pkg/config"
	"github.com/papercomputeco/scaffold/pkg/conflict"
	"github.com/papercomputeco/scaffold/pkg/storage/filesystem"
	"github.com/papercomputeco/scaffold/pkg/storage/inmemory"
)

var _ = Describe("Open", func() {
	var tmpDir string

	// open parses args against a leaf command under the real root so the
	// persistent flags match the CLI.
	open := func(args ...string) (*session.Session, *cobra.Command) {
		root := scaffoldcmder.NewScaffoldCmd()
		leaf := &cobra.Command{Use: "leaf", RunE: func(*cobra.Command, []string) error { return nil }}
		var policy string
		config.AddStringFlag(leaf, config.Flags, config.FlagConflict, &policy)
		root.AddCommand(leaf)

		base := []string{
			"leaf",
			"--config-dir", filepath.Join(tmpDir, "config"),
			"--templates-dir", filepath.Join(tmpDir, "store"),
			"--aliases", filepath.Join(tmpDir, "aliases.json"),
		}
		root.SetArgs(append(base, args...))
		Expect(root.Execute()).To(Succeed())

		s, err := session.Open(leaf)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(s.Close)
		return s, leaf
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "scaffold-session-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("defaults to the filesystem store", func() {
		s, _ := open()
		Expect(s.Store).To(BeAssignableToTypeOf(&filesystem.Driver{}))
		Expect(s.DryRun).To(BeFalse())
		Expect(s.Operations()).To(BeNil())
	})

	It("selects the store driver from flags", func() {
		s, _ := open("--storage-driver", "memory")
		Expect(s.Store).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("reads config.toml values", func() {
		cfger, err := config.NewConfiger(filepath.Join(tmpDir, "config"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfger.SetConfigValue("validation.workers", "7")).To(Succeed())

		s, _ := open()
		Expect(s.Config.Validation.Workers).To(BeEquivalentTo(7))
	})

	It("records intended writes on a dry run", func() {
		s, _ := open("--dry-run")
		Expect(s.DryRun).To(BeTrue())

		Expect(s.Provider.WriteFile(filepath.Join(tmpDir, "x.txt"), []byte("x"), 0o644)).To(Succeed())
		Expect(s.Operations()).To(HaveLen(1))
		Expect(filepath.Join(tmpDir, "x.txt")).NotTo(BeAnExistingFile())
	})

	Describe("Policy", func() {
		It("is empty without flags", func() {
			s, leaf := open()
			Expect(s.Policy(leaf)).To(BeEmpty())
		})

		It("maps --force to replace", func() {
			s, leaf := open("--force")
			Expect(s.Policy(leaf)).To(Equal(conflict.PolicyReplace))
		})

		It("prefers an explicit --conflict", func() {
			s, leaf := open("--force", "--conflict", "prompt")
			Expect(s.Policy(leaf)).To(Equal(conflict.PolicyPrompt))
		})
	})
})
