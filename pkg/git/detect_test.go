package git_test

import (
	"os"
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scaffold/pkg/git"
)

var _ = Describe("git config lookups", func() {
	var tmpDir string

	BeforeEach(func() {
		if _, err := exec.LookPath("git"); err != nil {
			Skip("git is not installed")
		}

		var err error
		tmpDir, err = os.MkdirTemp("", "scaffold-git-test-*")
		Expect(err).NotTo(HaveOccurred())

		global := filepath.Join(tmpDir, "gitconfig")
		Expect(os.WriteFile(global, []byte("[user]\n\tname = Ada Lovelace\n"), 0o644)).To(Succeed())

		for key, value := range map[string]string{"GIT_CONFIG_GLOBAL": global, "GIT_CONFIG_NOSYSTEM": "1"} {
			orig, had := os.LookupEnv(key)
			Expect(os.Setenv(key, value)).To(Succeed())
			DeferCleanup(func() {
				if had {
					os.Setenv(key, orig)
				} else {
					os.Unsetenv(key)
				}
			})
		}
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns the configured user name", func() {
		Expect(git.UserName(tmpDir)).To(Equal("Ada Lovelace"))
	})

	It("returns empty for unset keys", func() {
		Expect(git.UserEmail(tmpDir)).To(BeEmpty())
	})
})
