package checkcmder

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scaffold/pkg/logger"
)

var _ = Describe("watch", func() {
	var (
		tmpDir string
		calls  atomic.Int32
		cancel context.CancelFunc
		done   chan error
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "scaffold-watch-test-*")
		Expect(err).NotTo(HaveOccurred())
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".scaffold"), 0o755)).To(Succeed())
		Expect(os.MkdirAll(filepath.Join(tmpDir, "src"), 0o755)).To(Succeed())

		calls.Store(0)
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() {
			done <- watch(ctx, tmpDir, 50*time.Millisecond, logger.Nop(), func() error {
				calls.Add(1)
				return nil
			})
		}()
		// Let the watcher register its directories.
		time.Sleep(100 * time.Millisecond)
	})

	AfterEach(func() {
		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
		os.RemoveAll(tmpDir)
	})

	It("runs once per burst of changes", func() {
		for i := range 5 {
			Expect(os.WriteFile(filepath.Join(tmpDir, "src", "main.go"), []byte{byte('a' + i)}, 0o644)).To(Succeed())
		}

		Eventually(calls.Load).Should(BeEquivalentTo(1))
		Consistently(calls.Load, 200*time.Millisecond).Should(BeEquivalentTo(1))
	})

	It("watches directories created after it started", func() {
		Expect(os.MkdirAll(filepath.Join(tmpDir, "docs"), 0o755)).To(Succeed())
		Eventually(calls.Load).Should(BeEquivalentTo(1))

		Expect(os.WriteFile(filepath.Join(tmpDir, "docs", "guide.md"), []byte("# guide\n"), 0o644)).To(Succeed())
		Eventually(calls.Load).Should(BeEquivalentTo(2))
	})

	It("ignores manifest writes", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, ".scaffold", "manifest.json"), []byte("{}"), 0o644)).To(Succeed())
		Consistently(calls.Load, 200*time.Millisecond).Should(BeZero())
	})
})
