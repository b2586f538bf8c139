package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scaffold/pkg/storage"
	"github.com/papercomputeco/scaffold/pkg/storage/filesystem"
	"github.com/papercomputeco/scaffold/pkg/storage/inmemory"
	"github.com/papercomputeco/scaffold/pkg/storage/sqlite"
	"github.com/papercomputeco/scaffold/pkg/template"
)

func testTemplate(name string) *template.Template {
	return &template.Template{
		Name:    name,
		Version: "1.0.0",
		Files:   []template.File{{Path: "README.md", Content: "# " + name}},
		Rules:   template.RuleSet{AllowExtraFiles: true},
	}
}

// driverBehaves registers the shared driver contract for one backend.
func driverBehaves(name string, newDriver func(dir string) storage.Driver) {
	Describe(name, func() {
		var (
			ctx    context.Context
			tmpDir string
			driver storage.Driver
		)

		BeforeEach(func() {
			ctx = context.Background()
			var err error
			tmpDir, err = os.MkdirTemp("", "storage-driver-*")
			Expect(err).NotTo(HaveOccurred())
			driver = newDriver(tmpDir)
		})

		AfterEach(func() {
			driver.Close()
			os.RemoveAll(tmpDir)
		})

		It("stores and retrieves a template by hash", func() {
			tpl := testTemplate("svc")
			hash, isNew, err := driver.Put(ctx, tpl)
			Expect(err).NotTo(HaveOccurred())
			Expect(isNew).To(BeTrue())

			expected, err := template.Hash(tpl)
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).To(Equal(expected))

			got, err := driver.Get(ctx, hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("svc"))
			Expect(got.CreatedAt).NotTo(BeNil())
			Expect(template.Hash(got)).To(Equal(hash))
		})

		It("treats identical content as a no-op", func() {
			first, _, err := driver.Put(ctx, testTemplate("svc"))
			Expect(err).NotTo(HaveOccurred())

			now := time.Now().Add(-time.Hour)
			again := testTemplate("svc")
			again.CreatedAt = &now

			second, isNew, err := driver.Put(ctx, again)
			Expect(err).NotTo(HaveOccurred())
			Expect(isNew).To(BeFalse())
			Expect(second).To(Equal(first))

			entries, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})

		It("does not mutate the caller's template", func() {
			tpl := testTemplate("svc")
			_, _, err := driver.Put(ctx, tpl)
			Expect(err).NotTo(HaveOccurred())
			Expect(tpl.CreatedAt).To(BeNil())
		})

		It("lists templates sorted by hash", func() {
			for _, n := range []string{"a", "b", "c"} {
				_, _, err := driver.Put(ctx, testTemplate(n))
				Expect(err).NotTo(HaveOccurred())
			}

			entries, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(3))
			Expect(entries[0].Hash < entries[1].Hash).To(BeTrue())
			Expect(entries[1].Hash < entries[2].Hash).To(BeTrue())
		})

		It("reports missing hashes as NotFoundError", func() {
			_, err := driver.Get(ctx, "deadbeef")
			var nf storage.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(nf.Hash).To(Equal("deadbeef"))

			has, err := driver.Has(ctx, "deadbeef")
			Expect(err).NotTo(HaveOccurred())
			Expect(has).To(BeFalse())
		})

		It("deletes templates", func() {
			hash, _, err := driver.Put(ctx, testTemplate("svc"))
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.Delete(ctx, hash)).To(Succeed())
			has, err := driver.Has(ctx, hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(has).To(BeFalse())

			err = driver.Delete(ctx, hash)
			Expect(errors.As(err, &storage.NotFoundError{})).To(BeTrue())
		})
	})
}

var _ = Describe("Drivers", func() {
	driverBehaves("inmemory", func(string) storage.Driver {
		return inmemory.NewDriver()
	})

	driverBehaves("filesystem", func(dir string) storage.Driver {
		return filesystem.NewDriver(filepath.Join(dir, "templates"), nil, nil)
	})

	driverBehaves("sqlite", func(dir string) storage.Driver {
		d, err := sqlite.NewDriver(filepath.Join(dir, "templates.db"), nil)
		Expect(err).NotTo(HaveOccurred())
		return d
	})
})

var _ = Describe("filesystem documents", func() {
	It("writes one pretty JSON document per hash", func() {
		tmpDir := GinkgoT().TempDir()
		d := filesystem.NewDriver(tmpDir, nil, nil)

		hash, _, err := d.Put(context.Background(), testTemplate("svc"))
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(filepath.Join(tmpDir, hash+".json"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("\n  \"name\": \"svc\""))
	})
})
