package template_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scaffold/pkg/template"
)

func sampleTemplate() *template.Template {
	return &template.Template{
		Name:       "go-service",
		Version:    "1.0.0",
		RootFolder: "{{name}}",
		Folders:    []template.Folder{{Path: "cmd"}, {Path: "internal", Gitkeep: true}},
		Files: []template.File{
			{Path: "README.md", Content: "# {{name}}\n"},
			{Path: "main.go", Content: "package main\n"},
		},
		Variables: []template.Variable{{Name: "name", Required: true}},
		Rules: template.RuleSet{
			AllowExtraFiles: true,
			Rules: []template.Rule{{
				Type:   template.RuleRequiredFile,
				Target: "README.md",
				Fix:    &template.Fix{Action: template.FixCreate, AutoFix: true},
			}},
		},
	}
}

var _ = Describe("Hash", func() {
	It("is stable across repeated calls", func() {
		t := sampleTemplate()
		first, err := template.Hash(t)
		Expect(err).NotTo(HaveOccurred())
		second, err := template.Hash(t)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(Equal(second))
		Expect(template.IsFullHash(first)).To(BeTrue())
	})

	It("survives a JSON round trip", func() {
		t := sampleTemplate()
		data, err := json.Marshal(t)
		Expect(err).NotTo(HaveOccurred())

		var decoded template.Template
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())

		Expect(template.Hash(&decoded)).To(Equal(mustHash(t)))
	})

	It("ignores timestamps", func() {
		t := sampleTemplate()
		before := mustHash(t)

		now := time.Now()
		t.CreatedAt = &now
		t.UpdatedAt = &now
		Expect(mustHash(t)).To(Equal(before))
	})

	It("changes when structure changes", func() {
		t := sampleTemplate()
		before := mustHash(t)

		t.Files[0].Content = "# changed\n"
		Expect(mustHash(t)).NotTo(Equal(before))
	})

	It("changes when a rule changes", func() {
		t := sampleTemplate()
		before := mustHash(t)

		t.Rules.Rules[0].Severity = template.SeverityWarning
		Expect(mustHash(t)).NotTo(Equal(before))
	})

	It("emits sorted keys without whitespace", func() {
		out, err := template.Canonical(&template.Template{Name: "a", Version: "1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal(`{"name":"a","rules":{"allowExtraFiles":false,"allowExtraFolders":false},"version":"1"}`))
	})
})

var _ = Describe("ShortHash", func() {
	It("truncates to eight characters", func() {
		Expect(template.ShortHash("0123456789abcdef")).To(Equal("01234567"))
		Expect(template.ShortHash("abc")).To(Equal("abc"))
	})
})

func mustHash(t *template.Template) string {
	h, err := template.Hash(t)
	Expect(err).NotTo(HaveOccurred())
	return h
}
