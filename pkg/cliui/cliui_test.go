package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scaffold/pkg/cliui"
	"github.com/papercomputeco/scaffold/pkg/fsprovider"
	"github.com/papercomputeco/scaffold/pkg/manifest"
	"github.com/papercomputeco/scaffold/pkg/template"
	"github.com/papercomputeco/scaffold/pkg/validate"
)

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below a second", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})

	It("drops sub-second precision past a minute", func() {
		Expect(cliui.FormatDuration(125*time.Second + 400*time.Millisecond)).To(Equal("2m5s"))
	})
})

var _ = Describe("Step", func() {
	It("returns the function's error", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "storing", func() error { return errors.New("boom") })
		Expect(err).To(MatchError("boom"))
		Expect(buf.String()).To(ContainSubstring("storing"))
	})

	It("writes a single line to non-terminal writers", func() {
		var buf bytes.Buffer
		Expect(cliui.Step(&buf, "hashing", func() error { return nil })).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark))
		Expect(buf.String()).To(HaveSuffix("\n"))
		Expect(bytes.Count(buf.Bytes(), []byte("hashing"))).To(Equal(1))
	})
})

var _ = Describe("RenderReport", func() {
	It("lists issues, diffs and the summary", func() {
		report := &validate.Report{
			Errors: []validate.Issue{{
				RuleID:   "readme",
				Severity: template.SeverityError,
				Message:  "README.md differs from the template",
				Diff:     "--- README.md (local)\n+++ README.md (template)\n-a\n+b\n",
			}},
			Suggestions: []validate.Suggestion{{RuleID: "readme", Message: "modify README.md (run scaffold sync to apply)"}},
			Stats:       validate.Stats{RulesEvaluated: 3, ErrorCount: 1},
		}

		var buf bytes.Buffer
		cliui.RenderReport(&buf, report, cliui.ReportOptions{Diffs: true})
		out := buf.String()
		Expect(out).To(ContainSubstring("Errors"))
		Expect(out).To(ContainSubstring("README.md differs from the template"))
		Expect(out).To(ContainSubstring("[readme]"))
		Expect(out).To(ContainSubstring("+b"))
		Expect(out).To(ContainSubstring("run scaffold sync"))
		Expect(out).To(ContainSubstring("3 rules evaluated"))
	})

	It("omits diffs unless asked", func() {
		report := &validate.Report{Errors: []validate.Issue{{RuleID: "r", Message: "m", Diff: "-only-in-diff\n"}}}

		var buf bytes.Buffer
		cliui.RenderReport(&buf, report, cliui.ReportOptions{})
		Expect(buf.String()).NotTo(ContainSubstring("only-in-diff"))
	})
})

var _ = Describe("tables", func() {
	It("renders stored templates", func() {
		var buf bytes.Buffer
		cliui.TemplatesTable(&buf, []template.Summary{{ShortHash: "abcdef12", Name: "go-service", Version: "1.0.0", Aliases: []string{"go", "svc"}}})
		Expect(buf.String()).To(ContainSubstring("abcdef12"))
		Expect(buf.String()).To(ContainSubstring("go, svc"))
	})

	It("renders applied templates and history", func() {
		m := &manifest.Manifest{
			Templates: []manifest.AppliedTemplate{{TemplateHash: "0123456789abcdef", Name: "base", Version: "2", Status: manifest.StatusActive}},
			History: []manifest.HistoryEntry{
				{Action: manifest.ActionCreate, Templates: []string{"0123456789abcdef"}},
				{Action: manifest.ActionCheck},
			},
		}

		var buf bytes.Buffer
		cliui.AppliedTable(&buf, m)
		Expect(buf.String()).To(ContainSubstring("01234567"))
		Expect(buf.String()).To(ContainSubstring("active"))

		buf.Reset()
		cliui.HistoryTable(&buf, m.History, 1)
		Expect(buf.String()).To(ContainSubstring("check"))
		Expect(buf.String()).NotTo(ContainSubstring("create"))
	})
})

var _ = Describe("RenderReport verbose", func() {
	It("lists every rule's final state", func() {
		report := &validate.Report{Results: []validate.RuleResult{
			{TemplateHash: "0123456789abcdef", RuleID: "readme", State: validate.StatePassed},
			{TemplateHash: "0123456789abcdef", RuleID: "license", State: validate.StateSkipped},
		}}

		var buf bytes.Buffer
		cliui.RenderReport(&buf, report, cliui.ReportOptions{Verbose: true})
		Expect(buf.String()).To(ContainSubstring("readme"))
		Expect(buf.String()).To(ContainSubstring("skipped"))
		Expect(buf.String()).To(ContainSubstring("01234567"))
	})
})

var _ = Describe("RenderChanges", func() {
	It("writes one line per change", func() {
		var buf bytes.Buffer
		cliui.RenderChanges(&buf, []manifest.ChangeRecord{
			{Type: manifest.ChangeCreate, Path: "README.md"},
			{Type: manifest.ChangeRename, Path: "a.txt", To: "b.txt"},
		})
		Expect(buf.String()).To(ContainSubstring("README.md"))
		Expect(buf.String()).To(ContainSubstring("a.txt -> b.txt"))
	})
})

var _ = Describe("RenderOperations", func() {
	It("reports an empty dry run", func() {
		var buf bytes.Buffer
		cliui.RenderOperations(&buf, nil)
		Expect(buf.String()).To(ContainSubstring("nothing would be written"))
	})

	It("lists intended writes", func() {
		var buf bytes.Buffer
		cliui.RenderOperations(&buf, []fsprovider.Operation{
			{Kind: fsprovider.OpWrite, Path: "/p/README.md", Bytes: 7},
			{Kind: fsprovider.OpMkdir, Path: "/p/docs"},
		})
		Expect(buf.String()).To(ContainSubstring("/p/README.md"))
		Expect(buf.String()).To(ContainSubstring("(7 bytes)"))
		Expect(buf.String()).To(ContainSubstring("mkdir"))
	})
})
