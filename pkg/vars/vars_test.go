package vars_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scaffold/pkg/vars"
)

var _ = Describe("Engine", func() {
	var engine *vars.Engine

	BeforeEach(func() {
		engine = vars.New()
	})

	Describe("Substitute", func() {
		It("replaces simple placeholders", func() {
			out, err := engine.Substitute("Hello {{name}}!", map[string]any{"name": "World"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("Hello World!"))
		})

		It("uses the literal default when the variable is absent", func() {
			out, err := engine.Substitute("{{env|production}}", map[string]any{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("production"))
		})

		It("applies case transforms", func() {
			out, err := engine.Substitute("{{name|kebab}}", map[string]any{"name": "My Component"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("my-component"))
		})

		It("chains a default with a transform", func() {
			out, err := engine.Substitute("{{name|My App|snake}}", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("my_app"))
		})

		It("resolves dotted paths into nested maps", func() {
			variables := map[string]any{
				"project": map[string]any{"name": "demo", "port": float64(8000)},
			}
			out, err := engine.Substitute("{{ project.name }}:{{project.port}}", variables)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("demo:8000"))
		})

		It("fails on missing variables in strict mode", func() {
			_, err := engine.Substitute("{{API_TITLE}}", nil)

			var missing vars.MissingVariableError
			Expect(errors.As(err, &missing)).To(BeTrue())
			Expect(missing.Name).To(Equal("API_TITLE"))
		})

		It("substitutes empty strings when not strict", func() {
			lax := vars.New(vars.WithStrict(false))
			out, err := lax.Substitute("[{{missing}}]", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("[]"))
		})

		It("leaves expressions that are not variable names untouched", func() {
			out, err := engine.Substitute("{{ }} and {{ 1 + 2 }}", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("{{ }} and {{ 1 + 2 }}"))
		})

		It("computes built-ins per call", func() {
			n := 0
			e := vars.New(
				vars.WithClock(func() time.Time { return time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC) }),
				vars.WithUUIDFunc(func() string { n++; return []string{"first", "second"}[n-1] }),
			)

			out, err := e.Substitute("{{date}} {{timestamp}} {{uuid}} {{uuid}}", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("2026-10-14 2026-10-14T09:30:00Z first first"))

			out, err = e.Substitute("{{uuid}}", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("second"))
		})

		It("lets user variables shadow built-ins", func() {
			out, err := engine.Substitute("{{date}}", map[string]any{"date": "yesterday"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("yesterday"))
		})
	})

	Describe("ExtractVariables", func() {
		It("returns base names in first-occurrence order", func() {
			Expect(vars.ExtractVariables("{{a.b}} and {{c|default}}")).To(Equal([]string{"a.b", "c"}))
		})

		It("deduplicates and strips transforms", func() {
			names := vars.ExtractVariables("{{name|kebab}}/{{name}}/{{PORT}}/{{name|upper}}")
			Expect(names).To(Equal([]string{"name", "PORT"}))
		})
	})

	Describe("SubstituteInPath", func() {
		It("substitutes each segment", func() {
			out, err := engine.SubstituteInPath("src/{{name|snake}}/{{name|pascal}}.py", map[string]any{"name": "user service"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("src/user_service/UserService.py"))
		})

		It("rejects segments that escape the path", func() {
			_, err := engine.SubstituteInPath("src/{{name}}", map[string]any{"name": "../etc"})
			Expect(err).To(HaveOccurred())
		})

		It("rejects empty segments", func() {
			lax := vars.New(vars.WithStrict(false))
			_, err := lax.SubstituteInPath("src/{{name}}/main.go", nil)
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("Transforms", func() {
	DescribeTable("case conversion",
		func(fn func(string) string, in, want string) {
			Expect(fn(in)).To(Equal(want))
		},
		Entry("kebab from words", vars.Kebab, "My Component", "my-component"),
		Entry("kebab from camel", vars.Kebab, "myComponent", "my-component"),
		Entry("snake keeps acronyms", vars.Snake, "HTTPServer", "http_server"),
		Entry("camel", vars.Camel, "user-service api", "userServiceApi"),
		Entry("pascal", vars.Pascal, "user_service", "UserService"),
		Entry("capitalize", vars.Capitalize, "hello world", "Hello world"),
	)
})

var _ = Describe("Assignments", func() {
	It("builds nested maps from dotted keys", func() {
		out, err := vars.ParseAssignments([]string{"name=demo", "db.host=localhost", "db.port=5432"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(map[string]any{
			"name": "demo",
			"db":   map[string]any{"host": "localhost", "port": "5432"},
		}))
	})

	It("rejects malformed pairs", func() {
		_, err := vars.ParseAssignments([]string{"novalue"})
		Expect(err).To(HaveOccurred())
	})

	It("merges nested maps", func() {
		base := map[string]any{"db": map[string]any{"host": "a", "port": "1"}, "env": "dev"}
		merged := vars.Merge(base, map[string]any{"db": map[string]any{"host": "b"}})
		Expect(merged).To(Equal(map[string]any{
			"db":  map[string]any{"host": "b", "port": "1"},
			"env": "dev",
		}))
	})
})
