package vars

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Transform rewrites a substituted value.
type Transform func(string) string

var transforms = map[string]Transform{
	"lower":      strings.ToLower,
	"upper":      strings.ToUpper,
	"capitalize": Capitalize,
	"kebab":      Kebab,
	"snake":      Snake,
	"camel":      Camel,
	"pascal":     Pascal,
}

// IsTransform reports whether name is a known transform.
func IsTransform(name string) bool {
	_, ok := transforms[name]
	return ok
}

// Capitalize upper-cases the first rune and leaves the rest untouched.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Kebab converts "My Component" and "myComponent" to "my-component".
func Kebab(s string) string {
	return joinLower(words(s), "-")
}

// Snake converts "My Component" to "my_component".
func Snake(s string) string {
	return joinLower(words(s), "_")
}

// Camel converts "my component" to "myComponent".
func Camel(s string) string {
	ws := words(s)
	for i, w := range ws {
		w = strings.ToLower(w)
		if i > 0 {
			w = Capitalize(w)
		}
		ws[i] = w
	}
	return strings.Join(ws, "")
}

// Pascal converts "my component" to "MyComponent".
func Pascal(s string) string {
	ws := words(s)
	for i, w := range ws {
		ws[i] = Capitalize(strings.ToLower(w))
	}
	return strings.Join(ws, "")
}

func joinLower(ws []string, sep string) string {
	for i, w := range ws {
		ws[i] = strings.ToLower(w)
	}
	return strings.Join(ws, sep)
}

// words splits s on anything that is not a letter or digit and on case
// boundaries, keeping acronyms together: "HTTPServer v2" -> HTTP, Server, v2.
func words(s string) []string {
	var (
		out []string
		cur []rune
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}

		if len(cur) > 0 && unicode.IsUpper(r) {
			prev := cur[len(cur)-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()

	return out
}
