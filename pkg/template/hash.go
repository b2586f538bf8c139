package template

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// ShortHashLen is the display and minimum-prefix length of a template hash.
const ShortHashLen = 8

// volatileKeys are stripped from every object level before hashing.
var volatileKeys = map[string]struct{}{
	"createdAt": {},
	"updatedAt": {},
}

// Hash computes the content-addressed identity of t: the SHA-256 (hex) of its
// canonical form.
func Hash(t *Template) (string, error) {
	canonical, err := Canonical(t)
	if err != nil {
		return "", err
	}

	h := sha256.Sum256(canonical)
	return hex.EncodeToString(h[:]), nil
}

// Canonical returns the canonical JSON encoding of t: volatile keys removed at
// every depth, object keys sorted and no insignificant whitespace.
func Canonical(t *Template) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("canonicalizing template: nil template")
	}

	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshaling template: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decoding template tree: %w", err)
	}

	// encoding/json emits map keys in sorted order, which is all the key
	// ordering canonicalization needs here.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(stripVolatile(tree)); err != nil {
		return nil, fmt.Errorf("encoding canonical template: %w", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func stripVolatile(v any) any {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			if _, ok := volatileKeys[k]; ok {
				delete(node, k)
				continue
			}
			node[k] = stripVolatile(child)
		}
		return node
	case []any:
		for i, child := range node {
			node[i] = stripVolatile(child)
		}
		return node
	default:
		return v
	}
}

// ShortHash truncates a full hash for display.
func ShortHash(hash string) string {
	if len(hash) <= ShortHashLen {
		return hash
	}
	return hash[:ShortHashLen]
}

// IsHex reports whether s is a non-empty lowercase hex string.
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

// IsFullHash reports whether s looks like a complete SHA-256 hex digest.
func IsFullHash(s string) bool {
	return len(s) == sha256.Size*2 && IsHex(s)
}
