package identity

import (
	"fmt"
	"strings"
)

// NotFoundError is returned when a reference matches no alias, hash or
// prefix.
type NotFoundError struct {
	Ref string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("template %q not found", e.Ref)
}

// AmbiguousPrefixError is returned when a short hash matches more than one
// stored template.
type AmbiguousPrefixError struct {
	Prefix  string
	Matches []string
}

func (e AmbiguousPrefixError) Error() string {
	return fmt.Sprintf("prefix %q is ambiguous: matches %s", e.Prefix, strings.Join(e.Matches, ", "))
}

// AliasConflictError is returned when an alias is already bound to a
// different hash.
type AliasConflictError struct {
	Alias     string
	Existing  string
	Requested string
}

func (e AliasConflictError) Error() string {
	return fmt.Sprintf("alias %q already points to %s (requested %s)", e.Alias, e.Existing, e.Requested)
}

// AliasesExistError is returned when deleting a template that live aliases
// still reference.
type AliasesExistError struct {
	Hash    string
	Aliases []string
}

func (e AliasesExistError) Error() string {
	return fmt.Sprintf("template %s is still aliased as %s (use --force to delete anyway)",
		e.Hash, strings.Join(e.Aliases, ", "))
}

// InvalidAliasError is returned for alias names that cannot be registered.
type InvalidAliasError struct {
	Alias  string
	Reason string
}

func (e InvalidAliasError) Error() string {
	return fmt.Sprintf("invalid alias %q: %s", e.Alias, e.Reason)
}
