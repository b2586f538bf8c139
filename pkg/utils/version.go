// Package utils provides small helpers shared by the CLI that don't warrant
// their own package.
package utils

// Build metadata, stamped at release time with
// -ldflags "-X github.com/papercomputeco/scaffold/pkg/utils.Version=v1.2.3".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
