// Package version exposes the kestrel release version embedded at build time.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the kestrel version from the embedded VERSION file, with
// surrounding whitespace trimmed.
func Get() string {
	return strings.TrimSpace(versionContent)
}
