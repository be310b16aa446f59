// Package version holds build identity, overridden at link time.
package version

// Set via -ldflags "-X github.com/helix-labs/docqa/internal/version.Version=... -X ...Commit=..."
var (
	Version = "dev"
	Commit  = "unknown"
)
