// Package version holds build metadata, set at link time with
// -ldflags "-X github.com/banshee-data/phobos/internal/version.Version=...".
package version

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)
