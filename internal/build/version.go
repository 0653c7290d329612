package build

import "fmt"

// Set at link time with -ldflags "-X .../internal/build.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// FullVersion returns "Version+Commit", e.g. "1.0.0+abc123".
func FullVersion() string {
	return Version + "+" + Commit
}

// UserAgent is the default User-Agent header sent by the crawler.
func UserAgent() string {
	return "site-crawler/" + Version
}

// Summary is the multi-line text printed by the version command.
func Summary() string {
	return fmt.Sprintf("site-crawler version %s\n  commit: %s\n  built:  %s\n", Version, Commit, BuildTime)
}
