package version

// Version is set at build time with -ldflags "-X github.com/liamg/vulnscan/version.Version=..."
var Version string

// String returns Version, or a marker for untagged builds.
func String() string {
	if Version == "" {
		return "development version"
	}
	return Version
}
