package version

// Version contains the application version information.
// This should be set via build-time ldflags in production:
// go build -ldflags "-X git.home.luguber.info/inful/sitekit/internal/version.Version=v0.3.0".
var Version = "dev"

// Build metadata stamped alongside Version.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)
