package version

// Package version holds build-time metadata injected via -ldflags, e.g.
//
//	go build -ldflags "-X diagsvc/internal/version.Version=v1.2.3 -X diagsvc/internal/version.Commit=abc1234"
//
// APP_VERSION in the environment takes precedence over Version at runtime.

var (
	// Version is a SemVer tag like v1.2.3 for releases. Empty for dev builds.
	Version = ""
	// Commit is the short git SHA for the build.
	Commit = ""
	// Date is the UTC build timestamp in RFC3339 format.
	Date = ""
	// Dirty is "dirty" when the working tree had uncommitted changes, otherwise "clean".
	Dirty = ""
)

// Fallback is reported when neither the environment nor the build supplies a version.
const Fallback = "1.0.0"

// Resolve picks the version to report: the configured override when set,
// then the release tag, then a dev string built from the commit.
func Resolve(override string) string {
	if override != "" {
		return override
	}
	if Version != "" {
		return Version
	}
	if Commit != "" {
		suffix := Commit
		if Dirty == "dirty" {
			suffix += "*"
		}
		return "dev-" + suffix
	}
	return Fallback
}

// Build describes the binary for the /version endpoint.
type Build struct {
	Commit string `json:"commit,omitempty"`
	Date   string `json:"build_date,omitempty"`
}

// Info returns the build metadata recorded at link time.
func Info() Build {
	return Build{Commit: Commit, Date: Date}
}
