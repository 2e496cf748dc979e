// SPDX-License-Identifier: MIT
//
// Package build manages build information embedded into the binary at
// compile time using linker flags: application name, build timestamp, Git
// commit hash and semantic version. Development builds without ldflags fall
// back to sensible defaults.
package build

// ldFlags holds build-time information injected during compilation, e.g.:
//
//	go build -ldflags "-X spectra/pkg/build.buildVersion=0.1.0"
type ldFlags struct {
	Name    string // Application name
	Time    string // Build timestamp
	Commit  string // Git commit hash
	Version string // Semantic version
}

// Package-level variables for build information. These are populated by
// -ldflags during compilation; development defaults apply otherwise.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "spectra",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies any build information set via ldflags into the
// buildFlags struct. Unset flags keep their development defaults. Call early
// in program startup, before GetBuildFlags.
func Initialize() {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
