package compiler

import "fmt"

// Build-time variables injected via linker flags (ldflags).
//
// Release builds run:
//
//	go build -ldflags "-X github.com/ceres-lang/ceres/compiler.Version=$(git describe --tags) ..."
//
// The -X flag overwrites these string variables at link time.
var (
	Version = "dev"     // Overwritten with git tag (e.g., "v0.3.0")
	Commit  = "unknown" // Overwritten with git commit hash
)

// Producer is the string stamped into every compile unit so a debugger can
// tell which compiler built it.
func Producer() string {
	if Commit == "unknown" {
		return fmt.Sprintf("ceres %s", Version)
	}
	return fmt.Sprintf("ceres %s (%s)", Version, Commit)
}
