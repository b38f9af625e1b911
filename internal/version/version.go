package version

import "github.com/fatih/color"

// Version information for the nimsh CLI.
// These variables can be overridden at build time via -ldflags.

var (
	versionColor = color.New(color.FgCyan, color.Bold)
	suffixColor  = color.New(color.Faint)

	// Plain is the semantic version without styling, for headers rendered
	// when color output is disabled.
	Plain = "0.1.0-dev"

	// Version is the semantic version of the CLI.
	Version = versionColor.Sprint("0.1.0") + suffixColor.Sprint("-dev")

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)
