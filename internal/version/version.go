// Package version holds the tool identity embedded into synthesized
// pack metadata and CLI output.
package version

import "fmt"

// Tool is the name packmerge identifies itself with in generated files.
const Tool = "packmerge"

// current is set once at startup from the main package (ldflags injection).
var current = "dev"

// Set overrides the version string. Empty values are ignored so the
// "dev" default survives builds without ldflags.
func Set(v string) {
	if v == "" {
		return
	}
	current = v
}

// String returns the bare version (e.g. "dev" or "1.2.0").
func String() string {
	return current
}

// Identity returns the "tool version" string used in generated manifests
// and merge listings.
func Identity() string {
	return fmt.Sprintf("%s %s", Tool, current)
}
