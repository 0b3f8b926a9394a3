package pack

import (
	"fmt"
	"strings"
)

// OverwritePolicy governs which entry wins when two sources declare the
// same path.
type OverwritePolicy string

// Overwrite policy constants
const (
	// LastWins replaces the existing entry with the incoming one.
	LastWins OverwritePolicy = "last"

	// FirstWins discards the incoming entry when the path is taken.
	FirstWins OverwritePolicy = "first"

	// ErrorIfConflict fails the merge when two sources supply differing
	// content at the same path.
	ErrorIfConflict OverwritePolicy = "error"

	// SkipIfExists discards entries whose path already exists at the
	// output destination, regardless of which source supplies them.
	SkipIfExists OverwritePolicy = "skip"
)

// ParseOverwritePolicy parses a policy name. Matching is case
// insensitive, and the long spellings used by config files ("last_wins",
// "lastwins", ...) are accepted alongside the short CLI forms.
func ParseOverwritePolicy(s string) (OverwritePolicy, error) {
	switch strings.ToLower(s) {
	case "last", "lastwins", "last_wins":
		return LastWins, nil
	case "first", "firstwins", "first_wins":
		return FirstWins, nil
	case "error", "errorifconflict", "error_if_conflict":
		return ErrorIfConflict, nil
	case "skip", "skipifexists", "skip_if_exists":
		return SkipIfExists, nil
	default:
		return "", fmt.Errorf("unknown overwrite policy: %q", s)
	}
}
