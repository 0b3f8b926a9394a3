// Package pack defines the data model shared by the merge pipeline:
// the Entry unit all sources are normalized into, the insertion-ordered
// MergedSet, and the overwrite policies that govern path collisions.
package pack

import "time"

// Entry is the canonical unit inside a source or merged result.
type Entry struct {
	// Path is the normalized entry path: forward-slash separators, no
	// leading "./", no leading "/", no drive prefix.
	Path string

	// Content is the entry payload.
	Content []byte

	// ModTime is the entry's modification time; zero when the source did
	// not carry one.
	ModTime time.Time

	// Source is the position of the entry's origin in the merge input
	// list. Used for conflict diagnostics and manifest provenance.
	Source int
}
