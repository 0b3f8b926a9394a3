// Package source converts merge inputs into ordered entry sequences.
//
// Each input variant (directory, zip file, in-memory zip bytes, remote zip
// URL) implements the Source interface, producing a lazy, finite sequence
// of entries in a stable order. Remote sources are fetched whole before
// reading; the fetch either yields complete archive bytes or fails.
package source

import (
	"os"
	"strings"

	"github.com/packmerge/packmerge/internal/pack"
)

// DefaultBufferSize is the streaming chunk size used when a caller passes
// a non-positive buffer size.
const DefaultBufferSize = 32 * 1024

// Source produces an ordered, lazy sequence of entries. Entries may be
// called more than once; each call restarts the sequence.
type Source interface {
	// Name identifies the source in diagnostics and merge listings.
	Name() string

	// Entries calls fn for each entry in a stable order, reading content
	// in bufferSize chunks. The first error aborts the sequence.
	Entries(bufferSize int, fn func(pack.Entry) error) error
}

// FromPath resolves a filesystem path into a Source: a directory source
// when the path is a directory, a zip file source otherwise.
func FromPath(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, wrapIO(path, err)
	}
	if info.IsDir() {
		return NewDir(path), nil
	}
	return NewZipFile(path), nil
}

// FromString resolves a config or CLI input string into a Source.
// Strings with an http or https scheme become remote sources; everything
// else is resolved as a filesystem path.
func FromString(s string) (Source, error) {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return NewRemote(s, NewHTTPFetcher()), nil
	}
	return FromPath(s)
}

func normalizeBuffer(n int) int {
	if n <= 0 {
		return DefaultBufferSize
	}
	return n
}
