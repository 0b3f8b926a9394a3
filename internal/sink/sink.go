// Package sink serializes a finalized merged set to its destination: an
// in-memory zip payload, a zip file on disk, or a directory tree.
//
// Destinations are written atomically by default: the output is fully
// constructed at a temporary location and moved into place as the final
// step, so a failed or interrupted merge never leaves a partially-written
// destination visible under the requested name.
package sink

import (
	"archive/zip"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/packmerge/packmerge/internal/fsops"
)

// Options controls output serialization.
type Options struct {
	// BufferSize is the streaming chunk size for entry content copies.
	BufferSize int

	// Atomic selects temp-location construction plus a final rename.
	Atomic bool

	// PreserveTimestamps carries entry mod times into the output.
	PreserveTimestamps bool
}

// DestState is the set of entry paths already present at the output
// destination, queried before the merge pass so the SkipIfExists policy
// can consult it while entries stream by.
type DestState map[string]struct{}

// Has reports whether the destination already contains path.
func (s DestState) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// DirState collects the files already present under a destination
// directory. A missing destination yields an empty state.
func DirState(fsys fsops.FS, root string) (DestState, error) {
	state := make(DestState)

	exists, err := fsys.Exists(root)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect destination %s: %w", root, err)
	}
	if !exists {
		return state, nil
	}

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		state[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to inspect destination %s: %w", root, err)
	}
	return state, nil
}

// ZipFileState collects the entries of an existing destination archive.
// A missing destination yields an empty state.
func ZipFileState(fsys fsops.FS, path string) (DestState, error) {
	state := make(DestState)

	exists, err := fsys.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect destination %s: %w", path, err)
	}
	if !exists {
		return state, nil
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination archive %s: %w", path, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		// Best-effort normalization; entries with hostile names can never
		// match a sanitized merge path anyway.
		name, err := fsops.SanitizeEntryPath(file.Name)
		if err != nil {
			continue
		}
		state[name] = struct{}{}
	}
	return state, nil
}
