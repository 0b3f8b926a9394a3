package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/packmerge/packmerge/internal/pack"
)

// Dir reads a directory tree as a source. Entry paths are relative to the
// directory root with forward-slash separators; enumeration follows
// filepath.WalkDir's lexical order, which is stable across calls.
type Dir struct {
	root string
}

// NewDir creates a directory source rooted at root.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Name identifies the source in diagnostics and merge listings.
func (d *Dir) Name() string {
	return d.root
}

// Entries walks the tree and yields every regular file. Unreadable
// entries fail the walk rather than being skipped.
func (d *Dir) Entries(bufferSize int, fn func(pack.Entry) error) error {
	info, err := os.Stat(d.root)
	if err != nil {
		return wrapIO(d.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s: not a directory", ErrIO, d.root)
	}

	return filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return wrapIO(d.root, walkErr)
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return wrapIO(d.root, err)
		}

		fileInfo, err := entry.Info()
		if err != nil {
			return wrapIO(d.root, err)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return wrapIO(d.root, err)
		}

		return fn(pack.Entry{
			Path:    filepath.ToSlash(rel),
			Content: content,
			ModTime: fileInfo.ModTime(),
		})
	})
}
