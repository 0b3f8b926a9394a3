package sink

import (
	"fmt"
	"path/filepath"

	"github.com/packmerge/packmerge/internal/fsops"
	"github.com/packmerge/packmerge/internal/pack"
)

// WriteDir serializes the merged set as a directory tree rooted at dest,
// creating intermediate directories as needed.
//
// With opts.Atomic the tree is fully staged in a temp directory next to
// dest. When dest does not exist yet, the staged tree is renamed into
// place in one step. When dest already exists (SkipIfExists merges write
// into populated destinations), staged files are moved in individually
// only after every entry staged successfully, so a failure during the
// merge or staging leaves dest untouched.
func WriteDir(fsys fsops.FS, dest string, set *pack.MergedSet, opts Options) error {
	if !opts.Atomic {
		return writeTree(fsys, dest, set, opts)
	}

	parent := filepath.Dir(filepath.Clean(dest))
	if err := fsys.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("failed to create destination parent: %w", err)
	}
	staging, err := fsys.MkdirTemp(parent, ".packmerge-stage-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		_ = fsys.RemoveAll(staging)
	}()

	if err := writeTree(fsys, staging, set, opts); err != nil {
		return err
	}

	exists, err := fsys.Exists(dest)
	if err != nil {
		return fmt.Errorf("failed to inspect destination %s: %w", dest, err)
	}
	if !exists {
		if err := fsys.Rename(staging, dest); err != nil {
			return fmt.Errorf("failed to move staged output into place: %w", err)
		}
		return nil
	}

	// Destination already populated: move staged files in one by one.
	// Every entry was staged successfully before the first move.
	return set.Entries(func(e *pack.Entry) error {
		target := filepath.Join(dest, filepath.FromSlash(e.Path))
		if err := fsys.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", e.Path, err)
		}
		staged := filepath.Join(staging, filepath.FromSlash(e.Path))
		if err := fsys.Rename(staged, target); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", e.Path, err)
		}
		return nil
	})
}

// writeTree writes every entry below root directly.
func writeTree(fsys fsops.FS, root string, set *pack.MergedSet, opts Options) error {
	return set.Entries(func(e *pack.Entry) error {
		target := filepath.Join(root, filepath.FromSlash(e.Path))
		if err := fsys.WriteFile(target, e.Content, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.Path, err)
		}
		if opts.PreserveTimestamps && !e.ModTime.IsZero() {
			if err := fsys.Chtimes(target, e.ModTime, e.ModTime); err != nil {
				return fmt.Errorf("failed to set mod time on %s: %w", e.Path, err)
			}
		}
		return nil
	})
}
