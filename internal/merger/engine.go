// Package merger provides the core merge pipeline.
//
// The merger package acts as the orchestration layer between CLI commands
// and lower-level operations. It coordinates source reading, entry path
// sanitization, overwrite resolution, metadata synthesis, and output
// serialization.
//
// Key components:
//   - Engine: Main orchestrator that coordinates all operations
//   - Resolver: Applies the overwrite policy entry by entry
//   - MergeToBytes/MergeToFile/MergeToDir: Output-shaped entry points
//   - MergeAllInFolder: Merges every pack found under one folder
package merger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/packmerge/packmerge/internal/clock"
	"github.com/packmerge/packmerge/internal/fsops"
	"github.com/packmerge/packmerge/internal/hash"
	"github.com/packmerge/packmerge/internal/manifest"
	"github.com/packmerge/packmerge/internal/pack"
	"github.com/packmerge/packmerge/internal/sink"
	"github.com/packmerge/packmerge/internal/source"
)

// Engine orchestrates merge operations.
// It is the main API surface called by the CLI.
type Engine struct {
	fs     fsops.FS
	hasher hash.Hasher
	clock  clock.Clock
	logger *log.Logger
}

// New creates a new Engine with the given dependencies.
func New(fs fsops.FS, hasher hash.Hasher, clk clock.Clock, logger *log.Logger) *Engine {
	return &Engine{
		fs:     fs,
		hasher: hasher,
		clock:  clk,
		logger: logger,
	}
}

// MergeResult reports what a merge produced.
type MergeResult struct {
	// Set is the finalized entry set, including synthesized metadata.
	Set *pack.MergedSet

	// SourceNames are the merge inputs in input order.
	SourceNames []string

	// Overwritten lists paths where a later source replaced an earlier one.
	Overwritten []string

	// Skipped lists paths whose incoming entry was discarded.
	Skipped []string

	// Entries is the number of entries in the final set.
	Entries int

	// Destination is the output path, empty for in-memory merges.
	Destination string

	// DryRun reports whether the final write was suppressed.
	DryRun bool
}

// destinationSource marks entries preloaded from an existing output
// destination rather than read from an input.
const destinationSource = -2

// merge runs the single ordered pass over all sources: sanitize each
// entry path, observe input manifests, resolve collisions, then
// synthesize metadata. Sources are read strictly in input order.
// Preloaded destination entries occupy their paths before any source is
// read, so SkipIfExists leaves them untouched.
func (e *Engine) merge(ctx context.Context, sources []source.Source, dest sink.DestState, preload []pack.Entry, opts MergeOptions) (*MergeResult, error) {
	if opts.Overwrite == "" {
		opts.Overwrite = pack.LastWins
	}

	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name()
	}

	set := pack.NewMergedSet()
	var discovered manifest.FormatRange
	for _, entry := range preload {
		// A preloaded destination manifest counts toward format discovery
		// so the rewritten manifest never downgrades the destination.
		if entry.Path == manifest.McMetaPath {
			discovered.ObserveMcMeta(entry.Content)
		}
		set.Put(entry)
	}
	resolver := &Resolver{
		Policy: opts.Overwrite,
		Dest:   dest,
		Hasher: e.hasher,
		Names:  names,
	}

	result := &MergeResult{SourceNames: names}

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.logger.Debug("reading source", "index", i, "name", names[i])

		err := src.Entries(opts.BufferSize, func(entry pack.Entry) error {
			clean, err := fsops.SanitizeEntryPath(entry.Path)
			if err != nil {
				return err
			}
			entry.Path = clean
			entry.Source = i

			// Every input manifest contributes to format discovery, even
			// ones a later source overwrites.
			if clean == manifest.McMetaPath {
				discovered.ObserveMcMeta(entry.Content)
			}

			action, err := resolver.Resolve(set, entry)
			if err != nil {
				return err
			}
			switch action {
			case Replaced:
				result.Overwritten = append(result.Overwritten, clean)
			case Discarded:
				result.Skipped = append(result.Skipped, clean)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to merge source %s: %w", names[i], err)
		}
	}

	err := manifest.Synthesize(set, discovered, manifest.Options{
		PackFormatOverride: opts.PackFormatOverride,
		FormatsPolicy:      opts.FormatsPolicy,
		Description:        opts.Description,
		SourceNames:        names,
		Now:                e.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	result.Set = set
	result.Entries = set.Len()
	e.logger.Debug("merge pass complete", "sources", len(sources), "entries", result.Entries)
	return result, nil
}

// MergeToBytes merges the sources into an in-memory zip payload.
func (e *Engine) MergeToBytes(ctx context.Context, sources []source.Source, opts MergeOptions) ([]byte, *MergeResult, error) {
	result, err := e.merge(ctx, sources, nil, nil, opts)
	if err != nil {
		return nil, nil, err
	}
	data, err := sink.ZipBytes(result.Set, sinkOptions(opts))
	if err != nil {
		return nil, nil, err
	}
	return data, result, nil
}

// MergeToFile merges the sources into a zip file at dest. When the
// destination archive already exists, the SkipIfExists policy treats its
// entries as occupied.
func (e *Engine) MergeToFile(ctx context.Context, sources []source.Source, dest string, opts MergeOptions) (*MergeResult, error) {
	var destState sink.DestState
	var preload []pack.Entry
	if opts.Overwrite == pack.SkipIfExists {
		state, err := sink.ZipFileState(e.fs, dest)
		if err != nil {
			return nil, err
		}
		destState = state

		// The archive is rewritten whole, so occupied entries must be
		// carried over or skipping would silently drop them.
		preload, err = e.loadDestArchive(dest)
		if err != nil {
			return nil, err
		}
	}

	result, err := e.merge(ctx, sources, destState, preload, opts)
	if err != nil {
		return nil, err
	}
	result.Destination = dest

	if opts.DryRun {
		result.DryRun = true
		e.logger.Info("dry run, skipping write", "dest", dest)
		return result, nil
	}

	if err := sink.WriteZipFile(e.fs, dest, result.Set, sinkOptions(opts)); err != nil {
		return nil, err
	}
	e.logger.Info("wrote merged archive", "dest", dest, "entries", result.Entries)
	return result, nil
}

// MergeToDir merges the sources into a directory tree at dest.
func (e *Engine) MergeToDir(ctx context.Context, sources []source.Source, dest string, opts MergeOptions) (*MergeResult, error) {
	var destState sink.DestState
	if opts.Overwrite == pack.SkipIfExists {
		state, err := sink.DirState(e.fs, dest)
		if err != nil {
			return nil, err
		}
		destState = state
	}

	result, err := e.merge(ctx, sources, destState, nil, opts)
	if err != nil {
		return nil, err
	}
	result.Destination = dest

	if opts.DryRun {
		result.DryRun = true
		e.logger.Info("dry run, skipping write", "dest", dest)
		return result, nil
	}

	if err := sink.WriteDir(e.fs, dest, result.Set, sinkOptions(opts)); err != nil {
		return nil, err
	}
	e.logger.Info("wrote merged directory", "dest", dest, "entries", result.Entries)
	return result, nil
}

// MergeAllInFolder merges every pack found directly under folder into a
// zip file at dest. Children are taken in lexical name order; directories
// and zip files count as packs, everything else is ignored. The
// destination itself is never read as an input.
func (e *Engine) MergeAllInFolder(ctx context.Context, folder, dest string, opts MergeOptions) (*MergeResult, error) {
	children, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read folder %s: %v", ErrInvalidInput, folder, err)
	}

	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var sources []source.Source
	for _, child := range children {
		path := filepath.Join(folder, child.Name())
		if !child.IsDir() && !strings.EqualFold(filepath.Ext(child.Name()), ".zip") {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil && abs == destAbs {
			continue
		}
		src, err := source.FromPath(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	e.logger.Debug("collected folder inputs", "folder", folder, "count", len(sources))

	return e.MergeToFile(ctx, sources, dest, opts)
}

// loadDestArchive reads the entries of an existing destination archive so
// they can occupy their paths ahead of the merge pass. A missing
// destination yields no entries. Entries with names that cannot be
// normalized are ignored; they could never collide with a sanitized merge
// path.
func (e *Engine) loadDestArchive(dest string) ([]pack.Entry, error) {
	exists, err := e.fs.Exists(dest)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	var entries []pack.Entry
	err = source.NewZipFile(dest).Entries(0, func(entry pack.Entry) error {
		clean, err := fsops.SanitizeEntryPath(entry.Path)
		if err != nil {
			return nil
		}
		entry.Path = clean
		entry.Source = destinationSource
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func sinkOptions(opts MergeOptions) sink.Options {
	return sink.Options{
		BufferSize:         opts.BufferSize,
		Atomic:             opts.Atomic,
		PreserveTimestamps: opts.PreserveTimestamps,
	}
}
