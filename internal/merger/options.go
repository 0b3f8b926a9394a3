package merger

import (
	"github.com/packmerge/packmerge/internal/manifest"
	"github.com/packmerge/packmerge/internal/pack"
	"github.com/packmerge/packmerge/internal/source"
)

// MergeOptions controls merge behavior.
type MergeOptions struct {
	// Overwrite decides which entry survives a path collision.
	Overwrite pack.OverwritePolicy

	// DryRun executes every stage except the final write.
	DryRun bool

	// BufferSize is the streaming chunk size for reads and writes.
	BufferSize int

	// Atomic constructs the destination at a temp location and moves it
	// into place as the final step.
	Atomic bool

	// PreserveTimestamps carries entry mod times into the output.
	PreserveTimestamps bool

	// PackFormatOverride forces the synthesized pack_format when non-nil.
	PackFormatOverride *int

	// FormatsPolicy selects the supported_formats derivation.
	FormatsPolicy manifest.FormatsPolicy

	// Description overrides the generated pack description when non-empty.
	Description string
}

// DefaultOptions returns the documented defaults: last-wins overwrite,
// 32 KiB buffer, atomic writes, timestamps not preserved.
func DefaultOptions() MergeOptions {
	return MergeOptions{
		Overwrite:     pack.LastWins,
		BufferSize:    source.DefaultBufferSize,
		Atomic:        true,
		FormatsPolicy: manifest.OneToHighest,
	}
}
