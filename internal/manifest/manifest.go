// Package manifest synthesizes the metadata entries of a merged pack.
//
// After all sources are merged, the synthesizer guarantees that the
// well-known paths exist and agree with each other: pack.mcmeta (format
// version, supported-format range, description), pack.png (a built-in
// default icon when no input supplied one), and merged_packs.txt (a
// human-readable listing of the inputs). Synthesis runs exactly once per
// merge and is idempotent for a given set of options.
package manifest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/packmerge/packmerge/internal/pack"
	"github.com/packmerge/packmerge/internal/version"
)

// Well-known paths inside a resource pack.
const (
	// McMetaPath is the root manifest entry.
	McMetaPath = "pack.mcmeta"

	// IconPath is the conventional pack icon entry.
	IconPath = "pack.png"

	// ListingPath is the generated listing of merged sources.
	ListingPath = "merged_packs.txt"
)

// FormatsPolicy selects how the supported_formats range is derived from
// the pack formats discovered in the inputs.
type FormatsPolicy string

const (
	// OneToHighest yields [1, highest discovered].
	OneToHighest FormatsPolicy = "one-to-highest"

	// LowestToHighest yields [lowest discovered, highest discovered].
	LowestToHighest FormatsPolicy = "lowest-to-highest"

	// OneToLatest is a placeholder that currently behaves exactly like
	// OneToHighest. It is kept as a distinct name so configs written
	// against it keep working if "latest" ever gains real meaning.
	OneToLatest FormatsPolicy = "one-to-latest"
)

// ParseFormatsPolicy parses a supported-formats policy name. Matching is
// case insensitive.
func ParseFormatsPolicy(s string) (FormatsPolicy, error) {
	switch policy := FormatsPolicy(strings.ToLower(s)); policy {
	case OneToHighest, LowestToHighest, OneToLatest:
		return policy, nil
	case "":
		return OneToHighest, nil
	default:
		return "", fmt.Errorf("unknown supported-formats policy: %q", s)
	}
}

// McMeta models the pack.mcmeta JSON document.
type McMeta struct {
	Pack Section `json:"pack"`
}

// Section is the "pack" object of pack.mcmeta.
type Section struct {
	// PackFormat is the primary format version.
	PackFormat int `json:"pack_format"`

	// SupportedFormats is the inclusive [min, max] format range.
	SupportedFormats []int `json:"supported_formats"`

	// Description is the human-readable pack description.
	Description string `json:"description"`
}

// FormatRange accumulates pack_format values discovered while reading
// input manifests. Every input's pack.mcmeta contributes, including ones
// later overwritten during the merge.
type FormatRange struct {
	lowest  int
	highest int
	found   bool
}

// Observe records one discovered pack_format value.
func (r *FormatRange) Observe(format int) {
	if !r.found {
		r.lowest, r.highest = format, format
		r.found = true
		return
	}
	if format < r.lowest {
		r.lowest = format
	}
	if format > r.highest {
		r.highest = format
	}
}

// ObserveMcMeta parses raw pack.mcmeta content and records its
// pack_format. Malformed input manifests contribute nothing; the
// synthesizer repairs them rather than failing the merge.
func (r *FormatRange) ObserveMcMeta(data []byte) {
	var meta McMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return
	}
	if meta.Pack.PackFormat > 0 {
		r.Observe(meta.Pack.PackFormat)
	}
}

// Options controls manifest synthesis.
type Options struct {
	// PackFormatOverride forces the synthesized pack_format when non-nil.
	PackFormatOverride *int

	// FormatsPolicy selects the supported_formats derivation. Empty means
	// OneToHighest.
	FormatsPolicy FormatsPolicy

	// Description overrides the generated description when non-empty.
	Description string

	// SourceNames are the merge inputs in input order, for the listing.
	SourceNames []string

	// Now is the synthesis timestamp recorded in the listing.
	Now time.Time
}

// Synthesize ensures the well-known entries of the merged set exist and
// are internally consistent. It must run exactly once, after all sources
// are exhausted.
func Synthesize(set *pack.MergedSet, discovered FormatRange, opts Options) error {
	packFormat := 1
	if discovered.found {
		packFormat = discovered.highest
	}
	if opts.PackFormatOverride != nil {
		packFormat = *opts.PackFormatOverride
	}

	lowest := 1
	if discovered.found {
		lowest = discovered.lowest
	}
	highest := packFormat
	if discovered.found && discovered.highest > highest {
		highest = discovered.highest
	}

	var supported []int
	switch opts.FormatsPolicy {
	case LowestToHighest:
		supported = []int{lowest, highest}
	case OneToHighest, OneToLatest, "":
		// OneToLatest is documented as a OneToHighest alias.
		supported = []int{1, highest}
	default:
		return fmt.Errorf("unknown supported-formats policy: %q", opts.FormatsPolicy)
	}

	description := opts.Description
	if description == "" {
		description = fmt.Sprintf("Merged by %s", version.Identity())
	}

	meta := McMeta{Pack: Section{
		PackFormat:       packFormat,
		SupportedFormats: supported,
		Description:      description,
	}}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", McMetaPath, err)
	}

	set.Put(pack.Entry{Path: McMetaPath, Content: data, ModTime: opts.Now, Source: SyntheticSource})

	if !set.Has(IconPath) {
		set.Put(pack.Entry{Path: IconPath, Content: DefaultIcon(), ModTime: opts.Now, Source: SyntheticSource})
	}

	set.Put(pack.Entry{Path: ListingPath, Content: renderListing(opts), ModTime: opts.Now, Source: SyntheticSource})

	return nil
}

// SyntheticSource is the source index assigned to entries injected by the
// synthesizer rather than read from an input.
const SyntheticSource = -1
