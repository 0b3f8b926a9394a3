package merger

import (
	"fmt"

	"github.com/packmerge/packmerge/internal/hash"
	"github.com/packmerge/packmerge/internal/pack"
	"github.com/packmerge/packmerge/internal/sink"
)

// Action describes what the resolver did with an incoming entry.
type Action int

// Resolver actions
const (
	// Inserted means the entry occupied a fresh path.
	Inserted Action = iota

	// Replaced means the entry displaced an earlier one at the same path.
	Replaced

	// Discarded means the entry was dropped without mutating the set.
	Discarded
)

// Resolver merges incoming entries into the running set under one
// overwrite policy. Resolution is a synchronous, memory-only step: given
// the same ordered entry sequence, the same policy, and the same
// destination state, it always produces an identical set.
type Resolver struct {
	// Policy is the active overwrite policy.
	Policy pack.OverwritePolicy

	// Dest is the pre-existing output destination state, consulted by
	// SkipIfExists. May be nil for in-memory outputs.
	Dest sink.DestState

	// Hasher compares entry content under ErrorIfConflict.
	Hasher hash.Hasher

	// Names are the merge input names, indexed by entry source, for
	// conflict diagnostics.
	Names []string
}

// Resolve offers one entry to the set and reports the outcome.
func (r *Resolver) Resolve(set *pack.MergedSet, e pack.Entry) (Action, error) {
	existing := set.Get(e.Path)

	switch r.Policy {
	case pack.FirstWins:
		if existing != nil {
			return Discarded, nil
		}

	case pack.ErrorIfConflict:
		if existing != nil {
			// Byte-identical content at the same path is not a conflict:
			// the surviving entry would be the same either way. The
			// earlier entry is kept so source attribution stays first-use.
			if r.Hasher.HashBytes(existing.Content) == r.Hasher.HashBytes(e.Content) {
				return Discarded, nil
			}
			return Discarded, &ConflictError{
				Path:       e.Path,
				First:      existing.Source,
				Second:     e.Source,
				FirstName:  r.name(existing.Source),
				SecondName: r.name(e.Source),
			}
		}

	case pack.SkipIfExists:
		// Evaluated against the output destination as well as the
		// in-merge set: entries already present at the destination are
		// never rewritten, and among sources the first occupant keeps
		// the path.
		if r.Dest.Has(e.Path) || existing != nil {
			return Discarded, nil
		}

	case pack.LastWins:
		// Always accept; the set keeps the path's original position.

	default:
		return Discarded, fmt.Errorf("%w: unknown overwrite policy %q", ErrInvalidInput, r.Policy)
	}

	if existing != nil {
		set.Put(e)
		return Replaced, nil
	}
	set.Put(e)
	return Inserted, nil
}

func (r *Resolver) name(index int) string {
	if index >= 0 && index < len(r.Names) {
		return r.Names[index]
	}
	return "unknown"
}
