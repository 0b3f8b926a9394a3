package pack

// MergedSet is an ordered mapping from normalized path to Entry.
//
// Insertion order is the order of first appearance: when a later source
// replaces an entry under LastWins, the path keeps its original position
// and only the entry's content, mod time, and source index change. At most
// one entry exists per path at any time.
//
// A MergedSet is owned exclusively by the single merge call that created
// it; it is not safe for concurrent mutation.
type MergedSet struct {
	entries map[string]*Entry
	order   []string
}

// NewMergedSet creates an empty MergedSet.
func NewMergedSet() *MergedSet {
	return &MergedSet{
		entries: make(map[string]*Entry),
	}
}

// Put inserts the entry, replacing any existing entry at the same path.
// The path's insertion-order position is preserved from first occurrence.
func (s *MergedSet) Put(e Entry) {
	if _, ok := s.entries[e.Path]; !ok {
		s.order = append(s.order, e.Path)
	}
	s.entries[e.Path] = &e
}

// Get returns the entry at path, or nil if absent.
func (s *MergedSet) Get(path string) *Entry {
	return s.entries[path]
}

// Has reports whether an entry exists at path.
func (s *MergedSet) Has(path string) bool {
	_, ok := s.entries[path]
	return ok
}

// Len returns the number of entries.
func (s *MergedSet) Len() int {
	return len(s.order)
}

// Paths returns the entry paths in insertion order. The returned slice is
// shared; callers must not mutate it.
func (s *MergedSet) Paths() []string {
	return s.order
}

// Entries calls fn for each entry in insertion order, stopping at the
// first error.
func (s *MergedSet) Entries(fn func(*Entry) error) error {
	for _, p := range s.order {
		if err := fn(s.entries[p]); err != nil {
			return err
		}
	}
	return nil
}
