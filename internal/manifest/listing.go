package manifest

import (
	"fmt"
	"strings"
	"time"

	"github.com/packmerge/packmerge/internal/version"
)

// renderListing produces the human-readable merged_packs.txt content:
// the sources that contributed to the merge, in input order, plus the
// tool identity and synthesis time.
func renderListing(opts Options) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "Merged by %s\n", version.Identity())
	if !opts.Now.IsZero() {
		fmt.Fprintf(&b, "Generated at %s\n", opts.Now.UTC().Format(time.RFC3339))
	}
	b.WriteString("\n")

	if len(opts.SourceNames) == 0 {
		b.WriteString("No input packs.\n")
		return []byte(b.String())
	}

	b.WriteString("Input packs, in merge order:\n")
	for i, name := range opts.SourceNames {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}

	return []byte(b.String())
}
