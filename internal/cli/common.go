package cli

import (
	"encoding/json"
	"os"

	"github.com/charmbracelet/log"

	"github.com/packmerge/packmerge/internal/clock"
	"github.com/packmerge/packmerge/internal/fsops"
	"github.com/packmerge/packmerge/internal/hash"
	"github.com/packmerge/packmerge/internal/merger"
)

// newLogger creates the diagnostics logger. Diagnostics go to stderr so
// stdout stays clean for --json output.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "packmerge",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// newEngine creates a new engine with real implementations of all dependencies.
func newEngine() *merger.Engine {
	return merger.New(
		fsops.NewRealFS(),
		hash.NewSHA256Hasher(),
		&clock.RealClock{},
		newLogger(),
	)
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
