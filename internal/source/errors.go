package source

import (
	"errors"
	"fmt"
)

var (
	// ErrArchiveFormat indicates a malformed source archive.
	ErrArchiveFormat = errors.New("malformed archive")

	// ErrNetwork indicates a remote fetch failure.
	ErrNetwork = errors.New("network failure")

	// ErrIO indicates a filesystem read failure.
	ErrIO = errors.New("io failure")
)

// wrapIO wraps a filesystem error with the offending source name.
func wrapIO(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrIO, name, err)
}

// wrapArchive wraps an archive structure error with the offending source name.
func wrapArchive(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrArchiveFormat, name, err)
}

// wrapEntry wraps an entry-level read error with the source and inner path.
func wrapEntry(name, path string, err error) error {
	return fmt.Errorf("%w: %s: entry %s: %v", ErrArchiveFormat, name, path, err)
}
