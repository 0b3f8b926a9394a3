package sink

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/packmerge/packmerge/internal/fsops"
	"github.com/packmerge/packmerge/internal/pack"
)

// WriteZip serializes the merged set as a zip stream. Entries are written
// in MergedSet order, so byte-identical inputs produce byte-identical
// archives.
func WriteZip(w io.Writer, set *pack.MergedSet, opts Options) error {
	zw := zip.NewWriter(w)
	buf := make([]byte, chunkSize(opts.BufferSize))

	err := set.Entries(func(e *pack.Entry) error {
		header := &zip.FileHeader{
			Name:   e.Path,
			Method: zip.Deflate,
		}
		if opts.PreserveTimestamps && !e.ModTime.IsZero() {
			header.Modified = e.ModTime
		}
		header.SetMode(0644)

		fw, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create archive entry %s: %w", e.Path, err)
		}
		if _, err := io.CopyBuffer(fw, bytes.NewReader(e.Content), buf); err != nil {
			return fmt.Errorf("failed to write archive entry %s: %w", e.Path, err)
		}
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

// ZipBytes serializes the merged set as an in-memory zip payload.
func ZipBytes(set *pack.MergedSet, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteZip(&buf, set, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteZipFile serializes the merged set to an archive at dest. With
// opts.Atomic the payload lands via temp file + rename; otherwise it is
// written in place.
func WriteZipFile(fsys fsops.FS, dest string, set *pack.MergedSet, opts Options) error {
	data, err := ZipBytes(set, opts)
	if err != nil {
		return err
	}
	if opts.Atomic {
		return fsys.AtomicWrite(dest, data, 0644)
	}
	return fsys.WriteFile(dest, data, 0644)
}

func chunkSize(n int) int {
	if n <= 0 {
		return 32 * 1024
	}
	return n
}
