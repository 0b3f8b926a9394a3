package source

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/packmerge/packmerge/internal/pack"
)

// ZipFile reads an on-disk zip archive as a source. Entries follow the
// archive's central-directory order and are decompressed one at a time.
type ZipFile struct {
	path string
}

// NewZipFile creates a zip file source for the archive at path.
func NewZipFile(path string) *ZipFile {
	return &ZipFile{path: path}
}

// Name identifies the source in diagnostics and merge listings.
func (z *ZipFile) Name() string {
	return z.path
}

// Entries enumerates the archive's file records.
func (z *ZipFile) Entries(bufferSize int, fn func(pack.Entry) error) error {
	reader, err := zip.OpenReader(z.path)
	if err != nil {
		return wrapArchive(z.path, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	return readZipEntries(z.path, reader.File, bufferSize, fn)
}

// ZipBytes reads an already-loaded zip payload as a source. Remote
// archives reach the merge in this form after fetching.
type ZipBytes struct {
	name string
	data []byte
}

// NewZipBytes creates an in-memory zip source. name identifies the source
// in diagnostics.
func NewZipBytes(name string, data []byte) *ZipBytes {
	return &ZipBytes{name: name, data: data}
}

// Name identifies the source in diagnostics and merge listings.
func (z *ZipBytes) Name() string {
	return z.name
}

// Entries enumerates the payload's file records.
func (z *ZipBytes) Entries(bufferSize int, fn func(pack.Entry) error) error {
	reader, err := zip.NewReader(bytes.NewReader(z.data), int64(len(z.data)))
	if err != nil {
		return wrapArchive(z.name, err)
	}
	return readZipEntries(z.name, reader.File, bufferSize, fn)
}

// readZipEntries decompresses each file record through a bufferSize-chunked
// copy so a single oversized entry cannot balloon the copy granularity.
// Directory records are structural and carry no content; they are skipped.
func readZipEntries(name string, files []*zip.File, bufferSize int, fn func(pack.Entry) error) error {
	buf := make([]byte, normalizeBuffer(bufferSize))

	for _, file := range files {
		if file.FileInfo().IsDir() {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return wrapEntry(name, file.Name, err)
		}

		// The declared size comes from the archive and cannot be trusted.
		// Cap the pre-allocation at one chunk; the copy grows the buffer
		// only as real bytes arrive.
		var content bytes.Buffer
		if declared := file.UncompressedSize64; declared > 0 {
			if declared > uint64(len(buf)) {
				declared = uint64(len(buf))
			}
			content.Grow(int(declared))
		}
		if _, err := io.CopyBuffer(&content, rc, buf); err != nil {
			_ = rc.Close()
			return wrapEntry(name, file.Name, fmt.Errorf("decompress: %v", err))
		}
		if err := rc.Close(); err != nil {
			return wrapEntry(name, file.Name, err)
		}

		if err := fn(pack.Entry{
			Path:    file.Name,
			Content: content.Bytes(),
			ModTime: file.Modified,
		}); err != nil {
			return err
		}
	}

	return nil
}
