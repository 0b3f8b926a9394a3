package merger

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/packmerge/packmerge/internal/clock"
	"github.com/packmerge/packmerge/internal/fsops"
	"github.com/packmerge/packmerge/internal/hash"
	"github.com/packmerge/packmerge/internal/manifest"
	"github.com/packmerge/packmerge/internal/pack"
	"github.com/packmerge/packmerge/internal/source"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return New(
		fsops.NewRealFS(),
		hash.NewSHA256Hasher(),
		clock.NewFakeClock(testTime),
		log.New(io.Discard),
	)
}

// buildZip creates an in-memory zip with the given path->content mapping,
// written in the order of the paths slice.
func buildZip(t *testing.T, paths []string, contents map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, p := range paths {
		fw, err := w.Create(p)
		if err != nil {
			t.Fatalf("failed to create zip entry %s: %v", p, err)
		}
		if _, err := fw.Write([]byte(contents[p])); err != nil {
			t.Fatalf("failed to write zip entry %s: %v", p, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	return buf.Bytes()
}

func zipSource(t *testing.T, name string, contents map[string]string) source.Source {
	t.Helper()

	paths := make([]string, 0, len(contents))
	for p := range contents {
		paths = append(paths, p)
	}
	// Deterministic write order keeps merge behavior reproducible.
	sort.Strings(paths)
	return source.NewZipBytes(name, buildZip(t, paths, contents))
}

// readZip reads an archive payload back into a path->content map.
func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("failed to read produced archive: %v", err)
	}
	out := make(map[string]string)
	for _, f := range reader.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("failed to read entry %s: %v", f.Name, err)
		}
		out[f.Name] = string(content)
	}
	return out
}

func readMcMeta(t *testing.T, entries map[string]string) manifest.McMeta {
	t.Helper()

	raw, ok := entries[manifest.McMetaPath]
	if !ok {
		t.Fatalf("produced archive has no %s", manifest.McMetaPath)
	}
	var meta manifest.McMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		t.Fatalf("produced %s is not valid JSON: %v", manifest.McMetaPath, err)
	}
	return meta
}

func TestMergeToBytes_OverwritePolicies(t *testing.T) {
	a := map[string]string{"assets/a.txt": "from-a", "shared.txt": "a-version"}
	b := map[string]string{"assets/b.txt": "from-b", "shared.txt": "b-version"}

	tests := []struct {
		name       string
		policy     pack.OverwritePolicy
		wantShared string
	}{
		{"last wins takes later source", pack.LastWins, "b-version"},
		{"first wins keeps earlier source", pack.FirstWins, "a-version"},
		{"skip keeps first occupant", pack.SkipIfExists, "a-version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine()
			opts := DefaultOptions()
			opts.Overwrite = tt.policy

			sources := []source.Source{
				zipSource(t, "pack-a.zip", a),
				zipSource(t, "pack-b.zip", b),
			}
			data, result, err := engine.MergeToBytes(context.Background(), sources, opts)
			if err != nil {
				t.Fatalf("MergeToBytes() error = %v", err)
			}

			entries := readZip(t, data)
			if entries["shared.txt"] != tt.wantShared {
				t.Errorf("shared.txt = %q, want %q", entries["shared.txt"], tt.wantShared)
			}
			if entries["assets/a.txt"] != "from-a" || entries["assets/b.txt"] != "from-b" {
				t.Errorf("non-colliding entries were not carried over: %v", entries)
			}
			if result.Entries != result.Set.Len() {
				t.Errorf("result.Entries = %d, set has %d", result.Entries, result.Set.Len())
			}
		})
	}
}

func TestMergeToBytes_ConflictError(t *testing.T) {
	engine := newTestEngine()
	opts := DefaultOptions()
	opts.Overwrite = pack.ErrorIfConflict

	sources := []source.Source{
		zipSource(t, "pack-a.zip", map[string]string{"shared.txt": "a-version"}),
		zipSource(t, "pack-b.zip", map[string]string{"shared.txt": "b-version"}),
	}
	_, _, err := engine.MergeToBytes(context.Background(), sources, opts)
	if err == nil {
		t.Fatal("expected conflict error, got nil")
	}
	if !errors.Is(err, ErrConflict) {
		t.Errorf("error does not match ErrConflict: %v", err)
	}

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error is not a ConflictError: %v", err)
	}
	if conflict.Path != "shared.txt" {
		t.Errorf("conflict.Path = %q, want shared.txt", conflict.Path)
	}
	if conflict.First != 0 || conflict.Second != 1 {
		t.Errorf("conflict indices = (%d, %d), want (0, 1)", conflict.First, conflict.Second)
	}
	if conflict.FirstName != "pack-a.zip" || conflict.SecondName != "pack-b.zip" {
		t.Errorf("conflict names = (%q, %q)", conflict.FirstName, conflict.SecondName)
	}
}

func TestMergeToBytes_IdenticalContentIsNotConflict(t *testing.T) {
	engine := newTestEngine()
	opts := DefaultOptions()
	opts.Overwrite = pack.ErrorIfConflict

	sources := []source.Source{
		zipSource(t, "pack-a.zip", map[string]string{"shared.txt": "same"}),
		zipSource(t, "pack-b.zip", map[string]string{"shared.txt": "same"}),
	}
	data, _, err := engine.MergeToBytes(context.Background(), sources, opts)
	if err != nil {
		t.Fatalf("MergeToBytes() error = %v", err)
	}
	if readZip(t, data)["shared.txt"] != "same" {
		t.Error("identical colliding content was not kept")
	}
}

func TestMergeToBytes_HostilePathRejected(t *testing.T) {
	policies := []pack.OverwritePolicy{
		pack.LastWins, pack.FirstWins, pack.ErrorIfConflict, pack.SkipIfExists,
	}
	for _, policy := range policies {
		t.Run(string(policy), func(t *testing.T) {
			engine := newTestEngine()
			opts := DefaultOptions()
			opts.Overwrite = policy

			payload := buildZip(t,
				[]string{"ok.txt", "../../etc/passwd"},
				map[string]string{"ok.txt": "ok", "../../etc/passwd": "pwned"},
			)
			sources := []source.Source{source.NewZipBytes("hostile.zip", payload)}
			_, _, err := engine.MergeToBytes(context.Background(), sources, opts)
			if err == nil {
				t.Fatal("expected sanitization error, got nil")
			}
			var sanitize *fsops.SanitizeError
			if !errors.As(err, &sanitize) {
				t.Errorf("error is not a SanitizeError: %v", err)
			}
		})
	}
}

func TestMergeToBytes_SingleSourceIdentity(t *testing.T) {
	contents := map[string]string{
		"assets/textures/stone.png": "stone-bytes",
		"assets/lang/en_us.json":    `{"key":"value"}`,
		"pack.png":                  "custom-icon",
	}
	engine := newTestEngine()
	data, _, err := engine.MergeToBytes(context.Background(),
		[]source.Source{zipSource(t, "only.zip", contents)}, DefaultOptions())
	if err != nil {
		t.Fatalf("MergeToBytes() error = %v", err)
	}

	entries := readZip(t, data)
	for path, want := range contents {
		if entries[path] != want {
			t.Errorf("entry %s = %q, want %q", path, entries[path], want)
		}
	}
	// The supplied icon survives; synthesis only fills the gap.
	if entries[manifest.IconPath] != "custom-icon" {
		t.Errorf("supplied icon was replaced: %q", entries[manifest.IconPath])
	}
}

func TestMergeToBytes_ZeroSources(t *testing.T) {
	engine := newTestEngine()
	data, result, err := engine.MergeToBytes(context.Background(), nil, DefaultOptions())
	if err != nil {
		t.Fatalf("MergeToBytes() error = %v", err)
	}

	entries := readZip(t, data)
	want := map[string]bool{
		manifest.McMetaPath:  true,
		manifest.IconPath:    true,
		manifest.ListingPath: true,
	}
	for path := range entries {
		if !want[path] {
			t.Errorf("unexpected entry %s in zero-source merge", path)
		}
	}
	if len(entries) != len(want) {
		t.Errorf("entry count = %d, want %d", len(entries), len(want))
	}

	meta := readMcMeta(t, entries)
	if meta.Pack.PackFormat != 1 {
		t.Errorf("pack_format = %d, want 1", meta.Pack.PackFormat)
	}
	if result.Entries != 3 {
		t.Errorf("result.Entries = %d, want 3", result.Entries)
	}
}

func TestMergeToBytes_FormatDiscovery(t *testing.T) {
	mcmeta := func(format int) string {
		return fmt.Sprintf(`{"pack":{"pack_format":%d,"description":"x"}}`, format)
	}

	tests := []struct {
		name          string
		policy        manifest.FormatsPolicy
		wantSupported []int
	}{
		{"one to highest", manifest.OneToHighest, []int{1, 9}},
		{"lowest to highest", manifest.LowestToHighest, []int{4, 9}},
		{"one to latest alias", manifest.OneToLatest, []int{1, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine()
			opts := DefaultOptions()
			opts.FormatsPolicy = tt.policy

			sources := []source.Source{
				zipSource(t, "four.zip", map[string]string{"pack.mcmeta": mcmeta(4)}),
				zipSource(t, "nine.zip", map[string]string{"pack.mcmeta": mcmeta(9)}),
			}
			data, _, err := engine.MergeToBytes(context.Background(), sources, opts)
			if err != nil {
				t.Fatalf("MergeToBytes() error = %v", err)
			}

			meta := readMcMeta(t, readZip(t, data))
			if meta.Pack.PackFormat != 9 {
				t.Errorf("pack_format = %d, want 9", meta.Pack.PackFormat)
			}
			if len(meta.Pack.SupportedFormats) != 2 ||
				meta.Pack.SupportedFormats[0] != tt.wantSupported[0] ||
				meta.Pack.SupportedFormats[1] != tt.wantSupported[1] {
				t.Errorf("supported_formats = %v, want %v",
					meta.Pack.SupportedFormats, tt.wantSupported)
			}
		})
	}
}

func TestMergeToFile_WritesArchive(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out", "merged.zip")

	engine := newTestEngine()
	sources := []source.Source{
		zipSource(t, "a.zip", map[string]string{"a.txt": "a"}),
	}
	result, err := engine.MergeToFile(context.Background(), sources, dest, DefaultOptions())
	if err != nil {
		t.Fatalf("MergeToFile() error = %v", err)
	}
	if result.Destination != dest {
		t.Errorf("result.Destination = %q, want %q", result.Destination, dest)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("destination was not written: %v", err)
	}
	if readZip(t, data)["a.txt"] != "a" {
		t.Error("written archive does not round-trip")
	}
}

func TestMergeToFile_DryRun(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "merged.zip")

	engine := newTestEngine()
	opts := DefaultOptions()
	opts.DryRun = true

	sources := []source.Source{
		zipSource(t, "a.zip", map[string]string{"a.txt": "a"}),
	}
	result, err := engine.MergeToFile(context.Background(), sources, dest, opts)
	if err != nil {
		t.Fatalf("MergeToFile() error = %v", err)
	}
	if !result.DryRun {
		t.Error("result.DryRun = false, want true")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("dry run wrote the destination")
	}
}

func TestMergeToFile_SkipIfExistsPreservesDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "merged.zip")
	existing := buildZip(t,
		[]string{"keep.txt", "shared.txt"},
		map[string]string{"keep.txt": "original", "shared.txt": "original"},
	)
	if err := os.WriteFile(dest, existing, 0644); err != nil {
		t.Fatal(err)
	}

	engine := newTestEngine()
	opts := DefaultOptions()
	opts.Overwrite = pack.SkipIfExists

	sources := []source.Source{
		zipSource(t, "a.zip", map[string]string{"shared.txt": "incoming", "new.txt": "new"}),
	}
	if _, err := engine.MergeToFile(context.Background(), sources, dest, opts); err != nil {
		t.Fatalf("MergeToFile() error = %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	entries := readZip(t, data)
	if entries["shared.txt"] != "original" {
		t.Errorf("occupied entry was overwritten: %q", entries["shared.txt"])
	}
	if entries["keep.txt"] != "original" {
		t.Errorf("unrelated destination entry was dropped: %q", entries["keep.txt"])
	}
	if entries["new.txt"] != "new" {
		t.Errorf("fresh entry was not merged: %q", entries["new.txt"])
	}
}

func TestMergeToFile_SkipIfExistsKeepsDestinationFormat(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "merged.zip")
	existing := buildZip(t,
		[]string{"pack.mcmeta"},
		map[string]string{"pack.mcmeta": `{"pack":{"pack_format":9,"supported_formats":[1,9],"description":"existing"}}`},
	)
	if err := os.WriteFile(dest, existing, 0644); err != nil {
		t.Fatal(err)
	}

	engine := newTestEngine()
	opts := DefaultOptions()
	opts.Overwrite = pack.SkipIfExists

	// The source carries no manifest; the destination's format must not
	// be downgraded when its manifest is rewritten.
	sources := []source.Source{
		zipSource(t, "a.zip", map[string]string{"a.txt": "a"}),
	}
	if _, err := engine.MergeToFile(context.Background(), sources, dest, opts); err != nil {
		t.Fatalf("MergeToFile() error = %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	meta := readMcMeta(t, readZip(t, data))
	if meta.Pack.PackFormat != 9 {
		t.Errorf("pack_format = %d, want 9", meta.Pack.PackFormat)
	}
	if len(meta.Pack.SupportedFormats) != 2 ||
		meta.Pack.SupportedFormats[0] != 1 || meta.Pack.SupportedFormats[1] != 9 {
		t.Errorf("supported_formats = %v, want [1 9]", meta.Pack.SupportedFormats)
	}
}

func TestMergeToDir_SkipIfExistsPreservesFiles(t *testing.T) {
	dest := t.TempDir()
	occupied := filepath.Join(dest, "shared.txt")
	if err := os.WriteFile(occupied, []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}

	engine := newTestEngine()
	opts := DefaultOptions()
	opts.Overwrite = pack.SkipIfExists
	opts.Atomic = false

	sources := []source.Source{
		zipSource(t, "a.zip", map[string]string{"shared.txt": "incoming", "new.txt": "new"}),
	}
	if _, err := engine.MergeToDir(context.Background(), sources, dest, opts); err != nil {
		t.Fatalf("MergeToDir() error = %v", err)
	}

	content, err := os.ReadFile(occupied)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "original" {
		t.Errorf("occupied file bytes changed: %q", content)
	}
	fresh, err := os.ReadFile(filepath.Join(dest, "new.txt"))
	if err != nil {
		t.Fatalf("fresh entry was not written: %v", err)
	}
	if string(fresh) != "new" {
		t.Errorf("fresh entry = %q, want new", fresh)
	}
}

func TestMergeToDir_WritesTree(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "merged")

	engine := newTestEngine()
	sources := []source.Source{
		zipSource(t, "a.zip", map[string]string{"assets/a.txt": "a"}),
	}
	if _, err := engine.MergeToDir(context.Background(), sources, dest, DefaultOptions()); err != nil {
		t.Fatalf("MergeToDir() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dest, "assets", "a.txt"))
	if err != nil {
		t.Fatalf("tree entry missing: %v", err)
	}
	if string(content) != "a" {
		t.Errorf("tree entry = %q, want a", content)
	}
	if _, err := os.Stat(filepath.Join(dest, manifest.McMetaPath)); err != nil {
		t.Errorf("synthesized manifest missing: %v", err)
	}
}

func TestMergeAllInFolder(t *testing.T) {
	folder := t.TempDir()

	// Lexical order decides precedence, so b overwrites a under LastWins.
	if err := os.WriteFile(filepath.Join(folder, "a-pack.zip"),
		buildZip(t, []string{"shared.txt"}, map[string]string{"shared.txt": "from-a"}), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "b-pack.zip"),
		buildZip(t, []string{"shared.txt"}, map[string]string{"shared.txt": "from-b"}), 0644); err != nil {
		t.Fatal(err)
	}
	dirPack := filepath.Join(folder, "c-pack")
	if err := os.MkdirAll(dirPack, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dirPack, "c.txt"), []byte("from-c"), 0644); err != nil {
		t.Fatal(err)
	}
	// Not a pack; must be ignored.
	if err := os.WriteFile(filepath.Join(folder, "readme.txt"), []byte("ignore"), 0644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(folder, "merged.zip")
	engine := newTestEngine()
	result, err := engine.MergeAllInFolder(context.Background(), folder, dest, DefaultOptions())
	if err != nil {
		t.Fatalf("MergeAllInFolder() error = %v", err)
	}

	wantNames := []string{"a-pack.zip", "b-pack.zip", "c-pack"}
	if len(result.SourceNames) != len(wantNames) {
		t.Fatalf("SourceNames = %v, want %v", result.SourceNames, wantNames)
	}
	for i, want := range wantNames {
		if filepath.Base(result.SourceNames[i]) != want {
			t.Errorf("SourceNames[%d] = %q, want base %q", i, result.SourceNames[i], want)
		}
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	entries := readZip(t, data)
	if entries["shared.txt"] != "from-b" {
		t.Errorf("shared.txt = %q, want from-b", entries["shared.txt"])
	}
	if entries["c.txt"] != "from-c" {
		t.Errorf("c.txt = %q, want from-c", entries["c.txt"])
	}
}

func TestMergeAllInFolder_MissingFolder(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.MergeAllInFolder(context.Background(),
		filepath.Join(t.TempDir(), "nope"), "out.zip", DefaultOptions())
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestMerge_ListingRecordsSources(t *testing.T) {
	engine := newTestEngine()
	sources := []source.Source{
		zipSource(t, "first.zip", map[string]string{"a.txt": "a"}),
		zipSource(t, "second.zip", map[string]string{"b.txt": "b"}),
	}
	data, _, err := engine.MergeToBytes(context.Background(), sources, DefaultOptions())
	if err != nil {
		t.Fatalf("MergeToBytes() error = %v", err)
	}

	listing := readZip(t, data)[manifest.ListingPath]
	if !strings.Contains(listing, "first.zip") || !strings.Contains(listing, "second.zip") {
		t.Errorf("listing does not name the sources:\n%s", listing)
	}
	if strings.Index(listing, "first.zip") > strings.Index(listing, "second.zip") {
		t.Error("listing does not preserve input order")
	}
}

func TestMerge_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := newTestEngine()
	sources := []source.Source{
		zipSource(t, "a.zip", map[string]string{"a.txt": "a"}),
	}
	_, _, err := engine.MergeToBytes(ctx, sources, DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestResolver_TracksOverwrites(t *testing.T) {
	engine := newTestEngine()
	sources := []source.Source{
		zipSource(t, "a.zip", map[string]string{"shared.txt": "a"}),
		zipSource(t, "b.zip", map[string]string{"shared.txt": "b"}),
	}
	_, result, err := engine.MergeToBytes(context.Background(), sources, DefaultOptions())
	if err != nil {
		t.Fatalf("MergeToBytes() error = %v", err)
	}
	if len(result.Overwritten) != 1 || result.Overwritten[0] != "shared.txt" {
		t.Errorf("Overwritten = %v, want [shared.txt]", result.Overwritten)
	}
}
