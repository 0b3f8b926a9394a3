// Package config loads merge configuration files.
//
// Two on-disk forms are accepted. The JSON form mirrors every merge flag
// by name and carries the input list under "sources". The line-based form
// is a plain input list, one path or URL per line, with #-prefixed
// comment lines. The form is sniffed from the file extension and content,
// not declared.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/packmerge/packmerge/internal/manifest"
	"github.com/packmerge/packmerge/internal/merger"
	"github.com/packmerge/packmerge/internal/pack"
	"github.com/packmerge/packmerge/internal/source"
)

// ErrInvalidConfig indicates a config file that cannot be parsed.
var ErrInvalidConfig = errors.New("invalid config")

// File is a parsed merge configuration. Field names mirror the merge
// flags so a JSON config and a flag set describe the same surface.
type File struct {
	// Sources are the merge inputs in config order.
	Sources []string `mapstructure:"sources"`

	// Out is the destination zip file path.
	Out string `mapstructure:"out"`

	// Dir is the destination directory path.
	Dir string `mapstructure:"dir"`

	// Overwrite is the overwrite policy name.
	Overwrite string `mapstructure:"overwrite"`

	// DryRun suppresses the final write.
	DryRun bool `mapstructure:"dry_run"`

	// BufferSize is the streaming chunk size in bytes.
	BufferSize int `mapstructure:"buffer_size"`

	// Atomic selects temp-location construction plus a final rename.
	Atomic bool `mapstructure:"atomic"`

	// PreserveTimestamps carries entry mod times into the output.
	PreserveTimestamps bool `mapstructure:"preserve_timestamps"`

	// PackFormat forces the synthesized pack_format when positive.
	PackFormat int `mapstructure:"pack_format"`

	// SupportedFormats is the supported-formats policy name.
	SupportedFormats string `mapstructure:"supported_formats"`

	// Description overrides the generated pack description.
	Description string `mapstructure:"description"`
}

// Defaults returns a File carrying the documented merge defaults.
func Defaults() *File {
	return &File{
		Overwrite:        string(pack.LastWins),
		BufferSize:       source.DefaultBufferSize,
		Atomic:           true,
		SupportedFormats: string(manifest.OneToHighest),
	}
}

// Load reads and parses a config file. Files with a .json extension or a
// leading brace parse as JSON; everything else parses as a line-based
// input list.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if isJSON(path, data) {
		return loadJSON(path, data)
	}
	return loadLines(data), nil
}

func isJSON(path string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte("{"))
}

func loadJSON(path string, data []byte) (*File, error) {
	v := viper.New()

	defaults := Defaults()
	v.SetDefault("overwrite", defaults.Overwrite)
	v.SetDefault("buffer_size", defaults.BufferSize)
	v.SetDefault("atomic", defaults.Atomic)
	v.SetDefault("supported_formats", defaults.SupportedFormats)

	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return &f, nil
}

func loadLines(data []byte) *File {
	f := Defaults()
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f.Sources = append(f.Sources, line)
	}
	return f
}

// Options converts the file into typed merge options. Policy names are
// validated here so a bad config fails before any source is read.
func (f *File) Options() (merger.MergeOptions, error) {
	opts := merger.DefaultOptions()

	overwrite, err := pack.ParseOverwritePolicy(f.Overwrite)
	if err != nil {
		return opts, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	opts.Overwrite = overwrite

	formats, err := manifest.ParseFormatsPolicy(f.SupportedFormats)
	if err != nil {
		return opts, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	opts.FormatsPolicy = formats

	opts.DryRun = f.DryRun
	opts.BufferSize = f.BufferSize
	opts.Atomic = f.Atomic
	opts.PreserveTimestamps = f.PreserveTimestamps
	opts.Description = f.Description
	if f.PackFormat > 0 {
		format := f.PackFormat
		opts.PackFormatOverride = &format
	}
	return opts, nil
}
