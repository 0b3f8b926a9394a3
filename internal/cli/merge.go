package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/packmerge/packmerge/internal/config"
	"github.com/packmerge/packmerge/internal/manifest"
	"github.com/packmerge/packmerge/internal/merger"
	"github.com/packmerge/packmerge/internal/pack"
	"github.com/packmerge/packmerge/internal/source"
)

var (
	mergeOut                string
	mergeDir                string
	mergeConfig             string
	mergeAllIn              string
	mergeOverwrite          string
	mergeDryRun             bool
	mergeBufferSize         int
	mergeAtomic             bool
	mergeNoAtomic           bool
	mergePreserveTimestamps bool
	mergePackFormat         int
	mergeSupportedFormats   string
	mergeDescription        string
)

var mergeCmd = &cobra.Command{
	Use:   "merge [inputs...]",
	Short: "Merge resource packs into one output",
	Long: `Merge the given resource packs into a single zip file or directory.

Inputs are directories, zip archives, or http(s) zip URLs, merged in the
order given. Inputs from --config come before positional inputs. Exactly
one of --out or --dir selects the destination; --all-in merges every pack
found directly under a folder instead of taking positional inputs.`,
	RunE: runMerge,
}

func init() {
	flags := mergeCmd.Flags()
	flags.StringVar(&mergeOut, "out", "", "Destination zip file")
	flags.StringVar(&mergeDir, "dir", "", "Destination directory")
	flags.StringVar(&mergeConfig, "config", "", "Config file (JSON or one input per line)")
	flags.StringVar(&mergeAllIn, "all-in", "", "Merge every pack found directly under this folder")
	flags.StringVar(&mergeOverwrite, "overwrite", "last", "Overwrite policy: last|first|error|skip")
	flags.BoolVar(&mergeDryRun, "dry-run", false, "Run every stage except the final write")
	flags.IntVar(&mergeBufferSize, "buffer-size", source.DefaultBufferSize, "Streaming chunk size in bytes")
	flags.BoolVar(&mergeAtomic, "atomic", true, "Write the destination atomically")
	flags.BoolVar(&mergeNoAtomic, "no-atomic", false, "Write the destination in place")
	flags.BoolVar(&mergePreserveTimestamps, "preserve-timestamps", false, "Carry entry mod times into the output")
	flags.IntVar(&mergePackFormat, "pack-format", 0, "Force the synthesized pack_format")
	flags.StringVar(&mergeSupportedFormats, "supported-formats", "", "Formats policy: one-to-highest|lowest-to-highest|one-to-latest")
	flags.StringVar(&mergeDescription, "description", "", "Pack description for the merged manifest")
}

// mergeSummary is the machine-readable shape of a merge outcome.
type mergeSummary struct {
	Destination string   `json:"destination"`
	Sources     []string `json:"sources"`
	Entries     int      `json:"entries"`
	Overwritten []string `json:"overwritten,omitempty"`
	Skipped     []string `json:"skipped,omitempty"`
	DryRun      bool     `json:"dry_run"`
}

func runMerge(cmd *cobra.Command, args []string) error {
	file := config.Defaults()
	if mergeConfig != "" {
		loaded, err := config.Load(mergeConfig)
		if err != nil {
			return err
		}
		file = loaded
	}

	opts, err := mergeOptions(cmd, file)
	if err != nil {
		return err
	}

	out := file.Out
	if cmd.Flags().Changed("out") {
		out = mergeOut
	}
	dir := file.Dir
	if cmd.Flags().Changed("dir") {
		dir = mergeDir
	}
	if out != "" && dir != "" {
		return fmt.Errorf("--out and --dir are mutually exclusive")
	}

	eng := newEngine()
	ctx := context.Background()

	if mergeAllIn != "" {
		if len(args) > 0 {
			return fmt.Errorf("--all-in does not take positional inputs")
		}
		if out == "" {
			return fmt.Errorf("--all-in requires --out")
		}
		result, err := eng.MergeAllInFolder(ctx, mergeAllIn, out, opts)
		if err != nil {
			return err
		}
		return reportMerge(result)
	}

	// Config inputs come first, positional inputs after.
	inputs := append(append([]string{}, file.Sources...), args...)
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs given")
	}
	if err := checkInputsExist(inputs); err != nil {
		return err
	}

	sources := make([]source.Source, 0, len(inputs))
	for _, input := range inputs {
		src, err := source.FromString(input)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	var result *merger.MergeResult
	switch {
	case dir != "":
		result, err = eng.MergeToDir(ctx, sources, dir, opts)
	case out != "":
		result, err = eng.MergeToFile(ctx, sources, out, opts)
	default:
		return fmt.Errorf("specify a destination with --out or --dir")
	}
	if err != nil {
		return err
	}
	return reportMerge(result)
}

// mergeOptions layers changed flags over the config file values.
func mergeOptions(cmd *cobra.Command, file *config.File) (merger.MergeOptions, error) {
	opts, err := file.Options()
	if err != nil {
		return opts, err
	}

	flags := cmd.Flags()
	if flags.Changed("overwrite") {
		policy, err := pack.ParseOverwritePolicy(mergeOverwrite)
		if err != nil {
			return opts, err
		}
		opts.Overwrite = policy
	}
	if flags.Changed("supported-formats") {
		policy, err := manifest.ParseFormatsPolicy(mergeSupportedFormats)
		if err != nil {
			return opts, err
		}
		opts.FormatsPolicy = policy
	}
	if flags.Changed("dry-run") {
		opts.DryRun = mergeDryRun
	}
	if flags.Changed("buffer-size") {
		opts.BufferSize = mergeBufferSize
	}
	if flags.Changed("atomic") {
		opts.Atomic = mergeAtomic
	}
	if flags.Changed("no-atomic") && mergeNoAtomic {
		opts.Atomic = false
	}
	if flags.Changed("preserve-timestamps") {
		opts.PreserveTimestamps = mergePreserveTimestamps
	}
	if flags.Changed("pack-format") {
		format := mergePackFormat
		opts.PackFormatOverride = &format
	}
	if flags.Changed("description") {
		opts.Description = mergeDescription
	}
	return opts, nil
}

// checkInputsExist rejects nonexistent filesystem inputs before any source
// is read, so a typo fails fast instead of after a partial merge pass.
func checkInputsExist(inputs []string) error {
	var missing []string
	for _, input := range inputs {
		if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
			continue
		}
		if _, err := os.Stat(input); err != nil {
			missing = append(missing, input)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("input does not exist: %s", strings.Join(missing, ", "))
	}
	return nil
}

func reportMerge(result *merger.MergeResult) error {
	if jsonOutput {
		return outputJSON(mergeSummary{
			Destination: result.Destination,
			Sources:     result.SourceNames,
			Entries:     result.Entries,
			Overwritten: result.Overwritten,
			Skipped:     result.Skipped,
			DryRun:      result.DryRun,
		})
	}

	PrintSection("Merge")
	PrintNumberedList(result.SourceNames, 1)
	PrintLabelValue("Entries", fmt.Sprintf("%d", result.Entries))
	if len(result.Overwritten) > 0 {
		PrintLabelValue("Overwritten", fmt.Sprintf("%d", len(result.Overwritten)))
	}
	if len(result.Skipped) > 0 {
		PrintLabelValue("Skipped", fmt.Sprintf("%d", len(result.Skipped)))
	}

	if result.DryRun {
		PrintWarning(fmt.Sprintf("Dry run, %s was not written", result.Destination))
		return nil
	}
	PrintSuccess(fmt.Sprintf("Merged %d sources into %s", len(result.SourceNames), result.Destination))
	return nil
}
