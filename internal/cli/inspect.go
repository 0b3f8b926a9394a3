package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/packmerge/packmerge/internal/pack"
	"github.com/packmerge/packmerge/internal/source"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <pack>",
	Short: "List the entries of a resource pack",
	Long:  `Display the entries of a single pack without merging anything.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := source.FromString(args[0])
		if err != nil {
			return err
		}

		type entryInfo struct {
			Path     string `json:"path"`
			Size     int    `json:"size"`
			Modified string `json:"modified,omitempty"`
		}

		var entries []entryInfo
		err = src.Entries(0, func(e pack.Entry) error {
			info := entryInfo{Path: e.Path, Size: len(e.Content)}
			if !e.ModTime.IsZero() {
				info.Modified = e.ModTime.UTC().Format(time.RFC3339)
			}
			entries = append(entries, info)
			return nil
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(entries)
		}

		PrintSection(fmt.Sprintf("Entries of %s", src.Name()))
		if len(entries) == 0 {
			PrintEmptyState("No entries found")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.Path, fmt.Sprintf("%d", e.Size), e.Modified})
		}
		PrintTable([]string{"Path", "Size", "Modified"}, rows)
		PrintInfo(fmt.Sprintf("\n%d entries", len(entries)))
		return nil
	},
}
