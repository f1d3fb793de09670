package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/idelchi/dupstat/internal/dupstat"
)

const (
	// TabSpacing is the number of spaces between tabwriter columns.
	TabSpacing = 2
)

// displayPath converts a path to slash format without a leading "./".
func displayPath(path string) string {
	return strings.TrimPrefix(filepath.ToSlash(path), "./")
}

// PrintJSON outputs the scan result in JSON format.
func PrintJSON(result *dupstat.Result, writer io.Writer) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintPaths outputs one line per duplicate file: group number, group size
// and path, separated by tabs. Suited for piping into fzf or cut.
func PrintPaths(result *dupstat.Result, writer io.Writer) error {
	for i, g := range result.Groups {
		for _, member := range g.Members {
			if _, err := fmt.Fprintf(writer, "%d\t%s\t%s\n", i+1, humanize.IBytes(g.Size), displayPath(member)); err != nil {
				return err
			}
		}
	}

	return nil
}

// PrintTable outputs the scan result in human-readable table format.
// At most top groups are listed; zero lists all of them.
//
//nolint:forbidigo // This function prints output to the console.
func PrintTable(result *dupstat.Result, top int, writer io.Writer) error {
	w := tabwriter.NewWriter(writer, 0, 4, TabSpacing, ' ', 0)
	stats := result.Stats

	groups := result.Groups
	if top > 0 && len(groups) > top {
		groups = groups[:top]
	}

	if len(result.Groups) == 0 {
		fmt.Fprintln(w, "\nNo duplicate files found.\t\t")
	} else {
		fmt.Fprintf(w, "\nDuplicate sets (%d of %d, by wasted space):\t\t\n", len(groups), len(result.Groups))
	}

	for i, g := range groups {
		fmt.Fprintf(w, "\n  %d) %d copies of %s, %s wasted\t%s\n",
			i+1, len(g.Members), humanize.IBytes(g.Size), humanize.IBytes(g.Wasted()), g.Signature)

		for _, member := range g.Members {
			fmt.Fprintf(w, "     '%s'\t\n", displayPath(member))
		}
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(w, "\nSkipped:\t\t")

		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\t'%s'\t%v\n", e.Op, displayPath(e.Path), e.Err)
		}
	}

	// Stats summary
	fmt.Fprintln(w, "\nStats:\t\t")
	fmt.Fprintf(w, "Files scanned:\t%d\n", stats.FilesScanned)
	fmt.Fprintf(w, "Total size:\t%s (%d bytes)\n",
		humanize.IBytes(stats.TotalBytesScanned), stats.TotalBytesScanned)
	fmt.Fprintf(w, "Duplicate sets:\t%d\n", stats.DuplicateGroupCount)
	fmt.Fprintf(w, "Duplicate files:\t%d (%d redundant)\n", stats.DuplicateFileCount, stats.RedundantFiles())

	pct := 0.0
	if stats.TotalBytesScanned > 0 {
		pct = 100.0 * float64(stats.WastedBytes) / float64(stats.TotalBytesScanned)
	}

	fmt.Fprintf(w, "Potential savings:\t%s (%.1f%%)\n", humanize.IBytes(stats.WastedBytes), pct)
	fmt.Fprintf(w, "Errors:\t%d\n", stats.ErrorCount)

	if result.Partial {
		fmt.Fprintln(w, "Partial:\tscan was interrupted")
	}

	fmt.Fprintf(w, "\nElapsed:\t%v\n", stats.Elapsed)

	return w.Flush()
}
