package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"

	"github.com/rybkr/sizehist/internal/scanstore"
	"github.com/rybkr/sizehist/internal/sizetree"
	"github.com/rybkr/sizehist/internal/termcolor"
)

// printSummaryHuman renders the scan result as the default, human-facing
// report: overall totals, a table of the largest blobs, and a table of
// per-extension totals.
func printSummaryHuman(cw *termcolor.Writer, tree *sizetree.TreeNode, top []scanstore.BlobRecord, extStats []sizetree.ExtensionStat) {
	fmt.Fprintln(cw, cw.Bold("History size summary"))
	fmt.Fprintf(cw, "  cumulative: %s\n", cw.Cyan(formatBytes(tree.CumulativeSize)))
	fmt.Fprintf(cw, "  current:    %s\n", cw.Cyan(formatBytes(tree.CurrentSize)))
	fmt.Fprintf(cw, "  blobs:      %d\n", tree.BlobCount)
	if tree.ContainsDeletedFiles() {
		fmt.Fprintf(cw, "  deleted:    %s %s\n", cw.Yellow(formatBytes(tree.DeletedSize)), cw.Yellow("(reachable only through history)"))
	}
	fmt.Fprintln(cw)

	if len(top) > 0 {
		fmt.Fprintln(cw, cw.BoldCyan("Largest blobs"))
		rows := pterm.TableData{{"Size", "Path", "Author", "First seen"}}
		for _, b := range top {
			rows = append(rows, []string{
				formatBytes(b.Size),
				b.Path,
				b.FirstAuthor,
				time.Unix(b.FirstDate, 0).UTC().Format("2006-01-02"),
			})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
		fmt.Fprintln(cw)
	}

	if len(extStats) > 0 {
		fmt.Fprintln(cw, cw.BoldCyan("By file extension"))
		rows := pterm.TableData{{"Extension", "Cumulative", "Current", "Blobs"}}
		for _, e := range extStats {
			rows = append(rows, []string{
				e.Extension,
				formatBytes(e.CumulativeSize),
				formatBytes(e.CurrentSize),
				fmt.Sprintf("%d", e.BlobCount),
			})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	}
}

type jsonSummary struct {
	Cumulative int64             `json:"cumulative_size"`
	Current    int64             `json:"current_size"`
	BlobCount  int64             `json:"blob_count"`
	Deleted    bool              `json:"has_deleted_files"`
	DeletedSz  int64             `json:"deleted_size"`
	TopBlobs   []jsonBlobRecord  `json:"top_blobs"`
	Extensions []jsonExtensionOp `json:"extensions"`
}

type jsonBlobRecord struct {
	Size        int64  `json:"size"`
	Path        string `json:"path"`
	FirstAuthor string `json:"first_author"`
	FirstDate   int64  `json:"first_date"`
}

type jsonExtensionOp struct {
	Extension  string `json:"extension"`
	Cumulative int64  `json:"cumulative_size"`
	Current    int64  `json:"current_size"`
	BlobCount  int64  `json:"blob_count"`
}

// printSummaryJSON renders the scan result as a single JSON object on
// stdout, for scripted consumption.
func printSummaryJSON(tree *sizetree.TreeNode, top []scanstore.BlobRecord, extStats []sizetree.ExtensionStat) {
	out := jsonSummary{
		Cumulative: tree.CumulativeSize,
		Current:    tree.CurrentSize,
		BlobCount:  tree.BlobCount,
		Deleted:    tree.ContainsDeletedFiles(),
		DeletedSz:  tree.DeletedSize,
	}
	for _, b := range top {
		out.TopBlobs = append(out.TopBlobs, jsonBlobRecord{
			Size: b.Size, Path: b.Path, FirstAuthor: b.FirstAuthor, FirstDate: b.FirstDate,
		})
	}
	for _, e := range extStats {
		out.Extensions = append(out.Extensions, jsonExtensionOp{
			Extension: e.Extension, Cumulative: e.CumulativeSize, Current: e.CurrentSize, BlobCount: e.BlobCount,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "error encoding summary: %v\n", err)
		os.Exit(1)
	}
}
