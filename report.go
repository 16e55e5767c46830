package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"imagedup/dedupe"
	"imagedup/deletion"
	"imagedup/scan"
	"imagedup/suggest"
)

var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	keepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	deleteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// renderProgress consumes pipeline progress events and keeps a single
// status line updated on stderr. It returns once the channel closes.
func renderProgress(events <-chan scan.Progress) {
	var lastStage scan.Stage
	printed := false
	for p := range events {
		if p.Stage != lastStage && printed {
			fmt.Fprintln(os.Stderr)
		}
		lastStage = p.Stage
		printed = true
		name := filepath.Base(p.Path)
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		fmt.Fprintf(os.Stderr, "\r%s %d files  %s\x1b[K",
			accentStyle.Render(stageLabel(p.Stage)), p.FilesScanned, dimStyle.Render(name))
	}
	if printed {
		fmt.Fprintln(os.Stderr)
	}
}

func stageLabel(s scan.Stage) string {
	switch s {
	case scan.StageScanning:
		return "Scanning"
	case scan.StageHashing:
		return "Hashing"
	case scan.StageClustering:
		return "Clustering"
	case scan.StageDeleting:
		return "Deleting"
	default:
		return string(s)
	}
}

// printReport writes the human-readable group report to stdout.
func printReport(res *dedupe.Result, strategy suggest.Strategy) {
	st := res.Stats
	if len(res.Groups) == 0 {
		fmt.Printf("No duplicates found among %d files (%.2fs).\n",
			st.FilesScanned, st.Elapsed.Seconds())
		return
	}

	fmt.Println(headingStyle.Render(fmt.Sprintf("Found %d duplicate groups (%d exact, %d similar)",
		len(res.Groups), st.ExactGroups, st.SimilarGroups)))
	fmt.Println(strings.Repeat("─", 70))

	for i, g := range res.Groups {
		label := "exact"
		if g.Kind == dedupe.MatchSimilar {
			label = fmt.Sprintf("similar, distance %d", g.Distance)
		}
		fmt.Printf("\n%s %s\n",
			accentStyle.Render(fmt.Sprintf("[%d]", i+1)),
			dimStyle.Render(fmt.Sprintf("(%s, reclaimable %s)", label, formatBytes(g.ReclaimableSize()))))

		keeper := ""
		reason := ""
		if s, err := suggest.Suggest(g.Files, strategy); err == nil {
			keeper = s.Keeper.Path
			reason = s.Reason
		}
		for _, f := range g.Files {
			detail := formatBytes(f.Size)
			if f.Resolution != nil {
				detail += ", " + f.Resolution.String()
			}
			if f.Path == keeper {
				fmt.Printf("  %s %s %s\n", keepStyle.Render("keep  "), f.Path, dimStyle.Render("("+detail+")"))
			} else {
				fmt.Printf("  %s %s %s\n", deleteStyle.Render("delete"), f.Path, dimStyle.Render("("+detail+")"))
			}
		}
		if reason != "" {
			fmt.Printf("  %s\n", dimStyle.Render(reason))
		}
	}

	fmt.Println("\n" + strings.Repeat("─", 70))
	fmt.Printf("Scanned %d files, hashed %d, reclaimable %s (%.2fs)\n",
		st.FilesScanned, st.FilesHashed, formatBytes(st.WastedBytes), st.Elapsed.Seconds())
}

// printWarnings lists per-file problems that did not stop the scan.
func printWarnings(warnings []scan.Warning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "\n%d files could not be processed:\n", len(warnings))
	for i, w := range warnings {
		if i >= 20 {
			fmt.Fprintf(os.Stderr, "  ... and %d more (see the log file)\n", len(warnings)-20)
			break
		}
		fmt.Fprintf(os.Stderr, "  %s\n", w)
	}
}

// printDeletionReport summarizes a finished deletion run.
func printDeletionReport(report *deletion.Report) {
	verb := "Deleted"
	switch report.Mode {
	case deletion.MethodDryRun:
		verb = "Would delete"
	case deletion.MethodRecycleBin:
		verb = "Recycled"
	}

	fmt.Println()
	if report.State == deletion.StateAborted {
		fmt.Println(deleteStyle.Render("Deletion run aborted."))
	}
	fmt.Printf("%s %d files", verb, report.Summary.Succeeded)
	if report.Mode != deletion.MethodDryRun {
		fmt.Printf(", freed %s", formatBytes(report.Summary.BytesFreed))
	}
	fmt.Println()

	if report.Summary.Failed > 0 {
		fmt.Println(deleteStyle.Render(fmt.Sprintf("%d files failed:", report.Summary.Failed)))
		for _, rec := range report.Records {
			if rec.Outcome == deletion.OutcomeFailed {
				fmt.Printf("  %s: %s\n", rec.Path, rec.ErrorKind)
			}
		}
	}
	for _, skip := range report.Skipped {
		fmt.Printf("  %s %s (%s)\n", dimStyle.Render("skipped"), skip.Path, skip.Reason)
	}
	if report.LogPath != "" {
		fmt.Printf("Audit log: %s\n", report.LogPath)
	}
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
