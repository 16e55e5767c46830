package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"imagedup/config"
	"imagedup/dedupe"
	"imagedup/deletion"
	"imagedup/phash"
	"imagedup/scan"
	"imagedup/suggest"
	"imagedup/tui"
)

const (
	version        = "1.2.0"
	jsonReportFile = "imagedup_report.json"
	csvReportFile  = "imagedup_report.csv"
)

// options collects flag values. Flags override the config file, which
// overrides the built-in defaults.
type options struct {
	Dir           string
	Verbose       bool
	Workers       int
	MinSize       int64
	IncludeHidden bool
	Perceptual    bool
	Similarity    int
	Strategy      string
	TUI           bool
	DryRun        bool
	Delete        bool
	Permanent     bool
	Export        bool
	ExportCSV     bool
	Watch         bool
	WatchDebounce time.Duration
	Compare       string
	CompareWith   string
	ShowVersion   bool
}

var (
	opts       options
	configPath string
)

func init() {
	flag.Usage = customUsage

	flag.StringVar(&configPath, "config", "", "Config file path (JSON format)")

	flag.StringVar(&opts.Dir, "dir", ".", "Directory to scan for duplicate images")
	flag.BoolVar(&opts.Verbose, "verbose", false, "Show detailed output")
	flag.IntVar(&opts.Workers, "workers", runtime.NumCPU(), "Number of hashing workers")
	flag.Int64Var(&opts.MinSize, "min-size", 1024, "Minimum file size in bytes")
	flag.BoolVar(&opts.IncludeHidden, "include-hidden", false, "Descend into hidden folders")

	flag.BoolVar(&opts.Perceptual, "perceptual", false, "Also find visually similar images, not just exact duplicates")
	flag.IntVar(&opts.Similarity, "similarity", 5, "Similarity threshold (0-64). Lower = stricter.")

	flag.StringVar(&opts.Strategy, "keep", "", "Which copy to keep: "+strings.Join(strategyNames(), ", "))
	flag.BoolVar(&opts.TUI, "tui", false, "Review groups interactively before deleting")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "Record what would be deleted without touching files")
	flag.BoolVar(&opts.Delete, "delete", false, "Move non-keepers to the recycle bin without the TUI")
	flag.BoolVar(&opts.Permanent, "permanent", false, "Delete permanently instead of using the recycle bin (asks for confirmation)")

	flag.BoolVar(&opts.Export, "export", false, "Export duplicate report to "+jsonReportFile)
	flag.BoolVar(&opts.ExportCSV, "export-csv", false, "Export duplicate report to "+csvReportFile)

	flag.BoolVar(&opts.Watch, "watch", false, "Monitor the directory and report duplicates as files appear")
	flag.DurationVar(&opts.WatchDebounce, "watch-debounce", 2*time.Second, "Debounce interval for file events in watch mode")

	flag.StringVar(&opts.Compare, "compare", "", "Compare two images (format: img1,img2 or use with -compare-with)")
	flag.StringVar(&opts.CompareWith, "compare-with", "", "Second image for comparison (use with -compare)")

	flag.BoolVar(&opts.ShowVersion, "version", false, "Print version and exit")
}

// normalizeActionFlags resolves flag combinations. -permanent on its
// own selects nothing, so it implies -delete.
func normalizeActionFlags(o *options) {
	if o.Permanent && !o.TUI && !o.DryRun {
		o.Delete = true
	}
}

func strategyNames() []string {
	all := suggest.Strategies()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = string(s)
	}
	return names
}

// customUsage prints categorized help text
func customUsage() {
	fmt.Fprintf(os.Stderr, "Usage: imagedup [options] [dir ...]\n\n")
	fmt.Fprintf(os.Stderr, "Finds exact and visually similar duplicate images, suggests which copy\nto keep, and deletes the rest recoverably.\n\n")

	fmt.Fprintf(os.Stderr, "CONFIG:\n")
	fmt.Fprintf(os.Stderr, "  -config string\n\tConfig file path (JSON). Also checks ./.imagedup.json and ~/.config/imagedup/config.json\n")

	fmt.Fprintf(os.Stderr, "\nSCAN OPTIONS:\n")
	fmt.Fprintf(os.Stderr, "  -dir string\n\tDirectory to scan (default: current directory; positional args override)\n")
	fmt.Fprintf(os.Stderr, "  -workers int\n\tNumber of parallel hashing workers (default: %d)\n", runtime.NumCPU())
	fmt.Fprintf(os.Stderr, "  -min-size int\n\tSkip files smaller than this (bytes, default: 1024)\n")
	fmt.Fprintf(os.Stderr, "  -include-hidden\n\tDescend into hidden folders (skipped by default)\n")

	fmt.Fprintf(os.Stderr, "\nPERCEPTUAL MATCHING:\n")
	fmt.Fprintf(os.Stderr, "  -perceptual\n\tFind similar images, not just exact duplicates\n")
	fmt.Fprintf(os.Stderr, "  -similarity int\n\tThreshold 0-64, lower = stricter (default: 5)\n")
	fmt.Fprintf(os.Stderr, "  -compare img1,img2\n\tCompare two specific images\n")
	fmt.Fprintf(os.Stderr, "  -compare-with string\n\tSecond image (alternative to comma syntax)\n")

	fmt.Fprintf(os.Stderr, "\nACTION OPTIONS:\n")
	fmt.Fprintf(os.Stderr, "  -keep string\n\tKeep strategy: %s\n", strings.Join(strategyNames(), ", "))
	fmt.Fprintf(os.Stderr, "  -tui\n\tReview groups interactively before deleting (recommended)\n")
	fmt.Fprintf(os.Stderr, "  -dry-run\n\tRecord what would be deleted without touching files\n")
	fmt.Fprintf(os.Stderr, "  -delete\n\tMove non-keepers to the recycle bin without review\n")
	fmt.Fprintf(os.Stderr, "  -permanent\n\tDelete permanently instead of the recycle bin (asks for confirmation)\n")

	fmt.Fprintf(os.Stderr, "\nOUTPUT OPTIONS:\n")
	fmt.Fprintf(os.Stderr, "  -verbose\n\tShow detailed progress\n")
	fmt.Fprintf(os.Stderr, "  -export\n\tExport JSON report of duplicates found\n")
	fmt.Fprintf(os.Stderr, "  -export-csv\n\tExport CSV report of duplicates found\n")

	fmt.Fprintf(os.Stderr, "\nWATCH MODE:\n")
	fmt.Fprintf(os.Stderr, "  -watch\n\tMonitor for new files and report duplicates in real time\n")
	fmt.Fprintf(os.Stderr, "  -watch-debounce duration\n\tDebounce interval for file events (default: 2s)\n")

	fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
	fmt.Fprintf(os.Stderr, "  imagedup ~/Photos\n")
	fmt.Fprintf(os.Stderr, "  imagedup -perceptual -similarity 8 ~/Photos\n")
	fmt.Fprintf(os.Stderr, "  imagedup -tui -perceptual ~/Photos ~/Downloads\n")
	fmt.Fprintf(os.Stderr, "  imagedup -keep keep_oldest -delete ~/Photos\n")
	fmt.Fprintf(os.Stderr, "  imagedup -compare a.jpg,b.jpg\n")
}

// resolveConfigPath finds the config file to load.
// Precedence: explicit -config > ./.imagedup.json > ~/.config/imagedup/config.json
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if _, err := os.Stat(".imagedup.json"); err == nil {
		return ".imagedup.json"
	}
	if home, err := os.UserHomeDir(); err == nil {
		global := filepath.Join(home, ".config", "imagedup", "config.json")
		if _, err := os.Stat(global); err == nil {
			return global
		}
	}
	return ""
}

// applyFlagOverrides copies explicitly set flags over the loaded config.
func applyFlagOverrides(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.MaxWorkerThreads = opts.Workers
		case "min-size":
			cfg.MinFileSizeBytes = opts.MinSize
		case "include-hidden":
			cfg.IncludeHiddenFolders = opts.IncludeHidden
		case "perceptual":
			cfg.PerceptualHash.Enabled = opts.Perceptual
		case "similarity":
			cfg.PerceptualHash.SimilarityThreshold = opts.Similarity
		case "keep":
			cfg.SuggestionStrategy = opts.Strategy
		}
	})
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	flag.Parse()
	normalizeActionFlags(&opts)

	if opts.ShowVersion {
		fmt.Printf("imagedup v%s\n", version)
		return
	}

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fatal("%v", err)
	}
	applyFlagOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration: %v", err)
	}

	logger, closeLog, err := setupLogger(cfg.LogDir, opts.Verbose)
	if err != nil {
		fatal("%v", err)
	}
	defer closeLog()

	// Image comparison is a standalone mode.
	if opts.Compare != "" {
		if err := compareImages(); err != nil {
			fatal("comparing images: %v", err)
		}
		return
	}

	// Launched by double-click: re-spawn inside a terminal with the TUI.
	if isDoubleClick() {
		if err := spawnTerminal(); err == nil {
			return
		}
		// No terminal available; fall through and run inline.
		opts.TUI = true
	}

	roots := flag.Args()
	if len(roots) == 0 {
		roots = []string{opts.Dir}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.Watch {
		if err := runWatch(ctx, roots, cfg, logger); err != nil {
			fatal("watch mode: %v", err)
		}
		return
	}

	logger.Info("starting scan", "roots", strings.Join(roots, ", "),
		"perceptual", cfg.PerceptualHash.Enabled, "workers", cfg.MaxWorkerThreads)

	reporter := scan.NewChanReporter(64)
	var render sync.WaitGroup
	render.Add(1)
	go func() {
		defer render.Done()
		renderProgress(reporter.C)
	}()

	pipeline := dedupe.New(roots, cfg, logger, reporter)
	res, err := pipeline.Run(ctx)
	reporter.Close()
	render.Wait()
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "\ncancelled")
			os.Exit(130)
		}
		fatal("%v", err)
	}

	strategy := cfg.Strategy()
	printReport(res, strategy)
	printWarnings(res.Warnings)

	if opts.Export {
		data, err := dedupe.ExportJSON(res.Groups, strategy)
		if err != nil {
			logger.Warn("json export failed", "err", err)
		} else if err := os.WriteFile(jsonReportFile, data, 0o644); err != nil {
			logger.Warn("json export failed", "err", err)
		} else {
			fmt.Printf("Report exported to %s\n", jsonReportFile)
		}
	}
	if opts.ExportCSV {
		if err := exportCSV(res.Groups, strategy); err != nil {
			logger.Warn("csv export failed", "err", err)
		} else {
			fmt.Printf("CSV exported to %s\n", csvReportFile)
		}
	}

	if len(res.Groups) == 0 {
		return
	}

	var candidates []deletion.Candidate
	switch {
	case opts.TUI:
		selections, err := tui.Run(res.Groups, strategy)
		if err != nil {
			fatal("interactive review: %v", err)
		}
		for _, sel := range selections {
			candidates = append(candidates, deletion.Candidate{Path: sel.Path, GroupID: sel.GroupID, Size: sel.Size})
		}
	case opts.Delete || opts.DryRun:
		candidates = autoSelect(res.Groups, strategy)
	default:
		return
	}
	if len(candidates) == 0 {
		fmt.Println("Nothing selected for deletion.")
		return
	}

	req := deletion.Request{Files: candidates, Method: deletion.MethodRecycleBin}
	switch {
	case opts.DryRun:
		req.Method = deletion.MethodDryRun
	case opts.Permanent:
		if !confirmPermanent(len(candidates)) {
			fmt.Println("Cancelled, nothing deleted.")
			return
		}
		req.Method = deletion.MethodPermanent
		req.ConfirmedPermanent = true
	}

	manager := deletion.NewManager(pipeline.Roots(), cfg.AuditLogDir, logger)
	report, err := manager.Execute(ctx, req)
	if err != nil {
		fatal("%v", err)
	}
	printDeletionReport(report)
}

// autoSelect marks every non-keeper of every group for deletion.
func autoSelect(groups []dedupe.DuplicateGroup, strategy suggest.Strategy) []deletion.Candidate {
	var candidates []deletion.Candidate
	for _, g := range groups {
		sug, err := suggest.Suggest(g.Files, strategy)
		if err != nil {
			continue
		}
		for _, f := range g.Files {
			if f.Path == sug.Keeper.Path {
				continue
			}
			candidates = append(candidates, deletion.Candidate{Path: f.Path, GroupID: g.ID, Size: f.Size})
		}
	}
	return candidates
}

// confirmPermanent requires the user to type DELETE before a permanent
// run is allowed.
func confirmPermanent(count int) bool {
	fmt.Printf("\nWARNING: %d files will be PERMANENTLY deleted. This cannot be undone.\n", count)
	fmt.Print(`Type "DELETE" to confirm: `)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	return strings.TrimSpace(scanner.Text()) == "DELETE"
}

func exportCSV(groups []dedupe.DuplicateGroup, strategy suggest.Strategy) error {
	f, err := os.Create(csvReportFile)
	if err != nil {
		return err
	}
	defer f.Close()
	return dedupe.WriteCSV(f, groups, strategy)
}

// compareImages handles the -compare flag.
func compareImages() error {
	var img1, img2 string
	if strings.Contains(opts.Compare, ",") {
		parts := strings.SplitN(opts.Compare, ",", 2)
		img1 = strings.TrimSpace(parts[0])
		img2 = strings.TrimSpace(parts[1])
	} else if opts.CompareWith != "" {
		img1 = opts.Compare
		img2 = opts.CompareWith
	} else {
		return fmt.Errorf("usage: -compare img1,img2 OR -compare img1 -compare-with img2")
	}

	for _, path := range []string{img1, img2} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("cannot access %s: %w", path, err)
		}
	}

	h1, err := phash.File(img1)
	if err != nil {
		return fmt.Errorf("hashing %s: %w", img1, err)
	}
	h2, err := phash.File(img2)
	if err != nil {
		return fmt.Errorf("hashing %s: %w", img2, err)
	}

	dist := h1.Distance(h2)
	similarity := 100.0 - float64(dist)/64.0*100.0

	fmt.Printf("Image 1: %s (%s)\n", img1, h1)
	fmt.Printf("Image 2: %s (%s)\n", img2, h2)
	fmt.Printf("Hamming distance: %d/64 (%.1f%% similar)\n", dist, similarity)
	if dist <= opts.Similarity {
		fmt.Printf("Result: SIMILAR (threshold %d)\n", opts.Similarity)
	} else {
		fmt.Printf("Result: DIFFERENT (threshold %d)\n", opts.Similarity)
	}
	return nil
}
