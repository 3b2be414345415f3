// Package main is the entry point for the sizehist CLI.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/rybkr/sizehist/internal/scanner"
	"github.com/rybkr/sizehist/internal/scanstore"
	"github.com/rybkr/sizehist/internal/sizetree"
	"github.com/rybkr/sizehist/internal/termcolor"
)

const outputFormatJS = "json"

func main() {
	initLogger()

	repoPath := flag.String("repo", getEnv("SIZEHIST_REPO", "."), "Path to git repository")
	dbPath := flag.String("db", getEnv("SIZEHIST_DB", ""), "Path to the size index database (default: <repo>/.git/sizehist.db)")
	top := flag.Int("top", 20, "Number of largest blobs to display")
	colorFlag := flag.String("color", "auto", "Color output: auto, always, never")
	noColor := flag.Bool("no-color", false, "Disable color output")
	quiet := flag.Bool("quiet", false, "Suppress progress output")
	outputFormat := flag.String("output", "", "Result format: json (default: human-readable)")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	colorMode := termcolor.ColorAuto
	if *noColor {
		colorMode = termcolor.ColorNever
	} else if *colorFlag != "auto" {
		var err error
		colorMode, err = termcolor.ParseColorMode(*colorFlag)
		if err != nil {
			slog.Error("invalid color flag", "value", *colorFlag, "err", err)
			os.Exit(1)
		}
	}
	cw := termcolor.NewWriter(os.Stdout, colorMode)

	if *outputFormat != "" && *outputFormat != outputFormatJS {
		fmt.Fprintf(os.Stderr, "%s -output %q is not valid; only %q is supported\n", cw.Red("error:"), *outputFormat, outputFormatJS)
		os.Exit(1)
	}

	resolvedDB := *dbPath
	if resolvedDB == "" {
		resolvedDB = filepath.Join(*repoPath, ".git", "sizehist.db")
	}

	store, err := scanstore.OpenSqliteStore(resolvedDB)
	if err != nil {
		slog.Error("failed to open size index", "path", resolvedDB, "err", err)
		os.Exit(1)
	}
	defer store.Close()
	if store.Rebuilt {
		slog.Info("size index schema changed, rebuilding from scratch", "path", resolvedDB)
	}

	var reporter = newSpinnerReporter(*quiet || *outputFormat == outputFormatJS)
	sc := scanner.New(*repoPath, store, reporter)

	tree, err := sc.Scan()
	reporter.stop(err)
	if err != nil {
		slog.Error("scan failed", "err", err)
		os.Exit(1)
	}

	topBlobs, err := store.TopBlobs(*top)
	if err != nil {
		slog.Error("failed to load top blobs", "err", err)
		os.Exit(1)
	}
	extStats := sizetree.ComputeExtensionStats(tree)
	sort.SliceStable(extStats, func(i, j int) bool { return extStats[i].CumulativeSize > extStats[j].CumulativeSize })

	if *outputFormat == outputFormatJS {
		printSummaryJSON(tree, topBlobs, extStats)
		return
	}
	printSummaryHuman(cw, tree, topBlobs, extStats)
}

// initLogger reads SIZEHIST_LOG_LEVEL and SIZEHIST_LOG_FORMAT from the
// environment, constructs the appropriate slog.Handler, and installs it as
// the default logger via slog.SetDefault.
func initLogger() {
	level := slog.LevelInfo
	switch getEnv("SIZEHIST_LOG_LEVEL", "info") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if getEnv("SIZEHIST_LOG_FORMAT", "text") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func printVersion() {
	fmt.Println("sizehist dev")
}
