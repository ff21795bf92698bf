package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/taproot"
)

var (
	flagDB     string
	flagFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "taproot",
	Short:         "Cross-file symbol resolution built on tree-sitter",
	Long:          "Taproot indexes TypeScript, JavaScript, Python, and Rust sources with tree-sitter, resolves every reference to its definition, and writes the result to a SQLite database for semantic queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .taproot/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(runCmd)
}

var (
	flagForce     bool
	flagLanguages string
	flagSerial    bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a repository and resolve all references",
	Long:  "Parses source files with tree-sitter, builds semantic indexes, runs two-phase resolution, and writes the resolved snapshot to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. typescript,python)")
	indexCmd.Flags().BoolVar(&flagSerial, "serial", false, "disable the parallel extraction pipeline")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := indexTarget(args)
	if err != nil {
		return err
	}

	dbPath := databasePath(targetDir)

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dbDir, err)
	}

	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	var opts []taproot.Option
	if flagLanguages != "" {
		langs := strings.Split(flagLanguages, ",")
		for i := range langs {
			langs[i] = strings.TrimSpace(langs[i])
		}
		opts = append(opts, taproot.WithLanguages(langs...))
	}
	if flagSerial {
		opts = append(opts, taproot.WithParallel(false))
	}

	engine, err := taproot.New(dbPath, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	ctx := context.Background()

	extractStart := time.Now()
	if err := engine.IndexDirectory(ctx, targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	extractDuration := time.Since(extractStart)

	resolveStart := time.Now()
	if err := engine.Resolve(ctx); err != nil {
		return fmt.Errorf("resolving: %w", err)
	}
	resolveDuration := time.Since(resolveStart)

	totalDuration := time.Since(start)

	stats := engine.CacheStats()
	fmt.Fprintf(os.Stderr, "Indexed %s in %s (extract: %s, resolve: %s)\n",
		targetDir,
		totalDuration.Round(time.Millisecond),
		extractDuration.Round(time.Millisecond),
		resolveDuration.Round(time.Millisecond),
	)
	fmt.Fprintf(os.Stderr, "Cache: %d lookups, %.0f%% hit rate\n", stats.Total, stats.HitRate*100)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)

	return nil
}

// indexTarget turns the optional positional argument into an absolute
// directory path, defaulting to the working directory.
func indexTarget(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("bad target %q: %w", dir, err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

// databasePath decides where the index database lives. The --db flag wins
// (relative values anchor at the checkout root); otherwise the database is
// .taproot/index.db at the enclosing git checkout, falling back to `near`
// itself when the target is not under version control.
func databasePath(near string) string {
	root := near
	for dir := near; ; dir = filepath.Dir(dir) {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			root = dir
			break
		}
		if filepath.Dir(dir) == dir {
			break
		}
	}
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(root, flagDB)
	}
	return filepath.Join(root, ".taproot", "index.db")
}

func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("invalid format %q (want json or text)", format)
}
