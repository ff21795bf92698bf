package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/taproot"
	"github.com/jward/taproot/internal/runtime"
)

var flagRunDir string

var runCmd = &cobra.Command{
	Use:   "run <script.risor>",
	Short: "Run a Risor script against the resolved index",
	Long: `Indexes and resolves the target directory in memory, then executes the
script with the resolution query surface exposed as globals: resolve,
calls_by_caller, referenced_symbols, reachability, plus
parse_src/query/node_text for ad-hoc tree-sitter work. No database is
opened, so the store-backed globals (db, symbols_by_name,
references_by_name, callers, callees) are not defined.`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	runCmd.Flags().StringVar(&flagRunDir, "dir", ".", "directory to index before running the script")
}

func runScript(cmd *cobra.Command, args []string) error {
	targetDir, err := indexTarget([]string{flagRunDir})
	if err != nil {
		return err
	}

	engine, err := taproot.New("")
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	ctx := context.Background()
	if err := engine.IndexDirectory(ctx, targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	if err := engine.Resolve(ctx); err != nil {
		return fmt.Errorf("resolving: %w", err)
	}

	rt := runtime.NewRuntime(engine.Store(), engine.State(), "")
	if err := rt.RunScript(ctx, args[0], nil); err != nil {
		return err
	}
	return nil
}
