package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/taproot"
	"github.com/jward/taproot/internal/store"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the resolved index",
}

func init() {
	queryCmd.AddCommand(queryDefinitionCmd)
	queryCmd.AddCommand(queryReferencesCmd)
	queryCmd.AddCommand(queryCallersCmd)
	queryCmd.AddCommand(queryCalleesCmd)
	queryCmd.AddCommand(queryReachableCmd)
}

// openQuery opens the existing index database and wraps it in a QueryBuilder.
func openQuery() (*taproot.QueryBuilder, *store.Store, error) {
	dbPath := databasePath(mustGetwd())
	if _, err := os.Stat(dbPath); err != nil {
		return nil, nil, fmt.Errorf("no index at %s (run `taproot index` first)", dbPath)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return taproot.NewQueryBuilder(s), s, nil
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

var queryDefinitionCmd = &cobra.Command{
	Use:   "definition <file> <line> <col>",
	Short: "Find the definition of the symbol referenced at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid line %q", args[1])
		}
		col, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid col %q", args[2])
		}
		q, s, err := openQuery()
		if err != nil {
			return err
		}
		defer s.Close()

		locs, err := q.DefinitionAt(args[0], line, col)
		if err != nil {
			return err
		}
		return outputLocations(locs)
	},
}

var queryReferencesCmd = &cobra.Command{
	Use:   "references <symbol-key>",
	Short: "Find all references resolving to a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, s, err := openQuery()
		if err != nil {
			return err
		}
		defer s.Close()

		locs, err := q.ReferencesTo(args[0])
		if err != nil {
			return err
		}
		return outputLocations(locs)
	},
}

var queryCallersCmd = &cobra.Command{
	Use:   "callers <symbol-key>",
	Short: "List call graph edges targeting a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, s, err := openQuery()
		if err != nil {
			return err
		}
		defer s.Close()

		edges, err := q.Callers(args[0])
		if err != nil {
			return err
		}
		return outputCallEdges(edges)
	},
}

var queryCalleesCmd = &cobra.Command{
	Use:   "callees <symbol-key>",
	Short: "List call graph edges originating from a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, s, err := openQuery()
		if err != nil {
			return err
		}
		defer s.Close()

		edges, err := q.Callees(args[0])
		if err != nil {
			return err
		}
		return outputCallEdges(edges)
	},
}

var queryReachableCmd = &cobra.Command{
	Use:   "reachable",
	Short: "List symbols reachable through function collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, s, err := openQuery()
		if err != nil {
			return err
		}
		defer s.Close()

		entries, err := q.Reachable()
		if err != nil {
			return err
		}
		return outputReachability(entries)
	},
}

func outputLocations(locs []taproot.Location) error {
	if flagFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(locs)
	}
	for _, loc := range locs {
		fmt.Printf("%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
	return nil
}

func outputCallEdges(edges []*store.CallEdge) error {
	if flagFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(edges)
	}
	for _, e := range edges {
		caller := e.CallerSymbolKey
		if caller == "" {
			caller = e.CallerScopeKey
		}
		fmt.Printf("%s -> %s (%s) at %d:%d\n", caller, e.CalleeSymbolKey, e.CallType, e.Line, e.Col)
	}
	return nil
}

func outputReachability(entries []*store.Reachability) error {
	if flagFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(entries)
	}
	for _, r := range entries {
		fmt.Printf("%s  %s via %s (%s:%d)\n", r.SymbolKey, r.Reason, r.CollectionSymbolKey, r.ReadFile, r.ReadLine)
	}
	return nil
}
