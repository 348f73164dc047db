// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codeintel/internal/graph"
	"github.com/kraklabs/codeintel/internal/storage"
)

// runQuery dispatches `cie query <subcommand>` to the store's read surface
// (§4.5-4.7): search, neighborhood, trail, node, occurrences.
func runQuery(args []string, globals GlobalFlags) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: cie query <search|neighborhood|trail|node|occurrences> [args]")
	}
	sub, subArgs := args[0], args[1:]

	store, _, err := openStoreFromConfig(globals)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	switch sub {
	case "search":
		return queryCmdSearch(ctx, store, subArgs, globals)
	case "neighborhood":
		return queryCmdNeighborhood(ctx, store, subArgs, globals)
	case "trail":
		return queryCmdTrail(ctx, store, subArgs, globals)
	case "node":
		return queryCmdNode(ctx, store, subArgs, globals)
	case "occurrences":
		return queryCmdOccurrences(ctx, store, subArgs, globals)
	default:
		return fmt.Errorf("unknown query subcommand %q", sub)
	}
}

func queryCmdSearch(ctx context.Context, store *storage.Store, args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("query search", flag.ExitOnError)
	limit := fs.IntP("limit", "l", 20, "max results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: cie query search <pattern> [--limit N]")
	}
	nodes, err := store.SearchNodes(ctx, fs.Arg(0), nil, *limit)
	if err != nil {
		return fmt.Errorf("query search: %w", err)
	}
	return renderNodes(nodes, globals)
}

func queryCmdNeighborhood(ctx context.Context, store *storage.Store, args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("query neighborhood", flag.ExitOnError)
	focus := fs.String("focus", "", "focus node ID (hex, optional 0x prefix)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseNodeID(*focus)
	if err != nil {
		return err
	}
	n, err := store.GetNeighborhood(ctx, id)
	if err != nil {
		return fmt.Errorf("query neighborhood: %w", err)
	}
	if globals.JSON {
		return printJSON(n)
	}
	fmt.Printf("center: %s (%s)\n", n.Center.SerializedName, n.Center.Kind)
	fmt.Printf("%d node(s), %d edge(s)\n", len(n.Nodes), len(n.Edges))
	return renderNodes(n.Nodes, globals)
}

func queryCmdTrail(ctx context.Context, store *storage.Store, args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("query trail", flag.ExitOnError)
	focus := fs.String("focus", "", "root node ID (hex, optional 0x prefix)")
	mode := fs.String("mode", "all_referenced", "neighborhood|all_referenced|all_referencing|to_target_symbol")
	depth := fs.Int("depth", 3, "traversal depth (0 = unbounded, capped by --max-nodes)")
	maxNodes := fs.Int("max-nodes", 200, "node cap")
	direction := fs.String("direction", "both", "outgoing|incoming|both")
	if err := fs.Parse(args); err != nil {
		return err
	}
	root, err := parseNodeID(*focus)
	if err != nil {
		return err
	}
	cfg := storage.TrailConfig{
		RootID:      root,
		Mode:        parseTrailMode(*mode),
		Depth:       *depth,
		Direction:   parseDirection(*direction),
		CallerScope: storage.CallerScopeProductionOnly,
		MaxNodes:    *maxNodes,
	}
	result, err := store.GetTrail(ctx, cfg)
	if err != nil {
		return fmt.Errorf("query trail: %w", err)
	}
	if globals.JSON {
		return printJSON(result)
	}
	if result.Truncated {
		fmt.Printf("(truncated at max-nodes=%d)\n", *maxNodes)
	}
	fmt.Printf("%d node(s), %d edge(s)\n", len(result.Nodes), len(result.Edges))
	return renderNodes(result.Nodes, globals)
}

func queryCmdNode(ctx context.Context, store *storage.Store, args []string, globals GlobalFlags) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: cie query node <node-id>")
	}
	id, err := parseNodeID(args[0])
	if err != nil {
		return err
	}
	node, ok, err := store.GetNode(ctx, id)
	if err != nil {
		return fmt.Errorf("query node: %w", err)
	}
	if !ok {
		return fmt.Errorf("no such node: %s", args[0])
	}
	if globals.JSON {
		return printJSON(node)
	}
	fmt.Printf("%s  %s  %s\n", node.Kind, node.SerializedName, node.QualifiedName)
	if node.HasFile {
		if path, ok, err := store.GetFilePath(ctx, node.FileNodeID); err == nil && ok {
			fmt.Printf("file: %s\n", path)
		}
	}
	return nil
}

func queryCmdOccurrences(ctx context.Context, store *storage.Store, args []string, globals GlobalFlags) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: cie query occurrences <node-id>")
	}
	id, err := parseNodeID(args[0])
	if err != nil {
		return err
	}
	occs, err := store.GetOccurrencesForNode(ctx, id)
	if err != nil {
		return fmt.Errorf("query occurrences: %w", err)
	}
	if globals.JSON {
		return printJSON(occs)
	}
	for _, o := range occs {
		fmt.Printf("line %d\n", o.Line)
	}
	return nil
}

func renderNodes(nodes []graph.Node, globals GlobalFlags) error {
	if globals.JSON {
		return printJSON(nodes)
	}
	for _, n := range nodes {
		fmt.Printf("%016x  %-10s  %s\n", uint64(n.ID), n.Kind, n.SerializedName)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseNodeID(s string) (graph.NodeID, error) {
	if s == "" {
		return 0, fmt.Errorf("missing --focus/node-id")
	}
	v, err := strconv.ParseUint(trimHexPrefix(s), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q: %w", s, err)
	}
	return graph.NodeID(v), nil
}

func trimHexPrefix(s string) string {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func parseTrailMode(s string) storage.TrailMode {
	switch s {
	case "neighborhood":
		return storage.TrailModeNeighborhood
	case "all_referencing":
		return storage.TrailModeAllReferencing
	case "to_target_symbol":
		return storage.TrailModeToTargetSymbol
	default:
		return storage.TrailModeAllReferenced
	}
}

func parseDirection(s string) storage.Direction {
	switch s {
	case "outgoing":
		return storage.DirectionOutgoing
	case "incoming":
		return storage.DirectionIncoming
	default:
		return storage.DirectionBoth
	}
}
