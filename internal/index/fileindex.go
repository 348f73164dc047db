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

// Package index implements the per-file indexer (§4.1) and the workspace
// indexer that fans it out in parallel, batches results into storage, and
// drives the resolution pass (§4.2).
package index

import (
	"bytes"
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/kraklabs/codeintel/internal/graph"
	"github.com/kraklabs/codeintel/internal/parse"
	"github.com/kraklabs/codeintel/internal/resolve"
)

// IndexResult is the per-file indexer's output: the symbolic elements
// extracted from a single file, plus any diagnostics encountered along
// the way. A failing file never aborts the workspace pass (§4.1).
type IndexResult struct {
	Nodes       []graph.Node
	Edges       []graph.Edge
	Occurrences []graph.Occurrence
	Errors      []graph.ErrorRecord
}

// FileInput is the per-file indexer's input (§4.1): a path, its text, and
// the grammar driver to parse it with. The shared symbol table is seeded
// as a side effect of IndexFile so the resolution pass can see every
// workspace file's declarations once indexing completes.
type FileInput struct {
	Path     string
	Source   []byte
	Driver   parse.Driver
	Language string
}

// IndexFile runs the full per-file indexing algorithm (§4.1 steps 1-9) and
// seeds symtab with every emitted node's (id, kind) pair.
func IndexFile(ctx context.Context, in FileInput, symtab *resolve.SymbolTable) IndexResult {
	lineCount := bytes.Count(in.Source, []byte("\n")) + 1

	fileID := graph.NewNodeID(graph.FileCanonicalID(in.Path))
	fileNode := graph.Node{
		ID:             fileID,
		Kind:           graph.NodeKindFile,
		SerializedName: in.Path,
		QualifiedName:  in.Path,
		CanonicalID:    graph.FileCanonicalID(in.Path),
		FileNodeID:     fileID,
		HasFile:        true,
		Span:           graph.Span{StartLine: 1, EndLine: maxInt(1, lineCount)},
		HasSpan:        true,
	}

	result := IndexResult{Nodes: []graph.Node{fileNode}}

	dsl, err := in.Driver.Parse(ctx, in.Path, in.Source)
	if err != nil {
		result.Errors = append(result.Errors, graph.ErrorRecord{
			Message: err.Error(),
			FileID:  fileID,
			HasFile: true,
			IsFatal: false,
			Step:    graph.ErrorStepIndexing,
		})
		if symtab != nil {
			symtab.Seed(result.Nodes)
		}
		return result
	}

	byName := make(map[string]graph.NodeID, len(dsl.Nodes))

	for _, gn := range dsl.Nodes {
		kind, kerr := graph.ParseNodeKind(gn.Kind)
		if kerr != nil {
			result.Errors = append(result.Errors, graph.ErrorRecord{
				Message: kerr.Error(),
				FileID:  fileID,
				HasFile: true,
				Line:    gn.StartRow + 1,
				HasPos:  true,
				Step:    graph.ErrorStepIndexing,
			})
			continue
		}
		id := graph.NewNodeID(graph.ProvisionalCanonicalID(in.Path, gn.Name, gn.StartRow+1))
		n := graph.Node{
			ID:             id,
			Kind:           kind,
			SerializedName: gn.Name,
			QualifiedName:  gn.Name,
			CanonicalID:    graph.ProvisionalCanonicalID(in.Path, gn.Name, gn.StartRow+1),
			FileNodeID:     fileID,
			HasFile:        true,
			Span: graph.Span{
				StartLine: gn.StartRow + 1,
				StartCol:  gn.StartCol,
				EndLine:   gn.EndRow + 1,
				EndCol:    gn.EndCol,
			},
			HasSpan: true,
		}
		result.Nodes = append(result.Nodes, n)
		byName[gn.Name] = id
	}

	placeholders := make(map[string]graph.Node)

	dedupEdges := make(map[string]bool)
	for _, ge := range dsl.Edges {
		kind, kerr := graph.ParseEdgeKind(ge.Kind)
		if kerr != nil {
			continue
		}
		srcID, ok := byName[ge.SourceRef]
		if !ok && ge.SourceRef == "" && kind == graph.EdgeKindImport {
			// A file-level import has no enclosing declaration; it is
			// owned by the file node itself.
			srcID, ok = fileID, true
		}
		if !ok {
			continue
		}
		tgtID, ok := byName[ge.TargetRef]
		if !ok {
			// The reference points outside this file (stdlib call,
			// cross-file symbol, external package): materialize an
			// UNKNOWN-kind placeholder the resolution pass can later
			// link to a real definition (§4.5).
			tgtID = unknownPlaceholderID(ge.TargetRef)
			if _, exists := placeholders[ge.TargetRef]; !exists {
				placeholders[ge.TargetRef] = graph.Node{
					ID:             tgtID,
					Kind:           graph.NodeKindUnknown,
					SerializedName: ge.TargetRef,
					QualifiedName:  ge.TargetRef,
					CanonicalID:    "unknown:" + ge.TargetRef,
				}
			}
		}
		key := edgeDedupKey(srcID, tgtID, kind)
		if dedupEdges[key] {
			continue
		}
		dedupEdges[key] = true
		e := graph.Edge{
			ID:         graph.NewEdgeID(srcID, tgtID, kind),
			Source:     srcID,
			Target:     tgtID,
			Kind:       kind,
			FileNodeID: fileID,
			HasFile:    true,
		}
		if ge.Line > 0 {
			e.Line = ge.Line
			e.HasLine = true
		}
		result.Edges = append(result.Edges, e)
	}

	for _, n := range result.Nodes {
		if !n.HasSpan {
			continue
		}
		result.Occurrences = append(result.Occurrences, graph.Occurrence{
			ElementID:  n.ID,
			Kind:       graph.OccurrenceKindDefinition,
			FileNodeID: fileID,
			Span:       n.Span,
		})
	}

	assignQualifiedNames(result.Nodes, result.Edges, in.Language)
	result.Nodes, result.Edges, result.Occurrences = canonicalize(in.Path, result.Nodes, result.Edges, result.Occurrences)
	result.Edges = attributeCallsToEnclosingFunction(result.Nodes, result.Edges)

	for _, p := range placeholders {
		result.Nodes = append(result.Nodes, p)
	}

	if symtab != nil {
		symtab.Seed(result.Nodes)
	}
	return result
}

// unknownPlaceholderID derives the stable id for an UNKNOWN-kind stand-in
// node for a reference the per-file indexer could not resolve locally
// (an external call, a stdlib import, a forward reference to another
// file). It is keyed by name alone, independent of any file, so every
// file referencing the same unresolved name converges on one placeholder
// for the resolution pass to fill in (§4.5).
func unknownPlaceholderID(name string) graph.NodeID {
	return graph.NewNodeID("unknown:" + name)
}

func edgeDedupKey(source, target graph.NodeID, kind graph.EdgeKind) string {
	var b strings.Builder
	b.Grow(40)
	b.WriteString(strconv.FormatUint(uint64(source), 10))
	b.WriteByte('\x00')
	b.WriteString(strconv.FormatUint(uint64(target), 10))
	b.WriteByte('\x00')
	b.WriteString(kind.String())
	return b.String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// assignQualifiedNames implements step 6: a DFS over MEMBER edges from
// every root (a node with no incoming MEMBER edge), setting each node's
// QualifiedName to the dotted/double-colon join of the SerializedNames on
// its path. SerializedName itself is left unchanged.
func assignQualifiedNames(nodes []graph.Node, edges []graph.Edge, language string) {
	delim := qualifiedNameDelimiter(language)

	byID := make(map[graph.NodeID]*graph.Node, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}

	children := make(map[graph.NodeID][]graph.NodeID)
	hasIncomingMember := make(map[graph.NodeID]bool)
	for _, e := range edges {
		if e.Kind != graph.EdgeKindMember {
			continue
		}
		children[e.Source] = append(children[e.Source], e.Target)
		hasIncomingMember[e.Target] = true
	}

	var roots []graph.NodeID
	for _, n := range nodes {
		if n.Kind == graph.NodeKindFile {
			continue
		}
		if !hasIncomingMember[n.ID] {
			roots = append(roots, n.ID)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	visited := make(map[graph.NodeID]bool)
	var visit func(id graph.NodeID, qualified string)
	visit = func(id graph.NodeID, qualified string) {
		if visited[id] {
			return
		}
		visited[id] = true
		n, ok := byID[id]
		if ok {
			n.QualifiedName = qualified
		}
		kids := append([]graph.NodeID(nil), children[id]...)
		sort.Slice(kids, func(i, j int) bool { return kids[i] < kids[j] })
		for _, c := range kids {
			child, ok := byID[c]
			if !ok {
				continue
			}
			visit(c, qualified+delim+child.SerializedName)
		}
	}
	for _, r := range roots {
		root, ok := byID[r]
		if !ok {
			continue
		}
		visit(r, root.SerializedName)
	}
}

// qualifiedNameDelimiter returns the joiner used by assignQualifiedNames,
// per §4.1 step 6.
func qualifiedNameDelimiter(language string) string {
	switch language {
	case "rust", "c", "cpp", "c++":
		return "::"
	default:
		return "."
	}
}

// attributeCallsToEnclosingFunction implements step 8: CALL edges are
// retargeted from the file-level placeholder source to the smallest
// enclosing FUNCTION/METHOD/MACRO whose span contains the call line.
func attributeCallsToEnclosingFunction(nodes []graph.Node, edges []graph.Edge) []graph.Edge {
	byFile := make(map[graph.NodeID][]graph.Node)
	for _, n := range nodes {
		if !isCallable(n.Kind) || !n.HasSpan {
			continue
		}
		byFile[n.FileNodeID] = append(byFile[n.FileNodeID], n)
	}
	for fileID := range byFile {
		fns := byFile[fileID]
		sort.Slice(fns, func(i, j int) bool { return fns[i].Span.Width() < fns[j].Span.Width() })
		byFile[fileID] = fns
	}

	seen := make(map[string]bool, len(edges))
	out := make([]graph.Edge, 0, len(edges))
	for _, e := range edges {
		if e.Kind != graph.EdgeKindCall || !e.HasLine {
			out = appendDeduped(out, seen, e)
			continue
		}
		fns := byFile[e.FileNodeID]
		var enclosing *graph.Node
		for i := range fns {
			if fns[i].Span.Contains(e.Line) {
				enclosing = &fns[i]
				break
			}
		}
		if enclosing != nil && enclosing.ID != e.Source {
			e.Source = enclosing.ID
			e.ID = graph.NewEdgeID(e.Source, e.Target, e.Kind)
		}
		out = appendDeduped(out, seen, e)
	}
	return out
}

func appendDeduped(out []graph.Edge, seen map[string]bool, e graph.Edge) []graph.Edge {
	key := edgeDedupKey(e.Source, e.Target, e.Kind)
	if seen[key] {
		return out
	}
	seen[key] = true
	return append(out, e)
}

func isCallable(k graph.NodeKind) bool {
	return k == graph.NodeKindFunction || k == graph.NodeKindMethod || k == graph.NodeKindMacro
}
