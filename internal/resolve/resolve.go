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

// Package resolve implements the post-indexing resolution pass (§4.5): a
// shared symbol table plus a scored cross-edge linker that fills in
// resolved_target/certainty/confidence on CALL/IMPORT/MACRO_USAGE edges
// whose target is still an UNKNOWN-kind placeholder.
package resolve

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kraklabs/codeintel/internal/graph"
	"github.com/kraklabs/codeintel/internal/metrics"
	"github.com/kraklabs/codeintel/internal/storage"
)

// SymbolTable is the shared, write-through `(id, kind)` index seeded
// during indexing and consulted by the resolver (§4.1 step 9, §9 Design
// Notes "global mutable state").
type SymbolTable struct {
	mu     sync.RWMutex
	byKind map[graph.NodeID]graph.NodeKind
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{byKind: make(map[graph.NodeID]graph.NodeKind)}
}

// Seed records (id, kind) for every node, overwriting any prior entry.
func (t *SymbolTable) Seed(nodes []graph.Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, n := range nodes {
		t.byKind[n.ID] = n.Kind
	}
}

// Kind looks up a previously seeded node's kind.
func (t *SymbolTable) Kind(id graph.NodeID) (graph.NodeKind, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	k, ok := t.byKind[id]
	return k, ok
}

// Len reports the number of distinct ids currently seeded. The resolver's
// fuzzy-fallback corpus gate counts the nodes read from storage, not this
// table.
func (t *SymbolTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byKind)
}

// minFuzzyCandidateCorpus gates the fuzzy single-candidate fallback
// (§4.5 step 2, last bullet) so a tiny workspace doesn't spuriously
// resolve every unqualified call to its one and only function. Open
// Question decision, see DESIGN.md.
const minFuzzyCandidateCorpus = 25

// Summary reports what a resolution run did.
type Summary struct {
	EdgesConsidered int
	EdgesResolved   int
	EdgesAmbiguous  int
}

// Resolver runs the scored resolution pass against a Store.
type Resolver struct {
	store   *storage.Store
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// New returns a Resolver bound to store. rec may be nil (no metrics
// recorded).
func New(store *storage.Store, logger *slog.Logger, rec *metrics.Recorder) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, logger: logger, metrics: rec}
}

// compatibleKinds returns the node kinds a placeholder target of this
// edge kind may resolve to.
func compatibleKinds(k graph.EdgeKind) map[graph.NodeKind]bool {
	switch k {
	case graph.EdgeKindCall:
		return map[graph.NodeKind]bool{graph.NodeKindFunction: true, graph.NodeKindMethod: true, graph.NodeKindMacro: true}
	case graph.EdgeKindImport:
		return map[graph.NodeKind]bool{graph.NodeKindModule: true, graph.NodeKindPackage: true, graph.NodeKindNamespace: true, graph.NodeKindFile: true}
	case graph.EdgeKindMacroUsage:
		return map[graph.NodeKind]bool{graph.NodeKindMacro: true}
	default:
		return nil
	}
}

// candidateIndex groups resolvable target nodes by name for fast lookup.
type candidateIndex struct {
	byQualifiedName  map[string][]graph.Node
	bySerializedName map[string][]graph.Node
	fileOfNode       map[graph.NodeID]graph.NodeID
	packagePrefix    map[graph.NodeID]string // node id -> directory of its owning file
}

func buildCandidateIndex(nodes []graph.Node) *candidateIndex {
	idx := &candidateIndex{
		byQualifiedName:  make(map[string][]graph.Node),
		bySerializedName: make(map[string][]graph.Node),
		fileOfNode:       make(map[graph.NodeID]graph.NodeID),
		packagePrefix:    make(map[graph.NodeID]string),
	}
	pathByFile := make(map[graph.NodeID]string)
	for _, n := range nodes {
		if n.Kind == graph.NodeKindFile {
			pathByFile[n.ID] = n.QualifiedName
		}
	}
	for _, n := range nodes {
		idx.byQualifiedName[n.QualifiedName] = append(idx.byQualifiedName[n.QualifiedName], n)
		idx.bySerializedName[n.SerializedName] = append(idx.bySerializedName[n.SerializedName], n)
		if n.HasFile {
			idx.fileOfNode[n.ID] = n.FileNodeID
			if p, ok := pathByFile[n.FileNodeID]; ok {
				idx.packagePrefix[n.ID] = filepath.Dir(p)
			}
		}
	}
	return idx
}

func filterByKind(nodes []graph.Node, allowed map[graph.NodeKind]bool) []graph.Node {
	if len(allowed) == 0 {
		return nodes
	}
	out := make([]graph.Node, 0, len(nodes))
	for _, n := range nodes {
		if allowed[n.Kind] {
			out = append(out, n)
		}
	}
	return out
}

// Run scans every Resolvable edge whose target is still an
// UNKNOWN-kind placeholder, scores candidate definitions per §4.5, and
// writes resolved_target/certainty/confidence back through the store.
func (r *Resolver) Run(ctx context.Context) (Summary, error) {
	nodes, err := r.store.GetNodes(ctx)
	if err != nil {
		return Summary{}, err
	}
	edges, err := r.store.GetEdges(ctx)
	if err != nil {
		return Summary{}, err
	}

	nodeByID := make(map[graph.NodeID]graph.Node, len(nodes))
	for _, n := range nodes {
		nodeByID[n.ID] = n
	}
	idx := buildCandidateIndex(nodes)
	corpusSize := len(nodes)

	var summary Summary
	var resolved []graph.Edge

	for _, e := range edges {
		if !e.Kind.Resolvable() || e.HasResolvedTgt {
			continue
		}
		placeholder, ok := nodeByID[e.Target]
		if !ok || placeholder.Kind != graph.NodeKindUnknown {
			continue
		}
		summary.EdgesConsidered++

		allowed := compatibleKinds(e.Kind)
		name := placeholder.SerializedName

		qualified := filterByKind(idx.byQualifiedName[name], allowed)
		if len(qualified) == 1 {
			resolved = append(resolved, applyResolution(e, qualified[0].ID, graph.CertaintyCertain, 1.0, nil))
			summary.EdgesResolved++
			continue
		}

		sameNameCandidates := filterByKind(idx.bySerializedName[name], allowed)
		if len(sameNameCandidates) == 0 {
			continue
		}

		sourceFile := e.FileNodeID
		sourcePkg := ""
		if src, ok := nodeByID[e.Source]; ok && src.HasFile {
			sourceFile = src.FileNodeID
			if p, ok := idx.packagePrefix[src.ID]; ok {
				sourcePkg = p
			}
		}

		var sameScope []graph.Node
		for _, c := range sameNameCandidates {
			if c.HasFile && c.FileNodeID == sourceFile {
				sameScope = append(sameScope, c)
				continue
			}
			if sourcePkg != "" && idx.packagePrefix[c.ID] == sourcePkg {
				sameScope = append(sameScope, c)
			}
		}
		if len(sameScope) == 1 {
			resolved = append(resolved, applyResolution(e, sameScope[0].ID, graph.CertaintyProbable, 0.7, nil))
			summary.EdgesResolved++
			continue
		}

		if len(sameNameCandidates) > 1 {
			candidates := candidateIDs(sameNameCandidates)
			target := candidates[0]
			if len(sameScope) > 0 {
				target = sameScope[0].ID
			}
			resolved = append(resolved, applyResolution(e, target, graph.CertaintyProbable, 0.6, candidates))
			summary.EdgesResolved++
			summary.EdgesAmbiguous++
			continue
		}

		if len(sameNameCandidates) == 1 && corpusSize >= minFuzzyCandidateCorpus {
			resolved = append(resolved, applyResolution(e, sameNameCandidates[0].ID, graph.CertaintyUncertain, 0.4, nil))
			summary.EdgesResolved++
		}
	}

	if len(resolved) > 0 {
		if err := r.store.InsertEdgesBatch(ctx, resolved); err != nil {
			return summary, err
		}
	}
	r.metrics.ObserveResolutionPass(summary.EdgesConsidered, summary.EdgesResolved)
	r.logger.Info("resolve.run.complete",
		"considered", summary.EdgesConsidered,
		"resolved", summary.EdgesResolved,
		"ambiguous", summary.EdgesAmbiguous)
	return summary, nil
}

func applyResolution(e graph.Edge, target graph.NodeID, certainty graph.Certainty, confidence float64, candidates []graph.NodeID) graph.Edge {
	e.ResolvedTarget = target
	e.HasResolvedTgt = true
	e.Certainty = certainty
	e.Confidence = confidence
	e.HasConfidence = true
	e.CandidateTargets = candidates
	return e
}

func candidateIDs(nodes []graph.Node) []graph.NodeID {
	ids := make([]graph.NodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
