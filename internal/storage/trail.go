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

package storage

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kraklabs/codeintel/internal/graph"
)

// TrailMode selects the traversal strategy (§4.4).
type TrailMode int

const (
	TrailModeNeighborhood TrailMode = iota
	TrailModeAllReferenced
	TrailModeAllReferencing
	TrailModeToTargetSymbol
)

var trailModeNames = [...]string{"neighborhood", "all_referenced", "all_referencing", "to_target_symbol"}

// String renders the mode name used in logging and metrics labels.
func (m TrailMode) String() string {
	if int(m) < 0 || int(m) >= len(trailModeNames) {
		return "unknown"
	}
	return trailModeNames[m]
}

// Direction selects which edge endpoint role counts as "outgoing".
type Direction int

const (
	DirectionOutgoing Direction = iota
	DirectionIncoming
	DirectionBoth
)

// CallerScope filters CALL edges by whether their file looks like test
// code.
type CallerScope int

const (
	CallerScopeProductionOnly CallerScope = iota
	CallerScopeIncludeTestsAndBenches
)

// TrailConfig configures a trail query.
type TrailConfig struct {
	RootID          graph.NodeID
	TargetID        graph.NodeID
	HasTarget       bool
	Mode            TrailMode
	Depth           int // 0 means unbounded, capped by MaxNodes
	Direction       Direction
	CallerScope     CallerScope
	EdgeFilter      map[graph.EdgeKind]bool
	NodeFilter      map[graph.NodeKind]bool
	ShowUtilityCalls bool
	MaxNodes        int
}

// TrailResult is the bounded subgraph produced by a trail query.
type TrailResult struct {
	Nodes     []graph.Node
	Edges     []graph.Edge
	Truncated bool
}

// commonUnqualifiedCallNames mirrors the enumerated
// is_common_unqualified_call_name set (§4.4): short, generic method
// names that low-confidence resolution frequently mis-targets.
var commonUnqualifiedCallNames = map[string]bool{
	"iter": true, "map": true, "push": true, "get": true, "set": true,
	"add": true, "remove": true, "len": true, "next": true, "clone": true,
	"new": true, "collect": true, "filter": true, "into": true, "unwrap": true,
	"to_string": true, "String": true,
}

var testPathPattern = regexp.MustCompile(`(?i)(^|/)(tests?|benches?)(/|$)|_test\.|\.test\.|_spec\.`)

// isLowConfidenceResolutionNamed implements §4.4's suppression rule: a
// resolved CALL is treated as unreliable when confidence<=0.4, or when
// confidence<=0.6 and the target name is a common unqualified call.
func isLowConfidenceResolutionNamed(e graph.Edge, targetName string) bool {
	if e.Kind != graph.EdgeKindCall || !e.HasResolvedTgt || !e.HasConfidence {
		return false
	}
	if e.Confidence <= 0.4 {
		return true
	}
	if e.Confidence <= 0.6 && commonUnqualifiedCallNames[targetName] {
		return true
	}
	return false
}

// GetTrail runs a bounded BFS (or shortest-path search for
// ToTargetSymbol) per §4.4.
func (s *Store) GetTrail(ctx context.Context, cfg TrailConfig) (TrailResult, error) {
	if err := checkContext(ctx); err != nil {
		return TrailResult{}, err
	}
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = 1000
	}

	allEdges, err := s.GetEdges(ctx)
	if err != nil {
		return TrailResult{}, err
	}
	nameByID := make(map[graph.NodeID]string)
	if nodes, err := s.GetNodes(ctx); err == nil {
		for _, n := range nodes {
			nameByID[n.ID] = n.SerializedName
		}
	}
	pathByFileNode, err := s.filePathsByNodeID(ctx)
	if err != nil {
		return TrailResult{}, err
	}

	direction := cfg.Direction
	switch cfg.Mode {
	case TrailModeAllReferenced:
		direction = DirectionOutgoing
	case TrailModeAllReferencing:
		direction = DirectionIncoming
	}

	g := newTrailGraph(allEdges, nameByID, pathByFileNode, cfg, direction)

	if cfg.Mode == TrailModeToTargetSymbol {
		if !cfg.HasTarget {
			return TrailResult{}, fmt.Errorf("storage: ToTargetSymbol mode requires a target id")
		}
		return s.shortestPathTrail(ctx, g, cfg)
	}
	return s.bfsTrail(ctx, g, cfg, direction)
}

// trailGraph is a pre-filtered adjacency view used by both BFS and
// shortest-path search.
type trailGraph struct {
	outEdges map[graph.NodeID][]graph.Edge // edges where n is the effective source
	inEdges  map[graph.NodeID][]graph.Edge // edges where n is the effective target
}

func newTrailGraph(all []graph.Edge, nameByID map[graph.NodeID]string, pathByFileNode map[graph.NodeID]string, cfg TrailConfig, direction Direction) *trailGraph {
	g := &trailGraph{outEdges: map[graph.NodeID][]graph.Edge{}, inEdges: map[graph.NodeID][]graph.Edge{}}
	for _, e := range all {
		if len(cfg.EdgeFilter) > 0 && !cfg.EdgeFilter[e.Kind] {
			continue
		}
		if cfg.CallerScope == CallerScopeProductionOnly && e.Kind == graph.EdgeKindCall && e.HasFile {
			if looksLikeTestPath(pathByFileNode[e.FileNodeID]) {
				continue
			}
		}
		src, tgt := e.EffectiveEndpoints()
		targetName := nameByID[tgt]
		// A low-confidence resolved CALL is never treated as the edge's
		// resolved_* pointer during traversal: effective_endpoints() above
		// already took resolved_target, so here we fall back to the raw
		// symbolic target instead, keeping the edge in the result while
		// preventing it from pointing at an unreliable resolution (§4.4,
		// testable property / scenario S4).
		if e.Kind == graph.EdgeKindCall && isLowConfidenceResolutionNamed(e, targetName) {
			tgt = e.Target
			e.HasResolvedTgt = false
		}
		if !cfg.ShowUtilityCalls && e.Kind == graph.EdgeKindCall && commonUnqualifiedCallNames[targetName] {
			continue
		}
		g.outEdges[src] = append(g.outEdges[src], e)
		g.inEdges[tgt] = append(g.inEdges[tgt], e)
	}
	return g
}

// filePathsByNodeID maps FILE-kind node ids to their recorded path, used
// to apply CallerScope filtering against the edge's owning file.
func (s *Store) filePathsByNodeID(ctx context.Context) (map[graph.NodeID]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.RunReadOnly(`?[id, path] := *file[id, path, language, mtime, indexed, complete, line_count]`, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: list file paths: %w", err)
	}
	out := make(map[graph.NodeID]string, len(rows.Rows))
	for _, r := range rows.Rows {
		id, err := asUint64(r[0])
		if err != nil {
			return nil, err
		}
		out[graph.NodeID(id)] = asString(r[1])
	}
	return out, nil
}

func (g *trailGraph) neighbors(n graph.NodeID, direction Direction) []graph.Edge {
	switch direction {
	case DirectionOutgoing:
		return g.outEdges[n]
	case DirectionIncoming:
		return g.inEdges[n]
	default:
		out := append([]graph.Edge{}, g.outEdges[n]...)
		out = append(out, g.inEdges[n]...)
		return out
	}
}

type bfsQueueItem struct {
	node  graph.NodeID
	depth int
}

func (s *Store) bfsTrail(ctx context.Context, g *trailGraph, cfg TrailConfig, direction Direction) (TrailResult, error) {
	visited := map[graph.NodeID]bool{cfg.RootID: true}
	var orderedNodes []graph.NodeID
	var resultEdges []graph.Edge
	seenEdge := map[graph.EdgeID]bool{}

	queue := []bfsQueueItem{{cfg.RootID, 0}}
	orderedNodes = append(orderedNodes, cfg.RootID)
	truncated := false

	for len(queue) > 0 {
		if err := checkContext(ctx); err != nil {
			return TrailResult{}, err
		}
		if len(orderedNodes) >= cfg.MaxNodes {
			truncated = true
			break
		}
		item := queue[0]
		queue = queue[1:]

		if cfg.Depth != 0 && item.depth >= cfg.Depth {
			continue
		}
		for _, e := range g.neighbors(item.node, direction) {
			src, tgt := e.EffectiveEndpoints()
			other := tgt
			if direction == DirectionIncoming {
				other = src
			} else if direction == DirectionBoth {
				if src == item.node {
					other = tgt
				} else {
					other = src
				}
			}
			if !seenEdge[e.ID] {
				seenEdge[e.ID] = true
				resultEdges = append(resultEdges, e)
			}
			if visited[other] {
				continue
			}
			visited[other] = true
			orderedNodes = append(orderedNodes, other)
			queue = append(queue, bfsQueueItem{other, item.depth + 1})
			if len(orderedNodes) >= cfg.MaxNodes {
				truncated = true
				break
			}
		}
		if truncated {
			break
		}
	}

	nodes, err := s.hydrateNodes(ctx, orderedNodes)
	if err != nil {
		return TrailResult{}, err
	}
	nodes, resultEdges = applyNodeFilter(nodes, resultEdges, cfg.NodeFilter)
	return TrailResult{Nodes: nodes, Edges: resultEdges, Truncated: truncated}, nil
}

// shortestPathTrail implements ToTargetSymbol mode: two bounded BFS
// passes (forward from root outgoing, reverse from target incoming),
// intersected to find on-path nodes, then a greedy descent extracts one
// concrete shortest path (§4.4).
func (s *Store) shortestPathTrail(ctx context.Context, g *trailGraph, cfg TrailConfig) (TrailResult, error) {
	nodeCap := cfg.MaxNodes * 4
	if nodeCap > 100000 || nodeCap <= 0 {
		nodeCap = 100000
	}

	forward := boundedDistances(g, cfg.RootID, DirectionOutgoing, cfg.Depth, nodeCap)
	backward := boundedDistances(g, cfg.TargetID, DirectionIncoming, cfg.Depth, nodeCap)

	type onPath struct {
		id   graph.NodeID
		df   int
		db   int
	}
	var candidates []onPath
	for id, df := range forward {
		if db, ok := backward[id]; ok {
			if cfg.Depth == 0 || df+db <= cfg.Depth {
				candidates = append(candidates, onPath{id, df, db})
			}
		}
	}

	if len(candidates) == 0 {
		nodes, err := s.hydrateNodes(ctx, []graph.NodeID{cfg.RootID, cfg.TargetID})
		if err != nil {
			return TrailResult{}, err
		}
		return TrailResult{Nodes: nodes, Edges: nil, Truncated: false}, nil
	}

	// Greedy descent from root, picking the neighbor minimizing
	// (d_backward, id).
	path := []graph.NodeID{cfg.RootID}
	var pathEdges []graph.Edge
	current := cfg.RootID
	for current != cfg.TargetID {
		edges := g.neighbors(current, DirectionOutgoing)
		var bestEdge *graph.Edge
		var bestNext graph.NodeID
		bestDB := -1
		for i := range edges {
			_, tgt := edges[i].EffectiveEndpoints()
			db, ok := backward[tgt]
			if !ok {
				continue
			}
			if bestDB == -1 || db < bestDB || (db == bestDB && tgt < bestNext) {
				bestDB = db
				bestNext = tgt
				bestEdge = &edges[i]
			}
		}
		if bestEdge == nil {
			break
		}
		pathEdges = append(pathEdges, *bestEdge)
		path = append(path, bestNext)
		current = bestNext
		if len(path) > nodeCap {
			break
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		si, sj := candidates[i], candidates[j]
		ti, tj := si.df+si.db, sj.df+sj.db
		if ti != tj {
			return ti < tj
		}
		if si.df != sj.df {
			return si.df < sj.df
		}
		return si.id < sj.id
	})

	onPathSet := make(map[graph.NodeID]bool, len(path))
	for _, id := range path {
		onPathSet[id] = true
	}
	ordered := append([]graph.NodeID{}, path...)
	for _, c := range candidates {
		if len(ordered) >= cfg.MaxNodes {
			break
		}
		if onPathSet[c.id] {
			continue
		}
		onPathSet[c.id] = true
		ordered = append(ordered, c.id)
	}

	// Include every edge on a root→target path within the depth budget.
	for id := range onPathSet {
		for _, e := range g.neighbors(id, DirectionOutgoing) {
			_, tgt := e.EffectiveEndpoints()
			if onPathSet[tgt] {
				pathEdges = appendIfMissing(pathEdges, e)
			}
		}
	}

	nodes, err := s.hydrateNodes(ctx, ordered)
	if err != nil {
		return TrailResult{}, err
	}
	nodes, pathEdges = applyNodeFilter(nodes, pathEdges, cfg.NodeFilter)
	return TrailResult{Nodes: nodes, Edges: pathEdges, Truncated: len(ordered) >= cfg.MaxNodes}, nil
}

func appendIfMissing(edges []graph.Edge, e graph.Edge) []graph.Edge {
	for _, existing := range edges {
		if existing.ID == e.ID {
			return edges
		}
	}
	return append(edges, e)
}

// boundedDistances runs a bounded BFS recording shortest hop distance from
// root in the given direction, capped by depth (0 = unbounded) and by
// nodeCap total nodes explored.
func boundedDistances(g *trailGraph, root graph.NodeID, direction Direction, depth, nodeCap int) map[graph.NodeID]int {
	dist := map[graph.NodeID]int{root: 0}
	queue := []bfsQueueItem{{root, 0}}
	for len(queue) > 0 {
		if len(dist) >= nodeCap {
			break
		}
		item := queue[0]
		queue = queue[1:]
		if depth != 0 && item.depth >= depth {
			continue
		}
		for _, e := range g.neighbors(item.node, direction) {
			src, tgt := e.EffectiveEndpoints()
			other := tgt
			if direction == DirectionIncoming {
				other = src
			}
			if _, ok := dist[other]; ok {
				continue
			}
			dist[other] = item.depth + 1
			queue = append(queue, bfsQueueItem{other, item.depth + 1})
			if len(dist) >= nodeCap {
				break
			}
		}
	}
	return dist
}

func (s *Store) hydrateNodes(ctx context.Context, ids []graph.NodeID) ([]graph.Node, error) {
	out := make([]graph.Node, 0, len(ids))
	for _, id := range ids {
		n, ok, err := s.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// applyNodeFilter keeps only nodes whose kind is in filter and only edges
// whose two effective endpoints are both kept. Nodes are filtered by kind
// alone: the root and target are dropped like any other node when their
// kind is not in filter.
func applyNodeFilter(nodes []graph.Node, edges []graph.Edge, filter map[graph.NodeKind]bool) ([]graph.Node, []graph.Edge) {
	if len(filter) == 0 {
		return nodes, edges
	}
	kept := map[graph.NodeID]bool{}
	var outNodes []graph.Node
	for _, n := range nodes {
		if filter[n.Kind] {
			kept[n.ID] = true
			outNodes = append(outNodes, n)
		}
	}
	var outEdges []graph.Edge
	for _, e := range edges {
		src, tgt := e.EffectiveEndpoints()
		if kept[src] && kept[tgt] {
			outEdges = append(outEdges, e)
		}
	}
	return outNodes, outEdges
}

// looksLikeTestPath reports whether a file path suggests test/bench code,
// per language convention, for CallerScope filtering.
func looksLikeTestPath(path string) bool {
	return testPathPattern.MatchString(strings.ToLower(path))
}
