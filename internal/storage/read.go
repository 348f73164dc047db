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

	"github.com/kraklabs/codeintel/internal/graph"
)

// GetNode returns a node by id, consulting the cache before falling back
// to a storage row (§4.3 read API; §9 "write-through cache" design note).
func (s *Store) GetNode(ctx context.Context, id graph.NodeID) (graph.Node, bool, error) {
	if err := checkContext(ctx); err != nil {
		return graph.Node{}, false, err
	}

	s.cacheMu.RLock()
	n, ok := s.cache[id]
	s.cacheMu.RUnlock()
	if ok {
		return n, true, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.RunReadOnly(`?[id, kind, serialized_name, qualified_name, canonical_id, file_node_id, start_line, start_col, end_line, end_col] := *node[id, kind, serialized_name, qualified_name, canonical_id, file_node_id, start_line, start_col, end_line, end_col], id == $id`, map[string]any{"id": uint64(id)})
	if err != nil {
		return graph.Node{}, false, fmt.Errorf("storage: get node: %w", err)
	}
	if len(rows.Rows) == 0 {
		return graph.Node{}, false, nil
	}
	n, err = nodeFromRow(rows.Rows[0])
	if err != nil {
		return graph.Node{}, false, err
	}

	s.cacheMu.Lock()
	s.cache[id] = n
	s.cacheMu.Unlock()
	return n, true, nil
}

// GetNodes performs a full scan, for bulk consumers (search indexer,
// metrics).
func (s *Store) GetNodes(ctx context.Context) ([]graph.Node, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.RunReadOnly(`?[id, kind, serialized_name, qualified_name, canonical_id, file_node_id, start_line, start_col, end_line, end_col] := *node[id, kind, serialized_name, qualified_name, canonical_id, file_node_id, start_line, start_col, end_line, end_col]`, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: get nodes: %w", err)
	}
	out := make([]graph.Node, 0, len(rows.Rows))
	for _, r := range rows.Rows {
		n, err := nodeFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// GetEdges performs a full scan.
func (s *Store) GetEdges(ctx context.Context) ([]graph.Edge, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.RunReadOnly(`?[id, source_node_id, target_node_id, kind, file_node_id, line, resolved_source_node_id, resolved_target_node_id, confidence, certainty, candidate_targets] := *edge[id, source_node_id, target_node_id, kind, file_node_id, line, resolved_source_node_id, resolved_target_node_id, confidence, certainty, candidate_targets]`, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: get edges: %w", err)
	}
	out := make([]graph.Edge, 0, len(rows.Rows))
	for _, r := range rows.Rows {
		e, err := edgeFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// GetOccurrences performs a full scan.
func (s *Store) GetOccurrences(ctx context.Context) ([]graph.Occurrence, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.RunReadOnly(`?[element_id, file_node_id, start_line, start_col, end_line, end_col, kind] := *occurrence[element_id, file_node_id, start_line, start_col, end_line, end_col, kind]`, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: get occurrences: %w", err)
	}
	return occurrencesFromRows(rows.Rows)
}

// GetOccurrencesForNode returns all occurrences whose element_id matches.
func (s *Store) GetOccurrencesForNode(ctx context.Context, id graph.NodeID) ([]graph.Occurrence, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.RunReadOnly(`?[element_id, file_node_id, start_line, start_col, end_line, end_col, kind] := *occurrence[element_id, file_node_id, start_line, start_col, end_line, end_col, kind], element_id == $id`, map[string]any{"id": uint64(id)})
	if err != nil {
		return nil, fmt.Errorf("storage: get occurrences for node: %w", err)
	}
	return occurrencesFromRows(rows.Rows)
}

// GetOccurrencesForFile returns all occurrences whose file_node_id matches.
func (s *Store) GetOccurrencesForFile(ctx context.Context, fileID graph.NodeID) ([]graph.Occurrence, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.RunReadOnly(`?[element_id, file_node_id, start_line, start_col, end_line, end_col, kind] := *occurrence[element_id, file_node_id, start_line, start_col, end_line, end_col, kind], file_node_id == $id`, map[string]any{"id": uint64(fileID)})
	if err != nil {
		return nil, fmt.Errorf("storage: get occurrences for file: %w", err)
	}
	return occurrencesFromRows(rows.Rows)
}

// Neighborhood is the center node plus its directly incident edges and
// the set of their other endpoints (§4.3 get_neighborhood).
type Neighborhood struct {
	Center graph.Node
	Nodes  []graph.Node
	Edges  []graph.Edge
}

// GetNeighborhood returns the center plus its directly incident edges.
func (s *Store) GetNeighborhood(ctx context.Context, center graph.NodeID) (Neighborhood, error) {
	if err := checkContext(ctx); err != nil {
		return Neighborhood{}, err
	}
	centerNode, ok, err := s.GetNode(ctx, center)
	if err != nil {
		return Neighborhood{}, err
	}
	if !ok {
		return Neighborhood{}, fmt.Errorf("storage: get neighborhood: node %d not found", uint64(center))
	}

	allEdges, err := s.edgesIncident(ctx, center)
	if err != nil {
		return Neighborhood{}, err
	}

	seen := map[graph.NodeID]bool{center: true}
	nodes := []graph.Node{centerNode}
	for _, e := range allEdges {
		src, tgt := e.EffectiveEndpoints()
		for _, other := range []graph.NodeID{src, tgt} {
			if other == center || seen[other] {
				continue
			}
			seen[other] = true
			n, ok, err := s.GetNode(ctx, other)
			if err != nil {
				return Neighborhood{}, err
			}
			if ok {
				nodes = append(nodes, n)
			}
		}
	}

	return Neighborhood{Center: centerNode, Nodes: nodes, Edges: allEdges}, nil
}

// edgesIncident returns every edge touching n as source, target, resolved
// source, or resolved target (used by neighborhood and trail queries).
func (s *Store) edgesIncident(ctx context.Context, n graph.NodeID) ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.RunReadOnly(`?[id, source_node_id, target_node_id, kind, file_node_id, line, resolved_source_node_id, resolved_target_node_id, confidence, certainty, candidate_targets] :=
		*edge[id, source_node_id, target_node_id, kind, file_node_id, line, resolved_source_node_id, resolved_target_node_id, confidence, certainty, candidate_targets],
		(source_node_id == $n or target_node_id == $n or resolved_source_node_id == $n or resolved_target_node_id == $n)`, map[string]any{"n": uint64(n)})
	if err != nil {
		return nil, fmt.Errorf("storage: edges incident: %w", err)
	}
	out := make([]graph.Edge, 0, len(rows.Rows))
	for _, r := range rows.Rows {
		e, err := edgeFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// SearchNodes finds nodes whose serialized or qualified name matches
// namePattern (a Go regexp, case-insensitively), optionally narrowed to the
// given kinds. Mirrors the teacher's FindFunction/FindType regex_matches
// convention, adapted to the flatter node-relation schema (§4.3).
func (s *Store) SearchNodes(ctx context.Context, namePattern string, kinds []graph.NodeKind, limit int) ([]graph.Node, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	script := fmt.Sprintf(
		`?[id, kind, serialized_name, qualified_name, canonical_id, file_node_id, start_line, start_col, end_line, end_col] :=
			*node[id, kind, serialized_name, qualified_name, canonical_id, file_node_id, start_line, start_col, end_line, end_col],
			(regex_matches(serialized_name, %q) or regex_matches(qualified_name, %q))
		:limit %d`,
		"(?i)"+namePattern, "(?i)"+namePattern, limit)

	s.mu.RLock()
	rows, err := s.db.RunReadOnly(script, nil)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("storage: search nodes: %w", err)
	}

	var kindFilter map[string]bool
	if len(kinds) > 0 {
		kindFilter = make(map[string]bool, len(kinds))
		for _, k := range kinds {
			kindFilter[k.String()] = true
		}
	}

	out := make([]graph.Node, 0, len(rows.Rows))
	for _, r := range rows.Rows {
		n, err := nodeFromRow(r)
		if err != nil {
			return nil, err
		}
		if kindFilter != nil && !kindFilter[n.Kind.String()] {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// GetFilePath resolves a FILE node id to its indexed path, for citation and
// trace formatting (§4.3).
func (s *Store) GetFilePath(ctx context.Context, fileID graph.NodeID) (string, bool, error) {
	if err := checkContext(ctx); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.RunReadOnly(`?[path] := *file[id, path, language, mtime, indexed, complete, line_count], id == $id`, map[string]any{"id": uint64(fileID)})
	if err != nil {
		return "", false, fmt.Errorf("storage: get file path: %w", err)
	}
	if len(rows.Rows) == 0 {
		return "", false, nil
	}
	return asString(rows.Rows[0][0]), true, nil
}

// GetRootSymbols returns nodes with no incoming MEMBER edge, for tree
// navigation.
func (s *Store) GetRootSymbols(ctx context.Context) ([]graph.Node, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	nodes, err := s.GetNodes(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := s.GetEdges(ctx)
	if err != nil {
		return nil, err
	}
	hasParent := make(map[graph.NodeID]bool)
	for _, e := range edges {
		if e.Kind == graph.EdgeKindMember {
			hasParent[e.Target] = true
		}
	}
	var roots []graph.Node
	for _, n := range nodes {
		if !hasParent[n.ID] {
			roots = append(roots, n)
		}
	}
	return roots, nil
}

// GetChildrenSymbols returns the nodes that parent hosts via outgoing
// MEMBER edges.
func (s *Store) GetChildrenSymbols(ctx context.Context, parent graph.NodeID) ([]graph.Node, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	edges, err := s.edgesIncident(ctx, parent)
	if err != nil {
		return nil, err
	}
	var children []graph.Node
	for _, e := range edges {
		if e.Kind != graph.EdgeKindMember || e.Source != parent {
			continue
		}
		n, ok, err := s.GetNode(ctx, e.Target)
		if err != nil {
			return nil, err
		}
		if ok {
			children = append(children, n)
		}
	}
	return children, nil
}
