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

// DeletionSummary reports what delete_file_projection removed.
type DeletionSummary struct {
	RemovedNodeCount  int
	RemovedEdgeCount  int
	ClearedResolvedAt int
}

// DeleteFileProjection removes every node/edge/occurrence owned by file
// and scrubs cross-file edges that pointed at a removed target, per the
// FK-safe delete algorithm in §4.3:
//
//  1. Gather N = nodes with file_node_id = fileID (plus the file node).
//  2. Delete occurrences where file_node_id ∈ {fileID} or element_id ∈ N.
//  3. For every edge with an endpoint in N: if the other endpoint lives
//     in a different file, null out resolved_* and confidence/certainty;
//     otherwise delete the edge.
//  4. Delete bookmarks with node_id ∈ N.
//  5. Delete component_access/error/local_symbol rows tied to N or fileID.
//  6. Delete nodes in N; delete the file row; purge the node cache.
func (s *Store) DeleteFileProjection(ctx context.Context, fileID graph.NodeID) (DeletionSummary, error) {
	if err := checkContext(ctx); err != nil {
		return DeletionSummary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.nodesOwnedByFile(fileID)
	if err != nil {
		return DeletionSummary{}, err
	}
	owned := make(map[graph.NodeID]bool, len(n)+1)
	owned[fileID] = true
	for _, id := range n {
		owned[id] = true
	}

	if err := s.deleteOccurrencesOwned(fileID, owned); err != nil {
		return DeletionSummary{}, err
	}

	removedEdges, clearedResolved, err := s.scrubEdgesTouching(owned)
	if err != nil {
		return DeletionSummary{}, err
	}

	if err := s.deleteBookmarksForNodes(owned); err != nil {
		return DeletionSummary{}, err
	}
	if err := s.deleteAuxRowsForNodes(owned, fileID); err != nil {
		return DeletionSummary{}, err
	}

	removedNodes := 0
	for id := range owned {
		if _, err := s.db.Run(`?[id] <- [[$id]] :rm node {id}`, map[string]any{"id": uint64(id)}); err != nil {
			return DeletionSummary{}, fmt.Errorf("storage: delete node: %w", err)
		}
		removedNodes++
	}
	if _, err := s.db.Run(`?[id] <- [[$id]] :rm file {id}`, map[string]any{"id": uint64(fileID)}); err != nil {
		return DeletionSummary{}, fmt.Errorf("storage: delete file row: %w", err)
	}

	s.cacheMu.Lock()
	for id := range owned {
		delete(s.cache, id)
	}
	s.cacheMu.Unlock()

	return DeletionSummary{
		RemovedNodeCount:  removedNodes,
		RemovedEdgeCount:  removedEdges,
		ClearedResolvedAt: clearedResolved,
	}, nil
}

func (s *Store) nodesOwnedByFile(fileID graph.NodeID) ([]graph.NodeID, error) {
	rows, err := s.db.RunReadOnly(`?[id] := *node[id, kind, serialized_name, qualified_name, canonical_id, file_node_id, start_line, start_col, end_line, end_col], file_node_id == $id`, map[string]any{"id": uint64(fileID)})
	if err != nil {
		return nil, fmt.Errorf("storage: find nodes owned by file: %w", err)
	}
	out := make([]graph.NodeID, 0, len(rows.Rows))
	for _, r := range rows.Rows {
		id, err := asUint64(r[0])
		if err != nil {
			return nil, err
		}
		out = append(out, graph.NodeID(id))
	}
	return out, nil
}

func (s *Store) deleteOccurrencesOwned(fileID graph.NodeID, owned map[graph.NodeID]bool) error {
	occs, err := s.db.RunReadOnly(`?[element_id, file_node_id, start_line, start_col, end_line, end_col] := *occurrence[element_id, file_node_id, start_line, start_col, end_line, end_col, kind]`, nil)
	if err != nil {
		return fmt.Errorf("storage: find occurrences: %w", err)
	}
	for _, r := range occs.Rows {
		elementID, err := asUint64(r[0])
		if err != nil {
			return err
		}
		fid, err := asUint64(r[1])
		if err != nil {
			return err
		}
		if graph.NodeID(fid) != fileID && !owned[graph.NodeID(elementID)] {
			continue
		}
		if _, err := s.db.Run(`?[element_id, file_node_id, start_line, start_col, end_line, end_col] <- [[$e,$f,$sl,$sc,$el,$ec]] :rm occurrence {element_id, file_node_id, start_line, start_col, end_line, end_col}`,
			map[string]any{"e": r[0], "f": r[1], "sl": r[2], "sc": r[3], "el": r[4], "ec": r[5]}); err != nil {
			return fmt.Errorf("storage: delete occurrence: %w", err)
		}
	}
	return nil
}

// scrubEdgesTouching walks every edge touching a node in owned through its
// symbolic or resolved endpoints, deleting
// edges fully internal to owned and nulling resolved_*/confidence/
// certainty/candidate_targets on edges that cross into a surviving file.
func (s *Store) scrubEdgesTouching(owned map[graph.NodeID]bool) (removed, cleared int, err error) {
	all, err := s.db.RunReadOnly(`?[id, source_node_id, target_node_id, kind, file_node_id, line, resolved_source_node_id, resolved_target_node_id, confidence, certainty, candidate_targets] := *edge[id, source_node_id, target_node_id, kind, file_node_id, line, resolved_source_node_id, resolved_target_node_id, confidence, certainty, candidate_targets]`, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("storage: scan edges: %w", err)
	}
	for _, r := range all.Rows {
		e, decodeErr := edgeFromRow(r)
		if decodeErr != nil {
			return removed, cleared, decodeErr
		}
		srcIn, tgtIn := owned[e.Source], owned[e.Target]
		resolvedIn := (e.HasResolvedSrc && owned[e.ResolvedSource]) || (e.HasResolvedTgt && owned[e.ResolvedTarget])
		if !srcIn && !tgtIn && !resolvedIn {
			continue
		}
		if srcIn && tgtIn {
			if _, err := s.db.Run(`?[id] <- [[$id]] :rm edge {id}`, map[string]any{"id": uint64(e.ID)}); err != nil {
				return removed, cleared, fmt.Errorf("storage: delete edge: %w", err)
			}
			removed++
			continue
		}
		// Crosses into a surviving file: null out resolved_* and
		// confidence/certainty/candidate_targets, keep the symbolic edge.
		e.HasResolvedSrc, e.HasResolvedTgt, e.HasConfidence = false, false, false
		e.Certainty = graph.CertaintyUnknown
		e.CandidateTargets = nil
		row, _, _, _, _, _ := buildEdgeRow(e)
		script := putScript("edge", edgeHeaders, []string{row})
		if _, err := s.db.Run(script, nil); err != nil {
			return removed, cleared, fmt.Errorf("storage: clear resolved edge: %w", err)
		}
		cleared++
	}
	return removed, cleared, nil
}

func (s *Store) deleteBookmarksForNodes(owned map[graph.NodeID]bool) error {
	rows, err := s.db.RunReadOnly(`?[id, category_id, node_id] := *bookmark_node[id, category_id, node_id, comment]`, nil)
	if err != nil {
		return fmt.Errorf("storage: scan bookmarks: %w", err)
	}
	for _, r := range rows.Rows {
		nodeID, err := asUint64(r[2])
		if err != nil {
			return err
		}
		if !owned[graph.NodeID(nodeID)] {
			continue
		}
		if _, err := s.db.Run(`?[id] <- [[$id]] :rm bookmark_node {id}`, map[string]any{"id": r[0]}); err != nil {
			return fmt.Errorf("storage: delete bookmark: %w", err)
		}
	}
	return nil
}

func (s *Store) deleteAuxRowsForNodes(owned map[graph.NodeID]bool, fileID graph.NodeID) error {
	for id := range owned {
		if _, err := s.db.Run(`?[id] <- [[$id]] :rm local_symbol {id}`, map[string]any{"id": uint64(id)}); err != nil {
			return fmt.Errorf("storage: delete local_symbol: %w", err)
		}
	}
	rows, err := s.db.RunReadOnly(`?[id, node_id] := *component_access[id, node_id, accessed_at, step]`, nil)
	if err != nil {
		return fmt.Errorf("storage: scan component_access: %w", err)
	}
	for _, r := range rows.Rows {
		nodeID, err := asUint64(r[1])
		if err != nil {
			return err
		}
		if owned[graph.NodeID(nodeID)] {
			if _, err := s.db.Run(`?[id] <- [[$id]] :rm component_access {id}`, map[string]any{"id": r[0]}); err != nil {
				return fmt.Errorf("storage: delete component_access: %w", err)
			}
		}
	}
	errRows, err := s.db.RunReadOnly(`?[id, file_id] := *error[id, message, file_id, line, column, is_fatal, step]`, nil)
	if err != nil {
		return fmt.Errorf("storage: scan error rows: %w", err)
	}
	for _, r := range errRows.Rows {
		if r[1] == nil {
			continue
		}
		fid, err := asUint64(r[1])
		if err == nil && graph.NodeID(fid) == fileID {
			if _, err := s.db.Run(`?[id] <- [[$id]] :rm error {id}`, map[string]any{"id": r[0]}); err != nil {
				return fmt.Errorf("storage: delete error row: %w", err)
			}
		}
	}
	return nil
}

// Clear performs the same operation as DeleteFileProjection for every
// file (each file row and each FILE node), preserving bookmark categories
// (user-level metadata).
func (s *Store) Clear(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	files, err := s.listFileIDs()
	if err != nil {
		return err
	}
	for _, id := range files {
		if _, err := s.DeleteFileProjection(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) listFileIDs() ([]graph.NodeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.RunReadOnly(`?[id] := *file[id, path, language, mtime, indexed, complete, line_count]
		?[id] := *node[id, kind, serialized_name, qualified_name, canonical_id, file_node_id, start_line, start_col, end_line, end_col], kind == 'FILE'`, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: list files: %w", err)
	}
	out := make([]graph.NodeID, 0, len(rows.Rows))
	for _, r := range rows.Rows {
		id, err := asUint64(r[0])
		if err != nil {
			return nil, err
		}
		out = append(out, graph.NodeID(id))
	}
	return out, nil
}
