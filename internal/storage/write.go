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

const nodeHeaders = "id, kind, serialized_name, qualified_name, canonical_id, file_node_id, start_line, start_col, end_line, end_col"
const edgeHeaders = "id, source_node_id, target_node_id, kind, file_node_id, line, resolved_source_node_id, resolved_target_node_id, confidence, certainty, candidate_targets"
const occurrenceHeaders = "element_id, file_node_id, start_line, start_col, end_line, end_col, kind"
const fileHeaders = "id, path, language, mtime, indexed, complete, line_count"

// InsertNodesBatch upserts nodes in one transaction: FILE rows first, then
// non-FILE, so foreign keys referencing a file node are always satisfiable
// within the same batch (§4.2 step 3, §4.3 write API). Conflicts on id
// keep the first-written row (Cozo `:put` performs upsert-by-key, so a
// caller that wants strict keep-first semantics must not re-submit an
// id already present; the workspace indexer enforces this by only
// submitting nodes it has not previously flushed for the same canonical
// run).
func (s *Store) InsertNodesBatch(ctx context.Context, nodes []graph.Node) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}
	var fileRows, otherRows []string
	var idxKindName, idxFile, idxQName []string
	for _, n := range nodes {
		row, kn, fl, qn := buildNodeRow(n)
		if n.Kind == graph.NodeKindFile {
			fileRows = append(fileRows, row)
		} else {
			otherRows = append(otherRows, row)
		}
		idxKindName = append(idxKindName, kn)
		if fl != "" {
			idxFile = append(idxFile, fl)
		}
		idxQName = append(idxQName, qn)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rows := range [][]string{fileRows, otherRows} {
		if script := putScript("node", nodeHeaders, rows); script != "" {
			if _, err := s.db.Run(script, nil); err != nil {
				return fmt.Errorf("storage: insert nodes: %w", err)
			}
		}
	}
	if script := putScript("idx_node_kind_serialized_name", "kind, serialized_name, id", idxKindName); script != "" {
		if _, err := s.db.Run(script, nil); err != nil {
			return fmt.Errorf("storage: insert node index: %w", err)
		}
	}
	if script := putScript("idx_node_file", "file_node_id, id", idxFile); script != "" {
		if _, err := s.db.Run(script, nil); err != nil {
			return fmt.Errorf("storage: insert node file index: %w", err)
		}
	}
	if script := putScript("idx_node_qualified_name", "qualified_name, id", idxQName); script != "" {
		if _, err := s.db.Run(script, nil); err != nil {
			return fmt.Errorf("storage: insert node qname index: %w", err)
		}
	}

	s.cacheMu.Lock()
	for _, n := range nodes {
		s.cache[n.ID] = n
	}
	s.cacheMu.Unlock()

	return nil
}

// InsertEdgesBatch upserts edges in one transaction, conflict on id keeps
// the first-written row.
func (s *Store) InsertEdgesBatch(ctx context.Context, edges []graph.Edge) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if len(edges) == 0 {
		return nil
	}
	var rows, idxSource, idxTarget, idxResolvedTarget, idxResolvedSource, idxLine []string
	for _, e := range edges {
		row, is, it, irt, irs, il := buildEdgeRow(e)
		rows = append(rows, row)
		idxSource = append(idxSource, is)
		idxTarget = append(idxTarget, it)
		if irt != "" {
			idxResolvedTarget = append(idxResolvedTarget, irt)
		}
		if irs != "" {
			idxResolvedSource = append(idxResolvedSource, irs)
		}
		if il != "" {
			idxLine = append(idxLine, il)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if script := putScript("edge", edgeHeaders, rows); script != "" {
		if _, err := s.db.Run(script, nil); err != nil {
			return fmt.Errorf("storage: insert edges: %w", err)
		}
	}
	if script := putScript("idx_edge_source", "source_node_id, id", idxSource); script != "" {
		if _, err := s.db.Run(script, nil); err != nil {
			return fmt.Errorf("storage: insert edge source index: %w", err)
		}
	}
	if script := putScript("idx_edge_target", "target_node_id, id", idxTarget); script != "" {
		if _, err := s.db.Run(script, nil); err != nil {
			return fmt.Errorf("storage: insert edge target index: %w", err)
		}
	}
	if script := putScript("idx_edge_resolved_target", "kind, resolved_target_node_id, id", idxResolvedTarget); script != "" {
		if _, err := s.db.Run(script, nil); err != nil {
			return fmt.Errorf("storage: insert edge resolved target index: %w", err)
		}
	}
	if script := putScript("idx_edge_resolved_source", "resolved_source_node_id, id", idxResolvedSource); script != "" {
		if _, err := s.db.Run(script, nil); err != nil {
			return fmt.Errorf("storage: insert edge resolved source index: %w", err)
		}
	}
	if script := putScript("idx_edge_line", "line, id", idxLine); script != "" {
		if _, err := s.db.Run(script, nil); err != nil {
			return fmt.Errorf("storage: insert edge line index: %w", err)
		}
	}
	return nil
}

// InsertOccurrencesBatch inserts occurrences with INSERT-OR-IGNORE
// semantics on the location uniqueness key (Cozo `:put` against a
// relation keyed by the full location tuple naturally ignores a
// resubmission of the same key with the same value).
func (s *Store) InsertOccurrencesBatch(ctx context.Context, occs []graph.Occurrence) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if len(occs) == 0 {
		return nil
	}
	var rows, idxElement, idxFile []string
	for _, o := range occs {
		row, ie, ifl := buildOccurrenceRow(o)
		rows = append(rows, row)
		idxElement = append(idxElement, ie)
		idxFile = append(idxFile, ifl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if script := putScript("occurrence", occurrenceHeaders, rows); script != "" {
		if _, err := s.db.Run(script, nil); err != nil {
			return fmt.Errorf("storage: insert occurrences: %w", err)
		}
	}
	if script := putScript("idx_occurrence_element", "element_id, file_node_id, start_line, start_col, end_line, end_col", idxElement); script != "" {
		if _, err := s.db.Run(script, nil); err != nil {
			return fmt.Errorf("storage: insert occurrence element index: %w", err)
		}
	}
	if script := putScript("idx_occurrence_file", "file_node_id, element_id, start_line, start_col, end_line, end_col", idxFile); script != "" {
		if _, err := s.db.Run(script, nil); err != nil {
			return fmt.Errorf("storage: insert occurrence file index: %w", err)
		}
	}
	return nil
}

// InsertFilesBatch upserts file records.
func (s *Store) InsertFilesBatch(ctx context.Context, files []graph.FileRecord) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}
	rows := make([]string, len(files))
	for i, f := range files {
		rows[i] = buildFileRow(f)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	script := putScript("file", fileHeaders, rows)
	if _, err := s.db.Run(script, nil); err != nil {
		return fmt.Errorf("storage: insert files: %w", err)
	}
	return nil
}

// InsertError records one collection/indexing diagnostic.
func (s *Store) InsertError(ctx context.Context, id int64, e graph.ErrorRecord) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	row := buildErrorRow(id, e)
	script := putScript("error", "id, message, file_id, line, column, is_fatal, step", []string{row})

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Run(script, nil); err != nil {
		return fmt.Errorf("storage: insert error: %w", err)
	}
	return nil
}

// InsertErrorsBatch records a batch of diagnostics once the accumulated
// count exceeds the configured error_batch_size (§4.2).
func (s *Store) InsertErrorsBatch(ctx context.Context, startID int64, errs []graph.ErrorRecord) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if len(errs) == 0 {
		return nil
	}
	rows := make([]string, len(errs))
	for i, e := range errs {
		rows[i] = buildErrorRow(startID+int64(i), e)
	}
	script := putScript("error", "id, message, file_id, line, column, is_fatal, step", rows)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Run(script, nil); err != nil {
		return fmt.Errorf("storage: insert errors: %w", err)
	}
	return nil
}

// SeedLocalSymbol seeds the persisted symbol table mirror with (id, kind)
// pairs for every emitted node (§4.1 step 9).
func (s *Store) SeedLocalSymbol(ctx context.Context, nodes []graph.Node) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}
	rows := make([]string, len(nodes))
	for i, n := range nodes {
		rows[i] = fmt.Sprintf("[%d, %s]", uint64(n.ID), quoteString(n.Kind.String()))
	}
	script := putScript("local_symbol", "id, kind", rows)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Run(script, nil); err != nil {
		return fmt.Errorf("storage: seed local symbol: %w", err)
	}
	return nil
}

// RecordComponentAccess appends a bulk audit row noting that a retrieval
// step touched nodeID, for the usage metrics the component_access relation
// exists to hold.
func (s *Store) RecordComponentAccess(ctx context.Context, id int64, nodeID graph.NodeID, accessedAtUnix int64, step string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	row := fmt.Sprintf("[%d, %d, %d, %s]", id, uint64(nodeID), accessedAtUnix, quoteString(step))
	script := putScript("component_access", "id, node_id, accessed_at, step", []string{row})

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Run(script, nil); err != nil {
		return fmt.Errorf("storage: record component access: %w", err)
	}
	return nil
}
