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

// Package storage implements the embedded relational projection over
// nodes, edges, occurrences, files, errors and bookmarks (§4.3), backed
// by an embedded CozoDB instance (pkg/cozodb).
package storage

// DatalogSchema returns the full set of `:create` statements for the
// store's relations, including the secondary-index relations named in
// §4.3 and required by §6 to be visible in query plans.
//
// Cozo has no ALTER-TABLE-style secondary index DDL with caller-chosen
// names; each required secondary index is instead modeled as its own
// stored relation, populated transactionally alongside its base relation
// (see write.go, which writes the index rows built in mutations.go). This is documented as an Open Question resolution in
// DESIGN.md.
func DatalogSchema() []string {
	return []string{
		// node: one row per symbolic element.
		`:create node {
			id: Int
			=>
			kind: String,
			serialized_name: String,
			qualified_name: String,
			canonical_id: String,
			file_node_id: Int?,
			start_line: Int?,
			start_col: Int?,
			end_line: Int?,
			end_col: Int?,
		}`,

		// edge: directed typed relation between two symbolic endpoints.
		`:create edge {
			id: Int
			=>
			source_node_id: Int,
			target_node_id: Int,
			kind: String,
			file_node_id: Int?,
			line: Int?,
			resolved_source_node_id: Int?,
			resolved_target_node_id: Int?,
			confidence: Float?,
			certainty: String?,
			candidate_targets: String?,
		}`,

		// occurrence: source location attached to an element. Uniqueness on
		// the full location tuple is expressed by making it the key.
		`:create occurrence {
			element_id: Int,
			file_node_id: Int,
			start_line: Int,
			start_col: Int,
			end_line: Int,
			end_col: Int,
			=>
			kind: String,
		}`,

		// file: metadata for the FILE node's id.
		`:create file {
			id: Int
			=>
			path: String,
			language: String,
			mtime: Int,
			indexed: Bool,
			complete: Bool,
			line_count: Int,
		}`,

		// local_symbol: the symbol table's persisted mirror, seeded during
		// indexing and read by the resolution pass.
		`:create local_symbol {
			id: Int
			=>
			kind: String,
		}`,

		// component_access: bulk audit/metrics rows for retrieval steps.
		`:create component_access {
			id: Int
			=>
			node_id: Int,
			accessed_at: Int,
			step: String,
		}`,

		// error: collection/indexing diagnostics.
		`:create error {
			id: Int
			=>
			message: String,
			file_id: Int?,
			line: Int?,
			column: Int?,
			is_fatal: Bool,
			step: String,
		}`,

		`:create bookmark_category {
			id: Int
			=>
			name: String,
		}`,

		`:create bookmark_node {
			id: Int
			=>
			category_id: Int,
			node_id: Int,
			comment: String?,
		}`,

		// Secondary-index relations (see mutations.go and write.go for the
		// write-side population and DESIGN.md for why these exist as relations
		// rather than SQL-style indexes).
		`:create idx_node_kind_serialized_name {
			kind: String,
			serialized_name: String,
			id: Int,
		}`,
		`:create idx_edge_kind_resolved_target {
			kind: String,
			resolved_target_node_id: Int,
			id: Int,
		}`,
		`:create idx_occurrence_element {
			element_id: Int,
			file_node_id: Int,
			start_line: Int,
			start_col: Int,
			end_line: Int,
			end_col: Int,
		}`,
		`:create idx_occurrence_file {
			file_node_id: Int,
			element_id: Int,
			start_line: Int,
			start_col: Int,
			end_line: Int,
			end_col: Int,
		}`,
		`:create idx_edge_source {
			source_node_id: Int,
			id: Int,
		}`,
		`:create idx_edge_target {
			target_node_id: Int,
			id: Int,
		}`,
		`:create idx_edge_resolved_source {
			resolved_source_node_id: Int,
			id: Int,
		}`,
		`:create idx_edge_line {
			line: Int,
			id: Int,
		}`,
		`:create idx_node_file {
			file_node_id: Int,
			id: Int,
		}`,
		`:create idx_node_qualified_name {
			qualified_name: String,
			id: Int,
		}`,
	}
}
