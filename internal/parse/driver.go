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

// Package parse realizes the "(source, grammar, rules) → graph-DSL
// result" boundary as a small Driver interface, one implementation per
// supported language, each backed by a pooled tree-sitter parser and a
// node-type → NodeKind/EdgeKind table.
package parse

import "context"

// GraphNode is one symbolic element discovered by a Driver, in the shape
// the per-file indexer's step 2 expects: a kind string, a name, and a
// zero-based [start_row,start_col,end_row,end_col] span.
type GraphNode struct {
	Kind      string
	Name      string
	StartRow  int
	StartCol  int
	EndRow    int
	EndCol    int
}

// GraphEdge is one directed relation discovered by a Driver. SourceRef
// and TargetRef are names, not ids: the per-file indexer resolves them
// against the GraphNode list it just received (step 4, "skip if either
// endpoint was not emitted") and, for CALL edges, reattributes Source to
// the enclosing function by line range (step 8) rather than trusting
// SourceRef directly.
type GraphEdge struct {
	Kind      string
	SourceRef string
	TargetRef string
	Line      int
}

// DSLResult is one file's parse output, matching §4.1 step 2's
// "(graph-nodes, graph-edges)" abstract result.
type DSLResult struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

// Driver parses one file of a specific language into a DSLResult. A
// Driver must be safe for concurrent use by multiple goroutines (the
// workspace indexer fans out file parsing across a worker pool, §4.2).
type Driver interface {
	Parse(ctx context.Context, path string, source []byte) (*DSLResult, error)
	Language() string
}

// Registry dispatches by language name to a Driver.
type Registry struct {
	drivers map[string]Driver
}

// NewRegistry builds a registry from the given drivers, keyed by their
// own Language().
func NewRegistry(drivers ...Driver) *Registry {
	r := &Registry{drivers: make(map[string]Driver, len(drivers))}
	for _, d := range drivers {
		r.drivers[d.Language()] = d
	}
	return r
}

// Driver returns the registered driver for a language, or false if the
// language has no grammar wired.
func (r *Registry) Driver(language string) (Driver, bool) {
	d, ok := r.drivers[language]
	return d, ok
}

// DefaultRegistry wires every tree-sitter-backed driver this module
// ships (§4.9).
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewTreeSitterDriver(goConfig),
		NewTreeSitterDriver(pythonConfig),
		NewTreeSitterDriver(javascriptConfig),
		NewTreeSitterDriver(typescriptConfig),
	)
}
