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

package retrieval

import (
	"context"
	"os"
	"strings"

	"github.com/kraklabs/codeintel/internal/graph"
)

// maxSourceReadNodes bounds how many citations get an inline source read,
// since each one is a disk read plus a line-range scan.
const maxSourceReadNodes = 8

// maxSourceLines caps how much of a matched span is inlined into a section.
const maxSourceLines = 60

// runSourceRead reads the source snippet for each detailed node's span, by
// resolving its file path and slicing the declared line range. This store
// keeps no code_text column (unlike the teacher's cie_function_code /
// cie_type_code tables) -- the node relation only carries file_node_id and
// span, so a source read means going back to the indexed file on disk.
func (o *Orchestrator) runSourceRead(ctx context.Context, trace *[]TraceStep, nodes []graph.Node, occurrences map[graph.NodeID][]graph.Occurrence) map[graph.NodeID]string {
	out := make(map[graph.NodeID]string)
	o.run(trace, StepSourceRead, func() Outcome {
		if len(nodes) == 0 {
			return Skipped("no nodes to read source for")
		}

		fileCache := make(map[graph.NodeID][]string)
		read := 0
		truncatedCount := false
		for _, n := range nodes {
			if read >= maxSourceReadNodes {
				truncatedCount = true
				break
			}
			span, ok := nodeSpan(n, occurrences[n.ID])
			if !ok || !n.HasFile {
				continue
			}
			lines, cached := fileCache[n.FileNodeID]
			if !cached {
				path, found, err := o.store.GetFilePath(ctx, n.FileNodeID)
				if err != nil || !found {
					fileCache[n.FileNodeID] = nil
					continue
				}
				content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the project's own indexed file table
				if err != nil {
					fileCache[n.FileNodeID] = nil
					continue
				}
				lines = strings.Split(string(content), "\n")
				fileCache[n.FileNodeID] = lines
			}
			if lines == nil {
				continue
			}
			snippet := sliceSpan(lines, span.StartLine, span.EndLine)
			if snippet != "" {
				out[n.ID] = snippet
				read++
			}
		}

		if truncatedCount {
			return Truncated("stopped after maxSourceReadNodes inline reads")
		}
		if len(out) == 0 {
			return Skipped("no node had both a resolvable file and a span")
		}
		return Ok()
	})
	return out
}

// nodeSpan prefers the node's own declared span, falling back to its
// earliest definition occurrence when the node carries none -- FILE nodes
// in particular have no span but may still have attached occurrences.
func nodeSpan(n graph.Node, occs []graph.Occurrence) (graph.Span, bool) {
	if n.HasSpan {
		return n.Span, true
	}
	for _, occ := range occs {
		if occ.Kind == graph.OccurrenceKindDefinition {
			return occ.Span, true
		}
	}
	return graph.Span{}, false
}

// sliceSpan extracts 1-based inclusive [startLine, endLine] from lines,
// clamped to maxSourceLines and the file's actual extent.
func sliceSpan(lines []string, startLine, endLine int) string {
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if endLine-startLine+1 > maxSourceLines {
		endLine = startLine + maxSourceLines - 1
	}
	if startLine > endLine || startLine > len(lines) {
		return ""
	}
	return strings.Join(lines[startLine-1:endLine], "\n")
}
