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
	"fmt"
	"sort"
	"strings"

	"github.com/kraklabs/codeintel/internal/graph"
	"github.com/kraklabs/codeintel/internal/storage"
)

// buildCitations resolves each detailed node's file path and ranks it by
// search position, since this store carries no semantic/embedding score
// independent of name matching.
func buildCitations(ctx context.Context, store *storage.Store, nodes []graph.Node, maxResults int) []Citation {
	if maxResults <= 0 || maxResults > len(nodes) {
		maxResults = len(nodes)
	}
	citations := make([]Citation, 0, maxResults)
	for i, n := range nodes {
		if i >= maxResults {
			break
		}
		filePath := ""
		if n.HasFile {
			if path, ok, err := store.GetFilePath(ctx, n.FileNodeID); err == nil && ok {
				filePath = path
			}
		}
		line := 0
		if n.HasSpan {
			line = n.Span.StartLine
		}
		citations = append(citations, Citation{
			NodeID:      n.ID,
			DisplayName: displayName(n),
			Kind:        n.Kind,
			FilePath:    filePath,
			Line:        line,
			Score:       rankScore(i, len(nodes)),
		})
	}
	return citations
}

// displayName prefers the fully-qualified name, falling back to the bare
// serialized name for nodes without one (§4.3 node relation).
func displayName(n graph.Node) string {
	if n.QualifiedName != "" {
		return n.QualifiedName
	}
	return n.SerializedName
}

// rankScore assigns a monotonically decreasing score by result position,
// from 1.0 down to 0.5, so downstream consumers can still rank citations
// without this store computing real relevance.
func rankScore(index, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - 0.5*float64(index)/float64(total-1)
}

// buildArtifacts wraps the neighborhood and trail subgraphs as UML-style
// artifacts. Mermaid text generation is out of scope (§1); Text stays
// empty and StepMermaidSynthesis is always recorded as Skipped.
func buildArtifacts(neighborhood storage.Neighborhood, trail storage.TrailResult) []GraphArtifact {
	var artifacts []GraphArtifact
	if len(neighborhood.Nodes) > 0 {
		artifacts = append(artifacts, GraphArtifact{Nodes: neighborhood.Nodes, Edges: neighborhood.Edges})
	}
	if len(trail.Nodes) > 0 {
		artifacts = append(artifacts, GraphArtifact{Nodes: trail.Nodes, Edges: trail.Edges})
	}
	return artifacts
}

// buildSections renders the markdown body of the answer: a result list, a
// call-site list from the edge occurrences, and any inline source snippets
// the SLA budget allowed.
func buildSections(req Request, nodes []graph.Node, occurrences map[graph.NodeID][]graph.Occurrence, edgeOccurrences []edgeOccurrence, sourceText map[graph.NodeID]string, artifacts []GraphArtifact) []Section {
	var sections []Section

	if len(nodes) > 0 {
		var sb strings.Builder
		fmt.Fprintf(&sb, "## Matches for %q\n\n", req.Prompt)
		for _, n := range nodes {
			occCount := len(occurrences[n.ID])
			fmt.Fprintf(&sb, "- **%s** (%s) -- %d occurrence(s)\n", displayName(n), n.Kind, occCount)
		}
		refs := artifactRefs(artifacts)
		sections = append(sections, Section{Markdown: sb.String(), ArtifactRefs: refs})
	}

	if len(edgeOccurrences) > 0 {
		var sb strings.Builder
		sb.WriteString("## Call and usage sites\n\n")
		for _, eo := range edgeOccurrences {
			loc := "unknown location"
			if eo.HasFile && eo.Edge.HasLine {
				loc = fmt.Sprintf("%s:%d", eo.FilePath, eo.Edge.Line)
			} else if eo.HasFile {
				loc = eo.FilePath
			}
			fmt.Fprintf(&sb, "- `%s` at %s\n", eo.Edge.Kind, loc)
		}
		sections = append(sections, Section{Markdown: sb.String()})
	}

	if len(sourceText) > 0 {
		var sb strings.Builder
		sb.WriteString("## Source\n\n")
		ids := make([]graph.NodeID, 0, len(sourceText))
		for id := range sourceText {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		byID := make(map[graph.NodeID]graph.Node, len(nodes))
		for _, n := range nodes {
			byID[n.ID] = n
		}
		for _, id := range ids {
			fmt.Fprintf(&sb, "### %s\n\n```\n%s\n```\n\n", displayName(byID[id]), sourceText[id])
		}
		sections = append(sections, Section{Markdown: sb.String()})
	}

	return sections
}

func artifactRefs(artifacts []GraphArtifact) []int {
	if len(artifacts) == 0 {
		return nil
	}
	refs := make([]int, len(artifacts))
	for i := range artifacts {
		refs[i] = i
	}
	return refs
}
