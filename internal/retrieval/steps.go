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
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kraklabs/codeintel/internal/graph"
	"github.com/kraklabs/codeintel/internal/storage"
)

var promptTokenPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]{2,}`)

// promptSearchPattern extracts identifier-shaped tokens from a free-text
// prompt and joins the longest ones into a regex alternation. There is no
// free-text/code index in this store's schema (unlike the teacher's
// cie_function_code full-text columns); search here narrows to the
// symbol-name level the node relation actually carries.
func promptSearchPattern(prompt string) string {
	tokens := promptTokenPattern.FindAllString(prompt, -1)
	if len(tokens) == 0 {
		return regexp.QuoteMeta(prompt)
	}
	sort.Slice(tokens, func(i, j int) bool { return len(tokens[i]) > len(tokens[j]) })
	if len(tokens) > 5 {
		tokens = tokens[:5]
	}
	escaped := make([]string, len(tokens))
	for i, t := range tokens {
		escaped[i] = regexp.QuoteMeta(t)
	}
	return strings.Join(escaped, "|")
}

func (o *Orchestrator) runSearch(ctx context.Context, trace *[]TraceStep, req Request) []graph.Node {
	var candidates []graph.Node
	o.run(trace, StepSearch, func() Outcome {
		limit := req.MaxResults
		if limit <= 0 {
			limit = 20
		}
		pattern := promptSearchPattern(req.Prompt)
		if pattern == "" {
			return Skipped("empty prompt yields no searchable tokens")
		}
		nodes, err := o.store.SearchNodes(ctx, pattern, nil, limit)
		if err != nil {
			return Err(err.Error())
		}
		candidates = nodes
		if len(nodes) == 0 {
			return Ok()
		}
		if len(nodes) >= limit {
			return Truncated(fmt.Sprintf("stopped at max_results=%d", limit))
		}
		return Ok()
	})
	return candidates
}

// runTrailFilterOptions derives the node/edge filter and depth budget the
// Trail step applies, from the request's profile and result cap. There is
// no separate UI-driven filter-options surface in this module; the step
// is fulfilled as the config derivation the contract names.
func (o *Orchestrator) runTrailFilterOptions(trace *[]TraceStep, req Request) storage.TrailConfig {
	var cfg storage.TrailConfig
	o.run(trace, StepTrailFilterOptions, func() Outcome {
		maxNodes := req.MaxResults * 4
		if maxNodes <= 0 {
			maxNodes = 80
		}
		depth := 3
		if req.Profile == ProfileLatencyFirst {
			depth = 2
			maxNodes /= 2
		}
		cfg = storage.TrailConfig{
			Mode:        storage.TrailModeAllReferenced,
			Depth:       depth,
			Direction:   storage.DirectionBoth,
			CallerScope: storage.CallerScopeProductionOnly,
			MaxNodes:    maxNodes,
		}
		return Ok()
	})
	return cfg
}

// resolveFocus prefers the caller-supplied focus node, falling back to the
// best (first) search hit.
func (o *Orchestrator) resolveFocus(req Request, candidates []graph.Node) (graph.NodeID, bool) {
	if req.HasFocus {
		return req.FocusNodeID, true
	}
	if len(candidates) > 0 {
		return candidates[0].ID, true
	}
	return 0, false
}

func (o *Orchestrator) runNeighborhood(ctx context.Context, trace *[]TraceStep, focus graph.NodeID) storage.Neighborhood {
	var neighborhood storage.Neighborhood
	o.run(trace, StepNeighborhood, func() Outcome {
		n, err := o.store.GetNeighborhood(ctx, focus)
		if err != nil {
			return Err(err.Error())
		}
		neighborhood = n
		return Ok()
	})
	return neighborhood
}

func (o *Orchestrator) runTrail(ctx context.Context, trace *[]TraceStep, focus graph.NodeID, cfg storage.TrailConfig) storage.TrailResult {
	cfg.RootID = focus
	var result storage.TrailResult
	o.run(trace, StepTrail, func() Outcome {
		queryStart := time.Now()
		r, err := o.store.GetTrail(ctx, cfg)
		o.metrics.ObserveTrailQuery(cfg.Mode.String(), time.Since(queryStart).Seconds())
		if err != nil {
			return Err(err.Error())
		}
		result = r
		if result.Truncated {
			return Truncated(fmt.Sprintf("capped at max_nodes=%d", cfg.MaxNodes))
		}
		return Ok()
	})
	return result
}

// collectNodes merges every node surfaced by prior steps, deduplicated by
// id, search hits first so the best match stays first after dedup.
func collectNodes(candidates []graph.Node, neighborhood storage.Neighborhood, trail storage.TrailResult) []graph.Node {
	seen := make(map[graph.NodeID]bool)
	var out []graph.Node
	add := func(nodes []graph.Node) {
		for _, n := range nodes {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			out = append(out, n)
		}
	}
	add(candidates)
	add(neighborhood.Nodes)
	add(trail.Nodes)
	return out
}

func (o *Orchestrator) runNodeDetails(ctx context.Context, trace *[]TraceStep, nodes []graph.Node) []graph.Node {
	o.run(trace, StepNodeDetails, func() Outcome {
		if len(nodes) == 0 {
			return Skipped("no nodes surfaced by search, neighborhood, or trail")
		}
		return Ok()
	})
	return nodes
}

func (o *Orchestrator) runNodeOccurrences(ctx context.Context, trace *[]TraceStep, nodes []graph.Node) map[graph.NodeID][]graph.Occurrence {
	out := make(map[graph.NodeID][]graph.Occurrence)
	o.run(trace, StepNodeOccurrences, func() Outcome {
		if len(nodes) == 0 {
			return Skipped("no nodes to look up occurrences for")
		}
		var firstErr error
		for _, n := range nodes {
			occs, err := o.store.GetOccurrencesForNode(ctx, n.ID)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			out[n.ID] = occs
		}
		if firstErr != nil {
			return Err(firstErr.Error())
		}
		return Ok()
	})
	return out
}

// edgeOccurrence is a call/usage site derived directly from an edge's own
// file_node_id/line fields (§4.3) -- this store has no separate edge
// occurrence relation, so the edge's recorded source position is the
// occurrence.
type edgeOccurrence struct {
	Edge     graph.Edge
	FilePath string
	HasFile  bool
}

func (o *Orchestrator) runEdgeOccurrences(ctx context.Context, trace *[]TraceStep, edges []graph.Edge) []edgeOccurrence {
	var out []edgeOccurrence
	o.run(trace, StepEdgeOccurrences, func() Outcome {
		if len(edges) == 0 {
			return Skipped("no edges surfaced by trail")
		}
		for _, e := range edges {
			occ := edgeOccurrence{Edge: e}
			if e.HasFile {
				path, ok, err := o.store.GetFilePath(ctx, e.FileNodeID)
				if err == nil && ok {
					occ.FilePath = path
					occ.HasFile = true
				}
			}
			out = append(out, occ)
		}
		return Ok()
	})
	return out
}
