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

package index

import "github.com/kraklabs/codeintel/internal/graph"

// canonicalize implements the per-file indexer's canonicalization pass
// (§4.1 step 7): type-like nodes collapse within a file by qualified name
// alone; other nodes are keyed by qualified name plus location. The first
// occurrence of a colliding canonical seed wins; later duplicates are
// dropped and every reference to their id is remapped to the survivor,
// with edge ids recomputed under the FNV formula and occurrences
// remapped in place.
func canonicalize(filePath string, nodes []graph.Node, edges []graph.Edge, occs []graph.Occurrence) ([]graph.Node, []graph.Edge, []graph.Occurrence) {
	seedOwner := make(map[string]graph.NodeID, len(nodes))
	remap := make(map[graph.NodeID]graph.NodeID, len(nodes))
	survivors := make([]graph.Node, 0, len(nodes))

	for _, n := range nodes {
		seed := n.CanonicalID
		if n.Kind != graph.NodeKindFile {
			seed = graph.CanonicalSeed(n.Kind, filePath, n.QualifiedName, n.Span.StartLine)
		}
		owner, collided := seedOwner[seed]
		if !collided {
			finalID := graph.NewNodeID(seed)
			seedOwner[seed] = finalID
			n.CanonicalID = seed
			remap[n.ID] = finalID
			n.ID = finalID
			survivors = append(survivors, n)
			continue
		}
		remap[n.ID] = owner
	}

	remapID := func(id graph.NodeID) graph.NodeID {
		if newID, ok := remap[id]; ok {
			return newID
		}
		return id
	}

	dedupEdges := make(map[string]bool, len(edges))
	outEdges := make([]graph.Edge, 0, len(edges))
	for _, e := range edges {
		e.Source = remapID(e.Source)
		e.Target = remapID(e.Target)
		e.FileNodeID = remapID(e.FileNodeID)
		e.ID = graph.NewEdgeID(e.Source, e.Target, e.Kind)
		key := edgeDedupKey(e.Source, e.Target, e.Kind)
		if dedupEdges[key] {
			continue
		}
		dedupEdges[key] = true
		outEdges = append(outEdges, e)
	}

	outOccs := make([]graph.Occurrence, 0, len(occs))
	for _, o := range occs {
		o.ElementID = remapID(o.ElementID)
		o.FileNodeID = remapID(o.FileNodeID)
		outOccs = append(outOccs, o)
	}

	return survivors, outEdges, outOccs
}
