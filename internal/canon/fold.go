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

package canon

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kraklabs/codeintel/internal/graph"
)

// computeSignedDepth implements §4.6's depth-signing rule: nodes the
// center only calls (outgoing edges from the center) get a positive
// depth; nodes that only call the center (incoming edges) get a negative
// depth, so a hierarchical layout can place callees below and callers
// above. Depth magnitude otherwise comes from the raw node's unsigned
// depth, floored at 1 so nothing collapses onto the center's own row.
func computeSignedDepth(nodes []nodeLike, edges []GraphEdge, centerHostID graph.NodeID) map[graph.NodeID]int32 {
	directionBias := make(map[graph.NodeID]int32)
	for _, e := range edges {
		if e.Kind == graph.EdgeKindMember {
			continue
		}
		if e.Source == centerHostID && e.Target != centerHostID {
			directionBias[e.Target]++
		}
		if e.Target == centerHostID && e.Source != centerHostID {
			directionBias[e.Source]--
		}
	}

	signedDepth := make(map[graph.NodeID]int32, len(nodes))
	for _, n := range nodes {
		if n.id == centerHostID {
			signedDepth[n.id] = 0
			continue
		}
		baseDepth := int32(n.depth)
		if baseDepth < 1 {
			baseDepth = 1
		}
		if directionBias[n.id] < 0 {
			signedDepth[n.id] = -baseDepth
		} else {
			signedDepth[n.id] = baseDepth
		}
	}
	return signedDepth
}

type foldedEdge struct {
	id            string
	sourceEdgeIDs []graph.EdgeID
	source        graph.NodeID
	target        graph.NodeID
	kind          graph.EdgeKind
	certainty     graph.Certainty
	hasCertainty  bool
	multiplicity  uint32
	sourceHandle  string
	targetHandle  string
	family        EdgeFamily
}

// foldEdges implements §4.6 steps 3-4: canonical-id assignment (card/pill
// dedup by kind+label[+depth]) followed by edge folding, which maps every
// edge's endpoints through the member-host and canonical-id lookups,
// drops self-loops and MEMBER edges, and merges parallel edges into one
// row carrying a multiplicity and the most-cautious certainty seen
// (certainty never silently sharpens when edges disagree — see
// graph.Certainty.Weaker).
func foldEdges(
	nodes []nodeLike,
	edges []GraphEdge,
	centerHostID graph.NodeID,
	memberHostByID map[graph.NodeID]graph.NodeID,
	signedDepthByNode map[graph.NodeID]int32,
) (
	folded []foldedEdge,
	canonicalByID map[graph.NodeID]graph.NodeID,
	dupCountByCanonical map[graph.NodeID]uint32,
	mergedIDsByCanonical map[graph.NodeID][]graph.NodeID,
) {
	canonicalByID = make(map[graph.NodeID]graph.NodeID, len(nodes))
	canonicalByKey := make(map[string]graph.NodeID)
	dupCountByCanonical = make(map[graph.NodeID]uint32)
	mergedIDsByCanonical = make(map[graph.NodeID][]graph.NodeID)

	for _, n := range nodes {
		if _, isMember := memberHostByID[n.id]; isMember {
			continue
		}
		depth, ok := signedDepthByNode[n.id]
		if !ok {
			depth = int32(n.depth)
			if depth < 1 {
				depth = 1
			}
		}
		isCenter := n.id == centerHostID
		key, hasKey := dedupeKey(n.kind, n.label, depth, isCenter)

		canonicalID := n.id
		if hasKey {
			if existing, ok := canonicalByKey[key]; ok {
				canonicalID = existing
			} else {
				canonicalByKey[key] = canonicalID
			}
		}

		canonicalByID[n.id] = canonicalID
		dupCountByCanonical[canonicalID]++
		mergedIDsByCanonical[canonicalID] = append(mergedIDsByCanonical[canonicalID], n.id)
	}

	foldedByKey := make(map[string]*foldedEdge)
	var order []string
	for _, e := range edges {
		if e.Kind == graph.EdgeKindMember {
			continue
		}

		family := EdgeFamilyFlow
		if e.Kind.IsHierarchy() {
			family = EdgeFamilyHierarchy
		}

		sourceHost, sourceIsMember := memberHostByID[e.Source]
		targetHost, targetIsMember := memberHostByID[e.Target]
		sourceNodeID := e.Source
		if sourceIsMember {
			sourceNodeID = sourceHost
		}
		targetNodeID := e.Target
		if targetIsMember {
			targetNodeID = targetHost
		}

		source := sourceNodeID
		if c, ok := canonicalByID[sourceNodeID]; ok {
			source = c
		}
		target := targetNodeID
		if c, ok := canonicalByID[targetNodeID]; ok {
			target = c
		}
		if source == target {
			continue
		}

		sourceHandle := "source-node"
		if sourceIsMember {
			sourceHandle = fmt.Sprintf("source-member-%d", uint64(e.Source))
		} else if family == EdgeFamilyHierarchy {
			sourceHandle = "source-node-top"
		}
		targetHandle := "target-node"
		if targetIsMember {
			targetHandle = fmt.Sprintf("target-member-%d", uint64(e.Target))
		} else if family == EdgeFamilyHierarchy {
			targetHandle = "target-node-bottom"
		}

		key := strings.Join([]string{
			e.Kind.String(),
			fmt.Sprintf("%d", uint64(source)),
			sourceHandle,
			fmt.Sprintf("%d", uint64(target)),
			targetHandle,
		}, ":")

		if existing, ok := foldedByKey[key]; ok {
			existing.multiplicity++
			existing.sourceEdgeIDs = append(existing.sourceEdgeIDs, e.ID)
			existing.certainty, existing.hasCertainty = mergeCertainty(
				existing.certainty, existing.hasCertainty, e.Certainty, true)
			continue
		}

		foldedByKey[key] = &foldedEdge{
			id:            key,
			sourceEdgeIDs: []graph.EdgeID{e.ID},
			source:        source,
			target:        target,
			kind:          e.Kind,
			certainty:     e.Certainty,
			hasCertainty:  true,
			multiplicity:  1,
			sourceHandle:  sourceHandle,
			targetHandle:  targetHandle,
			family:        family,
		}
		order = append(order, key)
	}

	sort.Strings(order)
	folded = make([]foldedEdge, 0, len(order))
	for _, key := range order {
		folded = append(folded, *foldedByKey[key])
	}
	return folded, canonicalByID, dupCountByCanonical, mergedIDsByCanonical
}

// mergeCertainty keeps whichever certainty is less trusted: a canonical
// edge folded from several raw edges must never claim more confidence
// than its weakest contributor.
func mergeCertainty(existing graph.Certainty, hasExisting bool, next graph.Certainty, hasNext bool) (graph.Certainty, bool) {
	if !hasExisting {
		return next, hasNext
	}
	if !hasNext {
		return existing, hasExisting
	}
	if existing.Weaker(next) {
		return next, true
	}
	return existing, true
}

// dedupeKey implements §4.6 step 3: the center node never dedupes (it's
// always its own canonical row); card-kind nodes (structural + FILE)
// dedupe by kind+label alone, since a type-like symbol is the same
// regardless of where in the tree it's reached from; everything else
// additionally keys on depth, since the same pill label can legitimately
// appear at different distances from the center.
func dedupeKey(kind graph.NodeKind, label string, depth int32, isCenter bool) (string, bool) {
	if isCenter {
		return "", false
	}
	lower := strings.ToLower(label)
	if isCardNodeKind(kind) {
		return fmt.Sprintf("%s:%s", kind.String(), lower), true
	}
	return fmt.Sprintf("%s:%s:%d", kind.String(), lower, depth), true
}
