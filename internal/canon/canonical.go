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

// Package canon folds a raw neighborhood or trail into a deduplicated,
// stably ordered canonical layout (§4.6): members are hoisted onto their
// host containers, duplicate symbols collapse to one canonical node,
// parallel edges fold into a single edge carrying a multiplicity, and
// every node receives a deterministic rank and on-screen size. The
// pipeline is a pure function of its inputs: the same neighborhood always
// folds to byte-identical output.
package canon

import (
	"math"
	"sort"

	"github.com/kraklabs/codeintel/internal/graph"
)

const (
	cardWidthMin    = 228.0
	cardWidthMax    = 432.0
	cardChromeWidth = 112.0
	cardHeightMin   = 110.0
	cardHeightMax   = 560.0
	pillWidthMin    = 96.0
	pillWidthMax    = 560.0
	pillChromeWidth = 72.0
	pillHeight      = 34.0
	approxCharWidth = 7.25

	// SchemaVersion is carried on every emitted CanonicalLayout. Downstream
	// renderers must reject a layout whose version they don't recognize.
	SchemaVersion = 1

	maxMergedSymbolIDs = 6
)

// Style is the rendering shape of a canonical node: containers that host
// members render as Card, everything else as a compact Pill.
type Style int

const (
	StylePill Style = iota
	StyleCard
)

// Visibility buckets a member for section grouping inside a card.
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityProtected
	VisibilityPrivate
	VisibilityDefault
)

// EdgeFamily classifies a canonical edge for routing purposes.
type EdgeFamily int

const (
	EdgeFamilyFlow EdgeFamily = iota
	EdgeFamilyHierarchy
)

// RouteKind selects how a renderer should draw a canonical edge.
type RouteKind int

const (
	RouteKindDirect RouteKind = iota
	RouteKindHierarchy
)

// GraphNode is the raw input to canonicalization: a node together with
// its unsigned depth from the neighborhood's center, as computed by the
// caller's traversal; BuildLayout derives the sign itself (the resolution pass and storage layer don't carry
// depth themselves — it's relative to whatever node the query centered
// on).
type GraphNode struct {
	ID             graph.NodeID
	Kind           graph.NodeKind
	Label          string
	Depth          uint32
	VisibleMembers int
	HasVisible     bool
	TotalMembers   int
	HasTotal       bool
}

// GraphEdge is the raw input edge: the symbolic (unresolved) or resolved
// endpoints a neighborhood query already chose to present, plus the
// certainty the resolution pass assigned it.
type GraphEdge struct {
	ID        graph.EdgeID
	Source    graph.NodeID
	Target    graph.NodeID
	Kind      graph.EdgeKind
	Certainty graph.Certainty
}

// Member is a symbol hoisted onto a host's members list.
type Member struct {
	ID         graph.NodeID
	Label      string
	Kind       graph.NodeKind
	Visibility Visibility
}

// Node is one row of the canonical layout.
type Node struct {
	ID                  graph.NodeID
	Kind                graph.NodeKind
	Label               string
	Center              bool
	Style               Style
	IsNonIndexed        bool
	DuplicateCount      uint32
	MergedSymbolIDs     []graph.NodeID
	MemberCount         int
	BadgeVisibleMembers int
	HasBadgeVisible     bool
	BadgeTotalMembers   int
	HasBadgeTotal       bool
	Members             []Member
	XRank               int32
	YRank               uint32
	Width               float64
	Height              float64
	IsVirtualBundle     bool
}

// Edge is one folded row of the canonical layout.
type Edge struct {
	ID             string
	SourceEdgeIDs  []graph.EdgeID
	Source         graph.NodeID
	Target         graph.NodeID
	SourceHandle   string
	TargetHandle   string
	Kind           graph.EdgeKind
	Certainty      graph.Certainty
	HasCertainty   bool
	Multiplicity   uint32
	Family         EdgeFamily
	RouteKind      RouteKind
}

// Layout is the output of BuildLayout: a deduplicated, ranked view over a
// raw neighborhood, ready to hand to a layout engine.
type Layout struct {
	SchemaVersion int
	CenterNodeID  graph.NodeID
	Nodes         []Node
	Edges         []Edge
}

// nodeLike is the package-internal working copy of GraphNode, extended
// with synthetic hosts manufactured during member extraction.
type nodeLike struct {
	id             graph.NodeID
	label          string
	kind           graph.NodeKind
	depth          uint32
	visibleMembers int
	hasVisible     bool
	totalMembers   int
	hasTotal       bool
}

// BuildLayout implements §4.6 steps 1-7: member extraction (including
// synthetic hosts for detached qualified names), signed depth, canonical
// id assignment with card/pill dedup, edge folding with multiplicity, and
// deterministic node ordering with size computation. It is invariant #9:
// the same (centerID, nodes, edges) always produce byte-identical output.
func BuildLayout(centerID graph.NodeID, nodes []GraphNode, edges []GraphEdge) Layout {
	base := make([]nodeLike, len(nodes))
	for i, n := range nodes {
		base[i] = nodeLike{
			id:             n.ID,
			label:          n.Label,
			kind:           n.Kind,
			depth:          n.Depth,
			visibleMembers: n.VisibleMembers,
			hasVisible:     n.HasVisible,
			totalMembers:   n.TotalMembers,
			hasTotal:       n.HasTotal,
		}
	}

	memberHostByID, membersByHost, syntheticHosts := extractMembers(base, edges)

	allNodes := append(base, syntheticHosts...)

	nodeByID := make(map[graph.NodeID]*nodeLike, len(allNodes))
	labelByNode := make(map[graph.NodeID]string, len(allNodes))
	for i := range allNodes {
		nodeByID[allNodes[i].id] = &allNodes[i]
		labelByNode[allNodes[i].id] = allNodes[i].label
	}

	centerHostID := centerID
	if host, ok := memberHostByID[centerID]; ok {
		centerHostID = host
	}
	signedDepthByNode := computeSignedDepth(allNodes, edges, centerHostID)

	folded, canonicalByID, dupCountByCanonical, mergedIDsByCanonical := foldEdges(
		allNodes, edges, centerHostID, memberHostByID, signedDepthByNode)

	membersByCanonical := make(map[graph.NodeID][]Member)
	for nodeID, canonicalID := range canonicalByID {
		members, ok := membersByHost[nodeID]
		if !ok || len(members) == 0 {
			continue
		}
		merged := membersByCanonical[canonicalID]
		seen := make(map[graph.NodeID]bool, len(merged))
		for _, m := range merged {
			seen[m.ID] = true
		}
		for _, m := range members {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			merged = append(merged, m)
		}
		membersByCanonical[canonicalID] = merged
	}

	canonicalIDSet := make(map[graph.NodeID]bool, len(canonicalByID))
	for _, c := range canonicalByID {
		canonicalIDSet[c] = true
	}
	canonicalIDs := make([]graph.NodeID, 0, len(canonicalIDSet))
	for id := range canonicalIDSet {
		canonicalIDs = append(canonicalIDs, id)
	}
	sort.Slice(canonicalIDs, func(i, j int) bool { return canonicalIDs[i] < canonicalIDs[j] })

	centerNodeID := centerHostID
	if c, ok := canonicalByID[centerHostID]; ok {
		centerNodeID = c
	}

	depthByCanonical := make(map[graph.NodeID]int32, len(canonicalIDs))
	for _, canonicalID := range canonicalIDs {
		mergedIDs := mergedIDsByCanonical[canonicalID]
		if len(mergedIDs) == 0 {
			mergedIDs = []graph.NodeID{canonicalID}
		}
		var sum int64
		for _, id := range mergedIDs {
			sum += int64(signedDepthByNode[id])
		}
		depthByCanonical[canonicalID] = jsRound(float64(sum) / float64(len(mergedIDs)))
	}

	sort.Slice(canonicalIDs, func(i, j int) bool {
		left, right := canonicalIDs[i], canonicalIDs[j]
		dl, dr := depthByCanonical[left], depthByCanonical[right]
		if dl != dr {
			return dl < dr
		}
		ll, lr := labelOrID(labelByNode, left), labelOrID(labelByNode, right)
		if ll != lr {
			return ll < lr
		}
		return left < right
	})

	rowByDepth := make(map[int32]uint32)
	canonicalNodes := make([]Node, 0, len(canonicalIDs))
	for _, nodeID := range canonicalIDs {
		n, ok := nodeByID[nodeID]
		if !ok {
			continue
		}

		members := append([]Member(nil), membersByCanonical[nodeID]...)
		sort.Slice(members, func(i, j int) bool {
			if members[i].Label != members[j].Label {
				return members[i].Label < members[j].Label
			}
			return members[i].ID < members[j].ID
		})

		depth := depthByCanonical[nodeID]
		row := rowByDepth[depth]
		rowByDepth[depth] = row + 1

		style := StylePill
		if isCardNodeKind(n.kind) {
			style = StyleCard
		}

		mergedSymbolIDs := mergedIDsByCanonical[nodeID]
		if len(mergedSymbolIDs) == 0 {
			mergedSymbolIDs = []graph.NodeID{nodeID}
		}
		if len(mergedSymbolIDs) > maxMergedSymbolIDs {
			mergedSymbolIDs = mergedSymbolIDs[:maxMergedSymbolIDs]
		}

		width := estimatedWidth(n.kind, n.label, members)
		height := estimatedHeight(n.kind, members)

		memberCount := len(members)
		hasBadgeVisible := n.hasVisible
		badgeVisible := n.visibleMembers
		if hasBadgeVisible {
			memberCount = badgeVisible
		}

		duplicateCount := dupCountByCanonical[nodeID]
		if duplicateCount == 0 {
			duplicateCount = 1
		}

		canonicalNodes = append(canonicalNodes, Node{
			ID:                  nodeID,
			Kind:                n.kind,
			Label:               n.label,
			Center:              nodeID == centerNodeID,
			Style:               style,
			IsNonIndexed:        n.kind == graph.NodeKindUnknown || n.kind == graph.NodeKindBuiltinType,
			DuplicateCount:      duplicateCount,
			MergedSymbolIDs:     mergedSymbolIDs,
			MemberCount:         memberCount,
			BadgeVisibleMembers: badgeVisible,
			HasBadgeVisible:     hasBadgeVisible,
			BadgeTotalMembers:   n.totalMembers,
			HasBadgeTotal:       n.hasTotal,
			Members:             members,
			XRank:               depth,
			YRank:               row,
			Width:               width,
			Height:              height,
			IsVirtualBundle:     false,
		})
	}

	canonicalEdges := make([]Edge, 0, len(folded))
	for _, fe := range folded {
		routeKind := RouteKindDirect
		if fe.family == EdgeFamilyHierarchy {
			routeKind = RouteKindHierarchy
		}
		canonicalEdges = append(canonicalEdges, Edge{
			ID:            fe.id,
			SourceEdgeIDs: fe.sourceEdgeIDs,
			Source:        fe.source,
			Target:        fe.target,
			SourceHandle:  fe.sourceHandle,
			TargetHandle:  fe.targetHandle,
			Kind:          fe.kind,
			Certainty:     fe.certainty,
			HasCertainty:  fe.hasCertainty,
			Multiplicity:  fe.multiplicity,
			Family:        fe.family,
			RouteKind:     routeKind,
		})
	}

	return Layout{
		SchemaVersion: SchemaVersion,
		CenterNodeID:  centerNodeID,
		Nodes:         canonicalNodes,
		Edges:         canonicalEdges,
	}
}

func labelOrID(labelByNode map[graph.NodeID]string, id graph.NodeID) string {
	if l, ok := labelByNode[id]; ok {
		return l
	}
	return ""
}

// jsRound matches JavaScript's Math.round (round-half-up via floor(v+0.5)),
// which is what the original implementation used for averaging signed
// depths across merged symbols.
func jsRound(v float64) int32 {
	return int32(math.Floor(v + 0.5))
}
