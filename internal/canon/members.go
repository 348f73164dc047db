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
	"sort"
	"strings"

	"github.com/kraklabs/codeintel/internal/graph"
)

// extractMembers implements §4.6 step 1: a MEMBER edge between a
// structural node and a non-structural one hoists the non-structural
// side onto the structural side's members list. Qualified names that
// look like "Host::member" but have no MEMBER edge to back them (a
// cross-file reference the per-file indexer never connected structurally)
// still get hoisted onto a synthetic host manufactured from the prefix.
func extractMembers(nodes []nodeLike, edges []GraphEdge) (
	memberHostByID map[graph.NodeID]graph.NodeID,
	membersByHost map[graph.NodeID][]Member,
	syntheticHosts []nodeLike,
) {
	nodeByID := make(map[graph.NodeID]*nodeLike, len(nodes))
	for i := range nodes {
		nodeByID[nodes[i].id] = &nodes[i]
	}

	memberHostByID = make(map[graph.NodeID]graph.NodeID)
	membersByHost = make(map[graph.NodeID][]Member)

	for _, e := range edges {
		if e.Kind != graph.EdgeKindMember {
			continue
		}
		sourceNode, ok := nodeByID[e.Source]
		if !ok {
			continue
		}
		targetNode, ok := nodeByID[e.Target]
		if !ok {
			continue
		}

		sourceStructural := sourceNode.kind.IsStructural()
		targetStructural := targetNode.kind.IsStructural()

		var memberID, hostID graph.NodeID
		var haveMember bool
		switch {
		case sourceStructural && !targetStructural:
			memberID, hostID, haveMember = targetNode.id, sourceNode.id, true
		case !sourceStructural && targetStructural:
			memberID, hostID, haveMember = sourceNode.id, targetNode.id, true
		}
		if !haveMember {
			continue
		}

		memberHostByID[memberID] = hostID
		if hasMember(membersByHost[hostID], memberID) {
			continue
		}
		memberNode := nodeByID[memberID]
		membersByHost[hostID] = append(membersByHost[hostID], Member{
			ID:         memberID,
			Label:      memberNode.label,
			Kind:       memberNode.kind,
			Visibility: inferVisibility(memberNode.kind, memberNode.label),
		})
	}

	hostIDsByLabel := make(map[string]graph.NodeID)
	for _, n := range nodes {
		if n.kind.IsStructural() {
			hostIDsByLabel[n.label] = n.id
		}
	}

	syntheticByID := make(map[graph.NodeID]nodeLike)
	for _, n := range nodes {
		if n.kind.IsStructural() {
			continue
		}
		if _, already := memberHostByID[n.id]; already {
			continue
		}
		idx := strings.Index(n.label, "::")
		if idx <= 0 {
			continue
		}
		hostLabel := n.label[:idx]

		hostID, ok := hostIDsByLabel[hostLabel]
		if !ok {
			hostID = graph.NewNodeID(syntheticHostSeed(hostLabel))
			hostIDsByLabel[hostLabel] = hostID
			if _, exists := syntheticByID[hostID]; !exists {
				depth := n.depth
				if depth > 1 {
					depth--
				} else {
					depth = 1
				}
				syntheticByID[hostID] = nodeLike{
					id:    hostID,
					label: hostLabel,
					kind:  graph.NodeKindClass,
					depth: depth,
				}
			}
		}

		memberHostByID[n.id] = hostID
		if hasMember(membersByHost[hostID], n.id) {
			continue
		}
		membersByHost[hostID] = append(membersByHost[hostID], Member{
			ID:         n.id,
			Label:      n.label,
			Kind:       n.kind,
			Visibility: inferVisibility(n.kind, n.label),
		})
	}

	syntheticIDs := make([]graph.NodeID, 0, len(syntheticByID))
	for id := range syntheticByID {
		syntheticIDs = append(syntheticIDs, id)
	}
	sort.Slice(syntheticIDs, func(i, j int) bool { return syntheticIDs[i] < syntheticIDs[j] })
	for _, id := range syntheticIDs {
		syntheticHosts = append(syntheticHosts, syntheticByID[id])
	}
	return memberHostByID, membersByHost, syntheticHosts
}

func hasMember(members []Member, id graph.NodeID) bool {
	for _, m := range members {
		if m.ID == id {
			return true
		}
	}
	return false
}

// syntheticHostSeed derives a stable canonical-id seed for a host that
// exists only as a qualified-name prefix, e.g. "Field" out of
// "Field::is_draw", slugified the way the grounding source does.
func syntheticHostSeed(hostLabel string) string {
	var slug strings.Builder
	lastDash := false
	for _, r := range strings.TrimSpace(hostLabel) {
		lower := toLowerASCII(r)
		if isAlphanumericASCII(lower) {
			slug.WriteRune(lower)
			lastDash = false
			continue
		}
		if slug.Len() > 0 && !lastDash {
			slug.WriteByte('-')
			lastDash = true
		}
	}
	s := strings.TrimRight(slug.String(), "-")
	if s == "" {
		s = "anonymous"
	}
	return "__synthetic_host__" + s
}

func toLowerASCII(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func isAlphanumericASCII(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// inferVisibility buckets a member by kind first (callables are public,
// data members private), falling back to common private-naming
// conventions (leading/trailing underscore, "m_" prefix) when the kind
// alone doesn't decide it.
func inferVisibility(kind graph.NodeKind, label string) Visibility {
	if isPrivateMemberKind(kind) {
		return VisibilityPrivate
	}
	if isPublicMemberKind(kind) {
		return VisibilityPublic
	}
	if isConventionallyPrivate(label) {
		return VisibilityPrivate
	}
	return VisibilityPublic
}

func isConventionallyPrivate(label string) bool {
	if strings.HasPrefix(label, "_") || strings.HasSuffix(label, "_") {
		return true
	}
	if rest, ok := strings.CutPrefix(label, "m_"); ok && rest != "" {
		c := rune(rest[0])
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			return true
		}
	}
	return false
}

func isPrivateMemberKind(kind graph.NodeKind) bool {
	switch kind {
	case graph.NodeKindField, graph.NodeKindVariable, graph.NodeKindGlobalVariable,
		graph.NodeKindConstant, graph.NodeKindEnumConstant:
		return true
	default:
		return false
	}
}

func isPublicMemberKind(kind graph.NodeKind) bool {
	switch kind {
	case graph.NodeKindFunction, graph.NodeKindMethod, graph.NodeKindMacro:
		return true
	default:
		return false
	}
}

func isCardNodeKind(kind graph.NodeKind) bool {
	return kind.IsStructural() || kind == graph.NodeKindFile
}
