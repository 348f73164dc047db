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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codeintel/internal/graph"
)

func node(label string, kind graph.NodeKind, depth uint32) GraphNode {
	return GraphNode{ID: graph.NewNodeID(label), Label: label, Kind: kind, Depth: depth}
}

func edgeBetween(source, target GraphNode, kind graph.EdgeKind, certainty graph.Certainty) GraphEdge {
	return GraphEdge{
		ID:        graph.NewEdgeID(source.ID, target.ID, kind),
		Source:    source.ID,
		Target:    target.ID,
		Kind:      kind,
		Certainty: certainty,
	}
}

func TestBuildLayoutCenterMemberPromotesHostAndUsesMemberHandles(t *testing.T) {
	workspace := node("WorkspaceIndexer", graph.NodeKindClass, 0)
	run := node("WorkspaceIndexer::run", graph.NodeKindMethod, 0)
	merge := node("Storage::merge", graph.NodeKindMethod, 1)

	nodes := []GraphNode{workspace, run, merge}
	edges := []GraphEdge{
		edgeBetween(workspace, run, graph.EdgeKindMember, graph.CertaintyUnknown),
		edgeBetween(run, merge, graph.EdgeKindCall, graph.CertaintyCertain),
	}

	layout := BuildLayout(run.ID, nodes, edges)

	assert.Equal(t, workspace.ID, layout.CenterNodeID)

	var host *Node
	for i := range layout.Nodes {
		if layout.Nodes[i].ID == workspace.ID {
			host = &layout.Nodes[i]
		}
	}
	require.NotNil(t, host, "expected center host node in the layout")
	assert.True(t, host.Center)
	var sawRunMember bool
	for _, m := range host.Members {
		if m.ID == run.ID {
			sawRunMember = true
		}
	}
	assert.True(t, sawRunMember, "expected center host node to include the focused member")

	var sawFoldedEdge bool
	for _, e := range layout.Edges {
		if e.Kind == graph.EdgeKindCall &&
			e.SourceHandle == fmt.Sprintf("source-member-%d", uint64(run.ID)) &&
			e.TargetHandle == fmt.Sprintf("target-member-%d", uint64(merge.ID)) {
			sawFoldedEdge = true
		}
	}
	assert.True(t, sawFoldedEdge, "expected folded edge handles to reference member endpoints")
}

func TestBuildLayoutDetachedQualifiedMembersCreateSyntheticHost(t *testing.T) {
	run := node("TicTacToe::run", graph.NodeKindFunction, 0)
	isDraw := node("Field::is_draw", graph.NodeKindFunction, 1)
	makeMove := node("Field::make_move", graph.NodeKindFunction, 1)

	nodes := []GraphNode{run, isDraw, makeMove}
	edges := []GraphEdge{
		edgeBetween(run, isDraw, graph.EdgeKindCall, graph.CertaintyUnknown),
		edgeBetween(run, makeMove, graph.EdgeKindCall, graph.CertaintyUnknown),
	}

	layout := BuildLayout(run.ID, nodes, edges)

	var host *Node
	for i := range layout.Nodes {
		if layout.Nodes[i].Label == "Field" {
			host = &layout.Nodes[i]
		}
	}
	require.NotNil(t, host, "expected synthetic host node for detached members")
	assert.Equal(t, graph.NodeKindClass, host.Kind)

	var sawIsDraw, sawMakeMove bool
	for _, m := range host.Members {
		if m.ID == isDraw.ID {
			sawIsDraw = true
		}
		if m.ID == makeMove.ID {
			sawMakeMove = true
		}
	}
	assert.True(t, sawIsDraw)
	assert.True(t, sawMakeMove)
}

func TestBuildLayoutFoldsParallelEdgesAndPreservesSourceEdgeIDs(t *testing.T) {
	runner := node("Runner::run", graph.NodeKindMethod, 0)
	worker := node("Worker::execute", graph.NodeKindMethod, 1)

	first := edgeBetween(runner, worker, graph.EdgeKindCall, graph.CertaintyProbable)
	first.ID = graph.EdgeID(1)
	second := edgeBetween(runner, worker, graph.EdgeKindCall, graph.CertaintyUncertain)
	second.ID = graph.EdgeID(2)

	layout := BuildLayout(runner.ID, []GraphNode{runner, worker}, []GraphEdge{first, second})

	var callEdges []Edge
	for _, e := range layout.Edges {
		if e.Kind == graph.EdgeKindCall {
			callEdges = append(callEdges, e)
		}
	}
	require.Len(t, callEdges, 1)
	folded := callEdges[0]
	assert.EqualValues(t, 2, folded.Multiplicity)
	assert.Equal(t, []graph.EdgeID{first.ID, second.ID}, folded.SourceEdgeIDs)
	assert.Equal(t, graph.CertaintyUncertain, folded.Certainty, "certainty must fold to the least-trusted contributor")
}

func TestBuildLayoutOrderingIsDeterministic(t *testing.T) {
	host := node("Service", graph.NodeKindClass, 0)
	run := node("Service::run", graph.NodeKindMethod, 0)
	helper := node("Helper::assist", graph.NodeKindMethod, 1)
	worker := node("Worker::execute", graph.NodeKindMethod, 1)

	nodes := []GraphNode{host, run, helper, worker}
	edges := []GraphEdge{
		edgeBetween(host, run, graph.EdgeKindMember, graph.CertaintyUnknown),
		edgeBetween(run, helper, graph.EdgeKindCall, graph.CertaintyCertain),
		edgeBetween(run, worker, graph.EdgeKindCall, graph.CertaintyCertain),
	}

	first := BuildLayout(run.ID, nodes, edges)
	second := BuildLayout(run.ID, nodes, edges)

	assert.Equal(t, nodeIDs(first), nodeIDs(second))
	assert.Equal(t, edgeIDs(first), edgeIDs(second))
}

func nodeIDs(l Layout) []graph.NodeID {
	ids := make([]graph.NodeID, len(l.Nodes))
	for i, n := range l.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func edgeIDs(l Layout) []string {
	ids := make([]string, len(l.Edges))
	for i, e := range l.Edges {
		ids[i] = e.ID
	}
	return ids
}

func TestBuildLayoutSchemaVersion(t *testing.T) {
	n := node("Lone", graph.NodeKindFunction, 0)
	layout := BuildLayout(n.ID, []GraphNode{n}, nil)
	assert.Equal(t, 1, layout.SchemaVersion)
}

func TestEstimatedWidthAndHeightClamping(t *testing.T) {
	w := estimatedWidth(graph.NodeKindClass, "X", nil)
	assert.Equal(t, cardWidthMin, w)

	h := estimatedHeight(graph.NodeKindClass, nil)
	assert.Equal(t, cardHeightMin, h)

	pillHeightGot := estimatedHeight(graph.NodeKindFunction, nil)
	assert.Equal(t, pillHeight, pillHeightGot)
}
