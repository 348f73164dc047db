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

package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codeintel/internal/graph"
)

func newNestingLayouter(direction Direction) *NestingLayouter {
	return &NestingLayouter{
		InnerPadding: DefaultInnerPadding,
		ChildSpacing: DefaultChildSpacing,
		Direction:    direction,
	}
}

func TestNestingLayoutReturnsPositionsAndSizes(t *testing.T) {
	root := graph.NewNodeID("Root")
	child := graph.NewNodeID("Child")

	model := NewModel([]Node{
		{ID: root, Label: "Root", Expanded: true, Children: []graph.NodeID{child}},
		{ID: child, Label: "Child", Parent: root, HasParent: true},
	}, nil)

	layouter := newNestingLayouter(DirectionVertical)
	positions, sizes := layouter.Execute(model)

	assert.Len(t, positions, 2)
	assert.Len(t, sizes, 2)
	assert.Greater(t, sizes[root].Y, sizes[child].Y)
}

func TestNestingLayoutDirectionChangesPrimaryAxis(t *testing.T) {
	a := graph.NewNodeID("A")
	b := graph.NewNodeID("B")

	nodes := []Node{{ID: a, Label: "A"}, {ID: b, Label: "B"}}
	edges := []Edge{{ID: graph.EdgeID(1), Source: a, Target: b, Kind: graph.EdgeKindCall}}

	vertical := newNestingLayouter(DirectionVertical)
	horizontal := newNestingLayouter(DirectionHorizontal)

	vPos, _ := vertical.Execute(NewModel(nodes, edges))
	hPos, _ := horizontal.Execute(NewModel(nodes, edges))

	require.Contains(t, vPos, a)
	require.Contains(t, vPos, b)
	assert.Greater(t, absFloat(vPos[b].Y-vPos[a].Y), 0.1)
	assert.Greater(t, absFloat(hPos[b].X-hPos[a].X), 0.1)
}

func TestNestingLayoutEmptyModelReturnsEmpty(t *testing.T) {
	layouter := newNestingLayouter(DirectionVertical)
	positions, sizes := layouter.Execute(NewModel(nil, nil))
	assert.Empty(t, positions)
	assert.Empty(t, sizes)
}

func TestNestingLayoutIsDeterministic(t *testing.T) {
	host := graph.NewNodeID("Service")
	helper := graph.NewNodeID("Helper")
	worker := graph.NewNodeID("Worker")

	nodes := []Node{{ID: host, Label: "Service"}, {ID: helper, Label: "Helper"}, {ID: worker, Label: "Worker"}}
	edges := []Edge{
		{ID: graph.EdgeID(1), Source: host, Target: helper, Kind: graph.EdgeKindCall},
		{ID: graph.EdgeID(2), Source: host, Target: worker, Kind: graph.EdgeKindCall},
	}

	layouter := newNestingLayouter(DirectionVertical)
	first, _ := layouter.Execute(NewModel(nodes, edges))
	second, _ := layouter.Execute(NewModel(nodes, edges))

	assert.Equal(t, first, second)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
