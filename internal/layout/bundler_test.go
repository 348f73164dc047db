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

	"github.com/kraklabs/codeintel/internal/graph"
)

func TestEdgeBundlerGroupsParallelEdges(t *testing.T) {
	a := graph.NewNodeID("A")
	b := graph.NewNodeID("B")

	model := NewModel(
		[]Node{{ID: a, Label: "A"}, {ID: b, Label: "B"}},
		[]Edge{
			{ID: graph.EdgeID(1), Source: a, Target: b, Kind: graph.EdgeKindCall},
			{ID: graph.EdgeID(2), Source: a, Target: b, Kind: graph.EdgeKindUsage},
		},
	)

	bundles := EdgeBundler{}.BundleEdges(model)

	assert.Len(t, bundles, 1)
	assert.Len(t, bundles[0], 2)
}

func TestEdgeBundlerSeparatesDistinctPairs(t *testing.T) {
	a, b, c := graph.NewNodeID("A"), graph.NewNodeID("B"), graph.NewNodeID("C")

	model := NewModel(
		[]Node{{ID: a}, {ID: b}, {ID: c}},
		[]Edge{
			{ID: graph.EdgeID(1), Source: a, Target: b, Kind: graph.EdgeKindCall},
			{ID: graph.EdgeID(2), Source: a, Target: c, Kind: graph.EdgeKindCall},
		},
	)

	bundles := EdgeBundler{}.BundleEdges(model)
	assert.Len(t, bundles, 2)
}
