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
	"sort"

	"github.com/kraklabs/codeintel/internal/graph"
)

// EdgeBundler groups a model's edges by (source, target) so a renderer
// can draw one line per parallel group instead of several overlapping
// ones. Every endpoint pair becomes a group, whether it holds one edge
// or several; EdgeRouter.BundleEdges is the threshold-gated pass that
// decides whether a group is drawn as a single thick bundle or left
// expanded.
type EdgeBundler struct{}

// BundleEdges groups model.Edges by endpoint pair, returning the edge ids
// of every group. Group order is deterministic: sorted by (source, target).
func (EdgeBundler) BundleEdges(model *Model) [][]graph.EdgeID {
	type key struct {
		source, target graph.NodeID
	}
	groups := make(map[key][]graph.EdgeID)
	var order []key
	for _, e := range model.Edges {
		k := key{e.Source, e.Target}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e.ID)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].source != order[j].source {
			return order[i].source < order[j].source
		}
		return order[i].target < order[j].target
	})

	bundles := make([][]graph.EdgeID, 0, len(order))
	for _, k := range order {
		bundles = append(bundles, groups[k])
	}
	return bundles
}
