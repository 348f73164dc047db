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

// ViewportCullThreshold is the node count below which culling is
// skipped entirely -- a small graph is cheaper to draw in full than to
// test for visibility (§4.8).
const ViewportCullThreshold = 50

// ViewportCullMargin expands the viewport rect before testing a node's
// visibility, so a node just offscreen doesn't visibly pop in in the
// single frame it takes to pan past the cull boundary.
const ViewportCullMargin = 100.0

// IsVisible reports whether nodeRect should be drawn this frame. Below
// ViewportCullThreshold every node is visible regardless of position;
// above it, a node is visible iff its rect intersects the viewport
// expanded by ViewportCullMargin.
func IsVisible(nodeRect, viewport Rect, totalNodeCount int) bool {
	if totalNodeCount < ViewportCullThreshold {
		return true
	}
	return nodeRect.Intersects(viewport.Expand(ViewportCullMargin))
}

// LODMode is the level of detail a frame renders a node at.
type LODMode int

const (
	LODDetail LODMode = iota
	LODSimplified
	LODPointCloud
)

// LODConfig carries the zoom thresholds and node-count ceiling that
// drive LOD selection; callers load these from workspace configuration.
type LODConfig struct {
	MaxFullNodes      int
	LODSimplifiedZoom float64
	LODPointsZoom     float64
}

// SelectLOD picks a render mode as a pure function of the current zoom,
// the graph's node count, and configured thresholds (§4.8):
//
//   - Above MaxFullNodes, the graph never renders at full detail: it's
//     Simplified above LODSimplifiedZoom, PointCloud below it.
//   - Otherwise detail scales normally with zoom: PointCloud below
//     LODPointsZoom, Simplified below LODSimplifiedZoom, Detail above.
func SelectLOD(zoom float64, nodeCount int, cfg LODConfig) LODMode {
	if nodeCount > cfg.MaxFullNodes {
		if zoom > cfg.LODSimplifiedZoom {
			return LODSimplified
		}
		return LODPointCloud
	}
	switch {
	case zoom < cfg.LODPointsZoom:
		return LODPointCloud
	case zoom < cfg.LODSimplifiedZoom:
		return LODSimplified
	default:
		return LODDetail
	}
}
