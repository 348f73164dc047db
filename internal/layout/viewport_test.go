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
)

func TestIsVisibleSkipsCullingBelowThreshold(t *testing.T) {
	nodeRect := RectFromPosSize(Vec2{X: 10000, Y: 10000}, Vec2{X: 10, Y: 10})
	viewport := RectFromPosSize(Vec2{}, Vec2{X: 100, Y: 100})
	assert.True(t, IsVisible(nodeRect, viewport, ViewportCullThreshold-1))
}

func TestIsVisibleCullsOffscreenNodeAboveThreshold(t *testing.T) {
	nodeRect := RectFromPosSize(Vec2{X: 10000, Y: 10000}, Vec2{X: 10, Y: 10})
	viewport := RectFromPosSize(Vec2{}, Vec2{X: 100, Y: 100})
	assert.False(t, IsVisible(nodeRect, viewport, ViewportCullThreshold+1))
}

func TestIsVisibleKeepsNodeWithinMargin(t *testing.T) {
	nodeRect := RectFromPosSize(Vec2{X: 105, Y: 0}, Vec2{X: 10, Y: 10})
	viewport := RectFromPosSize(Vec2{}, Vec2{X: 100, Y: 100})
	assert.True(t, IsVisible(nodeRect, viewport, ViewportCullThreshold+1))
}

func TestSelectLODPolicy(t *testing.T) {
	cfg := LODConfig{MaxFullNodes: 500, LODSimplifiedZoom: 1.0, LODPointsZoom: 0.3}

	assert.Equal(t, LODDetail, SelectLOD(2.0, 100, cfg))
	assert.Equal(t, LODSimplified, SelectLOD(0.5, 100, cfg))
	assert.Equal(t, LODPointCloud, SelectLOD(0.1, 100, cfg))

	assert.Equal(t, LODSimplified, SelectLOD(2.0, 10000, cfg))
	assert.Equal(t, LODPointCloud, SelectLOD(0.5, 10000, cfg))
}

func TestClampZoom(t *testing.T) {
	assert.Equal(t, 0.1, ClampZoom(0.0))
	assert.Equal(t, 4.0, ClampZoom(10.0))
	assert.Equal(t, 2.0, ClampZoom(2.0))
}
