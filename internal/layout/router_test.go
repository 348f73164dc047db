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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codeintel/internal/graph"
)

func isOnBorder(p Vec2, r Rect, epsilon float64) bool {
	return (math.Abs(p.X-r.Min.X) < epsilon && p.Y >= r.Min.Y-epsilon && p.Y <= r.Max.Y+epsilon) ||
		(math.Abs(p.X-r.Max.X) < epsilon && p.Y >= r.Min.Y-epsilon && p.Y <= r.Max.Y+epsilon) ||
		(math.Abs(p.Y-r.Min.Y) < epsilon && p.X >= r.Min.X-epsilon && p.X <= r.Max.X+epsilon) ||
		(math.Abs(p.Y-r.Max.Y) < epsilon && p.X >= r.Min.X-epsilon && p.X <= r.Max.X+epsilon)
}

func TestCalculateAnchorLandsOnBorderForExternalTarget(t *testing.T) {
	router := NewEdgeRouter()
	rect := RectFromPosSize(Vec2{X: 100, Y: 100}, Vec2{X: 60, Y: 40})
	target := Vec2{X: 500, Y: 500}

	anchor := router.CalculateAnchor(rect, target)
	assert.True(t, isOnBorder(anchor, rect, 0.1), "anchor %+v should sit on the border of %+v", anchor, rect)
}

func TestCalculateAnchorReturnsCenterForCoincidentTarget(t *testing.T) {
	router := NewEdgeRouter()
	rect := RectFromPosSize(Vec2{X: 0, Y: 0}, Vec2{X: 40, Y: 40})
	anchor := router.CalculateAnchor(rect, rect.Center())
	assert.Equal(t, rect.Center(), anchor)
}

func TestRouteEdgeMatchesIndependentAnchorCalculation(t *testing.T) {
	router := NewEdgeRouter()
	source := RectFromPosSize(Vec2{X: 0, Y: 0}, Vec2{X: 60, Y: 30})
	target := RectFromPosSize(Vec2{X: 400, Y: 300}, Vec2{X: 60, Y: 30})

	curve := router.RouteEdge(source, target)

	expectedStart := router.CalculateAnchor(source, target.Center())
	expectedEnd := router.CalculateAnchor(target, source.Center())

	assert.InDelta(t, expectedStart.X, curve.Start.X, 0.001)
	assert.InDelta(t, expectedStart.Y, curve.Start.Y, 0.001)
	assert.InDelta(t, expectedEnd.X, curve.End.X, 0.001)
	assert.InDelta(t, expectedEnd.Y, curve.End.Y, 0.001)
}

func TestCubicBezierSampleEndpoints(t *testing.T) {
	curve := CubicBezier{
		Start:    Vec2{X: 0, Y: 0},
		Control1: Vec2{X: 10, Y: 0},
		Control2: Vec2{X: 20, Y: 10},
		End:      Vec2{X: 30, Y: 10},
	}
	assert.Equal(t, curve.Start, curve.Sample(0))
	assert.Equal(t, curve.End, curve.Sample(1))
}

func TestCubicBezierPointDistanceZeroOnCurve(t *testing.T) {
	curve := CubicBezier{
		Start:    Vec2{X: 0, Y: 0},
		Control1: Vec2{X: 10, Y: 0},
		Control2: Vec2{X: 20, Y: 10},
		End:      Vec2{X: 30, Y: 10},
	}
	dist := curve.PointDistance(curve.Sample(0.5), DefaultBezierSamples)
	assert.Less(t, dist, 1.0)
}

func TestBundleEdgesAppliesThreshold(t *testing.T) {
	a, b, c, d := graph.NewNodeID("A"), graph.NewNodeID("B"), graph.NewNodeID("C"), graph.NewNodeID("D")
	router := NewEdgeRouter()

	descriptors := []EdgeDescriptor{
		{ID: graph.EdgeID(1), SourceNode: a, TargetNode: b, Kind: graph.EdgeKindCall, SourceLabel: "A", TargetLabel: "B"},
		{ID: graph.EdgeID(2), SourceNode: a, TargetNode: b, Kind: graph.EdgeKindUsage, SourceLabel: "A", TargetLabel: "B"},
		{ID: graph.EdgeID(3), SourceNode: a, TargetNode: b, Kind: graph.EdgeKindTypeUsage, SourceLabel: "A", TargetLabel: "B"},
		{ID: graph.EdgeID(4), SourceNode: c, TargetNode: d, Kind: graph.EdgeKindCall, SourceLabel: "C", TargetLabel: "D"},
	}

	result := router.BundleEdges(descriptors)

	require.Len(t, result.Bundles, 1)
	assert.Len(t, result.Bundles[0].EdgeIDs, 3)
	assert.InDelta(t, bundleThickness(3), result.Bundles[0].Thickness, 0.0001)
	require.Len(t, result.Unbundled, 1)
	assert.Equal(t, graph.EdgeID(4), result.Unbundled[0].ID)
}

func TestBundleThicknessClamped(t *testing.T) {
	assert.Equal(t, 1.0, bundleThickness(1))
	assert.Equal(t, 6.0, bundleThickness(1000))
}
