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
	"sort"

	"github.com/kraklabs/codeintel/internal/graph"
)

// BundleThreshold is the minimum number of parallel edges between the
// same source/target before EdgeRouter.BundleEdges merges them into a
// single EdgeBundleGroup (§4.7, Property 10).
const BundleThreshold = 3

// EdgeDescriptor is one edge considered for bundling.
type EdgeDescriptor struct {
	ID           graph.EdgeID
	SourceNode   graph.NodeID
	TargetNode   graph.NodeID
	Kind         graph.EdgeKind
	SourceLabel  string
	TargetLabel  string
}

// EdgeBundleGroup is a set of parallel edges collapsed into one drawn
// bundle, along with the relationship summary a tooltip would show.
type EdgeBundleGroup struct {
	SourceNode    graph.NodeID
	TargetNode    graph.NodeID
	EdgeIDs       []graph.EdgeID
	Kinds         []graph.EdgeKind
	Relationships [][3]string // (source label, target label, kind name)
	// Thickness is the line weight a renderer should use for the bundle:
	// clamp(log2(count)+1, 1, 6).
	Thickness float64
}

// BundleResult separates edges that met BundleThreshold from the ones
// left to render individually.
type BundleResult struct {
	Bundles   []EdgeBundleGroup
	Unbundled []EdgeDescriptor
}

// CubicBezier is a four-point bezier curve segment.
type CubicBezier struct {
	Start, Control1, Control2, End Vec2
}

// Sample evaluates the curve at parameter t in [0, 1].
func (c CubicBezier) Sample(t float64) Vec2 {
	t2 := t * t
	t3 := t2 * t
	mt := 1 - t
	mt2 := mt * mt
	mt3 := mt2 * mt

	x := c.Start.X*mt3 + 3*c.Control1.X*mt2*t + 3*c.Control2.X*mt*t2 + c.End.X*t3
	y := c.Start.Y*mt3 + 3*c.Control1.Y*mt2*t + 3*c.Control2.Y*mt*t2 + c.End.Y*t3
	return Vec2{X: x, Y: y}
}

// PointDistance returns the minimum distance from point to the curve,
// approximated by uniform sampling (numSamples, floored at 2).
func (c CubicBezier) PointDistance(point Vec2, numSamples int) float64 {
	if numSamples < 2 {
		numSamples = 2
	}
	minDistSq := math.Inf(1)
	for i := 0; i <= numSamples; i++ {
		t := float64(i) / float64(numSamples)
		p := c.Sample(t)
		dx, dy := p.X-point.X, p.Y-point.Y
		if distSq := dx*dx + dy*dy; distSq < minDistSq {
			minDistSq = distSq
		}
	}
	return math.Sqrt(minDistSq)
}

// DefaultBezierSamples is the sample count used for hit-testing when the
// caller doesn't need a different accuracy/speed tradeoff.
const DefaultBezierSamples = 64

// EdgeRouter computes anchor points and bezier routes between node (or
// member) rectangles, and bundles parallel edges for rendering.
type EdgeRouter struct {
	// NodeMargin is the minimum control-point offset, keeping curves from
	// collapsing into straight lines between very close nodes.
	NodeMargin float64
	// Curvature scales how far control points are pulled from their
	// anchors, relative to the anchors' directional distance.
	Curvature float64
}

// NewEdgeRouter returns a router with the default margin and curvature.
func NewEdgeRouter() EdgeRouter {
	return EdgeRouter{NodeMargin: 20.0, Curvature: 0.5}
}

// maxControlLen bounds control-point offset so edges between distant
// nodes don't swing wildly outside the viewport.
const maxControlLen = 260.0

// RouteEdge computes a cubic bezier route between two rectangles' best
// anchor points.
func (r EdgeRouter) RouteEdge(sourceRect, targetRect Rect) CubicBezier {
	start := r.CalculateAnchor(sourceRect, targetRect.Center())
	end := r.CalculateAnchor(targetRect, sourceRect.Center())
	return r.calculateCurve(start, end, sourceRect, targetRect)
}

func (r EdgeRouter) calculateCurve(start, end Vec2, sourceRect, targetRect Rect) CubicBezier {
	dx := math.Abs(end.X - start.X)
	dy := math.Abs(end.Y - start.Y)
	// Directionally-biased distance: keeps curves stable when nodes are
	// far apart vertically but close horizontally.
	primaryDist := math.Max(dx, dy*0.5)

	controlDist := primaryDist * r.Curvature

	startDir := r.getNormalDirection(start, sourceRect)
	endDir := r.getNormalDirection(end, targetRect)

	var curveLen float64
	if primaryDist < r.NodeMargin*2 {
		curveLen = controlDist
	} else {
		curveLen = math.Max(controlDist, r.NodeMargin)
	}
	if math.IsInf(curveLen, 0) || math.IsNaN(curveLen) {
		curveLen = math.Min(r.NodeMargin, maxControlLen)
	} else {
		curveLen = math.Min(curveLen, maxControlLen)
	}

	control1 := Vec2{X: start.X + startDir.X*curveLen, Y: start.Y + startDir.Y*curveLen}
	control2 := Vec2{X: end.X + endDir.X*curveLen, Y: end.Y + endDir.Y*curveLen}

	return CubicBezier{Start: start, Control1: control1, Control2: control2, End: end}
}

// CalculateAnchor finds the point on rect's border best connecting it to
// target_center, by ray-casting from rect's center toward the target and
// taking the smallest positive intersection parameter that lands on a
// side within bounds. If target_center is effectively at rect's center,
// the center itself is returned (no well-defined direction to cast).
func (r EdgeRouter) CalculateAnchor(rect Rect, targetCenter Vec2) Vec2 {
	center := rect.Center()
	vec := Vec2{X: targetCenter.X - center.X, Y: targetCenter.Y - center.Y}

	if vec.X*vec.X+vec.Y*vec.Y < 1.0 {
		return center
	}

	tMin := math.Inf(1)

	checkT := func(t, start, dir, min, max float64) (float64, bool) {
		if t > 0 {
			pos := start + t*dir
			if pos >= min && pos <= max {
				return t, true
			}
		}
		return 0, false
	}

	if math.Abs(vec.X) > 0.001 {
		tLeft := (rect.Min.X - center.X) / vec.X
		if t, ok := checkT(tLeft, center.Y, vec.Y, rect.Min.Y, rect.Max.Y); ok && t < tMin {
			tMin = t
		}
		tRight := (rect.Max.X - center.X) / vec.X
		if t, ok := checkT(tRight, center.Y, vec.Y, rect.Min.Y, rect.Max.Y); ok && t < tMin {
			tMin = t
		}
	}

	if math.Abs(vec.Y) > 0.001 {
		tTop := (rect.Min.Y - center.Y) / vec.Y
		if t, ok := checkT(tTop, center.X, vec.X, rect.Min.X, rect.Max.X); ok && t < tMin {
			tMin = t
		}
		tBottom := (rect.Max.Y - center.Y) / vec.Y
		if t, ok := checkT(tBottom, center.X, vec.X, rect.Min.X, rect.Max.X); ok && t < tMin {
			tMin = t
		}
	}

	if math.IsInf(tMin, 1) {
		return center
	}

	return Vec2{X: center.X + vec.X*tMin, Y: center.Y + vec.Y*tMin}
}

// getNormalDirection approximates the outward normal at point on rect's
// border, picking whichever side point is closest to. Ties favor
// left/right/top/bottom in that order, matching the ray-cast's own side
// preference.
func (r EdgeRouter) getNormalDirection(point Vec2, rect Rect) Vec2 {
	dl := math.Abs(point.X - rect.Min.X)
	dr := math.Abs(point.X - rect.Max.X)
	dt := math.Abs(point.Y - rect.Min.Y)
	db := math.Abs(point.Y - rect.Max.Y)

	switch {
	case dl <= dr && dl <= dt && dl <= db:
		return Vec2{X: -1, Y: 0}
	case dr <= dl && dr <= dt && dr <= db:
		return Vec2{X: 1, Y: 0}
	case dt <= dl && dt <= dr && dt <= db:
		return Vec2{X: 0, Y: -1}
	default:
		return Vec2{X: 0, Y: 1}
	}
}

// BundleEdges groups descriptors by (source_node, target_node); groups
// meeting BundleThreshold become a single EdgeBundleGroup with a
// log-scaled thickness, the rest pass through unbundled.
func (r EdgeRouter) BundleEdges(edges []EdgeDescriptor) BundleResult {
	type key struct {
		source, target graph.NodeID
	}
	groups := make(map[key][]EdgeDescriptor)
	var order []key
	for _, e := range edges {
		k := key{e.SourceNode, e.TargetNode}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].source != order[j].source {
			return order[i].source < order[j].source
		}
		return order[i].target < order[j].target
	})

	var result BundleResult
	for _, k := range order {
		group := groups[k]
		if len(group) >= BundleThreshold {
			edgeIDs := make([]graph.EdgeID, len(group))
			kinds := make([]graph.EdgeKind, len(group))
			relationships := make([][3]string, len(group))
			for i, e := range group {
				edgeIDs[i] = e.ID
				kinds[i] = e.Kind
				relationships[i] = [3]string{e.SourceLabel, e.TargetLabel, e.Kind.String()}
			}
			result.Bundles = append(result.Bundles, EdgeBundleGroup{
				SourceNode:    k.source,
				TargetNode:    k.target,
				EdgeIDs:       edgeIDs,
				Kinds:         kinds,
				Relationships: relationships,
				Thickness:     bundleThickness(len(group)),
			})
		} else {
			result.Unbundled = append(result.Unbundled, group...)
		}
	}
	return result
}

// bundleThickness implements §4.7's clamp(log2(count)+1, 1, 6).
func bundleThickness(count int) float64 {
	return clampFloat(math.Log2(float64(count))+1, 1, 6)
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
