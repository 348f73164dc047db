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

// sortedNodeIDs returns a model's node ids in a stable order, the
// starting point every alternative layouter uses before doing any
// position math so two runs on the same model always agree.
func sortedNodeIDs(model *Model) []graph.NodeID {
	ids := make([]graph.NodeID, len(model.Nodes))
	for i, n := range model.Nodes {
		ids[i] = n.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func collectSizes(model *Model) map[graph.NodeID]Vec2 {
	sizes := make(map[graph.NodeID]Vec2, len(model.Nodes))
	for _, n := range model.Nodes {
		if n.Size == (Vec2{}) {
			sizes[n.ID] = defaultNodeSize()
		} else {
			sizes[n.ID] = n.Size
		}
	}
	return sizes
}

// ForceDirectedLayouter arranges nodes with a classic spring-embedder:
// connected nodes attract, every pair repels, iterated a fixed number of
// times (Iterations) with no convergence check.
// Unlike NestingLayouter it ignores parent/child nesting and ranks --
// every node is a free particle.
type ForceDirectedLayouter struct {
	Iterations int
	Repulsion  float64
	Attraction float64
}

// NewForceDirectedLayouter returns a layouter with workable defaults.
func NewForceDirectedLayouter() ForceDirectedLayouter {
	return ForceDirectedLayouter{Iterations: 200, Repulsion: 4000.0, Attraction: 0.02}
}

// Execute implements Layouter.
func (f ForceDirectedLayouter) Execute(model *Model) (map[graph.NodeID]Vec2, map[graph.NodeID]Vec2) {
	ids := sortedNodeIDs(model)
	sizes := collectSizes(model)
	positions := make(map[graph.NodeID]Vec2, len(ids))

	// Deterministic starting layout: a circle, seeded purely from index
	// order (no RNG -- invariant #9 applies to every layouter, not just
	// canonicalization).
	n := len(ids)
	for i, id := range ids {
		angle := 2 * math.Pi * float64(i) / math.Max(1, float64(n))
		radius := 200.0 + float64(n)*5.0
		positions[id] = Vec2{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)}
	}
	if n == 0 {
		return positions, sizes
	}

	adjacency := make(map[graph.NodeID][]graph.NodeID)
	for _, e := range model.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		adjacency[e.Target] = append(adjacency[e.Target], e.Source)
	}

	iterations := f.Iterations
	if iterations <= 0 {
		iterations = 1
	}

	for iter := 0; iter < iterations; iter++ {
		forces := make(map[graph.NodeID]Vec2, n)

		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				a, b := ids[i], ids[j]
				pa, pb := positions[a], positions[b]
				dx, dy := pa.X-pb.X, pa.Y-pb.Y
				dist := math.Max(math.Sqrt(dx*dx+dy*dy), 1.0)
				force := f.Repulsion / (dist * dist)
				fx, fy := force*dx/dist, force*dy/dist
				fa := forces[a]
				fa.X += fx
				fa.Y += fy
				forces[a] = fa
				fb := forces[b]
				fb.X -= fx
				fb.Y -= fy
				forces[b] = fb
			}
		}

		for _, e := range model.Edges {
			pa, pb := positions[e.Source], positions[e.Target]
			dx, dy := pb.X-pa.X, pb.Y-pa.Y
			fa := forces[e.Source]
			fa.X += dx * f.Attraction
			fa.Y += dy * f.Attraction
			forces[e.Source] = fa
			fb := forces[e.Target]
			fb.X -= dx * f.Attraction
			fb.Y -= dy * f.Attraction
			forces[e.Target] = fb
		}

		for _, id := range ids {
			p := positions[id]
			fr := forces[id]
			p.X += fr.X
			p.Y += fr.Y
			positions[id] = p
		}
	}

	return positions, sizes
}

// RadialLayouter places a chosen center node at the origin and arranges
// the rest in concentric rings by BFS distance from it, evenly spaced
// around each ring.
type RadialLayouter struct {
	Center     graph.NodeID
	HasCenter  bool
	RingSpacing float64
}

// NewRadialLayouter returns a layouter centered on id.
func NewRadialLayouter(id graph.NodeID) RadialLayouter {
	return RadialLayouter{Center: id, HasCenter: true, RingSpacing: 180.0}
}

// Execute implements Layouter.
func (r RadialLayouter) Execute(model *Model) (map[graph.NodeID]Vec2, map[graph.NodeID]Vec2) {
	sizes := collectSizes(model)
	positions := make(map[graph.NodeID]Vec2)
	ids := sortedNodeIDs(model)
	if len(ids) == 0 {
		return positions, sizes
	}

	center := r.Center
	if !r.HasCenter {
		center = ids[0]
	}

	adjacency := make(map[graph.NodeID][]graph.NodeID)
	for _, e := range model.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		adjacency[e.Target] = append(adjacency[e.Target], e.Source)
	}
	for id := range adjacency {
		sort.Slice(adjacency[id], func(i, j int) bool { return adjacency[id][i] < adjacency[id][j] })
	}

	distance := map[graph.NodeID]int{center: 0}
	queue := []graph.NodeID{center}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, neighbor := range adjacency[current] {
			if _, visited := distance[neighbor]; visited {
				continue
			}
			distance[neighbor] = distance[current] + 1
			queue = append(queue, neighbor)
		}
	}

	maxRing := 0
	for _, id := range ids {
		if d, ok := distance[id]; ok && d > maxRing {
			maxRing = d
		}
	}
	for _, id := range ids {
		if _, ok := distance[id]; !ok {
			maxRing++
			distance[id] = maxRing // unreachable nodes land on their own outer rings
		}
	}

	ringMembers := make(map[int][]graph.NodeID)
	for _, id := range ids {
		ringMembers[distance[id]] = append(ringMembers[distance[id]], id)
	}

	ringSpacing := r.RingSpacing
	if ringSpacing <= 0 {
		ringSpacing = 180.0
	}
	for ring, members := range ringMembers {
		if ring == 0 {
			positions[center] = Vec2{}
			continue
		}
		radius := float64(ring) * ringSpacing
		for i, id := range members {
			angle := 2 * math.Pi * float64(i) / math.Max(1, float64(len(members)))
			positions[id] = Vec2{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)}
		}
	}

	return positions, sizes
}

// GridLayouter packs nodes into a square-ish grid in id order, the
// simplest deterministic layout and a safe fallback when a graph has no
// usable hierarchy or connectivity to key off.
type GridLayouter struct {
	CellSpacing float64
}

// NewGridLayouter returns a layouter with the default cell spacing.
func NewGridLayouter() GridLayouter {
	return GridLayouter{CellSpacing: 40.0}
}

// Execute implements Layouter.
func (g GridLayouter) Execute(model *Model) (map[graph.NodeID]Vec2, map[graph.NodeID]Vec2) {
	sizes := collectSizes(model)
	positions := make(map[graph.NodeID]Vec2, len(model.Nodes))
	ids := sortedNodeIDs(model)
	if len(ids) == 0 {
		return positions, sizes
	}

	cols := int(math.Ceil(math.Sqrt(float64(len(ids)))))
	spacing := g.CellSpacing
	if spacing <= 0 {
		spacing = 40.0
	}

	var cellWidth, cellHeight float64
	for _, size := range sizes {
		if size.X > cellWidth {
			cellWidth = size.X
		}
		if size.Y > cellHeight {
			cellHeight = size.Y
		}
	}
	cellWidth += spacing
	cellHeight += spacing

	for i, id := range ids {
		row, col := i/cols, i%cols
		positions[id] = Vec2{X: float64(col) * cellWidth, Y: float64(row) * cellHeight}
	}

	return positions, sizes
}
