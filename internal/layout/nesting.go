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
	"log/slog"
	"math"
	"sort"

	"github.com/kraklabs/codeintel/internal/graph"
)

// NestingLayouter is the default hierarchical engine (§4.7): root nodes
// (no parent) are ranked by a bounded fix-point over the flow edges
// between them, ordered within a rank by two barycenter sweeps, and
// placed with their member-hoisted subtrees sized bottom-up. A weak
// force-directed pass then nudges roots apart along the secondary axis
// without disturbing rank order.
type NestingLayouter struct {
	// InnerPadding is the gap between a container's border and its
	// first/last child.
	InnerPadding float64
	// ChildSpacing is the gap between sibling children.
	ChildSpacing float64
	// Direction is the layout's primary flow axis.
	Direction Direction

	Logger *slog.Logger
}

const (
	// DefaultInnerPadding is the padding used when none is configured.
	DefaultInnerPadding = 10.0
	// DefaultChildSpacing is the sibling gap used when none is configured.
	DefaultChildSpacing = 5.0

	maxNestingDepth       = 100
	maxRankingIterations  = 1000
	forceDirectedIterations = 5
)

func (l *NestingLayouter) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

type rootRelations struct {
	rootEdges [][2]graph.NodeID
	incoming  map[graph.NodeID][]graph.NodeID
	outgoing  map[graph.NodeID][]graph.NodeID
}

func rootNodes(model *Model) []graph.NodeID {
	var roots []graph.NodeID
	for _, n := range model.Nodes {
		if !n.HasParent {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// resolveRootCached walks a node's parent chain to its ultimate root,
// memoizing every node visited along the way. A parent cycle (malformed
// input) falls back to treating the cycle's entry point as its own root
// rather than looping forever.
func resolveRootCached(model *Model, start graph.NodeID, cache map[graph.NodeID]graph.NodeID) graph.NodeID {
	if cached, ok := cache[start]; ok {
		return cached
	}

	var trail []graph.NodeID
	seen := make(map[graph.NodeID]bool)
	current := start

	for {
		if cached, ok := cache[current]; ok {
			for _, id := range trail {
				cache[id] = cached
			}
			return cached
		}
		if seen[current] {
			for _, id := range trail {
				cache[id] = current
			}
			return current
		}
		seen[current] = true
		trail = append(trail, current)

		node, ok := model.Node(current)
		if !ok || !node.HasParent {
			for _, id := range trail {
				cache[id] = current
			}
			return current
		}
		current = node.Parent
	}
}

func buildNodeRoots(model *Model) map[graph.NodeID]graph.NodeID {
	nodeRoots := make(map[graph.NodeID]graph.NodeID, len(model.Nodes))
	for _, n := range model.Nodes {
		nodeRoots[n.ID] = resolveRootCached(model, n.ID, nodeRoots)
	}
	return nodeRoots
}

func buildRootRelations(model *Model, nodeRoots map[graph.NodeID]graph.NodeID) rootRelations {
	rel := rootRelations{incoming: make(map[graph.NodeID][]graph.NodeID), outgoing: make(map[graph.NodeID][]graph.NodeID)}
	for _, e := range model.Edges {
		sourceRoot, ok := nodeRoots[e.Source]
		if !ok {
			continue
		}
		targetRoot, ok := nodeRoots[e.Target]
		if !ok {
			continue
		}
		if sourceRoot == targetRoot {
			continue
		}
		rel.rootEdges = append(rel.rootEdges, [2]graph.NodeID{sourceRoot, targetRoot})
		rel.incoming[targetRoot] = append(rel.incoming[targetRoot], sourceRoot)
		rel.outgoing[sourceRoot] = append(rel.outgoing[sourceRoot], targetRoot)
	}
	return rel
}

func (l *NestingLayouter) assignRootRanks(roots []graph.NodeID, rel rootRelations) map[graph.NodeID]int32 {
	ranks := make(map[graph.NodeID]int32, len(roots))
	for _, n := range roots {
		ranks[n] = 0
	}

	iterations := len(roots) + 2
	if iterations > maxRankingIterations {
		iterations = maxRankingIterations
	}
	converged := false
	for i := 0; i < iterations; i++ {
		changed := false
		for _, pair := range rel.rootEdges {
			sourceRank, sourceOK := ranks[pair[0]]
			targetRank, targetOK := ranks[pair[1]]
			if sourceOK && targetOK && targetRank <= sourceRank {
				ranks[pair[1]] = sourceRank + 1
				changed = true
			}
		}
		if !changed {
			converged = true
			break
		}
	}
	if !converged {
		l.logger().Warn("root node ranking did not converge", "iterations", iterations)
	}

	compressRanks(ranks)
	return ranks
}

// compressRanks remaps a sparse, possibly-gapped rank set onto the dense
// range 0..k so placement spacing stays uniform.
func compressRanks(ranks map[graph.NodeID]int32) {
	if len(ranks) == 0 {
		return
	}
	unique := make([]int32, 0, len(ranks))
	seen := make(map[int32]bool)
	for _, r := range ranks {
		if !seen[r] {
			seen[r] = true
			unique = append(unique, r)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

	remap := make(map[int32]int32, len(unique))
	for i, r := range unique {
		remap[r] = int32(i)
	}
	for id, r := range ranks {
		ranks[id] = remap[r]
	}
}

func buildLayers(model *Model, ranks map[graph.NodeID]int32) map[int32][]graph.NodeID {
	layers := make(map[int32][]graph.NodeID)
	for id, rank := range ranks {
		layers[rank] = append(layers[rank], id)
	}
	labelOf := make(map[graph.NodeID]string, len(model.Nodes))
	for _, n := range model.Nodes {
		labelOf[n.ID] = n.Label
	}
	for _, nodes := range layers {
		sort.Slice(nodes, func(i, j int) bool {
			li, lj := labelOf[nodes[i]], labelOf[nodes[j]]
			if li != lj {
				return li < lj
			}
			return nodes[i] < nodes[j]
		})
	}
	return layers
}

func sortedRanks(layers map[int32][]graph.NodeID) []int32 {
	ranks := make([]int32, 0, len(layers))
	for r := range layers {
		ranks = append(ranks, r)
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] < ranks[j] })
	return ranks
}

// spacingForRootCount implements §4.7's (tiny<=4, small<=12, otherwise)
// table for barycenter, layer, and node spacing.
func spacingForRootCount(rootCount int) (barycenterSpacing, layerSpacing, nodeSpacing float64) {
	tiny := rootCount <= 4
	small := rootCount <= 12

	switch {
	case tiny:
		return 80.0, 120.0, 60.0
	case small:
		return 100.0, 160.0, 80.0
	default:
		return 150.0, 300.0, 150.0
	}
}

func initializeLayerCoords(layers map[int32][]graph.NodeID, ranks []int32, barycenterSpacing float64) map[graph.NodeID]float64 {
	coords := make(map[graph.NodeID]float64)
	for _, rank := range ranks {
		for j, id := range layers[rank] {
			coords[id] = float64(j) * barycenterSpacing
		}
	}
	return coords
}

func orderLayerByBarycenter(layerNodes []graph.NodeID, coords map[graph.NodeID]float64, neighborsByRoot map[graph.NodeID][]graph.NodeID) {
	barycenters := make(map[graph.NodeID]float64, len(layerNodes))
	for _, id := range layerNodes {
		var sum float64
		var count int
		for _, neighbor := range neighborsByRoot[id] {
			if coord, ok := coords[neighbor]; ok {
				sum += coord
				count++
			}
		}
		if count > 0 {
			barycenters[id] = sum / float64(count)
		} else {
			barycenters[id] = coords[id]
		}
	}
	sort.SliceStable(layerNodes, func(i, j int) bool {
		return barycenters[layerNodes[i]] < barycenters[layerNodes[j]]
	})
}

func runBarycenterPasses(layers map[int32][]graph.NodeID, ranks []int32, coords map[graph.NodeID]float64, rel rootRelations, barycenterSpacing float64) {
	for pass := 0; pass < 2; pass++ {
		for _, rank := range ranks[1:] {
			layerNodes := layers[rank]
			orderLayerByBarycenter(layerNodes, coords, rel.incoming)
			for j, id := range layerNodes {
				coords[id] = float64(j) * barycenterSpacing
			}
		}
		for i := len(ranks) - 2; i >= 0; i-- {
			rank := ranks[i]
			layerNodes := layers[rank]
			orderLayerByBarycenter(layerNodes, coords, rel.outgoing)
			for j, id := range layerNodes {
				coords[id] = float64(j) * barycenterSpacing
			}
		}
	}
}

// computeSubtreeSize sizes a node bottom-up: collapsed or childless
// nodes use their own size; expanded containers stack (LIST) or pack
// (GRID, ceil(sqrt(n)) columns) their children. Depth is bounded to
// avoid a stack blow-up on a malformed cyclic parent chain.
func (l *NestingLayouter) computeSubtreeSize(model *Model, sizes map[graph.NodeID]Vec2, id graph.NodeID, depth int) Vec2 {
	if depth > maxNestingDepth {
		node, ok := model.Node(id)
		fallback := defaultNodeSize()
		if ok {
			fallback = node.Size
		}
		l.logger().Warn("maximum nesting depth exceeded", "depth", maxNestingDepth, "node", id)
		sizes[id] = fallback
		return fallback
	}
	if size, ok := sizes[id]; ok {
		return size
	}

	node, ok := model.Node(id)
	if !ok {
		return defaultNodeSize()
	}
	if !node.Expanded || len(node.Children) == 0 {
		sizes[id] = node.Size
		return node.Size
	}

	var final Vec2
	switch node.Group {
	case GroupList:
		currentY := 30.0 + l.InnerPadding
		maxWidth := node.Size.X
		for _, childID := range node.Children {
			childSize := l.computeSubtreeSize(model, sizes, childID, depth+1)
			currentY += childSize.Y + l.ChildSpacing
			if w := childSize.X + 2*l.InnerPadding; w > maxWidth {
				maxWidth = w
			}
		}
		final = Vec2{X: maxWidth, Y: math.Max(currentY+l.InnerPadding, node.Size.Y)}
	case GroupGrid:
		childCount := len(node.Children)
		cols := int(math.Ceil(math.Sqrt(float64(childCount))))
		currentX := l.InnerPadding
		currentY := 30.0 + l.InnerPadding
		rowMaxHeight := 0.0
		contentWidth := 0.0
		for i, childID := range node.Children {
			if i > 0 && cols > 0 && i%cols == 0 {
				currentX = l.InnerPadding
				currentY += rowMaxHeight + l.ChildSpacing
				rowMaxHeight = 0.0
			}
			childSize := l.computeSubtreeSize(model, sizes, childID, depth+1)
			currentX += childSize.X + l.ChildSpacing
			if childSize.Y > rowMaxHeight {
				rowMaxHeight = childSize.Y
			}
			if currentX > contentWidth {
				contentWidth = currentX
			}
		}
		currentY += rowMaxHeight
		final = Vec2{
			X: math.Max(contentWidth, node.Size.X) + l.InnerPadding,
			Y: math.Max(currentY+l.InnerPadding, node.Size.Y),
		}
	}
	sizes[id] = final
	return final
}

// precomputeSizes sizes every root's subtree. The teacher's Rust original
// fans this out over a rayon thread pool per root and re-merges in a
// sorted order for determinism; roots here are independent anyway and
// the workloads are small, so a single deterministic pass is equivalent
// without paying goroutine setup cost for what is typically a handful of
// roots.
func (l *NestingLayouter) precomputeSizes(model *Model, roots []graph.NodeID) (sizes map[graph.NodeID]Vec2, rootSizes map[graph.NodeID]Vec2) {
	sizes = make(map[graph.NodeID]Vec2, len(model.Nodes))
	rootSizes = make(map[graph.NodeID]Vec2, len(roots))
	sortedRoots := append([]graph.NodeID(nil), roots...)
	sort.Slice(sortedRoots, func(i, j int) bool { return sortedRoots[i] < sortedRoots[j] })
	for _, root := range sortedRoots {
		rootSizes[root] = l.computeSubtreeSize(model, sizes, root, 0)
	}
	return sizes, rootSizes
}

func (l *NestingLayouter) placeSubtree(model *Model, id graph.NodeID, x, y float64, positions map[graph.NodeID]Vec2, sizes map[graph.NodeID]Vec2) {
	positions[id] = Vec2{X: x, Y: y}

	node, ok := model.Node(id)
	if !ok || !node.Expanded || len(node.Children) == 0 {
		return
	}

	startY := y + 30.0 + l.InnerPadding

	switch node.Group {
	case GroupList:
		currentY := startY
		for _, childID := range node.Children {
			l.placeSubtree(model, childID, x+l.InnerPadding, currentY, positions, sizes)
			childSize := sizeOrDefault(sizes, childID)
			currentY += childSize.Y + l.ChildSpacing
		}
	case GroupGrid:
		childCount := len(node.Children)
		cols := int(math.Ceil(math.Sqrt(float64(childCount))))
		currentX := x + l.InnerPadding
		currentY := startY
		rowMaxHeight := 0.0
		for i, childID := range node.Children {
			if i > 0 && cols > 0 && i%cols == 0 {
				currentX = x + l.InnerPadding
				currentY += rowMaxHeight + l.ChildSpacing
				rowMaxHeight = 0.0
			}
			l.placeSubtree(model, childID, currentX, currentY, positions, sizes)
			childSize := sizeOrDefault(sizes, childID)
			currentX += childSize.X + l.ChildSpacing
			if childSize.Y > rowMaxHeight {
				rowMaxHeight = childSize.Y
			}
		}
	}
}

func sizeOrDefault(sizes map[graph.NodeID]Vec2, id graph.NodeID) Vec2 {
	if s, ok := sizes[id]; ok {
		return s
	}
	return defaultNodeSize()
}

func (l *NestingLayouter) layerExtent(layerNodes []graph.NodeID, rootSizes map[graph.NodeID]Vec2, nodeSpacing float64) float64 {
	var base float64
	for _, id := range layerNodes {
		size := sizeOrDefault(rootSizes, id)
		if l.Direction == DirectionVertical {
			base += size.X
		} else {
			base += size.Y
		}
	}
	gaps := len(layerNodes) - 1
	if gaps < 0 {
		gaps = 0
	}
	return base + float64(gaps)*nodeSpacing
}

func (l *NestingLayouter) placeRootsInLayers(
	model *Model,
	layers map[int32][]graph.NodeID,
	ranks []int32,
	rootSizes map[graph.NodeID]Vec2,
	sizes map[graph.NodeID]Vec2,
	positions map[graph.NodeID]Vec2,
	layerSpacing, nodeSpacing float64,
) {
	for _, rank := range ranks {
		layerNodes, ok := layers[rank]
		if !ok {
			continue
		}
		extent := l.layerExtent(layerNodes, rootSizes, nodeSpacing)
		currentOffset := -extent / 2.0
		rankPos := float64(rank) * layerSpacing

		for _, id := range layerNodes {
			rootSize := sizeOrDefault(rootSizes, id)
			if l.Direction == DirectionVertical {
				l.placeSubtree(model, id, currentOffset, rankPos, positions, sizes)
				currentOffset += rootSize.X + nodeSpacing
			} else {
				l.placeSubtree(model, id, rankPos, currentOffset, positions, sizes)
				currentOffset += rootSize.Y + nodeSpacing
			}
		}
	}
}

// applyForceDirected nudges overlapping nodes apart along the layout's
// secondary axis only, so rank order (the primary axis) never shifts.
// The Rust original applies this nudge to the X axis unconditionally,
// which is correct for Vertical layouts but a no-op for Horizontal ones
// (it never touches Y). Generalized here to whichever axis is actually
// secondary for the configured Direction, matching §4.7's description
// ("secondary axis only") for both directions rather than reproducing
// that asymmetry.
func (l *NestingLayouter) applyForceDirected(positions map[graph.NodeID]Vec2, sizes map[graph.NodeID]Vec2, model *Model, iterations int) {
	const (
		repulsionStrength = 500.0
		minDistance       = 20.0
		damping           = 0.3
	)

	ids := make([]graph.NodeID, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) == 0 {
		return
	}

	parents := make([]graph.NodeID, len(ids))
	hasParent := make([]bool, len(ids))
	nodeSizes := make([]Vec2, len(ids))
	for i, id := range ids {
		if node, ok := model.Node(id); ok {
			parents[i], hasParent[i] = node.Parent, node.HasParent
		}
		nodeSizes[i] = sizeOrDefault(sizes, id)
	}

	for iter := 0; iter < iterations; iter++ {
		forces := make([]float64, len(ids))

		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				if (hasParent[i] && parents[i] == ids[j]) || (hasParent[j] && parents[j] == ids[i]) {
					continue
				}

				a, b := positions[ids[i]], positions[ids[j]]
				aSize, bSize := nodeSizes[i], nodeSizes[j]

				acx, acy := a.X+aSize.X/2, a.Y+aSize.Y/2
				bcx, bcy := b.X+bSize.X/2, b.Y+bSize.Y/2

				var dx, dy float64
				if l.Direction == DirectionVertical {
					dx, dy = acx-bcx, acy-bcy
				} else {
					dx, dy = acy-bcy, acx-bcx
				}
				dist := math.Max(math.Sqrt(dx*dx+dy*dy), minDistance)

				force := repulsionStrength / (dist * dist)
				var f float64
				if math.Abs(dx) > 0.01 {
					f = force * sign(dx)
				}
				forces[i] += f
				forces[j] -= f
			}
		}

		for i, id := range ids {
			pos := positions[id]
			if l.Direction == DirectionVertical {
				pos.X += forces[i] * damping
			} else {
				pos.Y += forces[i] * damping
			}
			positions[id] = pos
		}
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Execute implements Layouter for NestingLayouter.
func (l *NestingLayouter) Execute(model *Model) (map[graph.NodeID]Vec2, map[graph.NodeID]Vec2) {
	positions := make(map[graph.NodeID]Vec2)
	roots := rootNodes(model)
	if len(roots) == 0 {
		return positions, map[graph.NodeID]Vec2{}
	}

	nodeRoots := buildNodeRoots(model)
	rel := buildRootRelations(model, nodeRoots)
	ranks := l.assignRootRanks(roots, rel)
	layers := buildLayers(model, ranks)
	ranksSorted := sortedRanks(layers)
	barycenterSpacing, layerSpacing, nodeSpacing := spacingForRootCount(len(roots))
	coords := initializeLayerCoords(layers, ranksSorted, barycenterSpacing)
	runBarycenterPasses(layers, ranksSorted, coords, rel, barycenterSpacing)

	sizes, rootSizes := l.precomputeSizes(model, roots)
	l.placeRootsInLayers(model, layers, ranksSorted, rootSizes, sizes, positions, layerSpacing, nodeSpacing)

	l.applyForceDirected(positions, sizes, model, forceDirectedIterations)

	return positions, sizes
}
