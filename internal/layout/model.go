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

// Package layout turns a canonicalized graph (internal/canon) into pixel
// positions: a nesting layout engine for the default hierarchical view,
// alternative force-directed/radial/grid engines behind the same
// interface, an edge bundler and router for drawing, and the pure
// viewport-culling / level-of-detail functions that decide what a frame
// actually renders (§4.7, §4.8).
package layout

import "github.com/kraklabs/codeintel/internal/graph"

// Vec2 is a 2D point or size.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	Min, Max Vec2
}

// RectFromPosSize builds a Rect from a top-left position and a size.
func RectFromPosSize(pos, size Vec2) Rect {
	return Rect{Min: pos, Max: Vec2{X: pos.X + size.X, Y: pos.Y + size.Y}}
}

// Center returns the rectangle's center point.
func (r Rect) Center() Vec2 {
	return Vec2{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Intersects reports whether r and other overlap.
func (r Rect) Intersects(other Rect) bool {
	return r.Min.X <= other.Max.X && r.Max.X >= other.Min.X &&
		r.Min.Y <= other.Max.Y && r.Max.Y >= other.Min.Y
}

// Expand returns r grown by margin on every side.
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		Min: Vec2{X: r.Min.X - margin, Y: r.Min.Y - margin},
		Max: Vec2{X: r.Max.X + margin, Y: r.Max.Y + margin},
	}
}

// Direction is the primary flow axis of a hierarchical layout.
type Direction int

const (
	DirectionVertical Direction = iota
	DirectionHorizontal
)

func (d Direction) String() string {
	if d == DirectionHorizontal {
		return "horizontal"
	}
	return "vertical"
}

// MarshalJSON renders Direction as the persisted state's lowercase name
// rather than its underlying int, so a saved GraphViewState stays
// readable and stable across a future reordering of the const block.
func (d Direction) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts the lowercase name written by MarshalJSON.
func (d *Direction) UnmarshalJSON(data []byte) error {
	if string(data) == `"horizontal"` {
		*d = DirectionHorizontal
	} else {
		*d = DirectionVertical
	}
	return nil
}

// GroupKind selects how an expanded container arranges its children.
type GroupKind int

const (
	GroupList GroupKind = iota
	GroupGrid
)

// Node is one entry in a Model: a positionable box with optional nesting
// (a card's members collapse to a single expandable container) and
// optional flow edges to other nodes (used to rank detached roots).
type Node struct {
	ID         graph.NodeID
	Label      string
	Size       Vec2
	Parent     graph.NodeID
	HasParent  bool
	Children   []graph.NodeID
	Expanded   bool
	Group      GroupKind
}

// Edge is a flow relationship between two Model nodes, used only to rank
// and order roots relative to one another.
type Edge struct {
	ID     graph.EdgeID
	Source graph.NodeID
	Target graph.NodeID
	Kind   graph.EdgeKind
}

// Model is the layout engines' shared input: a forest of nodes (cards
// with hoisted members as children) plus the flow edges between them.
// Unlike the teacher's arena-indexed graph types, nodes are addressed
// directly by their content id -- nothing here needs a second index
// space since NodeID is already stable and comparable.
type Model struct {
	Nodes []Node
	Edges []Edge

	byID map[graph.NodeID]*Node
}

// NewModel builds a Model from its nodes and edges, indexing nodes by id
// for O(1) lookup during layout.
func NewModel(nodes []Node, edges []Edge) *Model {
	m := &Model{Nodes: nodes, Edges: edges, byID: make(map[graph.NodeID]*Node, len(nodes))}
	for i := range m.Nodes {
		m.byID[m.Nodes[i].ID] = &m.Nodes[i]
	}
	return m
}

// Node looks up a node by id.
func (m *Model) Node(id graph.NodeID) (*Node, bool) {
	n, ok := m.byID[id]
	return n, ok
}

func defaultNodeSize() Vec2 {
	return Vec2{X: defaultNodeWidth, Y: defaultNodeHeight}
}

const (
	defaultNodeWidth  = 100.0
	defaultNodeHeight = 30.0
)

// Layouter computes screen positions and effective sizes for every node
// in a Model. Implementations differ in placement strategy only; all of
// them see the same Model shape (§4.7: "alternative layouters accepting
// the same graph model").
type Layouter interface {
	Execute(model *Model) (positions map[graph.NodeID]Vec2, sizes map[graph.NodeID]Vec2)
}
