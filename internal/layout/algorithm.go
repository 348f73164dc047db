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

	"github.com/kraklabs/codeintel/internal/graph"
)

// Algorithm selects which Layouter implementation a request wants.
// Dispatch is a constructor switch rather than a type hierarchy (§9:
// "model as an enum of layouter variants implementing a common
// contract... dispatch is a match, not inheritance").
type Algorithm string

const (
	AlgorithmNesting       Algorithm = "nesting"
	AlgorithmForceDirected Algorithm = "force_directed"
	AlgorithmRadial        Algorithm = "radial"
	AlgorithmGrid          Algorithm = "grid"
)

// NewLayouter builds the Layouter named by algorithm. center and
// direction are only consulted by the engines that use them (Radial,
// Nesting); unknown algorithms fall back to Nesting, the default engine
// every graph view opens with.
func NewLayouter(algorithm Algorithm, direction Direction, center graph.NodeID, logger *slog.Logger) Layouter {
	switch algorithm {
	case AlgorithmForceDirected:
		return NewForceDirectedLayouter()
	case AlgorithmRadial:
		return NewRadialLayouter(center)
	case AlgorithmGrid:
		return NewGridLayouter()
	default:
		return &NestingLayouter{
			InnerPadding: DefaultInnerPadding,
			ChildSpacing: DefaultChildSpacing,
			Direction:    direction,
			Logger:       logger,
		}
	}
}

// ViewState is the persisted UI state for a graph view (§6,
// GraphViewState): everything needed to reopen the same view exactly as
// the user left it, serialized as JSON by the caller.
type ViewState struct {
	CollapseStates  map[graph.NodeID]bool    `json:"collapse_states"`
	SectionStates   map[string]bool          `json:"section_states"`
	HiddenNodes     map[graph.NodeID]bool    `json:"hidden_nodes"`
	CustomPositions map[graph.NodeID]Vec2    `json:"custom_positions"`
	LayoutAlgorithm Algorithm                `json:"layout_algorithm"`
	LayoutDirection Direction                `json:"layout_direction"`
	Zoom            float64                  `json:"zoom"`
	Pan             Vec2                     `json:"pan"`
}

const (
	minZoom = 0.1
	maxZoom = 4.0
)

// ClampZoom keeps a requested zoom level within §6's documented bounds.
func ClampZoom(zoom float64) float64 {
	return clampFloat(zoom, minZoom, maxZoom)
}
