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

// Package events implements the typed, enumerated event set of §6
// External Interfaces as a small in-process pub-sub bus: the indexer,
// the trail/neighborhood query layer, and the UI layer publish; any
// number of subscribers (a terminal progress bar, a metrics recorder,
// a UI store) consume.
package events

import "github.com/kraklabs/codeintel/internal/graph"

// Kind is the closed, enumerated event-type tag named in §6.
type Kind string

const (
	KindActivateNode        Kind = "ActivateNode"
	KindActivateEdge        Kind = "ActivateEdge"
	KindTabOpen             Kind = "TabOpen"
	KindTabClose            Kind = "TabClose"
	KindTabSelect           Kind = "TabSelect"
	KindShowReference       Kind = "ShowReference"
	KindScrollToLine        Kind = "ScrollToLine"
	KindHistoryBack         Kind = "HistoryBack"
	KindHistoryForward      Kind = "HistoryForward"
	KindProjectLoad         Kind = "ProjectLoad"
	KindProjectOpened       Kind = "ProjectOpened"
	KindIndexingStarted     Kind = "IndexingStarted"
	KindIndexingProgress    Kind = "IndexingProgress"
	KindIndexingComplete    Kind = "IndexingComplete"
	KindIndexingFailed      Kind = "IndexingFailed"
	KindTrailModeEnter      Kind = "TrailModeEnter"
	KindTrailConfigChange   Kind = "TrailConfigChange"
	KindGraphNodeExpand     Kind = "GraphNodeExpand"
	KindGraphSectionExpand  Kind = "GraphSectionExpand"
	KindSetLayoutMethod     Kind = "SetLayoutMethod"
	KindSetLayoutDirection  Kind = "SetLayoutDirection"
	KindSetShowClasses      Kind = "SetShowClasses"
	KindSetShowFunctions    Kind = "SetShowFunctions"
	KindSetShowVariables    Kind = "SetShowVariables"
	KindSetShowMinimap      Kind = "SetShowMinimap"
	KindSetShowLegend       Kind = "SetShowLegend"
	KindNeighborhoodLoaded  Kind = "NeighborhoodLoaded"
	KindBookmarkAdd         Kind = "BookmarkAdd"
	KindBookmarkRemove      Kind = "BookmarkRemove"
	KindBookmarkNavigate    Kind = "BookmarkNavigate"
	KindShowInfo            Kind = "ShowInfo"
	KindShowSuccess         Kind = "ShowSuccess"
	KindShowWarning         Kind = "ShowWarning"
	KindShowError           Kind = "ShowError"
)

// Event is the common envelope; Payload is one of the typed structs
// below, keyed by Kind so a subscriber can type-switch.
type Event struct {
	Kind    Kind
	Payload any
}

// Payload structs, named after their event (§6). SetShowToggle is shared by
// the SetShow* events and ShowMessage by the Show{Info,Success,Warning,Error}
// events.

type IndexingStarted struct{ FileCount int }
type IndexingProgress struct{ Current, Total int }
type IndexingComplete struct{ DurationMS int64 }
type IndexingFailed struct{ Err error }

type ActivateNode struct{ ID graph.NodeID }
type ActivateEdge struct{ ID graph.EdgeID }
type TabOpen struct{ NodeID graph.NodeID }
type TabClose struct{ TabID string }
type TabSelect struct{ TabID string }
type ShowReference struct {
	NodeID graph.NodeID
	Line   int
}
type ScrollToLine struct{ Line int }
type ProjectLoad struct{ Root string }
type ProjectOpened struct{ Root string }

type TrailModeEnter struct{ RootID graph.NodeID }
type TrailConfigChange struct {
	Depth      int
	Direction  string
	EdgeFilter []graph.EdgeKind
}

type GraphNodeExpand struct {
	ID     graph.NodeID
	Expand bool
}
type GraphSectionExpand struct {
	ID          graph.NodeID
	SectionKind string
	Expand      bool
}

type SetLayoutMethod struct{ Method string }
type SetLayoutDirection struct{ Direction string }
type SetShowToggle struct{ Show bool }

type NeighborhoodLoaded struct {
	CenterID graph.NodeID
	Nodes    int
	Edges    int
}

type BookmarkAdd struct {
	NodeID   graph.NodeID
	Category string
}
type BookmarkRemove struct{ NodeID graph.NodeID }
type BookmarkNavigate struct{ NodeID graph.NodeID }

type ShowMessage struct{ Message string }
