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

package graph

// Span is a half-open-by-convention source range using 1-based lines and
// 0-based columns, matching tree-sitter's point convention.
type Span struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Contains reports whether line lies within [StartLine, EndLine].
func (s Span) Contains(line int) bool {
	return line >= s.StartLine && line <= s.EndLine
}

// Width is used to pick the smallest enclosing function during call
// attribution (§4.1 step 8): functions are sorted by span width ascending
// so the tightest match wins.
func (s Span) Width() int {
	return s.EndLine - s.StartLine
}

// Node is a symbolic element produced by the per-file indexer.
type Node struct {
	ID             NodeID
	Kind           NodeKind
	SerializedName string
	QualifiedName  string
	CanonicalID    string
	FileNodeID     NodeID
	HasFile        bool
	Span           Span
	HasSpan        bool
}

// Edge is a directed, typed relation between two symbolic endpoints.
type Edge struct {
	ID               EdgeID
	Source           NodeID
	Target           NodeID
	Kind             EdgeKind
	FileNodeID       NodeID
	HasFile          bool
	Line             int
	HasLine          bool
	ResolvedSource   NodeID
	HasResolvedSrc   bool
	ResolvedTarget   NodeID
	HasResolvedTgt   bool
	Confidence       float64
	HasConfidence    bool
	Certainty        Certainty
	CandidateTargets []NodeID
}

// EffectiveEndpoints returns (resolved_source.or(source), resolved_target.or(target)),
// used by traversal so cross-file edges connect to definitions rather than
// placeholders.
func (e Edge) EffectiveEndpoints() (source, target NodeID) {
	source = e.Source
	if e.HasResolvedSrc {
		source = e.ResolvedSource
	}
	target = e.Target
	if e.HasResolvedTgt {
		target = e.ResolvedTarget
	}
	return source, target
}

// Occurrence is a source location attached to an element.
type Occurrence struct {
	ElementID  NodeID
	Kind       OccurrenceKind
	FileNodeID NodeID
	Span       Span
}

// LocationKey is the uniqueness key for an occurrence:
// (element_id, file_node_id, start_line, start_col, end_line, end_col).
type LocationKey struct {
	ElementID  NodeID
	FileNodeID NodeID
	Span       Span
}

// Key returns this occurrence's uniqueness key.
func (o Occurrence) Key() LocationKey {
	return LocationKey{ElementID: o.ElementID, FileNodeID: o.FileNodeID, Span: o.Span}
}

// FileRecord is the storage-level projection of a FILE node plus indexing
// metadata not carried by the node itself.
type FileRecord struct {
	ID        NodeID
	Path      string
	Language  string
	MTime     int64
	Indexed   bool
	Complete  bool
	LineCount int
}

// ErrorStep classifies when an ErrorRecord was produced.
type ErrorStep int32

const (
	ErrorStepUnknown ErrorStep = iota
	ErrorStepCollection
	ErrorStepIndexing
)

func (s ErrorStep) String() string {
	switch s {
	case ErrorStepCollection:
		return "Collection"
	case ErrorStepIndexing:
		return "Indexing"
	default:
		return "Unknown"
	}
}

// ErrorRecord captures a non-fatal or fatal diagnostic from collection or
// indexing.
type ErrorRecord struct {
	Message  string
	FileID   NodeID
	HasFile  bool
	Line     int
	Column   int
	HasPos   bool
	IsFatal  bool
	Step     ErrorStep
}

// BookmarkCategory groups bookmarks under a user-defined name.
type BookmarkCategory struct {
	ID   int64
	Name string
}

// Bookmark pins a node under a category with an optional user comment.
type Bookmark struct {
	ID         int64
	CategoryID int64
	NodeID     NodeID
	Comment    string
	HasComment bool
}
