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

package storage

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kraklabs/codeintel/internal/graph"
)

// quoteString escapes a string for embedding in a CozoScript literal.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func optInt(has bool, v int64) string {
	if !has {
		return "null"
	}
	return strconv.FormatInt(v, 10)
}

func optFloat(has bool, v float64) string {
	if !has || math.IsNaN(v) || math.IsInf(v, 0) {
		if has {
			return "0.0"
		}
		return "null"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optString(s string) string {
	if s == "" {
		return "null"
	}
	return quoteString(s)
}

// buildNodeRow renders one `node` relation row literal plus the three
// secondary-index rows derived from it.
func buildNodeRow(n graph.Node) (nodeRow, idxKindName, idxFile, idxQName string) {
	fileID := "null"
	if n.HasFile {
		fileID = strconv.FormatUint(uint64(n.FileNodeID), 10)
	}
	startLine, startCol, endLine, endCol := "null", "null", "null", "null"
	if n.HasSpan {
		startLine = strconv.Itoa(n.Span.StartLine)
		startCol = strconv.Itoa(n.Span.StartCol)
		endLine = strconv.Itoa(n.Span.EndLine)
		endCol = strconv.Itoa(n.Span.EndCol)
	}
	nodeRow = fmt.Sprintf("[%d, %s, %s, %s, %s, %s, %s, %s, %s, %s]",
		uint64(n.ID), quoteString(n.Kind.String()), quoteString(n.SerializedName),
		quoteString(n.QualifiedName), quoteString(n.CanonicalID), fileID,
		startLine, startCol, endLine, endCol)
	idxKindName = fmt.Sprintf("[%s, %s, %d]", quoteString(n.Kind.String()), quoteString(n.SerializedName), uint64(n.ID))
	if n.HasFile {
		idxFile = fmt.Sprintf("[%d, %d]", uint64(n.FileNodeID), uint64(n.ID))
	}
	idxQName = fmt.Sprintf("[%s, %d]", quoteString(n.QualifiedName), uint64(n.ID))
	return
}

// buildEdgeRow renders one `edge` relation row literal plus derived
// secondary-index rows.
func buildEdgeRow(e graph.Edge) (edgeRow string, idxSource, idxTarget, idxResolvedTarget, idxResolvedSource, idxLine string) {
	fileID := optInt(e.HasFile, int64(e.FileNodeID))
	line := optInt(e.HasLine, int64(e.Line))
	resolvedSource := optInt(e.HasResolvedSrc, int64(e.ResolvedSource))
	resolvedTarget := optInt(e.HasResolvedTgt, int64(e.ResolvedTarget))
	confidence := optFloat(e.HasConfidence, e.Confidence)
	certainty := "null"
	if e.Certainty != graph.CertaintyUnknown {
		certainty = quoteString(e.Certainty.String())
	}
	candidates := "null"
	if len(e.CandidateTargets) > 0 {
		ids := make([]string, len(e.CandidateTargets))
		for i, c := range e.CandidateTargets {
			ids[i] = strconv.FormatUint(uint64(c), 10)
		}
		candidates = quoteString(strings.Join(ids, ","))
	}

	edgeRow = fmt.Sprintf("[%d, %d, %d, %s, %s, %s, %s, %s, %s, %s, %s]",
		uint64(e.ID), uint64(e.Source), uint64(e.Target), quoteString(e.Kind.String()),
		fileID, line, resolvedSource, resolvedTarget, confidence, certainty, candidates)

	idxSource = fmt.Sprintf("[%d, %d]", uint64(e.Source), uint64(e.ID))
	idxTarget = fmt.Sprintf("[%d, %d]", uint64(e.Target), uint64(e.ID))
	if e.HasResolvedTgt {
		idxResolvedTarget = fmt.Sprintf("[%s, %d, %d]", quoteString(e.Kind.String()), uint64(e.ResolvedTarget), uint64(e.ID))
	}
	if e.HasResolvedSrc {
		idxResolvedSource = fmt.Sprintf("[%d, %d]", uint64(e.ResolvedSource), uint64(e.ID))
	}
	if e.HasLine {
		idxLine = fmt.Sprintf("[%d, %d]", e.Line, uint64(e.ID))
	}
	return
}

// buildOccurrenceRow renders one `occurrence` relation row literal plus
// derived index rows.
func buildOccurrenceRow(o graph.Occurrence) (row, idxElement, idxFile string) {
	row = fmt.Sprintf("[%d, %d, %d, %d, %d, %d, %s]",
		uint64(o.ElementID), uint64(o.FileNodeID), o.Span.StartLine, o.Span.StartCol,
		o.Span.EndLine, o.Span.EndCol, quoteString(o.Kind.String()))
	idxElement = fmt.Sprintf("[%d, %d, %d, %d, %d, %d]",
		uint64(o.ElementID), uint64(o.FileNodeID), o.Span.StartLine, o.Span.StartCol, o.Span.EndLine, o.Span.EndCol)
	idxFile = fmt.Sprintf("[%d, %d, %d, %d, %d, %d]",
		uint64(o.FileNodeID), uint64(o.ElementID), o.Span.StartLine, o.Span.StartCol, o.Span.EndLine, o.Span.EndCol)
	return
}

func buildFileRow(f graph.FileRecord) string {
	return fmt.Sprintf("[%d, %s, %s, %d, %v, %v, %d]",
		uint64(f.ID), quoteString(f.Path), quoteString(f.Language), f.MTime, f.Indexed, f.Complete, f.LineCount)
}

func buildErrorRow(id int64, e graph.ErrorRecord) string {
	fileID := "null"
	if e.HasFile {
		fileID = strconv.FormatUint(uint64(e.FileID), 10)
	}
	line, col := "null", "null"
	if e.HasPos {
		line = strconv.Itoa(e.Line)
		col = strconv.Itoa(e.Column)
	}
	return fmt.Sprintf("[%d, %s, %s, %s, %s, %v, %s]",
		id, quoteString(e.Message), fileID, line, col, e.IsFatal, quoteString(e.Step.String()))
}

// putScript wraps a set of row literals into a `:put` mutation for the
// given relation, matching the teacher's one-transaction-per-batch
// Datalog generation style.
func putScript(relation string, headers string, rows []string) string {
	if len(rows) == 0 {
		return ""
	}
	return fmt.Sprintf("?[%s] <- [%s]\n:put %s {%s}", headers, strings.Join(rows, ", "), relation, headers)
}
