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
	"strconv"
	"strings"

	"github.com/kraklabs/codeintel/internal/graph"
)

// asUint64 normalizes a decoded JSON number (cozodb's result parser
// decodes all CozoScript integers as float64) into a uint64.
func asUint64(v any) (uint64, error) {
	switch t := v.(type) {
	case float64:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case uint64:
		return t, nil
	default:
		return 0, fmt.Errorf("storage: unexpected numeric type %T", v)
	}
}

func asInt(v any) (int, error) {
	u, err := asUint64(v)
	return int(u), err
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func nodeFromRow(row []any) (graph.Node, error) {
	if len(row) < 10 {
		return graph.Node{}, fmt.Errorf("storage: malformed node row")
	}
	id, err := asUint64(row[0])
	if err != nil {
		return graph.Node{}, err
	}
	kind, err := graph.ParseNodeKind(asString(row[1]))
	if err != nil {
		return graph.Node{}, err
	}
	n := graph.Node{
		ID:             graph.NodeID(id),
		Kind:           kind,
		SerializedName: asString(row[2]),
		QualifiedName:  asString(row[3]),
		CanonicalID:    asString(row[4]),
	}
	if row[5] != nil {
		fid, err := asUint64(row[5])
		if err != nil {
			return graph.Node{}, err
		}
		n.FileNodeID = graph.NodeID(fid)
		n.HasFile = true
	}
	if row[6] != nil {
		sl, _ := asInt(row[6])
		sc, _ := asInt(row[7])
		el, _ := asInt(row[8])
		ec, _ := asInt(row[9])
		n.Span = graph.Span{StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec}
		n.HasSpan = true
	}
	return n, nil
}

func edgeFromRow(row []any) (graph.Edge, error) {
	if len(row) < 11 {
		return graph.Edge{}, fmt.Errorf("storage: malformed edge row")
	}
	id, err := asUint64(row[0])
	if err != nil {
		return graph.Edge{}, err
	}
	src, err := asUint64(row[1])
	if err != nil {
		return graph.Edge{}, err
	}
	tgt, err := asUint64(row[2])
	if err != nil {
		return graph.Edge{}, err
	}
	kind, err := graph.ParseEdgeKind(asString(row[3]))
	if err != nil {
		return graph.Edge{}, err
	}
	e := graph.Edge{
		ID:     graph.EdgeID(id),
		Source: graph.NodeID(src),
		Target: graph.NodeID(tgt),
		Kind:   kind,
	}
	if row[4] != nil {
		fid, _ := asUint64(row[4])
		e.FileNodeID = graph.NodeID(fid)
		e.HasFile = true
	}
	if row[5] != nil {
		line, _ := asInt(row[5])
		e.Line = line
		e.HasLine = true
	}
	if row[6] != nil {
		rs, _ := asUint64(row[6])
		e.ResolvedSource = graph.NodeID(rs)
		e.HasResolvedSrc = true
	}
	if row[7] != nil {
		rt, _ := asUint64(row[7])
		e.ResolvedTarget = graph.NodeID(rt)
		e.HasResolvedTgt = true
	}
	if row[8] != nil {
		if f, ok := row[8].(float64); ok {
			e.Confidence = f
			e.HasConfidence = true
		}
	}
	if row[9] != nil {
		c, err := graph.ParseCertainty(asString(row[9]))
		if err == nil {
			e.Certainty = c
		}
	}
	if row[10] != nil {
		ids := strings.Split(asString(row[10]), ",")
		for _, s := range ids {
			if s == "" {
				continue
			}
			n, err := strconv.ParseUint(s, 10, 64)
			if err == nil {
				e.CandidateTargets = append(e.CandidateTargets, graph.NodeID(n))
			}
		}
	}
	return e, nil
}

func occurrencesFromRows(rows [][]any) ([]graph.Occurrence, error) {
	out := make([]graph.Occurrence, 0, len(rows))
	for _, r := range rows {
		if len(r) < 7 {
			return nil, fmt.Errorf("storage: malformed occurrence row")
		}
		elementID, err := asUint64(r[0])
		if err != nil {
			return nil, err
		}
		fileID, err := asUint64(r[1])
		if err != nil {
			return nil, err
		}
		sl, _ := asInt(r[2])
		sc, _ := asInt(r[3])
		el, _ := asInt(r[4])
		ec, _ := asInt(r[5])
		kind, err := graph.ParseOccurrenceKind(asString(r[6]))
		if err != nil {
			return nil, err
		}
		out = append(out, graph.Occurrence{
			ElementID:  graph.NodeID(elementID),
			Kind:       kind,
			FileNodeID: graph.NodeID(fileID),
			Span:       graph.Span{StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec},
		})
	}
	return out, nil
}
