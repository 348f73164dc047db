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

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// NodeID is a stable 64-bit content-addressed node identifier.
type NodeID uint64

// EdgeID is a stable 64-bit content-addressed edge identifier.
type EdgeID uint64

// FNV1a64 hashes a canonical id seed into a stable 64-bit id. Two index
// runs on identical input yield identical ids (testable property #1).
func FNV1a64(seed string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return h.Sum64()
}

// NewNodeID derives a NodeID from a canonical id seed.
func NewNodeID(canonicalID string) NodeID {
	return NodeID(FNV1a64(canonicalID))
}

// NewEdgeID derives an EdgeID from source.id ∥ target.id ∥ kind, per the
// edge id invariant in §3.
func NewEdgeID(source, target NodeID, kind EdgeKind) EdgeID {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(uint64(source), 10))
	b.WriteByte('\x00')
	b.WriteString(strconv.FormatUint(uint64(target), 10))
	b.WriteByte('\x00')
	b.WriteString(kind.String())
	return EdgeID(FNV1a64(b.String()))
}

// FileCanonicalID returns the canonical id seed for a FILE node: the file
// path itself (§4.1 step 1: id = fnv1a64(path)).
func FileCanonicalID(path string) string {
	return path
}

// ProvisionalCanonicalID returns the canonical id seed assigned to a raw
// graph-node before canonicalization collapses type-like duplicates
// within a file (§4.1 step 3): "{path}:{name}:{start_line}".
func ProvisionalCanonicalID(path, name string, startLine int) string {
	return path + ":" + name + ":" + strconv.Itoa(startLine)
}

// CanonicalSeed computes the canonical id seed used by the per-file
// indexer's canonicalization pass (§4.1 step 7). Type-like kinds collapse
// within a file by qualified name alone; other kinds are keyed by
// location as well.
func CanonicalSeed(kind NodeKind, filePath, qualifiedName string, startLine int) string {
	if kind.IsTypeLike() {
		return filePath + ":" + qualifiedName
	}
	return filePath + ":" + qualifiedName + ":" + strconv.Itoa(startLine)
}

// SyntheticHostID derives an id for a synthetic structural host from the
// lower-cased host label. Graph canonicalization (internal/canon) does not
// call it: it seeds its synthetic hosts from a slugified label instead, so
// the two ids agree only for labels made of ASCII letters and digits.
func SyntheticHostID(hostLabel string) NodeID {
	return NewNodeID("__synthetic_host__" + strings.ToLower(hostLabel))
}
