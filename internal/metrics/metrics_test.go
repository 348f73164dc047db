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

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderExposesObservedValuesOverHandler(t *testing.T) {
	r := New()
	r.AddFilesIndexed(3)
	r.ObserveBatchFlush(10, 20, 30, 0.25)
	r.ObserveTrailQuery("all_referenced", 0.01)
	r.ObserveResolutionPass(5, 4)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "cie_index_files_indexed_total 3")
	assert.Contains(t, body, "cie_index_nodes_written_total 10")
	assert.Contains(t, body, "cie_index_edges_written_total 20")
	assert.Contains(t, body, "cie_index_occurrences_written_total 30")
	assert.Contains(t, body, `cie_retrieval_trail_query_duration_seconds_count{mode="all_referenced"} 1`)
	assert.Contains(t, body, "cie_resolve_edges_considered_total 5")
	assert.Contains(t, body, "cie_resolve_edges_resolved_total 4")
}

func TestNilRecorderMethodsAreNoOps(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.AddFilesIndexed(1)
		r.ObserveBatchFlush(1, 1, 1, 0.1)
		r.ObserveTrailQuery("trail", 0.1)
		r.ObserveResolutionPass(1, 1)
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
}
