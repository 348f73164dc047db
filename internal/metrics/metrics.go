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

// Package metrics instruments the workspace indexer, resolution pass, and
// trail queries with Prometheus counters and histograms, exposed over
// /metrics by cmd/cie serve (mirroring the teacher's --metrics-addr flag
// in cmd/cie/index.go, which serves promhttp.Handler() directly off the
// default registry).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder wraps a private Prometheus registry with the counters and
// histograms the indexer, resolver, and retrieval orchestrator update. A
// nil *Recorder is safe to call methods on: every method is a no-op in
// that case, so callers (Workspace, Resolver, Orchestrator) can treat
// metrics as optional exactly like the event bus.
type Recorder struct {
	registry *prometheus.Registry

	filesIndexed         prometheus.Counter
	nodesWritten         prometheus.Counter
	edgesWritten         prometheus.Counter
	occurrencesWritten   prometheus.Counter
	batchFlushDuration   prometheus.Histogram
	trailQueryDuration   *prometheus.HistogramVec
	resolutionConsidered prometheus.Counter
	resolutionResolved   prometheus.Counter
}

// New creates a Recorder with its own registry, so multiple Recorders
// (e.g. in tests) never collide on the process-wide default registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		filesIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cie", Subsystem: "index", Name: "files_indexed_total",
			Help: "Files processed by the workspace indexer.",
		}),
		nodesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cie", Subsystem: "index", Name: "nodes_written_total",
			Help: "Node rows flushed to storage.",
		}),
		edgesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cie", Subsystem: "index", Name: "edges_written_total",
			Help: "Edge rows flushed to storage.",
		}),
		occurrencesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cie", Subsystem: "index", Name: "occurrences_written_total",
			Help: "Occurrence rows flushed to storage.",
		}),
		batchFlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cie", Subsystem: "index", Name: "batch_flush_duration_seconds",
			Help:    "Time spent writing one pending batch to storage.",
			Buckets: prometheus.DefBuckets,
		}),
		trailQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cie", Subsystem: "retrieval", Name: "trail_query_duration_seconds",
			Help:    "Latency of GetTrail calls, labeled by trail mode.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		resolutionConsidered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cie", Subsystem: "resolve", Name: "edges_considered_total",
			Help: "Placeholder-target edges examined by the resolution pass.",
		}),
		resolutionResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cie", Subsystem: "resolve", Name: "edges_resolved_total",
			Help: "Placeholder-target edges the resolution pass resolved.",
		}),
	}
	reg.MustRegister(
		r.filesIndexed, r.nodesWritten, r.edgesWritten, r.occurrencesWritten,
		r.batchFlushDuration, r.trailQueryDuration,
		r.resolutionConsidered, r.resolutionResolved,
	)
	return r
}

// Handler returns the HTTP handler cmd/cie serve mounts at /metrics.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// AddFilesIndexed increments the files-indexed counter by n.
func (r *Recorder) AddFilesIndexed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.filesIndexed.Add(float64(n))
}

// ObserveBatchFlush records a completed batch write: row counts per kind
// plus how long the write took.
func (r *Recorder) ObserveBatchFlush(nodes, edges, occurrences int, seconds float64) {
	if r == nil {
		return
	}
	r.nodesWritten.Add(float64(nodes))
	r.edgesWritten.Add(float64(edges))
	r.occurrencesWritten.Add(float64(occurrences))
	r.batchFlushDuration.Observe(seconds)
}

// ObserveTrailQuery records one GetTrail call's latency, labeled by mode.
func (r *Recorder) ObserveTrailQuery(mode string, seconds float64) {
	if r == nil {
		return
	}
	r.trailQueryDuration.WithLabelValues(mode).Observe(seconds)
}

// ObserveResolutionPass records one resolution pass's hit/miss counts.
func (r *Recorder) ObserveResolutionPass(considered, resolved int) {
	if r == nil {
		return
	}
	r.resolutionConsidered.Add(float64(considered))
	r.resolutionResolved.Add(float64(resolved))
}
