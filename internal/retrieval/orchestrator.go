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

package retrieval

import (
	"context"
	"log/slog"
	"time"

	"github.com/kraklabs/codeintel/internal/graph"
	"github.com/kraklabs/codeintel/internal/metrics"
	"github.com/kraklabs/codeintel/internal/storage"
)

// Orchestrator implements the retrieval orchestrator contract (§2) over a
// single project's Store. It is safe for concurrent use; each Answer call
// only issues read operations against the store.
type Orchestrator struct {
	store   *storage.Store
	logger  *slog.Logger
	metrics *metrics.Recorder

	// now is overridable by tests; production callers get time.Now.
	now func() time.Time
}

// NewOrchestrator builds an orchestrator reading from store. rec may be
// nil (no metrics recorded).
func NewOrchestrator(store *storage.Store, logger *slog.Logger, rec *metrics.Recorder) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{store: store, logger: logger, metrics: rec, now: time.Now}
}

// slaBudget returns the deadline Answer enforces against optional steps,
// per the profile's per-phase SLA target (§5 Timeouts).
func (r RetrievalProfile) slaBudget() time.Duration {
	switch r {
	case ProfileLatencyFirst:
		return LatencyPhaseDeadlineMS * time.Millisecond
	default:
		return DefaultSLATargetMS * time.Millisecond
	}
}

// run executes fn, recording a trace step with its timing and the outcome
// fn returns.
func (o *Orchestrator) run(trace *[]TraceStep, step StepKind, fn func() Outcome) Outcome {
	started := o.now()
	outcome := fn()
	*trace = append(*trace, TraceStep{
		Step:     step,
		Outcome:  outcome,
		Started:  started,
		Duration: o.now().Sub(started),
	})
	return outcome
}

// skip records a step as Skipped without running fn, for steps outside
// this package's scope or dropped by the SLA budget.
func (o *Orchestrator) skip(trace *[]TraceStep, step StepKind, reason string) {
	*trace = append(*trace, TraceStep{
		Step:    step,
		Outcome: Skipped(reason),
		Started: o.now(),
	})
}

// Answer runs the bounded set of steps this module can honestly fulfill
// and assembles an answer bundle (§2). The prompt itself is not interpreted
// here -- without a local LLM (out of scope, §1) the orchestrator treats the
// request as a structural query: search by prompt text, expand around the
// best match or the supplied focus node, and read occurrences/source for
// the resulting citations.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (AnswerBundle, error) {
	o.logger.Info("retrieval.answer.start", "prompt", req.Prompt, "has_focus", req.HasFocus, "profile", req.Profile)
	start := o.now()
	budget := req.Profile.slaBudget()
	overBudget := func() bool { return o.now().Sub(start) > budget }

	var bundle AnswerBundle
	var trace []TraceStep

	candidates := o.runSearch(ctx, &trace, req)
	filter := o.runTrailFilterOptions(&trace, req)

	focus, hasFocus := o.resolveFocus(req, candidates)

	var neighborhood storage.Neighborhood
	if hasFocus {
		neighborhood = o.runNeighborhood(ctx, &trace, focus)
	} else {
		o.skip(&trace, StepNeighborhood, "no focus node resolved from search or request")
	}

	var trailResult storage.TrailResult
	if hasFocus {
		trailResult = o.runTrail(ctx, &trace, focus, filter)
	} else {
		o.skip(&trace, StepTrail, "no focus node resolved from search or request")
	}

	nodeSet := collectNodes(candidates, neighborhood, trailResult)
	details := o.runNodeDetails(ctx, &trace, nodeSet)
	occurrences := o.runNodeOccurrences(ctx, &trace, nodeSet)
	edgeOccurrences := o.runEdgeOccurrences(ctx, &trace, trailResult.Edges)

	var sourceText map[graph.NodeID]string
	if overBudget() {
		o.skip(&trace, StepSourceRead, "SLA budget exceeded before optional source read")
	} else {
		sourceText = o.runSourceRead(ctx, &trace, details, occurrences)
	}

	o.skip(&trace, StepMermaidSynthesis, "out of core scope")
	o.skip(&trace, StepLocalAgent, "out of core scope")
	o.skip(&trace, StepAnswerSynthesis, "out of core scope")

	bundle.Citations = buildCitations(ctx, o.store, details, req.MaxResults)
	bundle.Artifacts = buildArtifacts(neighborhood, trailResult)
	bundle.Sections = buildSections(req, details, occurrences, edgeOccurrences, sourceText, bundle.Artifacts)
	bundle.Trace = trace

	o.logger.Info("retrieval.answer.done", "citations", len(bundle.Citations), "sections", len(bundle.Sections))
	return bundle, nil
}
