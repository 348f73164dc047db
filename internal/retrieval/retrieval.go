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

// Package retrieval implements the retrieval orchestrator contract (§2):
// given a prompt and optional focus node, run the bounded set of steps this
// module's own operations can honestly fulfill and assemble an answer
// bundle with citations, graph artifacts, and a step trace.
//
// The agent-facing steps named by the contract -- MermaidSynthesis,
// LocalAgent, AnswerSynthesis -- require a local LLM and Mermaid text
// generation that live outside this module's scope (§1 Non-goals). They
// are still enumerated in StepKind and always appear in the trace, marked
// Skipped, so a caller can see the full contract shape even though this
// package does not execute them.
package retrieval

import (
	"time"

	"github.com/kraklabs/codeintel/internal/graph"
)

// StepKind enumerates every step the retrieval orchestrator contract
// recognizes (§2). Not every step is executed by this package; see the
// package doc.
type StepKind int

const (
	StepSearch StepKind = iota
	StepTrailFilterOptions
	StepNeighborhood
	StepTrail
	StepNodeDetails
	StepNodeOccurrences
	StepEdgeOccurrences
	StepSourceRead
	StepMermaidSynthesis
	StepLocalAgent
	StepAnswerSynthesis
)

var stepKindNames = [...]string{
	"Search", "TrailFilterOptions", "Neighborhood", "Trail", "NodeDetails",
	"NodeOccurrences", "EdgeOccurrences", "SourceRead", "MermaidSynthesis",
	"LocalAgent", "AnswerSynthesis",
}

// String renders the step name used in trace output.
func (k StepKind) String() string {
	if int(k) < 0 || int(k) >= len(stepKindNames) {
		return "Unknown"
	}
	return stepKindNames[k]
}

// OutcomeKind is one of the four step outcomes the contract enumerates.
type OutcomeKind int

const (
	OutcomeOk OutcomeKind = iota
	OutcomeErr
	OutcomeSkipped
	OutcomeTruncated
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOk:
		return "Ok"
	case OutcomeErr:
		return "Err"
	case OutcomeSkipped:
		return "Skipped"
	case OutcomeTruncated:
		return "Truncated"
	default:
		return "Unknown"
	}
}

// Outcome is a step's terminal state, carrying the message/reason text the
// contract requires for Err, Skipped, and Truncated.
type Outcome struct {
	Kind   OutcomeKind
	Detail string // empty for Ok
}

// Ok is the zero-detail success outcome.
func Ok() Outcome { return Outcome{Kind: OutcomeOk} }

// Err wraps a failure message.
func Err(msg string) Outcome { return Outcome{Kind: OutcomeErr, Detail: msg} }

// Skipped wraps the reason a step was not run.
func Skipped(reason string) Outcome { return Outcome{Kind: OutcomeSkipped, Detail: reason} }

// Truncated wraps the reason a step's result set was cut short.
func Truncated(reason string) Outcome { return Outcome{Kind: OutcomeTruncated, Detail: reason} }

// TraceStep records one executed (or skipped) step with timing.
type TraceStep struct {
	Step     StepKind
	Outcome  Outcome
	Started  time.Time
	Duration time.Duration
}

// RetrievalProfile selects the SLA budget the orchestrator enforces
// (§5 Timeouts). LatencyFirst favors dropping optional steps over
// completeness; QualityFirst runs every step it can within the overall
// SLA target.
type RetrievalProfile int

const (
	ProfileLatencyFirst RetrievalProfile = iota
	ProfileQualityFirst
)

func (p RetrievalProfile) String() string {
	if p == ProfileQualityFirst {
		return "quality_first"
	}
	return "latency_first"
}

// Default SLA budget constants (§5 Timeouts).
const (
	DefaultSLATargetMS     = 18_000
	LatencyPhaseDeadlineMS = 7_000
)

// Citation is one supporting reference in an answer bundle (§2).
type Citation struct {
	NodeID      graph.NodeID
	DisplayName string
	Kind        graph.NodeKind
	FilePath    string
	Line        int
	Score       float64
}

// GraphArtifact bundles a UML-style subgraph plus its Mermaid text. Mermaid
// generation itself is out of scope (§1); Text is left empty and Skipped is
// recorded against StepMermaidSynthesis whenever an artifact is produced
// without it.
type GraphArtifact struct {
	Nodes []graph.Node
	Edges []graph.Edge
	Text  string
}

// Section is one rendered piece of the answer (§2): markdown body plus the
// ids of any graph artifacts it embeds.
type Section struct {
	Markdown     string
	ArtifactRefs []int // indexes into AnswerBundle.Artifacts
}

// AnswerBundle is the orchestrator's return value (§2).
type AnswerBundle struct {
	Sections  []Section
	Citations []Citation
	Artifacts []GraphArtifact
	Trace     []TraceStep
}

// Request is the orchestrator contract's input tuple (§2). Connection is
// supplied by the caller as the already-open Store, so it is not part of
// this struct -- see Orchestrator.Answer.
type Request struct {
	Prompt      string
	FocusNodeID graph.NodeID
	HasFocus    bool
	MaxResults  int
	Profile     RetrievalProfile
}
