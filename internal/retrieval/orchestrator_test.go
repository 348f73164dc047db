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
//go:build cozodb
// +build cozodb

package retrieval

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codeintel/internal/graph"
	"github.com/kraklabs/codeintel/internal/storage"
)

func openTestStore(t testing.TB) *storage.Store {
	t.Helper()
	s, err := storage.Open(storage.Config{Engine: "mem", DataDir: "."}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// seedWidgetFixture mirrors testdata/widget.go on disk: a Widget struct and
// a Render function that calls it, wired into the store with real spans so
// StepSourceRead can exercise an actual file read.
func seedWidgetFixture(t testing.TB, s *storage.Store) (widget, render graph.NodeID) {
	t.Helper()
	ctx := context.Background()

	const path = "testdata/widget.go"
	fileID := graph.NodeID(1)
	require.NoError(t, s.InsertFilesBatch(ctx, []graph.FileRecord{
		{ID: fileID, Path: path, Language: "go", Indexed: true, Complete: true, LineCount: 11},
	}))

	widget = graph.NodeID(2)
	render = graph.NodeID(3)
	nodes := []graph.Node{
		{ID: fileID, Kind: graph.NodeKindFile, SerializedName: path, QualifiedName: path, CanonicalID: graph.FileCanonicalID(path)},
		{
			ID: widget, Kind: graph.NodeKindStruct, SerializedName: "Widget", QualifiedName: "testdata.Widget",
			CanonicalID: "testdata.Widget", FileNodeID: fileID, HasFile: true,
			Span: graph.Span{StartLine: 4, EndLine: 6}, HasSpan: true,
		},
		{
			ID: render, Kind: graph.NodeKindFunction, SerializedName: "Render", QualifiedName: "testdata.Render",
			CanonicalID: "testdata.Render", FileNodeID: fileID, HasFile: true,
			Span: graph.Span{StartLine: 9, EndLine: 11}, HasSpan: true,
		},
	}
	require.NoError(t, s.InsertNodesBatch(ctx, nodes))

	edge := graph.Edge{
		ID: graph.NewEdgeID(render, widget, graph.EdgeKindTypeUsage), Source: render, Target: widget,
		Kind: graph.EdgeKindTypeUsage, FileNodeID: fileID, HasFile: true, Line: 9, HasLine: true,
		Confidence: 1.0, HasConfidence: true, Certainty: graph.CertaintyCertain,
	}
	require.NoError(t, s.InsertEdgesBatch(ctx, []graph.Edge{edge}))

	occ := graph.Occurrence{ElementID: widget, Kind: graph.OccurrenceKindReference, FileNodeID: fileID, Span: graph.Span{StartLine: 9, EndLine: 9}}
	require.NoError(t, s.InsertOccurrencesBatch(ctx, []graph.Occurrence{occ}))

	return widget, render
}

func TestOrchestratorAnswerRunsMandatoryStepsAndSkipsOutOfScopeOnes(t *testing.T) {
	s := openTestStore(t)
	widget, _ := seedWidgetFixture(t, s)

	orch := NewOrchestrator(s, nil, nil)
	bundle, err := orch.Answer(context.Background(), Request{Prompt: "Widget", HasFocus: true, FocusNodeID: widget, MaxResults: 10})
	require.NoError(t, err)

	outcomes := make(map[StepKind]OutcomeKind)
	for _, step := range bundle.Trace {
		outcomes[step.Step] = step.Outcome.Kind
	}
	assert.Len(t, bundle.Trace, 11, "every enumerated step must appear in the trace")
	assert.Equal(t, OutcomeSkipped, outcomes[StepMermaidSynthesis])
	assert.Equal(t, OutcomeSkipped, outcomes[StepLocalAgent])
	assert.Equal(t, OutcomeSkipped, outcomes[StepAnswerSynthesis])
	assert.Equal(t, OutcomeOk, outcomes[StepSearch])
	assert.Equal(t, OutcomeOk, outcomes[StepNeighborhood])
	assert.Equal(t, OutcomeOk, outcomes[StepTrail])

	require.NotEmpty(t, bundle.Citations)
	assert.Equal(t, widget, bundle.Citations[0].NodeID)
	assert.Equal(t, "testdata.Widget", bundle.Citations[0].DisplayName)
	assert.Equal(t, "testdata/widget.go", bundle.Citations[0].FilePath)

	require.NotEmpty(t, bundle.Sections)
}

func TestOrchestratorAnswerReadsSourceForFocusNode(t *testing.T) {
	s := openTestStore(t)
	widget, _ := seedWidgetFixture(t, s)

	orch := NewOrchestrator(s, nil, nil)
	bundle, err := orch.Answer(context.Background(), Request{Prompt: "Widget", HasFocus: true, FocusNodeID: widget, MaxResults: 10})
	require.NoError(t, err)

	var sourceSection *Section
	for i := range bundle.Sections {
		if strings.Contains(bundle.Sections[i].Markdown, "## Source") {
			sourceSection = &bundle.Sections[i]
		}
	}
	require.NotNil(t, sourceSection, "expected a ## Source section once the SLA budget allows the read")
	assert.Contains(t, sourceSection.Markdown, "type Widget struct")
}

func TestOrchestratorAnswerWithoutFocusOrMatchSkipsGraphSteps(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	// Empty store: no nodes to find.
	orch := NewOrchestrator(s, nil, nil)

	bundle, err := orch.Answer(ctx, Request{Prompt: "something unrelated entirely", MaxResults: 5})
	require.NoError(t, err)

	outcomes := make(map[StepKind]OutcomeKind)
	for _, step := range bundle.Trace {
		outcomes[step.Step] = step.Outcome.Kind
	}
	assert.Equal(t, OutcomeSkipped, outcomes[StepNeighborhood])
	assert.Equal(t, OutcomeSkipped, outcomes[StepTrail])
	assert.Empty(t, bundle.Citations)
}

func TestOrchestratorAnswerLatencyProfileDropsSourceReadWhenOverBudget(t *testing.T) {
	s := openTestStore(t)
	widget, _ := seedWidgetFixture(t, s)

	orch := NewOrchestrator(s, nil, nil)
	callCount := 0
	orch.now = func() time.Time {
		callCount++
		// The first call establishes start; return a time far enough past
		// start on every subsequent call to blow the latency-first budget
		// before the optional source-read check runs.
		if callCount == 1 {
			return time.Unix(0, 0)
		}
		return time.Unix(0, 0).Add(LatencyPhaseDeadlineMS * time.Millisecond * 2)
	}

	bundle, err := orch.Answer(context.Background(), Request{
		Prompt: "Widget", HasFocus: true, FocusNodeID: widget, MaxResults: 10, Profile: ProfileLatencyFirst,
	})
	require.NoError(t, err)

	for _, step := range bundle.Trace {
		if step.Step == StepSourceRead {
			assert.Equal(t, OutcomeSkipped, step.Outcome.Kind)
			assert.Contains(t, step.Outcome.Detail, "SLA budget")
		}
	}
}
