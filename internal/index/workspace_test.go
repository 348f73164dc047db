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

package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codeintel/internal/events"
	"github.com/kraklabs/codeintel/internal/graph"
	"github.com/kraklabs/codeintel/internal/parse"
	"github.com/kraklabs/codeintel/internal/storage"
)

func openTestStore(t testing.TB) *storage.Store {
	t.Helper()
	s, err := storage.Open(storage.Config{Engine: "mem", DataDir: "."}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

const callerSrc = `package caller

func Main() {
	Helper()
}

func Helper() {}
`

const otherSrc = `package other

func Util() string {
	return "ok"
}
`

func TestWorkspaceRunIndexesFilesAndEmitsEvents(t *testing.T) {
	store := openTestStore(t)
	bus := events.NewBus()

	var kinds []events.Kind
	bus.Subscribe(func(e events.Event) { kinds = append(kinds, e.Kind) })

	reg := parse.DefaultRegistry()
	goDriver, ok := reg.Driver("go")
	require.True(t, ok)

	ws := New(store, bus, nil, DefaultConfig(), nil)
	plan := RefreshPlan{
		ToIndex: []FileInput{
			{Path: "caller.go", Source: []byte(callerSrc), Driver: goDriver, Language: "go"},
			{Path: "other.go", Source: []byte(otherSrc), Driver: goDriver, Language: "go"},
		},
	}

	err := ws.Run(context.Background(), plan, nil)
	require.NoError(t, err)

	assert.Contains(t, kinds, events.KindIndexingStarted)
	assert.Contains(t, kinds, events.KindIndexingComplete)
	assert.Contains(t, kinds, events.KindIndexingProgress)

	nodes, err := store.GetNodes(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, nodes)

	var sawMain, sawHelper bool
	for _, n := range nodes {
		switch n.SerializedName {
		case "Main":
			sawMain = true
		case "Helper":
			sawHelper = true
		}
	}
	assert.True(t, sawMain)
	assert.True(t, sawHelper)

	edges, err := store.GetEdges(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, edges)
}

const crossFileCallerSrc = `package caller

func Entry() string {
	return Util()
}
`

func TestWorkspaceRunResolvesCrossFileCall(t *testing.T) {
	store := openTestStore(t)
	reg := parse.DefaultRegistry()
	goDriver, _ := reg.Driver("go")

	ws := New(store, nil, nil, DefaultConfig(), nil)
	plan := RefreshPlan{ToIndex: []FileInput{
		{Path: "caller.go", Source: []byte(crossFileCallerSrc), Driver: goDriver, Language: "go"},
		{Path: "other.go", Source: []byte(otherSrc), Driver: goDriver, Language: "go"},
	}}
	require.NoError(t, ws.Run(context.Background(), plan, nil))

	nodes, err := store.GetNodes(context.Background())
	require.NoError(t, err)
	var utilID graph.NodeID
	for _, n := range nodes {
		if n.SerializedName == "Util" {
			utilID = n.ID
		}
	}
	require.NotZero(t, utilID)

	edges, err := store.GetEdges(context.Background())
	require.NoError(t, err)
	var resolved bool
	for _, e := range edges {
		if e.Kind == graph.EdgeKindCall && e.HasResolvedTgt && e.ResolvedTarget == utilID {
			resolved = true
		}
	}
	assert.True(t, resolved, "the resolution pass must link the cross-file call to Util's definition")
}

func TestWorkspaceRunDeletesRemovedFileProjection(t *testing.T) {
	store := openTestStore(t)
	reg := parse.DefaultRegistry()
	goDriver, _ := reg.Driver("go")

	ws := New(store, nil, nil, DefaultConfig(), nil)
	firstPlan := RefreshPlan{ToIndex: []FileInput{
		{Path: "caller.go", Source: []byte(callerSrc), Driver: goDriver, Language: "go"},
	}}
	require.NoError(t, ws.Run(context.Background(), firstPlan, nil))

	nodesBefore, err := store.GetNodes(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, nodesBefore)

	fileID := graph.NewNodeID(graph.FileCanonicalID("caller.go"))
	secondPlan := RefreshPlan{ToRemove: []graph.NodeID{fileID}}
	require.NoError(t, ws.Run(context.Background(), secondPlan, nil))

	nodesAfter, err := store.GetNodes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, nodesAfter)
}
