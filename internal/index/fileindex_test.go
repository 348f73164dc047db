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

package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codeintel/internal/graph"
	"github.com/kraklabs/codeintel/internal/parse"
	"github.com/kraklabs/codeintel/internal/resolve"
)

const sampleGo = `package sample

import "fmt"

func Greet(name string) string {
	return fmt.Sprintf("hello %s", name)
}

type Widget struct {
	Name string
}

func (w *Widget) Describe() string {
	return Greet(w.Name)
}
`

func registry(t *testing.T) parse.Driver {
	t.Helper()
	reg := parse.DefaultRegistry()
	d, ok := reg.Driver("go")
	require.True(t, ok)
	return d
}

func TestIndexFileEmitsFileNode(t *testing.T) {
	d := registry(t)
	symtab := resolve.NewSymbolTable()

	result := IndexFile(context.Background(), FileInput{
		Path:     "sample.go",
		Source:   []byte(sampleGo),
		Driver:   d,
		Language: "go",
	}, symtab)

	var fileNode *graph.Node
	for i := range result.Nodes {
		if result.Nodes[i].Kind == graph.NodeKindFile {
			fileNode = &result.Nodes[i]
		}
	}
	require.NotNil(t, fileNode)
	assert.Equal(t, graph.NewNodeID("sample.go"), fileNode.ID)
	assert.Equal(t, 1, fileNode.Span.StartLine)
	assert.True(t, fileNode.Span.EndLine >= 1)
}

func TestIndexFileExtractsFunctionsAndStruct(t *testing.T) {
	d := registry(t)
	result := IndexFile(context.Background(), FileInput{
		Path:     "sample.go",
		Source:   []byte(sampleGo),
		Driver:   d,
		Language: "go",
	}, resolve.NewSymbolTable())

	names := map[string]graph.NodeKind{}
	for _, n := range result.Nodes {
		names[n.SerializedName] = n.Kind
	}
	assert.Equal(t, graph.NodeKindFunction, names["Greet"])
	assert.Equal(t, graph.NodeKindMethod, names["Describe"])
	assert.Equal(t, graph.NodeKindStruct, names["Widget"])
}

func TestIndexFileEmitsDefinitionOccurrencePerNode(t *testing.T) {
	d := registry(t)
	result := IndexFile(context.Background(), FileInput{
		Path:     "sample.go",
		Source:   []byte(sampleGo),
		Driver:   d,
		Language: "go",
	}, resolve.NewSymbolTable())

	var realNodes int
	for _, n := range result.Nodes {
		if n.Kind != graph.NodeKindUnknown {
			realNodes++
		}
	}
	assert.Equal(t, realNodes, len(result.Occurrences))
	for _, o := range result.Occurrences {
		assert.Equal(t, graph.OccurrenceKindDefinition, o.Kind)
	}
}

func TestIndexFileCreatesPlaceholderForExternalCallTarget(t *testing.T) {
	d := registry(t)
	result := IndexFile(context.Background(), FileInput{
		Path:     "sample.go",
		Source:   []byte(sampleGo),
		Driver:   d,
		Language: "go",
	}, resolve.NewSymbolTable())

	var sprintfPlaceholder, importPlaceholder *graph.Node
	for i := range result.Nodes {
		n := &result.Nodes[i]
		if n.Kind != graph.NodeKindUnknown {
			continue
		}
		switch n.SerializedName {
		case "fmt.Sprintf":
			sprintfPlaceholder = n
		case "fmt":
			importPlaceholder = n
		}
	}
	require.NotNil(t, sprintfPlaceholder, "an external call target must get an UNKNOWN placeholder node")
	require.NotNil(t, importPlaceholder, "an external import target must get an UNKNOWN placeholder node")

	var sawFmtImportEdge bool
	for _, e := range result.Edges {
		if e.Kind == graph.EdgeKindImport && e.Target == importPlaceholder.ID {
			sawFmtImportEdge = true
			assert.Equal(t, graph.NewNodeID("sample.go"), e.Source, "a file-level import is owned by the file node")
		}
	}
	assert.True(t, sawFmtImportEdge)
}

func TestIndexFileAttributesCallToEnclosingFunction(t *testing.T) {
	d := registry(t)
	result := IndexFile(context.Background(), FileInput{
		Path:     "sample.go",
		Source:   []byte(sampleGo),
		Driver:   d,
		Language: "go",
	}, resolve.NewSymbolTable())

	var describeID graph.NodeID
	for _, n := range result.Nodes {
		if n.SerializedName == "Describe" {
			describeID = n.ID
		}
	}
	require.NotZero(t, describeID)

	found := false
	for _, e := range result.Edges {
		if e.Kind == graph.EdgeKindCall && e.Source == describeID {
			found = true
		}
	}
	assert.True(t, found, "the call to Greet inside Describe must be attributed to Describe")
}

func TestIndexFileSeedsSymbolTable(t *testing.T) {
	d := registry(t)
	symtab := resolve.NewSymbolTable()
	result := IndexFile(context.Background(), FileInput{
		Path:     "sample.go",
		Source:   []byte(sampleGo),
		Driver:   d,
		Language: "go",
	}, symtab)

	assert.Equal(t, len(result.Nodes), symtab.Len())
}

func TestIndexFileUnparsableStillEmitsFileNodeAndError(t *testing.T) {
	result := IndexFile(context.Background(), FileInput{
		Path:     "broken.go",
		Source:   []byte("not real go source {{{"),
		Driver:   failingDriver{},
		Language: "go",
	}, resolve.NewSymbolTable())

	require.Len(t, result.Nodes, 1)
	assert.Equal(t, graph.NodeKindFile, result.Nodes[0].Kind)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, graph.ErrorStepIndexing, result.Errors[0].Step)
	assert.False(t, result.Errors[0].IsFatal)
}

type failingDriver struct{}

func (failingDriver) Language() string { return "go" }
func (failingDriver) Parse(ctx context.Context, path string, source []byte) (*parse.DSLResult, error) {
	return nil, assertParseErr{}
}

type assertParseErr struct{}

func (assertParseErr) Error() string { return "synthetic parse failure" }
