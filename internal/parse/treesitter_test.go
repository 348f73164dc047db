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

package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSample = `package sample

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

func TestTreeSitterDriverGoExtractsDeclarations(t *testing.T) {
	d := NewTreeSitterDriver(goConfig)
	assert.Equal(t, "go", d.Language())

	result, err := d.Parse(context.Background(), "sample.go", []byte(goSample))
	require.NoError(t, err)

	var names []string
	for _, n := range result.Nodes {
		names = append(names, n.Name)
	}
	assert.Contains(t, names, "Greet")
	assert.Contains(t, names, "Describe")
	assert.Contains(t, names, "Widget")

	var callTargets, importTargets []string
	for _, e := range result.Edges {
		switch e.Kind {
		case "CALL":
			callTargets = append(callTargets, e.TargetRef)
		case "IMPORT":
			importTargets = append(importTargets, e.TargetRef)
		}
	}
	assert.Contains(t, callTargets, "fmt.Sprintf")
	assert.Contains(t, callTargets, "Greet")
	assert.Contains(t, importTargets, "fmt", "import path quotes must be trimmed")
}

func TestTreeSitterDriverGoRecordsSpans(t *testing.T) {
	d := NewTreeSitterDriver(goConfig)
	result, err := d.Parse(context.Background(), "sample.go", []byte(goSample))
	require.NoError(t, err)

	for _, n := range result.Nodes {
		if n.Name == "Greet" {
			assert.Equal(t, 4, n.StartRow) // zero-based row for `func Greet(...)`
			assert.True(t, n.EndRow >= n.StartRow)
			return
		}
	}
	t.Fatal("Greet node not found")
}

func TestDefaultRegistryDispatchesByLanguage(t *testing.T) {
	r := DefaultRegistry()
	for _, lang := range []string{"go", "python", "javascript", "typescript"} {
		d, ok := r.Driver(lang)
		require.True(t, ok, "expected a driver for %s", lang)
		assert.Equal(t, lang, d.Language())
	}
	_, ok := r.Driver("cobol")
	assert.False(t, ok)
}
