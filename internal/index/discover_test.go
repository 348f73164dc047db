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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestDiscoverWalkFindsSupportedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\nfunc main() {}\n")
	writeFile(t, root, "README.md", "# not a supported language\n")
	writeFile(t, root, "vendor/dep.go", "package vendor\n")

	plan, err := Discover(DiscoverOptions{
		Root:         root,
		ExcludeGlobs: []string{"vendor/**"},
	})
	require.NoError(t, err)
	require.Len(t, plan.ToIndex, 1)
	assert.Equal(t, "main.go", plan.ToIndex[0].Path)
	assert.Equal(t, "go", plan.ToIndex[0].Language)
	assert.Empty(t, plan.ToRemove)
}

func TestDiscoverWalkSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.go", "package main\n// padding\n")

	plan, err := Discover(DiscoverOptions{
		Root:            root,
		MaxFileSizeByte: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, plan.ToIndex)
}

func TestDiscoverWalkSkipsBinaryFiles(t *testing.T) {
	root := t.TempDir()
	full := filepath.Join(root, "blob.go")
	require.NoError(t, os.WriteFile(full, []byte("package main\x00binary"), 0o644))

	plan, err := Discover(DiscoverOptions{Root: root})
	require.NoError(t, err)
	assert.Empty(t, plan.ToIndex)
}
