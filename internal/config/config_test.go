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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHasDeterministicBatchAndGlobDefaults(t *testing.T) {
	cfg := Default("acme-api")
	assert.Equal(t, "acme-api", cfg.ProjectID)
	assert.Equal(t, configVersion, cfg.Version)
	assert.Equal(t, "rocksdb", cfg.Storage.Engine)
	assert.Equal(t, 8, cfg.Indexing.Workers)
	assert.Contains(t, cfg.Indexing.ExcludeGlobs, "node_modules/**")
	assert.Equal(t, "latency_first", cfg.Retrieval.DefaultProfile)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)

	original := Default("widget-service")
	original.Storage.DataDir = filepath.Join(dir, "data")
	require.NoError(t, Save(original, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original.ProjectID, loaded.ProjectID)
	assert.Equal(t, original.Storage.DataDir, loaded.Storage.DataDir)
	assert.Equal(t, original.Indexing.ExcludeGlobs, loaded.Indexing.ExcludeGlobs)
}

func TestLoadRejectsMismatchedVersion(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("version: \"99\"\nproject_id: x\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestLoadWalksUpParentDirectoriesWhenPathNotGiven(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Save(Default("nested-proj"), Path(root)))

	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { require.NoError(t, os.Chdir(cwd)) }()
	require.NoError(t, os.Chdir(nested))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "nested-proj", cfg.ProjectID)
}

func TestLoadHonorsEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	require.NoError(t, Save(Default("base-proj"), path))

	t.Setenv("CIE_PROJECT_ID", "overridden-proj")
	t.Setenv("CIE_STORAGE_ENGINE", "mem")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "overridden-proj", cfg.ProjectID)
	assert.Equal(t, "mem", cfg.Storage.Engine)
}

func TestShouldExclude(t *testing.T) {
	globs := defaultExcludeGlobs()
	cases := []struct {
		path    string
		exclude bool
	}{
		{"node_modules/left-pad/index.js", true},
		{"vendor/github.com/foo/bar.go", true},
		{".git/HEAD", true},
		{"src/main.go", false},
		{"internal/widget/widget.go", false},
		{"build/out/app", true},
		{"notes.min.js", true},
		{"go.sum", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.exclude, ShouldExclude(tc.path, globs), "path=%s", tc.path)
	}
}

func TestMatchesGlobDoubleStarSpansSeparators(t *testing.T) {
	assert.True(t, matchesGlob("a/b/c/bin/tool", "**/bin/**"))
	assert.False(t, matchesGlob("a/bin", "**/bin/**"))
	assert.True(t, matchesGlob("cmd/bin/tool", "**/bin/**"))
}
