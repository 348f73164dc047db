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

// Package config loads and saves the workspace configuration file
// (.cie/config.yaml): project identity, storage engine selection, indexing
// batch/worker sizing, exclude globs, and the default retrieval profile.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir  = ".cie"
	defaultConfigFile = "config.yaml"
	configVersion     = "1"
)

// Config is the root of a workspace's .cie/config.yaml file.
type Config struct {
	Version   string          `yaml:"version"`
	ProjectID string          `yaml:"project_id"`
	Storage   StorageConfig   `yaml:"storage"`
	Indexing  IndexingConfig  `yaml:"indexing"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// StorageConfig selects and sizes the embedded store (internal/storage).
type StorageConfig struct {
	// Engine is Cozo's storage backend: "mem", "sqlite", or "rocksdb".
	Engine string `yaml:"engine"`
	// DataDir holds the project's database files. Empty defaults to
	// ~/.cie/data/<project_id>, matching storage.Config.resolveDataDir.
	DataDir string `yaml:"data_dir,omitempty"`
	// EmbeddingDimensions sizes the optional HNSW semantic-search index.
	EmbeddingDimensions int `yaml:"embedding_dimensions,omitempty"`
}

// IndexingConfig controls the workspace indexer's batching, concurrency,
// and file selection (internal/index.Config plus the file-walk filter).
type IndexingConfig struct {
	FileBatchSize       int      `yaml:"file_batch_size"`
	NodeBatchSize       int      `yaml:"node_batch_size"`
	EdgeBatchSize       int      `yaml:"edge_batch_size"`
	OccurrenceBatchSize int      `yaml:"occurrence_batch_size"`
	ErrorBatchSize      int      `yaml:"error_batch_size"`
	Workers             int      `yaml:"workers"`
	MaxFileSizeBytes    int64    `yaml:"max_file_size_bytes"`
	UseGitDelta         bool     `yaml:"use_git_delta"`
	ExcludeGlobs        []string `yaml:"exclude"`
}

// RetrievalConfig holds the default profile and result-count bound a
// caller of internal/retrieval.Orchestrator did not override per request.
type RetrievalConfig struct {
	// DefaultProfile is "latency_first" or "quality_first".
	DefaultProfile string `yaml:"default_profile"`
	// DefaultMaxResults bounds Search/Trail result sets when a caller
	// does not specify one.
	DefaultMaxResults int `yaml:"default_max_results"`
}

// Default returns a config with sensible defaults for local development,
// mirroring the teacher's DefaultConfig shape: explicit struct-of-structs,
// no reflection-based env binding.
func Default(projectID string) *Config {
	return &Config{
		Version:   configVersion,
		ProjectID: projectID,
		Storage: StorageConfig{
			Engine:              "rocksdb",
			EmbeddingDimensions: 768,
		},
		Indexing: IndexingConfig{
			FileBatchSize:       16,
			NodeBatchSize:       50_000,
			EdgeBatchSize:       50_000,
			OccurrenceBatchSize: 50_000,
			ErrorBatchSize:      1_000,
			Workers:             8,
			MaxFileSizeBytes:    1_048_576, // 1MB
			UseGitDelta:         true,
			ExcludeGlobs:        defaultExcludeGlobs(),
		},
		Retrieval: RetrievalConfig{
			DefaultProfile:    "latency_first",
			DefaultMaxResults: 20,
		},
	}
}

func defaultExcludeGlobs() []string {
	return []string{
		".git/**",
		"node_modules/**", "vendor/**",
		"dist/**", "build/**", "bin/**", "**/bin/**", "out/**",
		".idea/**", ".vscode/**", "*.swp", "*.swo",
		".next/**", ".nuxt/**",
		".cie/**",
		"*.o", "*.so", "*.dylib", "*.exe", "*.dll", "*.a",
		".cache/**", "coverage/**", "tmp/**", ".tmp/**",
		"*.min.js", "*.min.css",
		"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "go.sum",
	}
}

// Load reads configuration from configPath, or finds .cie/config.yaml by
// walking up from the current directory when configPath is empty. The
// CIE_CONFIG_PATH environment variable overrides the search, and a small
// set of other CIE_* variables override fields after the file loads.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv("CIE_CONFIG_PATH")
	}
	if configPath == "" {
		var err error
		configPath, err = findConfigFile()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) //nolint:gosec // G304: path comes from user config or discovery
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", configPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
	}
	if cfg.Version != configVersion {
		return nil, fmt.Errorf("config: %s has version %q, expected %q", configPath, cfg.Version, configVersion)
	}

	cfg.applyEnvOverrides()
	return &cfg, nil
}

// Save writes cfg to configPath as YAML, creating the parent directory if
// needed.
func Save(cfg *Config, configPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("config: create directory for %s: %w", configPath, err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", configPath, err)
	}
	return nil
}

// Path returns <dir>/.cie/config.yaml.
func Path(dir string) string {
	return filepath.Join(dir, defaultConfigDir, defaultConfigFile)
}

// Dir returns <dir>/.cie.
func Dir(dir string) string {
	return filepath.Join(dir, defaultConfigDir)
}

func findConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("config: get working directory: %w", err)
	}

	for {
		candidate := Path(dir)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("config: no %s/%s found in %q or any parent directory", defaultConfigDir, defaultConfigFile, dir)
}

// applyEnvOverrides lets CIE_* environment variables override file-based
// configuration without editing the checked-in config file.
func (c *Config) applyEnvOverrides() {
	if id := os.Getenv("CIE_PROJECT_ID"); id != "" {
		c.ProjectID = id
	}
	if dir := os.Getenv("CIE_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if engine := os.Getenv("CIE_STORAGE_ENGINE"); engine != "" {
		c.Storage.Engine = engine
	}
}
