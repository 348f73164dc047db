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

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/kraklabs/codeintel/internal/graph"
	"github.com/kraklabs/codeintel/pkg/cozodb"
)

// Config controls how a Store opens its embedded CozoDB instance.
type Config struct {
	// DataDir is the directory holding the project's database files.
	// Defaults to "~/.cie/data/<project_id>" when empty, matching the
	// teacher's embedded-backend convention.
	DataDir string
	// Engine selects Cozo's storage engine: "mem", "sqlite", or "rocksdb".
	Engine string
	// ProjectID scopes the default DataDir.
	ProjectID string
	// EmbeddingDimensions, when positive, makes Open try to create an
	// HNSW index of that dimension (node:embedding); a failure is logged,
	// not returned. No query in this module reads the index: the
	// retrieval Search step matches names by regex (SearchNodes).
	EmbeddingDimensions int
}

func (c Config) resolveDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cie", "data", c.ProjectID)
}

// Store is the embedded relational store described by §4.3: batched
// transactional writes, a node read cache, and the trail query surface.
// The store is single-writer; the orchestrator owning a Store must not
// call write methods concurrently with other callers (§5).
type Store struct {
	db     cozodb.CozoDB
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool

	cacheMu sync.RWMutex
	cache   map[graph.NodeID]graph.Node
}

// Open creates or opens the embedded store for a project, ensuring the
// schema exists.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	engine := cfg.Engine
	if engine == "" {
		engine = "rocksdb"
	}
	dataDir := cfg.resolveDataDir()
	if engine != "mem" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create data dir: %w", err)
		}
	}

	db, err := cozodb.New(engine, dataDir, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open cozodb: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		cache:  make(map[graph.NodeID]graph.Node),
	}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if cfg.EmbeddingDimensions > 0 {
		if err := s.createHNSWIndex(cfg.EmbeddingDimensions); err != nil {
			logger.Warn("storage.hnsw.create_failed", "error", err)
		}
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.db.Close()
	return nil
}

func (s *Store) ensureSchema() error {
	for _, stmt := range DatalogSchema() {
		if _, err := s.db.Run(stmt, nil); err != nil {
			if isAlreadyExists(err) {
				continue
			}
			return fmt.Errorf("storage: ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) createHNSWIndex(dimensions int) error {
	script := fmt.Sprintf(`::hnsw create node:embedding {
		dim: %d,
		m: 16,
		ef_construction: 200,
		dtype: F32,
		fields: [vec],
		distance: Cosine,
	}`, dimensions)
	_, err := s.db.Run(script, nil)
	if err != nil && isAlreadyExists(err) {
		return nil
	}
	return err
}

func isAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return containsFold(msg, "already exists") || containsFold(msg, "conflict")
}

func containsFold(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexFold(haystack, needle) >= 0
}

func indexFold(haystack, needle string) int {
	hl, nl := len(haystack), len(needle)
	if nl == 0 {
		return 0
	}
	for i := 0; i+nl <= hl; i++ {
		if equalFold(haystack[i:i+nl], needle) {
			return i
		}
	}
	return -1
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// checkContext returns an error if ctx has already been canceled, so read
// and write paths fail fast under cancellation (§5).
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
