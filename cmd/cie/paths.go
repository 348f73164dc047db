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

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kraklabs/codeintel/internal/config"
	"github.com/kraklabs/codeintel/internal/storage"
)

// loadWorkspaceConfig loads .cie/config.yaml, following the precedence
// config.Load already implements (explicit path > CIE_CONFIG_PATH >
// walk-up-from-cwd).
func loadWorkspaceConfig(globals GlobalFlags) (*config.Config, error) {
	cfg, err := config.Load(globals.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config (run `cie init` first): %w", err)
	}
	return cfg, nil
}

// openStoreFromConfig loads the workspace config and opens its storage
// engine, returning both so callers that also need indexing/retrieval
// settings don't have to load the config twice.
func openStoreFromConfig(globals GlobalFlags) (*storage.Store, *config.Config, error) {
	cfg, err := loadWorkspaceConfig(globals)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStoreWithConfig(cfg, newLogger(globals))
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

// openStoreWithConfig opens the storage engine named by an already-loaded
// config, for callers (like `cie index`) that need cfg for other purposes
// before the store is opened.
func openStoreWithConfig(cfg *config.Config, logger *slog.Logger) (*storage.Store, error) {
	store, err := storage.Open(storage.Config{
		DataDir:             cfg.Storage.DataDir,
		Engine:              cfg.Storage.Engine,
		ProjectID:           cfg.ProjectID,
		EmbeddingDimensions: cfg.Storage.EmbeddingDimensions,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return store, nil
}

// newLogger builds the process-wide structured logger, honoring -v/-vv/-q.
func newLogger(globals GlobalFlags) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case globals.Quiet:
		level = slog.LevelError
	case globals.Verbose >= 2:
		level = slog.LevelDebug
	case globals.Verbose == 1:
		level = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
