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
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codeintel/internal/events"
	"github.com/kraklabs/codeintel/internal/index"
	"github.com/kraklabs/codeintel/internal/metrics"
	"github.com/kraklabs/codeintel/internal/ui"
)

// runIndex drives a single workspace indexing pass: discover files
// (git-delta or full walk per config), run the workspace indexer, and
// report progress through internal/ui unless --json/--quiet suppress it.
func runIndex(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	full := fs.Bool("full", false, "force a full re-index, ignoring git-delta")
	metricsAddr := fs.String("metrics-addr", "", "serve /metrics on this address while indexing (e.g. :9090)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("index: get working directory: %w", err)
	}

	cfg, err := loadWorkspaceConfig(globals)
	if err != nil {
		return err
	}

	rec := metrics.New()
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, rec, newLogger(globals))
	}

	logger := newLogger(globals)
	store, err := openStoreWithConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	plan, err := index.Discover(index.DiscoverOptions{
		Root:            cwd,
		ExcludeGlobs:    cfg.Indexing.ExcludeGlobs,
		MaxFileSizeByte: cfg.Indexing.MaxFileSizeBytes,
		UseGitDelta:     cfg.Indexing.UseGitDelta && !*full,
	})
	if err != nil {
		return fmt.Errorf("index: discover files: %w", err)
	}

	bus := events.NewBus()
	reporter := ui.NewReporter(bus, os.Stdout, !globals.Quiet && ui.IsTerminal(os.Stdout) && !globals.NoColor)
	defer reporter.Close(bus)

	ws := index.New(store, bus, logger, index.Config{
		FileBatchSize:       cfg.Indexing.FileBatchSize,
		NodeBatchSize:       cfg.Indexing.NodeBatchSize,
		EdgeBatchSize:       cfg.Indexing.EdgeBatchSize,
		OccurrenceBatchSize: cfg.Indexing.OccurrenceBatchSize,
		ErrorBatchSize:      cfg.Indexing.ErrorBatchSize,
		Workers:             cfg.Indexing.Workers,
	}, rec)

	if err := ws.Run(context.Background(), plan, nil); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	return nil
}
