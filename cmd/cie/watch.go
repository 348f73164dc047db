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
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codeintel/internal/events"
	"github.com/kraklabs/codeintel/internal/index"
	"github.com/kraklabs/codeintel/internal/metrics"
	"github.com/kraklabs/codeintel/internal/ui"
)

// runWatch re-indexes the workspace on a fixed interval using the git-delta
// discovery path, so each pass only touches files that changed since the
// last commit -- §4.2's "incremental refresh loop" consumer of RefreshPlan.
func runWatch(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	interval := fs.Duration("interval", 5*time.Second, "poll interval between re-index passes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("watch: get working directory: %w", err)
	}
	cfg, err := loadWorkspaceConfig(globals)
	if err != nil {
		return err
	}
	logger := newLogger(globals)
	store, err := openStoreWithConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	rec := metrics.New()
	bus := events.NewBus()
	reporter := ui.NewReporter(bus, os.Stdout, !globals.Quiet && ui.IsTerminal(os.Stdout) && !globals.NoColor)
	defer reporter.Close(bus)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	logger.Info("watch.start", "interval", interval.String())
	for {
		plan, err := index.Discover(index.DiscoverOptions{
			Root:            cwd,
			ExcludeGlobs:    cfg.Indexing.ExcludeGlobs,
			MaxFileSizeByte: cfg.Indexing.MaxFileSizeBytes,
			UseGitDelta:     true,
		})
		if err != nil {
			logger.Error("watch.discover_failed", "error", err)
		} else if len(plan.ToIndex) > 0 || len(plan.ToRemove) > 0 {
			ws := index.New(store, bus, logger, index.Config{
				FileBatchSize:       cfg.Indexing.FileBatchSize,
				NodeBatchSize:       cfg.Indexing.NodeBatchSize,
				EdgeBatchSize:       cfg.Indexing.EdgeBatchSize,
				OccurrenceBatchSize: cfg.Indexing.OccurrenceBatchSize,
				ErrorBatchSize:      cfg.Indexing.ErrorBatchSize,
				Workers:             cfg.Indexing.Workers,
			}, rec)
			if err := ws.Run(ctx, plan, nil); err != nil {
				logger.Error("watch.run_failed", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			logger.Info("watch.stop")
			return nil
		case <-ticker.C:
		}
	}
}
