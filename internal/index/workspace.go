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
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kraklabs/codeintel/internal/events"
	"github.com/kraklabs/codeintel/internal/graph"
	"github.com/kraklabs/codeintel/internal/metrics"
	"github.com/kraklabs/codeintel/internal/parse"
	"github.com/kraklabs/codeintel/internal/resolve"
	"github.com/kraklabs/codeintel/internal/storage"
)

// Config is the workspace indexer's tunable set (§4.2), all enumerated
// with the spec's defaults.
type Config struct {
	FileBatchSize       int
	NodeBatchSize       int
	EdgeBatchSize       int
	OccurrenceBatchSize int
	ErrorBatchSize      int
	Workers             int
}

// DefaultConfig returns the spec's defaults.
func DefaultConfig() Config {
	return Config{
		FileBatchSize:       16,
		NodeBatchSize:       50_000,
		EdgeBatchSize:       50_000,
		OccurrenceBatchSize: 50_000,
		ErrorBatchSize:      1_000,
		Workers:             8,
	}
}

// RefreshPlan names the files a workspace run must (re)index and the
// files whose projection must be torn down (§4.2 Inputs).
type RefreshPlan struct {
	ToIndex  []FileInput
	ToRemove []graph.NodeID
}

// Workspace drives the per-file indexer in parallel over a RefreshPlan,
// batches results into a Store, runs the resolution pass, and cleans up
// removed files (§4.2).
type Workspace struct {
	store   *storage.Store
	bus     *events.Bus
	logger  *slog.Logger
	cfg     Config
	symtab  *resolve.SymbolTable
	metrics *metrics.Recorder
}

// New returns a Workspace. bus and rec may both be nil (no events
// published, no metrics recorded).
func New(store *storage.Store, bus *events.Bus, logger *slog.Logger, cfg Config, rec *metrics.Recorder) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FileBatchSize <= 0 {
		cfg = DefaultConfig()
	}
	return &Workspace{
		store:   store,
		bus:     bus,
		logger:  logger,
		cfg:     cfg,
		symtab:  resolve.NewSymbolTable(),
		metrics: rec,
	}
}

// Cancellable lets a caller signal cooperative cancellation mid-run.
type Cancellable interface {
	Cancelled() bool
}

// Run executes the full control flow of §4.2 steps 1-6.
func (w *Workspace) Run(ctx context.Context, plan RefreshPlan, cancel Cancellable) error {
	start := time.Now()
	w.publish(events.Event{Kind: events.KindIndexingStarted, Payload: events.IndexingStarted{FileCount: len(plan.ToIndex)}})

	if err := w.seedSymbolTableFromStorage(ctx); err != nil {
		w.publish(events.Event{Kind: events.KindIndexingFailed, Payload: events.IndexingFailed{Err: err}})
		return err
	}

	var pending pendingBatch
	var errCount int
	total := len(plan.ToIndex)
	var processed int64
	anyEdges := false

	for chunkStart := 0; chunkStart < len(plan.ToIndex); chunkStart += w.cfg.FileBatchSize {
		if isCancelled(ctx, cancel) {
			break
		}
		end := chunkStart + w.cfg.FileBatchSize
		if end > len(plan.ToIndex) {
			end = len(plan.ToIndex)
		}
		chunk := plan.ToIndex[chunkStart:end]

		results := w.indexChunkParallel(ctx, chunk, cancel)
		for _, r := range results {
			if isCancelled(ctx, cancel) {
				break
			}
			pending.nodes = append(pending.nodes, r.Nodes...)
			pending.edges = append(pending.edges, r.Edges...)
			pending.occs = append(pending.occs, r.Occurrences...)
			pending.errs = append(pending.errs, r.Errors...)
			if len(r.Edges) > 0 {
				anyEdges = true
			}
			errCount += len(r.Errors)
			cur := atomic.AddInt64(&processed, 1)
			w.publish(events.Event{Kind: events.KindIndexingProgress, Payload: events.IndexingProgress{Current: int(cur), Total: total}})
		}

		if err := w.flushIfNeeded(ctx, &pending, false); err != nil {
			w.publish(events.Event{Kind: events.KindIndexingFailed, Payload: events.IndexingFailed{Err: err}})
			return err
		}
	}

	if err := w.flushIfNeeded(ctx, &pending, true); err != nil {
		w.publish(events.Event{Kind: events.KindIndexingFailed, Payload: events.IndexingFailed{Err: err}})
		return err
	}

	if anyEdges && !isCancelled(ctx, cancel) {
		resolver := resolve.New(w.store, w.logger, w.metrics)
		if _, err := resolver.Run(ctx); err != nil {
			w.publish(events.Event{Kind: events.KindIndexingFailed, Payload: events.IndexingFailed{Err: err}})
			return err
		}
	}

	for _, fileID := range plan.ToRemove {
		if _, err := w.store.DeleteFileProjection(ctx, fileID); err != nil {
			w.publish(events.Event{Kind: events.KindIndexingFailed, Payload: events.IndexingFailed{Err: err}})
			return err
		}
	}

	elapsed := time.Since(start)
	if isCancelled(ctx, cancel) {
		elapsed = 0
	}
	w.metrics.AddFilesIndexed(total)
	w.publish(events.Event{Kind: events.KindIndexingComplete, Payload: events.IndexingComplete{DurationMS: elapsed.Milliseconds()}})
	return nil
}

func isCancelled(ctx context.Context, c Cancellable) bool {
	if ctx.Err() != nil {
		return true
	}
	return c != nil && c.Cancelled()
}

func (w *Workspace) publish(e events.Event) {
	if w.bus != nil {
		w.bus.Publish(e)
	}
}

func (w *Workspace) seedSymbolTableFromStorage(ctx context.Context) error {
	nodes, err := w.store.GetNodes(ctx)
	if err != nil {
		return err
	}
	w.symtab.Seed(nodes)
	return nil
}

type pendingBatch struct {
	nodes []graph.Node
	edges []graph.Edge
	occs  []graph.Occurrence
	errs  []graph.ErrorRecord
}

// flushIfNeeded writes batched rows once any threshold is exceeded, or
// unconditionally when force is true (the residual flush after the last
// chunk, §4.2 step 4). Write order is nodes → edges → occurrences: FILE
// nodes are interleaved first within InsertNodesBatch to satisfy the
// node.file_node_id foreign key before non-FILE rows land.
func (w *Workspace) flushIfNeeded(ctx context.Context, p *pendingBatch, force bool) error {
	overThreshold := len(p.nodes) >= w.cfg.NodeBatchSize ||
		len(p.edges) >= w.cfg.EdgeBatchSize ||
		len(p.occs) >= w.cfg.OccurrenceBatchSize ||
		len(p.errs) >= w.cfg.ErrorBatchSize
	if !force && !overThreshold {
		return nil
	}
	flushStart := time.Now()
	nodeCount, edgeCount, occCount := len(p.nodes), len(p.edges), len(p.occs)
	if len(p.nodes) > 0 {
		if err := w.store.InsertNodesBatch(ctx, p.nodes); err != nil {
			return err
		}
		p.nodes = nil
	}
	if len(p.edges) > 0 {
		if err := w.store.InsertEdgesBatch(ctx, p.edges); err != nil {
			return err
		}
		p.edges = nil
	}
	if len(p.occs) > 0 {
		if err := w.store.InsertOccurrencesBatch(ctx, p.occs); err != nil {
			return err
		}
		p.occs = nil
	}
	if len(p.errs) > 0 {
		if err := w.store.InsertErrorsBatch(ctx, 0, p.errs); err != nil {
			return err
		}
		p.errs = nil
	}
	w.metrics.ObserveBatchFlush(nodeCount, edgeCount, occCount, time.Since(flushStart).Seconds())
	return nil
}

// indexChunkParallel maps IndexFile across a worker pool, mirroring the
// teacher's jobs-channel fan-out: each worker owns its own slice of the
// chunk, nothing is shared across goroutines besides the symbol table
// (which guards itself with a mutex).
func (w *Workspace) indexChunkParallel(ctx context.Context, chunk []FileInput, cancel Cancellable) []IndexResult {
	if len(chunk) == 0 {
		return nil
	}
	workers := w.cfg.Workers
	if workers <= 0 || workers > len(chunk) {
		workers = len(chunk)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int, len(chunk))
	results := make([]IndexResult, len(chunk))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if isCancelled(ctx, cancel) {
					results[idx] = IndexResult{}
					continue
				}
				if driver, ok := ensureDriver(chunk[idx]); ok {
					in := chunk[idx]
					in.Driver = driver
					results[idx] = IndexFile(ctx, in, w.symtab)
				} else {
					results[idx] = IndexResult{Errors: []graph.ErrorRecord{{
						Message: "no grammar driver for language " + chunk[idx].Language,
						IsFatal: true,
						Step:    graph.ErrorStepCollection,
					}}}
				}
			}
		}()
	}
	for i := range chunk {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func ensureDriver(in FileInput) (parse.Driver, bool) {
	if in.Driver != nil {
		return in.Driver, true
	}
	return nil, false
}
