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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codeintel/internal/graph"
	"github.com/kraklabs/codeintel/internal/metrics"
	"github.com/kraklabs/codeintel/internal/retrieval"
)

// runServe opens the workspace store and serves the retrieval orchestrator
// contract (§2) over HTTP, plus /metrics (§ DOMAIN STACK's internal/metrics
// description: "exposed via an optional /metrics HTTP handler").
func runServe(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger(globals)
	rec := metrics.New()
	store, cfg, err := openStoreFromConfig(globals)
	if err != nil {
		return err
	}
	defer store.Close()

	orch := retrieval.NewOrchestrator(store, logger, rec)
	profile := retrieval.ProfileLatencyFirst
	if cfg.Retrieval.DefaultProfile == "quality_first" {
		profile = retrieval.ProfileQualityFirst
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	mux.HandleFunc("/answer", answerHandler(orch, profile, cfg.Retrieval.DefaultMaxResults))

	logger.Info("serve.listen", "addr", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// serveMetrics runs a standalone /metrics listener, used by `cie index
// --metrics-addr` to expose counters for the duration of a single run.
func serveMetrics(addr string, rec *metrics.Recorder, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	logger.Info("metrics.listen", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics.listen_failed", "error", err)
	}
}

type answerRequest struct {
	Prompt      string `json:"prompt"`
	FocusNodeID uint64 `json:"focus_node_id,omitempty"`
	HasFocus    bool   `json:"has_focus,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
	Profile     string `json:"profile,omitempty"`
}

func answerHandler(orch *retrieval.Orchestrator, defaultProfile retrieval.RetrievalProfile, defaultMaxResults int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
			return
		}

		profile := defaultProfile
		switch req.Profile {
		case "quality_first":
			profile = retrieval.ProfileQualityFirst
		case "latency_first":
			profile = retrieval.ProfileLatencyFirst
		}
		maxResults := req.MaxResults
		if maxResults <= 0 {
			maxResults = defaultMaxResults
		}

		bundle, err := orch.Answer(r.Context(), retrieval.Request{
			Prompt:      req.Prompt,
			FocusNodeID: graph.NodeID(req.FocusNodeID),
			HasFocus:    req.HasFocus,
			MaxResults:  maxResults,
			Profile:     profile,
		})
		if err != nil {
			http.Error(w, fmt.Sprintf("answer: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(bundle)
	}
}
