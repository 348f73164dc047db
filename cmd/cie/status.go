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
)

type statusReport struct {
	ProjectID   string `json:"project_id"`
	Engine      string `json:"engine"`
	Nodes       int    `json:"nodes"`
	Edges       int    `json:"edges"`
	Occurrences int    `json:"occurrences"`
}

// runStatus reports node/edge/occurrence counts for the current workspace's
// store, a cheap proxy for "has this been indexed, and how much is in it."
func runStatus(args []string, globals GlobalFlags) error {
	store, cfg, err := openStoreFromConfig(globals)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	nodes, err := store.GetNodes(ctx)
	if err != nil {
		return fmt.Errorf("status: list nodes: %w", err)
	}
	edges, err := store.GetEdges(ctx)
	if err != nil {
		return fmt.Errorf("status: list edges: %w", err)
	}
	occs, err := store.GetOccurrences(ctx)
	if err != nil {
		return fmt.Errorf("status: list occurrences: %w", err)
	}

	report := statusReport{
		ProjectID:   cfg.ProjectID,
		Engine:      cfg.Storage.Engine,
		Nodes:       len(nodes),
		Edges:       len(edges),
		Occurrences: len(occs),
	}

	if globals.JSON {
		return printJSON(report)
	}
	fmt.Printf("project:     %s\n", report.ProjectID)
	fmt.Printf("engine:      %s\n", report.Engine)
	fmt.Printf("nodes:       %d\n", report.Nodes)
	fmt.Printf("edges:       %d\n", report.Edges)
	fmt.Printf("occurrences: %d\n", report.Occurrences)
	return nil
}
