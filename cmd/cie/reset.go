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

	flag "github.com/spf13/pflag"
)

// runReset drops every node/edge/occurrence/bookmark row in the current
// workspace's store, requiring --yes since there is no undo.
func runReset(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	yes := fs.BoolP("yes", "y", false, "confirm the destructive reset")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("reset: this deletes all local project data; re-run with --yes to confirm")
	}

	store, cfg, err := openStoreFromConfig(globals)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(context.Background()); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if !globals.Quiet {
		fmt.Printf("Cleared local data for project %q\n", cfg.ProjectID)
	}
	return nil
}
