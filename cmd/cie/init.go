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
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codeintel/internal/config"
)

// runInit writes a fresh .cie/config.yaml for the current directory,
// refusing to clobber an existing one unless --force is given.
func runInit(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	projectID := fs.String("project-id", "", "project identifier (default: current directory name)")
	force := fs.BoolP("force", "f", false, "overwrite an existing .cie/config.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("init: get working directory: %w", err)
	}

	path := config.Path(cwd)
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("init: %s already exists (use --force to overwrite)", path)
	}

	id := *projectID
	if id == "" {
		id = filepath.Base(cwd)
	}

	cfg := config.Default(id)
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	if !globals.Quiet {
		fmt.Printf("Wrote %s for project %q\n", path, id)
	}
	return nil
}
