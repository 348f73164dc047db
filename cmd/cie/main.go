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

// Package main implements the cie CLI: indexing a workspace, querying its
// symbol graph, and serving a retrieval HTTP surface.
//
// Usage:
//
//	cie init                  Create .cie/config.yaml
//	cie index [--full]        Index (or re-index) the current workspace
//	cie status [--json]       Show indexing/storage status
//	cie query <subcommand>    search|neighborhood|trail|node|occurrences
//	cie reset                 Drop local project data (destructive!)
//	cie serve                 Serve retrieval HTTP + /metrics
//	cie watch                 Re-index on a loop as files change
//	cie --version             Show version and exit
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds flags shared by every subcommand.
type GlobalFlags struct {
	JSON       bool
	NoColor    bool
	Verbose    int
	Quiet      bool
	ConfigPath string
}

func usage() {
	fmt.Fprintf(os.Stderr, `cie - code intelligence engine

Usage:
  cie <command> [options]

Commands:
  init          Create .cie/config.yaml in the current directory
  index         Index (or incrementally re-index) the current workspace
  status        Show indexing/storage status
  query         Run a read query: search|neighborhood|trail|node|occurrences
  reset         Delete local project data (destructive!)
  serve         Serve the retrieval HTTP API and /metrics
  watch         Re-index on a loop as files change

Global Options:
  --json            Output in JSON format (for applicable commands)
  --no-color        Disable color output (respects NO_COLOR env var)
  -v, --verbose     Increase verbosity (-v for info, -vv for debug)
  -q, --quiet       Suppress non-essential output
  -c, --config      Path to .cie/config.yaml
  -V, --version     Show version and exit

Examples:
  cie init
  cie index
  cie index --full
  cie status --json
  cie query search "parseRequest"
  cie query trail --focus 0x1a2b --depth 3
  cie serve --addr :8080

For detailed command help: cie <command> --help
`)
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to .cie/config.yaml")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format (for applicable commands)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output")
	)

	// Stop parsing at the first non-flag argument so subcommand-local
	// flags like "index --full" reach their own handler untouched.
	flag.SetInterspersed(false)
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("cie version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if *quiet && *verbose > 0 {
		fmt.Fprintln(os.Stderr, "Error: cannot use --quiet and --verbose together")
		os.Exit(1)
	}
	// JSON mode auto-enables quiet so progress bars never corrupt stdout.
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{
		JSON:       *jsonOutput,
		NoColor:    *noColor,
		Verbose:    *verbose,
		Quiet:      *quiet,
		ConfigPath: *configPath,
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	command, cmdArgs := args[0], args[1:]
	var err error
	switch command {
	case "init":
		err = runInit(cmdArgs, globals)
	case "index":
		err = runIndex(cmdArgs, globals)
	case "status":
		err = runStatus(cmdArgs, globals)
	case "query":
		err = runQuery(cmdArgs, globals)
	case "reset":
		err = runReset(cmdArgs, globals)
	case "serve":
		err = runServe(cmdArgs, globals)
	case "watch":
		err = runWatch(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
