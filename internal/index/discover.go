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
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kraklabs/codeintel/internal/config"
	"github.com/kraklabs/codeintel/internal/graph"
	"github.com/kraklabs/codeintel/internal/parse"
)

// extLanguages maps a file extension to the grammar driver that parses it.
var extLanguages = map[string]string{
	".go":  "go",
	".py":  "python",
	".js":  "javascript",
	".jsx": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",
}

// DiscoverOptions controls how Discover walks a workspace root to build a
// RefreshPlan (§4.2 Inputs).
type DiscoverOptions struct {
	Root            string
	ExcludeGlobs    []string
	MaxFileSizeByte int64
	UseGitDelta     bool
	Registry        *parse.Registry
}

// Discover builds a RefreshPlan for a workspace root: a full walk when
// UseGitDelta is false or the root isn't a git worktree, otherwise a
// `git diff` against HEAD plus untracked files so a re-run only touches
// what changed. Deleted/renamed-away paths are surfaced as ToRemove node
// IDs computed the same way IndexFile derives a file node's ID, so the
// caller never has to round-trip through storage to find them.
func Discover(opts DiscoverOptions) (RefreshPlan, error) {
	if opts.Registry == nil {
		opts.Registry = parse.DefaultRegistry()
	}
	if opts.UseGitDelta && isGitRepository(opts.Root) {
		plan, err := discoverViaGitDelta(opts)
		if err == nil {
			return plan, nil
		}
	}
	return discoverViaWalk(opts)
}

func isGitRepository(root string) bool {
	_, err := os.Stat(filepath.Join(root, ".git"))
	return err == nil
}

// discoverViaWalk enumerates every eligible file under root -- used for a
// first index and as the git-delta fallback.
func discoverViaWalk(opts DiscoverOptions) (RefreshPlan, error) {
	var plan RefreshPlan
	err := filepath.WalkDir(opts.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			rel, relErr := filepath.Rel(opts.Root, path)
			if relErr == nil && config.ShouldExclude(rel+"/", opts.ExcludeGlobs) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(opts.Root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if config.ShouldExclude(rel, opts.ExcludeGlobs) {
			return nil
		}
		in, ok, buildErr := buildFileInput(opts, path, rel)
		if buildErr != nil {
			return buildErr
		}
		if ok {
			plan.ToIndex = append(plan.ToIndex, in)
		}
		return nil
	})
	if err != nil {
		return RefreshPlan{}, fmt.Errorf("index: walk workspace: %w", err)
	}
	return plan, nil
}

// discoverViaGitDelta restricts the plan to paths changed since HEAD plus
// untracked files, grounded on the teacher's DetectDelta/DetectUntrackedFiles
// pair in pkg/ingestion/delta.go.
func discoverViaGitDelta(opts DiscoverOptions) (RefreshPlan, error) {
	changed, deleted, err := gitChangedPaths(opts.Root)
	if err != nil {
		return RefreshPlan{}, err
	}
	untracked, err := gitUntrackedPaths(opts.Root)
	if err != nil {
		return RefreshPlan{}, err
	}
	changed = append(changed, untracked...)

	var plan RefreshPlan
	seen := make(map[string]bool)
	for _, rel := range changed {
		rel = filepath.ToSlash(rel)
		if seen[rel] || config.ShouldExclude(rel, opts.ExcludeGlobs) {
			continue
		}
		seen[rel] = true
		in, ok, err := buildFileInput(opts, filepath.Join(opts.Root, rel), rel)
		if err != nil {
			return RefreshPlan{}, err
		}
		if ok {
			plan.ToIndex = append(plan.ToIndex, in)
		}
	}
	for _, rel := range deleted {
		rel = filepath.ToSlash(rel)
		if config.ShouldExclude(rel, opts.ExcludeGlobs) {
			continue
		}
		plan.ToRemove = append(plan.ToRemove, graph.NewNodeID(graph.FileCanonicalID(rel)))
	}
	return plan, nil
}

// buildFileInput reads and validates a candidate file, returning ok=false
// when the file is missing, oversized, binary, or has no matching grammar
// driver -- none of those are errors, just an exclusion from the plan.
func buildFileInput(opts DiscoverOptions, fullPath, relPath string) (FileInput, bool, error) {
	info, err := os.Lstat(fullPath)
	if err != nil {
		return FileInput{}, false, nil
	}
	if info.Mode()&os.ModeSymlink != 0 || info.IsDir() {
		return FileInput{}, false, nil
	}
	if opts.MaxFileSizeByte > 0 && info.Size() > opts.MaxFileSizeByte {
		return FileInput{}, false, nil
	}
	lang, ok := extLanguages[strings.ToLower(filepath.Ext(relPath))]
	if !ok {
		return FileInput{}, false, nil
	}
	driver, ok := opts.Registry.Driver(lang)
	if !ok {
		return FileInput{}, false, nil
	}
	source, err := os.ReadFile(fullPath) //nolint:gosec // path constrained to a walk under opts.Root
	if err != nil {
		return FileInput{}, false, fmt.Errorf("index: read %s: %w", relPath, err)
	}
	if isBinary(source) {
		return FileInput{}, false, nil
	}
	return FileInput{Path: relPath, Source: source, Driver: driver, Language: lang}, true, nil
}

// isBinary sniffs the first 8KiB for a NUL byte, the same heuristic the
// teacher's isBinaryFile uses.
func isBinary(source []byte) bool {
	const sniff = 8192
	n := len(source)
	if n > sniff {
		n = sniff
	}
	return bytes.IndexByte(source[:n], 0x00) >= 0
}

// gitChangedPaths returns paths added/modified and deleted between HEAD
// and the working tree. A rename counts as a deletion of the old path and
// a change of the new one.
func gitChangedPaths(root string) (changed, deleted []string, err error) {
	out, err := runGit(root, "diff", "--name-status", "HEAD")
	if err != nil {
		return nil, nil, err
	}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		status, path := fields[0], fields[len(fields)-1]
		switch {
		case strings.HasPrefix(status, "D"):
			deleted = append(deleted, path)
		case strings.HasPrefix(status, "R") && len(fields) >= 3:
			deleted = append(deleted, fields[1])
			changed = append(changed, path)
		default:
			changed = append(changed, path)
		}
	}
	return changed, deleted, nil
}

// gitUntrackedPaths returns files present on disk but not yet tracked.
func gitUntrackedPaths(root string) ([]string, error) {
	out, err := runGit(root, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

func runGit(root string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("index: git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.Bytes(), nil
}
