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

package config

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// ShouldExclude reports whether path matches any of the workspace's
// configured exclude globs (IndexingConfig.ExcludeGlobs). Paths are
// slash-normalized before matching, as glob patterns are always written
// with forward slashes regardless of host OS.
func ShouldExclude(path string, patterns []string) bool {
	normalized := filepath.ToSlash(path)
	for _, pattern := range patterns {
		if matchesGlob(normalized, pattern) {
			return true
		}
	}
	return false
}

var (
	globCacheMu sync.Mutex
	globCache   = make(map[string]*regexp.Regexp)
)

// matchesGlob reports whether path matches pattern, supporting "**" to
// span directory separators in addition to the single-segment "*" and "?"
// that path.Match already handles.
func matchesGlob(path, pattern string) bool {
	re := compiledGlob(pattern)
	return re.MatchString(path)
}

func compiledGlob(pattern string) *regexp.Regexp {
	globCacheMu.Lock()
	defer globCacheMu.Unlock()
	if re, ok := globCache[pattern]; ok {
		return re
	}
	re := regexp.MustCompile("^" + globToRegexp(pattern) + "$")
	globCache[pattern] = re
	return re
}

// globToRegexp translates one glob pattern into an anchored regexp body.
// "**" matches across "/"; "*" and "?" stay within one path segment;
// every other rune is escaped literally.
func globToRegexp(pattern string) string {
	var sb strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				sb.WriteString(".*")
				i++
				continue
			}
			sb.WriteString("[^/]*")
		case '?':
			sb.WriteString("[^/]")
		default:
			sb.WriteString(regexp.QuoteMeta(string(runes[i])))
		}
	}
	return sb.String()
}
