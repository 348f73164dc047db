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

package canon

import (
	"unicode/utf8"

	"github.com/kraklabs/codeintel/internal/graph"
)

// estimatedWidth implements §4.6 step 6's width formula: cards measure
// the longest of the label and any member label; pills measure the
// label alone. Both are chrome-plus-text-width, clamped to their own
// range so a one-character symbol and a hundred-character one both stay
// legible.
func estimatedWidth(kind graph.NodeKind, label string, members []Member) float64 {
	if isCardNodeKind(kind) {
		longest := utf8.RuneCountInString(label)
		for _, m := range members {
			if n := utf8.RuneCountInString(m.Label); n > longest {
				longest = n
			}
		}
		return clamp(cardChromeWidth+textWidth(longest), cardWidthMin, cardWidthMax)
	}
	return clamp(pillChromeWidth+textWidth(utf8.RuneCountInString(label)), pillWidthMin, pillWidthMax)
}

// estimatedHeight implements §4.6 step 6's height formula: a pill is
// fixed height; a card sums a fixed base, a per-populated-visibility-
// section cost, and a per-member cost, clamped to its own range.
func estimatedHeight(kind graph.NodeKind, members []Member) float64 {
	if !isCardNodeKind(kind) {
		return pillHeight
	}

	var public, protectedCount, private, deflt int
	for _, m := range members {
		switch m.Visibility {
		case VisibilityPublic:
			public++
		case VisibilityProtected:
			protectedCount++
		case VisibilityPrivate:
			private++
		case VisibilityDefault:
			deflt++
		}
	}
	sectionCount := 0
	for _, count := range []int{public, protectedCount, private, deflt} {
		if count > 0 {
			sectionCount++
		}
	}

	memberCount := len(members)

	height := 74.0 + float64(sectionCount)*28.0 + float64(memberCount)*21.0
	return clamp(height, cardHeightMin, cardHeightMax)
}

func textWidth(chars int) float64 {
	return float64(chars) * approxCharWidth
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
