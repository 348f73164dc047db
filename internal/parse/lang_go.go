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

package parse

import (
	"github.com/smacker/go-tree-sitter/golang"
)

// goConfig maps Go's tree-sitter grammar. type_spec covers both struct
// and interface declarations; the per-file indexer's canonicalization
// pass (§4.1 step 7) only needs the IsTypeLike bucket to collapse
// correctly, so STRUCT is an acceptable single bucket for this driver
// rather than a teacher-grade struct/interface classifier.
var goConfig = languageConfig{
	language:   "go",
	sitterLang: golang.GetLanguage(),
	nodeRules: map[string]nodeRule{
		"function_declaration": {kind: "FUNCTION", nameField: "name"},
		"method_declaration":   {kind: "METHOD", nameField: "name"},
		"type_spec":            {kind: "STRUCT", nameField: "name"},
	},
	callRules: map[string]callRule{
		"call_expression": {kind: "CALL", calleeField: "function"},
		"import_spec":      {kind: "IMPORT", calleeField: "path"},
	},
}
