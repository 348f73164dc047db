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

import "github.com/smacker/go-tree-sitter/python"

var pythonConfig = languageConfig{
	language:   "python",
	sitterLang: python.GetLanguage(),
	nodeRules: map[string]nodeRule{
		"function_definition": {kind: "FUNCTION", nameField: "name"},
		"class_definition":    {kind: "CLASS", nameField: "name"},
	},
	callRules: map[string]callRule{
		"call":                   {kind: "CALL", calleeField: "function"},
		"import_from_statement":  {kind: "IMPORT", calleeField: "module_name"},
	},
}
