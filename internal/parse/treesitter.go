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
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// nodeRule maps one tree-sitter node type to an emitted GraphNode kind,
// naming which child field carries the declaration's name.
type nodeRule struct {
	kind      string
	nameField string
}

// callRule maps one tree-sitter node type that represents a reference
// (a call, an import, a macro invocation) to an emitted GraphEdge kind,
// naming the child field (or, if empty, the node itself) that carries
// the callee/target name.
type callRule struct {
	kind       string
	calleeField string
}

// languageConfig is the "DSL rule file" analog for one tree-sitter
// grammar: which node types become GraphNodes (nodeRules) and which become
// call GraphEdges (callRules). The tree walk descends into every child
// whether or not its parent was captured.
type languageConfig struct {
	language   string
	sitterLang *sitter.Language
	nodeRules  map[string]nodeRule
	callRules  map[string]callRule
}

// TreeSitterDriver parses one language via a pooled *sitter.Parser (tree-
// sitter parsers are not safe for concurrent reuse) and a languageConfig
// node-type table, grounded on the teacher's per-language tree-sitter
// parsers and pool.
type TreeSitterDriver struct {
	cfg  languageConfig
	pool sync.Pool
}

// NewTreeSitterDriver builds a driver for one language config.
func NewTreeSitterDriver(cfg languageConfig) *TreeSitterDriver {
	d := &TreeSitterDriver{cfg: cfg}
	d.pool.New = func() any {
		p := sitter.NewParser()
		p.SetLanguage(cfg.sitterLang)
		return p
	}
	return d
}

// Language reports the driver's language name.
func (d *TreeSitterDriver) Language() string { return d.cfg.language }

// Parse walks the parsed tree, emitting one GraphNode per declaration
// node type in the language config and one GraphEdge per reference node
// type (§4.9).
func (d *TreeSitterDriver) Parse(ctx context.Context, path string, source []byte) (*DSLResult, error) {
	parserObj := d.pool.Get()
	parser, ok := parserObj.(*sitter.Parser)
	if !ok {
		return nil, fmt.Errorf("parse: invalid parser type in %s pool", d.cfg.language)
	}
	defer d.pool.Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse: %s: %w", path, err)
	}
	defer tree.Close()

	result := &DSLResult{}
	d.walk(tree.RootNode(), source, result, nil)
	return result, nil
}

// walk recurses through the AST, tracking the innermost enclosing
// declaration name so a reference's SourceRef can be filled in even
// though the per-file indexer will ultimately reattribute CALL edges by
// line range (§4.1 step 8); capturing it here costs nothing and is
// useful context for MEMBER-less languages.
func (d *TreeSitterDriver) walk(n *sitter.Node, source []byte, result *DSLResult, enclosing *string) {
	if n == nil {
		return
	}
	nodeType := n.Type()

	nextEnclosing := enclosing
	if rule, ok := d.cfg.nodeRules[nodeType]; ok {
		name := fieldText(n, rule.nameField, source)
		if name != "" {
			result.Nodes = append(result.Nodes, GraphNode{
				Kind:     rule.kind,
				Name:     name,
				StartRow: int(n.StartPoint().Row),
				StartCol: int(n.StartPoint().Column),
				EndRow:   int(n.EndPoint().Row),
				EndCol:   int(n.EndPoint().Column),
			})
			nextEnclosing = &name
		}
	}

	if rule, ok := d.cfg.callRules[nodeType]; ok {
		var target string
		if rule.calleeField == "" {
			target = n.Content(source)
		} else {
			target = fieldText(n, rule.calleeField, source)
		}
		if rule.kind == "IMPORT" {
			target = trimQuotes(target)
		}
		if target != "" {
			var src string
			if nextEnclosing != nil {
				src = *nextEnclosing
			}
			result.Edges = append(result.Edges, GraphEdge{
				Kind:      rule.kind,
				SourceRef: src,
				TargetRef: target,
				Line:      int(n.StartPoint().Row) + 1,
			})
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		d.walk(n.Child(i), source, result, nextEnclosing)
	}
}

func fieldText(n *sitter.Node, field string, source []byte) string {
	if field == "" {
		return n.Content(source)
	}
	child := n.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Content(source)
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
