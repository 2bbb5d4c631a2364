// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package quality

import (
	"context"
	"errors"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// ErrUnparseable indicates structural analysis could not parse the input.
// Callers fall back to the heuristic path rather than failing the score.
var ErrUnparseable = errors.New("structural analysis: unparseable input")

// codeMetrics are the raw counts extracted from parsed source.
type codeMetrics struct {
	Functions     int
	Comments      int
	DocComments   int
	ErrorChecks   int
	ReturnedErrs  int
	TestFunctions int
	MaxNestDepth  int
	Lines         int
}

// analyzeGoStructure parses Go source with tree-sitter and extracts the
// structural counts the code rubric scores from.
//
// Inputs:
//
//	src - Candidate Go source. Must look like Go; callers gate on
//	      looksLikeGo first.
//
// Outputs:
//
//	codeMetrics - Raw structural counts.
//	error - ErrUnparseable when the tree contains parse errors, so the
//	        caller can degrade to heuristics.
func analyzeGoStructure(src string) (codeMetrics, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	source := []byte(src)
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return codeMetrics{}, ErrUnparseable
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return codeMetrics{}, ErrUnparseable
	}

	m := codeMetrics{Lines: countLines(src)}
	walkNodes(root, 0, func(n *sitter.Node, depth int) {
		if depth > m.MaxNestDepth {
			m.MaxNestDepth = depth
		}
		switch n.Type() {
		case "function_declaration", "method_declaration":
			m.Functions++
			if name := functionName(n, source); strings.HasPrefix(name, "Test") {
				m.TestFunctions++
			}
			if hasPrecedingComment(n) {
				m.DocComments++
			}
		case "comment":
			m.Comments++
		case "if_statement":
			if strings.Contains(n.Content(source), "err != nil") {
				m.ErrorChecks++
			}
		case "return_statement":
			if strings.Contains(n.Content(source), "err") {
				m.ReturnedErrs++
			}
		}
	})
	return m, nil
}

// walkNodes visits every named node depth-first.
func walkNodes(n *sitter.Node, depth int, visit func(*sitter.Node, int)) {
	visit(n, depth)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		childDepth := depth
		switch n.Type() {
		case "block", "if_statement", "for_statement", "expression_switch_statement":
			childDepth++
		}
		walkNodes(n.NamedChild(i), childDepth, visit)
	}
}

// functionName extracts the identifier of a function or method declaration.
func functionName(n *sitter.Node, source []byte) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "identifier" || child.Type() == "field_identifier" {
			return child.Content(source)
		}
	}
	return ""
}

// hasPrecedingComment reports whether the node's previous sibling is a
// comment, the usual shape of a doc comment.
func hasPrecedingComment(n *sitter.Node) bool {
	prev := n.PrevNamedSibling()
	return prev != nil && prev.Type() == "comment"
}

// looksLikeGo gates the tree-sitter path. Anything else goes straight to
// the language-agnostic heuristics.
func looksLikeGo(src string) bool {
	return strings.Contains(src, "func ") &&
		(strings.Contains(src, "package ") || strings.Contains(src, ":="))
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
