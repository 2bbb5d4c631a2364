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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeGoStructure_Counts(t *testing.T) {
	src := `package demo

// Fetch loads a record.
func Fetch(id string) (string, error) {
	if err := validate(id); err != nil {
		return "", err
	}
	return lookup(id), nil
}

func TestFetch(t *testing.T) {
	if _, err := Fetch("a"); err != nil {
		t.Fatal(err)
	}
}
`
	m, err := analyzeGoStructure(src)
	require.NoError(t, err)

	assert.Equal(t, 2, m.Functions)
	assert.Equal(t, 1, m.TestFunctions)
	assert.Equal(t, 1, m.DocComments)
	assert.Equal(t, 2, m.ErrorChecks)
	assert.GreaterOrEqual(t, m.Comments, 1)
}

func TestAnalyzeGoStructure_Unparseable(t *testing.T) {
	_, err := analyzeGoStructure("package main\nfunc {{{")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestLooksLikeGo(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"go file", "package main\n\nfunc main() {}\n", true},
		{"go snippet", "x := 1\nfunc add(a, b int) int { return a + b }", true},
		{"python", "def main():\n    print('hi')\n", false},
		{"prose", "The certificate expired on Tuesday.", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, looksLikeGo(tt.src))
		})
	}
}
