// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooksLikeArithmetic(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"5999*2", true},
		{"100 - 20", true},
		{"(1+2)*3", true},
		{"10/4", true},
		{"10 % 3", true},
		// Bare literals keep their exact string form.
		{"42", false},
		{"3.14", false},
		{"-3", false},
		{"+2.5", false},
		// Not arithmetic at all.
		{"", false},
		{"earbuds", false},
		{"2*price", false},
		{"ORD202501020304050001", false},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, looksLikeArithmetic(tc.input))
		})
	}
}

func TestEvalArithmetic(t *testing.T) {
	cases := []struct {
		input string
		want  float64
	}{
		{"5999*2", 11998},
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"100 - 20", 80},
		{"10/4", 2.5},
		{"10%3", 1},
		{"-3+5", 2},
		{"--2", 2},
		{"-(2+3)", -5},
		{"2 * (3 + 4) - 1", 13},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := EvalArithmetic(tc.input)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestEvalArithmetic_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"division by zero", "1/0"},
		{"modulo by zero", "10%0"},
		{"dangling operator", "1+"},
		{"unclosed paren", "(1+2"},
		{"adjacent literals", "1 2"},
		{"empty", ""},
		{"bare operator", "*"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EvalArithmetic(tc.input)
			assert.Error(t, err)
		})
	}
}
