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
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// Arithmetic Argument Coercion
// =============================================================================
//
// Models regularly pass numeric parameters as arithmetic expressions
// ("5999*2", "100 - 20") instead of computed values. The dispatcher
// evaluates those before the tool sees them. Only pure arithmetic over
// literals is accepted; anything with identifiers, calls, or other syntax
// is passed through untouched.

// arithmeticExprPattern matches strings made only of digits, decimal
// points, the four operators plus modulo, parentheses, and whitespace.
var arithmeticExprPattern = regexp.MustCompile(`^[0-9.+\-*/%()\s]+$`)

// looksLikeArithmetic reports whether s is a candidate arithmetic
// expression worth evaluating. A bare numeric literal does not count;
// it is already a number and must keep its exact string form.
func looksLikeArithmetic(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || !arithmeticExprPattern.MatchString(s) {
		return false
	}
	if !strings.ContainsAny(s, "+-*/%()") {
		return false
	}
	// A plain signed literal like "-3" or "+2.5" is not an expression.
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return false
	}
	return true
}

// EvalArithmetic evaluates a pure arithmetic expression over numeric
// literals.
//
// Description:
//
//	Supports + - * / % with standard precedence, parentheses, and unary
//	plus/minus. Division by zero and malformed syntax return errors.
//
// Outputs:
//   - float64: The computed value.
//   - error: Non-nil for syntax errors or division by zero.
func EvalArithmetic(s string) (float64, error) {
	p := &arithParser{input: s}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

// arithParser is a small recursive-descent parser over the expression
// grammar: expr = term (('+'|'-') term)*, term = unary (('*'|'/'|'%') unary)*,
// unary = ('+'|'-')* primary, primary = number | '(' expr ')'.
type arithParser struct {
	input string
	pos   int
}

func (p *arithParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *arithParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *arithParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *arithParser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case '%':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			left = math.Mod(left, right)
		default:
			return left, nil
		}
	}
}

func (p *arithParser) parseUnary() (float64, error) {
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	case '+':
		p.pos++
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *arithParser) parsePrimary() (float64, error) {
	c := p.peek()
	if c == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}

	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		if p.pos >= len(p.input) {
			return 0, fmt.Errorf("unexpected end of expression")
		}
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed number %q", p.input[start:p.pos])
	}
	return v, nil
}
