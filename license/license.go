// Package license models SPDX license expressions and extracts embedded
// SPDX-License-Identifier declarations from source text.
package license

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidExpression marks a license expression that fails to parse.
var ErrInvalidExpression = errors.New("invalid license expression")

// Expression is a parsed SPDX license expression in canonical text form.
// Two expressions are equal when their canonical forms are equal, so
// Expression values work directly as map keys.
type Expression struct {
	text string
}

func (e Expression) String() string { return e.text }

// MarshalJSON renders the canonical expression text.
func (e Expression) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.text)
}

// UnmarshalJSON parses and validates the expression text.
func (e *Expression) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// IsZero reports whether the expression is the zero value (never produced
// by a successful Parse).
func (e Expression) IsZero() bool { return e.text == "" }

// Parse validates and canonicalizes an SPDX license expression: license
// identifiers with an optional + suffix, LicenseRef-/DocumentRef- forms,
// NONE and NOASSERTION, combined with AND, OR and WITH, and parentheses.
func Parse(s string) (Expression, error) {
	tokens, err := tokenize(s)
	if err != nil {
		return Expression{}, fmt.Errorf("%w %q: %v", ErrInvalidExpression, s, err)
	}
	p := &parser{tokens: tokens}
	text, err := p.parseCompound()
	if err == nil && p.pos != len(p.tokens) {
		err = fmt.Errorf("unexpected token %q", p.tokens[p.pos])
	}
	if err != nil {
		return Expression{}, fmt.Errorf("%w %q: %v", ErrInvalidExpression, s, err)
	}
	return Expression{text: text}, nil
}

// MustParse is a test and configuration convenience; it panics on a
// malformed expression.
func MustParse(s string) Expression {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// Conjunction combines expressions with AND. A single expression is
// returned unchanged; multiple are rendered as a parenthesized set.
func Conjunction(exprs []Expression) Expression {
	switch len(exprs) {
	case 0:
		return Expression{}
	case 1:
		return exprs[0]
	}
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.text
	}
	return Expression{text: "(" + strings.Join(parts, " AND ") + ")"}
}

func tokenize(s string) ([]string, error) {
	var tokens []string
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(' || c == ')':
			tokens = append(tokens, string(c))
			i++
		case isIDChar(c):
			j := i
			for j < len(s) && isIDChar(s[j]) {
				j++
			}
			if j < len(s) && s[j] == '+' {
				j++
			}
			tokens = append(tokens, s[i:j])
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	if len(tokens) == 0 {
		return nil, errors.New("empty expression")
	}
	return tokens, nil
}

func isIDChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '.' || c == '-' || c == ':'
}

type parser struct {
	tokens []string
	pos    int
}

func (p *parser) parseCompound() (string, error) {
	left, err := p.parseSimple()
	if err != nil {
		return "", err
	}
	parts := []string{left}
	for p.pos < len(p.tokens) {
		op := p.tokens[p.pos]
		if op != "AND" && op != "OR" && op != "WITH" {
			break
		}
		p.pos++
		right, err := p.parseSimple()
		if err != nil {
			return "", err
		}
		parts = append(parts, op, right)
	}
	return strings.Join(parts, " "), nil
}

func (p *parser) parseSimple() (string, error) {
	if p.pos >= len(p.tokens) {
		return "", errors.New("expression ends unexpectedly")
	}
	tok := p.tokens[p.pos]
	if tok == "(" {
		p.pos++
		inner, err := p.parseCompound()
		if err != nil {
			return "", err
		}
		if p.pos >= len(p.tokens) || p.tokens[p.pos] != ")" {
			return "", errors.New("missing closing parenthesis")
		}
		p.pos++
		return "(" + inner + ")", nil
	}
	if tok == ")" || tok == "AND" || tok == "OR" || tok == "WITH" {
		return "", fmt.Errorf("unexpected token %q", tok)
	}
	p.pos++
	return tok, nil
}
