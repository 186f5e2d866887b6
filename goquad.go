// Package goquad provides a small numerical integration engine for Go.
//
// Design goals:
//   - Closed, auditable expression grammar in one variable (x)
//   - Batch (column-wise) evaluation of compiled expressions
//   - Composite trapezoid and Simpson rules with a fixed endpoint perturbation
//   - Sample persistence as a plain-text x,y table for plotting
//   - AI/LLM friendly: JSON tool-call API, MCP-ready schema
package goquad

import "errors"

// ============================================================
// Errors
// ============================================================

var (
	// ErrParse matches every *ParseError.
	ErrParse = errors.New("goquad: parse error")
	// ErrFormat matches every *FormatError.
	ErrFormat = errors.New("goquad: malformed sample")
	// ErrUnknownRule is returned for a rule name or value that is not a quadrature rule.
	ErrUnknownRule = errors.New("goquad: unknown quadrature rule")
	// ErrSampleLength is returned when the x and y columns of a SampleSet differ in length.
	ErrSampleLength = errors.New("goquad: x and y sample lengths differ")
)

// Variable is the only free symbol an expression may reference.
const Variable = "x"

// Epsilon is the fixed offset applied to the lower endpoint of every
// partition so a singular endpoint is never evaluated exactly.
const Epsilon = 1e-20
