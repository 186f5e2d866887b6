package goquad

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// ============================================================
// Rules
// ============================================================

// Rule selects a composite Newton-Cotes formula.
type Rule int

const (
	Trapezoid Rule = iota + 1
	Simpson
)

func (r Rule) String() string {
	switch r {
	case Trapezoid:
		return "trapezoid"
	case Simpson:
		return "simpson"
	}
	return fmt.Sprintf("Rule(%d)", int(r))
}

// ParseRule accepts "trapezoid" (or "trap") and "simpson", case-insensitively.
func ParseRule(s string) (Rule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trapezoid", "trap", "trapezoidal":
		return Trapezoid, nil
	case "simpson", "simpsons":
		return Simpson, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRule, s)
}

func (r Rule) MarshalText() ([]byte, error) {
	if r != Trapezoid && r != Simpson {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRule, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Rule) UnmarshalText(b []byte) error {
	v, err := ParseRule(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// intervals returns the number of sub-intervals the rule samples for n.
func (r Rule) intervals(n int) int {
	if r == Simpson {
		return 2 * n
	}
	return n
}

// ============================================================
// Partition
// ============================================================

// Partition returns m+1 equally spaced abscissas x_i = a + ε + h·i with
// h = (b − a − ε)/m, and h itself. The lower endpoint is shifted by
// Epsilon so it is never evaluated exactly. m must be positive.
func Partition(a, b float64, m int) ([]float64, float64) {
	h := (b - a - Epsilon) / float64(m)
	xs := make([]float64, m+1)
	for i := range xs {
		xs[i] = a + Epsilon + h*float64(i)
	}
	return xs, h
}

// ============================================================
// Engine
// ============================================================

// Result is the outcome of one quadrature call.
type Result struct {
	Rule     Rule
	Estimate float64
	N        int
	H        float64
	Samples  SampleSet
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Rule     Rule     `json:"rule"`
		Estimate *float64 `json:"estimate"`
		N        int      `json:"n"`
		H        float64  `json:"h"`
		Points   int      `json:"points"`
	}{r.Rule, nullable(r.Estimate), r.N, r.H, r.Samples.Len()})
}

// Engine evaluates composite quadrature rules. Compiler turns the
// expression text into an integrand; Store, when non-nil, receives the
// samples of every computation, replacing the previous ones.
//
// Observe, when non-nil, is called once per Integrate with a known rule,
// after the computation finishes, whether or not it failed.
//
// An Engine does no locking: calls that share a Store must be serialized
// by the caller.
type Engine struct {
	Compiler Compiler
	Store    SampleStore
	Observe  func(rule Rule, start time.Time, res Result, err error)
}

// NewEngine returns an Engine using the built-in expression compiler.
func NewEngine(store SampleStore) *Engine {
	return &Engine{Compiler: ExprCompiler{}, Store: store}
}

// Trapezoid estimates the integral of expr over [a,b] with the composite
// trapezoid rule on n sub-intervals:
//
//	(y_0 + y_n + 2·Σ_{i=1}^{n-1} y_i) · h/2
//
// n <= 0 returns 0 without compiling expr or touching the store.
func (e *Engine) Trapezoid(expr string, a, b float64, n int) (float64, error) {
	res, err := e.Integrate(Trapezoid, expr, a, b, n)
	return res.Estimate, err
}

// Simpson estimates the integral of expr over [a,b] with the composite
// Simpson rule on 2n sub-intervals:
//
//	(y_0 + y_2n + 4·Σ_odd y_i + 2·Σ_even y_i) · h/3
//
// The odd and even sums are accumulated separately. n <= 0 returns 0.
func (e *Engine) Simpson(expr string, a, b float64, n int) (float64, error) {
	res, err := e.Integrate(Simpson, expr, a, b, n)
	return res.Estimate, err
}

// Integrate runs rule and returns the estimate together with the samples
// it was computed from. Errors from the compiler (*ParseError) and the
// store are returned unmodified.
func (e *Engine) Integrate(rule Rule, expr string, a, b float64, n int) (Result, error) {
	if rule != Trapezoid && rule != Simpson {
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownRule, int(rule))
	}
	start := time.Now()
	res, err := e.integrate(rule, expr, a, b, n)
	if e.Observe != nil {
		e.Observe(rule, start, res, err)
	}
	return res, err
}

func (e *Engine) integrate(rule Rule, expr string, a, b float64, n int) (Result, error) {
	res := Result{Rule: rule, N: n}
	if n <= 0 {
		return res, nil
	}
	f, err := e.compiler().Compile(expr)
	if err != nil {
		return Result{}, err
	}
	m := rule.intervals(n)
	xs, h := Partition(a, b, m)
	ys := f.Apply(xs)
	if len(ys) != len(xs) {
		return Result{}, fmt.Errorf("%w: integrand returned %d values for %d points", ErrSampleLength, len(ys), len(xs))
	}
	res.H = h
	res.Samples = SampleSet{X: xs, Y: ys}
	if e.Store != nil {
		if err := e.Store.Write(res.Samples); err != nil {
			return Result{}, err
		}
	}
	if rule == Simpson {
		res.Estimate = simpsonSum(ys, h)
	} else {
		res.Estimate = trapezoidSum(ys, h)
	}
	return res, nil
}

func (e *Engine) compiler() Compiler {
	if e.Compiler == nil {
		return ExprCompiler{}
	}
	return e.Compiler
}

func trapezoidSum(y []float64, h float64) float64 {
	n := len(y) - 1
	integ := y[0] + y[n]
	integ += 2 * floats.Sum(y[1:n])
	return integ / 2 * h
}

// simpsonSum applies the composite Simpson weights to y. The odd-index and
// even-index interior values are gathered into separate groups and each
// group is reduced by floats.Sum, so the order of additions within a group
// is the one floats.Sum uses rather than strictly left to right.
func simpsonSum(y []float64, h float64) float64 {
	m := len(y) - 1
	odd := make([]float64, 0, m/2)
	even := make([]float64, 0, m/2)
	for i := 1; i < m; i++ {
		if i%2 == 1 {
			odd = append(odd, y[i])
		} else {
			even = append(even, y[i])
		}
	}
	integ := y[0] + y[m]
	integ = integ + 4*floats.Sum(odd) + 2*floats.Sum(even)
	return integ * h / 3
}

// ============================================================
// Top-level convenience functions
// ============================================================

// CompositeTrapezoid compiles expr, integrates it over [a,b] on n
// sub-intervals and writes the samples to store (skipped when nil).
func CompositeTrapezoid(expr string, a, b float64, n int, store SampleStore) (float64, error) {
	return NewEngine(store).Trapezoid(expr, a, b, n)
}

// CompositeSimpson is the Simpson counterpart of CompositeTrapezoid.
func CompositeSimpson(expr string, a, b float64, n int, store SampleStore) (float64, error) {
	return NewEngine(store).Simpson(expr, a, b, n)
}
