package goquad

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ============================================================
// Node — parsed expression tree
// ============================================================

// Node is one vertex of a parsed expression. Trees are immutable.
type Node interface {
	// Eval evaluates the subtree at a single point.
	Eval(x float64) float64
	// String returns a canonical, re-parseable rendering.
	String() string
	prec() int
	emit(c *codegen)
}

// Printing precedence, weakest first.
const (
	precAdd = iota
	precMul
	precNeg
	precPow
	precAtom
)

// ParseError reports text that is not a valid expression in x.
type ParseError struct {
	Expr string // the input text
	Pos  int    // byte offset of the offending token
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("goquad: cannot parse %q at offset %d: %s", e.Expr, e.Pos, e.Msg)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ---------- Num ----------

// Num is a numeric literal or a named constant (pi, e).
type Num struct {
	Val  float64
	Name string
}

func (n *Num) Eval(float64) float64 { return n.Val }
func (n *Num) String() string {
	if n.Name != "" {
		return n.Name
	}
	return strconv.FormatFloat(n.Val, 'g', -1, 64)
}
func (n *Num) prec() int {
	if n.Name == "" && math.Signbit(n.Val) {
		return precNeg
	}
	return precAtom
}

// ---------- Var ----------

// Var is the free variable x.
type Var struct{}

func (Var) Eval(x float64) float64 { return x }
func (Var) String() string         { return Variable }
func (Var) prec() int              { return precAtom }

// ---------- Neg ----------

// Neg is unary minus.
type Neg struct{ Arg Node }

func (n *Neg) Eval(x float64) float64 { return -n.Arg.Eval(x) }
func (n *Neg) String() string         { return "-" + wrap(n.Arg, precNeg) }
func (n *Neg) prec() int              { return precNeg }

// ---------- BinOp ----------

// BinOp is one of + - * / ^.
type BinOp struct {
	Op   byte
	L, R Node
}

func (b *BinOp) Eval(x float64) float64 { return apply(b.Op, b.L.Eval(x), b.R.Eval(x)) }

func (b *BinOp) String() string {
	p := b.prec()
	if b.Op == '^' {
		return wrap(b.L, precAtom) + "^" + wrap(b.R, precNeg)
	}
	return wrap(b.L, p) + " " + string(b.Op) + " " + wrap(b.R, p+1)
}

func (b *BinOp) prec() int {
	switch b.Op {
	case '+', '-':
		return precAdd
	case '*', '/':
		return precMul
	}
	return precPow
}

func apply(op byte, l, r float64) float64 {
	switch op {
	case '+':
		return l + r
	case '-':
		return l - r
	case '*':
		return l * r
	case '/':
		return l / r
	case '^':
		return math.Pow(l, r)
	}
	return math.NaN()
}

// ---------- Call ----------

// Call applies a whitelisted function to its argument.
type Call struct {
	Name string
	Arg  Node
	fn   func(float64) float64
}

func (c *Call) Eval(x float64) float64 { return c.fn(c.Arg.Eval(x)) }
func (c *Call) String() string         { return c.Name + "(" + c.Arg.String() + ")" }
func (c *Call) prec() int              { return precAtom }

func wrap(n Node, min int) string {
	if n.prec() < min {
		return "(" + n.String() + ")"
	}
	return n.String()
}

// ============================================================
// Functions and constants
// ============================================================

var functions = map[string]func(float64) float64{
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"sinh":  math.Sinh,
	"cosh":  math.Cosh,
	"tanh":  math.Tanh,
	"exp":   math.Exp,
	"log":   math.Log,
	"ln":    math.Log,
	"log10": math.Log10,
	"log2":  math.Log2,
	"sqrt":  math.Sqrt,
	"abs":   math.Abs,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"sign":  sign,
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return v // keeps 0, -0 and NaN
}

// Functions returns the sorted names of the supported functions.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ============================================================
// Lexer
// ============================================================

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNum
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
	num  float64
}

func (t token) describe() string {
	if t.kind == tokEOF {
		return "end of expression"
	}
	return strconv.Quote(t.text)
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i < len(src) && src[i] == '.' {
				i++
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					i = j
					for i < len(src) && isDigit(src[i]) {
						i++
					}
				}
			}
			text := src[start:i]
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &ParseError{Expr: src, Pos: start, Msg: "invalid number " + strconv.Quote(text)}
			}
			toks = append(toks, token{kind: tokNum, text: text, pos: start, num: v})
		case isLetter(c):
			start := i
			for i < len(src) && (isLetter(src[i]) || isDigit(src[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		case c == '*' && i+1 < len(src) && src[i+1] == '*':
			toks = append(toks, token{kind: tokOp, text: "^", pos: i})
			i += 2
		case strings.IndexByte("+-*/^", c) >= 0:
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		default:
			return nil, &ParseError{Expr: src, Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// ============================================================
// Parser (recursive descent)
// ============================================================

// MaxNesting bounds how deeply operands may nest (parentheses, function
// arguments, exponents, unary signs). It also bounds the evaluation stack.
const MaxNesting = 256

type parser struct {
	src   string
	toks  []token
	i     int
	depth int
}

// Parse parses src into an expression tree in the variable x.
//
//	expr  := term (('+' | '-') term)*
//	term  := unary (('*' | '/') unary)*
//	unary := ('-' | '+') unary | power
//	power := atom (('^' | '**') unary)?
//	atom  := number | x | pi | e | name '(' expr ')' | '(' expr ')'
func Parse(src string) (Node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &ParseError{Expr: src, Msg: "empty expression"}
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t.pos, "unexpected %s", t.describe())
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) isOp(ops string) (byte, bool) {
	t := p.peek()
	if t.kind == tokOp && strings.Contains(ops, t.text) {
		return t.text[0], true
	}
	return 0, false
}

func (p *parser) errorf(pos int, format string, args ...interface{}) error {
	return &ParseError{Expr: p.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expr() (Node, error) {
	lhs, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.isOp("+-")
		if !ok {
			return lhs, nil
		}
		p.next()
		rhs, err := p.term()
		if err != nil {
			return nil, err
		}
		lhs = &BinOp{Op: op, L: lhs, R: rhs}
	}
}

func (p *parser) term() (Node, error) {
	lhs, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.isOp("*/")
		if !ok {
			return lhs, nil
		}
		p.next()
		rhs, err := p.unary()
		if err != nil {
			return nil, err
		}
		lhs = &BinOp{Op: op, L: lhs, R: rhs}
	}
}

func (p *parser) unary() (Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxNesting {
		return nil, p.errorf(p.peek().pos, "expression nested deeper than %d levels", MaxNesting)
	}
	if op, ok := p.isOp("+-"); ok {
		p.next()
		arg, err := p.unary()
		if err != nil {
			return nil, err
		}
		if op == '-' {
			return &Neg{Arg: arg}, nil
		}
		return arg, nil
	}
	return p.power()
}

func (p *parser) power() (Node, error) {
	base, err := p.atom()
	if err != nil {
		return nil, err
	}
	if _, ok := p.isOp("^"); !ok {
		return base, nil
	}
	p.next()
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &BinOp{Op: '^', L: base, R: exp}, nil
}

func (p *parser) atom() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		return &Num{Val: t.num}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			fn, ok := functions[t.text]
			if !ok {
				return nil, p.errorf(t.pos, "unknown function %q", t.text)
			}
			p.next()
			arg, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(tokRParen); err != nil {
				return nil, err
			}
			return &Call{Name: t.text, Arg: arg, fn: fn}, nil
		}
		if t.text == Variable {
			return Var{}, nil
		}
		if v, ok := constants[t.text]; ok {
			return &Num{Val: v, Name: t.text}, nil
		}
		if _, ok := functions[t.text]; ok {
			return nil, p.errorf(p.peek().pos, "expected \"(\" after %s", t.text)
		}
		return nil, p.errorf(t.pos, "undefined symbol %q", t.text)
	case tokLParen:
		n, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, p.errorf(t.pos, "unexpected %s", t.describe())
}

func (p *parser) expect(kind tokenKind) error {
	t := p.peek()
	if t.kind != kind {
		return p.errorf(t.pos, "expected \")\", found %s", t.describe())
	}
	p.next()
	return nil
}
