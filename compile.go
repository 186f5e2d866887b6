package goquad

import "math"

// ============================================================
// Compiled functions — column-wise bytecode
// ============================================================

type opcode uint8

const (
	opConst opcode = iota
	opVar
	opNeg
	opAdd
	opSub
	opMul
	opDiv
	opPow
	opCall
)

type instr struct {
	op  opcode
	val float64
	fn  func(float64) float64
}

type codegen struct {
	code       []instr
	depth, max int
}

func (c *codegen) push(in instr, delta int) {
	c.code = append(c.code, in)
	c.depth += delta
	if c.depth > c.max {
		c.max = c.depth
	}
}

func (n *Num) emit(c *codegen) { c.push(instr{op: opConst, val: n.Val}, 1) }
func (Var) emit(c *codegen)    { c.push(instr{op: opVar}, 1) }

func (n *Neg) emit(c *codegen) {
	n.Arg.emit(c)
	c.push(instr{op: opNeg}, 0)
}

func (b *BinOp) emit(c *codegen) {
	b.L.emit(c)
	b.R.emit(c)
	var op opcode
	switch b.Op {
	case '+':
		op = opAdd
	case '-':
		op = opSub
	case '*':
		op = opMul
	case '/':
		op = opDiv
	default:
		op = opPow
	}
	c.push(instr{op: op}, -1)
}

func (f *Call) emit(c *codegen) {
	f.Arg.emit(c)
	c.push(instr{op: opCall, fn: f.fn}, 0)
}

// Func is a compiled expression in x. It is safe for concurrent use.
type Func struct {
	src   string
	tree  Node
	root  Node
	code  []instr
	depth int
}

// Compile parses expr and compiles it for batch evaluation. Constant
// subtrees are folded. Failures are *ParseError values.
func Compile(expr string) (*Func, error) {
	tree, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	root := fold(tree)
	c := &codegen{}
	root.emit(c)
	return &Func{src: expr, tree: tree, root: root, code: c.code, depth: c.max}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Func {
	f, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Func) Source() string { return f.src }
func (f *Func) Tree() Node     { return f.tree }
func (f *Func) String() string { return f.tree.String() }

// Eval evaluates f at a single point.
func (f *Func) Eval(x float64) float64 { return f.root.Eval(x) }

// Apply evaluates f at every element of xs and returns a new slice of the
// same length. Each instruction runs over a whole column of up to
// ChunkSize points, so the interpreter cost is per instruction, not per
// element, and scratch memory does not grow with len(xs). Division by zero
// follows IEEE 754 (±Inf or NaN).
func (f *Func) Apply(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	cols := make([][]float64, f.depth)
	size := min(len(xs), ChunkSize)
	for i := range cols {
		cols[i] = make([]float64, size)
	}
	for lo := 0; lo < len(xs); lo += ChunkSize {
		hi := min(lo+ChunkSize, len(xs))
		copy(out[lo:hi], f.run(cols, xs[lo:hi]))
	}
	return out
}

// ChunkSize is the number of points Apply evaluates per pass.
const ChunkSize = 4096

// run executes the program over xs using cols as the stack and returns the
// top column, truncated to len(xs).
func (f *Func) run(cols [][]float64, xs []float64) []float64 {
	n := len(xs)
	sp := 0
	for _, in := range f.code {
		switch in.op {
		case opConst:
			col := cols[sp][:n]
			for i := range col {
				col[i] = in.val
			}
			sp++
		case opVar:
			copy(cols[sp][:n], xs)
			sp++
		case opNeg:
			col := cols[sp-1][:n]
			for i, v := range col {
				col[i] = -v
			}
		case opCall:
			col := cols[sp-1][:n]
			for i, v := range col {
				col[i] = in.fn(v)
			}
		default:
			binary(in.op, cols[sp-2][:n], cols[sp-1][:n])
			sp--
		}
	}
	return cols[0][:n]
}

// binary stores l[i] op r[i] into l.
func binary(op opcode, l, r []float64) {
	switch op {
	case opAdd:
		for i := range l {
			l[i] += r[i]
		}
	case opSub:
		for i := range l {
			l[i] -= r[i]
		}
	case opMul:
		for i := range l {
			l[i] *= r[i]
		}
	case opDiv:
		for i := range l {
			l[i] /= r[i]
		}
	case opPow:
		for i := range l {
			l[i] = math.Pow(l[i], r[i])
		}
	}
}

// fold replaces every subtree that does not reference x by its value.
func fold(n Node) Node {
	switch v := n.(type) {
	case *Neg:
		arg := fold(v.Arg)
		if num, ok := arg.(*Num); ok {
			return &Num{Val: -num.Val}
		}
		return &Neg{Arg: arg}
	case *BinOp:
		l, r := fold(v.L), fold(v.R)
		ln, lok := l.(*Num)
		rn, rok := r.(*Num)
		if lok && rok {
			return &Num{Val: apply(v.Op, ln.Val, rn.Val)}
		}
		return &BinOp{Op: v.Op, L: l, R: r}
	case *Call:
		arg := fold(v.Arg)
		if num, ok := arg.(*Num); ok {
			return &Num{Val: v.fn(num.Val)}
		}
		return &Call{Name: v.Name, Arg: arg, fn: v.fn}
	}
	return n
}

// ============================================================
// Compiler — the engine's view of the expression compiler
// ============================================================

// Integrand is a function of x evaluated a batch at a time.
type Integrand interface {
	Apply(xs []float64) []float64
}

// Compiler turns expression text into an Integrand.
type Compiler interface {
	Compile(expr string) (Integrand, error)
}

// ExprCompiler is the default Compiler, backed by Compile.
type ExprCompiler struct{}

func (ExprCompiler) Compile(expr string) (Integrand, error) {
	f, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return f, nil
}
