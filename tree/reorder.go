package tree

import (
	"github.com/nikandfor/tlog"
)

// record is a finished operand group on the pending stack: it starts at chain
// level `level` and spans `depth` levels.
type record struct {
	level int
	depth int
}

// Reorder rewrites every expression chain of t from parse order (operator
// before operands) to evaluation order (operands before operator), moves
// printf format chains behind their arguments and sets the root order flag.
// Chains already in evaluation order are left untouched, so running Reorder
// twice is a no-op.
func Reorder(t *Tape) {
	t.Root()
	for n := Load(t, 0); n.IsCorrect(); n.Next() {
		k := n.Kind()
		switch {
		case k == TPrintf:
			reorderPrintf(n)
		case k.IsChain() && k != TExprEnd:
			n = reorderChain(n)
		}
	}
	t.Root().SetArg(0, 1)
}

// reorderPrintf rotates the format chain (child 0) behind the argument chains.
func reorderPrintf(n Node) {
	if n.Arg(1) != 0 || n.Amount() < 2 {
		n.SetArg(1, 1)
		return
	}
	fmtChain := n.Child(0)
	start := fmtChain.Index()
	mid := fmtChain.End()
	end := n.End()
	n.t.rotate(start, mid-start, end-mid)
	n.SetArg(1, 1)

	tlog.V("reorder").Printw("printf", "tc", n.Index(), "fmt_words", mid-start, "arg_words", end-mid)
}

// chainLevels returns the header indices of the chain starting at head and
// its end marker.
func chainLevels(head Node) ([]int, Node) {
	var starts []int
	n := head
	for n.Kind() != TExprEnd {
		if !n.IsCorrect() {
			Fault(ErrDesync, head.Index(), "chain at %d runs past the tape end", head.Index())
		}
		starts = append(starts, n.Index())
		n.Next()
	}
	return starts, n
}

// inEvalOrder simulates the evaluation stack over the chain.
func inEvalOrder(t *Tape, starts []int) bool {
	depth := 0
	for _, s := range starts {
		n := Node{t: t, index: s}
		switch n.Kind().Class() {
		case Statement, Marker:
			continue
		default:
			r := Arity(n)
			if depth < r {
				return false
			}
			depth = depth - r + 1
		}
	}
	return depth == 1
}

// reorderChain converts one chain and returns its end marker.
func reorderChain(head Node) Node {
	t := head.t
	starts, end := chainLevels(head)
	if inEvalOrder(t, starts) {
		return end
	}

	var stack []record
	loose := 0
	push := func(r record) {
		r.depth += loose
		loose = 0
		stack = append(stack, r)
	}

	for p := len(starts) - 1; p >= 0; p-- {
		n := Node{t: t, index: starts[p]}
		k := n.Kind()
		switch k.Class() {
		case Operand:
			push(record{level: p, depth: 1})
		case Unary, Binary, Nary:
			r := Arity(n)
			if r < 0 || len(stack) < r {
				Fault(ErrStackUnderflow, n.Index(), "%v needs %d operands, %d pending", k, r, len(stack))
			}
			d := 0
			for ; r > 0; r-- {
				d += stack[len(stack)-1].depth
				stack = stack[:len(stack)-1]
			}
			for j := p; j < p+d; j++ {
				swapLevels(t, starts, j)
			}
			push(record{level: p, depth: d + 1})
		default:
			tlog.V("reorder").Printw("pass through", "tc", n.Index(), "kind", k)
			if len(stack) > 0 {
				stack[len(stack)-1].depth++
			} else {
				loose++
			}
		}
	}
	if len(stack) != 1 {
		Fault(ErrStackUnderflow, head.Index(), "chain at %d leaves %d operand groups", head.Index(), len(stack))
	}

	if tlog.If("reorder") {
		tlog.Printw("chain", "head", head.Index(), "levels", len(starts))
	}
	return end
}

// swapLevels exchanges the headers at chain levels j and j+1. The headers are
// adjacent on the tape, so the swap is a rotation of their words.
func swapLevels(t *Tape, starts []int, j int) {
	a := Node{t: t, index: starts[j]}
	b := Node{t: t, index: starts[j+1]}
	sa, sb := a.size(), b.size()
	t.rotate(starts[j], sa, sb)
	starts[j+1] = starts[j] + sb
}
