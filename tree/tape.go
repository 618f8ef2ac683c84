// Package tree stores a syntax tree as a flat tape of words.
//
// Every node is a header followed by its children:
//
//	[kind][argc][amount][arg0 .. arg(argc-1)][child0]...[child(amount-1)]
//
// A node's total footprint is not stored; it is derived by walking the node.
// Expressions are chains in which every node has exactly one child, the next
// node of the expression, ending in a TExprEnd marker.
package tree

import "math"

// MaxArg is returned for reads outside the tape or past a node's arguments.
const MaxArg int64 = math.MaxInt64

const headerWords = 3

const initialCap = 64

type Tape struct {
	words []int64
	n     int
}

func New() *Tape {
	return &Tape{words: make([]int64, initialCap)}
}

// Append stores w at the end of the tape and returns its index.
func (t *Tape) Append(w int64) int {
	if t.n == len(t.words) {
		t.grow(t.n + 1)
	}
	t.words[t.n] = w
	t.n++
	return t.n - 1
}

func (t *Tape) grow(min int) {
	size := len(t.words) * 2
	if size == 0 {
		size = initialCap
	}
	for size < min {
		size *= 2
	}
	words := make([]int64, size)
	copy(words, t.words[:t.n])
	t.words = words
}

func (t *Tape) Get(i int) int64 {
	if i < 0 || i >= t.n {
		return MaxArg
	}
	return t.words[i]
}

// Set overwrites an existing word. It reports false for indices outside the tape.
func (t *Tape) Set(i int, w int64) bool {
	if i < 0 || i >= t.n {
		return false
	}
	t.words[i] = w
	return true
}

func (t *Tape) Len() int {
	return t.n
}

// Words returns the used part of the tape. The slice aliases the tape.
func (t *Tape) Words() []int64 {
	return t.words[:t.n]
}

// Root returns the root node, writing its header first on an empty tape.
func (t *Tape) Root() Node {
	if t.n == 0 {
		t.appendHeader(TRoot, 0)
	}
	return Node{t: t, index: 0}
}

// Order returns the root order flag: 0 parse order, 1 evaluation order.
func (t *Tape) Order() int64 {
	return t.Root().Arg(0)
}

// Reordered reports whether the tape holds evaluation order chains.
func (t *Tape) Reordered() bool {
	return t.Order() == 1
}

func (t *Tape) appendHeader(k Kind, args ...int64) int {
	i := t.Append(int64(k))
	t.Append(int64(len(args)))
	t.Append(0)
	for _, a := range args {
		t.Append(a)
	}
	return i
}

// rotate moves the words [i, i+a) behind the words [i+a, i+a+b).
func (t *Tape) rotate(i, a, b int) {
	tmp := make([]int64, a)
	copy(tmp, t.words[i:i+a])
	copy(t.words[i:], t.words[i+a:i+a+b])
	copy(t.words[i+b:], tmp)
}
