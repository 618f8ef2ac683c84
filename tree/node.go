package tree

import "iter"

// Node is a view of the header at index. It owns nothing and is cheap to copy.
type Node struct {
	t     *Tape
	index int
}

// Broken returns the node every failed lookup yields.
func Broken() Node {
	return Node{index: -1}
}

func (n Node) Tape() *Tape {
	return n.t
}

func (n Node) Index() int {
	return n.index
}

// IsCorrect reports whether the full header of n lies inside the tape.
func (n Node) IsCorrect() bool {
	if n.t == nil || n.index < 0 || n.index+headerWords > n.t.n {
		return false
	}
	argc := n.t.words[n.index+1]
	return argc >= 0 && n.index+headerWords+int(argc) <= n.t.n
}

func (n Node) Kind() Kind {
	if !n.IsCorrect() {
		return TBroken
	}
	return Kind(n.t.words[n.index])
}

func (n Node) Argc() int {
	if !n.IsCorrect() {
		return 0
	}
	return int(n.t.words[n.index+1])
}

func (n Node) Amount() int {
	if !n.IsCorrect() {
		return 0
	}
	return int(n.t.words[n.index+2])
}

// Arg returns argument i, or MaxArg when n has no such argument.
func (n Node) Arg(i int) int64 {
	if i < 0 || i >= n.Argc() {
		return MaxArg
	}
	return n.t.words[n.index+headerWords+i]
}

func (n Node) SetArg(i int, v int64) bool {
	if i < 0 || i >= n.Argc() {
		return false
	}
	n.t.words[n.index+headerWords+i] = v
	return true
}

func (n Node) size() int {
	return headerWords + n.Argc()
}

func (n Node) firstChild() Node {
	return Node{t: n.t, index: n.index + n.size()}
}

// Child returns child i, or a broken node when i >= Amount().
func (n Node) Child(i int) Node {
	if i < 0 || i >= n.Amount() {
		return Broken()
	}
	c := n.firstChild()
	for ; i > 0; i-- {
		c.Advance()
	}
	return c
}

// Children yields the direct children of n in tape order.
func (n Node) Children() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		amount := n.Amount()
		c := n.firstChild()
		for i := 0; i < amount; i++ {
			if !yield(c) {
				return
			}
			if i+1 < amount {
				c.Advance()
			}
		}
	}
}

// AddChild appends a new node as the last child of parent. The parent's
// footprint must end at the tape end; otherwise nothing is written and a
// broken node is returned.
func AddChild(parent Node, k Kind, args ...int64) Node {
	if !parent.IsCorrect() || parent.End() != parent.t.n {
		return Broken()
	}
	i := parent.t.appendHeader(k, args...)
	parent.t.words[parent.index+2]++
	return Node{t: parent.t, index: i}
}

// AddArg appends an argument to a childless node that ends the tape.
func AddArg(n Node, v int64) error {
	if !n.IsCorrect() {
		return ErrBrokenNode.New("add arg to broken node %d", n.index)
	}
	if n.Amount() != 0 || n.index+n.size() != n.t.n {
		return ErrArgAfterChild.New("node %d (%v) already has children or is not last", n.index, n.Kind())
	}
	n.t.Append(v)
	n.t.words[n.index+1]++
	return nil
}
