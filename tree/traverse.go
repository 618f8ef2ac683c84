package tree

import "iter"

// Next moves n to the next header in preorder. It returns false, leaving n
// broken, at the logical end of the tape.
func (n *Node) Next() bool {
	if !n.IsCorrect() {
		*n = Broken()
		return false
	}
	next := Node{t: n.t, index: n.index + n.size()}
	if !next.IsCorrect() {
		*n = Broken()
		return false
	}
	*n = next
	return true
}

// End returns the index just past the full footprint of n.
// The walk counts pending subtrees instead of recursing.
func (n Node) End() int {
	if !n.IsCorrect() {
		return -1
	}
	t := n.t
	i := n.index
	for pending := 1; pending > 0; pending-- {
		c := Node{t: t, index: i}
		if !c.IsCorrect() {
			Fault(ErrDesync, i, "footprint of node %d runs past the tape end %d", n.index, t.n)
		}
		amount := c.Amount()
		if amount < 0 {
			Fault(ErrDesync, i, "negative child count %d", amount)
		}
		pending += amount
		i += c.size()
	}
	return i
}

// Advance moves n past its footprint to its next sibling. It returns false,
// leaving n broken, when nothing follows.
func (n *Node) Advance() bool {
	end := n.End()
	if end < 0 {
		*n = Broken()
		return false
	}
	next := Node{t: n.t, index: end}
	if !next.IsCorrect() {
		*n = Broken()
		return false
	}
	*n = next
	return true
}

// Save captures n as a bare tape index.
func Save(n Node) int {
	return n.index
}

// Load rebuilds a node saved with Save.
func Load(t *Tape, i int) Node {
	n := Node{t: t, index: i}
	if !n.IsCorrect() {
		return Broken()
	}
	return n
}

// Links yields the nodes of the expression chain starting at head, without
// the TExprEnd marker.
func Links(head Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for n := head; n.Kind() != TExprEnd; n.Next() {
			if !n.IsCorrect() {
				Fault(ErrBrokenNode, head.index, "chain at %d has no end marker", head.index)
			}
			if n.Amount() != 1 {
				Fault(ErrDesync, n.index, "chain node %v has %d children", n.Kind(), n.Amount())
			}
			if !yield(n) {
				return
			}
		}
	}
}

// ChainNodes collects the links of the chain at head.
func ChainNodes(head Node) []Node {
	var nodes []Node
	for n := range Links(head) {
		nodes = append(nodes, n)
	}
	return nodes
}
