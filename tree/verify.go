package tree

// Verify checks the encoding of the whole tape: every header has a known kind
// and the argument count of the kind table, chain nodes have exactly one
// child, the root is a TRoot whose footprint covers the tape exactly and whose
// last child is TEnd.
func Verify(t *Tape) error {
	if t.Len() == 0 {
		return ErrBrokenNode.New("empty tape")
	}
	for n := Load(t, 0); n.IsCorrect(); n.Next() {
		k := n.Kind()
		if !k.Valid() {
			return ErrDesync.New("tc %d: unknown kind %d", n.Index(), int64(k))
		}
		if n.Argc() != k.Argc() {
			return ErrDesync.New("tc %d: %v has %d args, want %d", n.Index(), k, n.Argc(), k.Argc())
		}
		if n.Amount() < 0 {
			return ErrDesync.New("tc %d: %v has negative child count", n.Index(), k)
		}
		switch {
		case k == TExprEnd:
			if n.Amount() != 0 {
				return ErrDesync.New("tc %d: TExprEnd with children", n.Index())
			}
		case k.IsChain():
			if n.Amount() != 1 {
				return ErrDesync.New("tc %d: chain node %v has %d children", n.Index(), k, n.Amount())
			}
		}
	}

	root := Load(t, 0)
	if root.Kind() != TRoot {
		return ErrDesync.New("tc 0: root is %v", root.Kind())
	}

	end, err := safeEnd(root)
	if err != nil {
		return err
	}
	if end != t.Len() {
		return ErrDesync.New("root footprint ends at %d, tape length %d", end, t.Len())
	}
	if last := root.Child(root.Amount() - 1); last.Kind() != TEnd {
		return ErrDesync.New("program does not end with TEnd (last child %v)", last.Kind())
	}
	return nil
}

// safeEnd is End with its fault turned into an error.
func safeEnd(n Node) (end int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = asError(p)
		}
	}()
	return n.End(), nil
}
