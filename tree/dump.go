package tree

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes one line per node in preorder: "tc <index>) <KIND> <args...>".
func Dump(w io.Writer, t *Tape) error {
	for n := Load(t, 0); n.IsCorrect(); n.Next() {
		if _, err := fmt.Fprintln(w, Line(n)); err != nil {
			return err
		}
	}
	return nil
}

// Line formats a single node the way Dump does, without the newline.
func Line(n Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "tc %d) %v", n.Index(), n.Kind())
	for i := 0; i < n.Argc(); i++ {
		fmt.Fprintf(&sb, " %d", n.Arg(i))
	}
	return sb.String()
}

// DumpString is Dump into a string.
func DumpString(t *Tape) string {
	var sb strings.Builder
	_ = Dump(&sb, t)
	return sb.String()
}
