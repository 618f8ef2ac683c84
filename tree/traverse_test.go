package tree

import (
	"bytes"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/require"
)

// funcProgram builds a function holding an if/else and a return.
func funcProgram() *Tape {
	t := New()
	root := t.Root()
	decl := AddChild(root, TDeclVar, 0, 0, 1)
	addChain(decl, l(TConst, 5))
	fn := AddChild(root, TFuncDef, 0, 2)
	body := AddChild(fn, TBlock)
	iff := AddChild(body, TIf, 1)
	addChain(iff, l(TLt, TCInt), l(TIdent, 0), l(TConst, 3))
	then := AddChild(iff, TExprStmt)
	addChain(then, l(TAssign, 0, 0, TCInt), l(TConst, 1))
	els := AddChild(iff, TBlock)
	AddChild(els, TBreak)
	AddChild(els, TBlockEnd)
	ret := AddChild(body, TReturnVal, TCInt)
	addChain(ret, l(TIdent, 0))
	AddChild(body, TBlockEnd)
	AddChild(root, TEnd)
	return t
}

func TestTraversalTotality(t *testing.T) {
	tp := funcProgram()

	visited := 0
	last := 0
	for n := Load(tp, 0); n.IsCorrect(); n.Next() {
		require.Greater(t, n.Index()+1, last)
		last = n.Index()
		visited++
	}
	require.Equal(t, 23, visited)

	root := tp.Root()
	require.Equal(t, tp.Len(), root.End())

	// sibling walk over the root's children ends exactly at the tape end
	c := root.Child(0)
	steps := 1
	for c.Kind() != TEnd {
		require.True(t, c.Advance())
		steps++
	}
	require.Equal(t, root.Amount(), steps)
	require.Equal(t, tp.Len(), c.End())
	require.False(t, c.Advance())
}

func TestSaveLoad(t *testing.T) {
	tp := funcProgram()
	fn := tp.Root().Child(1)
	require.Equal(t, TFuncDef, fn.Kind())

	saved := Save(fn)
	n := Load(tp, saved)
	require.Equal(t, fn, n)
	require.Equal(t, int64(2), n.Arg(1))

	require.False(t, Load(tp, tp.Len()).IsCorrect())
	require.False(t, Load(tp, -5).IsCorrect())
}

func TestLinks(t *testing.T) {
	tp := exprProgram()
	head := tp.Root().Child(0).Child(0)
	var got []Kind
	for n := range Links(head) {
		got = append(got, n.Kind())
	}
	require.Equal(t, []Kind{TAdd, TIdent, TMul, TIdent, TIdent}, got)
	require.Len(t, ChainNodes(head), 5)
}

func TestDump(t *testing.T) {
	tp := exprProgram()
	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, tp))
	want := `tc 0) TRoot 0
tc 4) TExprStmt
tc 7) TAdd 0
tc 11) TIdent 0
tc 15) TMul 0
tc 19) TIdent 1
tc 23) TIdent 2
tc 27) TExprEnd
tc 30) TEnd
`
	require.Equal(t, want, buf.String())
	require.Equal(t, want, DumpString(tp))
}

func TestVerify(t *testing.T) {
	require.NoError(t, Verify(exprProgram()))
	require.NoError(t, Verify(funcProgram()))

	err := Verify(New())
	require.True(t, errorx.IsOfType(err, ErrBrokenNode))

	// no end marker
	tp := New()
	AddChild(tp.Root(), TNop)
	err = Verify(tp)
	require.True(t, errorx.IsOfType(err, ErrDesync))

	// wrong argument count for the kind
	tp = New()
	AddChild(tp.Root(), TIf)
	AddChild(tp.Root(), TEnd)
	err = Verify(tp)
	require.True(t, errorx.IsOfType(err, ErrDesync))

	// unknown kind
	tp = exprProgram()
	tp.Set(4, 5000)
	require.True(t, errorx.IsOfType(Verify(tp), ErrDesync))

	// child count pointing past the tape end
	tp = exprProgram()
	tp.Set(2, 7)
	require.Error(t, Verify(tp))
}

func TestEndFaultsOnDesync(t *testing.T) {
	tp := exprProgram()
	tp.Set(2, 9)
	err := Catch(func() { tp.Root().End() })
	require.True(t, errorx.IsOfType(err, ErrDesync))
	idx, ok := errorx.ExtractProperty(err, PropIndex)
	require.True(t, ok)
	require.GreaterOrEqual(t, idx.(int), 0)
}

func TestTapeMsgp(t *testing.T) {
	tp := funcProgram()
	b, err := tp.MarshalMsg(nil)
	require.NoError(t, err)
	require.LessOrEqual(t, len(b), tp.Msgsize())

	got := New()
	rest, err := got.UnmarshalMsg(b)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, DumpString(tp), DumpString(got))
	require.NoError(t, Verify(got))

	// appending after decoding keeps working
	require.Equal(t, tp.Len(), got.Append(1))
}
