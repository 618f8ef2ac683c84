package tree

import (
	"testing"

	cv "github.com/glycerine/goconvey/convey"
	"github.com/joomcode/errorx"
)

func chainKinds(head Node) (ks []Kind, args []int64) {
	for n := range Links(head) {
		ks = append(ks, n.Kind())
		args = append(args, n.Arg(0))
	}
	return
}

func TestReorderBinaryPrecedence(t *testing.T) {
	cv.Convey("Given a + b * c in parse order, Reorder should lay the chain out as a b c * +", t, func() {
		tp := exprProgram()
		Reorder(tp)

		ks, args := chainKinds(tp.Root().Child(0).Child(0))
		cv.So(ks, cv.ShouldResemble, []Kind{TIdent, TIdent, TIdent, TMul, TAdd})
		cv.So(args[:3], cv.ShouldResemble, []int64{0, 1, 2})
		cv.So(tp.Reordered(), cv.ShouldBeTrue)
		cv.So(Verify(tp), cv.ShouldBeNil)

		cv.Convey("and running it again should change nothing", func() {
			before := DumpString(tp)
			Reorder(tp)
			cv.So(DumpString(tp), cv.ShouldEqual, before)
		})
	})
}

func TestReorderCallsAndUnary(t *testing.T) {
	cv.Convey("Given f(-a, b + c), the arguments should precede the call", t, func() {
		tp := New()
		root := tp.Root()
		stmt := AddChild(root, TExprStmt)
		addChain(stmt,
			l(TCall, 3, 2),
			l(TNeg, TCInt), l(TIdent, 0),
			l(TAdd, TCInt), l(TIdent, 1), l(TIdent, 2),
		)
		AddChild(root, TEnd)

		Reorder(tp)
		ks, args := chainKinds(root.Child(0).Child(0))
		cv.So(ks, cv.ShouldResemble, []Kind{TIdent, TNeg, TIdent, TIdent, TAdd, TCall})
		cv.So(args, cv.ShouldResemble, []int64{0, TCInt, 1, 2, TCInt, 3})
		cv.So(Verify(tp), cv.ShouldBeNil)
	})

	cv.Convey("Given a zero-argument builtin inside an expression, it should count as an operand", t, func() {
		tp := New()
		root := tp.Root()
		stmt := AddChild(root, TExprStmt)
		addChain(stmt, l(TSub, TCInt), l(TBuiltin, 8, 0), l(TConst, 1))
		AddChild(root, TEnd)

		Reorder(tp)
		ks, _ := chainKinds(root.Child(0).Child(0))
		cv.So(ks, cv.ShouldResemble, []Kind{TBuiltin, TConst, TSub})
	})
}

func TestReorderArgumentHeaders(t *testing.T) {
	cv.Convey("Given headers of different sizes, swaps should keep every argument with its node", t, func() {
		tp := New()
		root := tp.Root()
		stmt := AddChild(root, TExprStmt)
		// x = arr[i] + 2
		addChain(stmt,
			l(TAssign, 4, 0, TCInt),
			l(TAdd, TCInt),
			l(TLoad, TCInt), l(TIndex, 7, 0), l(TArrayRef, 7), l(TIdent, 2),
			l(TConst, 2),
		)
		AddChild(root, TEnd)

		Reorder(tp)
		nodes := ChainNodes(root.Child(0).Child(0))
		var ks []Kind
		for _, n := range nodes {
			ks = append(ks, n.Kind())
		}
		cv.So(ks, cv.ShouldResemble, []Kind{TArrayRef, TIdent, TIndex, TLoad, TConst, TAdd, TAssign})
		cv.So(nodes[2].Arg(0), cv.ShouldEqual, 7)
		cv.So(nodes[2].Arg(1), cv.ShouldEqual, 0)
		cv.So(nodes[6].Arg(0), cv.ShouldEqual, 4)
		cv.So(nodes[6].Arg(2), cv.ShouldEqual, TCInt)
		cv.So(Verify(tp), cv.ShouldBeNil)
	})
}

func TestReorderPrintf(t *testing.T) {
	cv.Convey("Given printf(fmt, a, b), the format chain should move behind the arguments", t, func() {
		tp := New()
		root := tp.Root()
		pf := AddChild(root, TPrintf, 2, 0, 1)
		addChain(pf, l(TString, 0))
		addChain(pf, l(TIdent, 0))
		addChain(pf, l(TAdd, TCInt), l(TIdent, 1), l(TConst, 1))
		AddChild(root, TEnd)

		Reorder(tp)
		pf = root.Child(0)
		cv.So(pf.Arg(1), cv.ShouldEqual, 1)
		cv.So(pf.Child(0).Kind(), cv.ShouldEqual, TIdent)
		cv.So(pf.Child(2).Kind(), cv.ShouldEqual, TString)

		ks, _ := chainKinds(pf.Child(1))
		cv.So(ks, cv.ShouldResemble, []Kind{TIdent, TConst, TAdd})
		cv.So(Verify(tp), cv.ShouldBeNil)

		cv.Convey("and a second pass should not rotate again", func() {
			Reorder(tp)
			cv.So(root.Child(0).Child(2).Kind(), cv.ShouldEqual, TString)
		})
	})
}

func TestReorderFaults(t *testing.T) {
	cv.Convey("Given a binary operator with one operand, Reorder should fault with stack_underflow", t, func() {
		tp := New()
		root := tp.Root()
		stmt := AddChild(root, TExprStmt)
		addChain(stmt, l(TAdd, TCInt), l(TIdent, 0))
		AddChild(root, TEnd)

		err := Catch(func() { Reorder(tp) })
		cv.So(errorx.IsOfType(err, ErrStackUnderflow), cv.ShouldBeTrue)
	})

	cv.Convey("Given two loose operands, Reorder should fault on the leftover group", t, func() {
		tp := New()
		root := tp.Root()
		stmt := AddChild(root, TExprStmt)
		addChain(stmt, l(TIdent, 0), l(TIdent, 1))
		AddChild(root, TEnd)

		err := Catch(func() { Reorder(tp) })
		cv.So(errorx.IsOfType(err, ErrStackUnderflow), cv.ShouldBeTrue)
	})
}
