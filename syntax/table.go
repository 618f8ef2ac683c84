// Package syntax holds the symbol and type tables a lowered unit is compiled
// against. The tables are filled by the front end and only read by the
// generators.
package syntax

import "fmt"

// Class is the value class of an identifier, an expression or a function result.
// Its numeric value is what tape nodes store in their type arguments.
type Class int

const (
	Int Class = iota
	Float
	Void
)

func (c Class) String() string {
	switch c {
	case Int:
		return "int"
	case Float:
		return "float"
	case Void:
		return "void"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Storage tells where an identifier lives.
type Storage int

const (
	Global Storage = iota
	Local
	Param
)

func (s Storage) String() string {
	switch s {
	case Global:
		return "global"
	case Local:
		return "local"
	case Param:
		return "param"
	}
	return fmt.Sprintf("storage(%d)", int(s))
}

// Identifier is a declared variable, parameter or array.
// Displ is a word offset: into the static area for globals, into the frame otherwise.
type Identifier struct {
	Name    string
	Class   Class // element class for arrays
	Dims    int   // 0 for scalars
	Storage Storage
	Displ   int
}

func (id Identifier) IsArray() bool {
	return id.Dims > 0
}

type Function struct {
	Name        string
	Return      Class
	Params      []Class
	ParamIdents []int // identifier ids, filled when the body is lowered
	Frame       int   // words of locals incl. params
	Defined     bool
}

type Table struct {
	Idents     []Identifier
	Funcs      []Function
	Strings    []string
	GlobalSize int

	strIndex  map[string]int
	funcIndex map[string]int
}

func NewTable() *Table {
	return &Table{
		Idents:    []Identifier{},
		Funcs:     []Function{},
		Strings:   []string{},
		strIndex:  make(map[string]int),
		funcIndex: make(map[string]int),
	}
}

// SizeOf returns the number of VM words a scalar of class c occupies.
func SizeOf(c Class) int {
	if c == Void {
		return 0
	}
	return 1
}

func (t *Table) AddIdent(id Identifier) int {
	t.Idents = append(t.Idents, id)
	return len(t.Idents) - 1
}

func (t *Table) Ident(id int) (Identifier, bool) {
	if id < 0 || id >= len(t.Idents) {
		return Identifier{}, false
	}
	return t.Idents[id], true
}

// AllocGlobal reserves size words in the static area and returns their displacement.
func (t *Table) AllocGlobal(size int) int {
	displ := t.GlobalSize
	t.GlobalSize += size
	return displ
}

func (t *Table) AddFunc(f Function) int {
	t.Funcs = append(t.Funcs, f)
	id := len(t.Funcs) - 1
	t.indexFuncs()[f.Name] = id
	return id
}

func (t *Table) Func(id int) (*Function, bool) {
	if id < 0 || id >= len(t.Funcs) {
		return nil, false
	}
	return &t.Funcs[id], true
}

func (t *Table) FuncByName(name string) (int, bool) {
	id, ok := t.indexFuncs()[name]
	return id, ok
}

// AddString interns s and returns its index in the string table.
func (t *Table) AddString(s string) int {
	index := t.indexStrings()
	if id, ok := index[s]; ok {
		return id
	}
	t.Strings = append(t.Strings, s)
	id := len(t.Strings) - 1
	index[s] = id
	return id
}

func (t *Table) String(id int) (string, bool) {
	if id < 0 || id >= len(t.Strings) {
		return "", false
	}
	return t.Strings[id], true
}

// indexFuncs rebuilds the name index lazily; tables decoded from a unit file
// arrive without it.
func (t *Table) indexFuncs() map[string]int {
	if t.funcIndex == nil {
		t.funcIndex = make(map[string]int, len(t.Funcs))
		for i, f := range t.Funcs {
			t.funcIndex[f.Name] = i
		}
	}
	return t.funcIndex
}

func (t *Table) indexStrings() map[string]int {
	if t.strIndex == nil {
		t.strIndex = make(map[string]int, len(t.Strings))
		for i, s := range t.Strings {
			t.strIndex[s] = i
		}
	}
	return t.strIndex
}
