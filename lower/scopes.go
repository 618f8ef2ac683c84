package lower

type ScopeKind int

const (
	GlobalScope ScopeKind = iota
	FuncScope
	BlockScope
)

type Scope[T any] struct {
	Elems     map[string]T
	ScopeKind ScopeKind
}

func NewScope[T any](sk ScopeKind) Scope[T] {
	return Scope[T]{
		Elems:     make(map[string]T),
		ScopeKind: sk,
	}
}

func PushScope[T any](scopes *[]Scope[T], sk ScopeKind) {
	*scopes = append(*scopes, NewScope[T](sk))
}

func PopScope[T any](scopes *[]Scope[T]) {
	if len(*scopes) == 1 {
		panic("cannot pop global scope")
	}
	*scopes = (*scopes)[:len(*scopes)-1]
}

// Put does not need a pointer, as it modifies the map within a scope, not the slice itself.
func Put[T any](scopes []Scope[T], name string, elem T) {
	scopes[len(scopes)-1].Elems[name] = elem
}

// Declared reports whether name is already bound in the innermost scope.
func Declared[T any](scopes []Scope[T], name string) bool {
	_, ok := scopes[len(scopes)-1].Elems[name]
	return ok
}

// Get searches from the innermost scope outward, ending at the globals.
func Get[T any](scopes []Scope[T], name string) (T, bool) {
	for i := len(scopes) - 1; i >= 0; i-- {
		if e, ok := scopes[i].Elems[name]; ok {
			return e, true
		}
	}

	var zero T
	return zero, false
}

// Current returns the kind of the innermost scope.
func Current[T any](scopes []Scope[T]) ScopeKind {
	return scopes[len(scopes)-1].ScopeKind
}
