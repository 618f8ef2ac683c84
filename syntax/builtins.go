package syntax

// BuiltinID numbers the intrinsic functions. Tape nodes store it directly.
type BuiltinID int

const (
	Abs BuiltinID = iota
	Fabs
	Sqrt
	Sin
	Cos
	Exp
	Log
	Pow
	Rand
	TCreate
	TJoin
	TSleep
	TGetnum
	SemCreate
	SemWait
	SemPost
	SetMotor
	GetDigSensor
	GetAnSensor
	builtinCount
)

type Builtin struct {
	Name   string
	Return Class
	Params []Class
	// FuncArg marks builtins whose first argument names a function (thread entry).
	FuncArg bool
}

var builtins = [builtinCount]Builtin{
	Abs:          {Name: "abs", Return: Int, Params: []Class{Int}},
	Fabs:         {Name: "fabs", Return: Float, Params: []Class{Float}},
	Sqrt:         {Name: "sqrt", Return: Float, Params: []Class{Float}},
	Sin:          {Name: "sin", Return: Float, Params: []Class{Float}},
	Cos:          {Name: "cos", Return: Float, Params: []Class{Float}},
	Exp:          {Name: "exp", Return: Float, Params: []Class{Float}},
	Log:          {Name: "log", Return: Float, Params: []Class{Float}},
	Pow:          {Name: "pow", Return: Float, Params: []Class{Float, Float}},
	Rand:         {Name: "rand", Return: Int},
	TCreate:      {Name: "t_create", Return: Int, Params: []Class{Int}, FuncArg: true},
	TJoin:        {Name: "t_join", Return: Void, Params: []Class{Int}},
	TSleep:       {Name: "t_sleep", Return: Void, Params: []Class{Int}},
	TGetnum:      {Name: "t_getnum", Return: Int},
	SemCreate:    {Name: "sem_create", Return: Int, Params: []Class{Int}},
	SemWait:      {Name: "sem_wait", Return: Void, Params: []Class{Int}},
	SemPost:      {Name: "sem_post", Return: Void, Params: []Class{Int}},
	SetMotor:     {Name: "setmotor", Return: Void, Params: []Class{Int, Int}},
	GetDigSensor: {Name: "getdigsensor", Return: Int, Params: []Class{Int}},
	GetAnSensor:  {Name: "getansensor", Return: Int, Params: []Class{Int}},
}

var builtinSet = func() map[string]BuiltinID {
	m := make(map[string]BuiltinID, len(builtins))
	for id, b := range builtins {
		m[b.Name] = BuiltinID(id)
	}
	return m
}()

func LookupBuiltin(name string) (BuiltinID, bool) {
	id, ok := builtinSet[name]
	return id, ok
}

// Info returns the signature of a builtin; ok is false for ids outside the table.
func (id BuiltinID) Info() (Builtin, bool) {
	if id < 0 || id >= builtinCount {
		return Builtin{}, false
	}
	return builtins[id], true
}

func (id BuiltinID) String() string {
	if b, ok := id.Info(); ok {
		return b.Name
	}
	return "builtin?"
}

// BuiltinNames returns a copy of the builtin names in id order.
func BuiltinNames() []string {
	names := make([]string, len(builtins))
	for i, b := range builtins {
		names[i] = b.Name
	}
	return names
}

// IsReservedName reports whether name is taken by a builtin and so cannot be
// declared by a program.
func IsReservedName(name string) bool {
	_, ok := builtinSet[name]
	return ok
}
