// Package pyast is a small, closed Python syntax tree.
//
// Trees are produced by the parser package from tree-sitter concrete syntax
// trees. Only the node kinds the analysis inspects get their own type; every
// other statement or expression is kept as a generic node so that calls and
// names nested inside it are still reachable.
package pyast

// Location is a source span. Lines are 1-based, columns 0-based.
type Location struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// Node is implemented by every statement and expression.
type Node interface {
	Loc() Location
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

type base struct {
	Location Location
}

func (b *base) Loc() Location { return b.Location }

// Module is the root of a parsed source file.
type Module struct {
	base
	Body []Stmt
}

// Param is one formal parameter of a function definition.
type Param struct {
	Name    string
	Kind    string // plain, default, list_splat, dict_splat
	Default Expr
}

// FunctionDef is a def or async def statement.
type FunctionDef struct {
	base
	Name       string
	Params     []Param
	Decorators []Expr
	Body       []Stmt
	Async      bool
}

// ParamNames returns the parameter names in declaration order.
func (f *FunctionDef) ParamNames() []string {
	names := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names
}

// ClassDef is a class statement.
type ClassDef struct {
	base
	Name       string
	Bases      []Expr
	Decorators []Expr
	Body       []Stmt
}

// Assign covers plain, annotated and chained assignments.
// For a = b = v, Targets is [a, b].
type Assign struct {
	base
	Targets []Expr
	Value   Expr
}

// AugAssign is an augmented assignment such as q += x.
type AugAssign struct {
	base
	Target Expr
	Op     string
	Value  Expr
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	base
	Value Expr
}

// If is an if statement. An elif clause is represented as an If with Elif
// set, stored as the only statement of its parent's Orelse.
type If struct {
	base
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
	Elif   bool
}

// While is a while loop.
type While struct {
	base
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

// For is a for loop.
type For struct {
	base
	Target Expr
	Iter   Expr
	Body   []Stmt
	Orelse []Stmt
	Async  bool
}

// Return is a return statement; Value is nil for a bare return.
type Return struct {
	base
	Value Expr
}

// Alias is one imported name. Name is rewritten in place by import
// resolution.
type Alias struct {
	Name   string
	AsName string
}

// Import is an "import a.b as c" statement.
type Import struct {
	base
	Names []*Alias
}

// ImportFrom is a "from m import a" statement. Level counts leading dots.
// A wildcard import has a single alias named "*".
type ImportFrom struct {
	base
	Module string
	Level  int
	Names  []*Alias
}

// Try is a try statement with its handler bodies.
type Try struct {
	base
	Body     []Stmt
	Handlers [][]Stmt
	Orelse   []Stmt
	Finally  []Stmt
}

// With is a with statement.
type With struct {
	base
	Items []Expr
	Body  []Stmt
	Async bool
}

// Simple is any other statement without a body (pass, raise, assert, del,
// global ...). Exprs holds its operand expressions.
type Simple struct {
	base
	Kind  string
	Exprs []Expr
}

// Compound is any other statement with nested bodies (match, ...).
type Compound struct {
	base
	Kind   string
	Exprs  []Expr
	Bodies [][]Stmt
}

func (*Module) stmtNode()      {}
func (*FunctionDef) stmtNode() {}
func (*ClassDef) stmtNode()    {}
func (*Assign) stmtNode()      {}
func (*AugAssign) stmtNode()   {}
func (*ExprStmt) stmtNode()    {}
func (*If) stmtNode()          {}
func (*While) stmtNode()       {}
func (*For) stmtNode()         {}
func (*Return) stmtNode()      {}
func (*Import) stmtNode()      {}
func (*ImportFrom) stmtNode()  {}
func (*Try) stmtNode()         {}
func (*With) stmtNode()        {}
func (*Simple) stmtNode()      {}
func (*Compound) stmtNode()    {}

// Name is an identifier reference.
type Name struct {
	base
	ID string
}

// Attribute is value.attr.
type Attribute struct {
	base
	Value Expr
	Attr  string
}

// Keyword is a name=value call argument.
type Keyword struct {
	Name  string
	Value Expr
}

// Call is a function or method call.
type Call struct {
	base
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
}

// Constant is a literal. Kind is the literal category (string, integer,
// float, true, false, none) and Value its source text.
type Constant struct {
	base
	Kind  string
	Value string
}

// BinOp is a binary operation.
type BinOp struct {
	base
	Left  Expr
	Op    string
	Right Expr
}

// JoinedStr is an f-string; Values are the interpolated expressions.
type JoinedStr struct {
	base
	Values []Expr
}

// Sequence is a tuple, list, set or unpacking pattern.
type Sequence struct {
	base
	Kind string
	Elts []Expr
}

// Other is any expression kind without a dedicated type.
type Other struct {
	base
	Kind     string
	Text     string
	Children []Expr
}

func (*Name) exprNode()      {}
func (*Attribute) exprNode() {}
func (*Call) exprNode()      {}
func (*Constant) exprNode()  {}
func (*BinOp) exprNode()     {}
func (*JoinedStr) exprNode() {}
func (*Sequence) exprNode()  {}
func (*Other) exprNode()     {}

// At sets the location of a node and returns it. It is used by the parser
// and by tests that build trees by hand.
func At[T interface{ setLoc(Location) }](n T, loc Location) T {
	n.setLoc(loc)
	return n
}

func (b *base) setLoc(loc Location) { b.Location = loc }
