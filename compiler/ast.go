package compiler

import "github.com/chazu/quill/pkg/variant"

// ---------------------------------------------------------------------------
// AST node types
// ---------------------------------------------------------------------------

// Node is the base interface for all AST nodes.
type Node interface {
	Pos() Position
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Literal is a constant scalar value.
type Literal struct {
	SrcPos Position
	Value  variant.Variant
}

// VarRef reads a variable. Global variables live in the script's binding
// table; local ones in the current function frame.
type VarRef struct {
	SrcPos Position
	Name   string
	Global bool
	Slot   int
}

// IndexExpr reads collection[key].
type IndexExpr struct {
	SrcPos Position
	X      Expr
	Index  Expr
}

// ListExpr builds a collection keyed 1..n.
type ListExpr struct {
	SrcPos Position
	Elems  []Expr
}

// UnaryExpr is "-x" or "not x".
type UnaryExpr struct {
	SrcPos Position
	Op     TokenType // TokenMinus, or TokenKeyword for not
	X      Expr
}

// BinaryExpr is an arithmetic or comparison expression.
type BinaryExpr struct {
	SrcPos Position
	Op     TokenType
	Left   Expr
	Right  Expr
}

// LogicalExpr is a short-circuit "and" / "or".
type LogicalExpr struct {
	SrcPos Position
	And    bool
	Left   Expr
	Right  Expr
}

// CallExpr invokes a script or host function matched by signature.
type CallExpr struct {
	SrcPos Position
	Target *Callable
	Args   []Expr
}

func (e *Literal) Pos() Position     { return e.SrcPos }
func (e *VarRef) Pos() Position      { return e.SrcPos }
func (e *IndexExpr) Pos() Position   { return e.SrcPos }
func (e *ListExpr) Pos() Position    { return e.SrcPos }
func (e *UnaryExpr) Pos() Position   { return e.SrcPos }
func (e *BinaryExpr) Pos() Position  { return e.SrcPos }
func (e *LogicalExpr) Pos() Position { return e.SrcPos }
func (e *CallExpr) Pos() Position    { return e.SrcPos }

func (*Literal) exprNode()     {}
func (*VarRef) exprNode()      {}
func (*IndexExpr) exprNode()   {}
func (*ListExpr) exprNode()    {}
func (*UnaryExpr) exprNode()   {}
func (*BinaryExpr) exprNode()  {}
func (*LogicalExpr) exprNode() {}
func (*CallExpr) exprNode()    {}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// SetStmt is "set name to value" or "set name[index] to value".
type SetStmt struct {
	SrcPos Position
	Target *VarRef
	Index  Expr // nil for plain assignment
	Value  Expr
}

// ExprStmt evaluates a call for its side effects.
type ExprStmt struct {
	SrcPos Position
	Call   *CallExpr
}

// IfStmt is "if cond ... [else ...] end".
type IfStmt struct {
	SrcPos Position
	Cond   Expr
	Then   []Stmt
	Else   []Stmt
}

// LoopStmt is "loop while cond ... end".
type LoopStmt struct {
	SrcPos Position
	Cond   Expr
	Body   []Stmt
}

// WaitStmt is a cooperative suspension point.
type WaitStmt struct {
	SrcPos Position
}

// ReturnStmt leaves the current function (or the script).
type ReturnStmt struct {
	SrcPos Position
	Value  Expr // may be nil
}

func (s *SetStmt) Pos() Position    { return s.SrcPos }
func (s *ExprStmt) Pos() Position   { return s.SrcPos }
func (s *IfStmt) Pos() Position     { return s.SrcPos }
func (s *LoopStmt) Pos() Position   { return s.SrcPos }
func (s *WaitStmt) Pos() Position   { return s.SrcPos }
func (s *ReturnStmt) Pos() Position { return s.SrcPos }

func (*SetStmt) stmtNode()    {}
func (*ExprStmt) stmtNode()   {}
func (*IfStmt) stmtNode()     {}
func (*LoopStmt) stmtNode()   {}
func (*WaitStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode() {}

// ---------------------------------------------------------------------------
// Program structure
// ---------------------------------------------------------------------------

// Callable is anything a call site can resolve to.
type Callable struct {
	Sig     *Signature
	Library string // "" for script-defined functions
	Private bool
	Index   int // function index for script functions
}

// FunctionDef is a script-defined function.
type FunctionDef struct {
	SrcPos   Position
	Callable *Callable
	Body     []Stmt
	Locals   []string // slot names; parameters first
}

// Program is a parsed script.
type Program struct {
	Library   string
	Libraries []string
	Externals []string
	Functions []*FunctionDef
	Main      []Stmt
}
