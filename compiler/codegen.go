package compiler

import (
	"fmt"
	"math"

	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/pkg/variant"
)

// ---------------------------------------------------------------------------
// Codegen: Compile AST to bytecode
// ---------------------------------------------------------------------------

// codegen lowers a parsed Program to a bytecode Unit.
type codegen struct {
	opts     Options
	unit     *bytecode.Unit
	hostRefs map[string]int // library + "\x00" + key -> HostRefs index

	chunk    *bytecode.Chunk
	chunks   []*bytecode.Chunk
	reported bool // chunk.Err() already added to errors
	errors   ErrorList
}

func newCodegen(opts Options) *codegen {
	return &codegen{
		opts:     opts,
		hostRefs: make(map[string]int),
	}
}

func (g *codegen) errorAt(pos Position, format string, args ...any) {
	g.errors = append(g.errors, &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (g *codegen) newChunk() *bytecode.Chunk {
	g.reported = false
	if g.opts.Buffer != nil {
		c := bytecode.NewChunkWithBuffer(g.opts.Buffer(initialChunkSize), g.opts.Grow)
		g.chunks = append(g.chunks, c)
		return c
	}
	return bytecode.NewChunk()
}

// release hands the buffers of every chunk back to opts.Free.
func (g *codegen) release() {
	if g.opts.Free == nil {
		return
	}
	for _, c := range g.chunks {
		g.opts.Free(c.Code)
		c.Code = nil
	}
	g.chunks = nil
}

const initialChunkSize = 64

// generate produces the unit for prog.
func (g *codegen) generate(prog *Program) *bytecode.Unit {
	g.unit = &bytecode.Unit{
		Version:   bytecode.BytecodeVersion,
		Name:      g.opts.Name,
		Library:   prog.Library,
		Libraries: append([]string(nil), prog.Libraries...),
		Externals: append([]string(nil), prog.Externals...),
	}

	// Functions first so that Unit.Functions lines up with Callable.Index.
	for _, def := range prog.Functions {
		g.unit.Functions = append(g.unit.Functions, g.function(def))
	}

	g.chunk = g.newChunk()
	g.statements(prog.Main)
	g.chunk.Emit(bytecode.OpReturnNull)
	g.unit.Main = g.chunk
	return g.unit
}

func (g *codegen) function(def *FunctionDef) *bytecode.Function {
	sig := def.Callable.Sig
	g.chunk = g.newChunk()
	if len(def.Locals) > math.MaxUint8 {
		g.errorAt(def.SrcPos, "function %q has %d local variables, at most %d are allowed", sig.String(), len(def.Locals), math.MaxUint8)
	}
	g.chunk.ParamCount = uint8(sig.Arity())
	g.chunk.LocalCount = uint8(len(def.Locals))
	if sig.Returns {
		g.chunk.Flags |= bytecode.ChunkFlagReturnsValue
	}
	if g.opts.DebugInfo {
		g.chunk.Flags |= bytecode.ChunkFlagDebug
		g.chunk.VarNames = append([]string(nil), def.Locals...)
	}

	g.statements(def.Body)
	g.chunk.Emit(bytecode.OpReturnNull)

	return &bytecode.Function{
		Signature: sig.Key(),
		Display:   sig.String(),
		Private:   def.Callable.Private,
		Chunk:     g.chunk,
	}
}

// ---------------------------------------------------------------------------
// Statement compilation
// ---------------------------------------------------------------------------

func (g *codegen) statements(stmts []Stmt) {
	for _, s := range stmts {
		g.statement(s)
	}
}

func (g *codegen) mark(n Node) {
	if !g.opts.DebugInfo {
		return
	}
	pos := n.Pos()
	g.chunk.AddSourceLocation(uint32(g.chunk.CurrentOffset()), uint32(pos.Line), uint16(pos.Column))
}

func (g *codegen) statement(stmt Stmt) {
	g.mark(stmt)
	g.emitStatement(stmt)
	if err := g.chunk.Err(); err != nil && !g.reported {
		g.reported = true
		g.errorAt(stmt.Pos(), "%v", err)
	}
}

func (g *codegen) emitStatement(stmt Stmt) {
	switch s := stmt.(type) {
	case *SetStmt:
		if s.Index != nil {
			g.load(s.Target)
			g.expr(s.Index)
			g.expr(s.Value)
			g.chunk.Emit(bytecode.OpSetIndex)
			return
		}
		g.expr(s.Value)
		g.store(s.Target)

	case *ExprStmt:
		g.call(s.Call)
		if s.Call.Target.Sig.Returns {
			g.chunk.Emit(bytecode.OpPop)
		}

	case *IfStmt:
		g.expr(s.Cond)
		elseJump := g.chunk.EmitJump(bytecode.OpJumpFalse)
		g.statements(s.Then)
		if len(s.Else) == 0 {
			g.chunk.PatchJump(elseJump)
			return
		}
		endJump := g.chunk.EmitJump(bytecode.OpJump)
		g.chunk.PatchJump(elseJump)
		g.statements(s.Else)
		g.chunk.PatchJump(endJump)

	case *LoopStmt:
		start := g.chunk.CurrentOffset()
		g.expr(s.Cond)
		exit := g.chunk.EmitJump(bytecode.OpJumpFalse)
		g.statements(s.Body)
		g.chunk.EmitLoop(start)
		g.chunk.PatchJump(exit)

	case *WaitStmt:
		g.chunk.Emit(bytecode.OpWait)

	case *ReturnStmt:
		if s.Value == nil {
			g.chunk.Emit(bytecode.OpReturnNull)
			return
		}
		g.expr(s.Value)
		g.chunk.Emit(bytecode.OpReturn)

	default:
		g.errorAt(stmt.Pos(), "unknown statement type: %T", stmt)
	}
}

func (g *codegen) load(v *VarRef) {
	if v.Global {
		idx := g.chunk.AddConstant(variant.Str(v.Name))
		g.chunk.EmitWithOperand(bytecode.OpLoadGlobal, byte(idx>>8), byte(idx))
		return
	}
	g.chunk.EmitWithOperand(bytecode.OpLoadLocal, byte(v.Slot))
}

func (g *codegen) store(v *VarRef) {
	if v.Global {
		idx := g.chunk.AddConstant(variant.Str(v.Name))
		g.chunk.EmitWithOperand(bytecode.OpStoreGlobal, byte(idx>>8), byte(idx))
		return
	}
	g.chunk.EmitWithOperand(bytecode.OpStoreLocal, byte(v.Slot))
}

// ---------------------------------------------------------------------------
// Expression compilation
// ---------------------------------------------------------------------------

var binaryOps = map[TokenType]bytecode.Opcode{
	TokenPlus:    bytecode.OpAdd,
	TokenMinus:   bytecode.OpSub,
	TokenStar:    bytecode.OpMul,
	TokenSlash:   bytecode.OpDiv,
	TokenPercent: bytecode.OpMod,
	TokenEq:      bytecode.OpEq,
	TokenNe:      bytecode.OpNe,
	TokenLt:      bytecode.OpLt,
	TokenLe:      bytecode.OpLe,
	TokenGt:      bytecode.OpGt,
	TokenGe:      bytecode.OpGe,
}

func (g *codegen) expr(e Expr) {
	switch x := e.(type) {
	case *Literal:
		g.literal(x.Value)

	case *VarRef:
		g.load(x)

	case *IndexExpr:
		g.expr(x.X)
		g.expr(x.Index)
		g.chunk.Emit(bytecode.OpIndex)

	case *ListExpr:
		for _, el := range x.Elems {
			g.expr(el)
		}
		n := len(x.Elems)
		if n > math.MaxUint16 {
			g.errorAt(x.Pos(), "list has %d elements, at most %d are allowed", n, math.MaxUint16)
			return
		}
		g.chunk.EmitWithOperand(bytecode.OpMakeList, byte(n>>8), byte(n))

	case *UnaryExpr:
		g.expr(x.X)
		if x.Op == TokenMinus {
			g.chunk.Emit(bytecode.OpNeg)
		} else {
			g.chunk.Emit(bytecode.OpNot)
		}

	case *BinaryExpr:
		op, ok := binaryOps[x.Op]
		if !ok {
			g.errorAt(x.SrcPos, "unknown operator %s", x.Op)
			return
		}
		g.expr(x.Left)
		g.expr(x.Right)
		g.chunk.Emit(op)

	case *LogicalExpr:
		g.logical(x)

	case *CallExpr:
		g.call(x)

	default:
		g.errorAt(e.Pos(), "unknown expression type: %T", e)
	}
}

func (g *codegen) literal(v variant.Variant) {
	switch {
	case v.IsNull():
		g.chunk.Emit(bytecode.OpNull)
	case v.IsBool():
		if v.Truthy() {
			g.chunk.Emit(bytecode.OpTrue)
		} else {
			g.chunk.Emit(bytecode.OpFalse)
		}
	default:
		g.chunk.EmitConstant(v)
	}
}

// logical compiles short-circuit and/or to a boolean result.
func (g *codegen) logical(x *LogicalExpr) {
	c := g.chunk
	g.expr(x.Left)
	if x.And {
		f1 := c.EmitJump(bytecode.OpJumpFalse)
		g.expr(x.Right)
		f2 := c.EmitJump(bytecode.OpJumpFalse)
		c.Emit(bytecode.OpTrue)
		end := c.EmitJump(bytecode.OpJump)
		c.PatchJump(f1)
		c.PatchJump(f2)
		c.Emit(bytecode.OpFalse)
		c.PatchJump(end)
		return
	}
	t1 := c.EmitJump(bytecode.OpJumpTrue)
	g.expr(x.Right)
	t2 := c.EmitJump(bytecode.OpJumpTrue)
	c.Emit(bytecode.OpFalse)
	end := c.EmitJump(bytecode.OpJump)
	c.PatchJump(t1)
	c.PatchJump(t2)
	c.Emit(bytecode.OpTrue)
	c.PatchJump(end)
}

func (g *codegen) call(x *CallExpr) {
	for _, arg := range x.Args {
		g.expr(arg)
	}
	if len(x.Args) > math.MaxUint8 {
		g.errorAt(x.Pos(), "call passes %d arguments, at most %d are allowed", len(x.Args), math.MaxUint8)
		return
	}
	argc := byte(len(x.Args))
	t := x.Target
	if t.Library == "" {
		if t.Index > math.MaxUint16 {
			g.errorAt(x.Pos(), "too many functions")
			return
		}
		g.chunk.EmitWithOperand(bytecode.OpCall, byte(t.Index>>8), byte(t.Index), argc)
		return
	}
	idx := g.hostRef(t)
	if idx > math.MaxUint16 {
		g.errorAt(x.Pos(), "too many host functions")
		return
	}
	g.chunk.EmitWithOperand(bytecode.OpCallHost, byte(idx>>8), byte(idx), argc)
}

func (g *codegen) hostRef(t *Callable) int {
	key := t.Sig.Key()
	id := t.Library + "\x00" + key
	if idx, ok := g.hostRefs[id]; ok {
		return idx
	}
	idx := len(g.unit.HostRefs)
	g.unit.HostRefs = append(g.unit.HostRefs, bytecode.HostRef{
		Library:   t.Library,
		Signature: key,
		Arity:     t.Sig.Arity(),
		Returns:   t.Sig.Returns,
	})
	g.hostRefs[id] = idx
	return idx
}
