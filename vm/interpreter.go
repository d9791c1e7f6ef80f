package vm

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/pkg/variant"
)

// ---------------------------------------------------------------------------
// Interpreter: Bytecode execution loop
// ---------------------------------------------------------------------------

func (s *Script) push(v variant.Variant) {
	s.stack = append(s.stack, v)
}

func (s *Script) pop() variant.Variant {
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v
}

func (s *Script) peek() variant.Variant {
	return s.stack[len(s.stack)-1]
}

// run executes until the frame stack drops to base. It reports whether a
// wait statement suspended execution.
func (s *Script) run(base int) (suspended bool, err error) {
	for len(s.frames) > base {
		f := s.frames[len(s.frames)-1]
		start := f.ip
		if err := s.execute(f); err != nil {
			if errors.Is(err, errSuspend) {
				return true, nil
			}
			return false, s.locate(f, start, err)
		}
	}
	return false, nil
}

// errSuspend is returned by execute when a wait statement is reached.
var errSuspend = errors.New("suspend")

// execute runs one instruction of frame f.
func (s *Script) execute(f *frame) error {
	code := f.chunk.Code
	if f.ip >= len(code) {
		s.leave(f, variant.NullValue())
		return nil
	}
	op := bytecode.Opcode(code[f.ip])
	f.ip++

	switch op {
	case bytecode.OpNop:

	case bytecode.OpPop:
		s.pop()

	case bytecode.OpDup:
		s.push(s.peek())

	case bytecode.OpConst:
		idx := f.chunk.ReadUint16(f.ip)
		f.ip += 2
		s.push(f.chunk.GetConstant(idx))

	case bytecode.OpNull:
		s.push(variant.NullValue())

	case bytecode.OpTrue:
		s.push(variant.Bool(true))

	case bytecode.OpFalse:
		s.push(variant.Bool(false))

	case bytecode.OpLoadLocal:
		slot := int(code[f.ip])
		f.ip++
		s.push(s.stack[f.bp+slot])

	case bytecode.OpStoreLocal:
		slot := int(code[f.ip])
		f.ip++
		s.stack[f.bp+slot] = s.pop()

	case bytecode.OpLoadGlobal:
		name := f.chunk.GetConstant(f.chunk.ReadUint16(f.ip)).AsString()
		f.ip += 2
		s.push(s.globals[name])

	case bytecode.OpStoreGlobal:
		name := f.chunk.GetConstant(f.chunk.ReadUint16(f.ip)).AsString()
		f.ip += 2
		s.globals[name] = s.pop()

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
		b := s.pop()
		a := s.pop()
		v, err := arith(op, a, b)
		if err != nil {
			return err
		}
		s.push(v)

	case bytecode.OpNeg:
		a := s.pop()
		switch {
		case a.IsInteger():
			i, _ := a.AsInteger()
			s.push(variant.Int(-i))
		case a.IsReal():
			r, _ := a.AsReal()
			s.push(variant.Float(-r))
		default:
			return fmt.Errorf("cannot negate %s", a.Kind())
		}

	case bytecode.OpEq:
		b := s.pop()
		a := s.pop()
		s.push(variant.Bool(a.Equal(b)))

	case bytecode.OpNe:
		b := s.pop()
		a := s.pop()
		s.push(variant.Bool(!a.Equal(b)))

	case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
		b := s.pop()
		a := s.pop()
		cmp, ok := variant.Compare(a, b)
		if !ok {
			return fmt.Errorf("cannot compare %s with %s", a.Kind(), b.Kind())
		}
		var r bool
		switch op {
		case bytecode.OpLt:
			r = cmp < 0
		case bytecode.OpLe:
			r = cmp <= 0
		case bytecode.OpGt:
			r = cmp > 0
		default:
			r = cmp >= 0
		}
		s.push(variant.Bool(r))

	case bytecode.OpNot:
		s.push(variant.Bool(!s.pop().Truthy()))

	case bytecode.OpJump:
		off := int(f.chunk.ReadInt16(f.ip))
		f.ip += 2 + off
		if off < 0 && s.runtime.Closed() {
			return ErrRuntimeClosed
		}

	case bytecode.OpJumpTrue:
		off := int(f.chunk.ReadInt16(f.ip))
		f.ip += 2
		if s.pop().Truthy() {
			f.ip += off
		}

	case bytecode.OpJumpFalse:
		off := int(f.chunk.ReadInt16(f.ip))
		f.ip += 2
		if !s.pop().Truthy() {
			f.ip += off
		}

	case bytecode.OpCall:
		idx := int(f.chunk.ReadUint16(f.ip))
		argc := int(code[f.ip+2])
		f.ip += 3
		if idx >= len(f.mod.unit.Functions) {
			return fmt.Errorf("%w: function %d", ErrInvalidFunction, idx)
		}
		return s.enter(f.mod, idx, argc)

	case bytecode.OpCallHost:
		idx := int(f.chunk.ReadUint16(f.ip))
		argc := int(code[f.ip+2])
		f.ip += 3
		if idx >= len(f.mod.hosts) {
			return fmt.Errorf("%w: host reference %d", ErrMissingFunction, idx)
		}
		h := f.mod.hosts[idx]
		if h.script != nil {
			return s.enter(h.script.mod, h.script.index, argc)
		}
		args := make([]variant.Variant, argc)
		copy(args, s.stack[len(s.stack)-argc:])
		s.stack = s.stack[:len(s.stack)-argc]

		v, err := s.invoke(h, args)
		if s.reentered {
			s.reentered = false
			return ErrReentrant
		}
		if err != nil {
			return err
		}
		if s.runtime.Closed() {
			return ErrRuntimeClosed
		}
		if h.sig.Returns {
			s.push(v)
		}

	case bytecode.OpMakeList:
		n := int(f.chunk.ReadUint16(f.ip))
		f.ip += 2
		elems := make([]variant.Variant, n)
		copy(elems, s.stack[len(s.stack)-n:])
		s.stack = s.stack[:len(s.stack)-n]
		s.push(variant.Coll(variant.NewList(elems...)))

	case bytecode.OpIndex:
		idx := s.pop()
		x := s.pop()
		c := x.AsCollection()
		if c == nil {
			return fmt.Errorf("cannot index %s", x.Kind())
		}
		key, ok := variant.KeyOf(idx)
		if !ok {
			return fmt.Errorf("invalid collection key %s", idx)
		}
		v, _ := c.Get(key)
		s.push(v)

	case bytecode.OpSetIndex:
		v := s.pop()
		idx := s.pop()
		x := s.pop()
		c := x.AsCollection()
		if c == nil {
			return fmt.Errorf("cannot index %s", x.Kind())
		}
		key, ok := variant.KeyOf(idx)
		if !ok {
			return fmt.Errorf("invalid collection key %s", idx)
		}
		c.Set(key, v)

	case bytecode.OpWait:
		if s.oob == 0 {
			return errSuspend
		}

	case bytecode.OpReturn:
		s.leave(f, s.pop())

	case bytecode.OpReturnNull:
		s.leave(f, variant.NullValue())

	default:
		return fmt.Errorf("invalid opcode 0x%02X", byte(op))
	}
	return nil
}

// enter pushes a frame for function index of mod, checking arity and depth.
func (s *Script) enter(mod *module, index, argc int) error {
	fn := mod.unit.Functions[index]
	if argc != fn.Arity() {
		return fmt.Errorf("%w: %q takes %d, got %d", ErrArgumentCount, fn.Display, fn.Arity(), argc)
	}
	if len(s.frames) >= maxFrames {
		return ErrStackOverflow
	}
	s.pushFrame(mod, index)
	return nil
}

// leave pops frame f. Functions that return a value leave it on the
// caller's stack.
func (s *Script) leave(f *frame, result variant.Variant) {
	s.stack = s.stack[:f.bp]
	s.frames = s.frames[:len(s.frames)-1]
	if f.fn >= 0 && f.chunk.ReturnsValue() {
		s.push(result)
	}
}

// locate wraps err with the script name and, when debug info is present,
// the source line of the failing instruction.
func (s *Script) locate(f *frame, offset int, err error) error {
	var rt *RuntimeError
	if errors.As(err, &rt) {
		return err
	}
	rt = &RuntimeError{Script: s.unit.Name, Err: err}
	if f.fn >= 0 {
		rt.Function = f.mod.unit.Functions[f.fn].Display
	}
	if f.chunk.HasDebugInfo() {
		line, _ := f.chunk.GetSourceLocation(uint32(offset))
		rt.Line = int(line)
	}
	return rt
}

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------

func arith(op bytecode.Opcode, a, b variant.Variant) (variant.Variant, error) {
	if op == bytecode.OpAdd && (a.IsString() || b.IsString()) {
		return variant.Str(a.AsString() + b.AsString()), nil
	}
	if !a.IsNumber() || !b.IsNumber() {
		return variant.NullValue(), fmt.Errorf("cannot apply %s to %s and %s", op, a.Kind(), b.Kind())
	}

	if a.IsInteger() && b.IsInteger() {
		x, _ := a.AsInteger()
		y, _ := b.AsInteger()
		switch op {
		case bytecode.OpAdd:
			return variant.Int(x + y), nil
		case bytecode.OpSub:
			return variant.Int(x - y), nil
		case bytecode.OpMul:
			return variant.Int(x * y), nil
		case bytecode.OpDiv:
			if y == 0 {
				return variant.NullValue(), errors.New("division by zero")
			}
			return variant.Int(x / y), nil
		default:
			if y == 0 {
				return variant.NullValue(), errors.New("division by zero")
			}
			return variant.Int(x % y), nil
		}
	}

	x, _ := a.AsReal()
	y, _ := b.AsReal()
	switch op {
	case bytecode.OpAdd:
		return variant.Float(x + y), nil
	case bytecode.OpSub:
		return variant.Float(x - y), nil
	case bytecode.OpMul:
		return variant.Float(x * y), nil
	case bytecode.OpDiv:
		if y == 0 {
			return variant.NullValue(), errors.New("division by zero")
		}
		return variant.Float(x / y), nil
	default:
		if y == 0 {
			return variant.NullValue(), errors.New("division by zero")
		}
		return variant.Float(math.Mod(x, y)), nil
	}
}
