package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a name header.
func (c *Chunk) DisassembleWithName(name string) string {
	return c.disassemble(name, nil)
}

// Disassemble returns a listing of every chunk in the unit, with call
// targets resolved to their signatures.
func (u *Unit) Disassemble() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("; unit %s\n", u.Name))
	if len(u.Libraries) > 0 {
		sb.WriteString(fmt.Sprintf("; libraries: %s\n", strings.Join(u.Libraries, ", ")))
	}
	if u.Library != "" {
		sb.WriteString(fmt.Sprintf("; member of library: %s\n", u.Library))
	}
	if len(u.Externals) > 0 {
		sb.WriteString(fmt.Sprintf("; externals: %s\n", strings.Join(u.Externals, ", ")))
	}
	resolve := func(op Opcode, idx uint16) string {
		switch op {
		case OpCall:
			if int(idx) < len(u.Functions) {
				return u.Functions[idx].Signature
			}
		case OpCallHost:
			if int(idx) < len(u.HostRefs) {
				ref := u.HostRefs[idx]
				return ref.Library + ":" + ref.Signature
			}
		}
		return ""
	}
	sb.WriteString("\n")
	sb.WriteString(u.Main.disassemble("main", resolve))
	for _, f := range u.Functions {
		sb.WriteString("\n")
		sb.WriteString(f.Chunk.disassemble("function "+f.Signature, resolve))
	}
	return sb.String()
}

func (c *Chunk) disassemble(name string, resolve func(Opcode, uint16) string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Quill Bytecode v%d\n", c.Version))
	sb.WriteString(fmt.Sprintf("; Flags: 0x%04X", c.Flags))
	if c.Flags&ChunkFlagDebug != 0 {
		sb.WriteString(" [DEBUG]")
	}
	if c.Flags&ChunkFlagReturnsValue != 0 {
		sb.WriteString(" [RETURNS]")
	}
	sb.WriteString("\n")

	if c.ParamCount > 0 {
		sb.WriteString(fmt.Sprintf("; Parameters: %d\n", c.ParamCount))
	}
	if c.LocalCount > 0 {
		sb.WriteString(fmt.Sprintf("; Locals: %d slots\n", c.LocalCount))
	}

	if len(c.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, v := range c.Constants {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, formatConstant(v.String(), v.IsString())))
		}
	}

	sb.WriteString("; Code:\n")
	offset := 0
	for offset < len(c.Code) {
		line, instrLen := c.disassembleInstruction(offset, resolve)
		if instrLen == 0 {
			break
		}

		if c.Flags&ChunkFlagDebug != 0 {
			if srcLine, srcCol := c.GetSourceLocation(uint32(offset)); srcLine > 0 {
				sb.WriteString(fmt.Sprintf("%04X  %-30s ; line %d:%d\n", offset, line, srcLine, srcCol))
			} else {
				sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
			}
		} else {
			sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		}

		offset += instrLen
	}

	return sb.String()
}

func formatConstant(s string, quoted bool) string {
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	if quoted {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// disassembleInstruction disassembles a single instruction at the given offset.
// Returns the formatted string and the instruction length.
func (c *Chunk) disassembleInstruction(offset int, resolve func(Opcode, uint16) string) (string, int) {
	if offset >= len(c.Code) {
		return "<end of code>", 0
	}

	op := Opcode(c.Code[offset])
	info := GetOpcodeInfo(op)
	if offset+info.OperandLen >= len(c.Code) && info.OperandLen > 0 {
		return fmt.Sprintf("%s <truncated>", info.Name), len(c.Code) - offset
	}

	switch op {
	case OpConst:
		idx := c.ReadUint16(offset + 1)
		constVal := ""
		if int(idx) < len(c.Constants) {
			v := c.Constants[idx]
			constVal = formatConstant(v.String(), v.IsString())
		}
		return fmt.Sprintf("CONST %d ; %s", idx, constVal), 3

	case OpLoadLocal, OpStoreLocal:
		slot := c.Code[offset+1]
		if varName := c.getVarName(int(slot)); varName != "" {
			return fmt.Sprintf("%s %d ; %s", info.Name, slot, varName), 2
		}
		return fmt.Sprintf("%s %d", info.Name, slot), 2

	case OpLoadGlobal, OpStoreGlobal:
		idx := c.ReadUint16(offset + 1)
		name := ""
		if int(idx) < len(c.Constants) {
			name = c.Constants[idx].AsString()
		}
		return fmt.Sprintf("%s %d ; %s", info.Name, idx, name), 3

	case OpJump, OpJumpTrue, OpJumpFalse:
		delta := c.ReadInt16(offset + 1)
		target := offset + 3 + int(delta)
		return fmt.Sprintf("%s %+d (-> %04X)", info.Name, delta, target), 3

	case OpCall, OpCallHost:
		idx := c.ReadUint16(offset + 1)
		argc := c.Code[offset+3]
		target := ""
		if resolve != nil {
			target = resolve(op, idx)
		}
		if target != "" {
			return fmt.Sprintf("%s %d argc=%d ; %s", info.Name, idx, argc, target), 4
		}
		return fmt.Sprintf("%s %d argc=%d", info.Name, idx, argc), 4

	case OpMakeList:
		return fmt.Sprintf("MAKE_LIST %d", c.ReadUint16(offset+1)), 3

	default:
		instrLen := 1 + info.OperandLen
		if info.OperandLen == 0 {
			return info.Name, instrLen
		}
		operands := make([]string, 0, info.OperandLen)
		for i := 0; i < info.OperandLen; i++ {
			operands = append(operands, fmt.Sprintf("0x%02X", c.Code[offset+1+i]))
		}
		return fmt.Sprintf("%s %s", info.Name, strings.Join(operands, " ")), instrLen
	}
}

// DisassembleInstruction returns a human-readable representation of a single instruction.
func (c *Chunk) DisassembleInstruction(offset int) string {
	line, _ := c.disassembleInstruction(offset, nil)
	return line
}

// getVarName returns the variable name for a local slot if available.
func (c *Chunk) getVarName(slot int) string {
	if slot < len(c.VarNames) {
		return c.VarNames[slot]
	}
	return ""
}
