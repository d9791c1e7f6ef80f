package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop Opcode = 0x00 // No operation
	OpPop Opcode = 0x01 // Pop top of stack
	OpDup Opcode = 0x02 // Duplicate top of stack

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpConst Opcode = 0x10 // Push constant from pool: OpConst <index:u16>
	OpNull  Opcode = 0x11 // Push null
	OpTrue  Opcode = 0x12 // Push true
	OpFalse Opcode = 0x13 // Push false

	// ========================================================================
	// Variables (0x20-0x2F)
	// ========================================================================

	OpLoadLocal   Opcode = 0x20 // Push frame slot: OpLoadLocal <slot:u8>
	OpStoreLocal  Opcode = 0x21 // Pop into frame slot: OpStoreLocal <slot:u8>
	OpLoadGlobal  Opcode = 0x22 // Push script variable: OpLoadGlobal <name:u16>
	OpStoreGlobal Opcode = 0x23 // Pop into script variable: OpStoreGlobal <name:u16>

	// ========================================================================
	// Arithmetic (0x50-0x5F)
	// ========================================================================

	OpAdd Opcode = 0x50 // Pop two, push sum (concatenation for strings)
	OpSub Opcode = 0x51 // Pop two, push difference (a - b where b is TOS)
	OpMul Opcode = 0x52 // Pop two, push product
	OpDiv Opcode = 0x53 // Pop two, push quotient
	OpMod Opcode = 0x54 // Pop two, push remainder
	OpNeg Opcode = 0x55 // Negate top of stack

	// ========================================================================
	// Comparison and logic (0x60-0x6F)
	// ========================================================================

	OpEq  Opcode = 0x60 // Pop two, push true if equal
	OpNe  Opcode = 0x61 // Pop two, push true if not equal
	OpLt  Opcode = 0x62 // Pop two, push true if a < b
	OpLe  Opcode = 0x63 // Pop two, push true if a <= b
	OpGt  Opcode = 0x64 // Pop two, push true if a > b
	OpGe  Opcode = 0x65 // Pop two, push true if a >= b
	OpNot Opcode = 0x68 // Push true if TOS is falsy

	// ========================================================================
	// Control flow (0x80-0x8F)
	// ========================================================================

	OpJump      Opcode = 0x80 // Unconditional jump: OpJump <offset:i16>
	OpJumpTrue  Opcode = 0x81 // Pop, jump if truthy: OpJumpTrue <offset:i16>
	OpJumpFalse Opcode = 0x82 // Pop, jump if falsy: OpJumpFalse <offset:i16>

	// ========================================================================
	// Calls (0x90-0x9F)
	// ========================================================================

	OpCall     Opcode = 0x90 // Call script function: OpCall <func:u16> <argc:u8>
	OpCallHost Opcode = 0x91 // Call host function: OpCallHost <ref:u16> <argc:u8>

	// ========================================================================
	// Collections (0xB0-0xBF)
	// ========================================================================

	OpMakeList Opcode = 0xB0 // Pop n values, push collection keyed 1..n: OpMakeList <n:u16>
	OpIndex    Opcode = 0xB2 // collection key -> value
	OpSetIndex Opcode = 0xB3 // collection key value -> (stores in place)

	// ========================================================================
	// Scheduling (0xC0-0xCF)
	// ========================================================================

	OpWait Opcode = 0xC0 // Suspend the script; resumes at the next instruction

	// ========================================================================
	// Return (0xF0-0xFF)
	// ========================================================================

	OpReturn     Opcode = 0xF0 // Return top of stack from function
	OpReturnNull Opcode = 0xF1 // Return null
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack (-1 = variable)
	StackPush  int    // How many values pushed to stack
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop: {"NOP", 0, 0, 0},
	OpPop: {"POP", 1, 0, 0},
	OpDup: {"DUP", 1, 2, 0},

	OpConst: {"CONST", 0, 1, 2},
	OpNull:  {"NULL", 0, 1, 0},
	OpTrue:  {"TRUE", 0, 1, 0},
	OpFalse: {"FALSE", 0, 1, 0},

	OpLoadLocal:   {"LOAD_LOCAL", 0, 1, 1},
	OpStoreLocal:  {"STORE_LOCAL", 1, 0, 1},
	OpLoadGlobal:  {"LOAD_GLOBAL", 0, 1, 2},
	OpStoreGlobal: {"STORE_GLOBAL", 1, 0, 2},

	OpAdd: {"ADD", 2, 1, 0},
	OpSub: {"SUB", 2, 1, 0},
	OpMul: {"MUL", 2, 1, 0},
	OpDiv: {"DIV", 2, 1, 0},
	OpMod: {"MOD", 2, 1, 0},
	OpNeg: {"NEG", 1, 1, 0},

	OpEq:  {"EQ", 2, 1, 0},
	OpNe:  {"NE", 2, 1, 0},
	OpLt:  {"LT", 2, 1, 0},
	OpLe:  {"LE", 2, 1, 0},
	OpGt:  {"GT", 2, 1, 0},
	OpGe:  {"GE", 2, 1, 0},
	OpNot: {"NOT", 1, 1, 0},

	OpJump:      {"JUMP", 0, 0, 2},
	OpJumpTrue:  {"JUMP_TRUE", 1, 0, 2},
	OpJumpFalse: {"JUMP_FALSE", 1, 0, 2},

	OpCall:     {"CALL", -1, -1, 3},      // Pops argc args, pushes a result if the callee returns one
	OpCallHost: {"CALL_HOST", -1, -1, 3}, // Pops argc args, pushes a result if the callee returns one

	OpMakeList: {"MAKE_LIST", -1, 1, 2},
	OpIndex:    {"INDEX", 2, 1, 0},
	OpSetIndex: {"SET_INDEX", 3, 0, 0},

	OpWait: {"WAIT", 0, 0, 0},

	OpReturn:     {"RETURN", 1, 0, 0},
	OpReturnNull: {"RETURN_NULL", 0, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a placeholder info if the opcode is unknown.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// String returns the opcode name.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsValid reports whether the opcode is defined.
func (op Opcode) IsValid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// InstructionLen returns the total length of an instruction including operands.
func (op Opcode) InstructionLen() int {
	return 1 + GetOpcodeInfo(op).OperandLen
}

// IsJump reports whether the opcode carries a relative jump offset.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpTrue || op == OpJumpFalse
}
