// Package chunk implements the append-only bytecode buffer the
// compiler writes into and the VM executes: a byte stream, a constant
// pool, and a position map from instruction-opening offset to source
// coordinates.
package chunk

import (
	"fmt"

	"cclox-vm/internal/token"
	"cclox-vm/internal/value"
)

// OpCode is a single bytecode instruction tag.
type OpCode byte

const (
	OpConstant OpCode = iota
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpDefineGlobal
	OpGetGlobal
	OpSetGlobal
	OpGetLocal
	OpSetLocal
	OpEqual
	OpNotEqual
	OpGreater
	OpGreaterEqual
	OpLess
	OpLessEqual
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNegative
	OpNot
	OpPrint
	OpJump
	OpJumpIfTrue
	OpJumpIfFalse
	OpLoop
	OpReturn
)

var opNames = [...]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpEqual:        "OP_EQUAL",
	OpNotEqual:     "OP_NOT_EQUAL",
	OpGreater:      "OP_GREATER",
	OpGreaterEqual: "OP_GREATER_EQUAL",
	OpLess:         "OP_LESS",
	OpLessEqual:    "OP_LESS_EQUAL",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpNegative:     "OP_NEGATIVE",
	OpNot:          "OP_NOT",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfTrue:   "OP_JUMP_IF_TRUE",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpReturn:       "OP_RETURN",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("OP_%d", op)
}

// MaxConstants is the largest number of constants a single chunk may
// hold; constant-pool indices are one byte.
const MaxConstants = 256

// MaxJump is the largest displacement a one-byte Jump/Loop operand can
// encode.
const MaxJump = 255

// Chunk is a self-contained bytecode unit: the instruction stream, its
// constant pool, and the offset->position map for diagnostics. It is
// append-only except for Patch, which overwrites exactly one
// previously emitted byte.
type Chunk struct {
	Code      []byte
	Constants []value.Value

	// positions maps a byte offset that begins an instruction to the
	// source position of the token that produced it. Operand bytes
	// have no entry.
	positions map[int]token.Position
}

// New returns an empty Chunk ready for the compiler to write into.
func New() *Chunk {
	return &Chunk{positions: make(map[int]token.Position)}
}

// Write appends one byte, recording pos as the position of the
// instruction that starts at this offset. Call it once per
// instruction (for the opcode byte); operand bytes should be appended
// with WriteOperand.
func (c *Chunk) Write(b byte, pos token.Position) int {
	offset := len(c.Code)
	c.Code = append(c.Code, b)
	c.positions[offset] = pos
	return offset
}

// WriteOperand appends an operand byte belonging to the instruction
// most recently started with Write; it carries no position entry of
// its own.
func (c *Chunk) WriteOperand(b byte) int {
	offset := len(c.Code)
	c.Code = append(c.Code, b)
	return offset
}

// Patch overwrites exactly one previously emitted operand byte. It is
// the only mutation a Chunk allows besides appending.
func (c *Chunk) Patch(offset int, b byte) {
	c.Code[offset] = b
}

// AddConstant appends v to the constant pool and returns its index.
// It reports an error once the pool would exceed MaxConstants, per
// the one-byte constant-index encoding.
func (c *Chunk) AddConstant(v value.Value) (int, error) {
	if len(c.Constants) >= MaxConstants {
		return 0, fmt.Errorf("Too many constants in one chunk!")
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1, nil
}

// PositionFor looks up the source position of the instruction that
// begins at offset. It panics if offset does not open an instruction
// — per the chunk invariant, every such offset must have an entry;
// a miss is a compiler logic error, not a user-visible one.
func (c *Chunk) PositionFor(offset int) token.Position {
	pos, ok := c.positions[offset]
	if !ok {
		panic(fmt.Sprintf("chunk: no position recorded for offset %d", offset))
	}
	return pos
}
