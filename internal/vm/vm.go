// Package vm implements the stack-based bytecode interpreter: a
// fetch-decode-execute loop over a Chunk, an operand stack, and a
// globals map, modeled on a clox-style VM (a stack array + stackTop, a
// push/pop/peek trio, a switch-per-opcode run loop) with no call
// frames, no upvalues, and no shared module state — this dialect has
// no functions to need them.
package vm

import (
	"fmt"

	"cclox-vm/internal/chunk"
	"cclox-vm/internal/compiler"
	"cclox-vm/internal/reporter"
	"cclox-vm/internal/value"
)

// StackMax is the largest number of values the operand stack can hold
// at once: the live locals (each occupies one slot) plus the
// temporaries of the expression being evaluated. The language has no
// recursion of its own (no functions), so nothing else grows the stack.
const StackMax = 256

// DivideByZeroIsError makes `/0` a runtime error rather than producing
// IEEE inf/nan; some Lox-family implementations choose the latter, but
// this one treats it as a reportable mistake.
const DivideByZeroIsError = true

// ResultStatus is the outcome of one Interpret call.
type ResultStatus int

const (
	OK ResultStatus = iota
	StaticError
	DynamicError
)

func (s ResultStatus) String() string {
	switch s {
	case OK:
		return "OK"
	case StaticError:
		return "StaticError"
	case DynamicError:
		return "DynamicError"
	default:
		return "Unknown"
	}
}

// VM executes a Chunk produced by the compiler. Its globals map and
// globalOrder ledger persist across Interpret calls, the way a REPL
// keeps one VM alive across successive lines of input; the stack is
// cleared whenever a call ends in a dynamic error.
type VM struct {
	stack    [StackMax]value.Value
	stackTop int

	globals     map[string]value.Value
	globalOrder []string

	reporter *reporter.ErrorReporter
	compiler *compiler.Compiler

	chunk *chunk.Chunk
	ip    int

	stdout func(string)
}

// New returns a VM with its own error reporter, ready to interpret
// source via Interpret. Globals persist across calls on the same VM.
func New() *VM {
	rep := reporter.New()
	return &VM{
		globals:  make(map[string]value.Value),
		reporter: rep,
		compiler: compiler.New(rep),
		stdout:   func(s string) { fmt.Print(s) },
	}
}

// Reporter exposes the VM's error reporter so a caller (e.g. the CLI)
// can inspect accumulated diagnostics after a non-OK result.
func (vm *VM) Reporter() *reporter.ErrorReporter { return vm.reporter }

// SetOutput redirects Print's destination; tests use this to capture
// output instead of writing to the real stdout.
func (vm *VM) SetOutput(w func(string)) { vm.stdout = w }

// GlobalNames returns global identifiers in the order they were first
// defined, for deterministic debug output. It is never consulted by
// program semantics.
func (vm *VM) GlobalNames() []string {
	out := make([]string, len(vm.globalOrder))
	copy(out, vm.globalOrder)
	return out
}

// Interpret compiles source (whose first line is numbered
// startingLine) and, if it compiled cleanly, executes it. It resets
// the error reporter at the start of every call so diagnostics from a
// previous REPL line don't leak into this one.
func (vm *VM) Interpret(source string, startingLine int) ResultStatus {
	vm.reporter.Reset()

	c := vm.compiler.Compile(source, startingLine)
	if vm.reporter.ErrorCount() > 0 {
		vm.reporter.DisplayErrorCount()
		return StaticError
	}

	if err := vm.run(c); err != nil {
		rerr, ok := err.(*reporter.Error)
		if !ok {
			panic(err)
		}
		vm.reporter.Report(rerr.Position, rerr.Message, true)
		vm.stackTop = 0
		return DynamicError
	}
	return OK
}

// run is the fetch-decode-execute loop. It terminates at OpReturn;
// falling off the end of c.Code first is a compiler logic error, not
// a user-visible one, and panics rather than being reported.
func (vm *VM) run(c *chunk.Chunk) error {
	vm.chunk = c
	vm.ip = 0

	for {
		offset := vm.ip
		if offset >= len(c.Code) {
			panic("vm: ran off the end of the chunk without OpReturn")
		}
		op := chunk.OpCode(c.Code[offset])
		vm.ip++

		switch op {
		case chunk.OpConstant:
			vm.push(c.Constants[vm.readByte()])

		case chunk.OpNil:
			vm.push(value.NewNil())

		case chunk.OpTrue:
			vm.push(value.NewBool(true))

		case chunk.OpFalse:
			vm.push(value.NewBool(false))

		case chunk.OpPop:
			vm.pop()

		case chunk.OpDefineGlobal:
			val := vm.pop()
			name := vm.pop().AsString()
			if _, exists := vm.globals[name]; exists {
				return vm.runtimeError(offset, "Identifier '%s' is already defined.", name)
			}
			vm.globals[name] = val
			vm.globalOrder = append(vm.globalOrder, name)

		case chunk.OpGetGlobal:
			name := vm.pop().AsString()
			val, exists := vm.globals[name]
			if !exists {
				return vm.runtimeError(offset, "Identifier '%s' is undefined.", name)
			}
			vm.push(val)

		case chunk.OpSetGlobal:
			newVal := vm.peek(0)
			name := vm.stack[vm.stackTop-2].AsString()
			if _, exists := vm.globals[name]; !exists {
				return vm.runtimeError(offset, "Identifier '%s' is undefined.", name)
			}
			vm.globals[name] = newVal
			vm.stack[vm.stackTop-2] = newVal
			vm.stackTop--

		case chunk.OpGetLocal:
			slot := vm.readByte()
			vm.push(vm.stack[slot])

		case chunk.OpSetLocal:
			slot := vm.readByte()
			vm.stack[slot] = vm.peek(0)

		case chunk.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.NewBool(a.Equal(b)))

		case chunk.OpNotEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.NewBool(!a.Equal(b)))

		case chunk.OpGreater, chunk.OpGreaterEqual, chunk.OpLess, chunk.OpLessEqual:
			if err := vm.comparisonOp(op, offset); err != nil {
				return err
			}

		case chunk.OpAdd:
			if err := vm.addOp(offset); err != nil {
				return err
			}

		case chunk.OpSubtract, chunk.OpMultiply, chunk.OpDivide:
			if err := vm.arithmeticOp(op, offset); err != nil {
				return err
			}

		case chunk.OpNegative:
			if vm.peek(0).Kind != value.Number {
				return vm.runtimeError(offset, "Operand must be a number.")
			}
			vm.push(value.NewNumber(-vm.pop().AsNumber()))

		case chunk.OpNot:
			vm.push(value.NewBool(!vm.pop().IsTruthy()))

		case chunk.OpPrint:
			vm.stdout(vm.pop().String() + "\n")

		case chunk.OpJump:
			vm.ip += int(vm.readByte())

		case chunk.OpJumpIfTrue:
			d := vm.readByte()
			if vm.peek(0).IsTruthy() {
				vm.ip += int(d)
			}

		case chunk.OpJumpIfFalse:
			d := vm.readByte()
			if !vm.peek(0).IsTruthy() {
				vm.ip += int(d)
			}

		case chunk.OpLoop:
			vm.ip -= int(vm.readByte())

		case chunk.OpReturn:
			return nil

		default:
			panic(fmt.Sprintf("vm: unknown opcode %d at offset %d", op, offset))
		}
	}
}

func (vm *VM) readByte() byte {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) push(v value.Value) {
	if vm.stackTop >= StackMax {
		panic("vm: stack overflow")
	}
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	v := vm.stack[vm.stackTop]
	vm.stack[vm.stackTop] = value.Value{}
	return v
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) comparisonOp(op chunk.OpCode, offset int) error {
	b, a := vm.pop(), vm.pop()
	switch {
	case a.Kind == value.Number && b.Kind == value.Number:
		vm.push(value.NewBool(numericCompare(op, a.AsNumber() < b.AsNumber(), a.AsNumber() > b.AsNumber())))
	case a.Kind == value.String && b.Kind == value.String:
		vm.push(value.NewBool(numericCompare(op, a.AsString() < b.AsString(), a.AsString() > b.AsString())))
	default:
		return vm.runtimeError(offset, "Operand must be a number.")
	}
	return nil
}

func numericCompare(op chunk.OpCode, less, greater bool) bool {
	switch op {
	case chunk.OpLess:
		return less
	case chunk.OpLessEqual:
		return less || !greater
	case chunk.OpGreater:
		return greater
	case chunk.OpGreaterEqual:
		return greater || !less
	default:
		return false
	}
}

func (vm *VM) addOp(offset int) error {
	b, a := vm.pop(), vm.pop()
	if a.Kind == value.String || b.Kind == value.String {
		vm.push(value.NewString(a.String() + b.String()))
		return nil
	}
	if a.Kind != value.Number || b.Kind != value.Number {
		return vm.runtimeError(offset, "Operand must be a number.")
	}
	vm.push(value.NewNumber(a.AsNumber() + b.AsNumber()))
	return nil
}

func (vm *VM) arithmeticOp(op chunk.OpCode, offset int) error {
	b, a := vm.pop(), vm.pop()
	if a.Kind != value.Number || b.Kind != value.Number {
		return vm.runtimeError(offset, "Operand must be a number.")
	}
	switch op {
	case chunk.OpSubtract:
		vm.push(value.NewNumber(a.AsNumber() - b.AsNumber()))
	case chunk.OpMultiply:
		vm.push(value.NewNumber(a.AsNumber() * b.AsNumber()))
	case chunk.OpDivide:
		if DivideByZeroIsError && b.AsNumber() == 0 {
			return vm.runtimeError(offset, "Cannot divide by zero.")
		}
		vm.push(value.NewNumber(a.AsNumber() / b.AsNumber()))
	}
	return nil
}

// runtimeError builds a reporter.Error positioned at the instruction
// that begins at offset, via the chunk's offset->position map, so the
// diagnostic points at the operator rather than its operands.
func (vm *VM) runtimeError(offset int, format string, args ...interface{}) error {
	pos := vm.chunk.PositionFor(offset)
	return &reporter.Error{Position: pos, Message: fmt.Sprintf(format, args...), IsDynamic: true}
}
