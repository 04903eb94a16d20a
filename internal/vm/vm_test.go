package vm

import (
	"strings"
	"testing"
)

type vmTestCase struct {
	name       string
	input      string
	wantStdout string
	wantStatus ResultStatus
}

func runVMTests(t *testing.T, tests []vmTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := New()
			var out strings.Builder
			machine.SetOutput(func(s string) { out.WriteString(s) })

			status := machine.Interpret(tt.input, 1)
			if status != tt.wantStatus {
				t.Fatalf("status = %s, want %s", status, tt.wantStatus)
			}
			if out.String() != tt.wantStdout {
				t.Fatalf("stdout = %q, want %q", out.String(), tt.wantStdout)
			}
		})
	}
}

// TestConcreteScenarios exercises a handful of representative
// end-to-end programs covering precedence, scoping, coercion, and
// control flow.
func TestConcreteScenarios(t *testing.T) {
	tests := []vmTestCase{
		{"operator precedence", "print 1 + 2 * 3;", "7\n", OK},
		{"string plus number coercion", `var a = "hi"; var b = 2; print a + b;`, "hi2\n", OK},
		{"block shadowing", `var a = 1; { var a = 2; print a; } print a;`, "2\n1\n", OK},
		{"while loop", "var i = 0; while (i < 3) { print i; i = i + 1; }", "0\n1\n2\n", OK},
		{"nil equals false is false", "print nil == false;", "false\n", OK},
		{"for loop with break", "for (var i = 0; i < 5; i = i + 1) { if (i == 3) break; print i; }", "0\n1\n2\n", OK},
	}
	runVMTests(t, tests)
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	machine := New()
	var out strings.Builder
	machine.SetOutput(func(s string) { out.WriteString(s) })
	var errs strings.Builder
	machine.Reporter().Out = &errs
	machine.Reporter().NoColor = true

	status := machine.Interpret("print 1 / 0;", 1)
	if status != DynamicError {
		t.Fatalf("status = %s, want DynamicError", status)
	}
	if out.String() != "" {
		t.Fatalf("expected no stdout, got %q", out.String())
	}
	if !strings.Contains(errs.String(), "runtime") || !strings.Contains(errs.String(), "Cannot divide by zero.") {
		t.Fatalf("expected runtime divide-by-zero message, got %q", errs.String())
	}
}

func TestSelfReferencingLocalIsStaticError(t *testing.T) {
	machine := New()
	var errs strings.Builder
	machine.Reporter().Out = &errs
	machine.Reporter().NoColor = true

	status := machine.Interpret("{ var x = x; }", 1)
	if status != StaticError {
		t.Fatalf("status = %s, want StaticError", status)
	}
	if !strings.Contains(errs.String(), "referenced in its own declaration") {
		t.Fatalf("expected self-reference message, got %q", errs.String())
	}
}

func TestGlobalRedefinitionIsRuntimeError(t *testing.T) {
	tests := []vmTestCase{
		{"redefine global", `var a = 1; var a = 2;`, "", DynamicError},
	}
	runVMTests(t, tests)
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	tests := []vmTestCase{
		{"undefined read", `print undefinedVar;`, "", DynamicError},
		{"undefined assign", `undefinedVar = 1;`, "", DynamicError},
	}
	runVMTests(t, tests)
}

func TestTypeErrorsAreRuntime(t *testing.T) {
	tests := []vmTestCase{
		{"negate string", `print -"x";`, "", DynamicError},
		{"less than mixed kinds", `print 1 < "x";`, "", DynamicError},
		{"subtract strings", `print "a" - "b";`, "", DynamicError},
	}
	runVMTests(t, tests)
}

// TestStackEmptyAfterOKRun checks that a syntactically valid program
// leaves the value stack empty once Interpret returns OK — every
// expression statement pops its result and every scope exit pops its
// locals, so nothing should be left over.
func TestStackEmptyAfterOKRun(t *testing.T) {
	machine := New()
	machine.SetOutput(func(string) {})
	status := machine.Interpret(`
var a = 1;
{
  var b = 2;
  print a + b;
}
for (var i = 0; i < 3; i = i + 1) {
  if (i == 1) break;
}
print 1 ? 2 : 3;
`, 1)
	if status != OK {
		t.Fatalf("expected OK, got %s", status)
	}
	if machine.stackTop != 0 {
		t.Fatalf("expected empty stack after OK run, stackTop=%d", machine.stackTop)
	}
}

func TestGlobalsPersistAcrossInterpretCalls(t *testing.T) {
	machine := New()
	var out strings.Builder
	machine.SetOutput(func(s string) { out.WriteString(s) })

	if status := machine.Interpret("var counter = 0;", 1); status != OK {
		t.Fatalf("first call: status = %s", status)
	}
	if status := machine.Interpret("counter = counter + 1; print counter;", 2); status != OK {
		t.Fatalf("second call: status = %s", status)
	}
	if out.String() != "1\n" {
		t.Fatalf("expected globals to persist across calls, got %q", out.String())
	}
}

func TestStackClearedAfterDynamicError(t *testing.T) {
	machine := New()
	machine.SetOutput(func(string) {})
	var errs strings.Builder
	machine.Reporter().Out = &errs
	machine.Reporter().NoColor = true

	machine.Interpret("1 / 0;", 1)
	if machine.stackTop != 0 {
		t.Fatalf("expected stack cleared after dynamic error, stackTop=%d", machine.stackTop)
	}

	var out strings.Builder
	machine.SetOutput(func(s string) { out.WriteString(s) })
	if status := machine.Interpret("print 42;", 2); status != OK {
		t.Fatalf("expected a clean VM to keep working after a prior error, got %s", status)
	}
	if out.String() != "42\n" {
		t.Fatalf("expected 42, got %q", out.String())
	}
}
