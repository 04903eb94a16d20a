// Package reporter implements the passive diagnostic sink shared by
// the Compiler and the VM: it accumulates syntax and runtime errors,
// counts them, and renders them to a writer in the tabular form the
// original implementation used.
package reporter

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-isatty"

	"cclox-vm/internal/token"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGrey  = "\033[90m"
)

// Error is a single reported diagnostic: a source position, a human
// message, and whether it was raised at compile time or run time.
type Error struct {
	Position  token.Position
	Message   string
	IsDynamic bool
}

func (e *Error) Error() string {
	stage := "syntax"
	if e.IsDynamic {
		stage = "runtime"
	}
	return fmt.Sprintf("%s error: %s (%s)", stage, e.Message, e.Position)
}

// ErrorReporter accumulates diagnostics across one compile-and-run
// cycle. It is reused across Interpret calls; Reset clears it at the
// start of each one, the way the original error-reporter.cpp's
// errorCount_ is zeroed at the top of every interpret().
type ErrorReporter struct {
	// Out is where rendered diagnostics are written. Defaults to
	// os.Stderr; tests may swap in a buffer.
	Out io.Writer
	// NoColor forces off the ANSI colour escapes around the stage
	// label even when Out is a terminal. Auto-detected from Out via
	// go-isatty when left false and Out is *os.File.
	NoColor bool

	errs *multierror.Error
}

// New returns a reporter that writes to os.Stderr.
func New() *ErrorReporter {
	return &ErrorReporter{Out: os.Stderr}
}

// Report records a diagnostic and writes its rendered form to Out.
func (r *ErrorReporter) Report(pos token.Position, message string, isDynamic bool) {
	err := &Error{Position: pos, Message: message, IsDynamic: isDynamic}
	r.errs = multierror.Append(r.errs, err)

	stage := "syntax"
	if isDynamic {
		stage = "runtime"
	}

	if r.out() == nil {
		return
	}
	if r.colorEnabled() {
		fmt.Fprintf(r.out(), "%s%8s error  %s%s%s (%d:%d)\n%s",
			colorRed, stage, colorReset, message, colorGrey, pos.Line, pos.Column, colorReset)
	} else {
		fmt.Fprintf(r.out(), "%8s error  %s (%d:%d)\n", stage, message, pos.Line, pos.Column)
	}
}

func (r *ErrorReporter) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stderr
}

func (r *ErrorReporter) colorEnabled() bool {
	if r.NoColor {
		return false
	}
	f, ok := r.out().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ErrorCount reports how many diagnostics have been accumulated since
// the last Reset.
func (r *ErrorReporter) ErrorCount() int {
	if r.errs == nil {
		return 0
	}
	return len(r.errs.Errors)
}

// Errors returns the accumulated diagnostics in report order.
func (r *ErrorReporter) Errors() []error {
	if r.errs == nil {
		return nil
	}
	return r.errs.Errors
}

// DisplayErrorCount writes the "N error(s) identified." summary line.
func (r *ErrorReporter) DisplayErrorCount() {
	fmt.Fprintf(r.out(), "%d error(s) identified.\n", r.ErrorCount())
}

// Reset zeroes the error count. Called at the start of every
// Interpret call so diagnostics don't leak across runs.
func (r *ErrorReporter) Reset() {
	r.errs = nil
}
