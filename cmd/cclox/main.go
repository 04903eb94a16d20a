// Command cclox is the CLI shell around the language: flag parsing,
// the REPL read loop, file reading, and sysexits.h-style exit codes,
// all calling into internal/vm for everything else.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"cclox-vm/internal/vm"
)

const version = "v0.1.0"

// Exit codes, sysexits.h-derived.
const (
	exitSuccess = 0
	exitUsage   = 64
	exitSyntax  = 65
	exitRuntime = 70
	exitIOError = 74
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	showGlobals := flag.Bool("globals", false, "Print defined globals after a successful run")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cclox [options] [script]\n\nOptions:\n")
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  --%s\n\t%s\n", f.Name, f.Usage)
		})
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("cclox %s\n", version)
		return
	}

	args := flag.Args()
	if len(args) > 1 {
		flag.Usage()
		os.Exit(exitUsage)
	}

	if len(args) == 0 {
		runPrompt(*showGlobals)
		return
	}
	runFile(args[0], *showGlobals)
}

// runFile reads path whole and interprets it as a single compile
// unit starting at line 1.
func runFile(path string, showGlobals bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cclox: %s\n", err)
		os.Exit(exitIOError)
	}

	machine := vm.New()
	status := machine.Interpret(string(content), 1)
	if showGlobals {
		printGlobals(machine)
	}

	switch status {
	case vm.StaticError:
		os.Exit(exitSyntax)
	case vm.DynamicError:
		os.Exit(exitRuntime)
	}
	os.Exit(exitSuccess)
}

// runPrompt is the REPL: one shared VM across lines, so globals and
// the running line counter persist between inputs.
func runPrompt(showGlobals bool) {
	fmt.Printf("cclox %s\n", version)
	fmt.Println("Type 'exit' to quit.")

	machine := vm.New()
	scanner := bufio.NewScanner(os.Stdin)
	line := 1

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := scanner.Text()
		if input == "exit" {
			break
		}

		status := machine.Interpret(input, line)
		if showGlobals && status == vm.OK {
			printGlobals(machine)
		}
		line++
	}
}

func printGlobals(machine *vm.VM) {
	names := machine.GlobalNames()
	if len(names) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, "globals:")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", name)
	}
}
