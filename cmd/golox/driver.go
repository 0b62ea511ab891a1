package main

import (
	"fmt"
	"os"

	"github.com/mprimi/golox/pkg/compiler"
	"github.com/mprimi/golox/pkg/value"
	"github.com/mprimi/golox/pkg/vm"
)

// freshVM builds an empty intern/global state and the VM that shares it,
// the same setup an incremental REPL session reuses across inputs.
func freshVM(gcStress bool) *vm.VM {
	strings := value.NewTable()
	globalNames := value.NewTable()
	globalValues := []value.Value{}
	globalKind := []compiler.AccessKind{}
	v := vm.New(strings, globalNames, &globalValues, &globalKind)
	v.SetStressGC(gcStress)
	return v
}

func runFile(path string, gcStress bool) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		return exitFileIOError
	}
	v := freshVM(gcStress)
	return interpretAndReport(v, string(data))
}

// interpretAndReport runs source on v and maps the outcome to a process
// exit code, matching the compile/runtime/ok triage of the driver
// contract.
func interpretAndReport(v *vm.VM, source string) int {
	err := v.Interpret(source)
	if err == nil {
		return exitOK
	}
	if ce, ok := err.(*vm.CompileError); ok {
		fmt.Fprintln(os.Stderr, ce.Message)
		return exitCompileErr
	}
	fmt.Fprintln(os.Stderr, err.Error())
	return exitRuntimeErr
}

func compileFile(inPath, outPath string) int {
	data, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		return exitFileIOError
	}

	strings := value.NewTable()
	globalNames := value.NewTable()
	globalValues := []value.Value{}
	globalKind := []compiler.AccessKind{}
	fn, errs := compiler.Compile(string(data), strings, globalNames, &globalValues, &globalKind, nil)
	if fn == nil {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		return exitCompileErr
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
			return exitFileIOError
		}
		defer f.Close()
		out = f
	}
	dumpFunctionChunks(out, fn, "<script>")
	return exitOK
}

func disassembleFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		return exitFileIOError
	}

	strings := value.NewTable()
	globalNames := value.NewTable()
	globalValues := []value.Value{}
	globalKind := []compiler.AccessKind{}
	fn, errs := compiler.Compile(string(data), strings, globalNames, &globalValues, &globalKind, nil)
	if fn == nil {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		return exitCompileErr
	}
	dumpFunctionChunks(os.Stdout, fn, "<script>")
	return exitOK
}
