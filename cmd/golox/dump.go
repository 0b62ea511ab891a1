package main

import (
	"io"

	"github.com/mprimi/golox/pkg/bytecode"
	"github.com/mprimi/golox/pkg/object"
)

// dumpFunctionChunks disassembles fn's chunk and recurses into every
// nested function found in its constant pool, so a single source file
// producing several closures still gets one readable, complete listing.
func dumpFunctionChunks(w io.Writer, fn *object.Function, name string) {
	bytecode.Disassemble(w, fn.Chunk, name)
	for _, c := range fn.Chunk.Constants {
		if !c.IsObj() {
			continue
		}
		if nested, ok := c.AsObj().(*object.Function); ok {
			nestedName := "<fn>"
			if nested.Name != nil {
				nestedName = nested.Name.Chars
			}
			dumpFunctionChunks(w, nested, nestedName)
		}
	}
}
