// Command golox is the REPL/file driver: it reads source strings, runs
// them against a VM, and maps compile/runtime failures to process exit
// codes. It is a read-only observer of the byte-code pipeline, not part
// of it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

const (
	exitOK          = 0
	exitUsage       = 64
	exitCompileErr  = 65
	exitRuntimeErr  = 70
	exitFileIOError = 74
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitUsage)
	}
}

func newRootCmd() *cobra.Command {
	var gcStress bool

	root := &cobra.Command{
		Use:   "golox",
		Short: "A tree-less bytecode interpreter for the golox dialect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runREPL(gcStress)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&gcStress, "gc-stress", false, "collect garbage before every allocation")

	root.AddCommand(
		newRunCmd(&gcStress),
		newCompileCmd(),
		newDisassembleCmd(),
		newVersionCmd(),
	)
	return root
}

func newRunCmd(gcStress *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "run <script>",
		Short: "Compile and execute a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(runFile(args[0], *gcStress))
			return nil
		},
	}
}

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile <in> [out]",
		Short: "Compile a source file and print a disassembly-friendly chunk dump",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ""
			if len(args) == 2 {
				out = args[1]
			}
			os.Exit(compileFile(args[0], out))
			return nil
		},
	}
}

func newDisassembleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disassemble <file>",
		Short: "Print a chunk's instructions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(disassembleFile(args[0]))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the interpreter version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("golox version %s\n", version)
		},
	}
}
