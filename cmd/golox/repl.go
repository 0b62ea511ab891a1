package main

import (
	"fmt"
	"strings"

	"github.com/chzyer/readline"
)

// runREPL drives an interactive session against one persistent VM, so
// globals and fixed bindings declared on one line stay visible to the
// next. A line ending in a backslash continues onto the next prompt; an
// empty line at the top level exits.
func runREPL(gcStress bool) {
	fmt.Printf("golox %s\n", version)
	fmt.Println("Type an empty line to exit.")

	rl, err := readline.New("golox> ")
	if err != nil {
		fmt.Println("Error starting REPL:", err)
		return
	}
	defer rl.Close()

	v := freshVM(gcStress)

	var pending strings.Builder
	for {
		prompt := "golox> "
		if pending.Len() > 0 {
			prompt = "   ... "
		}
		rl.SetPrompt(prompt)

		line, err := rl.Readline()
		if err != nil {
			return
		}

		if pending.Len() == 0 && strings.TrimSpace(line) == "" {
			return
		}

		if strings.HasSuffix(line, "\\") {
			pending.WriteString(strings.TrimSuffix(line, "\\"))
			pending.WriteString("\n")
			continue
		}

		pending.WriteString(line)
		source := pending.String()
		pending.Reset()

		if strings.TrimSpace(source) == "" {
			continue
		}
		interpretAndReport(v, source)
	}
}
