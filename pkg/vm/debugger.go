// Package vm - debugger support
package vm

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/mprimi/golox/pkg/bytecode"
	"github.com/mprimi/golox/pkg/object"
)

// Debugger is an in-process breakpoint/step aid, not a wire protocol: it
// drives the same *VM through its existing frame stack and value stack,
// pausing the dispatch loop between instructions rather than standing up
// a separate server.
type Debugger struct {
	vm          *VM          // The VM being debugged
	breakpoints map[int]bool // Chunk offsets where execution should pause
	stepMode    bool         // If true, pause after each instruction
	enabled     bool         // If true, the debugger is active
}

// NewDebugger creates a new debugger instance.
func NewDebugger(vm *VM) *Debugger {
	return &Debugger{
		vm:          vm,
		breakpoints: make(map[int]bool),
	}
}

// Enable activates the debugger.
func (d *Debugger) Enable() { d.enabled = true }

// Disable deactivates the debugger.
func (d *Debugger) Disable() { d.enabled = false }

// SetStepMode enables or disables step mode. In step mode, execution
// pauses before each instruction.
func (d *Debugger) SetStepMode(enabled bool) { d.stepMode = enabled }

// AddBreakpoint adds a breakpoint at the given chunk offset.
func (d *Debugger) AddBreakpoint(ip int) { d.breakpoints[ip] = true }

// RemoveBreakpoint removes a breakpoint at the given chunk offset.
func (d *Debugger) RemoveBreakpoint(ip int) { delete(d.breakpoints, ip) }

// ClearBreakpoints removes all breakpoints.
func (d *Debugger) ClearBreakpoints() { d.breakpoints = make(map[int]bool) }

// ShouldPause reports whether execution should pause before the
// instruction at ip in the currently running frame.
func (d *Debugger) ShouldPause(ip int) bool {
	if !d.enabled {
		return false
	}
	return d.stepMode || d.breakpoints[ip]
}

// ShowCurrentInstruction disassembles and prints the instruction about to
// execute in chunk at ip.
func (d *Debugger) ShowCurrentInstruction(chunk *bytecode.Chunk, ip int) {
	if ip >= len(chunk.Code) {
		fmt.Println("No current instruction")
		return
	}
	var sb strings.Builder
	bytecode.DisassembleInstructionAt(&sb, chunk, ip)
	fmt.Printf("  %s", sb.String())
}

// ShowStack displays the current VM value stack, top first.
func (d *Debugger) ShowStack() {
	fmt.Println("Stack (top to bottom):")
	if d.vm.stackTop == 0 {
		fmt.Println("  (empty)")
		return
	}
	for i := d.vm.stackTop - 1; i >= 0; i-- {
		fmt.Printf("  [%d] %s\n", i, object.Display(d.vm.stack[i]))
	}
}

// ShowLocals displays the local slots of the frame currently executing.
func (d *Debugger) ShowLocals(f *frame) {
	fmt.Println("Local variables:")
	if f == nil || d.vm.stackTop <= f.slots+1 {
		fmt.Println("  (none set)")
		return
	}
	for i := f.slots + 1; i < d.vm.stackTop; i++ {
		fmt.Printf("  [%d] %s\n", i-f.slots, object.Display(d.vm.stack[i]))
	}
}

// ShowGlobals displays every defined global and its current value.
func (d *Debugger) ShowGlobals() {
	fmt.Println("Global variables:")
	if len(d.vm.globalValues) == 0 {
		fmt.Println("  (none)")
		return
	}
	for i, v := range d.vm.globalValues {
		if v.IsUndefined() {
			continue
		}
		fmt.Printf("  #%d = %s\n", i, object.Display(v))
	}
}

// ShowCallStack displays the active call frames, innermost first.
func (d *Debugger) ShowCallStack() {
	fmt.Println("Call stack (top to bottom):")
	if d.vm.frameCount == 0 {
		fmt.Println("  (empty)")
		return
	}
	for i := d.vm.frameCount - 1; i >= 0; i-- {
		f := &d.vm.frames[i]
		name := "script"
		if f.closure.Function.Name != nil {
			name = f.closure.Function.Name.Chars + "()"
		}
		fmt.Printf("  %s [ip=%d line=%d]\n", name, f.ip, f.closure.Function.Chunk.LineFor(f.ip))
	}
}

// ShowValue prints a full structural dump of a stack slot, for inspecting
// heap objects (closures, instances, upvalue chains) beyond what Display
// summarizes.
func (d *Debugger) ShowValue(slot int) {
	if slot < 0 || slot >= d.vm.stackTop {
		fmt.Println("No such stack slot")
		return
	}
	spew.Dump(d.vm.stack[slot])
}

// InteractivePrompt is called when execution pauses at a breakpoint or in
// step mode; it blocks on stdin until a command resumes or aborts
// execution.
func (d *Debugger) InteractivePrompt(chunk *bytecode.Chunk, f *frame) (resume bool) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("\n=== Debugger Paused ===")
	d.ShowCurrentInstruction(chunk, f.ip)

	for {
		fmt.Print("debug> ")
		if !scanner.Scan() {
			return false
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		command := parts[0]

		switch command {
		case "help", "h", "?":
			d.printHelp()

		case "continue", "c":
			d.SetStepMode(false)
			return true

		case "step", "s", "next", "n":
			d.SetStepMode(true)
			return true

		case "stack", "st":
			d.ShowStack()

		case "locals", "l":
			d.ShowLocals(f)

		case "globals", "g":
			d.ShowGlobals()

		case "callstack", "cs":
			d.ShowCallStack()

		case "instruction", "i":
			d.ShowCurrentInstruction(chunk, f.ip)

		case "dump":
			if len(parts) < 2 {
				fmt.Println("Usage: dump <stack_slot>")
				continue
			}
			slot, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Invalid stack slot")
				continue
			}
			d.ShowValue(slot)

		case "breakpoint", "b":
			if len(parts) < 2 {
				fmt.Println("Usage: breakpoint <offset>")
				continue
			}
			ip, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Invalid offset")
				continue
			}
			d.AddBreakpoint(ip)
			fmt.Printf("Breakpoint added at offset %d\n", ip)

		case "delete", "d":
			if len(parts) < 2 {
				fmt.Println("Usage: delete <offset>")
				continue
			}
			ip, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Invalid offset")
				continue
			}
			d.RemoveBreakpoint(ip)
			fmt.Printf("Breakpoint removed at offset %d\n", ip)

		case "list", "ls":
			bytecode.Disassemble(os.Stdout, chunk, "chunk")

		case "quit", "q":
			return false

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", command)
		}
	}
}

// printHelp displays available debugger commands.
func (d *Debugger) printHelp() {
	fmt.Println("Debugger Commands:")
	fmt.Println("  help, h, ?           Show this help")
	fmt.Println("  continue, c          Continue execution")
	fmt.Println("  step, s, next, n     Execute one instruction and pause again")
	fmt.Println("  stack, st            Show VM value stack")
	fmt.Println("  locals, l            Show local variables of the current frame")
	fmt.Println("  globals, g           Show global variables")
	fmt.Println("  callstack, cs        Show call stack")
	fmt.Println("  instruction, i       Show current instruction")
	fmt.Println("  dump <slot>          Structurally dump a stack slot's object graph")
	fmt.Println("  breakpoint <n>, b    Add breakpoint at chunk offset n")
	fmt.Println("  delete <n>, d        Remove breakpoint at chunk offset n")
	fmt.Println("  list, ls             Disassemble the whole chunk")
	fmt.Println("  quit, q              Quit debugging (abort execution)")
}
