// Package compiler implements a single-pass Pratt parser that emits
// byte-code directly to a Chunk as it recognizes the grammar — there is no
// intermediate syntax tree. Scope resolution, upvalue capture, and
// control-flow jump patching all happen inline with parsing.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/mprimi/golox/pkg/bytecode"
	"github.com/mprimi/golox/pkg/lexer"
	"github.com/mprimi/golox/pkg/object"
	"github.com/mprimi/golox/pkg/value"
)

// Precedence levels, low to high.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precConditional
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type AccessKind int

const (
	AccessVar AccessKind = iota
	AccessFix
)

// parser holds the two-token lookahead and error-recovery state shared by
// the whole compile, independent of which function is currently being
// compiled.
type parser struct {
	lex        *lexer.Lexer
	current    lexer.Token
	previous   lexer.Token
	hadError   bool
	panicMode  bool
	errs       []string
	strings    *value.Table
	globalName *value.Table // name -> index
	globalVals *[]value.Value
	globalKind *[]AccessKind
	track      object.AllocTracker
}

type local struct {
	name       string
	depth      int
	isCaptured bool
	kind       AccessKind
}

type upvalueDesc struct {
	index   int
	isLocal bool
}

type functionType int

const (
	typeFunction functionType = iota
	typeScript
	typeMethod
)

// loopState tracks the innermost loop's break/continue patch points and
// the stack depth to restore to, so break/continue can unwind locals
// correctly.
type loopState struct {
	enclosing    *loopState
	loopStart    int
	scopeDepth   int
	breakJumps   []int
	continueJump int
}

// compilerState is one nested Compiler record: one per function body
// being compiled, chained through enclosing.
type compilerState struct {
	enclosing   *compilerState
	function    *object.Function
	typ         functionType
	locals      []local
	upvalues    []upvalueDesc
	scopeDepth  int
	loop        *loopState
}

func newCompilerState(enclosing *compilerState, typ functionType, name string, track object.AllocTracker) *compilerState {
	fn := object.NewFunction()
	if track != nil {
		track(fn, 64)
	}
	if name != "" {
		fn.Name = object.NewString(name)
		if track != nil {
			track(fn.Name, int64(24+len(name)))
		}
	}
	cs := &compilerState{enclosing: enclosing, function: fn, typ: typ}
	// Slot 0 is reserved: for methods it will hold the receiver, for plain
	// functions the callee itself (empty name either way).
	cs.locals = append(cs.locals, local{name: "", depth: 0, kind: AccessVar})
	return cs
}

// Compile compiles source into the implicit top-level script Function, or
// returns the accumulated error messages on failure. track is invoked for
// every String/Function allocated while compiling (names, constants,
// nested function bodies) so a VM running the result can account and
// eventually collect them; pass nil for offline tools that just print a
// disassembly and never run a collector.
func Compile(source string, strings *value.Table, globalName *value.Table, globalVals *[]value.Value, globalKind *[]AccessKind, track object.AllocTracker) (*object.Function, []string) {
	p := &parser{
		lex:        lexer.New(source),
		strings:    strings,
		globalName: globalName,
		globalVals: globalVals,
		globalKind: globalKind,
		track:      track,
	}
	cs := newCompilerState(nil, typeScript, "", track)
	c := &compiling{p: p, cs: cs}
	c.advance()
	for !c.match(lexer.EOF) {
		c.declaration()
	}
	fn := c.endCompiler()
	if p.hadError {
		return nil, p.errs
	}
	return fn, nil
}

// compiling bundles the shared parser with the function-nesting state
// currently being emitted into; methods on it correspond 1:1 to grammar
// productions.
type compiling struct {
	p  *parser
	cs *compilerState
}

func (c *compiling) chunk() *bytecode.Chunk { return c.cs.function.Chunk }

func (c *compiling) advance() {
	c.p.previous = c.p.current
	for {
		c.p.current = c.p.lex.Next()
		if c.p.current.Kind != lexer.ERROR {
			break
		}
		c.errorAtCurrent(c.p.current.Lexeme)
	}
}

func (c *compiling) check(k lexer.TokenKind) bool { return c.p.current.Kind == k }

func (c *compiling) match(k lexer.TokenKind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *compiling) consume(k lexer.TokenKind, msg string) {
	if c.p.current.Kind == k {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *compiling) errorAtCurrent(msg string) { c.errorAt(c.p.current, msg) }
func (c *compiling) error(msg string)          { c.errorAt(c.p.previous, msg) }

func (c *compiling) errorAt(tok lexer.Token, msg string) {
	if c.p.panicMode {
		return
	}
	c.p.panicMode = true
	where := fmt.Sprintf("[line %d] Error", tok.Line)
	if tok.Kind == lexer.EOF {
		where += " at end"
	} else if tok.Kind != lexer.ERROR {
		where += fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	c.p.errs = append(c.p.errs, fmt.Sprintf("%s: %s", where, msg))
	c.p.hadError = true
}

func (c *compiling) emitByte(b byte) { c.chunk().Write(b, c.p.previous.Line) }
func (c *compiling) emitOp(op bytecode.Op) { c.chunk().WriteOp(op, c.p.previous.Line) }

func (c *compiling) emitReturn() {
	if c.cs.typ == typeMethod && c.cs.function.Name != nil && c.cs.function.Name.Chars == "init" {
		c.emitOp(bytecode.OpGetLocal)
		c.chunk().WriteVariable(0, c.p.previous.Line)
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.emitOp(bytecode.OpReturn)
}

func (c *compiling) endCompiler() *object.Function {
	c.emitReturn()
	fn := c.cs.function
	fn.UpvalueCount = len(c.cs.upvalues)
	return fn
}

// --- scopes ---

func (c *compiling) beginScope() { c.cs.scopeDepth++ }

func (c *compiling) endScope() {
	c.cs.scopeDepth--
	for len(c.cs.locals) > 0 && c.cs.locals[len(c.cs.locals)-1].depth > c.cs.scopeDepth {
		last := c.cs.locals[len(c.cs.locals)-1]
		if last.isCaptured {
			c.emitOp(bytecode.OpCloseUpvalue)
		} else {
			c.emitOp(bytecode.OpPop)
		}
		c.cs.locals = c.cs.locals[:len(c.cs.locals)-1]
	}
}

// --- constants & numbers ---

func (c *compiling) internString(s string) *object.String {
	return object.Intern(c.p.strings, s, c.p.track)
}

func (c *compiling) makeConstant(v value.Value) int {
	return c.chunk().AddConstant(v)
}

func (c *compiling) emitConstant(v value.Value) {
	c.chunk().WriteConstant(v, c.p.previous.Line)
}

func parseNumber(lexeme string) float64 {
	n, _ := strconv.ParseFloat(lexeme, 64)
	return n
}
