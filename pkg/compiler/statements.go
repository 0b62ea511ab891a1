package compiler

import (
	"github.com/mprimi/golox/pkg/bytecode"
	"github.com/mprimi/golox/pkg/lexer"
	"github.com/mprimi/golox/pkg/value"
)

var statementStarters = map[lexer.TokenKind]bool{
	lexer.CLASS: true, lexer.FUN: true, lexer.VAR: true, lexer.FOR: true,
	lexer.IF: true, lexer.WHILE: true, lexer.PRINT: true, lexer.RETURN: true,
	lexer.MATCH: true,
}

// checkSoftKeyword reports whether the current token is a plain
// identifier spelled exactly like a soft keyword, without consuming it.
// `delete` is recognized this way rather than as a new TokenKind so the
// scanner's token set stays exactly what it already is.
func (c *compiling) checkSoftKeyword(lexeme string) bool {
	return c.p.current.Kind == lexer.IDENTIFIER && c.p.current.Lexeme == lexeme
}

func (c *compiling) synchronize() {
	c.p.panicMode = false
	for c.p.current.Kind != lexer.EOF {
		if c.p.previous.Kind == lexer.SEMICOLON {
			return
		}
		if statementStarters[c.p.current.Kind] {
			return
		}
		c.advance()
	}
}

func (c *compiling) declaration() {
	switch {
	case c.match(lexer.CLASS):
		c.classDeclaration()
	case c.match(lexer.FUN):
		c.funDeclaration()
	case c.match(lexer.VAR):
		c.varDeclaration(AccessVar)
	case c.match(lexer.FIX):
		c.varDeclaration(AccessFix)
	default:
		c.statement()
	}
	if c.p.panicMode {
		c.synchronize()
	}
}

func (c *compiling) statement() {
	switch {
	case c.match(lexer.PRINT):
		c.printStatement()
	case c.match(lexer.IF):
		c.ifStatement()
	case c.match(lexer.WHILE):
		c.whileStatement()
	case c.match(lexer.FOR):
		c.forStatement()
	case c.match(lexer.MATCH):
		c.matchStatement()
	case c.match(lexer.RETURN):
		c.returnStatement()
	case c.match(lexer.BREAK):
		c.breakStatement()
	case c.match(lexer.CONTINUE):
		c.continueStatement()
	case c.match(lexer.LEFT_BRACE):
		c.beginScope()
		c.block()
		c.endScope()
	case c.checkSoftKeyword("delete"):
		c.advance()
		c.deleteStatement()
	default:
		c.expressionStatement()
	}
}

func (c *compiling) block() {
	for !c.check(lexer.RIGHT_BRACE) && !c.check(lexer.EOF) {
		c.declaration()
	}
	c.consume(lexer.RIGHT_BRACE, "Expect '}' after block.")
}

func (c *compiling) expressionStatement() {
	c.expression()
	c.consume(lexer.SEMICOLON, "Expect ';' after expression.")
	c.emitOp(bytecode.OpPop)
}

func (c *compiling) printStatement() {
	c.expression()
	c.consume(lexer.SEMICOLON, "Expect ';' after value.")
	c.emitOp(bytecode.OpPrint)
}

func (c *compiling) varDeclaration(kind AccessKind) {
	c.consume(lexer.IDENTIFIER, "Expect variable name.")
	name := c.p.previous.Lexeme

	var globalIdx int
	isGlobal := c.cs.scopeDepth == 0
	if isGlobal {
		globalIdx = c.globalIndex(name)
	} else {
		c.declareLocal(name, kind)
	}

	if c.match(lexer.EQUAL) {
		c.expression()
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.consume(lexer.SEMICOLON, "Expect ';' after variable declaration.")

	if isGlobal {
		c.declareGlobalKind(globalIdx, kind)
		c.emitOp(bytecode.OpDefineGlobal)
		c.chunk().WriteVariable(globalIdx, c.p.previous.Line)
	} else {
		c.markInitialized()
	}
}

func (c *compiling) ifStatement() {
	c.consume(lexer.LEFT_PAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(lexer.RIGHT_PAREN, "Expect ')' after condition.")

	thenJump := c.chunk().EmitJump(bytecode.OpJumpIfFalse, c.p.previous.Line)
	c.emitOp(bytecode.OpPop)
	c.statement()
	elseJump := c.chunk().EmitJump(bytecode.OpJump, c.p.previous.Line)

	c.patchJump(thenJump)
	c.emitOp(bytecode.OpPop)
	if c.match(lexer.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *compiling) whileStatement() {
	loopStart := len(c.chunk().Code)
	loop := &loopState{enclosing: c.cs.loop, loopStart: loopStart, scopeDepth: c.cs.scopeDepth}
	c.cs.loop = loop

	c.consume(lexer.LEFT_PAREN, "Expect '(' after 'while'.")
	c.expression()
	c.consume(lexer.RIGHT_PAREN, "Expect ')' after condition.")

	exitJump := c.chunk().EmitJump(bytecode.OpJumpIfFalse, c.p.previous.Line)
	c.emitOp(bytecode.OpPop)
	c.statement()
	c.patchContinue(loop)
	if err := c.chunk().EmitLoop(loopStart, c.p.previous.Line); err != nil {
		c.error(err.Error())
	}

	c.patchJump(exitJump)
	c.emitOp(bytecode.OpPop)
	c.patchBreaks(loop)
	c.cs.loop = loop.enclosing
}

func (c *compiling) forStatement() {
	c.beginScope()
	c.consume(lexer.LEFT_PAREN, "Expect '(' after 'for'.")

	switch {
	case c.match(lexer.SEMICOLON):
	case c.match(lexer.VAR):
		c.varDeclaration(AccessVar)
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	loop := &loopState{enclosing: c.cs.loop, loopStart: loopStart, scopeDepth: c.cs.scopeDepth}
	c.cs.loop = loop

	exitJump := -1
	if !c.match(lexer.SEMICOLON) {
		c.expression()
		c.consume(lexer.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.chunk().EmitJump(bytecode.OpJumpIfFalse, c.p.previous.Line)
		c.emitOp(bytecode.OpPop)
	}

	if !c.match(lexer.RIGHT_PAREN) {
		bodyJump := c.chunk().EmitJump(bytecode.OpJump, c.p.previous.Line)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(bytecode.OpPop)
		c.consume(lexer.RIGHT_PAREN, "Expect ')' after for clauses.")

		if err := c.chunk().EmitLoop(loopStart, c.p.previous.Line); err != nil {
			c.error(err.Error())
		}
		loopStart = incrementStart
		loop.loopStart = loopStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.patchContinue(loop)
	if err := c.chunk().EmitLoop(loopStart, c.p.previous.Line); err != nil {
		c.error(err.Error())
	}

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(bytecode.OpPop)
	}
	c.patchBreaks(loop)
	c.cs.loop = loop.enclosing
	c.endScope()
}

func (c *compiling) patchBreaks(loop *loopState) {
	for _, j := range loop.breakJumps {
		c.patchJump(j)
	}
}

// patchContinue patches the single pending continue jump, if any, to land
// here (just before the loop's increment/back-edge).
func (c *compiling) patchContinue(loop *loopState) {
	if loop.continueJump != 0 {
		c.patchJump(loop.continueJump)
		loop.continueJump = 0
	}
}

// discardLoopLocals emits a pop (or close-upvalue) for every local declared
// since the loop body started, without trimming cs.locals itself: break and
// continue both jump clean past the body's own endScope, so whichever of
// them fires has to retire those runtime slots itself, while the compiler
// still expects endScope to retire them from its own bookkeeping once
// control falls through normally.
func (c *compiling) discardLoopLocals(loop *loopState) {
	for i := len(c.cs.locals) - 1; i >= 0 && c.cs.locals[i].depth > loop.scopeDepth; i-- {
		if c.cs.locals[i].isCaptured {
			c.emitOp(bytecode.OpCloseUpvalue)
		} else {
			c.emitOp(bytecode.OpPop)
		}
	}
}

func (c *compiling) breakStatement() {
	if c.cs.loop == nil {
		c.error("Can't use 'break' outside of a loop.")
		return
	}
	c.consume(lexer.SEMICOLON, "Expect ';' after 'break'.")
	c.discardLoopLocals(c.cs.loop)
	j := c.chunk().EmitJump(bytecode.OpJump, c.p.previous.Line)
	c.cs.loop.breakJumps = append(c.cs.loop.breakJumps, j)
}

func (c *compiling) continueStatement() {
	if c.cs.loop == nil {
		c.error("Can't use 'continue' outside of a loop.")
		return
	}
	c.consume(lexer.SEMICOLON, "Expect ';' after 'continue'.")
	c.discardLoopLocals(c.cs.loop)
	j := c.chunk().EmitJump(bytecode.OpJump, c.p.previous.Line)
	c.cs.loop.continueJump = j
}

// deleteStatement compiles `delete target.field.chain;`. The target is
// parsed as a bare primary (no call/dot infix), then every dot segment
// but the last is compiled as a GET_PROPERTY to walk the chain; the final
// segment emits DEL_PROPERTY.
func (c *compiling) deleteStatement() {
	c.parsePrecedence(precPrimary)
	c.consume(lexer.DOT, "Expect '.' after delete target.")
	for {
		c.consume(lexer.IDENTIFIER, "Expect field name.")
		name := c.internString(c.p.previous.Lexeme)
		idx := c.makeConstant(value.FromObj(name))
		if c.match(lexer.DOT) {
			c.emitOp(bytecode.OpGetProperty)
			c.chunk().WriteVariable(idx, c.p.previous.Line)
			continue
		}
		c.emitOp(bytecode.OpDelProperty)
		c.chunk().WriteVariable(idx, c.p.previous.Line)
		break
	}
	c.consume(lexer.SEMICOLON, "Expect ';' after delete statement.")
}

// matchStatement compiles `match (subject) { is expr: stmt ... ?: stmt }`.
// Each case duplicates the subject and compares with EQUAL (which consumes
// the duplicate); on a match it pops both the comparison result and the
// subject (POPN 2) before running its body; on a miss only the EQUAL
// result is popped, since the subject must stay live for the remaining
// cases.
func (c *compiling) matchStatement() {
	c.consume(lexer.LEFT_PAREN, "Expect '(' after 'match'.")
	c.expression()
	c.consume(lexer.RIGHT_PAREN, "Expect ')' after match subject.")
	c.consume(lexer.LEFT_BRACE, "Expect '{' before match body.")

	var endJumps []int
	caseCount := 0
	sawDefault := false
	for !c.check(lexer.RIGHT_BRACE) && !c.check(lexer.EOF) {
		if sawDefault {
			c.error("Default case must be the last case in a match.")
		}
		if c.match(lexer.Q_MARK) {
			c.consume(lexer.COLON, "Expect ':' after '?' default case.")
			sawDefault = true
			c.emitOp(bytecode.OpPop) // drop subject
			c.matchCaseBody()
			endJumps = append(endJumps, c.chunk().EmitJump(bytecode.OpJump, c.p.previous.Line))
			continue
		}
		c.consume(lexer.IS, "Expect 'is' or '?' to start a match case.")
		if caseCount >= 100 {
			c.error("Too many cases in match.")
		}
		caseCount++
		c.emitOp(bytecode.OpDup)
		c.expression()
		c.consume(lexer.COLON, "Expect ':' after case expression.")
		c.emitOp(bytecode.OpEqual)
		nextCase := c.chunk().EmitJump(bytecode.OpJumpIfFalse, c.p.previous.Line)
		c.emitByte(byte(bytecode.OpPopN))
		c.emitByte(2)
		c.matchCaseBody()
		endJumps = append(endJumps, c.chunk().EmitJump(bytecode.OpJump, c.p.previous.Line))
		c.patchJump(nextCase)
		c.emitOp(bytecode.OpPop) // miss: drop the EQUAL result, keep the subject
	}
	if !sawDefault {
		c.emitOp(bytecode.OpPop) // no case matched: drop subject
	}
	for _, j := range endJumps {
		c.patchJump(j)
	}
	c.consume(lexer.RIGHT_BRACE, "Expect '}' after match body.")
}

// matchCaseBody compiles exactly one statement as a case body, without
// requiring braces; a case that runs several statements needs a block.
func (c *compiling) matchCaseBody() {
	c.statement()
}

func (c *compiling) returnStatement() {
	if c.cs.typ == typeScript {
		c.error("Can't return from top-level code.")
	}
	if c.match(lexer.SEMICOLON) {
		c.emitReturn()
		return
	}
	if c.cs.typ == typeMethod && c.cs.function.Name != nil && c.cs.function.Name.Chars == "init" {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(lexer.SEMICOLON, "Expect ';' after return value.")
	c.emitOp(bytecode.OpReturn)
}

// --- functions & classes ---

func (c *compiling) funDeclaration() {
	c.consume(lexer.IDENTIFIER, "Expect function name.")
	name := c.p.previous.Lexeme
	var globalIdx int
	isGlobal := c.cs.scopeDepth == 0
	if isGlobal {
		globalIdx = c.globalIndex(name)
		c.declareGlobalKind(globalIdx, AccessVar)
	} else {
		c.declareLocal(name, AccessVar)
		c.markInitialized()
	}

	c.function(typeFunction, name)

	if isGlobal {
		c.emitOp(bytecode.OpDefineGlobal)
		c.chunk().WriteVariable(globalIdx, c.p.previous.Line)
	}
}

func (c *compiling) function(typ functionType, name string) {
	enclosing := c.cs
	c.cs = newCompilerState(enclosing, typ, name, c.p.track)
	if typ == typeMethod {
		c.cs.locals[0].name = "this"
	}

	c.beginScope()
	c.consume(lexer.LEFT_PAREN, "Expect '(' after function name.")
	if !c.check(lexer.RIGHT_PAREN) {
		for {
			c.cs.function.Arity++
			if c.cs.function.Arity > 255 {
				c.error("Can't have more than 255 parameters.")
			}
			c.consume(lexer.IDENTIFIER, "Expect parameter name.")
			c.declareLocal(c.p.previous.Lexeme, AccessVar)
			c.markInitialized()
			if !c.match(lexer.COMMA) {
				break
			}
		}
	}
	c.consume(lexer.RIGHT_PAREN, "Expect ')' after parameters.")
	c.consume(lexer.LEFT_BRACE, "Expect '{' before function body.")
	c.block()

	fn := c.endCompiler()
	upvalues := c.cs.upvalues
	c.cs = enclosing

	// CLOSURE always takes a 3-byte constant index (unlike CONSTANT, it has
	// no SHORT variant) followed by one (isLocal, index) byte pair per
	// upvalue, so the VM can populate the new Closure's upvalue array at
	// run time.
	idx := c.makeConstant(value.FromObj(fn))
	c.emitOp(bytecode.OpClosure)
	c.emitByte(byte(idx >> 16))
	c.emitByte(byte(idx >> 8))
	c.emitByte(byte(idx))
	for _, u := range upvalues {
		if u.isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(byte(u.index))
	}
}

func (c *compiling) classDeclaration() {
	c.consume(lexer.IDENTIFIER, "Expect class name.")
	name := c.p.previous.Lexeme
	nameStr := c.internString(name)
	nameIdx := c.makeConstant(value.FromObj(nameStr))

	isGlobal := c.cs.scopeDepth == 0
	var globalIdx int
	if isGlobal {
		globalIdx = c.globalIndex(name)
		c.declareGlobalKind(globalIdx, AccessVar)
	} else {
		c.declareLocal(name, AccessVar)
		c.markInitialized()
	}

	c.emitOp(bytecode.OpClass)
	c.chunk().WriteVariable(nameIdx, c.p.previous.Line)

	if isGlobal {
		c.emitOp(bytecode.OpDefineGlobal)
		c.chunk().WriteVariable(globalIdx, c.p.previous.Line)
		c.emitOp(bytecode.OpGetGlobal)
		c.chunk().WriteVariable(globalIdx, c.p.previous.Line)
	} else {
		c.emitOp(bytecode.OpGetLocal)
		c.chunk().WriteVariable(len(c.cs.locals)-1, c.p.previous.Line)
	}

	c.consume(lexer.LEFT_BRACE, "Expect '{' before class body.")
	for !c.check(lexer.RIGHT_BRACE) && !c.check(lexer.EOF) {
		c.method()
	}
	c.consume(lexer.RIGHT_BRACE, "Expect '}' after class body.")
	c.emitOp(bytecode.OpPop) // drop the class reference pushed above
}

func (c *compiling) method() {
	c.consume(lexer.IDENTIFIER, "Expect method name.")
	name := c.p.previous.Lexeme
	nameStr := c.internString(name)
	nameIdx := c.makeConstant(value.FromObj(nameStr))

	c.function(typeMethod, name)

	c.emitOp(bytecode.OpMethod)
	c.chunk().WriteVariable(nameIdx, c.p.previous.Line)
}
