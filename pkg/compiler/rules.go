package compiler

import (
	"github.com/mprimi/golox/pkg/bytecode"
	"github.com/mprimi/golox/pkg/lexer"
	"github.com/mprimi/golox/pkg/value"
)

type parseFn func(c *compiling, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[lexer.TokenKind]parseRule

func init() {
	rules = map[lexer.TokenKind]parseRule{
		lexer.LEFT_PAREN:    {grouping, call, precCall},
		lexer.DOT:           {nil, dot, precCall},
		lexer.MINUS:         {unary, binary, precTerm},
		lexer.PLUS:          {nil, binary, precTerm},
		lexer.SLASH:         {nil, binary, precFactor},
		lexer.STAR:          {nil, binary, precFactor},
		lexer.BANG:          {unary, nil, precNone},
		lexer.BANG_EQUAL:    {nil, binary, precEquality},
		lexer.EQUAL_EQUAL:   {nil, binary, precEquality},
		lexer.GREATER:       {nil, binary, precComparison},
		lexer.GREATER_EQUAL: {nil, binary, precComparison},
		lexer.LESS:          {nil, binary, precComparison},
		lexer.LESS_EQUAL:    {nil, binary, precComparison},
		lexer.Q_MARK:        {nil, ternary, precConditional},
		lexer.IDENTIFIER:    {variable, nil, precNone},
		lexer.STRING:        {stringLiteral, nil, precNone},
		lexer.NUMBER:        {number, nil, precNone},
		lexer.AND:           {nil, and, precAnd},
		lexer.OR:            {nil, or, precOr},
		lexer.FALSE:         {literal, nil, precNone},
		lexer.TRUE:          {literal, nil, precNone},
		lexer.NIL:           {literal, nil, precNone},
		lexer.THIS:          {this, nil, precNone},
		lexer.SUPER:         {super, nil, precNone},
	}
}

func (c *compiling) getRule(k lexer.TokenKind) parseRule {
	if r, ok := rules[k]; ok {
		return r
	}
	return parseRule{}
}

func (c *compiling) parsePrecedence(p precedence) {
	c.advance()
	rule := c.getRule(c.p.previous.Kind)
	if rule.prefix == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := p <= precAssignment
	rule.prefix(c, canAssign)

	for p <= c.getRule(c.p.current.Kind).precedence {
		c.advance()
		infix := c.getRule(c.p.previous.Kind).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(lexer.EQUAL) {
		c.error("Invalid assignment target.")
	}
}

func (c *compiling) expression() { c.parsePrecedence(precAssignment) }

func number(c *compiling, _ bool) {
	n := parseNumber(c.p.previous.Lexeme)
	switch n {
	case 0:
		c.emitOp(bytecode.OpZero)
	case 1:
		c.emitOp(bytecode.OpOne)
	case 2:
		c.emitOp(bytecode.OpTwo)
	case -1:
		c.emitOp(bytecode.OpMinusOne)
	default:
		c.emitConstant(value.Number(n))
	}
}

func stringLiteral(c *compiling, _ bool) {
	lex := c.p.previous.Lexeme
	raw := lex[1 : len(lex)-1]
	s := c.internString(raw)
	c.emitConstant(value.FromObj(s))
}

func literal(c *compiling, _ bool) {
	switch c.p.previous.Kind {
	case lexer.FALSE:
		c.emitOp(bytecode.OpFalse)
	case lexer.TRUE:
		c.emitOp(bytecode.OpTrue)
	case lexer.NIL:
		c.emitOp(bytecode.OpNil)
	}
}

func grouping(c *compiling, _ bool) {
	c.expression()
	c.consume(lexer.RIGHT_PAREN, "Expect ')' after expression.")
}

func unary(c *compiling, _ bool) {
	opKind := c.p.previous.Kind
	c.parsePrecedence(precUnary)
	switch opKind {
	case lexer.MINUS:
		c.emitOp(bytecode.OpNegate)
	case lexer.BANG:
		c.emitOp(bytecode.OpNot)
	}
}

func binary(c *compiling, _ bool) {
	opKind := c.p.previous.Kind
	rule := c.getRule(opKind)
	c.parsePrecedence(rule.precedence + 1)
	switch opKind {
	case lexer.PLUS:
		c.emitOp(bytecode.OpAdd)
	case lexer.MINUS:
		c.emitOp(bytecode.OpSubtract)
	case lexer.STAR:
		c.emitOp(bytecode.OpMultiply)
	case lexer.SLASH:
		c.emitOp(bytecode.OpDivide)
	case lexer.BANG_EQUAL:
		c.emitOp(bytecode.OpEqual)
		c.emitOp(bytecode.OpNot)
	case lexer.EQUAL_EQUAL:
		c.emitOp(bytecode.OpEqual)
	case lexer.GREATER:
		c.emitOp(bytecode.OpGreater)
	case lexer.GREATER_EQUAL:
		c.emitOp(bytecode.OpLess)
		c.emitOp(bytecode.OpNot)
	case lexer.LESS:
		c.emitOp(bytecode.OpLess)
	case lexer.LESS_EQUAL:
		c.emitOp(bytecode.OpGreater)
		c.emitOp(bytecode.OpNot)
	}
}

// ternary compiles the `?:` conditional infix operator at precConditional:
// the condition was already compiled by the caller.
func ternary(c *compiling, _ bool) {
	thenJump := c.chunk().EmitJump(bytecode.OpJumpIfFalse, c.p.previous.Line)
	c.emitOp(bytecode.OpPop)
	c.expression()
	c.consume(lexer.COLON, "Expect ':' in ternary expression.")
	elseJump := c.chunk().EmitJump(bytecode.OpJump, c.p.previous.Line)
	c.patchJump(thenJump)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precConditional)
	c.patchJump(elseJump)
}

func and(c *compiling, _ bool) {
	endJump := c.chunk().EmitJump(bytecode.OpJumpIfFalse, c.p.previous.Line)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func or(c *compiling, _ bool) {
	elseJump := c.chunk().EmitJump(bytecode.OpJumpIfFalse, c.p.previous.Line)
	endJump := c.chunk().EmitJump(bytecode.OpJump, c.p.previous.Line)
	c.patchJump(elseJump)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *compiling) patchJump(offset int) {
	if err := c.chunk().PatchJump(offset); err != nil {
		c.error(err.Error())
	}
}

func call(c *compiling, _ bool) {
	argc := c.argumentList()
	c.emitOp(bytecode.OpCall)
	c.emitByte(byte(argc))
}

func (c *compiling) argumentList() int {
	argc := 0
	if !c.check(lexer.RIGHT_PAREN) {
		for {
			c.expression()
			if argc == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			argc++
			if !c.match(lexer.COMMA) {
				break
			}
		}
	}
	c.consume(lexer.RIGHT_PAREN, "Expect ')' after arguments.")
	return argc
}

func dot(c *compiling, canAssign bool) {
	c.consume(lexer.IDENTIFIER, "Expect property name after '.'.")
	name := c.internString(c.p.previous.Lexeme)
	nameIdx := c.makeConstant(value.FromObj(name))

	if canAssign && c.match(lexer.EQUAL) {
		c.expression()
		c.emitOp(bytecode.OpSetProperty)
		c.chunk().WriteVariable(nameIdx, c.p.previous.Line)
	} else if c.match(lexer.LEFT_PAREN) {
		argc := c.argumentList()
		c.emitOp(bytecode.OpInvoke)
		c.chunk().WriteVariable(nameIdx, c.p.previous.Line)
		c.emitByte(byte(argc))
	} else {
		c.emitOp(bytecode.OpGetProperty)
		c.chunk().WriteVariable(nameIdx, c.p.previous.Line)
	}
}

func this(c *compiling, _ bool) {
	if c.cs.typ != typeMethod {
		c.error("Can't use 'this' outside of a method.")
		return
	}
	variableNamed(c, "this", false)
}

func super(c *compiling, _ bool) {
	c.error("This dialect does not support superclasses.")
	c.consume(lexer.DOT, "Expect '.' after 'super'.")
	c.consume(lexer.IDENTIFIER, "Expect superclass method name.")
}
