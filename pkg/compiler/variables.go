package compiler

import (
	"github.com/mprimi/golox/pkg/bytecode"
	"github.com/mprimi/golox/pkg/lexer"
	"github.com/mprimi/golox/pkg/value"
)

func variable(c *compiling, canAssign bool) {
	variableNamed(c, c.p.previous.Lexeme, canAssign)
}

// variableNamed resolves name as local, upvalue, or global (in that
// order) and emits the matching GET/SET pair, honoring canAssign and the
// Fix/Var access policy.
func variableNamed(c *compiling, name string, canAssign bool) {
	if slot, kind, ok := c.resolveLocal(c.cs, name); ok {
		if canAssign && c.match(lexer.EQUAL) {
			if kind == AccessFix {
				c.error("Fixed variable cannot be reassigned.")
			}
			c.expression()
			c.emitOp(bytecode.OpSetLocal)
		} else {
			c.emitOp(bytecode.OpGetLocal)
		}
		c.chunk().WriteVariable(slot, c.p.previous.Line)
		return
	}
	if slot, ok := c.resolveUpvalue(c.cs, name); ok {
		if canAssign && c.match(lexer.EQUAL) {
			for enc := c.cs.enclosing; enc != nil; enc = enc.enclosing {
				if _, kind, found := c.resolveLocal(enc, name); found {
					if kind == AccessFix {
						c.error("Fixed variable cannot be reassigned.")
					}
					break
				}
			}
			c.expression()
			c.emitOp(bytecode.OpSetUpvalue)
		} else {
			c.emitOp(bytecode.OpGetUpvalue)
		}
		c.chunk().WriteVariable(slot, c.p.previous.Line)
		return
	}

	idx := c.globalIndex(name)
	if canAssign && c.match(lexer.EQUAL) {
		c.expression()
		c.emitOp(bytecode.OpSetGlobal)
	} else {
		c.emitOp(bytecode.OpGetGlobal)
	}
	c.chunk().WriteVariable(idx, c.p.previous.Line)
}

// globalIndex returns the stable slot for name in the shared global-name
// table, registering it (as Undefined, Var access) the first time it is
// seen.
func (c *compiling) globalIndex(name string) int {
	s := c.internString(name)
	key := value.FromObj(s)
	if v, ok := c.p.globalName.Get(key); ok {
		return int(v.AsNumber())
	}
	idx := len(*c.p.globalVals)
	c.p.globalName.Set(key, value.Number(float64(idx)))
	*c.p.globalVals = append(*c.p.globalVals, value.Undefined())
	*c.p.globalKind = append(*c.p.globalKind, AccessVar)
	return idx
}

func (c *compiling) declareGlobalKind(idx int, kind AccessKind) {
	(*c.p.globalKind)[idx] = kind
}

// resolveLocal performs a linear, innermost-first scan of cs's locals.
func (c *compiling) resolveLocal(cs *compilerState, name string) (int, AccessKind, bool) {
	for i := len(cs.locals) - 1; i >= 0; i-- {
		l := cs.locals[i]
		if l.name == name {
			if l.depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i, l.kind, true
		}
	}
	return 0, AccessVar, false
}

// resolveUpvalue recurses up the compiler chain: a name found as a local
// of the immediately enclosing function captures that local; a name found
// as an upvalue further up is threaded through as a non-local descriptor.
func (c *compiling) resolveUpvalue(cs *compilerState, name string) (int, bool) {
	if cs.enclosing == nil {
		return 0, false
	}
	if slot, _, ok := c.resolveLocal(cs.enclosing, name); ok {
		cs.enclosing.locals[slot].isCaptured = true
		return c.addUpvalue(cs, slot, true), true
	}
	if slot, ok := c.resolveUpvalue(cs.enclosing, name); ok {
		return c.addUpvalue(cs, slot, false), true
	}
	return 0, false
}

func (c *compiling) addUpvalue(cs *compilerState, index int, isLocal bool) int {
	for i, u := range cs.upvalues {
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	if len(cs.upvalues) >= 256 {
		c.error("Too many closure variables in function.")
		return 0
	}
	cs.upvalues = append(cs.upvalues, upvalueDesc{index: index, isLocal: isLocal})
	return len(cs.upvalues) - 1
}

// declareLocal adds name to the current scope's locals with depth -1
// (uninitialized) so self-referencing initializers are rejected.
func (c *compiling) declareLocal(name string, kind AccessKind) {
	if c.cs.scopeDepth == 0 {
		return
	}
	for i := len(c.cs.locals) - 1; i >= 0; i-- {
		l := c.cs.locals[i]
		if l.depth != -1 && l.depth < c.cs.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.cs.locals = append(c.cs.locals, local{name: name, depth: -1, kind: kind})
}

func (c *compiling) markInitialized() {
	if c.cs.scopeDepth == 0 {
		return
	}
	c.cs.locals[len(c.cs.locals)-1].depth = c.cs.scopeDepth
}
