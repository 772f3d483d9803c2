// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package compiler implements Lona's single-pass Value-AST-to-bytecode
// compiler (spec.md §4.5): a recursive-descent walk over the reader's
// output that emits a fixed-register bytecode.Chunk. Closures are
// compiled by forcing every enclosing variable reference into an
// explicit capture, so a running Chunk never reaches outside its own
// register file once BUILD_CLOSURE has assembled its capture tuple.
package compiler

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/sarnowski/lona/bytecode"
	"github.com/sarnowski/lona/process"
	"github.com/sarnowski/lona/value"
)

// maxParams/maxCaptures bound a single function's parameter list and
// capture set; both are well under the 128 temp registers reserved
// for params+captures (X1..X127) before the compiler's own X128..X255
// temp window starts (spec.md §4.5).
const (
	maxParams        = 16
	maxCaptures      = 16
	maxSymbolNameLen = 64
)

// binding is a lexical parameter: name bound to a fixed register for
// the lifetime of the function currently being compiled.
type binding struct {
	name     string
	register uint32
}

// capture is a variable this function closes over: the register it
// lived in in the enclosing function (outerRegister, meaningful only
// while that enclosing function is itself being compiled) and the
// register it is reloaded into in this function's own frame
// (innerRegister, computed once and stable for the rest of this
// function's compilation).
type capture struct {
	name          string
	outerRegister uint32
	innerRegister uint32
}

// Compiler holds the state of a single compile_fn scope. Nested
// functions save and restore this state around their own body
// compilation (see compileFn in closure.go), mirroring the original
// compiler's explicit save/restore discipline rather than recursing
// with a fresh struct per scope — outerBindings needs to see both
// the enclosing scope's bindings and its captures to decide whether
// a name needs a new capture link or can reuse an existing one.
type Compiler struct {
	proc  *process.Process
	chunk *bytecode.Chunk

	bindings      []binding
	outerBindings []binding
	captures      []capture
	innerArity    uint32
}

// New creates a compiler that allocates constants and CompiledFn/
// Closure records against proc's young heap.
func New(proc *process.Process) *Compiler {
	return &Compiler{proc: proc}
}

// Compile compiles a single top-level expression into a Chunk whose
// code ends in HALT (spec.md §4.5: "the top-level compile wraps a
// single compile_expr call with target=X0, then emits HALT").
func Compile(proc *process.Process, expr value.Value) (*bytecode.Chunk, error) {
	c := New(proc)
	c.chunk = &bytecode.Chunk{}
	if _, err := c.compileExpr(expr, 0, bytecode.TempBase); err != nil {
		return nil, err
	}
	c.emitB(bytecode.OpHalt, 0, 0)
	return c.chunk, nil
}

func (c *Compiler) emitA(op bytecode.Op, a, b, d uint32) {
	c.chunk.Code = append(c.chunk.Code, bytecode.EncodeA(op, a, b, d))
}

func (c *Compiler) emitB(op bytecode.Op, a uint32, bx uint32) {
	c.chunk.Code = append(c.chunk.Code, bytecode.EncodeB(op, a, bx))
}

func (c *Compiler) emitBSigned(op bytecode.Op, a uint32, sbx int32) {
	c.chunk.Code = append(c.chunk.Code, bytecode.EncodeBSigned(op, a, sbx))
}

func (c *Compiler) emitMove(dst, src uint32) {
	if dst == src {
		return
	}
	c.emitA(bytecode.OpMove, dst, src, 0)
}

// nextTemp advances tempBase by n, failing the compile if the
// register file is exhausted (spec.md §7, ExpressionTooComplex).
func nextTemp(tempBase uint32, n uint32) (uint32, error) {
	next := tempBase + n
	if next > bytecode.MaxRegister+1 {
		return 0, errExpressionTooComplex()
	}
	return next, nil
}

// compileExpr dispatches on expr's tag, emitting code that leaves
// its value in register target, and returns the next free temp
// register at or above tempBase.
func (c *Compiler) compileExpr(expr value.Value, target, tempBase uint32) (uint32, error) {
	switch expr.Tag() {
	case value.Nil:
		c.emitB(bytecode.OpLoadNil, target, 0)
		return tempBase, nil
	case value.Bool:
		bit := uint32(0)
		if expr.AsBool() {
			bit = 1
		}
		c.emitB(bytecode.OpLoadBool, target, bit)
		return tempBase, nil
	case value.Int:
		return c.compileInt(expr.AsInt(), target, tempBase)
	case value.Symbol:
		return c.compileSymbol(expr, target, tempBase)
	case value.Pair:
		return c.compileList(expr, target, tempBase)
	case value.Tuple:
		return c.compileTuple(expr, target, tempBase)
	case value.Vector:
		return c.compileVector(expr, target, tempBase)
	case value.Map:
		return c.compileMapLit(expr, target, tempBase)
	case value.String, value.Keyword, value.Namespace, value.CompiledFn, value.Closure, value.Var, value.NativeFn:
		return c.compileConstant(expr, target, tempBase)
	case value.Unbound:
		return 0, errSyntax("unbound value cannot appear in source")
	default:
		return 0, errSyntax("unrecognized expression")
	}
}

// compileInt emits a LOADINT immediate when i fits in the signed
// 18-bit sBx field, else falls back to the constant pool.
func (c *Compiler) compileInt(i int64, target, tempBase uint32) (uint32, error) {
	const sBxMin, sBxMax = -(1 << 17), (1 << 17) - 1
	if i >= sBxMin && i <= sBxMax {
		c.emitBSigned(bytecode.OpLoadInt, target, int32(i))
		return tempBase, nil
	}
	return c.compileConstant(value.MakeInt(i), target, tempBase)
}

// compileConstant adds v to the constant pool (deduplicating nothing
// — the pool is a flat append log, matching the original compiler's
// "push and index" approach) and emits a LOADK.
func (c *Compiler) compileConstant(v value.Value, target, tempBase uint32) (uint32, error) {
	idx := len(c.chunk.Constants)
	const maxConstants = 1 << 18
	if idx >= maxConstants {
		return 0, errConstantPoolFull()
	}
	c.chunk.Constants = append(c.chunk.Constants, v)
	c.emitB(bytecode.OpLoadK, target, uint32(idx))
	return tempBase, nil
}

// compileDo evaluates each expression of body (a Pair-chain) into
// target in turn, keeping only the last result; an empty body
// compiles to nil. tempBase is reused for each statement — nothing
// needs to survive past the end of the statement that produced it.
func (c *Compiler) compileDo(body value.Value, target, tempBase uint32) (uint32, error) {
	if body.Tag() != value.Pair {
		c.emitB(bytecode.OpLoadNil, target, 0)
		return tempBase, nil
	}
	cur := body
	next := tempBase
	for cur.Tag() == value.Pair {
		fields, ok := value.ReadPair(c.proc, cur.Addr())
		if !ok {
			return 0, errSyntax("malformed body")
		}
		var err error
		next, err = c.compileExpr(fields.First, target, tempBase)
		if err != nil {
			return 0, err
		}
		cur = fields.Rest
	}
	return next, nil
}

// symbolName reads the UTF-8 name of a Symbol value allocated on the
// compiling process's own young heap.
func (c *Compiler) symbolName(sym value.Value) (string, bool) {
	b, ok := value.ReadString(c.proc, sym.Addr())
	if !ok {
		return "", false
	}
	return string(b), true
}

// --- binding/capture/outer-binding bookkeeping ---

func (c *Compiler) lookupBinding(name string) (uint32, bool) {
	for i := len(c.bindings) - 1; i >= 0; i-- {
		if c.bindings[i].name == name {
			return c.bindings[i].register, true
		}
	}
	return 0, false
}

func (c *Compiler) lookupCapture(name string) (uint32, bool) {
	i := slices.IndexFunc(c.captures, func(cap capture) bool { return cap.name == name })
	if i < 0 {
		return 0, false
	}
	return c.captures[i].innerRegister, true
}

func (c *Compiler) lookupOuterBinding(name string) (uint32, bool) {
	for i := len(c.outerBindings) - 1; i >= 0; i-- {
		if c.outerBindings[i].name == name {
			return c.outerBindings[i].register, true
		}
	}
	return 0, false
}

// addCapture records name as a capture of this function, sourced
// from outerRegister in the enclosing scope, and returns the
// register it is reloaded into here. The inner register is placed
// just past the parameter window (innerArity+1 params occupy
// X0..innerArity, so captures start at innerArity+1) in capture
// order, matching the original compiler's fixed layout.
func (c *Compiler) addCapture(name string, outerRegister uint32) (uint32, bool) {
	if reg, ok := c.lookupCapture(name); ok {
		return reg, true
	}
	if len(c.captures) >= maxCaptures {
		return 0, false
	}
	inner := c.innerArity + 1 + uint32(len(c.captures))
	c.captures = append(c.captures, capture{name: name, outerRegister: outerRegister, innerRegister: inner})
	return inner, true
}

func (c *Compiler) clearBindings() {
	c.bindings = nil
}

// captureAllOuterBindings force-adds every outer binding not already
// shadowed by a parameter or already captured, as a capture of this
// function. This is the step that lets a grandparent's variable
// surface through a chain of intervening closures: each closure in
// the chain captures everything the next one might need, whether or
// not its own body mentions that name (spec.md §4.5, closure capture
// algorithm).
func (c *Compiler) captureAllOuterBindings() {
	for _, ob := range c.outerBindings {
		if _, ok := c.lookupBinding(ob.name); ok {
			continue
		}
		if _, ok := c.lookupCapture(ob.name); ok {
			continue
		}
		c.addCapture(ob.name, ob.register)
	}
}

// setupOuterBindingsForNestedFn builds the outer-binding view a
// nested fn* sees: the current scope's own parameters, plus its own
// captures addressed by the register they already live in here (so
// the nested function, if it also needs them, captures from the
// *current* frame rather than re-deriving a path to the
// grandparent). Must run before clearBindings() clears the current
// scope's bindings.
func (c *Compiler) setupOuterBindingsForNestedFn() []binding {
	outer := make([]binding, 0, len(c.bindings)+len(c.captures))
	outer = append(outer, c.bindings...)
	for _, cap := range c.captures {
		outer = append(outer, binding{name: cap.name, register: cap.innerRegister})
	}
	return outer
}

// --- namespace symbol resolution (spec.md §4.5's final fallback) ---

// resolveNamespaceSymbol looks up name as a var: qualified names
// (`ns/sym`) resolve ns via the realm's namespace registry and then
// look up sym within it; unqualified names resolve against the
// compiling process's current *ns*. Neither branch creates anything
// — an unresolved name here is a genuine UnboundSymbol, not a
// trigger to intern a placeholder.
func (c *Compiler) resolveNamespaceSymbol(name string) (value.Value, bool) {
	r := c.proc.Realm
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		nsPart, symPart := name[:idx], name[idx+1:]
		ns, ok := r.FindNamespaceByName(nsPart)
		if !ok {
			return value.Value{}, false
		}
		sym, ok := r.FindSymbol(symPart)
		if !ok {
			return value.Value{}, false
		}
		return r.LookupMapping(ns, sym)
	}
	ns, ok := c.currentNamespace()
	if !ok {
		return value.Value{}, false
	}
	sym, ok := r.FindSymbol(name)
	if !ok {
		return value.Value{}, false
	}
	return r.LookupMapping(ns, sym)
}

func (c *Compiler) currentNamespace() (value.Value, bool) {
	return c.proc.Realm.VarGet(c.proc.NSVar)
}

// compileSymbol resolves a bare symbol in resolution order: a
// lexical parameter, an already-established capture, an enclosing
// scope's binding (introducing a new capture), and finally a var in
// the current namespace — loaded and immediately dereferenced via
// var-get, since evaluating a symbol means evaluating its value, not
// handing back the Var box itself (that is what `(var sym)` is for).
func (c *Compiler) compileSymbol(expr value.Value, target, tempBase uint32) (uint32, error) {
	name, ok := c.symbolName(expr)
	if !ok || len(name) > maxSymbolNameLen {
		return 0, errSyntax("malformed symbol")
	}
	if reg, ok := c.lookupBinding(name); ok {
		c.emitMove(target, reg)
		return tempBase, nil
	}
	if reg, ok := c.lookupCapture(name); ok {
		c.emitMove(target, reg)
		return tempBase, nil
	}
	if reg, ok := c.lookupOuterBinding(name); ok {
		inner, ok := c.addCapture(name, reg)
		if !ok {
			return 0, errExpressionTooComplex()
		}
		c.emitMove(target, inner)
		return tempBase, nil
	}
	v, ok := c.resolveNamespaceSymbol(name)
	if !ok {
		return 0, errUnbound(name)
	}
	return c.compileVarGet(v, target, tempBase)
}

// compileVarGet loads the Var constant v and emits an INTRINSIC
// var-get call against it, leaving the var's current root in target.
func (c *Compiler) compileVarGet(v value.Value, target, tempBase uint32) (uint32, error) {
	varTemp := tempBase
	next, err := nextTemp(tempBase, 1)
	if err != nil {
		return 0, err
	}
	if _, err := c.compileConstant(v, varTemp, next); err != nil {
		return 0, err
	}
	c.emitMove(1, varTemp)
	c.emitA(bytecode.OpIntrinsic, uint32(bytecode.IVarGet), 1, 0)
	if target != 0 {
		c.emitMove(target, 0)
	}
	return next, nil
}
