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

package compiler

import (
	"github.com/sarnowski/lona/bytecode"
	"github.com/sarnowski/lona/value"
)

// fnParams is the parsed parameter list of a `fn*` form.
type fnParams struct {
	required []string
	rest     string // "" if not variadic
	variadic bool
}

// parseFnParams reads a Tuple/Vector of parameter symbols, splitting
// off a trailing `& rest` pair. `&` must be followed by exactly one
// symbol.
func (c *Compiler) parseFnParams(paramLit value.Value) (fnParams, error) {
	elems, ok := value.ReadSeq(c.proc, paramLit.Addr())
	if !ok {
		return fnParams{}, errSyntax("fn* requires a parameter list")
	}
	var out fnParams
	for i := 0; i < len(elems); i++ {
		name, ok := c.symbolName(elems[i])
		if !ok {
			return fnParams{}, errSyntax("parameter must be a symbol")
		}
		if name == "&" {
			if i != len(elems)-2 {
				return fnParams{}, errSyntax("& must be followed by exactly one rest parameter")
			}
			restName, ok := c.symbolName(elems[i+1])
			if !ok {
				return fnParams{}, errSyntax("rest parameter must be a symbol")
			}
			out.rest = restName
			out.variadic = true
			break
		}
		if len(out.required) >= maxParams {
			return fnParams{}, errSyntax("too many parameters")
		}
		out.required = append(out.required, name)
	}
	return out, nil
}

func (c *Compiler) bindParam(name string, register uint32) {
	c.bindings = append(c.bindings, binding{name: name, register: register})
}

// compileFn compiles `(fn* [params] body...)` or
// `(fn* name [params] body...)` — name, when present, is parsed only
// for discarding; Lona's closures carry no self-reference binding.
//
// The save/setup/bind/capture/compile/restore ordering below is load-
// bearing (spec.md §4.5): outer bindings must be snapshotted from the
// *current* scope before it is cleared for the nested one, and
// captureAllOuterBindings must run after parameters are bound (so a
// parameter correctly shadows a same-named outer binding) but before
// the body is compiled (so every capture the body could possibly
// need already has a register assigned).
func (c *Compiler) compileFn(form value.Value, target, tempBase uint32) (uint32, error) {
	fields, ok := value.ReadPair(c.proc, form.Addr())
	if !ok {
		return 0, errSyntax("fn* requires a parameter list")
	}
	head := fields.First
	rest := fields.Rest
	if head.Tag() == value.Symbol {
		// optional name, discarded
		f2, ok := value.ReadPair(c.proc, rest.Addr())
		if !ok {
			return 0, errSyntax("fn* requires a parameter list")
		}
		head = f2.First
		rest = f2.Rest
	}
	params, err := c.parseFnParams(head)
	if err != nil {
		return 0, err
	}
	body := rest

	savedBindings := c.bindings
	savedOuterBindings := c.outerBindings
	savedCaptures := c.captures
	savedInnerArity := c.innerArity

	c.outerBindings = c.setupOuterBindingsForNestedFn()
	c.clearBindings()
	c.captures = nil

	arity := uint32(len(params.required))
	c.innerArity = arity
	for i, name := range params.required {
		c.bindParam(name, uint32(i+1))
	}
	if params.variadic {
		c.bindParam(params.rest, arity+1)
	}

	c.captureAllOuterBindings()

	savedChunk := c.chunk
	c.chunk = &bytecode.Chunk{}
	if _, err := c.compileDo(body, 0, bytecode.TempBase); err != nil {
		c.chunk = savedChunk
		return 0, err
	}
	c.emitB(bytecode.OpReturn, 0, 0)
	fnChunk := c.chunk
	c.chunk = savedChunk

	ownCaptures := c.captures
	captureOuterRegs := make([]uint32, len(ownCaptures))
	for i, cap := range ownCaptures {
		captureOuterRegs[i] = cap.outerRegister
	}

	c.bindings = savedBindings
	c.outerBindings = savedOuterBindings
	c.captures = savedCaptures
	c.innerArity = savedInnerArity

	fnVal, ok := c.proc.AllocCompiledFn(value.CompiledFnHeader{
		Arity:     uint8(arity),
		Variadic:  params.variadic,
		NumLocals: uint8(arity + uint32(len(ownCaptures))),
	}, fnChunk.Code, fnChunk.Constants)
	if !ok {
		return 0, errSyntax("heap exhausted allocating function")
	}

	if len(ownCaptures) == 0 {
		return c.compileConstant(fnVal, target, tempBase)
	}
	return c.emitClosureCreation(fnVal, captureOuterRegs, target, tempBase)
}

// emitClosureCreation loads fnVal as a constant, moves each capture
// value (already available at its outerRegister in the *currently
// compiling* scope) into a contiguous temp window, builds a Tuple
// over that window, and assembles a Closure from the function plus
// capture tuple.
func (c *Compiler) emitClosureCreation(fnVal value.Value, captureOuterRegs []uint32, target, tempBase uint32) (uint32, error) {
	fnTemp := tempBase
	capturesBase, err := nextTemp(tempBase, 1)
	if err != nil {
		return 0, err
	}
	next, err := nextTemp(capturesBase, uint32(len(captureOuterRegs)))
	if err != nil {
		return 0, err
	}

	if _, err := c.compileConstant(fnVal, fnTemp, next); err != nil {
		return 0, err
	}
	for i, reg := range captureOuterRegs {
		c.emitMove(capturesBase+uint32(i), reg)
	}
	c.emitA(bytecode.OpBuildTuple, capturesBase, capturesBase, uint32(len(captureOuterRegs)))
	c.emitA(bytecode.OpBuildClosure, target, fnTemp, capturesBase)
	return next, nil
}
