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

// compileQuote compiles `(quote expr)`: expr is loaded as a literal
// constant, never evaluated.
func (c *Compiler) compileQuote(args value.Value, target, tempBase uint32) (uint32, error) {
	fields, ok := value.ReadPair(c.proc, args.Addr())
	if !ok {
		return 0, errSyntax("quote requires one argument")
	}
	if fields.Rest.Tag() != value.Nil {
		return 0, errSyntax("quote takes exactly one argument")
	}
	return c.compileConstant(fields.First, target, tempBase)
}

// compileVar compiles `(var sym)` (also the expansion of the #'sym
// reader sigil): sym is resolved to its Var box and the box itself
// — not its current root — is loaded as the result.
func (c *Compiler) compileVar(args value.Value, target, tempBase uint32) (uint32, error) {
	fields, ok := value.ReadPair(c.proc, args.Addr())
	if !ok || fields.Rest.Tag() != value.Nil || fields.First.Tag() != value.Symbol {
		return 0, errSyntax("var requires exactly one symbol argument")
	}
	name, ok := c.symbolName(fields.First)
	if !ok {
		return 0, errSyntax("malformed symbol")
	}
	v, ok := c.resolveNamespaceSymbol(name)
	if !ok {
		return 0, errUnbound(name)
	}
	return c.compileConstant(v, target, tempBase)
}

// compileDef compiles `(def name expr)`. The var is interned (or
// found) in the current namespace at compile time, so a later,
// textually-earlier reference in the same compile unit — or a
// forward reference across separately-compiled top-level forms —
// resolves through resolveNamespaceSymbol once the def has run.
// Compiled code updates the var's root through the def-root/
// def-binding intrinsic pair: def-root is used for an ordinary
// namespace var, def-binding for one already flagged
// FlagProcessBound (spec.md §4.5, "a process-bound redefinition uses
// def-binding instead of def-root").
func (c *Compiler) compileDef(args value.Value, target, tempBase uint32) (uint32, error) {
	fields, ok := value.ReadPair(c.proc, args.Addr())
	if !ok || fields.First.Tag() != value.Symbol {
		return 0, errSyntax("def requires a symbol name")
	}
	rest, ok := value.ReadPair(c.proc, fields.Rest.Addr())
	if !ok || rest.Rest.Tag() != value.Nil {
		return 0, errSyntax("def requires exactly one value expression")
	}
	name, ok := c.symbolName(fields.First)
	if !ok {
		return 0, errSyntax("malformed symbol")
	}

	r := c.proc.Realm
	ns, ok := c.currentNamespace()
	if !ok {
		return 0, errSyntax("no current namespace")
	}
	sym := r.InternSymbol(name)
	v := r.InternVar(ns, sym)
	intrinsicID := bytecode.IDefRoot
	if content, ok := r.LoadVarContent(v); ok && content.Flags.Has(value.FlagProcessBound) {
		intrinsicID = bytecode.IDefBinding
	}

	varTemp := tempBase
	valTemp, err := nextTemp(tempBase, 1)
	if err != nil {
		return 0, err
	}
	next, err := nextTemp(valTemp, 1)
	if err != nil {
		return 0, err
	}
	if _, err := c.compileConstant(v, varTemp, next); err != nil {
		return 0, err
	}
	if _, err := c.compileExpr(rest.First, valTemp, next); err != nil {
		return 0, err
	}
	c.emitMove(1, varTemp)
	c.emitMove(2, valTemp)
	c.emitA(bytecode.OpIntrinsic, uint32(intrinsicID), 2, 0)
	if target != 0 {
		c.emitMove(target, 0)
	}
	return next, nil
}
