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

var intrinsicByName map[string]bytecode.IntrinsicID

func init() {
	intrinsicByName = make(map[string]bytecode.IntrinsicID, bytecode.Count)
	for id, name := range bytecode.Names {
		intrinsicByName[name] = bytecode.IntrinsicID(id)
	}
}

func lookupIntrinsic(name string) (bytecode.IntrinsicID, bool) {
	id, ok := intrinsicByName[name]
	return id, ok
}

// compileList compiles a (head arg...) form: special forms and
// known intrinsic names are recognized by name before falling
// through to a general call, so `(+ 1 2)` never pays the register-
// juggling cost of loading `+` into a callable register first
// (spec.md §4.5).
func (c *Compiler) compileList(list value.Value, target, tempBase uint32) (uint32, error) {
	fields, ok := value.ReadPair(c.proc, list.Addr())
	if !ok {
		return 0, errSyntax("malformed list")
	}
	head, args := fields.First, fields.Rest

	if head.Tag() == value.Symbol {
		name, ok := c.symbolName(head)
		if ok {
			switch name {
			case "def":
				return c.compileDef(args, target, tempBase)
			case "fn*":
				return c.compileFn(args, target, tempBase)
			case "quote":
				return c.compileQuote(args, target, tempBase)
			case "do":
				return c.compileDo(args, target, tempBase)
			case "var":
				return c.compileVar(args, target, tempBase)
			case "match":
				return 0, errSyntax("match is reserved but not yet implemented")
			}
			if id, ok := lookupIntrinsic(name); ok {
				return c.compileIntrinsicCall(id, args, target, tempBase)
			}
		}
	}

	return c.compileCall(head, args, target, tempBase)
}

// walkArgs collects a Pair-chain of argument expressions, failing
// with TooManyArguments past bytecode.MaxArity.
func (c *Compiler) walkArgs(args value.Value) ([]value.Value, error) {
	var out []value.Value
	cur := args
	for cur.Tag() == value.Pair {
		if len(out) >= bytecode.MaxArity {
			return nil, errTooManyArgs()
		}
		fields, ok := value.ReadPair(c.proc, cur.Addr())
		if !ok {
			return nil, errSyntax("malformed argument list")
		}
		out = append(out, fields.First)
		cur = fields.Rest
	}
	return out, nil
}

// compileCall compiles a general function call: the callable is
// evaluated into its own temp register, each argument into a
// following temp, then moved into the X1..Xargc calling-convention
// window before CALL.
func (c *Compiler) compileCall(head, args value.Value, target, tempBase uint32) (uint32, error) {
	argExprs, err := c.walkArgs(args)
	if err != nil {
		return 0, err
	}
	fnTemp := tempBase
	argBase, err := nextTemp(tempBase, 1)
	if err != nil {
		return 0, err
	}
	next, err := nextTemp(argBase, uint32(len(argExprs)))
	if err != nil {
		return 0, err
	}

	if _, err := c.compileExpr(head, fnTemp, next); err != nil {
		return 0, err
	}
	for i, arg := range argExprs {
		if _, err := c.compileExpr(arg, argBase+uint32(i), next); err != nil {
			return 0, err
		}
	}
	for i := range argExprs {
		c.emitMove(uint32(i+1), argBase+uint32(i))
	}
	c.emitA(bytecode.OpCall, fnTemp, uint32(len(argExprs)), 0)
	if target != 0 {
		c.emitMove(target, 0)
	}
	return next, nil
}

// compileIntrinsicCall is compileCall's sibling for a name that
// resolved to a known IntrinsicID: there is no callable register to
// load (the id is baked into the instruction word), so argument
// temps start directly at tempBase.
func (c *Compiler) compileIntrinsicCall(id bytecode.IntrinsicID, args value.Value, target, tempBase uint32) (uint32, error) {
	argExprs, err := c.walkArgs(args)
	if err != nil {
		return 0, err
	}
	argBase := tempBase
	next, err := nextTemp(tempBase, uint32(len(argExprs)))
	if err != nil {
		return 0, err
	}
	for i, arg := range argExprs {
		if _, err := c.compileExpr(arg, argBase+uint32(i), next); err != nil {
			return 0, err
		}
	}
	for i := range argExprs {
		c.emitMove(uint32(i+1), argBase+uint32(i))
	}
	c.emitA(bytecode.OpIntrinsic, uint32(id), uint32(len(argExprs)), 0)
	if target != 0 {
		c.emitMove(target, 0)
	}
	return next, nil
}
