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

// compileTuple/compileVector share a shape: evaluate each element
// into consecutive temp registers, then emit a single BUILD_*
// instruction over that contiguous window.
func (c *Compiler) compileTuple(lit value.Value, target, tempBase uint32) (uint32, error) {
	return c.compileSeqLiteral(lit, bytecode.OpBuildTuple, target, tempBase)
}

func (c *Compiler) compileVector(lit value.Value, target, tempBase uint32) (uint32, error) {
	return c.compileSeqLiteral(lit, bytecode.OpBuildVector, target, tempBase)
}

func (c *Compiler) compileSeqLiteral(lit value.Value, op bytecode.Op, target, tempBase uint32) (uint32, error) {
	elems, ok := value.ReadSeq(c.proc, lit.Addr())
	if !ok {
		return 0, errSyntax("malformed literal")
	}
	if len(elems) == 0 {
		c.emitA(op, target, 0, 0)
		return tempBase, nil
	}
	base := tempBase
	next, err := nextTemp(tempBase, uint32(len(elems)))
	if err != nil {
		return 0, err
	}
	for i, e := range elems {
		if _, err := c.compileExpr(e, base+uint32(i), next); err != nil {
			return 0, err
		}
	}
	c.emitA(op, target, base, uint32(len(elems)))
	return next, nil
}

// compileMapLit evaluates a %{...} literal's reader representation
// (a HeapMap whose entries are [k v] tuple pairs) by walking its
// entries pair-chain and compiling each key/value into an
// alternating pair of temp registers, then emitting BUILD_MAP over
// the whole window.
func (c *Compiler) compileMapLit(lit value.Value, target, tempBase uint32) (uint32, error) {
	entries, ok := value.ReadMap(c.proc, lit.Addr())
	if !ok {
		return 0, errSyntax("malformed map literal")
	}

	type kv struct{ key, val value.Value }
	var pairs []kv
	cur := entries
	for cur.Tag() == value.Pair {
		f, ok := value.ReadPair(c.proc, cur.Addr())
		if !ok {
			return 0, errSyntax("malformed map literal")
		}
		elems, ok := value.ReadSeq(c.proc, f.First.Addr())
		if !ok || len(elems) != 2 {
			return 0, errSyntax("malformed map entry")
		}
		pairs = append(pairs, kv{elems[0], elems[1]})
		cur = f.Rest
	}

	if len(pairs) == 0 {
		c.emitA(bytecode.OpBuildMap, target, 0, 0)
		return tempBase, nil
	}

	base := tempBase
	next, err := nextTemp(tempBase, uint32(len(pairs)*2))
	if err != nil {
		return 0, err
	}
	for i, p := range pairs {
		keyReg := base + uint32(2*i)
		valReg := base + uint32(2*i) + 1
		if _, err := c.compileExpr(p.key, keyReg, next); err != nil {
			return 0, err
		}
		if _, err := c.compileExpr(p.val, valReg, next); err != nil {
			return 0, err
		}
	}
	c.emitA(bytecode.OpBuildMap, target, base, uint32(len(pairs)))
	return next, nil
}
