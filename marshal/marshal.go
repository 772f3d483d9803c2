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

// Package marshal implements the deep-copy that promotes a value
// graph living in a process's young heap into its realm's shared
// code region, so other processes (and future generations of the
// same process, after a restart) can see it. The def-root,
// def-binding, def-meta and intern intrinsics are its only callers:
// everything else a process does stays process-local.
package marshal

import (
	"github.com/sarnowski/lona/memspace"
	"github.com/sarnowski/lona/process"
	"github.com/sarnowski/lona/realm"
	"github.com/sarnowski/lona/value"
)

// maxSymbolLen bounds the buffer used to re-intern a process-local
// symbol or keyword's name in the realm; this mirrors the fixed
// scratch buffer the original deep-copy walk used, not a protocol
// limit on symbol length elsewhere in the system.
const maxSymbolLen = 256

// ToRealm deep-copies v out of p's young heap into p.Realm's code
// region, returning the equivalent realm-resident value. Immediates
// pass through unchanged; Var and Namespace values are assumed to
// already be realm-resident (the only way to construct either is
// through the realm API) and also pass through. Shared substructure
// within a single call is copied once and the rest of the graph
// referencing it is rewired to the shared destination, so copying a
// value that (for example) contains the same nested tuple twice
// preserves the aliasing relationship.
func ToRealm(p *process.Process, v value.Value) (value.Value, bool) {
	return copyValue(p, p.Realm, v, make(map[memspace.Vaddr]memspace.Vaddr))
}

func copyValue(p *process.Process, r *realm.Realm, v value.Value, visited map[memspace.Vaddr]memspace.Vaddr) (value.Value, bool) {
	switch v.Tag() {
	case value.Nil, value.Bool, value.Int, value.NativeFn, value.Unbound, value.Var, value.Namespace:
		return v, true
	case value.String:
		return copyBytes(p, r, v, value.String, visited)
	case value.Symbol:
		return copySymbol(p, r, v, true)
	case value.Keyword:
		return copySymbol(p, r, v, false)
	case value.Pair:
		return copyPair(p, r, v, visited)
	case value.Tuple:
		return copySeq(p, r, v, value.Tuple, visited)
	case value.Vector:
		return copySeq(p, r, v, value.Vector, visited)
	case value.Map:
		return copyMap(p, r, v, visited)
	case value.CompiledFn:
		return copyCompiledFn(p, r, v, visited)
	case value.Closure:
		return copyClosure(p, r, v, visited)
	default:
		return value.Value{}, false
	}
}

func copyBytes(p *process.Process, r *realm.Realm, v value.Value, tag value.Tag, visited map[memspace.Vaddr]memspace.Vaddr) (value.Value, bool) {
	src := v.Addr()
	if dst, ok := visited[src]; ok {
		return value.MakeHeap(tag, dst), true
	}
	b, ok := value.ReadString(p, src)
	if !ok {
		return value.Value{}, false
	}
	size := value.StringSize(len(b))
	off, ok := r.Alloc(size, 8)
	if !ok {
		return value.Value{}, false
	}
	value.WriteString(r.Bytes(off, size), b)
	dst := memspace.NewVaddr(memspace.RegionRealm, off)
	visited[src] = dst
	return value.MakeHeap(tag, dst), true
}

// copySymbol re-interns a process-local symbol/keyword's name in the
// realm rather than copying bytes, so two process-local symbols with
// the same name collapse onto the realm's single interned instance
// (spec.md §4.1: "re-mapped to realm symbols during deep-copy").
func copySymbol(p *process.Process, r *realm.Realm, v value.Value, isSymbol bool) (value.Value, bool) {
	b, ok := value.ReadString(p, v.Addr())
	if !ok || len(b) > maxSymbolLen {
		return value.Value{}, false
	}
	if isSymbol {
		return r.InternSymbol(string(b)), true
	}
	return r.InternKeyword(string(b)), true
}

func copyPair(p *process.Process, r *realm.Realm, v value.Value, visited map[memspace.Vaddr]memspace.Vaddr) (value.Value, bool) {
	src := v.Addr()
	if dst, ok := visited[src]; ok {
		return value.MakeHeap(value.Pair, dst), true
	}
	fields, ok := value.ReadPair(p, src)
	if !ok {
		return value.Value{}, false
	}
	off, ok := r.Alloc(value.PairSize, 8)
	if !ok {
		return value.Value{}, false
	}
	dst := memspace.NewVaddr(memspace.RegionRealm, off)
	visited[src] = dst

	first, ok := copyValue(p, r, fields.First, visited)
	if !ok {
		return value.Value{}, false
	}
	rest, ok := copyValue(p, r, fields.Rest, visited)
	if !ok {
		return value.Value{}, false
	}
	value.WritePair(r.Bytes(off, value.PairSize), first, rest)
	return value.MakeHeap(value.Pair, dst), true
}

func copySeq(p *process.Process, r *realm.Realm, v value.Value, tag value.Tag, visited map[memspace.Vaddr]memspace.Vaddr) (value.Value, bool) {
	src := v.Addr()
	if dst, ok := visited[src]; ok {
		return value.MakeHeap(tag, dst), true
	}
	elems, ok := value.ReadSeq(p, src)
	if !ok {
		return value.Value{}, false
	}
	size := value.SeqSize(len(elems))
	off, ok := r.Alloc(size, 8)
	if !ok {
		return value.Value{}, false
	}
	dst := memspace.NewVaddr(memspace.RegionRealm, off)
	visited[src] = dst

	copied := make([]value.Value, len(elems))
	for i, e := range elems {
		ce, ok := copyValue(p, r, e, visited)
		if !ok {
			return value.Value{}, false
		}
		copied[i] = ce
	}
	value.WriteSeq(r.Bytes(off, size), copied)
	return value.MakeHeap(tag, dst), true
}

func copyMap(p *process.Process, r *realm.Realm, v value.Value, visited map[memspace.Vaddr]memspace.Vaddr) (value.Value, bool) {
	src := v.Addr()
	if dst, ok := visited[src]; ok {
		return value.MakeHeap(value.Map, dst), true
	}
	entries, ok := value.ReadMap(p, src)
	if !ok {
		return value.Value{}, false
	}
	off, ok := r.Alloc(value.MapSize, 8)
	if !ok {
		return value.Value{}, false
	}
	dst := memspace.NewVaddr(memspace.RegionRealm, off)
	visited[src] = dst

	copiedEntries, ok := copyValue(p, r, entries, visited)
	if !ok {
		return value.Value{}, false
	}
	value.WriteMap(r.Bytes(off, value.MapSize), copiedEntries)
	return value.MakeHeap(value.Map, dst), true
}

func copyCompiledFn(p *process.Process, r *realm.Realm, v value.Value, visited map[memspace.Vaddr]memspace.Vaddr) (value.Value, bool) {
	src := v.Addr()
	if dst, ok := visited[src]; ok {
		return value.MakeHeap(value.CompiledFn, dst), true
	}
	h, ok := value.ReadCompiledFnHeader(p, src)
	if !ok {
		return value.Value{}, false
	}
	code, ok := value.ReadCompiledFnCode(p, src)
	if !ok {
		return value.Value{}, false
	}
	constants, ok := value.ReadCompiledFnConstants(p, src)
	if !ok {
		return value.Value{}, false
	}
	size := value.CompiledFnSize(uint32(len(code)), uint32(len(constants)))
	off, ok := r.Alloc(size, 8)
	if !ok {
		return value.Value{}, false
	}
	dst := memspace.NewVaddr(memspace.RegionRealm, off)
	visited[src] = dst

	copiedConstants := make([]value.Value, len(constants))
	for i, c := range constants {
		cc, ok := copyValue(p, r, c, visited)
		if !ok {
			return value.Value{}, false
		}
		copiedConstants[i] = cc
	}
	value.WriteCompiledFn(r.Bytes(off, size), h, code, copiedConstants)
	return value.MakeHeap(value.CompiledFn, dst), true
}

func copyClosure(p *process.Process, r *realm.Realm, v value.Value, visited map[memspace.Vaddr]memspace.Vaddr) (value.Value, bool) {
	src := v.Addr()
	if dst, ok := visited[src]; ok {
		return value.MakeHeap(value.Closure, dst), true
	}
	fields, ok := value.ReadClosure(p, src)
	if !ok {
		return value.Value{}, false
	}
	fnVal, ok := copyValue(p, r, value.MakeHeap(value.CompiledFn, fields.Function), visited)
	if !ok {
		return value.Value{}, false
	}
	size := value.ClosureSize(uint32(len(fields.Captures)))
	off, ok := r.Alloc(size, 8)
	if !ok {
		return value.Value{}, false
	}
	dst := memspace.NewVaddr(memspace.RegionRealm, off)
	visited[src] = dst

	captures := make([]value.Value, len(fields.Captures))
	for i, c := range fields.Captures {
		cc, ok := copyValue(p, r, c, visited)
		if !ok {
			return value.Value{}, false
		}
		captures[i] = cc
	}
	value.WriteClosure(r.Bytes(off, size), fnVal.Addr(), captures)
	return value.MakeHeap(value.Closure, dst), true
}
