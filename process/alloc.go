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

package process

import (
	"github.com/sarnowski/lona/memspace"
	"github.com/sarnowski/lona/value"
)

// AllocString allocates a HeapString on the young heap and returns
// it as a Value tagged String.
func (p *Process) AllocString(s string) (value.Value, bool) {
	return p.allocBytes(value.String, []byte(s))
}

func (p *Process) allocBytes(tag value.Tag, b []byte) (value.Value, bool) {
	size := value.StringSize(len(b))
	off, ok := p.Alloc(size, 8)
	if !ok {
		return value.Value{}, false
	}
	value.WriteString(p.Bytes(off, size), b)
	return value.MakeHeap(tag, memspace.NewVaddr(memspace.RegionYoung, off)), true
}

// AllocSymbol interns name in the process-local symbol table,
// allocating a HeapString on a miss (spec.md §4.1: "Symbols and
// keywords consult the process intern table first; a miss allocates
// and records"). These process-local symbols are re-mapped to realm
// symbols by the deep-copy marshaller when a value graph crosses
// into the realm.
func (p *Process) AllocSymbol(name string) (value.Value, bool) {
	return p.internLocal(p.symbolIntern, value.Symbol, name)
}

// AllocKeyword interns name in the process-local keyword table.
func (p *Process) AllocKeyword(name string) (value.Value, bool) {
	return p.internLocal(p.keywordIntern, value.Keyword, name)
}

func (p *Process) internLocal(table map[string]memspace.Vaddr, tag value.Tag, name string) (value.Value, bool) {
	if addr, ok := table[name]; ok {
		return value.MakeHeap(tag, addr), true
	}
	v, ok := p.allocBytes(tag, []byte(name))
	if !ok {
		return value.Value{}, false
	}
	table[name] = v.Addr()
	return v, true
}

// AllocPair allocates a Pair record.
func (p *Process) AllocPair(first, rest value.Value) (value.Value, bool) {
	off, ok := p.Alloc(value.PairSize, 8)
	if !ok {
		return value.Value{}, false
	}
	value.WritePair(p.Bytes(off, value.PairSize), first, rest)
	return value.MakeHeap(value.Pair, memspace.NewVaddr(memspace.RegionYoung, off)), true
}

// AllocSeq allocates a Tuple or Vector record (tag selects which).
func (p *Process) AllocSeq(tag value.Tag, elems []value.Value) (value.Value, bool) {
	size := value.SeqSize(len(elems))
	off, ok := p.Alloc(size, 8)
	if !ok {
		return value.Value{}, false
	}
	value.WriteSeq(p.Bytes(off, size), elems)
	return value.MakeHeap(tag, memspace.NewVaddr(memspace.RegionYoung, off)), true
}

// AllocTuple is a convenience wrapper around AllocSeq(value.Tuple, ...).
func (p *Process) AllocTuple(elems []value.Value) (value.Value, bool) {
	return p.AllocSeq(value.Tuple, elems)
}

// AllocVector is a convenience wrapper around AllocSeq(value.Vector, ...).
func (p *Process) AllocVector(elems []value.Value) (value.Value, bool) {
	return p.AllocSeq(value.Vector, elems)
}

// AllocMap allocates a HeapMap whose entries pair-chain is built
// from the given [k v] pairs, most-recently-added first so a later
// duplicate key naturally shadows an earlier one on lookup.
func (p *Process) AllocMap(keys, vals []value.Value) (value.Value, bool) {
	entries := value.NilValue
	for i := range keys {
		kv, ok := p.AllocTuple([]value.Value{keys[i], vals[i]})
		if !ok {
			return value.Value{}, false
		}
		pair, ok := p.AllocPair(kv, entries)
		if !ok {
			return value.Value{}, false
		}
		entries = pair
	}
	off, ok := p.Alloc(value.MapSize, 8)
	if !ok {
		return value.Value{}, false
	}
	value.WriteMap(p.Bytes(off, value.MapSize), entries)
	return value.MakeHeap(value.Map, memspace.NewVaddr(memspace.RegionYoung, off)), true
}

// AllocCompiledFn allocates a HeapCompiledFn record on the young heap.
func (p *Process) AllocCompiledFn(h value.CompiledFnHeader, code []uint32, constants []value.Value) (value.Value, bool) {
	size := value.CompiledFnSize(uint32(len(code)), uint32(len(constants)))
	off, ok := p.Alloc(size, 8)
	if !ok {
		return value.Value{}, false
	}
	h.CodeLen = uint32(len(code))
	h.ConstantsLen = uint32(len(constants))
	value.WriteCompiledFn(p.Bytes(off, size), h, code, constants)
	return value.MakeHeap(value.CompiledFn, memspace.NewVaddr(memspace.RegionYoung, off)), true
}

// AllocClosure allocates a HeapClosure over fn with the given captures.
func (p *Process) AllocClosure(fn value.Value, captures []value.Value) (value.Value, bool) {
	size := value.ClosureSize(uint32(len(captures)))
	off, ok := p.Alloc(size, 8)
	if !ok {
		return value.Value{}, false
	}
	value.WriteClosure(p.Bytes(off, size), fn.Addr(), captures)
	return value.MakeHeap(value.Closure, memspace.NewVaddr(memspace.RegionYoung, off)), true
}

// CopyCompiledFn duplicates the HeapCompiledFn at fn onto this
// process's young heap. Used for process-local spawning; the def
// path instead goes through the realm deep-copy marshaller
// (spec.md §4.1).
func (p *Process) CopyCompiledFn(r memspace.Resolver, fn value.Value) (value.Value, bool) {
	h, ok := value.ReadCompiledFnHeader(r, fn.Addr())
	if !ok {
		return value.Value{}, false
	}
	code, ok := value.ReadCompiledFnCode(r, fn.Addr())
	if !ok {
		return value.Value{}, false
	}
	constants, ok := value.ReadCompiledFnConstants(r, fn.Addr())
	if !ok {
		return value.Value{}, false
	}
	return p.AllocCompiledFn(value.CompiledFnHeader{
		Arity:      h.Arity,
		Variadic:   h.Variadic,
		NumLocals:  h.NumLocals,
		SourceFile: h.SourceFile,
		SourceLine: h.SourceLine,
	}, code, constants)
}

// CopyClosure duplicates the HeapClosure at c onto this process's
// young heap, copying its capture array by value.
func (p *Process) CopyClosure(r memspace.Resolver, c value.Value) (value.Value, bool) {
	fields, ok := value.ReadClosure(r, c.Addr())
	if !ok {
		return value.Value{}, false
	}
	return p.AllocClosure(value.MakeHeap(value.CompiledFn, fields.Function), fields.Captures)
}
