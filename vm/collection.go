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

package vm

import (
	"github.com/sarnowski/lona/bytecode"
	"github.com/sarnowski/lona/process"
	"github.com/sarnowski/lona/value"
)

// mapGet is the pure lookup logic shared by the get intrinsic and the
// keyword/map callable-data-structure dispatch in call.go: walk the
// entries pair-chain front to back (most-recently-put first) and
// return the value of the first structurally-equal key, or default.
func mapGet(p *process.Process, m, key, def value.Value) (value.Value, error) {
	head, ok := value.ReadMap(p, m.Addr())
	if !ok {
		return value.Value{}, errOOM()
	}
	current := head
	for current.Tag() == value.Pair {
		pair, ok := value.ReadPair(p, current.Addr())
		if !ok {
			return value.Value{}, errOOM()
		}
		kv, ok := value.ReadSeq(p, pair.First.Addr())
		if !ok || len(kv) != 2 {
			return value.Value{}, errOOM()
		}
		if valuesEqual(p, kv[0], key) {
			return kv[1], nil
		}
		current = pair.Rest
	}
	return def, nil
}

func intrinsicGet(p *process.Process, argc uint8) (value.Value, *IntrinsicError) {
	m := p.XRegs[1]
	if m.Tag() != value.Map {
		return value.Value{}, errTypeError(uint16(bytecode.IGet), 0, "map")
	}
	def := value.NilValue
	if argc >= 3 {
		def = p.XRegs[3]
	}
	v, err := mapGet(p, m, p.XRegs[2], def)
	if err != nil {
		return value.Value{}, errOutOfMemory()
	}
	return v, nil
}

// intrinsicPut implements (put m k v): persistent prepend of a new
// [k v] tuple onto the entries chain, structurally sharing the rest.
func intrinsicPut(p *process.Process) (value.Value, *IntrinsicError) {
	m := p.XRegs[1]
	if m.Tag() != value.Map {
		return value.Value{}, errTypeError(uint16(bytecode.IPut), 0, "map")
	}
	entries, ok := value.ReadMap(p, m.Addr())
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	kv, ok := p.AllocTuple([]value.Value{p.XRegs[2], p.XRegs[3]})
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	newEntries, ok := p.AllocPair(kv, entries)
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	keys, vals, ok := splitEntries(p, newEntries)
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	result, ok := p.AllocMap(keys, vals)
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	return result, nil
}

// splitEntries reads a raw (possibly-shadowed) entries pair-chain back
// into parallel keys/vals slices in chain order, for handing to
// AllocMap which rebuilds the chain itself (AllocMap's own allocator
// shape, not a raw pointer swap, so put keeps using the same path as
// every other map construction).
func splitEntries(p *process.Process, entries value.Value) (keys, vals []value.Value, ok bool) {
	current := entries
	var rk, rv []value.Value
	for current.Tag() == value.Pair {
		pair, ok := value.ReadPair(p, current.Addr())
		if !ok {
			return nil, nil, false
		}
		kv, ok := value.ReadSeq(p, pair.First.Addr())
		if !ok || len(kv) != 2 {
			return nil, nil, false
		}
		rk = append(rk, kv[0])
		rv = append(rv, kv[1])
		current = pair.Rest
	}
	// AllocMap re-prepends in the order given, most-recent-last, so
	// reverse to preserve the original most-recent-first order.
	n := len(rk)
	keys = make([]value.Value, n)
	vals = make([]value.Value, n)
	for i := 0; i < n; i++ {
		keys[i] = rk[n-1-i]
		vals[i] = rv[n-1-i]
	}
	return keys, vals, true
}

func intrinsicKeys(p *process.Process) (value.Value, *IntrinsicError) {
	m := p.XRegs[1]
	if m.Tag() != value.Map {
		return value.Value{}, errTypeError(uint16(bytecode.IKeys), 0, "map")
	}
	keys, _, ok := rawMapEntries(p, m)
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	return buildList(p, keys)
}

func intrinsicVals(p *process.Process) (value.Value, *IntrinsicError) {
	m := p.XRegs[1]
	if m.Tag() != value.Map {
		return value.Value{}, errTypeError(uint16(bytecode.IVals), 0, "map")
	}
	_, vals, ok := rawMapEntries(p, m)
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	return buildList(p, vals)
}

// buildList allocates a pair-chain holding elems in order.
func buildList(p *process.Process, elems []value.Value) (value.Value, *IntrinsicError) {
	list := value.NilValue
	for i := len(elems) - 1; i >= 0; i-- {
		pair, ok := p.AllocPair(elems[i], list)
		if !ok {
			return value.Value{}, errOutOfMemory()
		}
		list = pair
	}
	return list, nil
}

// intrinsicNth implements (nth tuple idx) / (nth tuple idx default).
func intrinsicNth(p *process.Process, argc uint8) (value.Value, *IntrinsicError) {
	coll := p.XRegs[1]
	idx := p.XRegs[2]
	if idx.Tag() != value.Int {
		return value.Value{}, errTypeError(uint16(bytecode.INth), 1, "integer")
	}
	if coll.Tag() != value.Tuple {
		return value.Value{}, errTypeError(uint16(bytecode.INth), 0, "tuple")
	}
	elems, ok := value.ReadSeq(p, coll.Addr())
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	i := idx.AsInt()
	if i < 0 || i >= int64(len(elems)) {
		if argc >= 3 {
			return p.XRegs[3], nil
		}
		return value.Value{}, errIndexOutOfBounds(i, len(elems))
	}
	return elems[i], nil
}

// intrinsicCount is polymorphic over Nil, Tuple, Vector, Pair-chains,
// String (byte length) and Map (raw entry count, including any
// shadowed duplicates left by repeated `put`s of the same key).
func intrinsicCount(p *process.Process) (value.Value, *IntrinsicError) {
	coll := p.XRegs[1]
	switch coll.Tag() {
	case value.Nil:
		return value.MakeInt(0), nil
	case value.Tuple, value.Vector:
		elems, ok := value.ReadSeq(p, coll.Addr())
		if !ok {
			return value.Value{}, errOutOfMemory()
		}
		return value.MakeInt(int64(len(elems))), nil
	case value.Pair:
		count := int64(0)
		current := coll
		for current.Tag() == value.Pair {
			pair, ok := value.ReadPair(p, current.Addr())
			if !ok {
				return value.Value{}, errOutOfMemory()
			}
			count++
			current = pair.Rest
		}
		return value.MakeInt(count), nil
	case value.String:
		s, ok := value.ReadString(p, coll.Addr())
		if !ok {
			return value.Value{}, errOutOfMemory()
		}
		return value.MakeInt(int64(len(s))), nil
	case value.Map:
		keys, _, ok := rawMapEntries(p, coll)
		if !ok {
			return value.Value{}, errOutOfMemory()
		}
		return value.MakeInt(int64(len(keys))), nil
	default:
		return value.Value{}, errTypeError(uint16(bytecode.ICount), 0, "collection")
	}
}

// intrinsicFirst/intrinsicRest/intrinsicEmptyP polymorph over
// pair-chains, tuples, vectors and maps (spec.md's supplement to the
// narrower set of collection intrinsics the bootstrap core carries):
// `rest` always materializes a pair-chain regardless of the input
// kind, so callers can iterate uniformly no matter what they started
// from.
func intrinsicFirst(p *process.Process) (value.Value, *IntrinsicError) {
	elems, ok, terr := asElements(p, bytecode.IFirst, p.XRegs[1])
	if terr != nil {
		return value.Value{}, terr
	}
	if !ok || len(elems) == 0 {
		return value.NilValue, nil
	}
	return elems[0], nil
}

func intrinsicRest(p *process.Process) (value.Value, *IntrinsicError) {
	elems, ok, terr := asElements(p, bytecode.IRest, p.XRegs[1])
	if terr != nil {
		return value.Value{}, terr
	}
	if !ok || len(elems) <= 1 {
		return value.NilValue, nil
	}
	return buildList(p, elems[1:])
}

func intrinsicEmptyP(p *process.Process) (value.Value, *IntrinsicError) {
	elems, ok, terr := asElements(p, bytecode.IEmptyP, p.XRegs[1])
	if terr != nil {
		return value.Value{}, terr
	}
	return value.MakeBool(!ok || len(elems) == 0), nil
}

// asElements flattens any of Lona's collection kinds into a slice so
// first/rest/empty? share one walk; Nil flattens to an empty, valid
// slice (ok=true) rather than a type error, matching "empty? of
// nothing is true".
func asElements(p *process.Process, id bytecode.IntrinsicID, coll value.Value) ([]value.Value, bool, *IntrinsicError) {
	switch coll.Tag() {
	case value.Nil:
		return nil, true, nil
	case value.Tuple, value.Vector:
		elems, ok := value.ReadSeq(p, coll.Addr())
		if !ok {
			return nil, false, errOutOfMemory()
		}
		return elems, true, nil
	case value.Pair:
		var elems []value.Value
		current := coll
		for current.Tag() == value.Pair {
			pair, ok := value.ReadPair(p, current.Addr())
			if !ok {
				return nil, false, errOutOfMemory()
			}
			elems = append(elems, pair.First)
			current = pair.Rest
		}
		return elems, true, nil
	case value.Map:
		keys, vals, ok := effectiveMapEntries(p, coll)
		if !ok {
			return nil, false, errOutOfMemory()
		}
		elems := make([]value.Value, len(keys))
		for i := range keys {
			kv, ok := p.AllocTuple([]value.Value{keys[i], vals[i]})
			if !ok {
				return nil, false, errOutOfMemory()
			}
			elems[i] = kv
		}
		return elems, true, nil
	default:
		return nil, false, errTypeError(uint16(id), 0, "collection")
	}
}

func intrinsicTupleP(p *process.Process) (value.Value, *IntrinsicError) {
	return value.MakeBool(p.XRegs[1].Tag() == value.Tuple), nil
}

func intrinsicSymbolP(p *process.Process) (value.Value, *IntrinsicError) {
	return value.MakeBool(p.XRegs[1].Tag() == value.Symbol), nil
}

func intrinsicMapP(p *process.Process) (value.Value, *IntrinsicError) {
	return value.MakeBool(p.XRegs[1].Tag() == value.Map), nil
}
