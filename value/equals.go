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

package value

import (
	"bytes"

	"github.com/sarnowski/lona/memspace"
)

// Equal implements structural equality over r (a process or realm
// acting as a memspace.Resolver): two immediates of the same tag
// compare equal iff their payloads are equal; heap values of the
// same tag compare structurally, except Symbol (address identity,
// since interning is the contract) and Closure/CompiledFn/NativeFn/
// Var/Namespace (identity).
func Equal(r memspace.Resolver, a, b Value) bool {
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case Nil, Unbound:
		return true
	case Bool, Int, NativeFn:
		return a.payload == b.payload
	case Symbol, Closure, CompiledFn, Var, Namespace:
		return a.payload == b.payload
	case String, Keyword:
		sa, oka := ReadString(r, a.Addr())
		sb, okb := ReadString(r, b.Addr())
		return oka && okb && bytes.Equal(sa, sb)
	case Pair:
		return a.payload == b.payload || pairEqual(r, a, b)
	case Tuple, Vector:
		return a.payload == b.payload || seqEqual(r, a, b)
	case Map:
		return a.payload == b.payload || mapEqual(r, a, b)
	default:
		return a.payload == b.payload
	}
}

func pairEqual(r memspace.Resolver, a, b Value) bool {
	for {
		if a.tag == Nil && b.tag == Nil {
			return true
		}
		if a.tag != Pair || b.tag != Pair {
			return Equal(r, a, b)
		}
		pa, oka := ReadPair(r, a.Addr())
		pb, okb := ReadPair(r, b.Addr())
		if !oka || !okb {
			return false
		}
		if !Equal(r, pa.First, pb.First) {
			return false
		}
		a, b = pa.Rest, pb.Rest
	}
}

func seqEqual(r memspace.Resolver, a, b Value) bool {
	ea, oka := ReadSeq(r, a.Addr())
	eb, okb := ReadSeq(r, b.Addr())
	if !oka || !okb || len(ea) != len(eb) {
		return false
	}
	for i := range ea {
		if !Equal(r, ea[i], eb[i]) {
			return false
		}
	}
	return true
}

// mapEqual compares two HeapMaps by their *effective* key/value
// contents (last write for a key wins), not by the raw entry lists,
// since shadowed earlier entries must not affect equality.
func mapEqual(r memspace.Resolver, a, b Value) bool {
	ea, oka := ReadMap(r, a.Addr())
	eb, okb := ReadMap(r, b.Addr())
	if !oka || !okb {
		return false
	}
	ka, va := collectMapEntries(r, ea)
	kb, vb := collectMapEntries(r, eb)
	if len(ka) != len(kb) {
		return false
	}
	for i, k := range ka {
		j := findKey(r, kb, k)
		if j < 0 || !Equal(r, va[i], vb[j]) {
			return false
		}
	}
	return true
}

func findKey(r memspace.Resolver, keys []Value, k Value) int {
	for i, kk := range keys {
		if Equal(r, kk, k) {
			return i
		}
	}
	return -1
}

// collectMapEntries walks a map's entries pair-chain front-to-back,
// keeping only the first (most recent) occurrence of each key, per
// spec.md's "entries may shadow earlier ones; lookup walks
// front-to-back" rule.
func collectMapEntries(r memspace.Resolver, entries Value) (keys, vals []Value) {
	cur := entries
	for cur.tag == Pair {
		p, ok := ReadPair(r, cur.Addr())
		if !ok {
			break
		}
		kv, ok := ReadSeq(r, p.First.Addr())
		if ok && len(kv) == 2 {
			if findKey(r, keys, kv[0]) < 0 {
				keys = append(keys, kv[0])
				vals = append(vals, kv[1])
			}
		}
		cur = p.Rest
	}
	return keys, vals
}
