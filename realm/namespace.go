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

package realm

import (
	"golang.org/x/exp/slices"

	"github.com/sarnowski/lona/memspace"
	"github.com/sarnowski/lona/value"
)

// FindNamespace returns the Namespace value registered under sym
// (a Symbol value), by a linear scan of the registry's name array.
func (r *Realm) FindNamespace(sym value.Value) (value.Value, bool) {
	i := slices.Index(r.nsNames, sym.Addr())
	if i < 0 {
		return value.Value{}, false
	}
	return value.MakeHeap(value.Namespace, r.nsAddrs[i]), true
}

// FindNamespaceByName is a convenience wrapper that interns name
// first (namespace lookups are always by already-known-or-new name).
func (r *Realm) FindNamespaceByName(name string) (value.Value, bool) {
	return r.FindNamespace(r.InternSymbol(name))
}

// GetOrCreateNamespace returns the existing namespace registered
// under sym, or allocates a fresh one with an empty mapping table
// and registers it.
func (r *Realm) GetOrCreateNamespace(sym value.Value) value.Value {
	if ns, ok := r.FindNamespace(sym); ok {
		return ns
	}
	off, ok := r.Alloc(value.NamespaceSize, 8)
	if !ok {
		panic("realm: code region exhausted creating namespace")
	}
	value.WriteNamespace(r.Bytes(off, value.NamespaceSize), sym, value.NilValue)
	addr := memspace.NewVaddr(memspace.RegionRealm, off)
	r.nsNames = append(r.nsNames, sym.Addr())
	r.nsAddrs = append(r.nsAddrs, addr)
	return value.MakeHeap(value.Namespace, addr)
}

// mappings returns the current Map value of ns's mapping table.
func (r *Realm) mappings(ns value.Value) value.Value {
	fields, ok := value.ReadNamespace(r, ns.Addr())
	if !ok {
		return value.NilValue
	}
	return fields.Mappings
}

// setMappings rewrites ns's mappings field in place. This is safe
// under the single-writer-per-realm assumption (§5): only the
// component performing def/intern-var calls this.
func (r *Realm) setMappings(ns value.Value, mappings value.Value) {
	sp, off, ok := memspace.Deref(r, ns.Addr())
	if !ok {
		return
	}
	buf := sp.Bytes(off, value.NamespaceSize)
	name := value.GetValue(buf[0:value.ValueSize])
	value.WriteNamespace(buf, name, mappings)
}

// AddNSMapping prepends a [sym var] pair to ns's mapping table.
// Shadowing is intentional: InternVar can simply prepend without
// scanning for an existing mapping to overwrite, trading lookup
// speed for O(1) writes (spec.md §4.2).
func (r *Realm) AddNSMapping(ns value.Value, sym value.Value, v value.Value) {
	kv := r.allocSeq(value.Tuple, []value.Value{sym, v})
	pair := r.allocPair(kv, r.mappings(ns))
	r.setMappings(ns, pair)
}

// LookupMapping walks ns's mapping table front-to-back for sym,
// returning the first (most recent) match.
func (r *Realm) LookupMapping(ns value.Value, sym value.Value) (value.Value, bool) {
	cur := r.mappings(ns)
	for cur.Tag() == value.Pair {
		p, ok := value.ReadPair(r, cur.Addr())
		if !ok {
			break
		}
		kv, ok := value.ReadSeq(r, p.First.Addr())
		if ok && len(kv) == 2 && kv[0].Addr() == sym.Addr() {
			return kv[1], true
		}
		cur = p.Rest
	}
	return value.Value{}, false
}

// allocPair and allocSeq are small internal helpers shared by the
// namespace and bootstrap code; full typed-allocator parity with
// process.Process lives in alloc.go.
func (r *Realm) allocPair(first, rest value.Value) value.Value {
	off, ok := r.Alloc(value.PairSize, 8)
	if !ok {
		panic("realm: code region exhausted allocating pair")
	}
	value.WritePair(r.Bytes(off, value.PairSize), first, rest)
	return value.MakeHeap(value.Pair, memspace.NewVaddr(memspace.RegionRealm, off))
}

func (r *Realm) allocSeq(tag value.Tag, elems []value.Value) value.Value {
	size := value.SeqSize(len(elems))
	off, ok := r.Alloc(size, 8)
	if !ok {
		panic("realm: code region exhausted allocating sequence")
	}
	value.WriteSeq(r.Bytes(off, size), elems)
	return value.MakeHeap(tag, memspace.NewVaddr(memspace.RegionRealm, off))
}
