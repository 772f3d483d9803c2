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
	"sync/atomic"
	"unsafe"

	"github.com/sarnowski/lona/memspace"
	"github.com/sarnowski/lona/value"
)

// AllocVar allocates a fresh Var: a VarContent record (immutable
// once written) plus a VarSlot pointing at it. This realizes the
// two-record MVCC split of spec.md §3/§4.2: readers only ever see a
// complete VarContent because the content word is swapped, not
// mutated in place.
func (r *Realm) AllocVar(name, namespace memspace.Vaddr, root value.Value, flags value.VarFlags) value.Value {
	contentOff, ok := r.Alloc(value.VarContentSize, 8)
	if !ok {
		panic("realm: code region exhausted allocating var content")
	}
	value.WriteVarContent(r.Bytes(contentOff, value.VarContentSize), name, namespace, root, flags)
	contentAddr := memspace.NewVaddr(memspace.RegionRealm, contentOff)

	slotOff, ok := r.Alloc(value.VarSlotSize, 8)
	if !ok {
		panic("realm: code region exhausted allocating var slot")
	}
	value.WriteVarSlot(r.Bytes(slotOff, value.VarSlotSize), contentAddr)
	return value.MakeHeap(value.Var, memspace.NewVaddr(memspace.RegionRealm, slotOff))
}

// slotWord returns an atomic view of a VarSlot's single mutable
// word, grounded on internal/atomicext's pattern of operating on a
// plain field via unsafe.Pointer + sync/atomic rather than a mutex,
// so readers of a var never block on a writer.
func (r *Realm) slotWord(v value.Value) *uint64 {
	off := v.Addr().Offset()
	buf := r.Bytes(off, value.VarSlotSize)
	return (*uint64)(unsafe.Pointer(&buf[0]))
}

// LoadVarContent performs the Acquire load of a VarSlot's content
// pointer and decodes the VarContent it refers to. Because
// VarContents are never mutated after being written, any pointer
// value a reader observes refers to a fully-initialized record —
// this is the whole of the MVCC contract in spec.md §5.
func (r *Realm) LoadVarContent(v value.Value) (value.VarContentFields, bool) {
	word := atomic.LoadUint64(r.slotWord(v))
	return value.ReadVarContent(r, memspace.Vaddr(word))
}

// VarGet returns the current root value of v.
func (r *Realm) VarGet(v value.Value) (value.Value, bool) {
	c, ok := r.LoadVarContent(v)
	if !ok {
		return value.Value{}, false
	}
	return c.Root, true
}

// VarSetRoot allocates a fresh VarContent carrying newRoot (copying
// the name/namespace/flags of the current content) and publishes it
// with a Release store to the slot, per spec.md's MVCC update rule.
func (r *Realm) VarSetRoot(v value.Value, newRoot value.Value) bool {
	old, ok := r.LoadVarContent(v)
	if !ok {
		return false
	}
	contentOff, ok := r.Alloc(value.VarContentSize, 8)
	if !ok {
		panic("realm: code region exhausted updating var")
	}
	value.WriteVarContent(r.Bytes(contentOff, value.VarContentSize), old.Name, old.Namespace, newRoot, old.Flags)
	newAddr := memspace.NewVaddr(memspace.RegionRealm, contentOff)
	atomic.StoreUint64(r.slotWord(v), uint64(newAddr))
	return true
}

// VarSetFlags works like VarSetRoot but updates the flags word
// instead of the root, used e.g. to flip on FlagProcessBound for a
// process-local redefinition (spec.md §4.5, "a process-bound
// redefinition uses def-binding instead of def-root").
func (r *Realm) VarSetFlags(v value.Value, flags value.VarFlags) bool {
	old, ok := r.LoadVarContent(v)
	if !ok {
		return false
	}
	contentOff, ok := r.Alloc(value.VarContentSize, 8)
	if !ok {
		panic("realm: code region exhausted updating var flags")
	}
	value.WriteVarContent(r.Bytes(contentOff, value.VarContentSize), old.Name, old.Namespace, old.Root, flags)
	newAddr := memspace.NewVaddr(memspace.RegionRealm, contentOff)
	atomic.StoreUint64(r.slotWord(v), uint64(newAddr))
	return true
}

// InternVar looks up (or, on a miss, allocates and registers) the
// var named sym within ns, seeding it as Unbound with no flags.
func (r *Realm) InternVar(ns value.Value, sym value.Value) value.Value {
	if v, ok := r.LookupMapping(ns, sym); ok {
		return v
	}
	nsFields, _ := value.ReadNamespace(r, ns.Addr())
	v := r.AllocVar(sym.Addr(), nsFields.Name.Addr(), value.UnboundValue, 0)
	r.AddNSMapping(ns, sym, v)
	return v
}
