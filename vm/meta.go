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
	"github.com/sarnowski/lona/marshal"
	"github.com/sarnowski/lona/process"
	"github.com/sarnowski/lona/value"
)

// realmSymbol resolves sym (which may be a process-local or already
// realm-resident Symbol) to the realm's single interned instance, so
// namespace/var lookups that compare symbols by address work
// regardless of where the caller's symbol was allocated.
func realmSymbol(p *process.Process, sym value.Value) (value.Value, bool) {
	name, ok := value.ReadString(p, sym.Addr())
	if !ok {
		return value.Value{}, false
	}
	return p.Realm.InternSymbol(string(name)), true
}

// intrinsicMeta implements (meta obj): the process-local metadata
// table keyed by heap address (spec.md §4.1), not the realm's —
// def-meta is the only path that promotes metadata into the realm.
func intrinsicMeta(p *process.Process) (value.Value, *IntrinsicError) {
	obj := p.XRegs[1]
	if !obj.Tag().IsHeap() {
		return value.NilValue, nil
	}
	meta, ok := p.GetMeta(obj.Addr())
	if !ok {
		return value.NilValue, nil
	}
	return meta, nil
}

// intrinsicWithMeta implements (with-meta obj m): Nil clears any
// metadata the object has (a no-op if it has none, or if obj is not a
// reference type), anything else must be a Map.
func intrinsicWithMeta(p *process.Process) (value.Value, *IntrinsicError) {
	obj := p.XRegs[1]
	meta := p.XRegs[2]
	if meta.Tag() == value.Nil {
		if obj.Tag().IsHeap() {
			if _, ok := p.GetMeta(obj.Addr()); ok {
				p.SetMeta(obj.Addr(), value.NilValue)
			}
		}
		return obj, nil
	}
	if meta.Tag() != value.Map {
		return value.Value{}, errTypeError(uint16(bytecode.IWithMeta), 1, "map")
	}
	if !obj.Tag().IsHeap() {
		return value.Value{}, errTypeError(uint16(bytecode.IWithMeta), 0, "reference type")
	}
	p.SetMeta(obj.Addr(), meta)
	return obj, nil
}

func intrinsicNamespaceP(p *process.Process) (value.Value, *IntrinsicError) {
	return value.MakeBool(p.XRegs[1].Tag() == value.Namespace), nil
}

func intrinsicCreateNS(p *process.Process) (value.Value, *IntrinsicError) {
	name := p.XRegs[1]
	if name.Tag() != value.Symbol {
		return value.Value{}, errTypeError(uint16(bytecode.ICreateNS), 0, "symbol")
	}
	sym, ok := realmSymbol(p, name)
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	return p.Realm.GetOrCreateNamespace(sym), nil
}

func intrinsicFindNS(p *process.Process) (value.Value, *IntrinsicError) {
	name := p.XRegs[1]
	if name.Tag() != value.Symbol {
		return value.Value{}, errTypeError(uint16(bytecode.IFindNS), 0, "symbol")
	}
	sym, ok := realmSymbol(p, name)
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	ns, ok := p.Realm.FindNamespace(sym)
	if !ok {
		return value.NilValue, nil
	}
	return ns, nil
}

func intrinsicNSName(p *process.Process) (value.Value, *IntrinsicError) {
	ns := p.XRegs[1]
	if ns.Tag() != value.Namespace {
		return value.Value{}, errTypeError(uint16(bytecode.INSName), 0, "namespace")
	}
	fields, ok := value.ReadNamespace(p, ns.Addr())
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	return fields.Name, nil
}

func intrinsicNSMap(p *process.Process) (value.Value, *IntrinsicError) {
	ns := p.XRegs[1]
	if ns.Tag() != value.Namespace {
		return value.Value{}, errTypeError(uint16(bytecode.INSMap), 0, "namespace")
	}
	fields, ok := value.ReadNamespace(p, ns.Addr())
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	return fields.Mappings, nil
}

func intrinsicFnP(p *process.Process) (value.Value, *IntrinsicError) {
	switch p.XRegs[1].Tag() {
	case value.CompiledFn, value.Closure, value.NativeFn:
		return value.TrueValue, nil
	default:
		return value.FalseValue, nil
	}
}

func intrinsicVarP(p *process.Process) (value.Value, *IntrinsicError) {
	return value.MakeBool(p.XRegs[1].Tag() == value.Var), nil
}

// intrinsicIntern implements (intern ns sym) / (intern ns sym val):
// get-or-create the var named sym in ns, optionally setting its root.
func intrinsicIntern(p *process.Process, argc uint8) (value.Value, *IntrinsicError) {
	ns := p.XRegs[1]
	if ns.Tag() != value.Namespace {
		return value.Value{}, errTypeError(uint16(bytecode.IIntern), 0, "namespace")
	}
	symArg := p.XRegs[2]
	if symArg.Tag() != value.Symbol {
		return value.Value{}, errTypeError(uint16(bytecode.IIntern), 1, "symbol")
	}
	sym, ok := realmSymbol(p, symArg)
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	v := p.Realm.InternVar(ns, sym)
	if argc >= 3 {
		copied, ok := marshal.ToRealm(p, p.XRegs[3])
		if !ok {
			return value.Value{}, errOutOfMemory()
		}
		p.Realm.VarSetRoot(v, copied)
	}
	return v, nil
}

// intrinsicVarGet implements (var-get v): process bindings (for
// PROCESS_BOUND vars set by def-binding) shadow the realm root.
func intrinsicVarGet(p *process.Process) (value.Value, *IntrinsicError) {
	v := p.XRegs[1]
	if v.Tag() != value.Var {
		return value.Value{}, errTypeError(uint16(bytecode.IVarGet), 0, "var")
	}
	content, ok := p.Realm.LoadVarContent(v)
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	if content.Flags.Has(value.FlagProcessBound) {
		if b, ok := p.BindingGet(v.Addr()); ok {
			return b, nil
		}
	}
	return content.Root, nil
}

// intrinsicDefRoot implements def-root: (def-root v value), deep
// copying value into the realm and installing it as v's root.
func intrinsicDefRoot(p *process.Process) (value.Value, *IntrinsicError) {
	v := p.XRegs[1]
	if v.Tag() != value.Var {
		return value.Value{}, errTypeError(uint16(bytecode.IDefRoot), 0, "var")
	}
	copied, ok := marshal.ToRealm(p, p.XRegs[2])
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	p.Realm.VarSetRoot(v, copied)
	return v, nil
}

// intrinsicDefBinding implements def-binding: a process-bound
// redefinition. It deep-copies value as usual but records it in this
// process's binding table instead of the realm root, and flips on
// FlagProcessBound so var-get and read macros know to consult bindings.
func intrinsicDefBinding(p *process.Process) (value.Value, *IntrinsicError) {
	v := p.XRegs[1]
	if v.Tag() != value.Var {
		return value.Value{}, errTypeError(uint16(bytecode.IDefBinding), 0, "var")
	}
	copied, ok := marshal.ToRealm(p, p.XRegs[2])
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	content, ok := p.Realm.LoadVarContent(v)
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	p.Realm.VarSetFlags(v, content.Flags|value.FlagProcessBound)
	p.BindingSet(v.Addr(), copied)
	return v, nil
}

// intrinsicDefMeta implements def-meta: (def-meta v m), deep copying
// m into the realm and attaching it as v's metadata.
func intrinsicDefMeta(p *process.Process) (value.Value, *IntrinsicError) {
	v := p.XRegs[1]
	if v.Tag() != value.Var {
		return value.Value{}, errTypeError(uint16(bytecode.IDefMeta), 0, "var")
	}
	meta := p.XRegs[2]
	if meta.Tag() != value.Map {
		return value.Value{}, errTypeError(uint16(bytecode.IDefMeta), 1, "map")
	}
	copied, ok := marshal.ToRealm(p, meta)
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	p.Realm.SetMeta(v.Addr(), copied)
	return v, nil
}
