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
	"github.com/sarnowski/lona/bytecode"
	"github.com/sarnowski/lona/value"
)

// CoreNamespace is the namespace every realm is seeded with, the home
// of the special forms and bootstrap intrinsics (spec.md §4.3).
const CoreNamespace = "lona.core"

// Bootstrap populates a freshly-created realm's lona.core namespace
// with the special-form placeholders and the full intrinsic set,
// then records the realm-default *ns* var. Called once by New; not
// meant to be called again on an already-bootstrapped realm.
func Bootstrap(r *Realm) {
	core := r.GetOrCreateNamespace(r.InternSymbol(CoreNamespace))

	for _, name := range []string{"def", "fn*", "quote", "do", "var", "match"} {
		seedVar(r, core, name, value.UnboundValue, value.FlagSpecialForm|value.FlagNative)
	}

	for id := 0; id < bytecode.Count; id++ {
		name := bytecode.Names[id]
		seedVar(r, core, name, value.MakeNativeFn(uint16(id)), value.FlagNative)
	}

	nsVar := r.AllocVar(
		r.InternSymbol("*ns*").Addr(),
		core.Addr(),
		core,
		value.FlagProcessBound,
	)
	r.AddNSMapping(core, r.InternSymbol("*ns*"), nsVar)
	r.nsVar = nsVar.Addr()
}

// seedVar interns name in ns and registers a var rooted at root with
// the given flags. Bootstrap vars are always freshly allocated rather
// than going through InternVar, since InternVar always seeds Unbound
// with no flags and bootstrap needs both a non-Unbound root (for
// intrinsics) and non-zero flags from the start.
func seedVar(r *Realm, ns value.Value, name string, root value.Value, flags value.VarFlags) value.Value {
	sym := r.InternSymbol(name)
	nsFields, _ := value.ReadNamespace(r, ns.Addr())
	v := r.AllocVar(sym.Addr(), nsFields.Name.Addr(), root, flags)
	r.AddNSMapping(ns, sym, v)
	return v
}

// NSVar returns the realm-default *ns* var allocated at bootstrap, so
// a newly-spawned process can bind its own *ns* binding without a
// namespace-registry scan (spec.md §4.1: process bootstrap "reads the
// realm's well-known *ns* var").
func (r *Realm) NSVar() value.Value {
	return value.MakeHeap(value.Var, r.nsVar)
}
