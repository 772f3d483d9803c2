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
	"testing"

	"github.com/sarnowski/lona/bytecode"
	"github.com/sarnowski/lona/value"
)

// lookupCore resolves name in the CoreNamespace, failing the test if
// it is not mapped at all.
func lookupCore(t *testing.T, r *Realm, name string) value.Value {
	t.Helper()
	sym, ok := r.FindSymbol(name)
	if !ok {
		t.Fatalf("symbol %q was never interned by Bootstrap", name)
	}
	ns, ok := r.FindNamespaceByName(CoreNamespace)
	if !ok {
		t.Fatalf("%s namespace missing", CoreNamespace)
	}
	v, ok := r.LookupMapping(ns, sym)
	if !ok {
		t.Fatalf("%q has no mapping in %s", name, CoreNamespace)
	}
	return v
}

func TestBootstrapSpecialForms(t *testing.T) {
	r := New(64 * 1024)
	for _, name := range []string{"def", "fn*", "quote", "do", "var", "match"} {
		v := lookupCore(t, r, name)
		fields, ok := r.LoadVarContent(v)
		if !ok {
			t.Fatalf("%q: LoadVarContent failed", name)
		}
		if fields.Flags&value.FlagSpecialForm == 0 {
			t.Errorf("%q: expected FlagSpecialForm set, flags=%d", name, fields.Flags)
		}
		if fields.Flags&value.FlagNative == 0 {
			t.Errorf("%q: expected FlagNative set, flags=%d", name, fields.Flags)
		}
		root, ok := r.VarGet(v)
		if !ok || root.Tag() != value.Unbound {
			t.Errorf("%q: root = %+v, want Unbound", name, root)
		}
	}
}

// TestBootstrapIntrinsicsByName walks every bytecode.IntrinsicID by
// name, confirming Bootstrap registered each one as a NativeFn var
// carrying its own id, the way realm/bootstrap_test.rs originally
// asserted for the whole intrinsic table.
func TestBootstrapIntrinsicsByName(t *testing.T) {
	r := New(64 * 1024)
	for id := 0; id < bytecode.Count; id++ {
		name := bytecode.Names[id]
		v := lookupCore(t, r, name)
		fields, ok := r.LoadVarContent(v)
		if !ok {
			t.Fatalf("%q: LoadVarContent failed", name)
		}
		if fields.Flags&value.FlagNative == 0 {
			t.Errorf("%q: expected FlagNative set, flags=%d", name, fields.Flags)
		}
		if fields.Flags&value.FlagSpecialForm != 0 {
			t.Errorf("%q: intrinsic should not carry FlagSpecialForm", name)
		}
		root, ok := r.VarGet(v)
		if !ok || root.Tag() != value.NativeFn {
			t.Fatalf("%q: root = %+v, want NativeFn", name, root)
		}
		if root.AsNativeFn() != uint16(id) {
			t.Errorf("%q: NativeFn id = %d, want %d", name, root.AsNativeFn(), id)
		}
	}
}

func TestBootstrapDefaultNamespace(t *testing.T) {
	r := New(64 * 1024)
	nsVar := r.NSVar()
	if nsVar.Tag() != value.Var {
		t.Fatalf("NSVar() = %+v, want a Var", nsVar)
	}
	fields, ok := r.LoadVarContent(nsVar)
	if !ok {
		t.Fatalf("LoadVarContent(NSVar()) failed")
	}
	if fields.Flags&value.FlagProcessBound == 0 {
		t.Errorf("*ns* should be process-bound, flags=%d", fields.Flags)
	}
	root, ok := r.VarGet(nsVar)
	if !ok || root.Tag() != value.Namespace {
		t.Fatalf("*ns* root = %+v, want Namespace", root)
	}
	nsFields, ok := value.ReadNamespace(r, root.Addr())
	if !ok {
		t.Fatalf("ReadNamespace(*ns* root) failed")
	}
	name, ok := r.SymbolName(nsFields.Name)
	if !ok || name != CoreNamespace {
		t.Errorf("*ns* root name = %q, want %q", name, CoreNamespace)
	}
}

func TestBootstrapIsIdempotentPerRealm(t *testing.T) {
	// New calls Bootstrap internally exactly once; confirm a second
	// realm gets its own independent bootstrap rather than sharing
	// state through any package-level table.
	r1 := New(64 * 1024)
	r2 := New(64 * 1024)
	v1 := lookupCore(t, r1, "def")
	v2 := lookupCore(t, r2, "def")
	r1.VarSetRoot(v1, value.MakeInt(1))
	if root, ok := r2.VarGet(v2); !ok || root.Tag() != value.Unbound {
		t.Errorf("updating a var in one realm changed the other realm's var: root = %+v", root)
	}
}
