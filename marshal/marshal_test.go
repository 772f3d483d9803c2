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

package marshal

import (
	"testing"

	"github.com/sarnowski/lona/process"
	"github.com/sarnowski/lona/realm"
	"github.com/sarnowski/lona/value"
)

func setup(t *testing.T) *process.Process {
	t.Helper()
	r := realm.New(64 * 1024)
	return process.New(r, 1, 64*1024)
}

func TestToRealmImmediates(t *testing.T) {
	p := setup(t)
	for _, v := range []value.Value{value.NilValue, value.TrueValue, value.FalseValue, value.MakeInt(42), value.UnboundValue} {
		got, ok := ToRealm(p, v)
		if !ok {
			t.Fatalf("ToRealm(%+v) failed", v)
		}
		if got != v {
			t.Errorf("ToRealm(%+v) = %+v, want unchanged", v, got)
		}
	}
}

func TestToRealmString(t *testing.T) {
	p := setup(t)
	s, ok := p.AllocString("hello")
	if !ok {
		t.Fatalf("AllocString failed")
	}
	got, ok := ToRealm(p, s)
	if !ok {
		t.Fatalf("ToRealm failed")
	}
	if got.Tag() != value.String {
		t.Fatalf("got tag %v, want String", got.Tag())
	}
	b, ok := value.ReadString(p.Realm, got.Addr())
	if !ok || string(b) != "hello" {
		t.Errorf("realm string = %q, ok=%v, want \"hello\"", b, ok)
	}
}

// TestToRealmSymbolInterning confirms two process-local symbols with
// the same name collapse onto the realm's single interned instance
// rather than each getting its own realm allocation.
func TestToRealmSymbolInterning(t *testing.T) {
	p := setup(t)
	sym1, _ := p.AllocSymbol("foo")
	sym2, _ := p.AllocSymbol("foo") // same process-local intern table entry
	got1, ok1 := ToRealm(p, sym1)
	got2, ok2 := ToRealm(p, sym2)
	if !ok1 || !ok2 {
		t.Fatalf("ToRealm failed: ok1=%v ok2=%v", ok1, ok2)
	}
	if got1.Addr() != got2.Addr() {
		t.Errorf("two process-local symbols named %q landed at different realm addresses: %v vs %v", "foo", got1.Addr(), got2.Addr())
	}
	want := p.Realm.InternSymbol("foo")
	if got1.Addr() != want.Addr() {
		t.Errorf("ToRealm symbol addr = %v, want the realm's own intern of the same name %v", got1.Addr(), want.Addr())
	}
}

func TestToRealmList(t *testing.T) {
	p := setup(t)
	tail, _ := p.AllocPair(value.MakeInt(3), value.NilValue)
	mid, _ := p.AllocPair(value.MakeInt(2), tail)
	head, _ := p.AllocPair(value.MakeInt(1), mid)

	got, ok := ToRealm(p, head)
	if !ok {
		t.Fatalf("ToRealm failed")
	}
	var elems []int64
	cur := got
	for cur.Tag() == value.Pair {
		fields, ok := value.ReadPair(p.Realm, cur.Addr())
		if !ok {
			t.Fatalf("ReadPair on copied list failed")
		}
		elems = append(elems, fields.First.AsInt())
		cur = fields.Rest
	}
	if len(elems) != 3 || elems[0] != 1 || elems[1] != 2 || elems[2] != 3 {
		t.Errorf("copied list = %v, want [1 2 3]", elems)
	}
}

// TestToRealmSharedSubstructure confirms a value graph that
// references the same nested tuple twice is copied once, and the
// copy's two references still alias each other.
func TestToRealmSharedSubstructure(t *testing.T) {
	p := setup(t)
	shared, _ := p.AllocTuple([]value.Value{value.MakeInt(9)})
	outer, _ := p.AllocTuple([]value.Value{shared, shared})

	got, ok := ToRealm(p, outer)
	if !ok {
		t.Fatalf("ToRealm failed")
	}
	elems, ok := value.ReadSeq(p.Realm, got.Addr())
	if !ok || len(elems) != 2 {
		t.Fatalf("ReadSeq(copied outer) = %v, %v", elems, ok)
	}
	if elems[0].Addr() != elems[1].Addr() {
		t.Errorf("shared substructure was copied twice: %v != %v", elems[0].Addr(), elems[1].Addr())
	}
}

func TestToRealmVectorAndMap(t *testing.T) {
	p := setup(t)
	vec, _ := p.AllocVector([]value.Value{value.MakeInt(1), value.MakeInt(2)})
	gotVec, ok := ToRealm(p, vec)
	if !ok || gotVec.Tag() != value.Vector {
		t.Fatalf("ToRealm(vector) = %+v, ok=%v", gotVec, ok)
	}
	elems, ok := value.ReadSeq(p.Realm, gotVec.Addr())
	if !ok || len(elems) != 2 || elems[0].AsInt() != 1 || elems[1].AsInt() != 2 {
		t.Errorf("copied vector = %v, ok=%v", elems, ok)
	}

	k, _ := p.AllocKeyword("a")
	m, _ := p.AllocMap([]value.Value{k}, []value.Value{value.MakeInt(5)})
	gotMap, ok := ToRealm(p, m)
	if !ok || gotMap.Tag() != value.Map {
		t.Fatalf("ToRealm(map) = %+v, ok=%v", gotMap, ok)
	}
	entries, ok := value.ReadMap(p.Realm, gotMap.Addr())
	if !ok {
		t.Fatalf("ReadMap(copied map) failed")
	}
	kv, ok := value.ReadPair(p.Realm, entries.Addr())
	if !ok {
		t.Fatalf("ReadPair(copied map entries) failed")
	}
	pair, ok := value.ReadSeq(p.Realm, kv.First.Addr())
	if !ok || len(pair) != 2 || pair[1].AsInt() != 5 {
		t.Errorf("copied map entry = %v, ok=%v, want [:a 5]", pair, ok)
	}
}

// TestToRealmVarPassesThrough confirms a Var/Namespace value is
// assumed already realm-resident and passes through ToRealm
// unchanged, since the only way to construct either is through the
// realm API.
func TestToRealmVarPassesThrough(t *testing.T) {
	p := setup(t)
	nsVar := p.Realm.NSVar()
	got, ok := ToRealm(p, nsVar)
	if !ok {
		t.Fatalf("ToRealm(Var) failed")
	}
	if got != nsVar {
		t.Errorf("ToRealm(Var) = %+v, want unchanged %+v", got, nsVar)
	}
}
