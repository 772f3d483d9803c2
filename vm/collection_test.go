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
	"testing"

	"github.com/sarnowski/lona/value"
)

func TestKeywordLiterals(t *testing.T) {
	p := setup(t)
	got := eval(t, p, ":foo")
	if got.Tag() != value.Keyword {
		t.Fatalf("expected keyword, got %v", got.Tag())
	}
	if b, ok := value.ReadString(p, got.Addr()); !ok || string(b) != "foo" {
		t.Errorf("got %q, want foo", b)
	}

	p = setup(t)
	got = eval(t, p, ":my.ns/bar")
	if b, ok := value.ReadString(p, got.Addr()); !ok || string(b) != "my.ns/bar" {
		t.Errorf("got %q, want my.ns/bar", b)
	}
}

func TestKeywordPredicateAndEquality(t *testing.T) {
	cases := []struct {
		src  string
		want value.Value
	}{
		{"(keyword? :foo)", value.TrueValue},
		{"(keyword? 'foo)", value.FalseValue},
		{"(keyword? 42)", value.FalseValue},
		{"(= :foo :foo)", value.TrueValue},
		{"(= :foo :bar)", value.FalseValue},
	}
	for _, c := range cases {
		p := setup(t)
		got := eval(t, p, c.src)
		if got != c.want {
			t.Errorf("eval(%q) = %+v, want %+v", c.src, got, c.want)
		}
	}
}

func TestNameIntrinsic(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"(name :foo)", "foo"},
		{"(name :my.ns/bar)", "bar"},
		{"(name 'foo)", "foo"},
		{"(name 'my.ns/bar)", "bar"},
	}
	for _, c := range cases {
		p := setup(t)
		got := eval(t, p, c.src)
		if s := mustString(t, p, got); s != c.want {
			t.Errorf("eval(%q) = %q, want %q", c.src, s, c.want)
		}
	}
}

func TestNamespaceIntrinsic(t *testing.T) {
	qualified := []struct {
		src  string
		want string
	}{
		{"(namespace :my.ns/bar)", "my.ns"},
		{"(namespace 'my.ns/bar)", "my.ns"},
	}
	for _, c := range qualified {
		p := setup(t)
		got := eval(t, p, c.src)
		if s := mustString(t, p, got); s != c.want {
			t.Errorf("eval(%q) = %q, want %q", c.src, s, c.want)
		}
	}

	for _, src := range []string{"(namespace :foo)", "(namespace 'foo)"} {
		p := setup(t)
		got := eval(t, p, src)
		if got.Tag() != value.Nil {
			t.Errorf("eval(%q) = %+v, want nil", src, got)
		}
	}
}

func TestTupleLiterals(t *testing.T) {
	p := setup(t)
	got := eval(t, p, "[1 2 3]")
	if got.Tag() != value.Tuple {
		t.Fatalf("expected tuple, got %v", got.Tag())
	}
	elems, ok := value.ReadSeq(p, got.Addr())
	if !ok || len(elems) != 3 {
		t.Fatalf("ReadSeq: %v %v", elems, ok)
	}
	for i, want := range []int64{1, 2, 3} {
		if elems[i].Tag() != value.Int || elems[i].AsInt() != want {
			t.Errorf("elems[%d] = %+v, want Int(%d)", i, elems[i], want)
		}
	}

	p = setup(t)
	got = eval(t, p, "[]")
	elems, ok = value.ReadSeq(p, got.Addr())
	if !ok || len(elems) != 0 {
		t.Fatalf("empty tuple: %v %v", elems, ok)
	}

	p = setup(t)
	got = eval(t, p, "[(+ 1 2) 4]")
	elems, _ = value.ReadSeq(p, got.Addr())
	if elems[0].AsInt() != 3 || elems[1].AsInt() != 4 {
		t.Errorf("elements not evaluated: %+v", elems)
	}

	p = setup(t)
	got = eval(t, p, "[[1 2] [3 4]]")
	elems, _ = value.ReadSeq(p, got.Addr())
	if elems[0].Tag() != value.Tuple {
		t.Errorf("nested tuple lost its tag: %+v", elems[0])
	}
}

func TestTuplePredicate(t *testing.T) {
	cases := []struct {
		src  string
		want value.Value
	}{
		{"(tuple? [1 2])", value.TrueValue},
		{"(tuple? '(1 2))", value.FalseValue},
		{"(tuple? 42)", value.FalseValue},
	}
	for _, c := range cases {
		p := setup(t)
		got := eval(t, p, c.src)
		if got != c.want {
			t.Errorf("eval(%q) = %+v, want %+v", c.src, got, c.want)
		}
	}
}

func TestNth(t *testing.T) {
	p := setup(t)
	for i, want := range []int64{10, 20, 30} {
		got := eval(t, p, "(nth [10 20 30] "+itoa(i)+")")
		if got.Tag() != value.Int || got.AsInt() != want {
			t.Errorf("(nth ... %d) = %+v, want %d", i, got, want)
		}
	}

	p = setup(t)
	got := eval(t, p, "(nth [10 20] 5 :fallback)")
	if got.Tag() != value.Keyword {
		t.Errorf("out-of-range nth with default should return the default, got %+v", got)
	}

	p = setup(t)
	if err := evalErr(t, p, "(nth [10 20] 5)"); err == nil {
		t.Errorf("out-of-range nth without a default should error")
	}
}

func itoa(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	var buf []byte
	for i > 0 {
		buf = append([]byte{digits[i%10]}, buf...)
		i /= 10
	}
	return string(buf)
}

func TestCount(t *testing.T) {
	cases := []struct {
		src  string
		want int64
	}{
		{"(count [1 2 3])", 3},
		{"(count [])", 0},
		{"(count nil)", 0},
		{`(count "hello")`, 5},
	}
	for _, c := range cases {
		p := setup(t)
		got := eval(t, p, c.src)
		if got.Tag() != value.Int || got.AsInt() != c.want {
			t.Errorf("eval(%q) = %+v, want Int(%d)", c.src, got, c.want)
		}
	}
}

func TestMapLiteralsAndPredicate(t *testing.T) {
	p := setup(t)
	got := eval(t, p, "%{}")
	if got.Tag() != value.Map {
		t.Fatalf("expected map, got %v", got.Tag())
	}

	cases := []struct {
		src  string
		want value.Value
	}{
		{"(map? %{:a 1})", value.TrueValue},
		{"(map? [1 2])", value.FalseValue},
		{"(map? 42)", value.FalseValue},
	}
	for _, c := range cases {
		p := setup(t)
		got := eval(t, p, c.src)
		if got != c.want {
			t.Errorf("eval(%q) = %+v, want %+v", c.src, got, c.want)
		}
	}
}

func TestMapGet(t *testing.T) {
	p := setup(t)
	got := eval(t, p, "(get %{:a 1 :b 2} :a)")
	if got.AsInt() != 1 {
		t.Errorf("get :a = %+v, want Int(1)", got)
	}

	p = setup(t)
	got = eval(t, p, "(get %{:a 1 :b 2} :b)")
	if got.AsInt() != 2 {
		t.Errorf("get :b = %+v, want Int(2)", got)
	}

	p = setup(t)
	got = eval(t, p, "(get %{:a 1} :x)")
	if got.Tag() != value.Nil {
		t.Errorf("missing key without default should be nil, got %+v", got)
	}

	p = setup(t)
	got = eval(t, p, "(get %{:a 1} :x :default)")
	if got.Tag() != value.Keyword {
		t.Errorf("missing key with default should return the default, got %+v", got)
	}
}

func TestMapPut(t *testing.T) {
	p := setup(t)
	got := eval(t, p, "(get (put %{:a 1} :b 2) :b)")
	if got.AsInt() != 2 {
		t.Errorf("put then get = %+v, want Int(2)", got)
	}

	p = setup(t)
	got = eval(t, p, "(get (put %{:a 1} :a 99) :a)")
	if got.AsInt() != 99 {
		t.Errorf("put overwriting an existing key = %+v, want Int(99)", got)
	}

	// put prepends onto the raw entries chain rather than replacing in
	// place, so overwriting a key still grows the entry count; `get`
	// sees the shadowed key correctly since it returns the first match.
	p = setup(t)
	got = eval(t, p, "(count (put %{:a 1} :a 99))")
	if got.AsInt() != 2 {
		t.Errorf("overwriting put grows the raw entry count, got %+v, want Int(2)", got)
	}
}

func TestMapKeysVals(t *testing.T) {
	p := setup(t)
	got := eval(t, p, "(count (keys %{:a 1 :b 2}))")
	if got.AsInt() != 2 {
		t.Errorf("(count (keys ...)) = %+v, want Int(2)", got)
	}

	p = setup(t)
	got = eval(t, p, "(count (vals %{:a 1 :b 2}))")
	if got.AsInt() != 2 {
		t.Errorf("(count (vals ...)) = %+v, want Int(2)", got)
	}
}

// TestMapKeysValsCountShadowedKey confirms count/keys/vals walk the
// raw entries chain rather than deduplicating: a repeated put leaves
// the same key twice, same as putting two distinct keys would.
func TestMapKeysValsCountShadowedKey(t *testing.T) {
	p := setup(t)
	got := eval(t, p, "(count (put (put %{} :a 1) :a 2))")
	if got.AsInt() != 2 {
		t.Errorf("count of a twice-put key = %+v, want Int(2)", got)
	}

	p = setup(t)
	got = eval(t, p, "(count (keys (put (put %{} :a 1) :a 2)))")
	if got.AsInt() != 2 {
		t.Errorf("count of keys of a twice-put key = %+v, want Int(2)", got)
	}

	p = setup(t)
	got = eval(t, p, "(first (keys (put (put %{} :a 1) :a 2)))")
	if got.Tag() != value.Keyword {
		t.Errorf("first key = %+v, want a keyword", got)
	}

	p = setup(t)
	got = eval(t, p, "(first (vals (put (put %{} :a 1) :a 2)))")
	if got.AsInt() != 2 {
		t.Errorf("first val of a twice-put key = %+v, want Int(2) (the most recent put)", got)
	}
}

func TestCallableDataStructures(t *testing.T) {
	p := setup(t)
	got := eval(t, p, "(:a %{:a 1 :b 2})")
	if got.AsInt() != 1 {
		t.Errorf("keyword-as-fn = %+v, want Int(1)", got)
	}

	p = setup(t)
	got = eval(t, p, "(%{:a 1} :a)")
	if got.AsInt() != 1 {
		t.Errorf("map-as-fn = %+v, want Int(1)", got)
	}

	p = setup(t)
	got = eval(t, p, "([10 20 30] 1)")
	if got.AsInt() != 20 {
		t.Errorf("tuple-as-fn = %+v, want Int(20)", got)
	}

	p = setup(t)
	got = eval(t, p, "(:missing %{:a 1} :fallback)")
	if got.Tag() != value.Keyword {
		t.Errorf("keyword-as-fn with default = %+v, want :fallback", got)
	}
}

func TestSequenceIntrinsics(t *testing.T) {
	p := setup(t)
	if got := eval(t, p, "(first [1 2 3])"); got.AsInt() != 1 {
		t.Errorf("(first [1 2 3]) = %+v, want Int(1)", got)
	}

	p = setup(t)
	if got := eval(t, p, "(first [])"); got.Tag() != value.Nil {
		t.Errorf("(first []) = %+v, want Nil", got)
	}

	p = setup(t)
	got := eval(t, p, "(count (rest [1 2 3]))")
	if got.AsInt() != 2 {
		t.Errorf("(count (rest [1 2 3])) = %+v, want Int(2)", got)
	}

	p = setup(t)
	if got := eval(t, p, "(rest [1])"); got.Tag() != value.Nil {
		t.Errorf("(rest [1]) = %+v, want Nil", got)
	}

	p = setup(t)
	if got := eval(t, p, "(empty? [])"); got != value.TrueValue {
		t.Errorf("(empty? []) = %+v, want true", got)
	}

	p = setup(t)
	if got := eval(t, p, "(empty? [1])"); got != value.FalseValue {
		t.Errorf("(empty? [1]) = %+v, want false", got)
	}

	p = setup(t)
	if got := eval(t, p, "(empty? nil)"); got != value.TrueValue {
		t.Errorf("(empty? nil) = %+v, want true", got)
	}
}

// TestStructuralEquality is the other deliberate divergence: heap
// collections compare by content, not by allocation identity.
func TestStructuralEquality(t *testing.T) {
	cases := []struct {
		src  string
		want value.Value
	}{
		{"(= [1 2 3] [1 2 3])", value.TrueValue},
		{"(= [1 2 3] [1 2 4])", value.FalseValue},
		{"(= [1 [2 3]] [1 [2 3]])", value.TrueValue},
		{"(= %{:a 1} %{:a 1})", value.TrueValue},
		{"(= %{:a 1} %{:a 2})", value.FalseValue},
		{`(= "abc" "abc")`, value.TrueValue},
		{"(= [] [])", value.TrueValue},
	}
	for _, c := range cases {
		p := setup(t)
		got := eval(t, p, c.src)
		if got != c.want {
			t.Errorf("eval(%q) = %+v, want %+v", c.src, got, c.want)
		}
	}
}
