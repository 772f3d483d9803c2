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

func TestFnCallSimple(t *testing.T) {
	p := setup(t)
	got := eval(t, p, "((fn* [x] (+ x 1)) 5)")
	if got.Tag() != value.Int || got.AsInt() != 6 {
		t.Errorf("got %+v, want Int(6)", got)
	}
}

func TestFnMultiArg(t *testing.T) {
	p := setup(t)
	got := eval(t, p, "((fn* [a b c] (+ a (+ b c))) 1 2 3)")
	if got.AsInt() != 6 {
		t.Errorf("got %+v, want Int(6)", got)
	}
}

func TestFnVariadic(t *testing.T) {
	p := setup(t)
	got := eval(t, p, "((fn* [a & rest] (count rest)) 1 2 3 4)")
	if got.AsInt() != 3 {
		t.Errorf("got %+v, want Int(3)", got)
	}

	p = setup(t)
	got = eval(t, p, "((fn* [a & rest] (count rest)) 1)")
	if got.AsInt() != 0 {
		t.Errorf("got %+v, want Int(0) for an empty variadic tail", got)
	}
}

func TestFnArityMismatch(t *testing.T) {
	p := setup(t)
	if err := evalErr(t, p, "((fn* [a b] a) 1)"); err == nil {
		t.Errorf("too few arguments should error")
	}

	p = setup(t)
	if err := evalErr(t, p, "((fn* [a b] a) 1 2 3)"); err == nil {
		t.Errorf("too many arguments should error")
	}
}

func TestDefAndLookup(t *testing.T) {
	p := setup(t)
	eval(t, p, "(def add1 (fn* [x] (+ x 1)))")
	got := eval(t, p, "(add1 41)")
	if got.AsInt() != 42 {
		t.Errorf("got %+v, want Int(42)", got)
	}
}

func TestNestedDefChain(t *testing.T) {
	p := setup(t)
	eval(t, p, "(def a10 (fn* [x] (+ x 10)))")
	eval(t, p, "(def a9 (fn* [x] (a10 (+ x 9))))")
	eval(t, p, "(def a8 (fn* [x] (a9 (+ x 8))))")
	got := eval(t, p, "(a8 0)")
	if got.AsInt() != 27 {
		t.Errorf("got %+v, want Int(27)", got)
	}
}

func TestClosureCapture(t *testing.T) {
	p := setup(t)
	got := eval(t, p, "(((fn* [x] (fn* [y] (+ x y))) 10) 5)")
	if got.AsInt() != 15 {
		t.Errorf("single-level capture: got %+v, want Int(15)", got)
	}

	p = setup(t)
	got = eval(t, p, "((((fn* [x] (fn* [y] (fn* [z] (+ x (+ y z))))) 1) 2) 3)")
	if got.AsInt() != 6 {
		t.Errorf("multi-level capture: got %+v, want Int(6)", got)
	}
}

func TestClosuresAreIndependent(t *testing.T) {
	p := setup(t)
	eval(t, p, "(def make-adder (fn* [n] (fn* [x] (+ x n))))")
	eval(t, p, "(def add5 (make-adder 5))")
	eval(t, p, "(def add10 (make-adder 10))")

	got := eval(t, p, "(add5 1)")
	if got.AsInt() != 6 {
		t.Errorf("add5(1) = %+v, want Int(6)", got)
	}
	got = eval(t, p, "(add10 1)")
	if got.AsInt() != 11 {
		t.Errorf("add10(1) = %+v, want Int(11)", got)
	}
}

func TestFnP(t *testing.T) {
	cases := []struct {
		src  string
		want value.Value
	}{
		{"(fn? (fn* [x] x))", value.TrueValue},
		{"(fn? +)", value.TrueValue},
		{"(fn? 42)", value.FalseValue},
	}
	for _, c := range cases {
		p := setup(t)
		got := eval(t, p, c.src)
		if got != c.want {
			t.Errorf("eval(%q) = %+v, want %+v", c.src, got, c.want)
		}
	}
}

func TestNotCallable(t *testing.T) {
	p := setup(t)
	if err := evalErr(t, p, "(42 1 2)"); err == nil {
		t.Errorf("calling an integer should produce a NotCallable error")
	}
}
