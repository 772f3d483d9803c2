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

// Package value implements Lona's tagged Value representation and
// the fixed heap record layouts it points into.
//
// A Value is a small tagged struct: immediates (Nil, Bool, Int,
// NativeFn, Unbound) carry their payload inline, and everything else
// (String, Symbol, Keyword, Pair, Tuple, Vector, Map, Namespace, Var,
// CompiledFn, Closure) carries a memspace.Vaddr pointing at a fixed-
// layout record. Records are decoded by the Read* functions in this
// package, which are pure functions of (Vaddr, memspace.Resolver) and
// work identically whether the address is in a process's young heap
// or a realm's code region.
package value

import "github.com/sarnowski/lona/memspace"

// Tag discriminates the variants of Value.
type Tag uint8

const (
	Nil Tag = iota
	Bool
	Int
	NativeFn
	Unbound
	String
	Symbol
	Keyword
	Pair
	Tuple
	Vector
	Map
	Namespace
	Var
	CompiledFn
	Closure
)

func (t Tag) String() string {
	switch t {
	case Nil:
		return "nil"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case NativeFn:
		return "native-fn"
	case Unbound:
		return "unbound"
	case String:
		return "string"
	case Symbol:
		return "symbol"
	case Keyword:
		return "keyword"
	case Pair:
		return "pair"
	case Tuple:
		return "tuple"
	case Vector:
		return "vector"
	case Map:
		return "map"
	case Namespace:
		return "namespace"
	case Var:
		return "var"
	case CompiledFn:
		return "compiled-fn"
	case Closure:
		return "closure"
	default:
		return "<unknown-tag>"
	}
}

// IsHeap reports whether values of this tag carry a memspace.Vaddr
// payload rather than an inline immediate.
func (t Tag) IsHeap() bool {
	switch t {
	case String, Symbol, Keyword, Pair, Tuple, Vector, Map, Namespace, Var, CompiledFn, Closure:
		return true
	default:
		return false
	}
}

// Value is Lona's universal tagged value. It is a plain Go struct,
// not an interface, so that X-register files and heap record bodies
// can hold arrays of them without boxing.
type Value struct {
	tag     Tag
	payload uint64 // immediate bits, or a memspace.Vaddr for heap tags
}

// Lona's canonical Nil value.
var NilValue = Value{tag: Nil}

// UnboundValue is the sentinel root of a declared-but-unset var.
var UnboundValue = Value{tag: Unbound}

// TrueValue and FalseValue are the two Bool immediates.
var (
	TrueValue  = Value{tag: Bool, payload: 1}
	FalseValue = Value{tag: Bool, payload: 0}
)

// Tag returns the value's discriminant.
func (v Value) Tag() Tag { return v.tag }

// MakeBool wraps a Go bool as a Value.
func MakeBool(b bool) Value {
	if b {
		return TrueValue
	}
	return FalseValue
}

// AsBool extracts the payload of a Bool value. The caller must have
// already checked Tag() == Bool.
func (v Value) AsBool() bool { return v.payload != 0 }

// MakeInt wraps a signed 64-bit integer as a Value.
func MakeInt(i int64) Value {
	return Value{tag: Int, payload: uint64(i)}
}

// AsInt extracts the payload of an Int value. The caller must have
// already checked Tag() == Int.
func (v Value) AsInt() int64 { return int64(v.payload) }

// MakeNativeFn wraps an intrinsic id as a Value.
func MakeNativeFn(id uint16) Value {
	return Value{tag: NativeFn, payload: uint64(id)}
}

// AsNativeFn extracts the intrinsic id of a NativeFn value.
func (v Value) AsNativeFn() uint16 { return uint16(v.payload) }

// MakeHeap wraps a memspace.Vaddr under the given heap tag. It panics
// if tag does not carry a heap payload; this is a programmer error,
// not a runtime condition, so a panic (rather than a second return
// value threaded through every allocator) is appropriate here.
func MakeHeap(tag Tag, addr memspace.Vaddr) Value {
	if !tag.IsHeap() {
		panic("value: MakeHeap called with non-heap tag " + tag.String())
	}
	return Value{tag: tag, payload: uint64(addr)}
}

// Addr extracts the memspace.Vaddr payload of a heap value. The
// caller must have already checked Tag().IsHeap().
func (v Value) Addr() memspace.Vaddr { return memspace.Vaddr(v.payload) }

// Truthy implements Lona's notion of "truthiness" for conditionals:
// everything except Nil and false is truthy.
func (v Value) Truthy() bool {
	switch v.tag {
	case Nil:
		return false
	case Bool:
		return v.payload != 0
	default:
		return true
	}
}
