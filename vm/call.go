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
	"fmt"

	"github.com/sarnowski/lona/bytecode"
	"github.com/sarnowski/lona/process"
	"github.com/sarnowski/lona/value"
)

// dispatchCall implements CALL fnReg argc (spec.md §4.7): it decides,
// by the callee's tag, whether this is a user function invocation
// (pushed=true, p.Chunk/p.IP switch to the callee and the dispatch
// loop must not advance ip itself) or a synchronous completion
// (pushed=false, the result lands in X0 and the loop advances ip as
// usual).
func dispatchCall(p *process.Process, fnReg uint32, argc uint8) (pushed bool, err error) {
	fn := p.XRegs[fnReg]
	switch fn.Tag() {
	case value.CompiledFn:
		return true, invokeCompiledFn(p, fn, argc, nil)
	case value.Closure:
		fields, ok := value.ReadClosure(p, fn.Addr())
		if !ok {
			return false, errOOM()
		}
		fnVal := value.MakeHeap(value.CompiledFn, fields.Function)
		return true, invokeCompiledFn(p, fnVal, argc, capturesOf(p, fn))
	case value.NativeFn:
		result, ierr := callIntrinsic(p, bytecode.IntrinsicID(fn.AsNativeFn()), argc)
		if ierr != nil {
			return false, errIntrinsic(ierr)
		}
		p.XRegs[0] = result
		return false, nil
	case value.Keyword:
		result, rerr := callKeyword(p, fn, argc)
		if rerr != nil {
			return false, rerr
		}
		p.XRegs[0] = result
		return false, nil
	case value.Map:
		result, rerr := callMap(p, fn, argc)
		if rerr != nil {
			return false, rerr
		}
		p.XRegs[0] = result
		return false, nil
	case value.Tuple:
		result, rerr := callTuple(p, fn, argc)
		if rerr != nil {
			return false, rerr
		}
		p.XRegs[0] = result
		return false, nil
	default:
		return false, errNotCallable(typeName(fn.Tag()))
	}
}

// capturesOf reads a Closure's capture array, or nil on a read
// failure (invokeCompiledFn treats nil as "no captures").
func capturesOf(p *process.Process, closure value.Value) []value.Value {
	fields, ok := value.ReadClosure(p, closure.Addr())
	if !ok {
		return nil
	}
	return fields.Captures
}

// invokeCompiledFn checks arity, installs the function's code as the
// current chunk, places positional args (already sitting in X1..Xargc
// by the compiler's calling convention), collects a variadic tail
// into a tuple at X(arity+1), loads captures (if any) into the
// registers immediately following, and pushes the caller's frame.
func invokeCompiledFn(p *process.Process, fn value.Value, argc uint8, captures []value.Value) error {
	hdr, ok := value.ReadCompiledFnHeader(p, fn.Addr())
	if !ok {
		return errOOM()
	}
	arity := uint32(hdr.Arity)

	if hdr.Variadic {
		if uint32(argc) < arity {
			return errArityMismatch(fmt.Sprintf(">=%d", arity), int(argc))
		}
		rest := window(p, arity+1, uint32(argc)-arity)
		restVal, ok := p.AllocTuple(rest)
		if !ok {
			return errOOM()
		}
		p.XRegs[arity+1] = restVal
	} else if uint32(argc) != arity {
		return errArityMismatch(fmt.Sprintf("%d", arity), int(argc))
	}

	for i, cap := range captures {
		p.XRegs[arity+1+uint32(i)] = cap
	}

	code, ok := value.ReadCompiledFnCode(p, fn.Addr())
	if !ok {
		return errOOM()
	}
	constants, ok := value.ReadCompiledFnConstants(p, fn.Addr())
	if !ok {
		return errOOM()
	}

	p.IP++
	if !p.PushFrame() {
		return errCallStackOverflow()
	}
	p.SetChunk(&bytecode.Chunk{Code: code, Constants: constants})
	return nil
}

// callKeyword implements `(:k m)` / `(:k m default)` ≡ (get m :k).
func callKeyword(p *process.Process, kw value.Value, argc uint8) (value.Value, error) {
	if argc < 1 || argc > 2 {
		return value.Value{}, errCallableArity("1-2", int(argc))
	}
	m := p.XRegs[1]
	if m.Tag() != value.Map {
		return value.Value{}, errCallableType("keyword", 0, "map")
	}
	def := value.NilValue
	if argc == 2 {
		def = p.XRegs[2]
	}
	return mapGet(p, m, kw, def)
}

// callMap implements `(m k)` / `(m k default)` ≡ (get m k).
func callMap(p *process.Process, m value.Value, argc uint8) (value.Value, error) {
	if argc < 1 || argc > 2 {
		return value.Value{}, errCallableArity("1-2", int(argc))
	}
	key := p.XRegs[1]
	def := value.NilValue
	if argc == 2 {
		def = p.XRegs[2]
	}
	return mapGet(p, m, key, def)
}

// callTuple implements `([t] i)` / `([t] i default)` ≡ (nth t i).
func callTuple(p *process.Process, t value.Value, argc uint8) (value.Value, error) {
	if argc < 1 || argc > 2 {
		return value.Value{}, errCallableArity("1-2", int(argc))
	}
	idx := p.XRegs[1]
	if idx.Tag() != value.Int {
		return value.Value{}, errCallableType("tuple", 0, "integer")
	}
	elems, ok := value.ReadSeq(p, t.Addr())
	if !ok {
		return value.Value{}, errOOM()
	}
	i := idx.AsInt()
	if i < 0 || i >= int64(len(elems)) {
		if argc == 2 {
			return p.XRegs[2], nil
		}
		return value.Value{}, &RuntimeError{Kind: KindIntrinsic, Cause: errIndexOutOfBounds(i, len(elems))}
	}
	return elems[i], nil
}

// typeName maps a Tag to the vocabulary spec.md's NotCallable and
// type-error messages use (spelled-out type names, not the terse
// Tag.String() used for debugging output).
func typeName(t value.Tag) string {
	switch t {
	case value.Nil:
		return "nil"
	case value.Bool:
		return "boolean"
	case value.Int:
		return "integer"
	case value.NativeFn:
		return "function"
	case value.Unbound:
		return "unbound"
	case value.String:
		return "string"
	case value.Symbol:
		return "symbol"
	case value.Keyword:
		return "keyword"
	case value.Pair:
		return "pair"
	case value.Tuple:
		return "tuple"
	case value.Vector:
		return "vector"
	case value.Map:
		return "map"
	case value.Namespace:
		return "namespace"
	case value.Var:
		return "var"
	case value.CompiledFn, value.Closure:
		return "function"
	default:
		return "unknown"
	}
}
