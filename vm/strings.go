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
	"strconv"
	"strings"

	"github.com/sarnowski/lona/bytecode"
	"github.com/sarnowski/lona/process"
	"github.com/sarnowski/lona/value"
)

func intrinsicNilP(p *process.Process) (value.Value, *IntrinsicError) {
	return value.MakeBool(p.XRegs[1].Tag() == value.Nil), nil
}

func intrinsicIntegerP(p *process.Process) (value.Value, *IntrinsicError) {
	return value.MakeBool(p.XRegs[1].Tag() == value.Int), nil
}

func intrinsicStringP(p *process.Process) (value.Value, *IntrinsicError) {
	return value.MakeBool(p.XRegs[1].Tag() == value.String), nil
}

func intrinsicKeywordP(p *process.Process) (value.Value, *IntrinsicError) {
	return value.MakeBool(p.XRegs[1].Tag() == value.Keyword), nil
}

// intrinsicStr implements (str a b ...): concatenates the string
// representation of every argument. Reference-typed arguments that
// have no textual form print as an opaque placeholder, matching the
// read-back-able Nil/Bool/Int/String/Symbol/Keyword representations
// and otherwise favoring "doesn't crash" over round-trippability.
func intrinsicStr(p *process.Process, argc uint8) (value.Value, *IntrinsicError) {
	var sb strings.Builder
	for i := uint8(1); i <= argc; i++ {
		if err := writeStrRepr(p, &sb, p.XRegs[i]); err != nil {
			return value.Value{}, err
		}
	}
	s, ok := p.AllocString(sb.String())
	if !ok {
		return value.Value{}, errOutOfMemory()
	}
	return s, nil
}

func writeStrRepr(p *process.Process, sb *strings.Builder, v value.Value) *IntrinsicError {
	switch v.Tag() {
	case value.Nil:
		sb.WriteString("nil")
	case value.Bool:
		sb.WriteString(strconv.FormatBool(v.AsBool()))
	case value.Int:
		sb.WriteString(strconv.FormatInt(v.AsInt(), 10))
	case value.String, value.Symbol:
		b, ok := value.ReadString(p, v.Addr())
		if !ok {
			return errOutOfMemory()
		}
		sb.Write(b)
	case value.Keyword:
		b, ok := value.ReadString(p, v.Addr())
		if !ok {
			return errOutOfMemory()
		}
		sb.WriteByte(':')
		sb.Write(b)
	case value.Pair:
		sb.WriteString("<pair>")
	case value.Tuple:
		sb.WriteString("<tuple>")
	case value.Vector:
		sb.WriteString("<vector>")
	case value.Map:
		sb.WriteString("<map>")
	case value.Var:
		sb.WriteString("<var>")
	case value.Namespace:
		sb.WriteString("<namespace>")
	case value.CompiledFn:
		sb.WriteString("<fn>")
	case value.Closure:
		sb.WriteString("<closure>")
	case value.NativeFn:
		sb.WriteString("<native-fn>")
	case value.Unbound:
		sb.WriteString("<unbound>")
	}
	return nil
}

// intrinsicKeyword implements (keyword x): coerces a string, symbol
// or keyword's textual name into a Keyword.
func intrinsicKeyword(p *process.Process) (value.Value, *IntrinsicError) {
	v := p.XRegs[1]
	switch v.Tag() {
	case value.String, value.Symbol, value.Keyword:
		b, ok := value.ReadString(p, v.Addr())
		if !ok {
			return value.Value{}, errOutOfMemory()
		}
		kw, ok := p.AllocKeyword(string(b))
		if !ok {
			return value.Value{}, errOutOfMemory()
		}
		return kw, nil
	default:
		return value.Value{}, errTypeError(uint16(bytecode.IKeyword), 0, "string, symbol, or keyword")
	}
}

// intrinsicName implements (name x): the unqualified part of a
// symbol or keyword's text, i.e. everything after the last '/'.
func intrinsicName(p *process.Process) (value.Value, *IntrinsicError) {
	v := p.XRegs[1]
	switch v.Tag() {
	case value.Keyword, value.Symbol:
		b, ok := value.ReadString(p, v.Addr())
		if !ok {
			return value.Value{}, errOutOfMemory()
		}
		s := string(b)
		if i := strings.LastIndexByte(s, '/'); i >= 0 {
			s = s[i+1:]
		}
		out, ok := p.AllocString(s)
		if !ok {
			return value.Value{}, errOutOfMemory()
		}
		return out, nil
	default:
		return value.Value{}, errTypeError(uint16(bytecode.IName), 0, "keyword or symbol")
	}
}

// intrinsicNamespace implements (namespace x): the qualifying part of
// a symbol or keyword's text, i.e. everything before the last '/', or
// nil if the name is unqualified.
func intrinsicNamespace(p *process.Process) (value.Value, *IntrinsicError) {
	v := p.XRegs[1]
	switch v.Tag() {
	case value.Keyword, value.Symbol:
		b, ok := value.ReadString(p, v.Addr())
		if !ok {
			return value.Value{}, errOutOfMemory()
		}
		s := string(b)
		i := strings.LastIndexByte(s, '/')
		if i < 0 {
			return value.NilValue, nil
		}
		out, ok := p.AllocString(s[:i])
		if !ok {
			return value.Value{}, errOutOfMemory()
		}
		return out, nil
	default:
		return value.Value{}, errTypeError(uint16(bytecode.INamespace), 0, "keyword or symbol")
	}
}
