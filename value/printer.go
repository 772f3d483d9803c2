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

package value

import (
	"strconv"
	"strings"

	"github.com/sarnowski/lona/memspace"
)

// Sprint renders v in surface syntax, resolving any heap references
// through r. An unreadable heap value (a dangling or out-of-range
// address) renders as "#<unreadable>" rather than panicking, since
// printing is used for diagnostics and must survive a half-broken
// heap.
func Sprint(r memspace.Resolver, v Value) string {
	var dst strings.Builder
	text(r, v, &dst)
	return dst.String()
}

// Print writes v's surface-syntax rendering to dst.
func Print(r memspace.Resolver, v Value, dst *strings.Builder) {
	text(r, v, dst)
}

func text(r memspace.Resolver, v Value, dst *strings.Builder) {
	switch v.tag {
	case Nil:
		dst.WriteString("nil")
	case Unbound:
		dst.WriteString("#unbound")
	case Bool:
		if v.AsBool() {
			dst.WriteString("true")
		} else {
			dst.WriteString("false")
		}
	case Int:
		dst.WriteString(strconv.FormatInt(v.AsInt(), 10))
	case NativeFn:
		dst.WriteString("#<native:")
		dst.WriteString(strconv.FormatUint(uint64(v.AsNativeFn()), 10))
		dst.WriteByte('>')
	case String:
		writeQuotedString(r, v, dst)
	case Symbol:
		writeRawString(r, v, dst)
	case Keyword:
		dst.WriteByte(':')
		writeRawString(r, v, dst)
	case Pair:
		textList(r, v, dst)
	case Tuple:
		textSeq(r, v, dst, '[', ']')
	case Vector:
		textSeq(r, v, dst, '{', '}')
	case Map:
		textMap(r, v, dst)
	case Namespace:
		dst.WriteString("#<namespace>")
	case Var:
		dst.WriteString("#<var>")
	case CompiledFn:
		dst.WriteString("#<fn>")
	case Closure:
		dst.WriteString("#<closure>")
	default:
		dst.WriteString("#<unknown>")
	}
}

func writeRawString(r memspace.Resolver, v Value, dst *strings.Builder) {
	b, ok := ReadString(r, v.Addr())
	if !ok {
		dst.WriteString("#<unreadable>")
		return
	}
	dst.Write(b)
}

func writeQuotedString(r memspace.Resolver, v Value, dst *strings.Builder) {
	b, ok := ReadString(r, v.Addr())
	if !ok {
		dst.WriteString("#<unreadable>")
		return
	}
	dst.WriteByte('"')
	for _, c := range b {
		switch c {
		case '"':
			dst.WriteString(`\"`)
		case '\\':
			dst.WriteString(`\\`)
		case '\n':
			dst.WriteString(`\n`)
		case '\t':
			dst.WriteString(`\t`)
		default:
			dst.WriteByte(c)
		}
	}
	dst.WriteByte('"')
}

// textList renders a Pair-chain as "(a b c)"; a non-Nil, non-Pair tail
// (an improper list) renders with a dot, "(a b . c)".
func textList(r memspace.Resolver, v Value, dst *strings.Builder) {
	dst.WriteByte('(')
	first := true
	current := v
	for current.tag == Pair {
		p, ok := ReadPair(r, current.Addr())
		if !ok {
			dst.WriteString("#<unreadable>")
			dst.WriteByte(')')
			return
		}
		if !first {
			dst.WriteByte(' ')
		}
		first = false
		text(r, p.First, dst)
		current = p.Rest
	}
	if current.tag != Nil {
		dst.WriteString(" . ")
		text(r, current, dst)
	}
	dst.WriteByte(')')
}

func textSeq(r memspace.Resolver, v Value, dst *strings.Builder, open, close byte) {
	dst.WriteByte(open)
	elems, ok := ReadSeq(r, v.Addr())
	if !ok {
		dst.WriteString("#<unreadable>")
		dst.WriteByte(close)
		return
	}
	for i, e := range elems {
		if i > 0 {
			dst.WriteByte(' ')
		}
		text(r, e, dst)
	}
	dst.WriteByte(close)
}

// textMap renders a Map as "%{k1 v1 k2 v2}" in most-recent-first
// order, the same order `keys`/`vals` observe.
func textMap(r memspace.Resolver, v Value, dst *strings.Builder) {
	dst.WriteString("%{")
	entries, ok := ReadMap(r, v.Addr())
	if !ok {
		dst.WriteString("#<unreadable>}")
		return
	}
	keys, vals := collectMapEntries(r, entries)
	for i := range keys {
		if i > 0 {
			dst.WriteByte(' ')
		}
		text(r, keys[i], dst)
		dst.WriteByte(' ')
		text(r, vals[i], dst)
	}
	dst.WriteByte('}')
}
