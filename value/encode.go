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
	"encoding/binary"

	"github.com/sarnowski/lona/memspace"
)

// ValueSize is the on-heap size of an encoded Value: an 8-byte tag
// word followed by an 8-byte payload word, kept 8-byte aligned so
// that arrays of Values (tuple/vector bodies, closure captures,
// constant pools) can be indexed without re-scanning.
const ValueSize = 16

// PutValue encodes v into buf[0:ValueSize].
func PutValue(buf []byte, v Value) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(v.tag))
	binary.LittleEndian.PutUint64(buf[8:16], v.payload)
}

// GetValue decodes a Value from buf[0:ValueSize].
func GetValue(buf []byte) Value {
	return Value{
		tag:     Tag(binary.LittleEndian.Uint64(buf[0:8])),
		payload: binary.LittleEndian.Uint64(buf[8:16]),
	}
}

// PutValues encodes a slice of Values contiguously into buf, which
// must be at least len(vs)*ValueSize bytes.
func PutValues(buf []byte, vs []Value) {
	for i, v := range vs {
		PutValue(buf[i*ValueSize:], v)
	}
}

// GetValues decodes n contiguous Values from buf.
func GetValues(buf []byte, n int) []Value {
	out := make([]Value, n)
	for i := range out {
		out[i] = GetValue(buf[i*ValueSize:])
	}
	return out
}

func putU32(buf []byte, x uint32)           { binary.LittleEndian.PutUint32(buf, x) }
func getU32(buf []byte) uint32              { return binary.LittleEndian.Uint32(buf) }
func putVaddr(buf []byte, v memspace.Vaddr) { binary.LittleEndian.PutUint64(buf, uint64(v)) }
func getVaddr(buf []byte) memspace.Vaddr    { return memspace.Vaddr(binary.LittleEndian.Uint64(buf)) }
