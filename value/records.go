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

// Every record header below is kept 8-byte aligned so that the
// Value array it is followed by (if any) starts aligned too.

// --- HeapString: used for String, Symbol, Keyword ---

const stringHeaderSize = 8 // len u32 + pad u32

// StringSize returns the total allocation size for a UTF-8 payload
// of n bytes, rounded up to 8-byte alignment.
func StringSize(n int) uint32 {
	return memspace.AlignUp(stringHeaderSize+uint32(n), 8)
}

// WriteString populates a HeapString record in buf (which must be
// at least StringSize(len(s)) bytes) with the bytes of s.
func WriteString(buf []byte, s []byte) {
	putU32(buf[0:4], uint32(len(s)))
	copy(buf[stringHeaderSize:], s)
}

// ReadString decodes the HeapString at addr.
func ReadString(r memspace.Resolver, addr memspace.Vaddr) ([]byte, bool) {
	sp, off, ok := memspace.Deref(r, addr)
	if !ok {
		return nil, false
	}
	hdr := sp.Bytes(off, stringHeaderSize)
	n := getU32(hdr[0:4])
	body := sp.Bytes(off+stringHeaderSize, n)
	out := make([]byte, n)
	copy(out, body)
	return out, true
}

// --- Pair: { first Value, rest Value } ---

const PairSize = 2 * ValueSize

// WritePair populates a Pair record in buf.
func WritePair(buf []byte, first, rest Value) {
	PutValue(buf[0:ValueSize], first)
	PutValue(buf[ValueSize:PairSize], rest)
}

// PairFields is the decoded body of a Pair record.
type PairFields struct {
	First Value
	Rest  Value
}

// ReadPair decodes the Pair at addr.
func ReadPair(r memspace.Resolver, addr memspace.Vaddr) (PairFields, bool) {
	sp, off, ok := memspace.Deref(r, addr)
	if !ok {
		return PairFields{}, false
	}
	buf := sp.Bytes(off, PairSize)
	return PairFields{
		First: GetValue(buf[0:ValueSize]),
		Rest:  GetValue(buf[ValueSize:PairSize]),
	}, true
}

// --- HeapTuple / Vector: { len u32, pad u32 } followed by len Values ---

const seqHeaderSize = 8

// SeqSize returns the total allocation size for n elements.
func SeqSize(n int) uint32 {
	return seqHeaderSize + uint32(n)*ValueSize
}

// WriteSeq populates a tuple/vector record in buf with elems.
func WriteSeq(buf []byte, elems []Value) {
	putU32(buf[0:4], uint32(len(elems)))
	PutValues(buf[seqHeaderSize:], elems)
}

// ReadSeq decodes the tuple/vector at addr.
func ReadSeq(r memspace.Resolver, addr memspace.Vaddr) ([]Value, bool) {
	sp, off, ok := memspace.Deref(r, addr)
	if !ok {
		return nil, false
	}
	hdr := sp.Bytes(off, seqHeaderSize)
	n := getU32(hdr[0:4])
	body := sp.Bytes(off+seqHeaderSize, n*ValueSize)
	return GetValues(body, int(n)), true
}

// --- HeapMap: { entries Value } where entries is a pair-chain of [k v] tuples ---

const MapSize = ValueSize

// WriteMap populates a HeapMap record in buf.
func WriteMap(buf []byte, entries Value) {
	PutValue(buf[0:ValueSize], entries)
}

// ReadMap decodes the HeapMap at addr, returning its entries list value.
func ReadMap(r memspace.Resolver, addr memspace.Vaddr) (Value, bool) {
	sp, off, ok := memspace.Deref(r, addr)
	if !ok {
		return Value{}, false
	}
	buf := sp.Bytes(off, MapSize)
	return GetValue(buf[0:ValueSize]), true
}

// --- Namespace: { name Value, mappings Value } ---

const NamespaceSize = 2 * ValueSize

// WriteNamespace populates a Namespace record in buf.
func WriteNamespace(buf []byte, name, mappings Value) {
	PutValue(buf[0:ValueSize], name)
	PutValue(buf[ValueSize:NamespaceSize], mappings)
}

// NamespaceFields is the decoded body of a Namespace record.
type NamespaceFields struct {
	Name     Value
	Mappings Value
}

// ReadNamespace decodes the Namespace at addr.
func ReadNamespace(r memspace.Resolver, addr memspace.Vaddr) (NamespaceFields, bool) {
	sp, off, ok := memspace.Deref(r, addr)
	if !ok {
		return NamespaceFields{}, false
	}
	buf := sp.Bytes(off, NamespaceSize)
	return NamespaceFields{
		Name:     GetValue(buf[0:ValueSize]),
		Mappings: GetValue(buf[ValueSize:NamespaceSize]),
	}, true
}

// --- VarSlot: { content Vaddr } — the only mutable word in the whole model ---

const VarSlotSize = 8

// WriteVarSlot populates a VarSlot record in buf.
func WriteVarSlot(buf []byte, content memspace.Vaddr) {
	putVaddr(buf[0:8], content)
}

// VarSlotContentOffset is the byte offset of a VarSlot's content word
// within its record, for use with atomic loads/stores by the realm.
const VarSlotContentOffset = 0

// ReadVarSlotContent decodes the content pointer of the VarSlot at addr
// with a plain (non-atomic) load; callers needing the MVCC acquire
// semantics of spec.md use realm.LoadVarContent instead.
func ReadVarSlotContent(r memspace.Resolver, addr memspace.Vaddr) (memspace.Vaddr, bool) {
	sp, off, ok := memspace.Deref(r, addr)
	if !ok {
		return 0, false
	}
	buf := sp.Bytes(off, VarSlotSize)
	return getVaddr(buf[0:8]), true
}

// --- VarContent: { name Vaddr, namespace Vaddr, root Value, flags u32, pad u32 } ---

const VarContentSize = 8 + 8 + ValueSize + 8

// VarFlags is the flags bitmap on a VarContent.
type VarFlags uint32

const (
	FlagProcessBound VarFlags = 1 << iota
	FlagSpecialForm
	FlagNative
)

func (f VarFlags) Has(bit VarFlags) bool { return f&bit != 0 }

// WriteVarContent populates a VarContent record in buf.
func WriteVarContent(buf []byte, name, namespace memspace.Vaddr, root Value, flags VarFlags) {
	putVaddr(buf[0:8], name)
	putVaddr(buf[8:16], namespace)
	PutValue(buf[16:16+ValueSize], root)
	putU32(buf[16+ValueSize:20+ValueSize], uint32(flags))
}

// VarContentFields is the decoded body of a VarContent record.
type VarContentFields struct {
	Name      memspace.Vaddr
	Namespace memspace.Vaddr
	Root      Value
	Flags     VarFlags
}

// ReadVarContent decodes the VarContent at addr.
func ReadVarContent(r memspace.Resolver, addr memspace.Vaddr) (VarContentFields, bool) {
	sp, off, ok := memspace.Deref(r, addr)
	if !ok {
		return VarContentFields{}, false
	}
	buf := sp.Bytes(off, VarContentSize)
	return VarContentFields{
		Name:      getVaddr(buf[0:8]),
		Namespace: getVaddr(buf[8:16]),
		Root:      GetValue(buf[16 : 16+ValueSize]),
		Flags:     VarFlags(getU32(buf[16+ValueSize : 20+ValueSize])),
	}, true
}

// --- HeapCompiledFn ---
//
// { arity u8, variadic u8, num_locals u8, pad u8,
//   code_len u32, constants_len u32,
//   pad u32,
//   source_file Vaddr, source_line u32, pad u32 }
// followed by code_len x u32 instructions (aligned to 8 after padding
// if code_len is odd), then constants_len x Value.

const compiledFnHeaderSize = 32

// CompiledFnHeader is the fixed-size prefix of a HeapCompiledFn.
type CompiledFnHeader struct {
	Arity        uint8
	Variadic     bool
	NumLocals    uint8
	CodeLen      uint32
	ConstantsLen uint32
	SourceFile   memspace.Vaddr
	SourceLine   uint32
}

func codeBytesLen(codeLen uint32) uint32 {
	return memspace.AlignUp(codeLen*4, 8)
}

// CompiledFnSize returns the total allocation size for a function
// with the given header counts.
func CompiledFnSize(codeLen, constantsLen uint32) uint32 {
	return compiledFnHeaderSize + codeBytesLen(codeLen) + constantsLen*ValueSize
}

// WriteCompiledFn populates a HeapCompiledFn record in buf.
func WriteCompiledFn(buf []byte, h CompiledFnHeader, code []uint32, constants []Value) {
	buf[0] = h.Arity
	if h.Variadic {
		buf[1] = 1
	} else {
		buf[1] = 0
	}
	buf[2] = h.NumLocals
	buf[3] = 0
	putU32(buf[4:8], h.CodeLen)
	putU32(buf[8:12], h.ConstantsLen)
	putU32(buf[12:16], 0)
	putVaddr(buf[16:24], h.SourceFile)
	putU32(buf[24:28], h.SourceLine)
	putU32(buf[28:32], 0)

	codeBuf := buf[compiledFnHeaderSize : compiledFnHeaderSize+codeBytesLen(h.CodeLen)]
	for i, ins := range code {
		binary.LittleEndian.PutUint32(codeBuf[i*4:], ins)
	}
	constBuf := buf[compiledFnHeaderSize+codeBytesLen(h.CodeLen):]
	PutValues(constBuf, constants)
}

// ReadCompiledFnHeader decodes only the fixed header of the
// HeapCompiledFn at addr.
func ReadCompiledFnHeader(r memspace.Resolver, addr memspace.Vaddr) (CompiledFnHeader, bool) {
	sp, off, ok := memspace.Deref(r, addr)
	if !ok {
		return CompiledFnHeader{}, false
	}
	buf := sp.Bytes(off, compiledFnHeaderSize)
	return CompiledFnHeader{
		Arity:        buf[0],
		Variadic:     buf[1] != 0,
		NumLocals:    buf[2],
		CodeLen:      getU32(buf[4:8]),
		ConstantsLen: getU32(buf[8:12]),
		SourceFile:   getVaddr(buf[16:24]),
		SourceLine:   getU32(buf[24:28]),
	}, true
}

// ReadCompiledFnCode decodes the code array of the HeapCompiledFn at addr.
func ReadCompiledFnCode(r memspace.Resolver, addr memspace.Vaddr) ([]uint32, bool) {
	h, ok := ReadCompiledFnHeader(r, addr)
	if !ok {
		return nil, false
	}
	sp, off, _ := memspace.Deref(r, addr)
	buf := sp.Bytes(off+compiledFnHeaderSize, h.CodeLen*4)
	out := make([]uint32, h.CodeLen)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return out, true
}

// ReadCompiledFnConstants decodes the constant pool of the
// HeapCompiledFn at addr.
func ReadCompiledFnConstants(r memspace.Resolver, addr memspace.Vaddr) ([]Value, bool) {
	h, ok := ReadCompiledFnHeader(r, addr)
	if !ok {
		return nil, false
	}
	sp, off, _ := memspace.Deref(r, addr)
	constOff := off + compiledFnHeaderSize + codeBytesLen(h.CodeLen)
	buf := sp.Bytes(constOff, h.ConstantsLen*ValueSize)
	return GetValues(buf, int(h.ConstantsLen)), true
}

// --- HeapClosure: { function Vaddr, captures_len u32, pad u32 } + captures ---

const closureHeaderSize = 16

// ClosureSize returns the total allocation size for a closure with
// capturesLen captured values.
func ClosureSize(capturesLen uint32) uint32 {
	return closureHeaderSize + capturesLen*ValueSize
}

// WriteClosure populates a HeapClosure record in buf.
func WriteClosure(buf []byte, fn memspace.Vaddr, captures []Value) {
	putVaddr(buf[0:8], fn)
	putU32(buf[8:12], uint32(len(captures)))
	putU32(buf[12:16], 0)
	PutValues(buf[closureHeaderSize:], captures)
}

// ClosureFields is the decoded body of a HeapClosure record.
type ClosureFields struct {
	Function memspace.Vaddr
	Captures []Value
}

// ReadClosure decodes the HeapClosure at addr.
func ReadClosure(r memspace.Resolver, addr memspace.Vaddr) (ClosureFields, bool) {
	sp, off, ok := memspace.Deref(r, addr)
	if !ok {
		return ClosureFields{}, false
	}
	hdr := sp.Bytes(off, closureHeaderSize)
	fn := getVaddr(hdr[0:8])
	n := getU32(hdr[8:12])
	body := sp.Bytes(off+closureHeaderSize, n*ValueSize)
	return ClosureFields{
		Function: fn,
		Captures: GetValues(body, int(n)),
	}, true
}
