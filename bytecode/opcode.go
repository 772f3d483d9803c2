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

// Package bytecode defines Lona's fixed 32-bit instruction encoding,
// the opcode table, and the intrinsic-id space the compiler and VM
// share. It has no dependency on process/realm/vm so that both the
// compiler (which emits instructions) and the VM (which decodes and
// dispatches them) can import it without a cycle.
package bytecode

import "fmt"

// Op is an opcode identifier. The numeric values are this core's own
// contract, not meaningful outside of it (spec.md §4.5: "Opcodes
// (contract, not numeric values)").
type Op uint8

const (
	OpLoadNil Op = iota
	OpLoadBool
	OpLoadInt
	OpLoadK
	OpMove
	OpIntrinsic
	OpCall
	OpBuildTuple
	OpBuildVector
	OpBuildMap
	OpBuildClosure
	OpReturn
	OpHalt
	_maxOp
)

//go:generate stringer -type=Op -output=opcode_string.go

var opNames = [...]string{
	OpLoadNil:      "LOADNIL",
	OpLoadBool:     "LOADBOOL",
	OpLoadInt:      "LOADINT",
	OpLoadK:        "LOADK",
	OpMove:         "MOVE",
	OpIntrinsic:    "INTRINSIC",
	OpCall:         "CALL",
	OpBuildTuple:   "BUILD_TUPLE",
	OpBuildVector:  "BUILD_VECTOR",
	OpBuildMap:     "BUILD_MAP",
	OpBuildClosure: "BUILD_CLOSURE",
	OpReturn:       "RETURN",
	OpHalt:         "HALT",
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", o)
}

// Format distinguishes the two fixed 32-bit instruction layouts.
type Format uint8

const (
	// FormatA is opcode:6, A:8, B:9, C:9 — three small-index operands.
	FormatA Format = iota
	// FormatB is opcode:6, A:8, Bx:18 — an 18-bit immediate or pool index.
	FormatB
)

var opFormat = [...]Format{
	OpLoadNil:      FormatB,
	OpLoadBool:     FormatB,
	OpLoadInt:      FormatB,
	OpLoadK:        FormatB,
	OpMove:         FormatA,
	OpIntrinsic:    FormatA,
	OpCall:         FormatA,
	OpBuildTuple:   FormatA,
	OpBuildVector:  FormatA,
	OpBuildMap:     FormatA,
	OpBuildClosure: FormatA,
	OpReturn:       FormatB,
	OpHalt:         FormatB,
}

// FormatOf returns the instruction layout used to encode op.
func FormatOf(op Op) Format { return opFormat[op] }

const (
	opShift = 26
	opMask  = 0x3f
	aShiftA = 18
	aMaskA  = 0xff
	bShiftA = 9
	bMaskA  = 0x1ff
	cMaskA  = 0x1ff
	aShiftB = 18
	aMaskB  = 0xff
	bxMaskB = 0x3ffff
	bxBias  = 1 << 17 // sBx range is −131072..131071
)

// EncodeA packs a Format A instruction.
func EncodeA(op Op, a, b, c uint32) uint32 {
	return uint32(op)<<opShift | (a&aMaskA)<<aShiftA | (b&bMaskA)<<bShiftA | (c & cMaskA)
}

// DecodeOp extracts just the opcode from an instruction word without
// committing to either format, since FormatOf needs the opcode up
// front. The VM's main dispatch loop uses this before deciding which
// of DecodeA/DecodeB to apply.
func DecodeOp(ins uint32) Op {
	return Op((ins >> opShift) & opMask)
}

// DecodeA unpacks a Format A instruction.
func DecodeA(ins uint32) (op Op, a, b, c uint32) {
	op = Op((ins >> opShift) & opMask)
	a = (ins >> aShiftA) & aMaskA
	b = (ins >> bShiftA) & bMaskA
	c = ins & cMaskA
	return
}

// EncodeB packs a Format B instruction with an unsigned Bx.
func EncodeB(op Op, a uint32, bx uint32) uint32 {
	return uint32(op)<<opShift | (a&aMaskB)<<aShiftB | (bx & bxMaskB)
}

// EncodeBSigned packs a Format B instruction with a signed sBx in
// range [-131072, 131071].
func EncodeBSigned(op Op, a uint32, sbx int32) uint32 {
	return EncodeB(op, a, uint32(sbx+bxBias))
}

// DecodeB unpacks a Format B instruction, returning Bx unsigned.
func DecodeB(ins uint32) (op Op, a uint32, bx uint32) {
	op = Op((ins >> opShift) & opMask)
	a = (ins >> aShiftB) & aMaskB
	bx = ins & bxMaskB
	return
}

// DecodeBSigned unpacks a Format B instruction's Bx as a signed sBx.
func DecodeBSigned(ins uint32) (op Op, a uint32, sbx int32) {
	op, a, bxu := DecodeB(ins)
	sbx = int32(bxu) - bxBias
	return
}

// MaxRegister is the largest valid X-register index (X0..X255).
const MaxRegister = 255

// TempBase is the first compiler-temp register (X128..X255 are
// reserved for the compiler, spec.md §4.5).
const TempBase = 128

// MaxArity is the largest argument count a CALL/INTRINSIC may carry
// (spec.md's TooManyArguments bound of 254).
const MaxArity = 254
