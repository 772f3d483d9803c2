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

// Package vm implements Lona's yielding register-machine interpreter
// (spec.md §4.7): a cooperative dispatch loop over a process's
// installed chunk, a bounded call stack for CALL/RETURN, and the
// intrinsic dispatch table INTRINSIC instructions invoke.
package vm

import (
	"github.com/sarnowski/lona/bytecode"
	"github.com/sarnowski/lona/process"
	"github.com/sarnowski/lona/value"
)

// Run executes p.Chunk from p.IP until it halts, returns at the top
// level, yields on an exhausted reduction budget, or hits a runtime
// error. Resumption after Yielded is just calling Run again once the
// host has replenished p.Reductions; all other state (ip, registers,
// call stack) is left exactly as the dispatch loop exits it
// (spec.md §4.7, §5: "Yield is not an error").
func Run(p *process.Process) (value.Value, RunResult, error) {
	if p.Chunk == nil {
		return value.NilValue, 0, ErrNoCode
	}

	for {
		if p.Reductions <= 0 {
			return value.NilValue, Yielded, nil
		}
		if p.IP >= uint32(len(p.Chunk.Code)) {
			return value.NilValue, 0, errIPOutOfBounds()
		}

		ins := p.Chunk.Code[p.IP]
		op := bytecode.DecodeOp(ins)

		switch op {
		case bytecode.OpLoadNil:
			_, a, _ := bytecode.DecodeB(ins)
			p.XRegs[a] = value.NilValue
			p.IP++
			consume(p)

		case bytecode.OpLoadBool:
			_, a, bx := bytecode.DecodeB(ins)
			p.XRegs[a] = value.MakeBool(bx != 0)
			p.IP++
			consume(p)

		case bytecode.OpLoadInt:
			_, a, sbx := bytecode.DecodeBSigned(ins)
			p.XRegs[a] = value.MakeInt(int64(sbx))
			p.IP++
			consume(p)

		case bytecode.OpLoadK:
			_, a, bx := bytecode.DecodeB(ins)
			if int(bx) >= len(p.Chunk.Constants) {
				return value.NilValue, 0, errConstantOutOfBounds(bx)
			}
			p.XRegs[a] = p.Chunk.Constants[bx]
			p.IP++
			consume(p)

		case bytecode.OpMove:
			_, a, b, _ := bytecode.DecodeA(ins)
			p.XRegs[a] = p.XRegs[b]
			p.IP++
			consume(p)

		case bytecode.OpIntrinsic:
			_, a, b, _ := bytecode.DecodeA(ins)
			result, err := callIntrinsic(p, bytecode.IntrinsicID(a), uint8(b))
			if err != nil {
				return value.NilValue, 0, errIntrinsic(err)
			}
			p.XRegs[0] = result
			p.IP++
			consume(p)

		case bytecode.OpCall:
			_, a, b, _ := bytecode.DecodeA(ins)
			pushed, err := dispatchCall(p, a, uint8(b))
			if err != nil {
				return value.NilValue, 0, err
			}
			consume(p)
			if !pushed {
				p.IP++
			}

		case bytecode.OpBuildTuple:
			_, a, b, c := bytecode.DecodeA(ins)
			v, ok := p.AllocTuple(window(p, b, c))
			if !ok {
				return value.NilValue, 0, errOOM()
			}
			p.XRegs[a] = v
			p.IP++
			consume(p)

		case bytecode.OpBuildVector:
			_, a, b, c := bytecode.DecodeA(ins)
			v, ok := p.AllocVector(window(p, b, c))
			if !ok {
				return value.NilValue, 0, errOOM()
			}
			p.XRegs[a] = v
			p.IP++
			consume(p)

		case bytecode.OpBuildMap:
			_, a, b, c := bytecode.DecodeA(ins)
			keys := make([]value.Value, c)
			vals := make([]value.Value, c)
			for i := uint32(0); i < c; i++ {
				keys[i] = p.XRegs[b+2*i]
				vals[i] = p.XRegs[b+2*i+1]
			}
			v, ok := p.AllocMap(keys, vals)
			if !ok {
				return value.NilValue, 0, errOOM()
			}
			p.XRegs[a] = v
			p.IP++
			consume(p)

		case bytecode.OpBuildClosure:
			_, a, b, c := bytecode.DecodeA(ins)
			fn := p.XRegs[b]
			captures, ok := value.ReadSeq(p, p.XRegs[c].Addr())
			if !ok {
				return value.NilValue, 0, errOOM()
			}
			v, ok := p.AllocClosure(fn, captures)
			if !ok {
				return value.NilValue, 0, errOOM()
			}
			p.XRegs[a] = v
			p.IP++
			consume(p)

		case bytecode.OpReturn:
			_, a, _ := bytecode.DecodeB(ins)
			result := p.XRegs[a]
			if p.AtTopLevel() {
				return result, Completed, nil
			}
			if _, ok := p.PopFrame(); !ok {
				return value.NilValue, 0, errCallStackOverflow()
			}
			p.XRegs[0] = result

		case bytecode.OpHalt:
			_, a, _ := bytecode.DecodeB(ins)
			return p.XRegs[a], Completed, nil

		default:
			return value.NilValue, 0, errInvalidOpcode(uint8(op))
		}
	}
}

// window copies a contiguous run of registers into a fresh slice so
// allocators that retain their input ([]value.Value passed to
// AllocTuple etc.) are never aliased to the live register file.
func window(p *process.Process, base, count uint32) []value.Value {
	if count == 0 {
		return nil
	}
	out := make([]value.Value, count)
	copy(out, p.XRegs[base:base+count])
	return out
}

func errOOM() error { return errIntrinsic(errOutOfMemory()) }

// consume charges one reduction for the instruction just executed.
// HALT and RETURN never call this (spec.md §4.7: "HALT/RETURN do
// not, they simply finish or pop").
func consume(p *process.Process) {
	p.Reductions--
	p.TotalReductions++
}
