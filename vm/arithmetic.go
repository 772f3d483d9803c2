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
	"github.com/sarnowski/lona/bytecode"
	"github.com/sarnowski/lona/process"
	"github.com/sarnowski/lona/value"
)

// argInt reads register reg and requires it hold an Int, reporting a
// TypeError tagged with the intrinsic id and argument position (0-based)
// on mismatch.
func argInt(p *process.Process, id bytecode.IntrinsicID, pos int, reg uint32) (int64, *IntrinsicError) {
	v := p.XRegs[reg]
	if v.Tag() != value.Int {
		return 0, errTypeError(uint16(id), pos, "integer")
	}
	return v.AsInt(), nil
}

func intrinsicAdd(p *process.Process) (value.Value, *IntrinsicError) {
	a, err := argInt(p, bytecode.IAdd, 0, 1)
	if err != nil {
		return value.Value{}, err
	}
	b, err := argInt(p, bytecode.IAdd, 1, 2)
	if err != nil {
		return value.Value{}, err
	}
	return value.MakeInt(a + b), nil
}

func intrinsicSub(p *process.Process) (value.Value, *IntrinsicError) {
	a, err := argInt(p, bytecode.ISub, 0, 1)
	if err != nil {
		return value.Value{}, err
	}
	b, err := argInt(p, bytecode.ISub, 1, 2)
	if err != nil {
		return value.Value{}, err
	}
	return value.MakeInt(a - b), nil
}

func intrinsicMul(p *process.Process) (value.Value, *IntrinsicError) {
	a, err := argInt(p, bytecode.IMul, 0, 1)
	if err != nil {
		return value.Value{}, err
	}
	b, err := argInt(p, bytecode.IMul, 1, 2)
	if err != nil {
		return value.Value{}, err
	}
	return value.MakeInt(a * b), nil
}

func intrinsicDiv(p *process.Process) (value.Value, *IntrinsicError) {
	a, err := argInt(p, bytecode.IDiv, 0, 1)
	if err != nil {
		return value.Value{}, err
	}
	b, err := argInt(p, bytecode.IDiv, 1, 2)
	if err != nil {
		return value.Value{}, err
	}
	if b == 0 {
		return value.Value{}, errDivisionByZero()
	}
	return value.MakeInt(a / b), nil
}

// intrinsicMod implements floor-mod: the result's sign follows the
// divisor, not the dividend (mathematical modulus, a deliberate
// departure from Go's %, which follows the dividend like C's
// remainder). (mod -7 3) is Int(2), not Int(-1).
func intrinsicMod(p *process.Process) (value.Value, *IntrinsicError) {
	a, err := argInt(p, bytecode.IMod, 0, 1)
	if err != nil {
		return value.Value{}, err
	}
	b, err := argInt(p, bytecode.IMod, 1, 2)
	if err != nil {
		return value.Value{}, err
	}
	if b == 0 {
		return value.Value{}, errDivisionByZero()
	}
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return value.MakeInt(m), nil
}

func intrinsicEq(p *process.Process) (value.Value, *IntrinsicError) {
	return value.MakeBool(valuesEqual(p, p.XRegs[1], p.XRegs[2])), nil
}

func intrinsicLt(p *process.Process) (value.Value, *IntrinsicError) {
	a, err := argInt(p, bytecode.ILt, 0, 1)
	if err != nil {
		return value.Value{}, err
	}
	b, err := argInt(p, bytecode.ILt, 1, 2)
	if err != nil {
		return value.Value{}, err
	}
	return value.MakeBool(a < b), nil
}

func intrinsicGt(p *process.Process) (value.Value, *IntrinsicError) {
	a, err := argInt(p, bytecode.IGt, 0, 1)
	if err != nil {
		return value.Value{}, err
	}
	b, err := argInt(p, bytecode.IGt, 1, 2)
	if err != nil {
		return value.Value{}, err
	}
	return value.MakeBool(a > b), nil
}

func intrinsicLe(p *process.Process) (value.Value, *IntrinsicError) {
	a, err := argInt(p, bytecode.ILe, 0, 1)
	if err != nil {
		return value.Value{}, err
	}
	b, err := argInt(p, bytecode.ILe, 1, 2)
	if err != nil {
		return value.Value{}, err
	}
	return value.MakeBool(a <= b), nil
}

func intrinsicGe(p *process.Process) (value.Value, *IntrinsicError) {
	a, err := argInt(p, bytecode.IGe, 0, 1)
	if err != nil {
		return value.Value{}, err
	}
	b, err := argInt(p, bytecode.IGe, 1, 2)
	if err != nil {
		return value.Value{}, err
	}
	return value.MakeBool(a >= b), nil
}

func intrinsicNot(p *process.Process) (value.Value, *IntrinsicError) {
	return value.MakeBool(!p.XRegs[1].Truthy()), nil
}

// valuesEqual delegates to value.Equal, which implements structural
// equality for heap collections (Pair/Tuple/Vector/Map recurse by
// content) and identity equality for Symbol/Namespace/Var/CompiledFn/
// Closure. This is a deliberate departure from comparing
// Tuple/Vector/Map/Pair by heap address: two freshly built collections
// with the same contents must be equal regardless of allocation order.
func valuesEqual(p *process.Process, a, b value.Value) bool {
	return value.Equal(p, a, b)
}

// rawMapEntries walks a HeapMap's entries pair-chain front to back and
// returns every [k v] pair it holds, including shadowed duplicates
// left behind by an earlier `put` of the same key: `count`/`keys`/
// `vals` report on the chain as it actually exists, the same way
// `get`/`mapGet` see only the first (most recent) match without ever
// needing to know the rest of the chain is there.
func rawMapEntries(p *process.Process, m value.Value) (keys, vals []value.Value, ok bool) {
	head, ok := value.ReadMap(p, m.Addr())
	if !ok {
		return nil, nil, false
	}
	current := head
	for current.Tag() == value.Pair {
		pair, ok := value.ReadPair(p, current.Addr())
		if !ok {
			return nil, nil, false
		}
		kv, ok := value.ReadSeq(p, pair.First.Addr())
		if !ok || len(kv) != 2 {
			return nil, nil, false
		}
		keys = append(keys, kv[0])
		vals = append(vals, kv[1])
		current = pair.Rest
	}
	return keys, vals, true
}

// effectiveMapEntries walks a HeapMap's entries pair-chain and returns
// its keys/values with shadowed duplicates (an earlier `put` of the
// same key) dropped, keeping only the most-recently-added occurrence.
func effectiveMapEntries(p *process.Process, m value.Value) (keys, vals []value.Value, ok bool) {
	head, ok := value.ReadMap(p, m.Addr())
	if !ok {
		return nil, nil, false
	}
	current := head
	for current.Tag() == value.Pair {
		pair, ok := value.ReadPair(p, current.Addr())
		if !ok {
			return nil, nil, false
		}
		kv, ok := value.ReadSeq(p, pair.First.Addr())
		if !ok || len(kv) != 2 {
			return nil, nil, false
		}
		shadowed := false
		for _, k := range keys {
			if valuesEqual(p, k, kv[0]) {
				shadowed = true
				break
			}
		}
		if !shadowed {
			keys = append(keys, kv[0])
			vals = append(vals, kv[1])
		}
		current = pair.Rest
	}
	return keys, vals, true
}
