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

	"github.com/sarnowski/lona/bytecode"
	"github.com/sarnowski/lona/compiler"
	"github.com/sarnowski/lona/process"
	"github.com/sarnowski/lona/reader"
	"github.com/sarnowski/lona/value"
)

// loadintChunk builds count LOADINT X0,i instructions followed by
// HALT, so the final register-0 value after n instructions is n-1.
func loadintChunk(count int) *bytecode.Chunk {
	chunk := &bytecode.Chunk{}
	for i := 0; i < count; i++ {
		chunk.Code = append(chunk.Code, bytecode.EncodeB(bytecode.OpLoadInt, 0, uint32(i)))
	}
	chunk.Code = append(chunk.Code, bytecode.EncodeB(bytecode.OpHalt, 0, 0))
	return chunk
}

func TestYieldsWhenBudgetExhausted(t *testing.T) {
	p := setup(t)
	p.SetChunk(loadintChunk(10))
	p.Reductions = 5

	_, status, err := Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != Yielded {
		t.Fatalf("status = %v, want Yielded", status)
	}
	if p.IP != 5 {
		t.Errorf("IP = %d, want 5", p.IP)
	}
}

func TestCompletesWithSufficientBudget(t *testing.T) {
	p := setup(t)
	p.SetChunk(loadintChunk(5))
	p.Reductions = 100

	_, status, err := Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != Completed {
		t.Fatalf("status = %v, want Completed", status)
	}
}

func TestResumesCorrectly(t *testing.T) {
	p := setup(t)
	chunk := &bytecode.Chunk{}
	chunk.Code = append(chunk.Code,
		bytecode.EncodeB(bytecode.OpLoadInt, 1, 1),
		bytecode.EncodeB(bytecode.OpLoadInt, 2, 2),
		bytecode.EncodeB(bytecode.OpLoadInt, 3, 3),
		bytecode.EncodeB(bytecode.OpLoadInt, 4, 4),
		bytecode.EncodeB(bytecode.OpLoadInt, 5, 5),
		bytecode.EncodeB(bytecode.OpLoadInt, 0, 42),
		bytecode.EncodeB(bytecode.OpHalt, 0, 0),
	)
	p.SetChunk(chunk)
	p.Reductions = 3

	_, status, err := Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != Yielded {
		t.Fatalf("first Run status = %v, want Yielded", status)
	}
	if p.XRegs[1].AsInt() != 1 || p.XRegs[2].AsInt() != 2 || p.XRegs[3].AsInt() != 3 {
		t.Errorf("registers after partial execution: %+v %+v %+v", p.XRegs[1], p.XRegs[2], p.XRegs[3])
	}
	if p.XRegs[4].Tag() != value.Nil {
		t.Errorf("X4 should not have executed yet, got %+v", p.XRegs[4])
	}

	p.Reductions = 100
	result, status, err := Run(p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != Completed || result.AsInt() != 42 {
		t.Errorf("got %+v/%v, want Completed/Int(42)", result, status)
	}
}

func TestReductionsAreConsumed(t *testing.T) {
	p := setup(t)
	p.SetChunk(loadintChunk(3))
	p.Reductions = 100
	p.TotalReductions = 0

	if _, _, err := Run(p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 3 LOADINT (cost 1 each) + 1 HALT (cost 0) = 3 reductions consumed.
	if p.TotalReductions != 3 {
		t.Errorf("TotalReductions = %d, want 3", p.TotalReductions)
	}
	if p.Reductions != 97 {
		t.Errorf("Reductions = %d, want 97", p.Reductions)
	}
}

func TestCallStackPushPop(t *testing.T) {
	p := setup(t)
	p.SetChunk(loadintChunk(1))
	p.IP = 42

	if !p.PushFrame() {
		t.Fatalf("PushFrame failed")
	}
	if p.CallDepth() != 1 {
		t.Errorf("CallDepth = %d, want 1", p.CallDepth())
	}

	p.SetChunk(loadintChunk(1))
	p.IP = 0

	if _, ok := p.PopFrame(); !ok {
		t.Fatalf("PopFrame failed")
	}
	if p.CallDepth() != 0 {
		t.Errorf("CallDepth = %d, want 0", p.CallDepth())
	}
	if p.IP != 42 {
		t.Errorf("IP = %d, want 42 (restored)", p.IP)
	}
	if p.Chunk == nil {
		t.Errorf("Chunk should be restored after pop")
	}
}

func TestCallStackOverflowDetection(t *testing.T) {
	p := setup(t)
	for i := 0; i < process.MaxCallDepth; i++ {
		p.SetChunk(loadintChunk(1))
		if !p.PushFrame() {
			t.Fatalf("PushFrame %d should have succeeded", i)
		}
	}
	p.SetChunk(loadintChunk(1))
	if p.PushFrame() {
		t.Errorf("PushFrame past MaxCallDepth should fail")
	}
}

func TestPopAtTopLevelReturnsFalse(t *testing.T) {
	p := setup(t)
	if !p.AtTopLevel() {
		t.Fatalf("fresh process should be at top level")
	}
	if _, ok := p.PopFrame(); ok {
		t.Errorf("PopFrame at top level should report ok=false")
	}
}

func TestYieldDuringFunctionCall(t *testing.T) {
	p := setup(t)
	got := evalWithSmallBudget(t, p, "((fn* [x] (+ x 1)) 5)", 2)
	if got.AsInt() != 6 {
		t.Errorf("got %+v, want Int(6)", got)
	}
}

func TestYieldAndResumeNestedCalls(t *testing.T) {
	p := setup(t)
	eval(t, p, "(def add1 (fn* [x] (+ x 1)))")
	eval(t, p, "(def add2 (fn* [x] (add1 (add1 x))))")
	eval(t, p, "(def add4 (fn* [x] (add2 (add2 x))))")

	got := evalWithSmallBudget(t, p, "(add4 10)", 3)
	if got.AsInt() != 14 {
		t.Errorf("got %+v, want Int(14)", got)
	}
}

func TestStressManyYields(t *testing.T) {
	p := setup(t)
	p.SetChunk(loadintChunk(1000))
	p.Reductions = 100

	yields := 0
	for {
		result, status, err := Run(p)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if status == Completed {
			if result.AsInt() != 999 {
				t.Errorf("final result = %+v, want Int(999)", result)
			}
			break
		}
		yields++
		p.Reductions = 100
		if yields > 100 {
			t.Fatalf("too many yields, possible infinite loop")
		}
	}
	if yields < 9 {
		t.Errorf("expected at least 9 yields, got %d", yields)
	}
}

func TestStressDeepCallChainYieldResume(t *testing.T) {
	p := setup(t)
	eval(t, p, "(def f5 (fn* [x] (+ x 5)))")
	eval(t, p, "(def f4 (fn* [x] (f5 (+ x 4))))")
	eval(t, p, "(def f3 (fn* [x] (f4 (+ x 3))))")
	eval(t, p, "(def f2 (fn* [x] (f3 (+ x 2))))")
	eval(t, p, "(def f1 (fn* [x] (f2 (+ x 1))))")

	got := evalWithSmallBudget(t, p, "(f1 0)", 2)
	if got.AsInt() != 15 {
		t.Errorf("got %+v, want Int(15)", got)
	}
	if !p.AtTopLevel() {
		t.Errorf("call stack should be empty after completion")
	}
}

// evalWithSmallBudget compiles and runs src with a deliberately small
// per-slice reduction budget, exercising yield/resume along the way.
func evalWithSmallBudget(t *testing.T, p *process.Process, src string, budget int) value.Value {
	t.Helper()
	expr, ok, err := reader.Read(src, p)
	if err != nil || !ok {
		t.Fatalf("Read(%q): ok=%v err=%v", src, ok, err)
	}
	chunk, err := compiler.Compile(p, expr)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	p.SetChunk(chunk)
	p.Reductions = budget

	yields := 0
	for {
		result, status, err := Run(p)
		if err != nil {
			t.Fatalf("Run(%q): %v", src, err)
		}
		if status == Completed {
			p.Reset()
			return result
		}
		yields++
		p.Reductions = budget
		if yields > 1000 {
			t.Fatalf("too many yields for %q, possible infinite loop", src)
		}
	}
}
