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

// Package process implements a Lona process: a lightweight unit of
// execution with its own bump-allocated young heap, a downward
// mirror stack, an X-register file, a bounded call stack, and the
// process-local intern/metadata/binding tables. A process exclusively
// owns its heap; there is no GC, so the only way memory is reclaimed
// is by the whole process terminating.
package process

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sarnowski/lona/bytecode"
	"github.com/sarnowski/lona/memspace"
	"github.com/sarnowski/lona/realm"
	"github.com/sarnowski/lona/value"
)

// NumRegisters is the size of the X-register file (spec.md §4.1).
const NumRegisters = 256

// MaxCallDepth bounds the call stack; exceeding it is a
// CallStackOverflow runtime error (spec.md §7).
const MaxCallDepth = 512

// Frame is one saved caller context on the call stack. The register
// file is a single flat X0..X255 array shared by whichever frame is
// currently executing, so a CALL must snapshot the caller's registers
// here and restore them on RETURN rather than windowing into a larger
// backing array (spec.md §4.1, §4.7). The callee's result always
// lands in the restored frame's X0, matching the compiler's calling
// convention (spec.md §4.5): the MOVE that picks it up into the
// caller's chosen target register is emitted separately.
type Frame struct {
	Chunk *bytecode.Chunk
	IP    uint32
	Regs  [NumRegisters]value.Value
}

// Process is a single Lona process.
type Process struct {
	ID    Pid
	Trace uuid.UUID // for cross-process log correlation, mirroring db/tenant.go's use of uuid per tenant

	Realm *realm.Realm

	young   []byte
	htop    uint32
	stop    uint32 // stack pointer; starts at len(young) and counts down
	oldHeap []byte // reserved for a future generational collector; never allocated into

	XRegs [NumRegisters]value.Value

	// Chunk and IP are the currently executing frame's code and
	// instruction pointer. A fresh chunk is installed with SetChunk;
	// VM.Run resumes from wherever IP was left by the last Yielded
	// return (spec.md §4.7).
	Chunk *bytecode.Chunk
	IP    uint32

	Reductions      int
	TotalReductions int64

	CallStack []Frame

	symbolIntern  map[string]memspace.Vaddr
	keywordIntern map[string]memspace.Vaddr

	metadata []metaEntry
	bindings []bindingEntry

	// NSVar is the process's *ns* var pointer, recorded at bootstrap
	// so unqualified symbol resolution doesn't need to re-look-up
	// *ns* in the namespace registry on every reference (spec.md §4.3).
	NSVar value.Value
}

// New creates a process with the given young-heap capacity (shared
// by the bump-up heap and the mirror down-stack) inside r.
func New(r *realm.Realm, id Pid, youngSize uint32) *Process {
	p := &Process{
		ID:            id,
		Trace:         uuid.New(),
		Realm:         r,
		young:         make([]byte, youngSize),
		stop:          youngSize,
		symbolIntern:  make(map[string]memspace.Vaddr),
		keywordIntern: make(map[string]memspace.Vaddr),
	}
	p.bootstrapNS()
	return p
}

// Region implements memspace.Space for the young heap.
func (p *Process) Region() memspace.Region { return memspace.RegionYoung }

// Bytes implements memspace.Space for the young heap.
func (p *Process) Bytes(offset, n uint32) []byte {
	return p.young[offset : offset+n]
}

// Alloc implements memspace.Space: bumps htop up, failing if doing
// so would collide with the downward mirror stack (spec.md §4.1).
func (p *Process) Alloc(n uint32, align uint32) (uint32, bool) {
	start := memspace.AlignUp(p.htop, align)
	end := start + n
	if end > p.stop || end < start {
		return 0, false
	}
	p.htop = end
	return start, true
}

// StackPush reserves n bytes (aligned) at the top of the downward
// mirror stack and returns their offset, or ok=false on collision
// with the heap.
func (p *Process) StackPush(n uint32, align uint32) (uint32, bool) {
	newStop := p.stop - n
	newStop -= newStop % align
	if newStop < p.htop || newStop > p.stop {
		return 0, false
	}
	p.stop = newStop
	return p.stop, true
}

// StackPop releases n bytes from the top of the mirror stack.
func (p *Process) StackPop(n uint32) {
	p.stop += n
	if p.stop > uint32(len(p.young)) {
		p.stop = uint32(len(p.young))
	}
}

// Space implements memspace.Resolver: a process serves its own
// young/old regions directly and forwards realm-region addresses to
// its realm, so value readers work uniformly over Value::Var and
// friends regardless of which region they were allocated in.
func (p *Process) Space(region memspace.Region) (memspace.Space, bool) {
	switch region {
	case memspace.RegionYoung:
		return p, true
	case memspace.RegionOld:
		return nil, false // reserved, never allocated into
	default:
		return p.Realm.Space(region)
	}
}

// SetChunk installs chunk as the top-level code to run, resetting IP
// to its start. Used both for a fresh evaluation and to load a
// callee's code on CALL.
func (p *Process) SetChunk(chunk *bytecode.Chunk) {
	p.Chunk = chunk
	p.IP = 0
}

// CallDepth reports how many frames are currently pushed.
func (p *Process) CallDepth() int { return len(p.CallStack) }

// AtTopLevel reports whether the call stack is empty.
func (p *Process) AtTopLevel() bool { return len(p.CallStack) == 0 }

// PushFrame snapshots the caller's chunk, ip and registers onto the
// call stack, failing with ok=false past MaxCallDepth (a
// CallStackOverflow runtime error at the call site).
func (p *Process) PushFrame() bool {
	if len(p.CallStack) >= MaxCallDepth {
		return false
	}
	p.CallStack = append(p.CallStack, Frame{
		Chunk: p.Chunk,
		IP:    p.IP,
		Regs:  p.XRegs,
	})
	return true
}

// PopFrame restores the most recently pushed frame's chunk, ip and
// registers, reporting ok=false if the call stack is already empty.
func (p *Process) PopFrame() (Frame, bool) {
	n := len(p.CallStack)
	if n == 0 {
		return Frame{}, false
	}
	frame := p.CallStack[n-1]
	p.CallStack = p.CallStack[:n-1]
	p.Chunk = frame.Chunk
	p.IP = frame.IP
	p.XRegs = frame.Regs
	return frame, true
}

// Reset clears the register file, call stack and code pointer so the
// process can be reused for a fresh top-level evaluation (the host
// REPL loop does this between reads).
func (p *Process) Reset() {
	p.XRegs = [NumRegisters]value.Value{}
	p.CallStack = p.CallStack[:0]
	p.Chunk = nil
	p.IP = 0
}

func (p *Process) bootstrapNS() {
	p.NSVar = p.Realm.NSVar()
}

func (p *Process) String() string {
	return fmt.Sprintf("process(%s, heap %d/%d, stack top %d)", p.ID, p.htop, p.stop, p.stop)
}
