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

package process

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sarnowski/lona/allocipc"
	lonaheap "github.com/sarnowski/lona/heap"
	"github.com/sarnowski/lona/internal/logging"
	"github.com/sarnowski/lona/realm"
)

// Pool is a fixed-capacity registry of live processes within a
// realm, supporting spawn/lookup/terminate for the host loop. This
// is functionality the distilled spec.md dropped but the original
// Rust source's process/pool.rs implements; it is grounded here on
// tenant/manager.go's live-process registry (map + mutex, lazily
// grown, periodically reaped), simplified from "one OS subprocess
// per tenant" down to "one in-memory Process per slot" since Lona
// processes are not OS processes.
type Pool struct {
	r         *realm.Realm
	youngSize uint32
	allocator allocipc.PageAllocator

	mu       sync.Mutex
	procs    map[Pid]*Process
	touched  map[Pid]time.Time
	nextPid  Pid
	capacity int
	idle     []Pid // min-heap by last-touched time, see evict()
}

// ErrPoolFull is returned by Spawn when the pool is at capacity and
// growing it via the PageAllocator also failed.
var ErrPoolFull = errors.New("process: pool at capacity")

// NewPool creates a pool of processes sharing realm r, each given a
// young heap of youngSize bytes, with room for at most capacity
// concurrently-live processes. alloc is consulted to grow the pool's
// process-count ceiling on demand (spec.md §4.9); it may be nil, in
// which case the pool never grows past capacity.
func NewPool(r *realm.Realm, youngSize uint32, capacity int, alloc allocipc.PageAllocator) *Pool {
	return &Pool{
		r:         r,
		youngSize: youngSize,
		allocator: alloc,
		procs:     make(map[Pid]*Process),
		touched:   make(map[Pid]time.Time),
		capacity:  capacity,
	}
}

func (p *Pool) less(a, b Pid) bool {
	return p.touched[a].Before(p.touched[b])
}

// Spawn creates and registers a new process, growing the pool's
// capacity via AllocPages{ProcessPool,...} if it is currently full
// (spec.md §4.9: "The process pool is grown on demand when the pool
// allocator cannot place another process heap").
func (p *Pool) Spawn(ctx context.Context) (*Process, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.procs) >= p.capacity {
		if !p.grow(ctx) {
			return nil, ErrPoolFull
		}
	}
	id := p.nextPid
	p.nextPid++
	proc := New(p.r, id, p.youngSize)
	p.procs[id] = proc
	now := time.Now()
	p.touched[id] = now
	lonaheap.PushSlice(&p.idle, id, p.less)
	return proc, nil
}

// grow asks the allocator for one more process-heap-worth of pages
// and, on success, raises capacity. Must be called with p.mu held.
func (p *Pool) grow(ctx context.Context) bool {
	if p.allocator == nil {
		return false
	}
	req := allocipc.AllocPagesRequest{
		Region:    allocipc.ProcessPool,
		PageCount: allocipc.Pages(p.youngSize),
		// A zero hint lets the allocator choose: the pool's initial
		// capacity is never itself carved out of the allocator, so a
		// computed hint here would drift from the allocator's own
		// bookkeeping as soon as a single growth round happened.
		HintVaddr: 0,
	}
	_, err := p.allocator.AllocPages(ctx, req)
	if err != nil {
		logging.Warnf("process: pool grow failed: %v", err)
		return false
	}
	p.capacity++
	logging.Infof("process: pool grown to capacity %d", p.capacity)
	return true
}

// Lookup returns the live process registered under id.
func (p *Pool) Lookup(id Pid) (*Process, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	proc, ok := p.procs[id]
	if ok {
		p.touch(id)
	}
	return proc, ok
}

// touch updates id's last-used time and re-heapifies; must be
// called with p.mu held.
func (p *Pool) touch(id Pid) {
	p.touched[id] = time.Now()
	for i, x := range p.idle {
		if x == id {
			lonaheap.FixSlice(p.idle, i, p.less)
			return
		}
	}
}

// Terminate removes id from the pool, reclaiming its heap. This is
// the only way a Lona process's memory is ever released, since
// there is no garbage collector (spec.md §1 Non-goals).
func (p *Pool) Terminate(id Pid) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.procs, id)
	delete(p.touched, id)
	for i, x := range p.idle {
		if x == id {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			break
		}
	}
}

// EvictIdle terminates the least-recently-touched process if it has
// been idle for at least minIdle, returning its Pid. It returns
// (0, false) if the pool is empty or the oldest entry is still fresh.
func (p *Pool) EvictIdle(minIdle time.Duration) (Pid, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) == 0 {
		return 0, false
	}
	oldest := p.idle[0]
	if time.Since(p.touched[oldest]) < minIdle {
		return 0, false
	}
	id := lonaheap.PopSlice(&p.idle, p.less)
	delete(p.procs, id)
	delete(p.touched, id)
	logging.Infof("process: evicted idle pid %d", id)
	return id, true
}

// Len returns the number of currently-live processes.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.procs)
}
