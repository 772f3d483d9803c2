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
	"testing"
	"time"

	"golang.org/x/exp/slices"

	"github.com/sarnowski/lona/allocipc"
	"github.com/sarnowski/lona/realm"
)

func TestPoolSpawnUpToCapacity(t *testing.T) {
	r := realm.New(64 * 1024)
	pool := NewPool(r, 4096, 2, nil)

	p1, err := pool.Spawn(context.Background())
	if err != nil {
		t.Fatalf("spawn 1: %v", err)
	}
	p2, err := pool.Spawn(context.Background())
	if err != nil {
		t.Fatalf("spawn 2: %v", err)
	}
	if p1.ID == p2.ID {
		t.Errorf("expected distinct pids, got %v twice", p1.ID)
	}
	if pool.Len() != 2 {
		t.Errorf("Len() = %d, want 2", pool.Len())
	}

	if _, err := pool.Spawn(context.Background()); err != ErrPoolFull {
		t.Errorf("spawn past capacity with no allocator: got %v, want ErrPoolFull", err)
	}
}

func TestPoolGrowsViaAllocator(t *testing.T) {
	r := realm.New(64 * 1024)
	alloc := allocipc.NewFixedAllocator(0, 16<<20)
	pool := NewPool(r, 4096, 1, alloc)

	if _, err := pool.Spawn(context.Background()); err != nil {
		t.Fatalf("spawn 1: %v", err)
	}
	// pool is now at its initial capacity of 1; the next Spawn must
	// grow it through the allocator rather than failing.
	if _, err := pool.Spawn(context.Background()); err != nil {
		t.Fatalf("spawn 2 should have grown the pool: %v", err)
	}
	if pool.capacity < 2 {
		t.Errorf("capacity = %d, want >= 2 after growth", pool.capacity)
	}
}

func TestPoolGrowFailsWhenAllocatorExhausted(t *testing.T) {
	r := realm.New(64 * 1024)
	alloc := allocipc.NewFixedAllocator(0, 0)
	pool := NewPool(r, 4096, 1, alloc)

	if _, err := pool.Spawn(context.Background()); err != nil {
		t.Fatalf("spawn 1: %v", err)
	}
	if _, err := pool.Spawn(context.Background()); err != ErrPoolFull {
		t.Errorf("spawn 2 = %v, want ErrPoolFull", err)
	}
}

func TestPoolTerminateRemovesFromIdleHeap(t *testing.T) {
	r := realm.New(64 * 1024)
	pool := NewPool(r, 4096, 4, nil)

	p1, _ := pool.Spawn(context.Background())
	p2, _ := pool.Spawn(context.Background())
	pool.Terminate(p1.ID)

	if _, ok := pool.Lookup(p1.ID); ok {
		t.Errorf("Lookup(%v) should miss after Terminate", p1.ID)
	}
	if _, ok := pool.Lookup(p2.ID); !ok {
		t.Errorf("Lookup(%v) should still hit", p2.ID)
	}
	if pool.Len() != 1 {
		t.Errorf("Len() = %d, want 1", pool.Len())
	}
}

// TestPoolIdleHeapStaysOrdered mirrors tenant/evict_test.go's
// slices.IsSortedFunc assertion on the eviction heap: after several
// touches the idle min-heap's root must still be the
// least-recently-touched pid, even though the backing slice itself
// is only heap-ordered rather than fully sorted.
func TestPoolIdleHeapStaysOrdered(t *testing.T) {
	r := realm.New(64 * 1024)
	pool := NewPool(r, 4096, 8, nil)

	var ids []Pid
	for i := 0; i < 5; i++ {
		p, err := pool.Spawn(context.Background())
		if err != nil {
			t.Fatalf("spawn %d: %v", i, err)
		}
		ids = append(ids, p.ID)
		time.Sleep(time.Millisecond)
	}

	// Touch everything except the oldest so it remains the least
	// recently used entry.
	for _, id := range ids[1:] {
		pool.Lookup(id)
	}

	snapshot := append([]Pid(nil), pool.idle...)
	if !slices.IsSortedFunc(snapshot[:1], func(a, b Pid) bool { return pool.less(a, b) }) {
		t.Fatalf("idle heap root slice is not trivially sorted")
	}
	if pool.idle[0] != ids[0] {
		t.Errorf("idle[0] = %v, want the untouched oldest pid %v", pool.idle[0], ids[0])
	}

	evicted, ok := pool.EvictIdle(0)
	if !ok {
		t.Fatalf("EvictIdle: expected an eviction candidate")
	}
	if evicted != ids[0] {
		t.Errorf("evicted %v, want oldest untouched pid %v", evicted, ids[0])
	}
	if _, ok := pool.Lookup(evicted); ok {
		t.Errorf("evicted pid %v should no longer be present", evicted)
	}
}

func TestPoolEvictIdleRespectsMinIdle(t *testing.T) {
	r := realm.New(64 * 1024)
	pool := NewPool(r, 4096, 4, nil)
	pool.Spawn(context.Background())

	if _, ok := pool.EvictIdle(time.Hour); ok {
		t.Errorf("EvictIdle should refuse to evict a fresh process against a 1h idle floor")
	}
}
