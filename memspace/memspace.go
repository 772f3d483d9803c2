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

// Package memspace defines the byte-addressable region abstraction
// shared by process heaps and realm code regions.
//
// Every heap record (strings, pairs, tuples, vars, ...) is laid out
// as a fixed-offset structure over a []byte arena, and is addressed
// by a Vaddr rather than a Go pointer. This lets the same decoding
// logic in package value read a record regardless of whether it
// lives in a process's young heap or in a realm's shared code
// region, and lets the deep-copy marshaller talk about addresses
// as plain integers it can track in a visited-set.
package memspace

import "fmt"

// Region identifies which byte arena a Vaddr points into.
type Region uint8

const (
	// RegionNone is the zero value; it never denotes live storage.
	RegionNone Region = iota
	// RegionYoung is a process's young (bump-allocated) heap.
	RegionYoung
	// RegionOld is a process's old heap, reserved for a future
	// generational collector. Nothing allocates into it today.
	RegionOld
	// RegionRealm is a realm's append-only shared code region.
	RegionRealm
)

func (r Region) String() string {
	switch r {
	case RegionYoung:
		return "young"
	case RegionOld:
		return "old"
	case RegionRealm:
		return "realm"
	default:
		return "none"
	}
}

// Vaddr is a virtual address: a region tag plus a byte offset
// into that region's arena. It is deliberately not a Go pointer
// so that it can be copied, compared, and hashed like any other
// integer, and so that it survives a realm's arena being grown
// (which may reallocate the backing slice).
type Vaddr uint64

// NilVaddr is never a valid allocation.
const NilVaddr Vaddr = 0

// NewVaddr packs a region and an offset into a Vaddr.
func NewVaddr(r Region, offset uint32) Vaddr {
	return Vaddr(uint64(r)<<32 | uint64(offset))
}

// Region returns the region this address points into.
func (v Vaddr) Region() Region {
	return Region(v >> 32)
}

// Offset returns the byte offset of v within its region.
func (v Vaddr) Offset() uint32 {
	return uint32(v)
}

func (v Vaddr) String() string {
	return fmt.Sprintf("%s+%#x", v.Region(), v.Offset())
}

// Space is a byte-addressable arena that can be read from
// and bump-allocated into. Process and Realm both implement it.
type Space interface {
	// Region returns the region tag this space serves addresses for.
	Region() Region

	// Bytes returns a slice view of the n bytes starting at offset.
	// It panics if the range is out of bounds; callers are expected
	// to have validated offsets they did not compute themselves
	// (e.g. ones coming from a Vaddr handed back by Alloc).
	Bytes(offset uint32, n uint32) []byte

	// Alloc reserves n bytes aligned to align (a power of two) and
	// returns the offset of the start of the reserved region. ok is
	// false if the space has no room left.
	Alloc(n uint32, align uint32) (offset uint32, ok bool)
}

// AlignUp rounds offset up to the next multiple of align, which
// must be a power of two.
func AlignUp(offset uint32, align uint32) uint32 {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// Resolver maps a Region to the Space that serves it. A Process is
// a Resolver over {young heap, old heap} ∪ {its realm's code region}.
type Resolver interface {
	Space(r Region) (Space, bool)
}

// Deref resolves v within resolver to the (Space, local offset) pair
// a reader should use to decode the record at v.
func Deref(resolver Resolver, v Vaddr) (Space, uint32, bool) {
	sp, ok := resolver.Space(v.Region())
	if !ok {
		return nil, 0, false
	}
	return sp, v.Offset(), true
}
