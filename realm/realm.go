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

// Package realm implements the shared, append-only code region that
// backs one protection domain: symbol/keyword interning, the
// namespace registry, MVCC var storage, and realm-wide metadata.
// Every process inside a realm shares read access to this region;
// only the operations in this package mutate it.
package realm

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sarnowski/lona/memspace"
)

const maxMetadataEntries = 1024

// Realm owns a single append-only code region shared by every
// process running inside it. Mutation discipline: the region only
// ever grows (codeTop only increases) except for the VarSlot.content
// word, which is atomically swapped in place to implement MVCC.
type Realm struct {
	// ID is a realm-wide identity used for log correlation, the same
	// role uuid.UUID plays for tenant/query IDs in db/tenant.go.
	ID uuid.UUID

	code    []byte
	codeTop uint32

	symbols  *internTable
	keywords *internTable

	nsNames []memspace.Vaddr // Symbol addresses, parallel to nsAddrs
	nsAddrs []memspace.Vaddr // Namespace addresses

	metadata []metaEntry

	// nsVar is the *ns* var, recorded at bootstrap time so processes
	// can find their default namespace without a registry scan.
	nsVar memspace.Vaddr
}

// New creates a realm with a code region of the given capacity (in
// bytes). Capacity is fixed at creation for this core; growing a
// realm's code region further is the allocipc.PageAllocator's job
// (see the RealmLocal/RealmBinary regions) and is not implemented by
// this package directly.
func New(capacity uint32) *Realm {
	r := &Realm{
		ID:       uuid.New(),
		code:     make([]byte, capacity),
		symbols:  newInternTable(),
		keywords: newInternTable(),
	}
	Bootstrap(r)
	return r
}

// Region implements memspace.Space.
func (r *Realm) Region() memspace.Region { return memspace.RegionRealm }

// Bytes implements memspace.Space.
func (r *Realm) Bytes(offset, n uint32) []byte {
	return r.code[offset : offset+n]
}

// Alloc implements memspace.Space: it bump-allocates from codeTop
// and never fails short of exhausting the backing array, matching
// spec.md's "append-only bump allocator" contract for the realm.
func (r *Realm) Alloc(n uint32, align uint32) (uint32, bool) {
	start := memspace.AlignUp(r.codeTop, align)
	end := start + n
	if end > uint32(len(r.code)) || end < start {
		return 0, false
	}
	r.codeTop = end
	return start, true
}

// Space implements memspace.Resolver: a realm only ever serves
// addresses in its own region (a Value::Var is safe to dereference
// from any process in the realm precisely because the realm, not
// the process, owns the VarSlot memory).
func (r *Realm) Space(region memspace.Region) (memspace.Space, bool) {
	if region == memspace.RegionRealm {
		return r, true
	}
	return nil, false
}

func (r *Realm) String() string {
	return fmt.Sprintf("realm(%s, %d/%d bytes used)", r.ID, r.codeTop, len(r.code))
}
