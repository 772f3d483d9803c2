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

package realm

import (
	"bytes"

	"github.com/dchest/siphash"
	"github.com/sarnowski/lona/memspace"
	"github.com/sarnowski/lona/value"
)

// siphash keys for the intern tables' bucket hash. These are fixed
// (not randomized) because symbol/keyword equality-by-address must
// be reproducible across runs for a given boot image; the table is
// only ever exposed to the realm's own reader/compiler input, not to
// an adversarial network peer, so DoS-resistant randomization is not
// required here (unlike ion.Symtab, which guards untrusted wire
// input and so seeds siphash per-process).
const (
	internSipK0 = 0x6c6f6e612d636f72
	internSipK1 = 0x696e7465726e2d76
)

type internBucketEntry struct {
	hash uint64
	addr memspace.Vaddr
}

// internTable maps interned byte strings to the Vaddr of the
// HeapString record holding their bytes, using siphash to bucket
// entries so lookups are O(1) amortized without needing to keep a
// second copy of every name in a Go map (the realm's strings already
// live in its byte arena; this table only stores their hash and
// address).
type internTable struct {
	buckets map[uint64][]internBucketEntry
	count   int
}

func newInternTable() *internTable {
	return &internTable{buckets: make(map[uint64][]internBucketEntry)}
}

func hashName(name []byte) uint64 {
	return siphash.Hash(internSipK0, internSipK1, name)
}

// lookup returns the existing entry's address for name, if interned.
func (t *internTable) lookup(r *Realm, name []byte) (memspace.Vaddr, bool) {
	h := hashName(name)
	for _, e := range t.buckets[h] {
		if got, ok := value.ReadString(r, e.addr); ok && bytes.Equal(got, name) {
			return e.addr, true
		}
	}
	return 0, false
}

// insert records a freshly-allocated HeapString's address under name's hash.
func (t *internTable) insert(name []byte, addr memspace.Vaddr) {
	h := hashName(name)
	t.buckets[h] = append(t.buckets[h], internBucketEntry{hash: h, addr: addr})
	t.count++
}

// internBytes interns name into table, allocating a new HeapString
// in the realm's code region on a miss. Tag is Symbol or Keyword,
// used only to shape the returned Value.
func (r *Realm) internBytes(t *internTable, tag value.Tag, name []byte) value.Value {
	if addr, ok := t.lookup(r, name); ok {
		return value.MakeHeap(tag, addr)
	}
	size := value.StringSize(len(name))
	off, ok := r.Alloc(size, 8)
	if !ok {
		panic("realm: code region exhausted interning " + string(name))
	}
	value.WriteString(r.Bytes(off, size), name)
	addr := memspace.NewVaddr(memspace.RegionRealm, off)
	t.insert(name, addr)
	return value.MakeHeap(tag, addr)
}

// InternSymbol interns name as a Symbol, returning the same address
// on every call with an equal name (spec.md §3, "Intern guarantees").
func (r *Realm) InternSymbol(name string) value.Value {
	return r.internBytes(r.symbols, value.Symbol, []byte(name))
}

// InternKeyword interns name as a Keyword.
func (r *Realm) InternKeyword(name string) value.Value {
	return r.internBytes(r.keywords, value.Keyword, []byte(name))
}

// FindSymbol looks up an already-interned Symbol by name without
// creating one on a miss, used by the compiler's `var`/bare-symbol
// namespace resolution (spec.md §4.5) which must distinguish "does
// not exist" from "create it".
func (r *Realm) FindSymbol(name string) (value.Value, bool) {
	addr, ok := r.symbols.lookup(r, []byte(name))
	if !ok {
		return value.Value{}, false
	}
	return value.MakeHeap(value.Symbol, addr), true
}

// FindKeyword is FindSymbol's keyword counterpart.
func (r *Realm) FindKeyword(name string) (value.Value, bool) {
	addr, ok := r.keywords.lookup(r, []byte(name))
	if !ok {
		return value.Value{}, false
	}
	return value.MakeHeap(value.Keyword, addr), true
}

// SymbolName reads back the name of an interned Symbol or Keyword value.
func (r *Realm) SymbolName(v value.Value) (string, bool) {
	b, ok := value.ReadString(r, v.Addr())
	if !ok {
		return "", false
	}
	return string(b), true
}
