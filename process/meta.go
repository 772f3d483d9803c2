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
	"github.com/sarnowski/lona/memspace"
	"github.com/sarnowski/lona/value"
)

// maxAssocEntries bounds the metadata and binding tables. Both are
// fixed-capacity, linear-scan association lists; overflow is a
// silent no-op, an accepted design choice carried forward from
// spec.md §4.1 rather than resolved here (see DESIGN.md's Open
// Questions section).
const maxAssocEntries = 1024

type metaEntry struct {
	key memspace.Vaddr
	val value.Value
}

// SetMeta records meta as the metadata for the heap object or var
// slot at key.
func (p *Process) SetMeta(key memspace.Vaddr, meta value.Value) {
	for i := range p.metadata {
		if p.metadata[i].key == key {
			p.metadata[i].val = meta
			return
		}
	}
	if len(p.metadata) >= maxAssocEntries {
		return
	}
	p.metadata = append(p.metadata, metaEntry{key: key, val: meta})
}

// GetMeta returns the metadata recorded for key, or (Nil, false).
func (p *Process) GetMeta(key memspace.Vaddr) (value.Value, bool) {
	for i := range p.metadata {
		if p.metadata[i].key == key {
			return p.metadata[i].val, true
		}
	}
	return value.Value{}, false
}

type bindingEntry struct {
	slot memspace.Vaddr // the VarSlot's address
	val  value.Value
}

// BindingSet records the process-local value of a PROCESS_BOUND var
// (spec.md §4.1, "binding table (var-slot -> Value for
// PROCESS_BOUND vars)").
func (p *Process) BindingSet(slot memspace.Vaddr, v value.Value) {
	for i := range p.bindings {
		if p.bindings[i].slot == slot {
			p.bindings[i].val = v
			return
		}
	}
	if len(p.bindings) >= maxAssocEntries {
		return
	}
	p.bindings = append(p.bindings, bindingEntry{slot: slot, val: v})
}

// BindingGet returns the process-local binding for slot, if any.
func (p *Process) BindingGet(slot memspace.Vaddr) (value.Value, bool) {
	for i := range p.bindings {
		if p.bindings[i].slot == slot {
			return p.bindings[i].val, true
		}
	}
	return value.Value{}, false
}
