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
	"github.com/sarnowski/lona/memspace"
	"github.com/sarnowski/lona/value"
)

type metaEntry struct {
	key memspace.Vaddr
	val value.Value
}

// SetMeta records meta as the metadata map for the heap object or
// var slot at key. Metadata is a fixed-capacity association list
// (spec.md §4.1); overflow is a silent no-op, an accepted design
// choice (see DESIGN.md).
func (r *Realm) SetMeta(key memspace.Vaddr, meta value.Value) {
	for i := range r.metadata {
		if r.metadata[i].key == key {
			r.metadata[i].val = meta
			return
		}
	}
	if len(r.metadata) >= maxMetadataEntries {
		return
	}
	r.metadata = append(r.metadata, metaEntry{key: key, val: meta})
}

// GetMeta returns the metadata map recorded for key, or (Nil, false).
func (r *Realm) GetMeta(key memspace.Vaddr) (value.Value, bool) {
	for i := range r.metadata {
		if r.metadata[i].key == key {
			return r.metadata[i].val, true
		}
	}
	return value.Value{}, false
}
