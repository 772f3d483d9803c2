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

// Package bootboot describes the realm-entry register contract
// (spec.md §6): the five words a realm's worker is handed at entry,
// before it has any other way to find its own identity or memory
// bounds.
//
// Grounded on tenant/tnproto's fixed wire-header-struct style (a
// small fixed-layout struct populated via a populate method) adapted
// from a byte-stream header read off a net.Conn to a register file
// handed to a realm at entry.
package bootboot

// WordCount is the number of architecture words in the entry
// register file.
const WordCount = 5

// Flag is a bit in the entry register file's flags word.
type Flag uint64

const (
	// IsInitRealm marks the realm booting this worker as the first
	// realm in the system, responsible for bringing up the rest.
	IsInitRealm Flag = 1 << iota
	// HasUART marks that a UART device is mapped and usable by this
	// realm for early diagnostics.
	HasUART
	// HasFramebuffer marks that a framebuffer device is mapped.
	HasFramebuffer
)

func (f Flag) String() string {
	var names []byte
	add := func(set bool, name string) {
		if !set {
			return
		}
		if len(names) > 0 {
			names = append(names, '|')
		}
		names = append(names, name...)
	}
	add(f&IsInitRealm != 0, "IS_INIT_REALM")
	add(f&HasUART != 0, "HAS_UART")
	add(f&HasFramebuffer != 0, "HAS_FRAMEBUFFER")
	if len(names) == 0 {
		return "0"
	}
	return string(names)
}

// EntryRegisters is the abstract form of the five-word register file
// a realm's worker finds at entry: its own identity, the bounds of
// the heap it was handed, and a capability/feature flags word. The
// concrete architecture binding (which physical registers hold which
// word) is out of scope here; a host's entry trampoline is
// responsible for populating this struct from whatever ABI the
// underlying seL4-class kernel actually uses.
type EntryRegisters struct {
	RealmID   uint64
	WorkerID  uint64
	HeapStart uint64
	HeapSize  uint64
	Flags     Flag
}

// Populate fills in the entry register file. Kept as a method (rather
// than a struct literal at every call site) so a future ABI change
// that reorders or widens a word has one place to change.
func (e *EntryRegisters) Populate(realmID, workerID, heapStart, heapSize uint64, flags Flag) {
	e.RealmID = realmID
	e.WorkerID = workerID
	e.HeapStart = heapStart
	e.HeapSize = heapSize
	e.Flags = flags
}

// Words returns the register file as WordCount raw 64-bit words, in
// the order spec.md §6 lists them: realm_id, worker_id, heap_start,
// heap_size, flags.
func (e EntryRegisters) Words() [WordCount]uint64 {
	return [WordCount]uint64{e.RealmID, e.WorkerID, e.HeapStart, e.HeapSize, uint64(e.Flags)}
}

// FromWords reconstructs an EntryRegisters from its raw word form,
// the inverse of Words. A realm's entry trampoline calls this once,
// immediately, before doing anything else.
func FromWords(words [WordCount]uint64) EntryRegisters {
	return EntryRegisters{
		RealmID:   words[0],
		WorkerID:  words[1],
		HeapStart: words[2],
		HeapSize:  words[3],
		Flags:     Flag(words[4]),
	}
}
