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

//go:build linux

package memspace

import "golang.org/x/sys/unix"

// MmapRegion is a Space backed by an anonymous mmap'd arena rather
// than a plain Go slice, for hosts that want their young heaps to
// sit on page-aligned, guard-page-able memory instead of the GC
// heap. Grounded on cmd/sdb's mmap_linux.go, which maps a read-only
// view of a core file via the same raw-syscall idiom; here the
// mapping is anonymous, writable, and growable only at creation
// time (mirroring the fixed-capacity bump arenas used elsewhere in
// this package).
type MmapRegion struct {
	region Region
	buf    []byte
	top    uint32
}

// NewMmapRegion allocates an anonymous mapping of the given size for region.
func NewMmapRegion(region Region, size int) (*MmapRegion, error) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return &MmapRegion{region: region, buf: buf}, nil
}

// Close unmaps the backing memory. Callers must not use the
// MmapRegion afterward.
func (m *MmapRegion) Close() error {
	return unix.Munmap(m.buf)
}

// Region implements Space.
func (m *MmapRegion) Region() Region { return m.region }

// Bytes implements Space.
func (m *MmapRegion) Bytes(offset, n uint32) []byte {
	return m.buf[offset : offset+n]
}

// Alloc implements Space with the same bump-allocation discipline as
// the in-process young heap / realm code region.
func (m *MmapRegion) Alloc(n uint32, align uint32) (uint32, bool) {
	start := AlignUp(m.top, align)
	end := start + n
	if end > uint32(len(m.buf)) || end < start {
		return 0, false
	}
	m.top = end
	return start, true
}
