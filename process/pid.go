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

import "fmt"

// Pid is a realm-scoped process identifier. Unlike a Realm's UUID
// identity, a Pid is only meaningful relative to the Pool that
// issued it; it exists so diagnostics and the IPC client can refer
// to a process more cheaply than by its full address.
//
// Grounded on db/tenant.go's tenant-ID-newtype pattern, simplified
// to a local index since pids need not be globally unique.
type Pid uint32

func (p Pid) String() string {
	return fmt.Sprintf("pid-%d", uint32(p))
}
