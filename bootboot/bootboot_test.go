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

package bootboot

import "testing"

func TestWordsRoundTrip(t *testing.T) {
	var e EntryRegisters
	e.Populate(1, 2, 0x1000, 0x2000, IsInitRealm|HasUART)

	words := e.Words()
	if words[0] != 1 || words[1] != 2 || words[2] != 0x1000 || words[3] != 0x2000 {
		t.Fatalf("Words() = %+v", words)
	}

	got := FromWords(words)
	if got != e {
		t.Errorf("FromWords(Words()) = %+v, want %+v", got, e)
	}
}

func TestFlagString(t *testing.T) {
	cases := []struct {
		f    Flag
		want string
	}{
		{0, "0"},
		{IsInitRealm, "IS_INIT_REALM"},
		{HasUART | HasFramebuffer, "HAS_UART|HAS_FRAMEBUFFER"},
		{IsInitRealm | HasUART | HasFramebuffer, "IS_INIT_REALM|HAS_UART|HAS_FRAMEBUFFER"},
	}
	for _, c := range cases {
		if got := c.f.String(); got != c.want {
			t.Errorf("%d.String() = %q, want %q", c.f, got, c.want)
		}
	}
}
