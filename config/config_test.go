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

package config

import (
	"strings"
	"testing"
)

func TestDecodeMinimal(t *testing.T) {
	src := strings.NewReader(`
realms:
  - name: main
    code_region_size: 4194304
    pool:
      capacity: 4
      young_heap_size: 262144
      default_reductions: 1048576
boot_hints:
  process_pool_base: 0
  process_pool_size: 67108864
  realm_binary_base: 67108864
  realm_binary_size: 16777216
`)
	cfg, err := Decode(src)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(cfg.Realms) != 1 || cfg.Realms[0].Name != "main" {
		t.Fatalf("got %+v", cfg)
	}
	if cfg.Realms[0].Pool.Capacity != 4 {
		t.Errorf("Pool.Capacity = %d, want 4", cfg.Realms[0].Pool.Capacity)
	}
}

func TestDecodeRejectsNoRealms(t *testing.T) {
	_, err := Decode(strings.NewReader(`realms: []`))
	if err == nil {
		t.Fatal("expected an error for an empty realms list")
	}
}

func TestDecodeRejectsDuplicateNames(t *testing.T) {
	src := `
realms:
  - name: a
    pool: {capacity: 1, young_heap_size: 1024}
  - name: a
    pool: {capacity: 1, young_heap_size: 1024}
`
	_, err := Decode(strings.NewReader(src))
	if err == nil {
		t.Fatal("expected an error for duplicate realm names")
	}
}

func TestDecodeRejectsZeroCapacity(t *testing.T) {
	src := `
realms:
  - name: a
    pool: {capacity: 0, young_heap_size: 1024}
`
	_, err := Decode(strings.NewReader(src))
	if err == nil {
		t.Fatal("expected an error for zero pool capacity")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().validate(); err != nil {
		t.Errorf("Default() should validate cleanly: %v", err)
	}
}

func TestDecodeOversizeRejected(t *testing.T) {
	huge := strings.Repeat("a", maxConfigSize+1)
	_, err := Decode(strings.NewReader(huge))
	if err == nil {
		t.Fatal("expected an error for an oversized config source")
	}
}
