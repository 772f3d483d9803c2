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

// Package config parses the host-facing runtime configuration file: how
// many realms to boot, each realm's process pool sizing and default
// reduction budget, and boot-region size hints for allocipc.
//
// Grounded on db/def.go's table-definition parsing: a small struct
// tagged for YAML, decoded via sigs.k8s.io/yaml (which round-trips
// through encoding/json so the same struct tags serve both formats),
// with a size cap on the source to bound worst-case decode cost.
package config

import (
	"fmt"
	"io"
	"io/fs"

	"sigs.k8s.io/yaml"
)

// maxConfigSize bounds how large a config file we will read, the same
// defensive cap db.checkDef applies to table definitions.
const maxConfigSize = 1024 * 1024

// Realm describes one realm to boot.
type Realm struct {
	// Name identifies the realm in logs.
	Name string `json:"name"`
	// CodeRegionSize is the number of bytes reserved for the realm's
	// append-only code region.
	CodeRegionSize uint32 `json:"code_region_size"`
	// Pool configures the realm's process pool.
	Pool Pool `json:"pool"`
}

// Pool configures a realm's process.Pool.
type Pool struct {
	// Capacity is the initial number of concurrently-live processes
	// the pool can hold before it must grow via allocipc.
	Capacity int `json:"capacity"`
	// YoungHeapSize is the young-heap size, in bytes, given to each
	// process spawned from this pool.
	YoungHeapSize uint32 `json:"young_heap_size"`
	// DefaultReductions is the reduction budget a freshly-spawned
	// process starts with before its first yield check.
	DefaultReductions int `json:"default_reductions"`
}

// BootHints gives allocipc's FixedAllocator (or a real PageAllocator)
// the address-space bounds to carve realm/process regions out of.
type BootHints struct {
	ProcessPoolBase uint64 `json:"process_pool_base"`
	ProcessPoolSize uint64 `json:"process_pool_size"`
	RealmBinaryBase uint64 `json:"realm_binary_base"`
	RealmBinarySize uint64 `json:"realm_binary_size"`
}

// Config is the full host-facing runtime configuration.
type Config struct {
	Realms    []Realm   `json:"realms"`
	BootHints BootHints `json:"boot_hints"`
}

// Default returns a single-realm configuration sized for the in-memory
// REPL host: one realm, a small pool, generous reduction defaults.
func Default() Config {
	return Config{
		Realms: []Realm{{
			Name:           "default",
			CodeRegionSize: 4 << 20,
			Pool: Pool{
				Capacity:          8,
				YoungHeapSize:     256 << 10,
				DefaultReductions: 1 << 20,
			},
		}},
		BootHints: BootHints{
			ProcessPoolBase: 0,
			ProcessPoolSize: 64 << 20,
			RealmBinaryBase: 64 << 20,
			RealmBinarySize: 16 << 20,
		},
	}
}

// Decode parses a YAML (or JSON, since sigs.k8s.io/yaml accepts both)
// runtime configuration from src.
func Decode(src io.Reader) (Config, error) {
	body, err := readCapped(src, maxConfigSize)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readCapped(src io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("config: source exceeds %d byte limit", limit)
	}
	return body, nil
}

// DecodeFile reads and parses the configuration file at path.
func DecodeFile(fsys fs.FS, path string) (Config, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return Decode(f)
}

func (c Config) validate() error {
	if len(c.Realms) == 0 {
		return fmt.Errorf("config: at least one realm is required")
	}
	seen := make(map[string]bool, len(c.Realms))
	for _, r := range c.Realms {
		if r.Name == "" {
			return fmt.Errorf("config: realm with empty name")
		}
		if seen[r.Name] {
			return fmt.Errorf("config: duplicate realm name %q", r.Name)
		}
		seen[r.Name] = true
		if r.Pool.Capacity <= 0 {
			return fmt.Errorf("config: realm %q: pool capacity must be positive", r.Name)
		}
		if r.Pool.YoungHeapSize == 0 {
			return fmt.Errorf("config: realm %q: young_heap_size must be positive", r.Name)
		}
	}
	return nil
}
