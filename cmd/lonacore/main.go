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

// lonacore is a small REPL/host harness: it reads expressions, feeds
// them through the reader and compiler, runs them to completion on a
// process drawn from a realm's process pool, and prints the result.
// Full CLI/host wiring is explicitly out of core scope (spec.md §1);
// this exists as glue to exercise the runtime end to end, the way
// cmd/sdb exists as a thin CLI over the db/expr/plan core.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sarnowski/lona/allocipc"
	"github.com/sarnowski/lona/bootboot"
	"github.com/sarnowski/lona/compiler"
	"github.com/sarnowski/lona/config"
	"github.com/sarnowski/lona/internal/logging"
	"github.com/sarnowski/lona/process"
	"github.com/sarnowski/lona/reader"
	"github.com/sarnowski/lona/realm"
	"github.com/sarnowski/lona/value"
	"github.com/sarnowski/lona/vm"
)

var (
	dashc    string
	dashfile string
	dashh    bool
)

func init() {
	flag.StringVar(&dashc, "c", "", "evaluate a single expression and exit")
	flag.StringVar(&dashfile, "config", "", "path to a YAML runtime config (default: built-in single-realm config)")
	flag.BoolVar(&dashh, "h", false, "show usage help")
}

func exitf(f string, args ...any) {
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

func loadConfig() config.Config {
	if dashfile == "" {
		return config.Default()
	}
	f, err := os.Open(dashfile)
	if err != nil {
		exitf("%s\n", err)
	}
	defer f.Close()
	cfg, err := config.Decode(f)
	if err != nil {
		exitf("%s\n", err)
	}
	return cfg
}

func main() {
	flag.Parse()
	if dashh {
		fmt.Fprintf(os.Stderr, "usage:\n")
		fmt.Fprintf(os.Stderr, "    %s [-config <file>]            start a REPL against the first configured realm\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "    %s [-config <file>] -c <expr>  evaluate a single expression and exit\n", os.Args[0])
		flag.Usage()
		os.Exit(1)
	}

	cfg := loadConfig()
	rc := cfg.Realms[0]

	r := realm.New(rc.CodeRegionSize)

	allocator := allocipc.NewFixedAllocator(cfg.BootHints.ProcessPoolBase, cfg.BootHints.ProcessPoolSize)
	pool := process.NewPool(r, rc.Pool.YoungHeapSize, rc.Pool.Capacity, allocator)

	entry := bootboot.EntryRegisters{}
	entry.Populate(1, 1, cfg.BootHints.RealmBinaryBase, cfg.BootHints.RealmBinarySize, bootboot.IsInitRealm)
	logging.Infof("lonacore: booting realm %q entry=%+v flags=%s", rc.Name, entry, entry.Flags)

	proc, err := pool.Spawn(context.Background())
	if err != nil {
		exitf("spawning the initial process: %s\n", err)
	}
	proc.Reductions = rc.Pool.DefaultReductions

	if dashc != "" {
		out, err := evalOne(proc, dashc)
		if err != nil {
			exitf("%s\n", err)
		}
		fmt.Println(value.Sprint(proc, out))
		return
	}

	repl(proc, rc.Pool.DefaultReductions)
}

// evalOne reads, compiles, and runs a single top-level expression to
// completion, replenishing reductions on every Yielded result (the
// host loop spec.md §6 describes: "loop VM.run replenishing
// reductions until Completed or Error").
func evalOne(proc *process.Process, src string) (value.Value, error) {
	expr, ok, err := reader.Read(src, proc)
	if err != nil {
		return value.Value{}, fmt.Errorf("read: %w", err)
	}
	if !ok {
		return value.Value{}, fmt.Errorf("read: no expression in input")
	}
	chunk, err := compiler.Compile(proc, expr)
	if err != nil {
		return value.Value{}, fmt.Errorf("compile: %w", err)
	}
	proc.SetChunk(chunk)
	budget := proc.Reductions

	for {
		result, status, err := vm.Run(proc)
		if err != nil {
			return value.Value{}, fmt.Errorf("run: %w", err)
		}
		if status == vm.Completed {
			return result, nil
		}
		proc.Reductions = budget
	}
}

// repl reads one line at a time from stdin, treating each line as a
// standalone top-level expression (spec.md's reader has no notion of
// a multi-line continuation prompt, so lines must be self-contained).
func repl(proc *process.Process, defaultReductions int) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("lona> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("lona> ")
			continue
		}
		if line == ":quit" || line == ":q" {
			return
		}
		proc.Reductions = defaultReductions
		out, err := evalOne(proc, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		} else {
			fmt.Println(value.Sprint(proc, out))
		}
		proc.Reset()
		fmt.Print("lona> ")
	}
}
