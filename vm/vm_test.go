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

package vm

import (
	"testing"

	"github.com/sarnowski/lona/compiler"
	"github.com/sarnowski/lona/process"
	"github.com/sarnowski/lona/reader"
	"github.com/sarnowski/lona/realm"
	"github.com/sarnowski/lona/value"
)

// setup creates a fresh process over a freshly bootstrapped realm,
// the way every eval test in this package starts.
func setup(t *testing.T) *process.Process {
	t.Helper()
	r := realm.New(256 * 1024)
	return process.New(r, 1, 256*1024)
}

// eval parses, compiles and runs src to completion, replenishing the
// reduction budget on every Yielded result so a single call always
// returns a final value. Tests that care about yielding behavior
// itself drive Run directly instead of going through eval.
func eval(t *testing.T, p *process.Process, src string) value.Value {
	t.Helper()
	expr, ok, err := reader.Read(src, p)
	if err != nil {
		t.Fatalf("Read(%q): %v", src, err)
	}
	if !ok {
		t.Fatalf("Read(%q): unexpected EOF", src)
	}
	chunk, err := compiler.Compile(p, expr)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	p.SetChunk(chunk)
	p.Reductions = 1 << 20

	for {
		result, status, err := Run(p)
		if err != nil {
			t.Fatalf("Run(%q): %v", src, err)
		}
		if status == Completed {
			p.Reset()
			return result
		}
		p.Reductions = 1 << 20
	}
}

// evalErr is like eval but expects Run (or Compile) to fail, returning
// the error instead of fatally failing the test.
func evalErr(t *testing.T, p *process.Process, src string) error {
	t.Helper()
	expr, ok, err := reader.Read(src, p)
	if err != nil {
		return err
	}
	if !ok {
		t.Fatalf("Read(%q): unexpected EOF", src)
	}
	chunk, err := compiler.Compile(p, expr)
	if err != nil {
		return err
	}
	p.SetChunk(chunk)
	p.Reductions = 1 << 20

	for {
		_, status, err := Run(p)
		if err != nil {
			p.Reset()
			return err
		}
		if status == Completed {
			p.Reset()
			return nil
		}
		p.Reductions = 1 << 20
	}
}

func mustString(t *testing.T, p *process.Process, v value.Value) string {
	t.Helper()
	if v.Tag() != value.String {
		t.Fatalf("expected string, got tag %v", v.Tag())
	}
	b, ok := value.ReadString(p, v.Addr())
	if !ok {
		t.Fatalf("ReadString failed")
	}
	return string(b)
}
