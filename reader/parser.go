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

package reader

import (
	"github.com/sarnowski/lona/process"
	"github.com/sarnowski/lona/value"
)

// MaxCollectionElements bounds list/tuple/vector/map literals. This
// mirrors the original reader's MAX_LIST_ELEMENTS: elements are
// collected on a Go slice before the heap value is built, so an
// unbounded literal would let untrusted source exhaust the parser's
// own stack rather than the process heap's allocator failing first.
const MaxCollectionElements = 256

// Parser turns a token stream into Value trees, allocating directly
// onto a process's young heap as it goes (spec.md §4.4: "recursive
// descent... one expression per call").
type Parser struct {
	lexer     *Lexer
	lookahead *Token
}

// NewParser creates a Parser over src.
func NewParser(src string) *Parser {
	return &Parser{lexer: NewLexer(src)}
}

func (p *Parser) peek() (Token, error) {
	if p.lookahead == nil {
		t, err := p.lexer.Next()
		if err != nil {
			return Token{}, err
		}
		p.lookahead = &t
	}
	return *p.lookahead, nil
}

func (p *Parser) advance() {
	p.lookahead = nil
}

// Read parses one expression, allocating its Value tree on proc's
// young heap. It returns (_, false, nil) at end of input.
func (p *Parser) Read(proc *process.Process) (value.Value, bool, error) {
	tok, err := p.peek()
	if err != nil {
		return value.Value{}, false, err
	}
	if tok.Kind == TokEOF {
		return value.Value{}, false, nil
	}
	p.advance()

	switch tok.Kind {
	case TokNil:
		return value.NilValue, true, nil
	case TokTrue:
		return value.TrueValue, true, nil
	case TokFalse:
		return value.FalseValue, true, nil
	case TokInt:
		return value.MakeInt(tok.Int), true, nil
	case TokString:
		return p.alloc(proc.AllocString(tok.Text))
	case TokSymbol:
		return p.alloc(proc.AllocSymbol(tok.Text))
	case TokKeyword:
		return p.alloc(proc.AllocKeyword(tok.Text))
	case TokQuote:
		return p.readSigil(proc, "quote")
	case TokVarQuote:
		return p.readSigil(proc, "var")
	case TokLParen:
		return p.readList(proc)
	case TokLBracket:
		return p.readTuple(proc)
	case TokLBrace:
		return p.readVector(proc)
	case TokPercentBrace:
		return p.readMap(proc)
	case TokRParen, TokRBracket, TokRBrace:
		return value.Value{}, false, errUnmatched(tok.Pos)
	default:
		return value.Value{}, false, errUnexpected(tok)
	}
}

// readSigil expands a prefix sigil ('e => (quote e), #'x => (var x))
// into a two-element pair-chain list headed by head.
func (p *Parser) readSigil(proc *process.Process, head string) (value.Value, bool, error) {
	expr, ok, err := p.Read(proc)
	if err != nil {
		return value.Value{}, false, err
	}
	if !ok {
		return value.Value{}, false, errEOF()
	}
	sym, ok := proc.AllocSymbol(head)
	if !ok {
		return value.Value{}, false, errOOM()
	}
	inner, ok := proc.AllocPair(expr, value.NilValue)
	if !ok {
		return value.Value{}, false, errOOM()
	}
	outer, ok := proc.AllocPair(sym, inner)
	if !ok {
		return value.Value{}, false, errOOM()
	}
	return outer, true, nil
}

func (p *Parser) readList(proc *process.Process) (value.Value, bool, error) {
	elems, err := p.readElements(proc, TokRParen)
	if err != nil {
		return value.Value{}, false, err
	}
	result := value.NilValue
	for i := len(elems) - 1; i >= 0; i-- {
		pair, ok := proc.AllocPair(elems[i], result)
		if !ok {
			return value.Value{}, false, errOOM()
		}
		result = pair
	}
	return result, true, nil
}

func (p *Parser) readTuple(proc *process.Process) (value.Value, bool, error) {
	elems, err := p.readElements(proc, TokRBracket)
	if err != nil {
		return value.Value{}, false, err
	}
	return p.alloc(proc.AllocTuple(elems))
}

func (p *Parser) readVector(proc *process.Process) (value.Value, bool, error) {
	elems, err := p.readElements(proc, TokRBrace)
	if err != nil {
		return value.Value{}, false, err
	}
	return p.alloc(proc.AllocVector(elems))
}

func (p *Parser) readMap(proc *process.Process) (value.Value, bool, error) {
	elems, err := p.readElements(proc, TokRBrace)
	if err != nil {
		return value.Value{}, false, err
	}
	if len(elems)%2 != 0 {
		return value.Value{}, false, errEOF()
	}
	keys := make([]value.Value, 0, len(elems)/2)
	vals := make([]value.Value, 0, len(elems)/2)
	for i := 0; i < len(elems); i += 2 {
		keys = append(keys, elems[i])
		vals = append(vals, elems[i+1])
	}
	return p.alloc(proc.AllocMap(keys, vals))
}

// readElements collects expressions up to (and consuming) the
// closing token, enforcing MaxCollectionElements.
func (p *Parser) readElements(proc *process.Process, closing TokenKind) ([]value.Value, error) {
	var elems []value.Value
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokEOF {
			return nil, errEOF()
		}
		if tok.Kind == closing {
			p.advance()
			return elems, nil
		}
		if len(elems) >= MaxCollectionElements {
			return nil, errTooLong()
		}
		elem, ok, err := p.Read(proc)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errEOF()
		}
		elems = append(elems, elem)
	}
}

func (p *Parser) alloc(v value.Value, ok bool) (value.Value, bool, error) {
	if !ok {
		return value.Value{}, false, errOOM()
	}
	return v, true, nil
}

// Read parses one expression from src, a convenience wrapper around Parser.
func Read(src string, proc *process.Process) (value.Value, bool, error) {
	return NewParser(src).Read(proc)
}
