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

package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/sarnowski/lona/value"
)

// Chunk is a compiled bytecode program: a flat instruction stream
// plus the constant pool LOADK indexes into.
type Chunk struct {
	Code      []uint32
	Constants []value.Value

	// SourceFile/SourceLine are carried for diagnostics; they are not
	// part of instruction semantics.
	SourceFile string
	SourceLine uint32
}

const wireMagic = "LONA" // 4 bytes

// zstd encoder/decoder instances shared across Encode/Decode calls,
// mirroring compr.Compressor/Decompressor's pattern of caching a
// single *zstd.Encoder/*zstd.Decoder rather than constructing one
// per call.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil)
	if err != nil {
		panic(err)
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
}

// Encode serializes c to the bytecode wire format described in
// spec.md §6: 32-bit little-endian instructions followed by a
// constant pool, the whole thing zstd-compressed for host
// persistence. This format is not load-bearing for in-memory
// execution (which reads straight out of a HeapCompiledFn); it
// exists only for hosts that want to cache compiled chunks to disk.
func Encode(c *Chunk) []byte {
	raw := make([]byte, 0, 8+len(c.Code)*4+len(c.Constants)*value.ValueSize)
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(c.Code)))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(c.Constants)))
	raw = append(raw, hdr[:]...)
	for _, ins := range c.Code {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], ins)
		raw = append(raw, b[:]...)
	}
	constBuf := make([]byte, len(c.Constants)*value.ValueSize)
	value.PutValues(constBuf, c.Constants)
	raw = append(raw, constBuf...)

	compressed := zstdEncoder.EncodeAll(raw, nil)
	out := make([]byte, 0, len(wireMagic)+len(compressed))
	out = append(out, wireMagic...)
	return append(out, compressed...)
}

// Decode is the inverse of Encode.
func Decode(wire []byte) (*Chunk, error) {
	if len(wire) < len(wireMagic) || string(wire[:len(wireMagic)]) != wireMagic {
		return nil, fmt.Errorf("bytecode: decode: bad magic")
	}
	raw, err := zstdDecoder.DecodeAll(wire[len(wireMagic):], nil)
	if err != nil {
		return nil, fmt.Errorf("bytecode: decode: %w", err)
	}
	if len(raw) < 8 {
		return nil, fmt.Errorf("bytecode: decode: truncated header")
	}
	codeLen := binary.LittleEndian.Uint32(raw[0:4])
	constLen := binary.LittleEndian.Uint32(raw[4:8])
	raw = raw[8:]
	code := make([]uint32, codeLen)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	raw = raw[codeLen*4:]
	constants := value.GetValues(raw, int(constLen))
	return &Chunk{Code: code, Constants: constants}, nil
}
