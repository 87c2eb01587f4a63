// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package evm

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/asm"
	"github.com/ethereum/go-ethereum/core/vm"
)

// Disassembler turns runtime bytecode into an instruction stream.
type Disassembler interface {
	Decode(code []byte) (Stream, error)
}

// Decoder is the default Disassembler.
type Decoder struct{}

func (Decoder) Decode(code []byte) (Stream, error) {
	return Disassemble(code)
}

// Disassemble decodes code linearly. Empty code yields an empty stream.
// A push whose operand runs past the end of code (common in the metadata
// trailer) keeps the bytes that are present.
func Disassemble(code []byte) (Stream, error) {
	stream := make(Stream, 0, len(code)/2)
	if len(code) == 0 {
		return stream, nil
	}

	it := asm.NewInstructionIterator(code)
	for it.Next() {
		var operand []byte
		if it.Op().IsPush() {
			operand = append([]byte{}, it.Arg()...)
		}
		stream = append(stream, Instruction{PC: it.PC(), Op: it.Op(), Operand: operand})
	}

	if err := it.Error(); err != nil {
		next := uint64(0)
		if n := len(stream); n > 0 {
			last := stream[n-1]
			next = last.PC + 1 + uint64(len(last.Operand))
		}
		if next >= uint64(len(code)) {
			return nil, fmt.Errorf("disassemble: %w", err)
		}
		op := vm.OpCode(code[next])
		if !op.IsPush() {
			return nil, fmt.Errorf("disassemble: %w", err)
		}
		stream = append(stream, Instruction{
			PC:      next,
			Op:      op,
			Operand: append([]byte{}, code[next+1:]...),
		})
	}

	return stream, nil
}

// ParseHex decodes 0x-prefixed runtime bytecode. "0x" and "" decode to nil.
func ParseHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" || s == "0X" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	code, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode hex: %w", err)
	}
	return code, nil
}
