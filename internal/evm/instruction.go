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

// Package evm holds the decoded instruction stream the heuristics scan.
package evm

import (
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
)

// Instruction is one decoded opcode. Operand is only set on push instructions.
type Instruction struct {
	PC      uint64
	Op      vm.OpCode
	Operand []byte
}

// Mnemonic returns the opcode name, e.g. "PUSH32".
func (i Instruction) Mnemonic() string {
	return i.Op.String()
}

// IsPush reports whether the instruction carries a literal operand.
func (i Instruction) IsPush() bool {
	return i.Op.IsPush()
}

// Stream is the ordered instruction sequence of one contract.
type Stream []Instruction

// Mnemonics returns the opcode names of s[lo:hi], clamped to the stream bounds.
func (s Stream) Mnemonics(lo, hi int) []string {
	if lo < 0 {
		lo = 0
	}
	if hi > len(s) {
		hi = len(s)
	}
	if lo >= hi {
		return []string{}
	}
	names := make([]string, 0, hi-lo)
	for _, ins := range s[lo:hi] {
		names = append(names, ins.Mnemonic())
	}
	return names
}

// IndexOf returns the position of the instruction at pc, or -1.
func (s Stream) IndexOf(pc uint64) int {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case s[mid].PC == pc:
			return mid
		case s[mid].PC < pc:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return -1
}

// At returns the instruction at position i and whether it exists.
func (s Stream) At(i int) (Instruction, bool) {
	if i < 0 || i >= len(s) {
		return Instruction{}, false
	}
	return s[i], true
}

// IsTerminal reports whether op ends execution of the current frame.
func IsTerminal(op vm.OpCode) bool {
	switch op {
	case vm.STOP, vm.RETURN, vm.REVERT, vm.INVALID, vm.SELFDESTRUCT:
		return true
	}
	return false
}

// IsCall reports whether op transfers control to another contract.
func IsCall(op vm.OpCode) bool {
	return op == vm.CALL || op == vm.STATICCALL || op == vm.DELEGATECALL
}

// Literal returns the push operand of ins as a 256-bit word.
func Literal(ins Instruction) (*uint256.Int, bool) {
	if !ins.IsPush() || len(ins.Operand) == 0 || len(ins.Operand) > 32 {
		return nil, false
	}
	return new(uint256.Int).SetBytes(ins.Operand), true
}

var powersOfTen = func() []*uint256.Int {
	// 10^77 is the largest power of ten that fits in 256 bits.
	out := make([]*uint256.Int, 78)
	ten := uint256.NewInt(10)
	out[0] = uint256.NewInt(1)
	for i := 1; i < len(out); i++ {
		out[i] = new(uint256.Int).Mul(out[i-1], ten)
	}
	return out
}()

// PowerOfTen returns 10^n for 0 <= n <= 77.
func PowerOfTen(n int) *uint256.Int {
	return new(uint256.Int).Set(powersOfTen[n])
}

// IsPowerOfTen reports whether ins pushes exactly 10^n for some n in exps.
func IsPowerOfTen(ins Instruction, exps ...int) bool {
	v, ok := Literal(ins)
	if !ok {
		return false
	}
	for _, n := range exps {
		if n >= 0 && n < len(powersOfTen) && v.Eq(powersOfTen[n]) {
			return true
		}
	}
	return false
}

// Selector returns the 4-byte operand of a PUSH4, if ins is one.
func Selector(ins Instruction) ([4]byte, bool) {
	var sel [4]byte
	if ins.Op != vm.PUSH4 || len(ins.Operand) != 4 {
		return sel, false
	}
	copy(sel[:], ins.Operand)
	return sel, true
}
