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
	"github.com/ethereum/go-ethereum/core/vm"
)

// Op builds an instruction without an operand.
func Op(op vm.OpCode) Instruction {
	return Instruction{Op: op}
}

// Push builds a push instruction of the given width. data shorter than the
// width is treated as left-padded with zeros.
func Push(op vm.OpCode, data []byte) Instruction {
	return Instruction{Op: op, Operand: append([]byte{}, data...)}
}

// Sequence lays instructions out back to back and assigns program counters
// the way the EVM encodes them.
func Sequence(ins ...Instruction) Stream {
	stream := make(Stream, 0, len(ins))
	pc := uint64(0)
	for _, i := range ins {
		i.PC = pc
		stream = append(stream, i)
		pc += 1 + uint64(pushWidth(i.Op))
	}
	return stream
}

// Bytecode re-encodes the stream.
func (s Stream) Bytecode() []byte {
	var code []byte
	for _, ins := range s {
		code = append(code, byte(ins.Op))
		width := pushWidth(ins.Op)
		if width == 0 {
			continue
		}
		operand := ins.Operand
		if len(operand) > width {
			operand = operand[len(operand)-width:]
		}
		for pad := width - len(operand); pad > 0; pad-- {
			code = append(code, 0)
		}
		code = append(code, operand...)
	}
	return code
}

func pushWidth(op vm.OpCode) int {
	if !op.IsPush() {
		return 0
	}
	return int(op) - int(vm.PUSH0)
}
