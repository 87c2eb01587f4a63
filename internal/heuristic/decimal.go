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

package heuristic

import (
	"github.com/dotandev/scalewatch/internal/evm"
	"github.com/ethereum/go-ethereum/core/vm"
)

const (
	shortWindow = 5
	longWindow  = 10
)

// scaleExponents are the 10^n constants treated as decimal scale factors.
var scaleExponents = []int{3, 6, 9, 12, 15, 18, 21}

func isWad(ins evm.Instruction) bool {
	return evm.IsPowerOfTen(ins, 18)
}

func divideBeforeMultiply(s evm.Stream, _ []int) []int {
	var matches []int
	for i, ins := range s {
		if ins.Op != vm.DIV {
			continue
		}
		for j := 1; j <= shortWindow && i+j < len(s); j++ {
			op := s[i+j].Op
			if op == vm.MUL {
				matches = append(matches, i)
				break
			}
			if op == vm.DIV || evm.IsTerminal(op) {
				break
			}
		}
	}
	return matches
}

func missingDivideAfterMultiply(s evm.Stream, _ []int) []int {
	var matches []int
	for i, ins := range s {
		if ins.Op != vm.MUL {
			continue
		}
		found := false
		for j := 1; j <= shortWindow && i+j < len(s); j++ {
			op := s[i+j].Op
			if op == vm.DIV {
				found = true
				break
			}
			if op == vm.MUL {
				break
			}
		}
		if !found {
			matches = append(matches, i)
		}
	}
	return matches
}

func doubleMultiplyNoDescale(s evm.Stream, _ []int) []int {
	var matches []int
	for i, ins := range s {
		if ins.Op != vm.MUL {
			continue
		}
		for j := 1; j <= longWindow && i+j < len(s); j++ {
			if s[i+j].Op != vm.MUL {
				continue
			}
			descaled := false
			for k := i + 1; k < i+j; k++ {
				if s[k].Op == vm.DIV || isWad(s[k]) {
					descaled = true
					break
				}
			}
			if !descaled {
				matches = append(matches, i)
			}
			break
		}
	}
	return matches
}

func roundingLossInDivide(s evm.Stream, _ []int) []int {
	var matches []int
	for i, ins := range s {
		if ins.Op != vm.DIV {
			continue
		}
		safe := false
		for j := 1; j <= 2 && i-j >= 0; j++ {
			if s[i-j].Op == vm.ADD {
				safe = true
				break
			}
		}
		if !safe {
			matches = append(matches, i)
		}
	}
	return matches
}

func isBalanceRead(op vm.OpCode) bool {
	switch op {
	case vm.SLOAD, vm.CALLDATALOAD, vm.BALANCE, vm.SELFBALANCE:
		return true
	}
	return false
}

func externalTokenNoScaling(s evm.Stream, _ []int) []int {
	var matches []int
	for i, ins := range s {
		if ins.Op != vm.CALL {
			continue
		}
		balance, scaled := false, false
		for j := 1; j <= longWindow && i+j < len(s); j++ {
			next := s[i+j]
			if isBalanceRead(next.Op) {
				balance = true
			}
			if next.Op == vm.MUL || next.Op == vm.DIV || isWad(next) {
				scaled = true
				break
			}
		}
		if balance && !scaled {
			matches = append(matches, i)
		}
	}
	return matches
}

func multiplyWithoutNearbyDivide(s evm.Stream, _ []int) []int {
	var matches []int
	for i, ins := range s {
		if ins.Op != vm.MUL {
			continue
		}
		if divideWithin(s, i, 1) || divideWithin(s, i, -1) {
			continue
		}
		matches = append(matches, i)
	}
	return matches
}

// divideWithin walks up to shortWindow instructions from i in direction dir
// and reports whether a DIV shows up before another MUL.
func divideWithin(s evm.Stream, i, dir int) bool {
	for j := 1; j <= shortWindow; j++ {
		k := i + j*dir
		if k < 0 || k >= len(s) {
			return false
		}
		switch s[k].Op {
		case vm.DIV:
			return true
		case vm.MUL:
			return false
		}
	}
	return false
}

func multiplyWithScaleNoDivideAfter(s evm.Stream, _ []int) []int {
	var matches []int
	for i, ins := range s {
		if ins.Op != vm.MUL {
			continue
		}
		scaled := false
		for j := 1; j <= 2 && i-j >= 0; j++ {
			if evm.IsPowerOfTen(s[i-j], scaleExponents...) {
				scaled = true
				break
			}
		}
		if !scaled {
			continue
		}
		hasDiv := false
		for j := 1; j <= shortWindow && i+j < len(s); j++ {
			if s[i+j].Op == vm.DIV {
				hasDiv = true
				break
			}
		}
		if !hasDiv {
			matches = append(matches, i)
		}
	}
	return matches
}
