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
	"github.com/ethereum/go-ethereum/crypto"
)

// Known method selectors fingerprinted by the companion heuristics.
var (
	LatestRoundDataSelector = selector("latestRoundData()")
	GetReservesSelector     = selector("getReserves()")
	GetAmountsOutSelector   = selector("getAmountsOut(uint256,address[])")
)

func selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// priceExponents covers any decimal precision a price feed may report in.
var priceExponents = func() []int {
	exps := make([]int, 0, 21)
	for n := 1; n <= 21; n++ {
		exps = append(exps, n)
	}
	return exps
}()

func hasSelectorAndTarget(s evm.Stream, i int) bool {
	hasSelector, hasTarget := false, false
	for j := 1; j <= shortWindow && i-j >= 0; j++ {
		switch s[i-j].Op {
		case vm.PUSH4:
			hasSelector = true
		case vm.PUSH20:
			hasTarget = true
		}
	}
	return hasSelector && hasTarget
}

func priceFetchPattern(s evm.Stream, _ []int) []int {
	var matches []int
	for i, ins := range s {
		if !evm.IsCall(ins.Op) || !hasSelectorAndTarget(s, i) {
			continue
		}
		readsReturn, scales := false, false
		for j := 1; j <= longWindow && i+j < len(s); j++ {
			next := s[i+j]
			switch next.Op {
			case vm.RETURNDATACOPY, vm.RETURNDATASIZE, vm.MLOAD:
				readsReturn = true
			case vm.MUL, vm.DIV, vm.SHL, vm.SHR:
				scales = true
			}
			if evm.IsPowerOfTen(next, scaleExponents...) {
				scales = true
			}
		}
		if readsReturn && scales {
			matches = append(matches, i)
		}
	}
	return matches
}

func doubleScalingAfterPriceFetch(s evm.Stream, anchors []int) []int {
	var matches []int
	for _, i := range anchors {
		scalings := 0
		for j := 1; j <= longWindow && i+j < len(s); j++ {
			next := s[i+j]
			if next.Op == vm.MUL || evm.IsPowerOfTen(next, priceExponents...) {
				scalings++
			}
			if scalings >= 2 {
				matches = append(matches, i)
				break
			}
		}
	}
	return matches
}

func noScalingAfterPriceFetch(s evm.Stream, anchors []int) []int {
	var matches []int
	for _, i := range anchors {
		scaled := false
		for j := 1; j <= longWindow && i+j < len(s); j++ {
			if evm.IsPowerOfTen(s[i+j], priceExponents...) {
				scaled = true
				break
			}
		}
		if !scaled {
			matches = append(matches, i)
		}
	}
	return matches
}

func truncatingDivision(s evm.Stream, _ []int) []int {
	var matches []int
	for i, ins := range s {
		if ins.Op != vm.DIV {
			continue
		}
		safe := false
		for j := 1; j <= 3 && i-j >= 0; j++ {
			if s[i-j].Op == vm.MUL {
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

func invertedPriceMath(s evm.Stream, _ []int) []int {
	var matches []int
	for i := 1; i < len(s); i++ {
		if s[i].Op == vm.DIV && evm.IsPowerOfTen(s[i-1], priceExponents...) {
			matches = append(matches, i)
		}
	}
	return matches
}

// callsFollowedBy flags CALL/STATICCALL instructions with none of guards in
// the following window instructions.
func callsFollowedBy(s evm.Stream, window int, guards ...vm.OpCode) []int {
	var matches []int
	for i, ins := range s {
		if ins.Op != vm.CALL && ins.Op != vm.STATICCALL {
			continue
		}
		guarded := false
		for j := 1; j <= window && i+j < len(s) && !guarded; j++ {
			for _, g := range guards {
				if s[i+j].Op == g {
					guarded = true
					break
				}
			}
		}
		if !guarded {
			matches = append(matches, i)
		}
	}
	return matches
}

func uncheckedOracleCall(s evm.Stream, _ []int) []int {
	return callsFollowedBy(s, shortWindow, vm.ISZERO, vm.REVERT, vm.JUMPI)
}

func noSanityBounds(s evm.Stream, _ []int) []int {
	return callsFollowedBy(s, longWindow, vm.GT, vm.LT, vm.JUMPI, vm.REVERT)
}

func wrongMathOrder(s evm.Stream, _ []int) []int {
	var matches []int
	for i := 0; i+1 < len(s); i++ {
		if s[i].Op == vm.DIV && s[i+1].Op == vm.MUL {
			matches = append(matches, i)
		}
	}
	return matches
}

func pushesSelector(s evm.Stream, want [4]byte) []int {
	var matches []int
	for i, ins := range s {
		if sel, ok := evm.Selector(ins); ok && sel == want {
			matches = append(matches, i)
		}
	}
	return matches
}

func noFreshnessCheck(s evm.Stream, _ []int) []int {
	return pushesSelector(s, LatestRoundDataSelector)
}

func noAnsweredInRoundCheck(s evm.Stream, _ []int) []int {
	return pushesSelector(s, LatestRoundDataSelector)
}

func spotPriceFromPair(s evm.Stream, _ []int) []int {
	return pushesSelector(s, GetReservesSelector)
}

func amountsOutAbuse(s evm.Stream, _ []int) []int {
	return pushesSelector(s, GetAmountsOutSelector)
}
