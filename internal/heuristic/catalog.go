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

// Package heuristic implements the windowed opcode-pattern detectors.
//
// Every heuristic is a pure, linear scan over an instruction stream. On an
// anchor opcode it inspects a small forward and/or backward window and
// reports the anchor position once, on the first qualifying match.
package heuristic

import (
	"github.com/dotandev/scalewatch/internal/evm"
)

// ID names a heuristic. The set of IDs is closed: the only heuristics are the
// ones returned by Catalog.
type ID string

const (
	DivideBeforeMultiply           ID = "divide-before-multiply"
	MissingDivideAfterMultiply     ID = "missing-divide-after-multiply"
	DoubleMultiplyNoDescale        ID = "double-multiply-no-descale"
	RoundingLossInDivide           ID = "rounding-loss-in-divide"
	ExternalTokenNoScaling         ID = "external-token-no-scaling"
	MultiplyWithoutNearbyDivide    ID = "multiply-without-nearby-divide"
	MultiplyWithScaleNoDivideAfter ID = "multiply-with-scale-but-no-divide-after"
	PriceFetchPattern              ID = "price-fetch-pattern"
	DoubleScalingAfterPriceFetch   ID = "double-scaling-after-price-fetch"
	NoScalingAfterPriceFetch       ID = "no-scaling-after-price-fetch"
	TruncatingDivision             ID = "truncating-division"
	InvertedPriceMath              ID = "inverted-price-math"
	UncheckedOracleCall            ID = "unchecked-oracle-call"
	NoFreshnessCheck               ID = "no-freshness-check"
	NoAnsweredInRoundCheck         ID = "no-answered-in-round-check"
	NoSanityBounds                 ID = "no-sanity-bounds"
	WrongMathOrder                 ID = "wrong-math-order"
	SpotPriceFromPair              ID = "spot-price-from-pair"
	AmountsOutAbuse                ID = "amounts-out-abuse"
)

// Family groups heuristics by how they are scheduled.
type Family int

const (
	// FamilyCore heuristics always run.
	FamilyCore Family = iota
	// FamilyCompanion heuristics only run when price-fetch-pattern found at
	// least one anchor in the same stream.
	FamilyCompanion
)

func (f Family) String() string {
	if f == FamilyCompanion {
		return "companion"
	}
	return "core"
}

type scanFunc func(s evm.Stream, anchors []int) []int

// Heuristic is one detector of the catalog.
type Heuristic struct {
	ID          ID
	Family      Family
	Description string
	scan        scanFunc
}

// Scan returns the flagged stream positions in detection order. anchors are
// the price-fetch-pattern positions; core heuristics ignore them.
func (h Heuristic) Scan(s evm.Stream, anchors []int) []int {
	if h.scan == nil {
		return nil
	}
	out := h.scan(s, anchors)
	if out == nil {
		return []int{}
	}
	return out
}

var catalog = []Heuristic{
	{DivideBeforeMultiply, FamilyCore, "DIV followed by MUL loses precision: (a / b) * c", divideBeforeMultiply},
	{MissingDivideAfterMultiply, FamilyCore, "MUL result is never descaled by a DIV", missingDivideAfterMultiply},
	{DoubleMultiplyNoDescale, FamilyCore, "two MULs without a DIV or 1e18 descale in between", doubleMultiplyNoDescale},
	{RoundingLossInDivide, FamilyCore, "DIV without a preceding ADD rounds toward zero", roundingLossInDivide},
	{ExternalTokenNoScaling, FamilyCore, "external call result used as a balance without decimal scaling", externalTokenNoScaling},
	{MultiplyWithoutNearbyDivide, FamilyCore, "MUL with no DIV on either side", multiplyWithoutNearbyDivide},
	{MultiplyWithScaleNoDivideAfter, FamilyCore, "MUL by a 10^n scale constant that is never divided back", multiplyWithScaleNoDivideAfter},
	{PriceFetchPattern, FamilyCore, "external price read followed by return-data math", priceFetchPattern},
	{DoubleScalingAfterPriceFetch, FamilyCompanion, "fetched price is scaled twice", doubleScalingAfterPriceFetch},
	{NoScalingAfterPriceFetch, FamilyCompanion, "fetched price is never scaled by a 10^n constant", noScalingAfterPriceFetch},
	{TruncatingDivision, FamilyCompanion, "DIV not preceded by a MUL truncates the price", truncatingDivision},
	{InvertedPriceMath, FamilyCompanion, "scale constant divided by the price instead of the reverse", invertedPriceMath},
	{UncheckedOracleCall, FamilyCompanion, "oracle call success flag is never checked", uncheckedOracleCall},
	{NoFreshnessCheck, FamilyCompanion, "latestRoundData() used without a staleness check", noFreshnessCheck},
	{NoAnsweredInRoundCheck, FamilyCompanion, "latestRoundData() used without an answeredInRound check", noAnsweredInRoundCheck},
	{NoSanityBounds, FamilyCompanion, "oracle answer is never bounds-checked", noSanityBounds},
	{WrongMathOrder, FamilyCompanion, "DIV immediately followed by MUL", wrongMathOrder},
	{SpotPriceFromPair, FamilyCompanion, "spot price read from a pair's getReserves()", spotPriceFromPair},
	{AmountsOutAbuse, FamilyCompanion, "router getAmountsOut() used as a price oracle", amountsOutAbuse},
}

// Catalog returns every heuristic in the fixed execution order.
func Catalog() []Heuristic {
	out := make([]Heuristic, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the heuristic registered under id.
func Lookup(id ID) (Heuristic, bool) {
	for _, h := range catalog {
		if h.ID == id {
			return h, true
		}
	}
	return Heuristic{}, false
}
