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

package security

import (
	"encoding/json"
	"testing"

	"github.com/dotandev/scalewatch/internal/evm"
	"github.com/dotandev/scalewatch/internal/heuristic"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x00000000000000000000000000000000000000aa"

func push1() evm.Instruction { return evm.Push(vm.PUSH1, []byte{0x01}) }

// pairOracleStream reads getReserves() from a pair and multiplies the result.
func pairOracleStream() evm.Stream {
	return evm.Sequence(
		evm.Push(vm.PUSH20, make([]byte, 20)),
		evm.Push(vm.PUSH4, heuristic.GetReservesSelector[:]),
		evm.Op(vm.STATICCALL),
		evm.Op(vm.RETURNDATACOPY),
		evm.Op(vm.MUL),
	)
}

func TestClassify_EveryCatalogEntry(t *testing.T) {
	for _, h := range heuristic.Catalog() {
		_, ok := severityByHeuristic[h.ID]
		assert.True(t, ok, "heuristic %s has no severity", h.ID)
	}
	assert.Len(t, severityByHeuristic, len(heuristic.Catalog()))
	assert.NoError(t, checkSeverityTable(heuristic.Catalog()))

	unlisted := append(heuristic.Catalog(), heuristic.Heuristic{ID: heuristic.ID("brand-new-check")})
	err := checkSeverityTable(unlisted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brand-new-check")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		id   heuristic.ID
		want Severity
	}{
		{heuristic.RoundingLossInDivide, SeverityLow},
		{heuristic.PriceFetchPattern, SeverityLow},
		{heuristic.DivideBeforeMultiply, SeverityMedium},
		{heuristic.NoSanityBounds, SeverityMedium},
		{heuristic.MissingDivideAfterMultiply, SeverityHigh},
		{heuristic.WrongMathOrder, SeverityHigh},
		{heuristic.MultiplyWithoutNearbyDivide, SeverityCritical},
		{heuristic.MultiplyWithScaleNoDivideAfter, SeverityCritical},
		{heuristic.DoubleScalingAfterPriceFetch, SeverityCritical},
		{heuristic.SpotPriceFromPair, SeverityExploit},
		{heuristic.AmountsOutAbuse, SeverityExploit},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			got, ok := Classify(tt.id)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := Classify(heuristic.ID("unknown"))
	assert.False(t, ok)
}

func TestSeverity_Order(t *testing.T) {
	order := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical, SeverityExploit}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i].Rank(), order[i-1].Rank())
		assert.True(t, order[i].AtLeast(order[i-1]))
		assert.False(t, order[i-1].AtLeast(order[i]))
	}
	assert.True(t, SeverityCritical.Escalates())
	assert.True(t, SeverityExploit.Escalates())
	assert.False(t, SeverityHigh.Escalates())
}

func TestSeverity_Text(t *testing.T) {
	data, err := json.Marshal(map[string]Severity{"s": SeverityCritical})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"critical"}`, string(data))

	var s Severity
	require.NoError(t, s.UnmarshalText([]byte("EXPLOIT")))
	assert.Equal(t, SeverityExploit, s)

	_, err = ParseSeverity("catastrophic")
	assert.Error(t, err)
	assert.Equal(t, "severity(9)", Severity(9).String())
}

func TestAnalyze_DivideBeforeMultiply(t *testing.T) {
	s := evm.Sequence(evm.Op(vm.DIV), push1(), evm.Op(vm.MUL))
	res := NewDetector().Analyze(testAddress, s)

	require.Len(t, res.Report.Findings, 3)
	assert.Equal(t, testAddress, res.Report.Contract)

	// catalog order, then detection order
	want := []struct {
		id  heuristic.ID
		pc  uint64
		sev Severity
	}{
		{heuristic.DivideBeforeMultiply, 0, SeverityMedium},
		{heuristic.MissingDivideAfterMultiply, 3, SeverityHigh},
		{heuristic.RoundingLossInDivide, 0, SeverityLow},
	}
	for i, w := range want {
		f := res.Report.Findings[i]
		assert.Equal(t, w.id, f.Heuristic)
		assert.Equal(t, w.pc, f.Location)
		assert.Equal(t, w.sev, f.Severity)
		assert.Equal(t, []string{"DIV", "PUSH1", "MUL"}, f.Context)
	}

	require.Len(t, res.Runs, len(heuristic.Catalog()))
	for _, r := range res.Runs {
		h, _ := heuristic.Lookup(r.Heuristic)
		if h.Family == heuristic.FamilyCompanion {
			assert.Equal(t, heuristic.StatusSkipped, r.Status)
		}
	}
}

func TestAnalyze_ContextWindow(t *testing.T) {
	s := evm.Sequence(push1(), push1(), push1(), push1(), evm.Op(vm.DIV), push1(), push1(), push1(), push1())
	res := NewDetector().Analyze(testAddress, s)

	require.Len(t, res.Report.Findings, 1)
	f := res.Report.Findings[0]
	assert.Equal(t, heuristic.RoundingLossInDivide, f.Heuristic)
	assert.Equal(t, uint64(8), f.Location)
	assert.Equal(t, []string{"PUSH1", "PUSH1", "PUSH1", "DIV", "PUSH1", "PUSH1", "PUSH1"}, f.Context)
}

func TestAnalyze_NoCrossHeuristicDedup(t *testing.T) {
	s := evm.Sequence(push1(), evm.Op(vm.MUL), evm.Op(vm.ADD))
	res := NewDetector().Analyze(testAddress, s)

	ids := make([]heuristic.ID, 0)
	for _, f := range res.Report.Findings {
		assert.Equal(t, uint64(2), f.Location)
		ids = append(ids, f.Heuristic)
	}
	assert.Equal(t, []heuristic.ID{heuristic.MissingDivideAfterMultiply, heuristic.MultiplyWithoutNearbyDivide}, ids)
}

func TestAnalyze_EmptyStream(t *testing.T) {
	res := NewDetector().Analyze(testAddress, evm.Stream{})
	assert.NotNil(t, res.Report.Findings)
	assert.Empty(t, res.Report.Findings)
	assert.Empty(t, res.Report.Escalated())
	_, ok := res.Report.Highest()
	assert.False(t, ok)
}

func TestAnalyze_Deterministic(t *testing.T) {
	d := NewDetector()
	first, err := json.Marshal(d.Analyze(testAddress, pairOracleStream()))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(d.Analyze(testAddress, pairOracleStream()))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestReport_Escalated(t *testing.T) {
	res := NewDetector().Analyze(testAddress, pairOracleStream())

	tiers := res.Report.Escalated()
	require.Len(t, tiers, 2)

	assert.Equal(t, SeverityCritical, tiers[0].Tier)
	require.Len(t, tiers[0].Findings, 1)
	assert.Equal(t, heuristic.MultiplyWithoutNearbyDivide, tiers[0].Findings[0].Heuristic)

	assert.Equal(t, SeverityExploit, tiers[1].Tier)
	require.Len(t, tiers[1].Findings, 1)
	assert.Equal(t, heuristic.SpotPriceFromPair, tiers[1].Findings[0].Heuristic)

	top, ok := res.Report.Highest()
	assert.True(t, ok)
	assert.Equal(t, SeverityExploit, top)
	assert.Equal(t, 1, res.Report.CountBySeverity()[SeverityExploit])
}

func TestReport_EscalatedOnlyCritical(t *testing.T) {
	s := evm.Sequence(push1(), evm.Op(vm.MUL), evm.Op(vm.ADD))
	tiers := NewDetector().Analyze(testAddress, s).Report.Escalated()
	require.Len(t, tiers, 1)
	assert.Equal(t, SeverityCritical, tiers[0].Tier)
}

func TestDigest(t *testing.T) {
	findings := []Finding{
		{Heuristic: heuristic.MultiplyWithoutNearbyDivide, Location: 12, Context: []string{"PUSH1", "MUL"}},
		{Heuristic: heuristic.SpotPriceFromPair, Location: 40, Context: []string{"PUSH4"}},
	}
	assert.Equal(t,
		"[multiply-without-nearby-divide] at PC 12\nContext: PUSH1 MUL\n\n[spot-price-from-pair] at PC 40\nContext: PUSH4",
		Digest(findings))
	assert.Equal(t, "", Digest(nil))
}
