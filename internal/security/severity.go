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
	"fmt"
	"strings"

	"github.com/dotandev/scalewatch/internal/heuristic"
)

// Severity levels for findings, ordered from least to most severe.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
	SeverityExploit
)

var severityNames = [...]string{"low", "medium", "high", "critical", "exploit"}

func (s Severity) String() string {
	if s < SeverityLow || s > SeverityExploit {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// Rank is the position of s in the severity order, starting at 0 for low.
func (s Severity) Rank() int {
	return int(s)
}

// AtLeast reports whether s is as severe as other or more.
func (s Severity) AtLeast(other Severity) bool {
	return s >= other
}

// Escalates reports whether findings of this severity trigger alerts.
func (s Severity) Escalates() bool {
	return s == SeverityCritical || s == SeverityExploit
}

func (s Severity) MarshalText() ([]byte, error) {
	if s < SeverityLow || s > SeverityExploit {
		return nil, fmt.Errorf("unknown severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity accepts the lowercase names, case-insensitively.
func ParseSeverity(name string) (Severity, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return SeverityLow, fmt.Errorf("unknown severity %q", name)
}

// EscalationTiers lists the tiers that are escalated, in escalation order.
var EscalationTiers = []Severity{SeverityCritical, SeverityExploit}

var severityByHeuristic = map[heuristic.ID]Severity{
	heuristic.RoundingLossInDivide: SeverityLow,
	heuristic.PriceFetchPattern:    SeverityLow,

	heuristic.DivideBeforeMultiply:   SeverityMedium,
	heuristic.ExternalTokenNoScaling: SeverityMedium,
	heuristic.TruncatingDivision:     SeverityMedium,
	heuristic.NoAnsweredInRoundCheck: SeverityMedium,
	heuristic.NoSanityBounds:         SeverityMedium,

	heuristic.MissingDivideAfterMultiply: SeverityHigh,
	heuristic.DoubleMultiplyNoDescale:    SeverityHigh,
	heuristic.NoScalingAfterPriceFetch:   SeverityHigh,
	heuristic.InvertedPriceMath:          SeverityHigh,
	heuristic.UncheckedOracleCall:        SeverityHigh,
	heuristic.NoFreshnessCheck:           SeverityHigh,
	heuristic.WrongMathOrder:             SeverityHigh,

	heuristic.MultiplyWithoutNearbyDivide:    SeverityCritical,
	heuristic.MultiplyWithScaleNoDivideAfter: SeverityCritical,
	heuristic.DoubleScalingAfterPriceFetch:   SeverityCritical,

	heuristic.SpotPriceFromPair: SeverityExploit,
	heuristic.AmountsOutAbuse:   SeverityExploit,
}

func init() {
	if err := checkSeverityTable(heuristic.Catalog()); err != nil {
		panic(err)
	}
}

// checkSeverityTable fails when a catalog heuristic has no severity.
func checkSeverityTable(catalog []heuristic.Heuristic) error {
	var missing []string
	for _, h := range catalog {
		if _, ok := severityByHeuristic[h.ID]; !ok {
			missing = append(missing, string(h.ID))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("security: no severity for heuristics: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Classify returns the fixed severity of a heuristic. ok is false for IDs
// outside the catalog.
func Classify(id heuristic.ID) (Severity, bool) {
	s, ok := severityByHeuristic[id]
	return s, ok
}
