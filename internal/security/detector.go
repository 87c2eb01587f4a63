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

	"github.com/dotandev/scalewatch/internal/evm"
	"github.com/dotandev/scalewatch/internal/heuristic"
)

// contextRadius is the number of mnemonics kept on each side of a finding.
const contextRadius = 3

// Finding is one flagged location.
type Finding struct {
	Heuristic heuristic.ID `json:"type"`
	Location  uint64       `json:"pc"`
	Context   []string     `json:"context"`
	Severity  Severity     `json:"severity"`
}

// Report collects the findings of one contract in catalog, then detection, order.
type Report struct {
	Contract string    `json:"contract"`
	Findings []Finding `json:"issues"`
}

// Run summarizes one catalog entry for a contract.
type Run struct {
	Heuristic heuristic.ID     `json:"heuristic"`
	Status    heuristic.Status `json:"status"`
	Count     int              `json:"count"`
	Reason    string           `json:"reason,omitempty"`
}

// Result is the output of Detector.Analyze.
type Result struct {
	Report Report `json:"report"`
	Runs   []Run  `json:"runs"`
}

// TierFindings are the findings of one escalated severity tier.
type TierFindings struct {
	Tier     Severity
	Findings []Finding
}

// Detector turns instruction streams into reports.
type Detector struct{}

// NewDetector creates a new detector
func NewDetector() *Detector {
	return &Detector{}
}

// Analyze runs the full catalog over s and aggregates the flagged positions.
// Two heuristics flagging the same location yield two findings.
func (d *Detector) Analyze(address string, s evm.Stream) Result {
	runs := heuristic.RunAll(s)

	res := Result{
		Report: Report{Contract: address, Findings: make([]Finding, 0)},
		Runs:   make([]Run, 0, len(runs)),
	}
	for _, r := range runs {
		res.Runs = append(res.Runs, Run{
			Heuristic: r.Heuristic,
			Status:    r.Status,
			Count:     len(r.Positions),
			Reason:    r.Reason,
		})
		// every catalog entry is classified; checked at init
		severity, _ := Classify(r.Heuristic)
		for _, i := range r.Positions {
			res.Report.Findings = append(res.Report.Findings, Finding{
				Heuristic: r.Heuristic,
				Location:  s[i].PC,
				Context:   s.Mnemonics(i-contextRadius, i+contextRadius+1),
				Severity:  severity,
			})
		}
	}
	return res
}

// Escalated groups critical and exploit findings by tier, in tier order.
// Tiers without findings are omitted.
func (r Report) Escalated() []TierFindings {
	var out []TierFindings
	for _, tier := range EscalationTiers {
		var matched []Finding
		for _, f := range r.Findings {
			if f.Severity == tier {
				matched = append(matched, f)
			}
		}
		if len(matched) > 0 {
			out = append(out, TierFindings{Tier: tier, Findings: matched})
		}
	}
	return out
}

// CountBySeverity tallies findings per tier.
func (r Report) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}

// Highest returns the most severe tier in the report, if any.
func (r Report) Highest() (Severity, bool) {
	if len(r.Findings) == 0 {
		return SeverityLow, false
	}
	top := SeverityLow
	for _, f := range r.Findings {
		if f.Severity > top {
			top = f.Severity
		}
	}
	return top, true
}

// Digest renders findings as plain text for alerts.
func Digest(findings []Finding) string {
	var b strings.Builder
	for i, f := range findings {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s] at PC %d\nContext: %s", f.Heuristic, f.Location, strings.Join(f.Context, " "))
	}
	return b.String()
}
