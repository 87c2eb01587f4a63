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

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/dotandev/scalewatch/internal/auditor"
	"github.com/dotandev/scalewatch/internal/heuristic"
	"github.com/dotandev/scalewatch/internal/security"
	"github.com/dotandev/scalewatch/internal/watch"
	"github.com/fatih/color"
)

var severityColors = map[security.Severity]*color.Color{
	security.SeverityLow:      color.New(color.FgCyan),
	security.SeverityMedium:   color.New(color.FgYellow),
	security.SeverityHigh:     color.New(color.FgRed),
	security.SeverityCritical: color.New(color.FgRed, color.Bold),
	security.SeverityExploit:  color.New(color.FgMagenta, color.Bold),
}

func paintSeverity(s security.Severity) string {
	if c, ok := severityColors[s]; ok {
		return c.Sprint(s.String())
	}
	return s.String()
}

// printSummary renders the human form of an audit outcome.
func printSummary(w io.Writer, out *auditor.Outcome) {
	bold := color.New(color.Bold).SprintFunc()
	report := out.Report

	fmt.Fprintf(w, "%s %s\n", bold("Contract:"), report.Contract)
	if len(report.Findings) == 0 {
		fmt.Fprintf(w, "%s %s\n", bold("Issues:"), color.GreenString("none"))
	} else {
		top, _ := report.Highest()
		fmt.Fprintf(w, "%s %d (highest: %s)\n", bold("Issues:"), len(report.Findings), paintSeverity(top))

		counts := report.CountBySeverity()
		for s := security.SeverityExploit; s >= security.SeverityLow; s-- {
			if n := counts[s]; n > 0 {
				fmt.Fprintf(w, "  %-9s %d\n", s.String(), n)
			}
		}
		fmt.Fprintln(w)

		for _, f := range report.Findings {
			fmt.Fprintf(w, "[%s] %s at PC %d\n", paintSeverity(f.Severity), f.Heuristic, f.Location)
			if h, ok := heuristic.Lookup(f.Heuristic); ok {
				fmt.Fprintf(w, "  %s\n", h.Description)
			}
			fmt.Fprintf(w, "  Context: %s\n", strings.Join(f.Context, " "))
		}
	}

	for _, r := range out.Runs {
		if r.Status == heuristic.StatusSkipped {
			fmt.Fprintf(w, "\n%s companion heuristics skipped (%s)\n", color.YellowString("note:"), r.Reason)
			break
		}
	}

	for _, esc := range out.Escalations {
		fmt.Fprintf(w, "\n%s %s tier, %d finding(s): %s\n",
			color.RedString("escalated:"), esc.Tier, len(esc.Findings), escalationState(esc))
	}
}

func escalationState(esc auditor.Escalation) string {
	var parts []string
	switch {
	case esc.Notified:
		parts = append(parts, "notified")
	case esc.NotifyErr != nil:
		parts = append(parts, "notify failed: "+esc.NotifyErr.Error())
	}
	switch {
	case esc.Logged:
		parts = append(parts, "logged")
	case esc.LogErr != nil:
		parts = append(parts, "log failed: "+esc.LogErr.Error())
	}
	if len(parts) == 0 {
		return "no channels configured"
	}
	return strings.Join(parts, ", ")
}

func printCycle(w io.Writer, stats watch.CycleStats) {
	if stats.DiscoveryErr != nil {
		fmt.Fprintf(w, "%s discovery failed: %v\n", color.RedString("cycle:"), stats.DiscoveryErr)
		return
	}
	fmt.Fprintf(w, "%s %d candidates, %d audited, %d skipped, %d failed, %d already seen\n",
		color.CyanString("cycle:"), stats.Candidates, stats.Audited, stats.Skipped, stats.Failed, stats.AlreadySeen)
}
