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
)

// Status records whether a heuristic was executed for a stream.
type Status string

const (
	StatusExecuted Status = "executed"
	StatusSkipped  Status = "skipped"
)

// Run is the outcome of one catalog entry against one stream.
type Run struct {
	Heuristic ID     `json:"heuristic"`
	Status    Status `json:"status"`
	Positions []int  `json:"positions,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// RunAll executes the catalog in order. Companion heuristics are skipped, not
// run-and-empty, when no price-fetch anchor exists.
func RunAll(s evm.Stream) []Run {
	runs := make([]Run, 0, len(catalog))
	var anchors []int
	for _, h := range catalog {
		if h.Family == FamilyCompanion && len(anchors) == 0 {
			runs = append(runs, Run{
				Heuristic: h.ID,
				Status:    StatusSkipped,
				Reason:    "no price-fetch anchor in stream",
			})
			continue
		}
		positions := h.Scan(s, anchors)
		if h.ID == PriceFetchPattern {
			anchors = positions
		}
		runs = append(runs, Run{Heuristic: h.ID, Status: StatusExecuted, Positions: positions})
	}
	return runs
}
