// Copyright 2025 The DBQ Authors
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

package dqc

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/DataBridgeTech/dqcheck"
)

type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusFail CheckStatus = "FAIL"
	// StatusWarn is a failed check configured with on_fail: warn.
	StatusWarn CheckStatus = "WARN"
)

type CheckResult struct {
	Check    dqcheck.DataQualityCheck
	Status   CheckStatus
	Duration time.Duration
}

// RunReport summarizes one Runner.Run call.
type RunReport struct {
	RunID     string
	Dataset   string
	StartedAt time.Time
	Duration  time.Duration
	Results   []CheckResult
	Skipped   []dqcheck.DataQualityCheck
}

// Total is the number of evaluated checks. Skipped checks are not counted.
func (r *RunReport) Total() int {
	return len(r.Results)
}

func (r *RunReport) PassedCount() int {
	passed := 0
	for _, res := range r.Results {
		if res.Status == StatusPass {
			passed++
		}
	}
	return passed
}

// Passed reports whether no evaluated check failed the run.
func (r *RunReport) Passed() bool {
	for _, res := range r.Results {
		if res.Status == StatusFail {
			return false
		}
	}
	return true
}

// Print writes the summary table.
func (r *RunReport) Print(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\nResults (%s):\n", r.Dataset)
	fmt.Fprintf(&b, "%-22s %-30s %-6s\n", "Check", "Column", "Result")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	for _, res := range r.Results {
		fmt.Fprintf(&b, "%-22s %-30s %-6s\n", res.Check.Type, res.Check.TargetColumn(), res.Status)
	}
	fmt.Fprintf(&b, "\n%d/%d checks passed.\n", r.PassedCount(), r.Total())

	_, err := io.WriteString(w, b.String())
	return err
}
