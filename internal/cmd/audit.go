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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dotandev/scalewatch/internal/auditor"
	"github.com/dotandev/scalewatch/internal/errors"
	"github.com/dotandev/scalewatch/internal/watch"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	auditSummary bool
	auditOut     string
)

var auditCmd = &cobra.Command{
	Use:   "audit <address>",
	Short: "Audit one deployed contract for decimal-scaling bugs",
	Long: `Fetch the runtime bytecode of a contract, run every heuristic over it and
print the findings.

By default the full report is printed as JSON and saved to the report store.
With --summary a colored human summary is printed instead and nothing is
saved. Critical and exploit findings are escalated either way.

Examples:
  scalewatch audit 0x6b175474e89094c44da98b954eedeac495271d0f
  scalewatch audit --summary 0x6b175474e89094c44da98b954eedeac495271d0f
  scalewatch audit --out dai.json 0x6b175474e89094c44da98b954eedeac495271d0f`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			_ = cmd.Usage()
			return errors.WrapValidationError(fmt.Sprintf("audit takes exactly one address, got %d arguments", len(args)))
		}
		return nil
	},
	RunE: auditExec,
}

func auditExec(cmd *cobra.Command, args []string) error {
	address, err := auditor.NormalizeAddress(args[0])
	if err != nil {
		_ = cmd.Usage()
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, appConfig)
	if err != nil {
		return err
	}
	defer a.Close()

	spinner := watch.NewSpinnerTo(cmd.ErrOrStderr())
	spinner.Start("Auditing " + address)
	out, err := a.auditor.Audit(ctx, address, auditor.Options{SummaryOnly: auditSummary})
	if err != nil {
		if errors.IsSkip(err) {
			spinner.StopWithMessage("Nothing to audit")
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s has no deployed bytecode\n", color.YellowString("skipped:"), address)
			return nil
		}
		spinner.StopWithError("Audit failed")
		return err
	}
	spinner.StopWithMessage(fmt.Sprintf("Audited %s in %s", address, out.Duration.Round(time.Millisecond)))

	if auditOut != "" {
		if err := writeReportFile(auditOut, out); err != nil {
			return err
		}
	}

	if auditSummary {
		printSummary(cmd.OutOrStdout(), out)
		return nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out.Report)
}

func writeReportFile(path string, out *auditor.Outcome) error {
	data, err := json.MarshalIndent(out.Report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func init() {
	auditCmd.Flags().BoolVar(&auditSummary, "summary", false, "Print a human summary instead of the JSON report and skip saving it")
	auditCmd.Flags().StringVarP(&auditOut, "out", "o", "", "Also write the JSON report to this file")

	rootCmd.AddCommand(auditCmd)
}
