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
	"io"
	"text/tabwriter"
	"time"

	"github.com/dotandev/scalewatch/internal/auditor"
	"github.com/dotandev/scalewatch/internal/db"
	"github.com/dotandev/scalewatch/internal/security"
	"github.com/spf13/cobra"
)

var (
	reportContract string
	reportLimit    int
	reportJSON     bool
	reportTier     string
	reportOlder    time.Duration
	reportDryRun   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect saved audit reports and escalation logs",
	Long: `Read the report store written by audit, scan and daemon.

Examples:
  scalewatch report list --limit 10
  scalewatch report list --contract 0x6b175474e89094c44da98b954eedeac495271d0f --json
  scalewatch report escalations --tier critical
  scalewatch report prune --older-than 720h --dry-run`,
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := db.ReportQuery{Limit: reportLimit}
		if reportContract != "" {
			addr, err := auditor.NormalizeAddress(reportContract)
			if err != nil {
				return err
			}
			q.Contract = addr
		}
		return withStore(func(store *db.Store) error {
			records, err := store.ListReports(cmd.Context(), q)
			if err != nil {
				return err
			}
			if reportJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCONTRACT\tISSUES\tHIGHEST\tAUDITED")
			for _, r := range records {
				highest := r.Highest
				if highest == "" {
					highest = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", r.ID, r.Contract, len(r.Findings), highest, r.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		})
	},
}

var reportEscalationsCmd = &cobra.Command{
	Use:   "escalations",
	Short: "Show the escalation logs, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var tier *security.Severity
		if reportTier != "" {
			t, err := security.ParseSeverity(reportTier)
			if err != nil {
				return err
			}
			if !t.Escalates() {
				return fmt.Errorf("tier %q has no escalation log; use critical or exploit", reportTier)
			}
			tier = &t
		}
		return withStore(func(store *db.Store) error {
			records, err := store.ListEscalations(cmd.Context(), tier, reportLimit)
			if err != nil {
				return err
			}
			if reportJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			w := cmd.OutOrStdout()
			for _, r := range records {
				fmt.Fprintf(w, "#%d %s %s %s (%d issues)\n", r.ID, r.CreatedAt.Format(time.RFC3339), paintSeverity(r.Tier), r.Address, r.Count)
				fmt.Fprintf(w, "%s\n\n", security.Digest(r.Findings))
			}
			return nil
		})
	},
}

var reportPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete reports older than a retention window",
	Long: `Delete saved reports older than --older-than (default: db.retention from
the config). Escalation logs are append-only and never pruned.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		maxAge := appConfig.DB.Retention.Duration
		if cmd.Flags().Changed("older-than") {
			maxAge = reportOlder
		}
		if maxAge <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		return withStore(func(store *db.Store) error {
			n, err := store.PruneReports(cmd.Context(), maxAge, reportDryRun)
			if err != nil {
				return err
			}
			if reportDryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "Would delete %d report(s) older than %s\n", n, maxAge)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d report(s) older than %s\n", n, maxAge)
			return nil
		})
	},
}

// withStore opens the report store only; the node is not needed to read it.
func withStore(fn func(*db.Store) error) error {
	store, err := db.Open(appConfig.DB.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	reportCmd.PersistentFlags().IntVarP(&reportLimit, "limit", "n", 20, "Maximum number of entries (0 for all)")
	reportCmd.PersistentFlags().BoolVar(&reportJSON, "json", false, "Print JSON instead of a table")

	reportListCmd.Flags().StringVar(&reportContract, "contract", "", "Only reports for this contract")
	reportEscalationsCmd.Flags().StringVar(&reportTier, "tier", "", "Only this tier (critical or exploit)")
	reportPruneCmd.Flags().DurationVar(&reportOlder, "older-than", 0, "Age beyond which reports are deleted")
	reportPruneCmd.Flags().BoolVar(&reportDryRun, "dry-run", false, "Count matching reports without deleting them")

	reportCmd.AddCommand(reportListCmd, reportEscalationsCmd, reportPruneCmd)
	rootCmd.AddCommand(reportCmd)
}
