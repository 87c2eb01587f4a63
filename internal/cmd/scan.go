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
	"context"
	"fmt"
	"time"

	"github.com/dotandev/scalewatch/internal/logger"
	"github.com/dotandev/scalewatch/internal/watch"
	"github.com/spf13/cobra"
)

var (
	scanLimit    int
	scanInterval time.Duration
	scanOnce     bool
	scanResume   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Continuously audit tokens of newly created Uniswap V2 pairs",
	Long: `Walk the Uniswap V2 factory from the newest pair backwards, collect the
pair tokens (skipping majors such as WETH and USDC) and audit every token not
seen before. Repeats every --interval until interrupted.

A contract whose audit fails is retried on a later cycle. Contracts without
bytecode are remembered and not retried.

Examples:
  scalewatch scan
  scalewatch scan --limit 50 --interval 5m
  scalewatch scan --once
  scalewatch scan --resume`,
	Args: cobra.NoArgs,
	RunE: scanExec,
}

func scanExec(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appConfig)
	if err != nil {
		return err
	}
	defer a.Close()

	limit := appConfig.Scan.Limit
	if cmd.Flags().Changed("limit") {
		limit = scanLimit
	}
	interval := appConfig.Scan.Interval.Duration
	if cmd.Flags().Changed("interval") {
		interval = scanInterval
	}

	out := cmd.OutOrStdout()
	loop, err := a.newLoop(limit, interval, func(stats watch.CycleStats) {
		printCycle(out, stats)
	})
	if err != nil {
		return err
	}

	if scanResume {
		audited, err := a.store.AuditedAddresses(ctx)
		if err != nil {
			return err
		}
		n := loop.Seed(audited)
		logger.Logger.Info("Resumed scan memory from report store", "addresses", n)
	}

	if scanOnce {
		return loop.RunOnce(ctx).DiscoveryErr
	}

	registerShutdownHook("scan-loop", func(context.Context) error {
		loop.Stop()
		return nil
	})

	fmt.Fprintf(out, "Scanning %d candidates every %s\n", limit, interval)
	return loop.Run(ctx)
}

func init() {
	scanCmd.Flags().IntVarP(&scanLimit, "limit", "l", watch.DefaultLimit, "Candidates fetched per cycle")
	scanCmd.Flags().DurationVarP(&scanInterval, "interval", "i", watch.DefaultInterval, "Pause between cycles")
	scanCmd.Flags().BoolVar(&scanOnce, "once", false, "Run a single cycle and exit")
	scanCmd.Flags().BoolVar(&scanResume, "resume", false, "Skip contracts that already have a saved report")

	rootCmd.AddCommand(scanCmd)
}
