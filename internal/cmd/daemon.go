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

	"github.com/dotandev/scalewatch/internal/daemon"
	"github.com/dotandev/scalewatch/internal/logger"
	"github.com/dotandev/scalewatch/internal/watch"
	"github.com/spf13/cobra"
)

var (
	daemonAddr      string
	daemonAuthToken string
	daemonNoScan    bool
	daemonResume    bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scan loop behind a JSON-RPC server",
	Long: `Start the continuous scan loop together with a JSON-RPC 2.0 server.

Endpoints:
  - POST /rpc      Scanner.Audit {"address": "0x..."} and Scanner.Status {}
  - GET  /health   liveness probe
  - GET  /metrics  Prometheus metrics

Example:
  scalewatch daemon --addr 127.0.0.1:8645
  scalewatch daemon --auth-token secret123 --no-scan`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		addr := appConfig.Daemon.Addr
		if cmd.Flags().Changed("addr") {
			addr = daemonAddr
		}

		var (
			server *daemon.Server
			loop   *watch.Loop
		)
		if !daemonNoScan {
			loop, err = a.newLoop(appConfig.Scan.Limit, appConfig.Scan.Interval.Duration, func(stats watch.CycleStats) {
				server.RecordCycle(stats)
			})
			if err != nil {
				return err
			}
			if daemonResume {
				audited, err := a.store.AuditedAddresses(ctx)
				if err != nil {
					return err
				}
				logger.Logger.Info("Resumed scan memory from report store", "addresses", loop.Seed(audited))
			}
		}

		server, err = daemon.NewServer(daemon.Config{
			Addr:      addr,
			AuthToken: daemonAuthToken,
			Auditor:   a.auditor,
			Loop:      loop,
			Metrics:   a.metrics,
		})
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Starting scalewatch daemon on %s\n", addr)
		if daemonAuthToken != "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Authentication: enabled")
		}
		return server.Start(ctx)
	},
}

func init() {
	daemonCmd.Flags().StringVar(&daemonAddr, "addr", "127.0.0.1:8645", "Address to listen on")
	daemonCmd.Flags().StringVar(&daemonAuthToken, "auth-token", "", "Authentication token for API access")
	daemonCmd.Flags().BoolVar(&daemonNoScan, "no-scan", false, "Serve on-demand audits only, without the scan loop")
	daemonCmd.Flags().BoolVar(&daemonResume, "resume", false, "Skip contracts that already have a saved report")

	rootCmd.AddCommand(daemonCmd)
}
