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
	"os"
	"os/signal"
	"syscall"

	"github.com/dotandev/scalewatch/internal/config"
	"github.com/dotandev/scalewatch/internal/logger"
	"github.com/dotandev/scalewatch/internal/shutdown"
	"github.com/dotandev/scalewatch/internal/updater"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logJSON    bool

	appConfig *config.Config

	// updateNotice carries at most one background release-check result.
	updateNotice = make(chan updater.Result, 1)
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scalewatch",
	Short: "Decimal-scaling bug detector for EVM contracts",
	Long: `Scalewatch disassembles deployed EVM bytecode and flags fixed-point
arithmetic that loses precision or mixes decimal scales: division before
multiplication, missing 1e18 descaling, unscaled oracle prices and more.

Critical and exploit-grade findings are escalated to the configured Slack or
Discord webhooks and appended to a per-tier escalation log.

Examples:
  scalewatch audit 0x6b175474e89094c44da98b954eedeac495271d0f
  scalewatch audit --summary 0x6b17...1d0f
  scalewatch scan --limit 50 --interval 2m
  scalewatch daemon
  scalewatch report list --limit 10`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-json") {
			cfg.Log.JSON = logJSON
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger.SetOutput(cmd.ErrOrStderr(), cfg.Log.JSON)
		logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
		if cfg.Source != "" {
			logger.Logger.Debug("Loaded configuration", "path", cfg.Source)
		}
		logger.Logger.Debug("Effective configuration", "config", cfg.String())
		appConfig = cfg

		startUpdateCheck(cmd.Context())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		select {
		case res := <-updateNotice:
			updater.Notify(cmd.ErrOrStderr(), res)
		default:
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it until it
// finishes or SIGINT/SIGTERM arrives.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	coordinator := shutdown.NewCoordinator()
	setShutdownCoordinator(coordinator)
	defer clearShutdownCoordinator()

	return executeWithSignals(ctx, cancel, sigCh, coordinator, func(execCtx context.Context) error {
		return rootCmd.ExecuteContext(execCtx)
	})
}

// startUpdateCheck runs the daily release check without holding up the
// command. A result that arrives after the command finished is dropped.
func startUpdateCheck(ctx context.Context) {
	if updater.Disabled() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checker := newUpdateChecker()
	go func() {
		if res, ok := checker.CheckBackground(ctx); ok {
			select {
			case updateNotice <- res:
			default:
			}
		}
	}()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file (default: search .scalewatch.toml, ~/.scalewatch.toml, /etc/scalewatch/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")
}
