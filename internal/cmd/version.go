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

	"github.com/dotandev/scalewatch/internal/updater"
	"github.com/spf13/cobra"
)

var (
	// Version will be set by the main package
	Version = "dev"
	// CommitSHA will be set by the main package
	CommitSHA = "unknown"

	checkRelease bool
)

var newUpdateChecker = func() *updater.Checker {
	return updater.NewChecker(Version)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of scalewatch",
	Long:  `Display the current version of the scalewatch CLI tool.`,
	Args:  cobra.NoArgs,
	// No config is needed to print the version.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "scalewatch version %s (%s)\n", Version, CommitSHA)
		if !checkRelease {
			return nil
		}

		res, err := newUpdateChecker().Check(cmd.Context())
		if err != nil {
			return fmt.Errorf("release check failed: %w", err)
		}
		if res.NeedsUpdate {
			updater.Notify(cmd.OutOrStdout(), res)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "latest release is %s, you are up to date\n", res.Latest)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&checkRelease, "check", false, "Ask GitHub whether a newer release exists")
	rootCmd.AddCommand(versionCmd)
}
