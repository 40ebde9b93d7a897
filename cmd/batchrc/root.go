// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"github.com/spf13/cobra"
)

var (
	// Flags
	configFile string
	debug      bool
)

// 🎯 newRootCmd builds the batchrc command tree. Running with no subcommand
// starts a processing run.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "batchrc",
		Short: "idempotent, resumable batch file processing",
		Long: `batchrc pulls items from a remote store folder or a local directory,
runs each through a set of operations, and publishes the artifacts together
with a durable state table. Re-running after any interruption performs only
the remaining work.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(newContext())
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", ".batchrc.yaml", "config file path")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	runCmd := newRunCmd()
	root.AddCommand(runCmd, newStatusCmd(), newCleanCmd())

	// No subcommand means run
	root.RunE = runCmd.RunE
	addRunFlags(root)

	return root
}
