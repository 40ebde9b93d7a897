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
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/walteh/batchrc/pkg/config"
	"github.com/walteh/batchrc/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// 🧹 newCleanCmd builds the clean subcommand: it removes the run's temp
// directory. Output directories and the remote store are never touched.
func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "remove the temp working directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd.Context())
		},
	}
}

func runClean(ctx context.Context) error {
	console := log.FromContext(ctx)

	cfg, err := config.Load(ctx, configFile)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}

	if _, err := os.Stat(cfg.TempDir); os.IsNotExist(err) {
		console.Info("nothing to clean")
		return nil
	}

	if err := os.RemoveAll(cfg.TempDir); err != nil {
		return errors.Errorf("removing temp directory: %w", err)
	}

	console.Successf("removed %s", cfg.TempDir)
	return nil
}
