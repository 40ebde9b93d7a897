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

	"github.com/spf13/cobra"
	"github.com/walteh/batchrc/pkg/config"
	"github.com/walteh/batchrc/pkg/log"
	"github.com/walteh/batchrc/pkg/operation"
	"github.com/walteh/batchrc/pkg/operation/augment"
	"github.com/walteh/batchrc/pkg/processor"
	"github.com/walteh/batchrc/pkg/remote"
	"github.com/walteh/batchrc/pkg/sheet"
	"github.com/walteh/batchrc/pkg/source"
	"gitlab.com/tozd/go/errors"

	// Operation and backend registrations
	_ "github.com/walteh/batchrc/pkg/operation/textstat"
	_ "github.com/walteh/batchrc/pkg/remote/github"
)

var (
	// Run flags. Zero values mean "not set"; config and environment fill the
	// rest. A negative --max-files removes the cap entirely.
	maxFiles   int
	operations []string
	samples    int
	seed       int64
)

// 🏃 newRunCmd builds the run subcommand.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "process pending items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcessing(cmd.Context())
		},
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "cap on unprocessed items per run (negative for no cap)")
	cmd.Flags().StringSliceVar(&operations, "operations", nil, "operations to run, in order")
	cmd.Flags().IntVar(&samples, "samples", 0, "artifacts per operation per item")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for randomized operation parameters")
}

// ⚙️ runProcessing wires the pipeline from config and executes one run.
func runProcessing(ctx context.Context) error {
	cfg, err := config.Load(ctx, configFile)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}
	applyRunFlags(cfg)

	console := log.FromContext(ctx)
	if err := console.CaptureWarnings("logs"); err != nil {
		console.Warningf("could not open warnings log: %v", err)
	}
	defer console.Close()

	names := cfg.Processing.Operations
	if len(names) == 0 {
		names = augment.DefaultNames()
	}
	ops, err := operation.Resolve(names, operation.FactoryOptions{
		TargetCount: cfg.Processing.SamplesPerOperation,
		Seed:        cfg.Processing.Seed,
	})
	if err != nil {
		return errors.Errorf("resolving operations: %w", err)
	}

	var store remote.Store
	var src source.Source
	var tracker sheet.Tracker

	if cfg.IsRemoteMode() {
		store, err = remote.New(ctx, cfg.Remote.Backend)
		if err != nil {
			return errors.Errorf("creating remote store: %w", err)
		}
		src = source.NewRemote(store, cfg.Remote.InputFolderID, cfg.Processing.Extensions)
		if cfg.Sheet != nil && cfg.Sheet.FolderID != "" {
			tracker = sheet.NewCSVTracker(store)
		}
	} else {
		src = source.NewLocal(cfg.Local.InputPath, cfg.InputDir(), cfg.Processing.Extensions)
	}

	proc, err := processor.New(processor.Options{
		Config:     cfg,
		Source:     src,
		Remote:     store,
		Tracker:    tracker,
		Operations: ops,
	})
	if err != nil {
		return errors.Errorf("creating processor: %w", err)
	}

	summary, err := proc.Run(ctx)
	if err != nil {
		return errors.Errorf("running batch: %w", err)
	}
	// Per-item failures are contained; the items stay eligible next run.
	if summary.Failed > 0 {
		log.FromContext(ctx).Warningf("%d of %d items failed; re-run to retry the remaining work", summary.Failed, summary.Total)
	}
	return nil
}

// 🔧 applyRunFlags layers command-line flags over the loaded config. Flags
// win over environment and file values.
func applyRunFlags(cfg *config.Config) {
	p := cfg.Processing
	switch {
	case maxFiles > 0:
		p.MaxFiles = &maxFiles
	case maxFiles < 0:
		p.MaxFiles = nil
	}
	if len(operations) > 0 {
		p.Operations = operations
	}
	if samples > 0 {
		p.SamplesPerOperation = samples
	}
	if seed != 0 {
		p.Seed = seed
	}
}
