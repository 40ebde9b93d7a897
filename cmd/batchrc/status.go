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
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/batchrc/pkg/config"
	"github.com/walteh/batchrc/pkg/log"
	"github.com/walteh/batchrc/pkg/processor"
	"github.com/walteh/batchrc/pkg/remote"
	"github.com/walteh/batchrc/pkg/state"
	"gitlab.com/tozd/go/errors"
)

// 📊 newStatusCmd builds the status subcommand: it renders the state table
// without processing anything.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "show per-item progress from the state table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
}

func runStatus(ctx context.Context) error {
	console := log.FromContext(ctx)

	cfg, err := config.Load(ctx, configFile)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}

	store := state.NewStore(filepath.Join(cfg.OutputDir(), processor.StateFileName), nil)

	// In remote mode the authoritative table lives in the output folder;
	// fetch it before rendering.
	if cfg.IsRemoteMode() {
		rs, err := remote.New(ctx, cfg.Remote.Backend)
		if err != nil {
			return errors.Errorf("creating remote store: %w", err)
		}
		syncer := state.NewSyncer(store, rs, cfg.Remote.OutputFolderID, processor.StateFileName)
		if err := syncer.Pull(ctx); err != nil {
			console.Warningf("could not fetch remote state, showing local copy: %v", err)
		}
	}

	if err := store.Load(ctx); err != nil {
		return errors.Errorf("loading state: %w", err)
	}

	if store.State().Len() == 0 {
		console.Info("no items tracked yet")
		return nil
	}

	rows := pterm.TableData{{"item", "status", "samples", "result"}}
	completed := 0
	for _, id := range store.State().IDs() {
		rec := store.State().Item(id)
		if rec.Get(state.ColumnStatus) == state.StatusCompleted {
			completed++
		}
		rows = append(rows, []string{
			id,
			rec.Get(state.ColumnStatus),
			rec.Get(state.ColumnSamplesGenerated),
			rec.Get(state.ColumnResult),
		})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return errors.Errorf("rendering table: %w", err)
	}

	console.Infof("%d of %d items completed", completed, store.State().Len())
	return nil
}
