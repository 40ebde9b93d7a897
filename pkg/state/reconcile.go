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

package state

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/batchrc/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// 🔍 Reconciler detects drift between what the state table claims and what
// the output store actually holds. An item whose output container vanished
// loses its whole row: partial on-disk output cannot be trusted without
// inspecting artifact contents, so every operation re-runs from zero.
type Reconciler struct {
	store    *Store
	remote   remote.Store
	folderID string
}

// 🏭 NewReconciler creates a reconciler against the remote output folder.
func NewReconciler(store *Store, rs remote.Store, folderID string) *Reconciler {
	return &Reconciler{
		store:    store,
		remote:   rs,
		folderID: folderID,
	}
}

// 🔄 Reconcile verifies every tracked item against the output containers and
// drops the rows with no matching container, persisting the repaired table.
// It returns the ids cleared for reprocessing.
func (r *Reconciler) Reconcile(ctx context.Context) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	if r.store.State().Len() == 0 {
		return nil, nil
	}

	logger.Info().Msg("verifying tracked results against output store")

	folders, err := r.remote.List(ctx, r.folderID, remote.ListOptions{Kind: remote.KindFolder})
	if err != nil {
		return nil, errors.Errorf("listing output containers: %w", err)
	}

	existing := make(map[string]bool, len(folders))
	for _, folder := range folders {
		existing[folder.Name] = true
	}

	var demoted []string
	for _, id := range r.store.State().IDs() {
		if !existing[id] {
			demoted = append(demoted, id)
		}
	}

	if len(demoted) == 0 {
		logger.Info().Msg("all tracked results verified")
		return nil, nil
	}

	logger.Warn().
		Int("count", len(demoted)).
		Strs("items", demoted).
		Msg("tracked items missing output containers, clearing for reprocessing")

	if err := r.store.Remove(ctx, demoted); err != nil {
		return nil, errors.Errorf("saving reconciled state: %w", err)
	}

	return demoted, nil
}
