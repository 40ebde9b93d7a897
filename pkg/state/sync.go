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
	"os"

	"github.com/rs/zerolog"
	"github.com/walteh/batchrc/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// 🔄 Syncer mirrors the state table between disk and the remote output
// folder. The remote copy is the cross-run source of truth; both directions
// are best-effort, the caller logs and continues on failure with the last
// known-good in-memory state.
type Syncer struct {
	store    *Store
	remote   remote.Store
	folderID string
	name     string
}

// 🏭 NewSyncer creates a syncer for the store against a remote folder. name
// is the table's object name in that folder.
func NewSyncer(store *Store, rs remote.Store, folderID string, name string) *Syncer {
	return &Syncer{
		store:    store,
		remote:   rs,
		folderID: folderID,
		name:     name,
	}
}

// 🔎 find locates the remote copy of the table, if any.
func (s *Syncer) find(ctx context.Context) (remote.Object, bool, error) {
	objects, err := s.remote.List(ctx, s.folderID, remote.ListOptions{Kind: remote.KindFile})
	if err != nil {
		return remote.Object{}, false, errors.Errorf("listing output folder: %w", err)
	}
	for _, obj := range objects {
		if obj.Name == s.name {
			return obj, true, nil
		}
	}
	return remote.Object{}, false, nil
}

// 📥 Pull downloads the remote table over the local copy when one exists.
func (s *Syncer) Pull(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	obj, found, err := s.find(ctx)
	if err != nil {
		return err
	}
	if !found {
		logger.Debug().Str("name", s.name).Msg("no remote state table")
		return nil
	}

	logger.Info().Str("name", s.name).Msg("found remote state table, downloading")
	if err := s.remote.Download(ctx, obj.ID, s.store.Path()); err != nil {
		return errors.Errorf("downloading state table: %w", err)
	}
	return nil
}

// 📤 Push uploads the local table, replacing any stale remote copy.
func (s *Syncer) Push(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	if _, err := os.Stat(s.store.Path()); os.IsNotExist(err) {
		return nil
	}

	obj, found, err := s.find(ctx)
	if err != nil {
		return err
	}
	if found {
		if err := s.remote.Delete(ctx, obj.ID); err != nil {
			return errors.Errorf("deleting stale state table: %w", err)
		}
	}

	if _, err := s.remote.Upload(ctx, s.store.Path(), s.folderID); err != nil {
		return errors.Errorf("uploading state table: %w", err)
	}

	logger.Debug().Str("name", s.name).Msg("pushed state table")
	return nil
}
