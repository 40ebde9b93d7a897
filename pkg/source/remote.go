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

package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/walteh/batchrc/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// 🌐 RemoteSource lists a remote store folder and downloads items on fetch.
type RemoteSource struct {
	store    remote.Store
	folderID string
	patterns []string
	known    map[string]remote.Object // by id, filled during List
}

// 🏭 NewRemote creates a source over a remote input folder. patterns filter
// the listing by name (e.g. "*.jpg"); empty means every file.
func NewRemote(store remote.Store, folderID string, patterns []string) *RemoteSource {
	return &RemoteSource{
		store:    store,
		folderID: folderID,
		patterns: patterns,
		known:    make(map[string]remote.Object),
	}
}

// 📂 List implements Source.
func (s *RemoteSource) List(ctx context.Context) ([]Entry, error) {
	objects, err := s.store.List(ctx, s.folderID, remote.ListOptions{
		Kind:     remote.KindFile,
		Patterns: s.patterns,
	})
	if err != nil {
		return nil, errors.Errorf("listing input folder: %w", err)
	}

	entries := make([]Entry, 0, len(objects))
	for _, obj := range objects {
		s.known[obj.ID] = obj
		entries = append(entries, Entry{
			ID:   obj.ID,
			Name: obj.Name,
			Kind: string(obj.Kind),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// 📥 Fetch implements Source.
func (s *RemoteSource) Fetch(ctx context.Context, id string, destDir string) (string, error) {
	logger := zerolog.Ctx(ctx)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", errors.Errorf("creating input directory: %w", err)
	}

	obj, ok := s.known[id]
	if !ok {
		if _, err := s.List(ctx); err != nil {
			return "", err
		}
		if obj, ok = s.known[id]; !ok {
			return "", errors.Errorf("object not found in input folder: %s", id)
		}
	}

	destination := filepath.Join(destDir, obj.Name)
	if err := s.store.Download(ctx, id, destination); err != nil {
		return "", errors.Errorf("downloading %s: %w", obj.Name, err)
	}

	logger.Debug().
		Str("name", obj.Name).
		Str("size", humanize.Bytes(uint64(obj.Size))).
		Msg("downloaded input item")

	return destination, nil
}
