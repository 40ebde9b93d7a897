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

// Package remotetest provides an in-memory remote.Store for tests.
package remotetest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/walteh/batchrc/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// 🧪 Store is an in-memory remote.Store. Folders and files live in a flat
// id-keyed map with parent links, mirroring how a drive-style store behaves.
type Store struct {
	mu      sync.Mutex
	nextID  int
	objects map[string]*object

	// FailList, when set, makes List return an error (for transient-error tests).
	FailList error
	// FailUpload, when set, makes Upload return an error.
	FailUpload error
}

type object struct {
	id     string
	name   string
	parent string
	kind   remote.Kind
	data   []byte
}

// 🏭 NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{objects: make(map[string]*object)}
}

func (s *Store) newID() string {
	s.nextID++
	return fmt.Sprintf("obj-%04d", s.nextID)
}

// 📂 List implements remote.Store.
func (s *Store) List(ctx context.Context, folderID string, opts remote.ListOptions) ([]remote.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailList != nil {
		return nil, s.FailList
	}

	var out []remote.Object
	for _, obj := range s.objects {
		if obj.parent != folderID {
			continue
		}
		out = append(out, remote.Object{
			ID:   obj.id,
			Name: obj.name,
			Kind: obj.kind,
			Size: int64(len(obj.data)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return remote.FilterObjects(out, opts), nil
}

// 📥 Download implements remote.Store.
func (s *Store) Download(ctx context.Context, objectID string, destination string) error {
	s.mu.Lock()
	obj, ok := s.objects[objectID]
	s.mu.Unlock()
	if !ok {
		return errors.Errorf("object not found: %s", objectID)
	}
	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return errors.Errorf("creating destination directory: %w", err)
	}
	if err := os.WriteFile(destination, obj.data, 0644); err != nil {
		return errors.Errorf("writing destination: %w", err)
	}
	return nil
}

// 📤 Upload implements remote.Store.
func (s *Store) Upload(ctx context.Context, localPath string, folderID string) (string, error) {
	if s.FailUpload != nil {
		return "", s.FailUpload
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", errors.Errorf("reading local file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	s.objects[id] = &object{
		id:     id,
		name:   filepath.Base(localPath),
		parent: folderID,
		kind:   remote.KindFile,
		data:   data,
	}
	return id, nil
}

// 📁 CreateFolder implements remote.Store.
func (s *Store) CreateFolder(ctx context.Context, name string, parentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	s.objects[id] = &object{
		id:     id,
		name:   name,
		parent: parentID,
		kind:   remote.KindFolder,
	}
	return id, nil
}

// 🔎 FindFolder implements remote.Store.
func (s *Store) FindFolder(ctx context.Context, name string, parentID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range s.objects {
		if obj.kind == remote.KindFolder && obj.parent == parentID && obj.name == name {
			return obj.id, true, nil
		}
	}
	return "", false, nil
}

// 🗑️ Delete implements remote.Store. Deleting a folder also drops everything
// beneath it.
func (s *Store) Delete(ctx context.Context, objectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[objectID]
	if !ok {
		return errors.Errorf("object not found: %s", objectID)
	}
	delete(s.objects, objectID)
	if obj.kind == remote.KindFolder {
		for id, child := range s.objects {
			if child.parent == objectID {
				delete(s.objects, id)
			}
		}
	}
	return nil
}

// ➕ AddFile seeds a file into a folder, returning its id.
func (s *Store) AddFile(folderID string, name string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	s.objects[id] = &object{
		id:     id,
		name:   name,
		parent: folderID,
		kind:   remote.KindFile,
		data:   data,
	}
	return id
}

// 📖 FileData returns a named file's bytes within a folder.
func (s *Store) FileData(folderID string, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range s.objects {
		if obj.kind == remote.KindFile && obj.parent == folderID && obj.name == name {
			return obj.data, true
		}
	}
	return nil, false
}

// 🔢 FileCount returns how many files a folder holds.
func (s *Store) FileCount(folderID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, obj := range s.objects {
		if obj.kind == remote.KindFile && obj.parent == folderID {
			n++
		}
	}
	return n
}
