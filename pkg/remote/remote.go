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

// Package remote abstracts the object store that holds input items and
// published artifacts: a flat namespace of files grouped into named folders.
package remote

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// 🏷️ Kind distinguishes files from folders in a listing.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// 📄 Object describes one entry in the store.
type Object struct {
	ID   string // backend-specific identifier
	Name string // display name within its folder
	Kind Kind
	Size int64 // bytes, zero for folders
}

// 🔍 ListOptions filters a folder listing.
type ListOptions struct {
	// Kind restricts results to files or folders when set.
	Kind Kind

	// Patterns are doublestar globs matched against the object name
	// (case-insensitive), e.g. "*.jpg". Empty means no name filtering.
	Patterns []string
}

// 🔌 Store is the interface for remote object store backends.
type Store interface {
	// 📂 List returns the objects in a folder, filtered by opts.
	List(ctx context.Context, folderID string, opts ListOptions) ([]Object, error)

	// 📥 Download fetches an object's bytes into a local file.
	Download(ctx context.Context, objectID string, destination string) error

	// 📤 Upload stores a local file into a folder, returning the new object id.
	Upload(ctx context.Context, localPath string, folderID string) (string, error)

	// 📁 CreateFolder creates a named folder under a parent, returning its id.
	CreateFolder(ctx context.Context, name string, parentID string) (string, error)

	// 🔎 FindFolder looks a folder up by name under a parent.
	FindFolder(ctx context.Context, name string, parentID string) (string, bool, error)

	// 🗑️ Delete removes an object.
	Delete(ctx context.Context, objectID string) error
}

// 🏭 Factory creates a new store backend.
type Factory func(ctx context.Context) (Store, error)

var (
	// 🗺️ backends is a map of backend names to factories
	backends = make(map[string]Factory)
)

// 📝 Register registers a store backend factory.
func Register(name string, factory Factory) {
	backends[name] = factory
}

// 🎯 New creates the store backend registered under name.
func New(ctx context.Context, name string) (Store, error) {
	factory, ok := backends[name]
	if !ok {
		return nil, errors.Errorf("unknown remote backend: %s", name)
	}
	return factory(ctx)
}

// 🔍 MatchName reports whether an object name matches any of the glob
// patterns. An empty pattern list matches everything.
func MatchName(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, pattern := range patterns {
		matched, err := doublestar.Match(strings.ToLower(pattern), lower)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// 🧹 FilterObjects applies ListOptions to a raw listing. Backends that cannot
// filter server-side call this before returning.
func FilterObjects(objects []Object, opts ListOptions) []Object {
	filtered := make([]Object, 0, len(objects))
	for _, obj := range objects {
		if opts.Kind != "" && obj.Kind != opts.Kind {
			continue
		}
		if obj.Kind == KindFile && !MatchName(obj.Name, opts.Patterns) {
			continue
		}
		filtered = append(filtered, obj)
	}
	return filtered
}
