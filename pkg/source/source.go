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

// Package source abstracts where input items come from: a remote store
// folder, a local directory, or a local zip archive.
package source

import (
	"context"
	"path/filepath"
	"strings"
)

// 📄 Entry describes one candidate item before materialization.
type Entry struct {
	// ID is the source-specific handle used to fetch the item's bytes.
	ID string

	// Name is the item's file name (with extension).
	Name string

	// Kind is "file" for regular items.
	Kind string
}

// 🔌 Source enumerates available items and materializes their bytes.
type Source interface {
	// 📂 List returns the available items in stable name order.
	List(ctx context.Context) ([]Entry, error)

	// 📥 Fetch makes an item's bytes available locally, materializing into
	// destDir when needed, and returns the local path to read from.
	Fetch(ctx context.Context, id string, destDir string) (string, error)
}

// 🪪 ItemID derives an item's stable identity from its source name: the
// file-name stem with the extension stripped.
func ItemID(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
