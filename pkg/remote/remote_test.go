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

package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchName(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		patterns []string
		want     bool
	}{
		{name: "no_patterns_match_all", file: "anything.bin", patterns: nil, want: true},
		{name: "simple_glob", file: "photo.jpg", patterns: []string{"*.jpg"}, want: true},
		{name: "case_insensitive", file: "PHOTO.JPG", patterns: []string{"*.jpg"}, want: true},
		{name: "multiple_patterns", file: "scan.png", patterns: []string{"*.jpg", "*.png"}, want: true},
		{name: "no_match", file: "notes.txt", patterns: []string{"*.jpg", "*.png"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchName(tt.file, tt.patterns))
		})
	}
}

func TestFilterObjects(t *testing.T) {
	objects := []Object{
		{ID: "1", Name: "photo.jpg", Kind: KindFile},
		{ID: "2", Name: "notes.txt", Kind: KindFile},
		{ID: "3", Name: "results", Kind: KindFolder},
	}

	files := FilterObjects(objects, ListOptions{Kind: KindFile, Patterns: []string{"*.jpg"}})
	require.Len(t, files, 1)
	assert.Equal(t, "photo.jpg", files[0].Name)

	folders := FilterObjects(objects, ListOptions{Kind: KindFolder, Patterns: []string{"*.jpg"}})
	require.Len(t, folders, 1, "name patterns should not apply to folders")
	assert.Equal(t, "results", folders[0].Name)

	all := FilterObjects(objects, ListOptions{})
	assert.Len(t, all, 3)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), "no-such-backend")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown remote backend")
}
