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
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/batchrc/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// 💻 LocalSource serves items from a local directory, or from a zip archive
// extracted once into the run's working directory. Fetch never copies; it
// returns the item's existing path.
type LocalSource struct {
	inputPath  string
	extractDir string
	patterns   []string
	extracted  bool
}

// 🏭 NewLocal creates a source over a local directory or .zip archive.
// extractDir receives the archive contents when inputPath is a zip.
func NewLocal(inputPath string, extractDir string, patterns []string) *LocalSource {
	return &LocalSource{
		inputPath:  inputPath,
		extractDir: extractDir,
		patterns:   patterns,
	}
}

// 📂 List implements Source.
func (s *LocalSource) List(ctx context.Context) ([]Entry, error) {
	root, err := s.root(ctx)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !remote.MatchName(d.Name(), s.patterns) {
			return nil
		}
		entries = append(entries, Entry{
			ID:   path,
			Name: d.Name(),
			Kind: string(remote.KindFile),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking input directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// 📥 Fetch implements Source. Local items are already on disk.
func (s *LocalSource) Fetch(ctx context.Context, id string, destDir string) (string, error) {
	if _, err := os.Stat(id); err != nil {
		return "", errors.Errorf("local item missing: %w", err)
	}
	return id, nil
}

// 📁 root resolves the directory holding the items, extracting the archive
// on first use.
func (s *LocalSource) root(ctx context.Context) (string, error) {
	info, err := os.Stat(s.inputPath)
	if err != nil {
		return "", errors.Errorf("local input path not found: %w", err)
	}

	if info.IsDir() {
		return s.inputPath, nil
	}

	if !strings.HasSuffix(strings.ToLower(s.inputPath), ".zip") {
		return "", errors.Errorf("unsupported input file type: %s", s.inputPath)
	}

	if !s.extracted {
		if err := s.extract(ctx); err != nil {
			return "", err
		}
		s.extracted = true
	}
	return s.extractDir, nil
}

// 📦 extract unpacks the zip archive into extractDir.
func (s *LocalSource) extract(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("archive", s.inputPath).Msg("extracting input archive")

	reader, err := zip.OpenReader(s.inputPath)
	if err != nil {
		return errors.Errorf("opening archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if err := s.extractFile(file); err != nil {
			return errors.Errorf("extracting %s: %w", file.Name, err)
		}
	}

	logger.Info().Str("directory", s.extractDir).Msg("extracted input archive")
	return nil
}

func (s *LocalSource) extractFile(file *zip.File) error {
	// Reject entries that would escape the extraction root
	destination := filepath.Join(s.extractDir, file.Name)
	if !strings.HasPrefix(destination, filepath.Clean(s.extractDir)+string(os.PathSeparator)) {
		return errors.Errorf("illegal archive path: %s", file.Name)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(destination, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return errors.Errorf("creating directory: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return errors.Errorf("opening archive entry: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(destination)
	if err != nil {
		return errors.Errorf("creating file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.Errorf("copying entry: %w", err)
	}

	return nil
}
