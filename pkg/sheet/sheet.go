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

// Package sheet updates an external tracking worksheet after items publish.
// Every call is best-effort: the pipeline logs failures and moves on.
package sheet

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/batchrc/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Tracker is the interface for tracking-sheet collaborators.
type Tracker interface {
	// ✏️ UpdateCell finds the row whose searchColumn cell equals searchValue
	// and writes newValue into that row's updateColumn cell. A missing row is
	// logged, not an error.
	UpdateCell(ctx context.Context, sheetID, worksheet, searchValue, searchColumn, updateColumn, newValue string) error
}

// 📊 CSVTracker implements Tracker over a CSV worksheet object held in a
// remote store folder. sheetID is the folder id, worksheet the object name.
type CSVTracker struct {
	store remote.Store
}

// 🏭 NewCSVTracker creates a tracker backed by a remote store.
func NewCSVTracker(store remote.Store) *CSVTracker {
	return &CSVTracker{store: store}
}

// ✏️ UpdateCell implements Tracker.
func (t *CSVTracker) UpdateCell(ctx context.Context, sheetID, worksheet, searchValue, searchColumn, updateColumn, newValue string) error {
	logger := zerolog.Ctx(ctx)

	searchIdx, err := columnIndex(searchColumn)
	if err != nil {
		return err
	}
	updateIdx, err := columnIndex(updateColumn)
	if err != nil {
		return err
	}

	obj, found, err := t.findWorksheet(ctx, sheetID, worksheet)
	if err != nil {
		return err
	}
	if !found {
		return errors.Errorf("worksheet not found: %s", worksheet)
	}

	tempDir, err := os.MkdirTemp("", "batchrc-sheet-")
	if err != nil {
		return errors.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	localPath := filepath.Join(tempDir, worksheet)
	if err := t.store.Download(ctx, obj.ID, localPath); err != nil {
		return errors.Errorf("downloading worksheet: %w", err)
	}

	rows, err := readRows(localPath)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		logger.Warn().Str("worksheet", worksheet).Str("column", searchColumn).Msg("worksheet is empty")
		return nil
	}

	rowIdx := -1
	for i, row := range rows {
		if searchIdx < len(row) && row[searchIdx] == searchValue {
			rowIdx = i
			break
		}
	}
	if rowIdx < 0 {
		logger.Warn().
			Str("worksheet", worksheet).
			Str("column", searchColumn).
			Str("value", searchValue).
			Msg("value not found in worksheet")
		return nil
	}

	for len(rows[rowIdx]) <= updateIdx {
		rows[rowIdx] = append(rows[rowIdx], "")
	}
	rows[rowIdx][updateIdx] = newValue

	if err := writeRows(localPath, rows); err != nil {
		return err
	}

	if err := t.store.Delete(ctx, obj.ID); err != nil {
		return errors.Errorf("replacing worksheet: %w", err)
	}
	if _, err := t.store.Upload(ctx, localPath, sheetID); err != nil {
		return errors.Errorf("uploading worksheet: %w", err)
	}

	logger.Info().
		Int("row", rowIdx+1).
		Str("value", searchValue).
		Msg("updated tracking sheet")

	return nil
}

// 📚 BatchUpdate applies many updates through the single-cell path.
func (t *CSVTracker) BatchUpdate(ctx context.Context, sheetID, worksheet string, updates map[string]string, searchColumn, updateColumn string) {
	logger := zerolog.Ctx(ctx)
	for searchValue, newValue := range updates {
		if err := t.UpdateCell(ctx, sheetID, worksheet, searchValue, searchColumn, updateColumn, newValue); err != nil {
			logger.Warn().Err(err).Str("value", searchValue).Msg("failed to update tracking sheet")
		}
	}
}

// 🔎 findWorksheet locates the worksheet object in the sheet folder.
func (t *CSVTracker) findWorksheet(ctx context.Context, sheetID, worksheet string) (remote.Object, bool, error) {
	objects, err := t.store.List(ctx, sheetID, remote.ListOptions{Kind: remote.KindFile})
	if err != nil {
		return remote.Object{}, false, errors.Errorf("listing sheet folder: %w", err)
	}
	for _, obj := range objects {
		if obj.Name == worksheet {
			return obj, true, nil
		}
	}
	return remote.Object{}, false, nil
}

// 🔢 columnIndex converts a spreadsheet column letter ("A", "E", "AA") into a
// zero-based index.
func columnIndex(column string) (int, error) {
	column = strings.ToUpper(strings.TrimSpace(column))
	if column == "" {
		return 0, errors.New("empty column letter")
	}
	idx := 0
	for _, r := range column {
		if r < 'A' || r > 'Z' {
			return 0, errors.Errorf("invalid column letter: %s", column)
		}
		idx = idx*26 + int(r-'A') + 1
	}
	return idx - 1, nil
}

func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening worksheet: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Errorf("parsing worksheet: %w", err)
	}
	return rows, nil
}

func writeRows(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Errorf("writing worksheet: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.WriteAll(rows); err != nil {
		return errors.Errorf("encoding worksheet: %w", err)
	}
	writer.Flush()
	return writer.Error()
}
