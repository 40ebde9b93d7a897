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

// Package state tracks per-item, per-operation progress across runs in a
// durable CSV table, one row per item.
package state

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📛 Fixed metadata columns present in every table, ahead of the
// operation-owned columns.
const (
	ColumnStatus           = "status"
	ColumnResult           = "result"
	ColumnSamplesGenerated = "samples_generated"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// idColumn is the first column of the table and the map key.
const idColumn = "file_id"

// 📄 Record holds one item's row: operation completion counts plus free-form
// metadata, both addressed by column name. A missing cell reads as zero.
type Record struct {
	cells map[string]string
}

// 🏭 NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{cells: make(map[string]string)}
}

// 🔢 Count returns the completion count stored in a column. Absent or
// malformed cells read as zero.
func (r *Record) Count(column string) int {
	if r == nil {
		return 0
	}
	n, err := strconv.Atoi(r.cells[column])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// 🔢 SetCount stores a completion count. Counts never decrease.
func (r *Record) SetCount(column string, n int) {
	if n < r.Count(column) {
		return
	}
	r.cells[column] = strconv.Itoa(n)
}

// 📝 Get returns the raw cell value for a column.
func (r *Record) Get(column string) string {
	if r == nil {
		return ""
	}
	return r.cells[column]
}

// 📝 Set stores a raw cell value.
func (r *Record) Set(column, value string) {
	r.cells[column] = value
}

// 🧬 Clone returns an independent copy of the record, so speculative updates
// can be discarded without touching the tracked row.
func (r *Record) Clone() *Record {
	c := NewRecord()
	if r != nil {
		for k, v := range r.cells {
			c.cells[k] = v
		}
	}
	return c
}

// 📚 State is the in-memory mapping from item id to its record.
type State struct {
	items map[string]*Record
}

// 🏭 NewState creates an empty state.
func NewState() *State {
	return &State{items: make(map[string]*Record)}
}

// 🔎 Item returns the record for an id, or nil when untracked.
func (s *State) Item(id string) *Record {
	return s.items[id]
}

// ➕ Ensure returns the record for an id, creating it when absent.
func (s *State) Ensure(id string) *Record {
	rec, ok := s.items[id]
	if !ok {
		rec = NewRecord()
		s.items[id] = rec
	}
	return rec
}

// 🗑️ Delete removes an item's record entirely.
func (s *State) Delete(id string) {
	delete(s.items, id)
}

// 📜 IDs returns all tracked item ids in stable sorted order.
func (s *State) IDs() []string {
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// 🔢 Len returns the number of tracked items.
func (s *State) Len() int {
	return len(s.items)
}

// 💾 Store persists a State as a CSV table. Save writes the whole table
// atomically (temp file + rename) with rows sorted by item id; a mutex
// serializes all mutating calls because every save rewrites every row.
type Store struct {
	mu      sync.Mutex
	path    string
	columns []string // ordered columns after file_id
	state   *State
}

// 🏭 NewStore creates a store for the table at path. columns is the ordered
// union of the fixed metadata columns and every registered operation's
// columns.
func NewStore(path string, columns []string) *Store {
	return &Store{
		path:    path,
		columns: columns,
		state:   NewState(),
	}
}

// 📂 Path returns the table's location on disk.
func (st *Store) Path() string {
	return st.path
}

// 📚 State returns the in-memory state.
func (st *Store) State() *State {
	return st.state
}

// 📥 Load reads the table from disk. A missing or unreadable table yields
// empty state; malformed rows are skipped. Load never fails the run.
func (st *Store) Load(ctx context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	logger := zerolog.Ctx(ctx)

	f, err := os.Open(st.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", st.path).Msg("state table unreadable, starting empty")
		}
		st.state = NewState()
		return nil
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		logger.Warn().Err(err).Str("path", st.path).Msg("state table malformed, starting empty")
		st.state = NewState()
		return nil
	}

	st.state = NewState()
	if len(rows) < 2 {
		return nil
	}

	header := rows[0]
	for _, row := range rows[1:] {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		rec := st.state.Ensure(row[0])
		for i := 1; i < len(row) && i < len(header); i++ {
			if row[i] != "" {
				rec.Set(header[i], row[i])
			}
		}
	}

	if st.state.Len() > 0 {
		logger.Info().Int("items", st.state.Len()).Msg("loaded state for previously processed items")
	}

	return nil
}

// 💾 Save writes the full table atomically, overwriting any prior copy.
func (st *Store) Save(ctx context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.saveLocked(ctx)
}

// ✍️ Upsert replaces one item's record and immediately persists the whole
// table, so the row is durable before the item is reported complete.
func (st *Store) Upsert(ctx context.Context, id string, rec *Record) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state.items[id] = rec
	return st.saveLocked(ctx)
}

// 🗑️ Remove drops items from state and persists the result.
func (st *Store) Remove(ctx context.Context, ids []string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, id := range ids {
		st.state.Delete(id)
	}
	return st.saveLocked(ctx)
}

func (st *Store) saveLocked(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(st.path), 0755); err != nil {
		return errors.Errorf("creating state directory: %w", err)
	}

	tempPath := st.path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return errors.Errorf("creating temp state file: %w", err)
	}

	writer := csv.NewWriter(f)

	header := append([]string{idColumn}, st.columns...)
	if err := writer.Write(header); err != nil {
		f.Close()
		os.Remove(tempPath)
		return errors.Errorf("writing header: %w", err)
	}

	for _, id := range st.state.IDs() {
		rec := st.state.Item(id)
		row := make([]string, 0, len(header))
		row = append(row, id)
		for _, col := range st.columns {
			row = append(row, rec.Get(col))
		}
		if err := writer.Write(row); err != nil {
			f.Close()
			os.Remove(tempPath)
			return errors.Errorf("writing row for %s: %w", id, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return errors.Errorf("flushing state table: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("closing temp state file: %w", err)
	}

	// Atomic replace so a reader never observes a half-written table.
	if err := os.Rename(tempPath, st.path); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("replacing state file: %w", err)
	}

	return nil
}

// 📊 Columns builds the ordered table column set for a run: the fixed
// metadata columns followed by each operation's declared columns, in
// operation order, without duplicates.
func Columns(operationColumns ...[]string) []string {
	columns := []string{ColumnStatus, ColumnResult, ColumnSamplesGenerated}
	seen := map[string]bool{
		ColumnStatus:           true,
		ColumnResult:           true,
		ColumnSamplesGenerated: true,
	}
	for _, cols := range operationColumns {
		for _, col := range cols {
			if seen[col] {
				continue
			}
			seen[col] = true
			columns = append(columns, col)
		}
	}
	return columns
}
