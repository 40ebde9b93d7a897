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
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func TestRecord_Count(t *testing.T) {
	tests := []struct {
		name  string
		cell  string
		want  int
	}{
		{name: "absent", cell: "", want: 0},
		{name: "valid", cell: "3", want: 3},
		{name: "malformed", cell: "three", want: 0},
		{name: "negative", cell: "-2", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord()
			if tt.cell != "" {
				rec.Set("op", tt.cell)
			}
			assert.Equal(t, tt.want, rec.Count("op"), "count should be parsed defensively")
		})
	}
}

func TestRecord_SetCount_NeverDecreases(t *testing.T) {
	rec := NewRecord()
	rec.SetCount("op", 3)
	rec.SetCount("op", 1)
	assert.Equal(t, 3, rec.Count("op"), "count should never decrease")

	rec.SetCount("op", 5)
	assert.Equal(t, 5, rec.Count("op"), "count should increase")
}

func TestRecord_NilSafe(t *testing.T) {
	var rec *Record
	assert.Equal(t, 0, rec.Count("op"), "nil record counts as zero")
	assert.Equal(t, "", rec.Get("op"), "nil record reads empty")
}

func TestColumns(t *testing.T) {
	cols := Columns([]string{"hflip"}, []string{"textstat", "word_count"}, []string{"hflip"})
	assert.Equal(t, []string{
		ColumnStatus, ColumnResult, ColumnSamplesGenerated,
		"hflip", "textstat", "word_count",
	}, cols, "columns should be fixed metadata plus deduped operation columns in order")
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "processing_state.csv")

	store := NewStore(path, Columns([]string{"hflip"}, []string{"blur"}))
	require.NoError(t, store.Load(ctx), "loading a missing table should start empty")
	assert.Equal(t, 0, store.State().Len(), "missing table should yield empty state")

	recB := NewRecord()
	recB.SetCount("hflip", 2)
	recB.Set(ColumnStatus, StatusCompleted)
	require.NoError(t, store.Upsert(ctx, "bbb", recB))

	recA := NewRecord()
	recA.SetCount("hflip", 1)
	recA.SetCount("blur", 2)
	recA.Set(ColumnStatus, StatusFailed)
	recA.Set(ColumnResult, "blur: boom")
	require.NoError(t, store.Upsert(ctx, "aaa", recA))

	// Fresh store reads back the same table
	reloaded := NewStore(path, Columns([]string{"hflip"}, []string{"blur"}))
	require.NoError(t, reloaded.Load(ctx))
	require.Equal(t, 2, reloaded.State().Len(), "both rows should survive")

	got := reloaded.State().Item("aaa")
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Count("hflip"))
	assert.Equal(t, 2, got.Count("blur"))
	assert.Equal(t, StatusFailed, got.Get(ColumnStatus))
	assert.Equal(t, "blur: boom", got.Get(ColumnResult))

	assert.Equal(t, []string{"aaa", "bbb"}, reloaded.State().IDs(), "ids should be sorted")
}

func TestStore_RowsSortedOnDisk(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "processing_state.csv")

	store := NewStore(path, Columns([]string{"op"}))
	for _, id := range []string{"zebra", "apple", "mango"} {
		require.NoError(t, store.Upsert(ctx, id, NewRecord()))
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus three rows")
	assert.Equal(t, "file_id", rows[0][0], "first header column should be the id")
	assert.Equal(t, "apple", rows[1][0])
	assert.Equal(t, "mango", rows[2][0])
	assert.Equal(t, "zebra", rows[3][0])
}

func TestStore_LoadMalformedTable(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "processing_state.csv")
	require.NoError(t, os.WriteFile(path, []byte("not,a\"valid\ncsv file \" at all"), 0644))

	store := NewStore(path, Columns([]string{"op"}))
	require.NoError(t, store.Load(ctx), "a corrupt table should not fail the run")
	assert.Equal(t, 0, store.State().Len(), "corrupt table should yield empty state")
}

func TestStore_LoadSkipsEmptyIDs(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "processing_state.csv")
	require.NoError(t, os.WriteFile(path, []byte("file_id,status\n,orphaned\nitem1,completed\n"), 0644))

	store := NewStore(path, []string{ColumnStatus})
	require.NoError(t, store.Load(ctx))
	assert.Equal(t, 1, store.State().Len(), "row without an id should be skipped")
	assert.Equal(t, StatusCompleted, store.State().Item("item1").Get(ColumnStatus))
}

func TestStore_Remove(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "processing_state.csv")

	store := NewStore(path, Columns([]string{"op"}))
	require.NoError(t, store.Upsert(ctx, "keep", NewRecord()))
	require.NoError(t, store.Upsert(ctx, "drop", NewRecord()))

	require.NoError(t, store.Remove(ctx, []string{"drop"}))

	reloaded := NewStore(path, Columns([]string{"op"}))
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, []string{"keep"}, reloaded.State().IDs(), "removed row should be gone from disk")
}

func TestStore_NoTempFileLeftBehind(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "processing_state.csv")

	store := NewStore(path, Columns([]string{"op"}))
	require.NoError(t, store.Upsert(ctx, "item", NewRecord()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the table itself should remain")
	assert.Equal(t, "processing_state.csv", entries[0].Name())
}
