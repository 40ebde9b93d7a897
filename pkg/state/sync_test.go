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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/batchrc/pkg/remote/remotetest"
)

const tableName = "processing_state.csv"

func TestSyncer_PullReplacesLocalTable(t *testing.T) {
	ctx := testContext(t)
	rs := remotetest.NewStore()
	rs.AddFile("out", tableName, []byte("file_id,status\nitem1,completed\n"))

	path := filepath.Join(t.TempDir(), tableName)
	store := NewStore(path, []string{ColumnStatus})
	syncer := NewSyncer(store, rs, "out", tableName)

	require.NoError(t, syncer.Pull(ctx))
	require.NoError(t, store.Load(ctx))

	assert.Equal(t, 1, store.State().Len(), "remote row should be visible locally")
	assert.Equal(t, StatusCompleted, store.State().Item("item1").Get(ColumnStatus))
}

func TestSyncer_PullWithoutRemoteTable(t *testing.T) {
	ctx := testContext(t)
	rs := remotetest.NewStore()

	path := filepath.Join(t.TempDir(), tableName)
	store := NewStore(path, []string{ColumnStatus})
	syncer := NewSyncer(store, rs, "out", tableName)

	require.NoError(t, syncer.Pull(ctx), "no remote table is not an error")
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "pull should not create a local table from nothing")
}

func TestSyncer_PushReplacesStaleCopy(t *testing.T) {
	ctx := testContext(t)
	rs := remotetest.NewStore()
	rs.AddFile("out", tableName, []byte("file_id,status\nstale,completed\n"))

	path := filepath.Join(t.TempDir(), tableName)
	store := NewStore(path, []string{ColumnStatus})
	rec := NewRecord()
	rec.Set(ColumnStatus, StatusCompleted)
	require.NoError(t, store.Upsert(ctx, "fresh", rec))

	syncer := NewSyncer(store, rs, "out", tableName)
	require.NoError(t, syncer.Push(ctx))

	data, ok := rs.FileData("out", tableName)
	require.True(t, ok, "remote table should exist after push")
	assert.Contains(t, string(data), "fresh", "remote copy should hold the new row")
	assert.NotContains(t, string(data), "stale", "stale copy should be replaced, not appended to")
	assert.Equal(t, 1, rs.FileCount("out"), "only one table object should remain")
}

func TestSyncer_PushWithoutLocalTable(t *testing.T) {
	ctx := testContext(t)
	rs := remotetest.NewStore()

	store := NewStore(filepath.Join(t.TempDir(), tableName), []string{ColumnStatus})
	syncer := NewSyncer(store, rs, "out", tableName)

	require.NoError(t, syncer.Push(ctx), "nothing to push is not an error")
	assert.Equal(t, 0, rs.FileCount("out"), "no remote object should be created")
}
