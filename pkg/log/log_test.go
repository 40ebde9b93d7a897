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

package log

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_ItemOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.Disabled)
	ctx := context.Background()

	logger.LogItemOperation(ctx, ItemOperation{
		ItemID:    "sample_001",
		Operation: "hflip",
		Status:    "generated",
		IsNew:     true,
		Generated: 2,
		Target:    2,
	})

	out := buf.String()
	assert.Contains(t, out, "sample_001", "item id should be printed")
	assert.Contains(t, out, "hflip", "operation should be printed")
	assert.Contains(t, out, "2/2", "progress should be printed")
}

func TestLogger_PhaseLifecycle(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.Disabled)
	ctx := context.Background()

	logger.StartPhase(ctx, PhaseOperation{Name: "process", Mode: "local", Details: "3 items"})
	logger.LogItemOperation(ctx, ItemOperation{ItemID: "a", Operation: "op", Status: "generated"})
	logger.EndPhase(ctx)

	out := buf.String()
	assert.Contains(t, out, "process")
	assert.Contains(t, out, "local")
	assert.Contains(t, out, "3 items")
}

func TestLogger_CaptureWarnings(t *testing.T) {
	dir := t.TempDir()
	logger := New(&bytes.Buffer{}, zerolog.Disabled)

	require.NoError(t, logger.CaptureWarnings(dir))
	logger.Warning("disk is nearly full")
	logger.Error("upload rejected")
	logger.Info("not captured")
	require.NoError(t, logger.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "one warnings file per run")
	assert.True(t, strings.HasPrefix(entries[0].Name(), "warnings_"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "WARNING disk is nearly full")
	assert.Contains(t, string(data), "ERROR upload rejected")
	assert.NotContains(t, string(data), "not captured")
}

func TestContext(t *testing.T) {
	logger := New(&bytes.Buffer{}, zerolog.Disabled)
	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx), "context should round-trip the logger")

	assert.Panics(t, func() { FromContext(context.Background()) }, "missing logger is a programming error")
}
