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

package sheet

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/batchrc/pkg/remote/remotetest"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func TestColumnIndex(t *testing.T) {
	tests := []struct {
		column  string
		want    int
		wantErr bool
	}{
		{column: "A", want: 0},
		{column: "E", want: 4},
		{column: "Z", want: 25},
		{column: "AA", want: 26},
		{column: "AB", want: 27},
		{column: " b ", want: 1},
		{column: "", wantErr: true},
		{column: "A1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			got, err := columnIndex(tt.column)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCSVTracker_UpdateCell(t *testing.T) {
	ctx := testContext(t)
	rs := remotetest.NewStore()
	rs.AddFile("sheet", "tracking.csv", []byte("id,name,owner\nitem1,first,alice\nitem2,second,bob\n"))

	tracker := NewCSVTracker(rs)
	require.NoError(t, tracker.UpdateCell(ctx, "sheet", "tracking.csv", "item2", "A", "E", "completed"))

	data, ok := rs.FileData("sheet", "tracking.csv")
	require.True(t, ok, "worksheet should still exist")
	assert.Contains(t, string(data), "item2,second,bob,,completed", "row should be padded out to the update column")
	assert.Contains(t, string(data), "item1,first,alice\n", "other rows should be untouched")
	assert.Equal(t, 1, rs.FileCount("sheet"), "worksheet should be replaced, not duplicated")
}

func TestCSVTracker_MissingRowIsNotAnError(t *testing.T) {
	ctx := testContext(t)
	rs := remotetest.NewStore()
	original := "id\nitem1\n"
	rs.AddFile("sheet", "tracking.csv", []byte(original))

	tracker := NewCSVTracker(rs)
	require.NoError(t, tracker.UpdateCell(ctx, "sheet", "tracking.csv", "unknown", "A", "E", "completed"),
		"a missing row is logged, not fatal")

	data, _ := rs.FileData("sheet", "tracking.csv")
	assert.Equal(t, original, string(data), "worksheet should be unchanged")
}

func TestCSVTracker_MissingWorksheet(t *testing.T) {
	ctx := testContext(t)
	tracker := NewCSVTracker(remotetest.NewStore())

	err := tracker.UpdateCell(ctx, "sheet", "tracking.csv", "item1", "A", "E", "completed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worksheet not found")
}

func TestCSVTracker_BatchUpdate(t *testing.T) {
	ctx := testContext(t)
	rs := remotetest.NewStore()
	rs.AddFile("sheet", "tracking.csv", []byte("id,result\nitem1,\nitem2,\n"))

	tracker := NewCSVTracker(rs)
	tracker.BatchUpdate(ctx, "sheet", "tracking.csv", map[string]string{
		"item1":   "completed",
		"item2":   "completed",
		"unknown": "completed",
	}, "A", "B")

	data, _ := rs.FileData("sheet", "tracking.csv")
	assert.Contains(t, string(data), "item1,completed")
	assert.Contains(t, string(data), "item2,completed")
}
