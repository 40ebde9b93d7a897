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

// Package textstat is a non-image example operation: it writes a word/line
// statistics artifact per text item, demonstrating the operation contract
// beyond the augmentation set.
package textstat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/walteh/batchrc/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

const name = "textstat"

func init() {
	operation.Register(name, func(opts operation.FactoryOptions) (operation.Operation, error) {
		// Statistics are deterministic; one artifact per item is enough.
		return &Op{}, nil
	})
}

// 📝 Op counts words and lines of a text item.
type Op struct{}

// 📛 Name implements operation.Operation.
func (o *Op) Name() string { return name }

// 🎯 TargetCount implements operation.Operation.
func (o *Op) TargetCount() int { return 1 }

// 📊 Columns implements operation.Operation.
func (o *Op) Columns() []string {
	return []string{name, "word_count", "line_count"}
}

// 🏃 Apply implements operation.Operation.
func (o *Op) Apply(ctx context.Context, inputPath, outputDir, itemID string, sampleIndex int) (operation.Artifact, error) {
	switch strings.ToLower(filepath.Ext(inputPath)) {
	case ".txt", ".md":
	default:
		return operation.Artifact{}, errors.Errorf("not a text file: %s", inputPath)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return operation.Artifact{}, errors.Errorf("reading text file: %w", err)
	}

	content := string(data)
	wordCount := len(strings.Fields(content))
	lineCount := len(strings.Split(strings.TrimRight(content, "\n"), "\n"))
	if len(content) == 0 {
		lineCount = 0
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return operation.Artifact{}, errors.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(outputDir, fmt.Sprintf("%s_stats.txt", itemID))
	report := fmt.Sprintf("File: %s\nWords: %d\nLines: %d\n", itemID, wordCount, lineCount)
	if err := os.WriteFile(path, []byte(report), 0644); err != nil {
		return operation.Artifact{}, errors.Errorf("writing stats artifact: %w", err)
	}

	return operation.Artifact{
		Path: path,
		Meta: []operation.Field{
			{Key: "word_count", Value: strconv.Itoa(wordCount)},
			{Key: "line_count", Value: strconv.Itoa(lineCount)},
		},
	}, nil
}
