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

// Package operation defines the contract for repeatable, independently
// tracked units of work applied to each item in a batch run.
package operation

import (
	"context"
	"sort"

	"gitlab.com/tozd/go/errors"
)

// 🎯 Operation is a named unit of work with a per-item repeat target.
// The processor computes how many applications are still owed for an item
// (target minus the count already recorded in state) and calls Apply exactly
// that many times. Every call must produce one new, uniquely named artifact
// and must never touch artifacts from earlier calls or earlier runs.
type Operation interface {
	// 📛 Name identifies the operation. Unique within a run; doubles as the
	// operation's count column in the state table.
	Name() string

	// 🎯 TargetCount is the number of artifacts owed per item.
	TargetCount() int

	// 📊 Columns lists the state-table columns this operation owns. The first
	// entry is always Name(); extra entries carry operation-specific metadata.
	Columns() []string

	// 🏃 Apply produces artifact number sampleIndex for the item. Safe to call
	// more times than TargetCount without corrupting prior output.
	Apply(ctx context.Context, inputPath, outputDir, itemID string, sampleIndex int) (Artifact, error)
}

// 📦 Artifact is one output file produced by a single Apply call.
type Artifact struct {
	// Path is the absolute path of the written file, beneath the item's
	// output directory.
	Path string

	// Meta carries operation-specific metadata columns (ordered).
	Meta []Field
}

// 🔑 Field is one ordered key/value pair of result metadata.
type Field struct {
	Key   string
	Value string
}

// 🏷️ Outcome is the tagged per-item processing result recorded into state:
// either completed with metadata fields, or failed with a reason.
type Outcome struct {
	Completed bool
	Reason    string
	Fields    []Field
}

// ✅ Success builds a completed outcome.
func Success(fields ...Field) Outcome {
	return Outcome{Completed: true, Fields: fields}
}

// ❌ Failure builds a failed outcome.
func Failure(reason string) Outcome {
	return Outcome{Completed: false, Reason: reason}
}

// 🔧 FactoryOptions parameterizes operation construction.
type FactoryOptions struct {
	// TargetCount is the per-item repeat target (samples per operation).
	TargetCount int

	// Seed drives any randomized parameters so runs are reproducible.
	Seed int64
}

// 🏭 Factory creates a named operation.
type Factory func(opts FactoryOptions) (Operation, error)

var (
	// 🗺️ factories maps operation names to factories
	factories = make(map[string]Factory)
)

// 📝 Register registers an operation factory under its name.
func Register(name string, factory Factory) {
	factories[name] = factory
}

// 🎯 Get returns the factory registered under name, or nil.
func Get(name string) Factory {
	return factories[name]
}

// 📜 Names returns all registered operation names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// 🔗 Resolve builds the operations for a run from registered factories,
// preserving the order given in names.
func Resolve(names []string, opts FactoryOptions) ([]Operation, error) {
	if len(names) == 0 {
		return nil, errors.New("no operations configured")
	}

	seen := make(map[string]bool, len(names))
	ops := make([]Operation, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, errors.Errorf("duplicate operation: %s", name)
		}
		seen[name] = true

		factory := Get(name)
		if factory == nil {
			return nil, errors.Errorf("unknown operation: %s", name)
		}

		op, err := factory(opts)
		if err != nil {
			return nil, errors.Errorf("creating operation %s: %w", name, err)
		}
		ops = append(ops, op)
	}

	return ops, nil
}
