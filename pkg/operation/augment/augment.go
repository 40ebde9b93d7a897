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

// Package augment provides image augmentation operations tuned for grayscale
// microscopy datasets: orientation-invariant geometry plus realistic imaging
// variations (brightness, contrast, noise-adjacent degradations), preserving
// the material features of the input.
package augment

import (
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/walteh/batchrc/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// 🔄 Transform derives a new image from the input, drawing any randomized
// parameters from rng.
type Transform func(img image.Image, rng *rand.Rand) image.Image

// 🖼️ Op applies one named augmentation per call, writing a uniquely named
// JPEG artifact. Each Apply draws fresh parameters, so repeated calls yield
// distinct samples without ever touching earlier output.
type Op struct {
	name      string
	target    int
	rng       *rand.Rand
	transform Transform
	quality   func(rng *rand.Rand) int
}

// 📛 Name implements operation.Operation.
func (o *Op) Name() string { return o.name }

// 🎯 TargetCount implements operation.Operation.
func (o *Op) TargetCount() int { return o.target }

// 📊 Columns implements operation.Operation.
func (o *Op) Columns() []string { return []string{o.name} }

// 🏃 Apply implements operation.Operation.
func (o *Op) Apply(ctx context.Context, inputPath, outputDir, itemID string, sampleIndex int) (operation.Artifact, error) {
	if !IsImage(inputPath) {
		return operation.Artifact{}, errors.Errorf("not an image file: %s", inputPath)
	}

	img, err := imaging.Open(inputPath)
	if err != nil {
		return operation.Artifact{}, errors.Errorf("decoding image: %w", err)
	}

	out := o.transform(img, o.rng)

	quality := 95
	if o.quality != nil {
		quality = o.quality(o.rng)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return operation.Artifact{}, errors.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(outputDir, ArtifactName(o.name))
	if err := imaging.Save(out, path, imaging.JPEGQuality(quality)); err != nil {
		return operation.Artifact{}, errors.Errorf("encoding artifact: %w", err)
	}

	return operation.Artifact{Path: path}, nil
}

// 🪪 ArtifactName builds a collision-free artifact file name:
// <op>__<12-char uid>__<timestamp>.jpg. Repeated partial runs can therefore
// never overwrite prior output.
func ArtifactName(opName string) string {
	uid := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	ts := time.Now().Format("20060102T150405")
	return fmt.Sprintf("%s__%s__%s.jpg", opName, uid, ts)
}

// 🖼️ IsImage checks a file name for a supported image extension.
func IsImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp":
		return true
	}
	return false
}

// 🏭 factory builds the operation.Factory for a named transform. Each op owns
// its own rng, seeded from the run seed and the op name so results do not
// depend on operation order.
func factory(name string, transform Transform, quality func(*rand.Rand) int) operation.Factory {
	return func(opts operation.FactoryOptions) (operation.Operation, error) {
		if opts.TargetCount < 1 {
			return nil, errors.Errorf("target count must be positive, got %d", opts.TargetCount)
		}
		h := fnv.New64a()
		h.Write([]byte(name))
		return &Op{
			name:      name,
			target:    opts.TargetCount,
			rng:       rand.New(rand.NewSource(opts.Seed ^ int64(h.Sum64()))),
			transform: transform,
			quality:   quality,
		}, nil
	}
}
