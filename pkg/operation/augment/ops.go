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

package augment

import (
	"image"
	"math/rand"

	"github.com/disintegration/imaging"
	"github.com/walteh/batchrc/pkg/operation"
)

func init() {
	operation.Register("hflip", factory("hflip", hflip, nil))
	operation.Register("vflip", factory("vflip", vflip, nil))
	operation.Register("rotate90", factory("rotate90", rotate90, nil))
	operation.Register("brightness_contrast", factory("brightness_contrast", brightnessContrast, nil))
	operation.Register("gamma", factory("gamma", gamma, nil))
	operation.Register("blur", factory("blur", blur, nil))
	operation.Register("sharpen", factory("sharpen", sharpen, nil))
	operation.Register("grayscale", factory("grayscale", grayscale, nil))
	operation.Register("geom_combined", factory("geom_combined", geomCombined, nil))
	operation.Register("crop_scale", factory("crop_scale", cropScale, nil))
	operation.Register("downscale", factory("downscale", downscale, nil))
	operation.Register("compression", factory("compression", identity, compressionQuality))
}

// 📜 DefaultNames is the default operation set, in run order.
func DefaultNames() []string {
	return []string{
		"hflip",
		"vflip",
		"rotate90",
		"brightness_contrast",
		"gamma",
		"blur",
		"sharpen",
		"grayscale",
		"geom_combined",
		"crop_scale",
		"downscale",
		"compression",
	}
}

// Microstructures have no preferred orientation, so flips and right-angle
// rotations are always feature-preserving.

func hflip(img image.Image, rng *rand.Rand) image.Image {
	return imaging.FlipH(img)
}

func vflip(img image.Image, rng *rand.Rand) image.Image {
	return imaging.FlipV(img)
}

func rotate90(img image.Image, rng *rand.Rand) image.Image {
	switch rng.Intn(3) {
	case 0:
		return imaging.Rotate90(img)
	case 1:
		return imaging.Rotate180(img)
	default:
		return imaging.Rotate270(img)
	}
}

func brightnessContrast(img image.Image, rng *rand.Rand) image.Image {
	// +/-20% in both, mirroring the reference limits
	brightness := (rng.Float64()*2 - 1) * 20
	contrast := (rng.Float64()*2 - 1) * 20
	return imaging.AdjustContrast(imaging.AdjustBrightness(img, brightness), contrast)
}

func gamma(img image.Image, rng *rand.Rand) image.Image {
	// Non-linear brightness, gamma in [0.8, 1.2]
	g := 0.8 + rng.Float64()*0.4
	return imaging.AdjustGamma(img, g)
}

func blur(img image.Image, rng *rand.Rand) image.Image {
	sigma := 0.5 + rng.Float64()
	return imaging.Blur(img, sigma)
}

func sharpen(img image.Image, rng *rand.Rand) image.Image {
	sigma := 0.5 + rng.Float64()
	return imaging.Sharpen(img, sigma)
}

func grayscale(img image.Image, rng *rand.Rand) image.Image {
	return imaging.Grayscale(img)
}

func geomCombined(img image.Image, rng *rand.Rand) image.Image {
	out := img
	if rng.Float64() < 0.5 {
		out = imaging.FlipH(out)
	}
	if rng.Float64() < 0.5 {
		out = imaging.FlipV(out)
	}
	if rng.Float64() < 0.5 {
		out = imaging.Rotate90(out)
	}
	return out
}

func cropScale(img image.Image, rng *rand.Rand) image.Image {
	// Conservative shift/scale: crop 90-100% of the frame at a random
	// offset, then scale back to the original size.
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 2 || h < 2 {
		return img
	}

	scale := 0.9 + rng.Float64()*0.1
	cw := int(float64(w) * scale)
	ch := int(float64(h) * scale)
	x := rng.Intn(w - cw + 1)
	y := rng.Intn(h - ch + 1)

	cropped := imaging.Crop(img, image.Rect(bounds.Min.X+x, bounds.Min.Y+y, bounds.Min.X+x+cw, bounds.Min.Y+y+ch))
	return imaging.Resize(cropped, w, h, imaging.Linear)
}

func downscale(img image.Image, rng *rand.Rand) image.Image {
	// Simulates lower magnification: down to 50-75%, then back up.
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 4 || h < 4 {
		return img
	}

	scale := 0.5 + rng.Float64()*0.25
	small := imaging.Resize(img, int(float64(w)*scale), int(float64(h)*scale), imaging.Linear)
	return imaging.Resize(small, w, h, imaging.Linear)
}

func identity(img image.Image, rng *rand.Rand) image.Image {
	return img
}

func compressionQuality(rng *rand.Rand) int {
	// JPEG quality variation in [75, 95]
	return 75 + rng.Intn(21)
}
