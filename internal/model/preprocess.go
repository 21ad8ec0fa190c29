package model

import (
	"image"
	"math"

	"github.com/nfnt/resize"
)

// Preprocess converts an image to the CHW float32 layout the model expects:
// resized to size x size, channels normalized to [0, 1].
func Preprocess(img image.Image, size int) []float32 {
	target := uint(size)
	resized := resize.Resize(target, target, img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	plane := width * height
	inputData := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			pixelIndex := y*width + x
			inputData[pixelIndex] = float32(r) / 65535.0
			inputData[plane+pixelIndex] = float32(g) / 65535.0
			inputData[2*plane+pixelIndex] = float32(b) / 65535.0
		}
	}

	return inputData
}

// DecodeRows turns the raw [1, N, 6] output into a Batch. Boxes come out of
// the model in size x size input space and are scaled back to bounds.
// Padding rows (empty boxes) are dropped.
func DecodeRows(data []float32, classes []string, size int, bounds image.Rectangle) Batch {
	scaleX := float64(bounds.Dx()) / float64(size)
	scaleY := float64(bounds.Dy()) / float64(size)
	maxX, maxY := float64(bounds.Dx()), float64(bounds.Dy())

	var batch Batch
	for off := 0; off+rowWidth <= len(data); off += rowWidth {
		row := data[off : off+rowWidth]
		if row[2] <= row[0] || row[3] <= row[1] {
			continue
		}

		box := [4]float64{
			clamp(float64(row[0])*scaleX, maxX),
			clamp(float64(row[1])*scaleY, maxY),
			clamp(float64(row[2])*scaleX, maxX),
			clamp(float64(row[3])*scaleY, maxY),
		}
		batch.add(labelFor(classes, row[5]), box, float64(row[4]))
	}
	return batch
}

func labelFor(classes []string, class float32) string {
	idx := int(math.Round(float64(class)))
	if idx < 0 || idx >= len(classes) {
		return "unknown"
	}
	return classes[idx]
}

func clamp(v, upper float64) float64 {
	return math.Max(0, math.Min(v, upper))
}
