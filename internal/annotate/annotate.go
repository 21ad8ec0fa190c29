// Package annotate draws detections on top of an image.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/samber/lo"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/revky/object-detection-ex/internal/model"
)

var font *truetype.Font

func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// DrawString writes a string to the given context at a particular point.
func DrawString(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawStringWrapped(text, float64(p.X), float64(p.Y), 0, 0, float64(dc.Width()), 1, 0)
}

// DrawRectangleEmpty draws the outline of r.
func DrawRectangleEmpty(dc *gg.Context, r image.Rectangle, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	dc.Stroke()
}

// Palette assigns every distinct label an evenly spaced hue, stable across
// runs for the same label set.
func Palette(labels []string) map[string]color.Color {
	uniq := lo.Uniq(labels)
	sort.Strings(uniq)

	palette := make(map[string]color.Color, len(uniq))
	for i, label := range uniq {
		hue := 360 * float64(i) / float64(len(uniq))
		palette[label] = colorful.Hsv(hue, 0.85, 0.95).Clamped()
	}
	return palette
}

// Overlay returns a copy of img with every prediction's box and label drawn.
func Overlay(img image.Image, batch model.Batch) image.Image {
	bounds := img.Bounds()
	dc := gg.NewContext(bounds.Dx(), bounds.Dy())
	dc.DrawImage(img, -bounds.Min.X, -bounds.Min.Y)

	lineWidth := lo.Max([]float64{2, float64(lo.Min([]int{bounds.Dx(), bounds.Dy()})) / 200})
	fontSize := lo.Max([]float64{12, lineWidth * 6})
	palette := Palette(batch.Labels)

	for _, p := range batch.Predictions() {
		r := image.Rect(int(p.BBox[0]), int(p.BBox[1]), int(p.BBox[2]), int(p.BBox[3]))
		c := palette[p.Label]
		DrawRectangleEmpty(dc, r, c, lineWidth)

		textY := r.Min.Y - int(fontSize) - 2
		if textY < 0 {
			textY = r.Min.Y + 2
		}
		DrawString(dc, fmt.Sprintf("%s %.2f", p.Label, p.Score), image.Pt(r.Min.X+2, textY), c, fontSize)
	}
	return dc.Image()
}
