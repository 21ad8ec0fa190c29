package output

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"go.viam.com/test"

	"github.com/revky/object-detection-ex/internal/model"
)

func TestBaseName(t *testing.T) {
	for in, want := range map[string]string{
		"photo.jpg":               "photo_predictions",
		"data/imgs/photo.jpg":     "photo_predictions",
		"/abs/path/a.b.png":       "a_predictions",
		"noext":                   "noext_predictions",
		filepath.Join("x", "y.z"): "y_predictions",
	} {
		test.That(t, BaseName(in), test.ShouldEqual, want)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	w := NewWriter(dir)

	threshold := 0.6
	batch := model.Batch{
		Labels: []string{"maseczka", "maseczka", "maseczka"},
		Boxes:  [][4]float64{{1, 2, 30, 40}, {5, 5, 10, 10}, {12.5, 3, 60, 44}},
		Scores: []float64{0.75, 0.3, 0.6},
	}.Filter(threshold)

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	paths, err := w.Save("photo_predictions", img, batch)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, paths.JSON, test.ShouldEqual, filepath.Join(dir, "photo_predictions.json"))
	test.That(t, paths.Image, test.ShouldEqual, filepath.Join(dir, "photo_predictions.png"))

	preds, err := ReadJSON(paths.JSON)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, preds, test.ShouldHaveLength, batch.Len())
	for _, p := range preds {
		test.That(t, p.Score, test.ShouldBeGreaterThanOrEqualTo, threshold)
	}
	test.That(t, preds[1].BBox, test.ShouldResemble, [4]float64{12.5, 3, 60, 44})

	saved, err := imaging.Open(paths.Image)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, saved.Bounds().Size(), test.ShouldResemble, image.Pt(64, 48))
}

func TestWriteJSONSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	err := WriteJSON(path, model.Batch{
		Labels: []string{"maseczka"},
		Boxes:  [][4]float64{{1, 2, 3, 4}},
		Scores: []float64{0.75},
	})
	test.That(t, err, test.ShouldBeNil)

	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqualJSON, `[{"label":"maseczka","bbox":[1,2,3,4],"score":0.75}]`)
}

func TestWriteJSONEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	test.That(t, WriteJSON(path, model.Batch{}), test.ShouldBeNil)

	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "[]")
}

func TestSaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "x_predictions.json")
	test.That(t, os.WriteFile(target, []byte("stale"), 0o644), test.ShouldBeNil)

	_, err := NewWriter(dir).Save("x_predictions", image.NewRGBA(image.Rect(0, 0, 4, 4)), model.Batch{})
	test.That(t, err, test.ShouldBeNil)

	preds, err := ReadJSON(target)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, preds, test.ShouldBeEmpty)
}
