// Package output persists prediction results next to each other: an
// annotated PNG and a JSON sidecar sharing one base name.
package output

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/revky/object-detection-ex/internal/annotate"
	"github.com/revky/object-detection-ex/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const suffix = "_predictions"

// BaseName derives the output name for an input image: directory and
// everything from the first dot on are dropped.
func BaseName(imagePath string) string {
	name := filepath.Base(imagePath)
	if idx := strings.Index(name, "."); idx >= 0 {
		name = name[:idx]
	}
	return name + suffix
}

type Paths struct {
	Image string
	JSON  string
}

type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Save writes <base>.png and <base>.json into the writer's directory,
// overwriting existing files.
func (w *Writer) Save(base string, img image.Image, batch model.Batch) (Paths, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Paths{}, errors.Wrapf(err, "failed to create outputs dir %q", w.dir)
	}

	paths := Paths{
		Image: filepath.Join(w.dir, base+".png"),
		JSON:  filepath.Join(w.dir, base+".json"),
	}

	if err := imaging.Save(annotate.Overlay(img, batch), paths.Image); err != nil {
		return Paths{}, errors.Wrap(err, "failed to save annotated image")
	}
	if err := WriteJSON(paths.JSON, batch); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

// WriteJSON writes batch as [{"label", "bbox", "score"}, ...].
func WriteJSON(path string, batch model.Batch) error {
	data, err := json.Marshal(batch.Predictions())
	if err != nil {
		return errors.Wrap(err, "failed to encode predictions")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %q", path)
	}
	return nil
}

// ReadJSON loads a file written by WriteJSON.
func ReadJSON(path string) ([]model.Prediction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var preds []model.Prediction
	if err := json.Unmarshal(data, &preds); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %q", path)
	}
	return preds, nil
}
