package model

import (
	"encoding/json"
	"image"
	"os"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Each output row is [x1, y1, x2, y2, score, class].
const rowWidth = 6

var ErrEmptyClasses = errors.New("at least one class label is required")

type Detector struct {
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

type options struct {
	sharedLibrary string
}

type Option func(*options)

// WithSharedLibrary points ONNX Runtime at a specific onnxruntime shared
// library instead of the platform default.
func WithSharedLibrary(path string) Option {
	return func(o *options) {
		o.sharedLibrary = path
	}
}

// LoadMetadata reads and validates model_metadata.json.
func LoadMetadata(path string) (Metadata, error) {
	metaFile, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "failed to read metadata")
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, errors.Wrap(err, "failed to parse metadata")
	}
	if err := metadata.normalize(); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

func (m *Metadata) normalize() error {
	if m.InputName == "" {
		m.InputName = "input"
	}
	if m.OutputName == "" {
		m.OutputName = "output"
	}
	if len(m.InputShape) != 4 || m.InputShape[0] != 1 || m.InputShape[1] != 3 {
		return errors.Errorf("input shape must be [1 3 H W], got %v", m.InputShape)
	}
	if m.InputShape[2] != m.InputShape[3] {
		return errors.Errorf("input must be square, got %dx%d", m.InputShape[2], m.InputShape[3])
	}
	if m.ImageSize == 0 {
		m.ImageSize = int(m.InputShape[2])
	}
	if int64(m.ImageSize) != m.InputShape[2] {
		return errors.Errorf("image_size %d does not match input shape %v", m.ImageSize, m.InputShape)
	}
	if len(m.OutputShape) != 3 || m.OutputShape[0] != 1 || m.OutputShape[2] != rowWidth {
		return errors.Errorf("output shape must be [1 N %d], got %v", rowWidth, m.OutputShape)
	}
	return nil
}

// ResolveMetadata loads the metadata for a detector restricted to classes.
// The given classes replace whatever class list the metadata carries.
func ResolveMetadata(metadataPath string, classes []string) (Metadata, error) {
	if len(classes) == 0 {
		return Metadata{}, ErrEmptyClasses
	}
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return Metadata{}, err
	}
	metadata.Classes = append([]string(nil), classes...)
	return metadata, nil
}

// NewDetector loads the ONNX model at modelPath, binding the input and
// output named in the metadata.
func NewDetector(modelPath, metadataPath string, classes []string, opts ...Option) (*Detector, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	metadata, err := ResolveMetadata(metadataPath, classes)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(modelPath); err != nil {
		return nil, errors.Wrap(err, "model checkpoint unavailable")
	}

	ownsEnv := false
	if !ort.IsInitialized() {
		if o.sharedLibrary != "" {
			ort.SetSharedLibraryPath(o.sharedLibrary)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "failed to initialize ONNX environment")
		}
		ownsEnv = true
	}
	fail := func(err error, msg string) (*Detector, error) {
		if ownsEnv {
			ort.DestroyEnvironment()
		}
		return nil, errors.Wrap(err, msg)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return fail(err, "failed to create input tensor")
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return fail(err, "failed to create output tensor")
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return fail(err, "failed to create ONNX session")
	}

	return &Detector{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Predict runs the model once on img and returns every detection it emits,
// with boxes in img's pixel space.
func (d *Detector) Predict(img image.Image) (Batch, error) {
	copy(d.inputTensor.GetData(), Preprocess(img, d.Metadata.ImageSize))

	if err := d.session.Run(); err != nil {
		return Batch{}, errors.Wrap(err, "inference failed")
	}

	return DecodeRows(d.outputTensor.GetData(), d.Metadata.Classes, d.Metadata.ImageSize, img.Bounds()), nil
}

func (d *Detector) Close() {
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	if d.outputTensor != nil {
		d.outputTensor.Destroy()
	}
	if d.session != nil {
		d.session.Destroy()
	}
	ort.DestroyEnvironment()
}
