// Package app wires the detection demo together: dataset fetch, model load,
// image and threshold prompts, and persisting the results.
package app

import (
	"context"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/revky/object-detection-ex/internal/dataset"
	"github.com/revky/object-detection-ex/internal/model"
	"github.com/revky/object-detection-ex/internal/output"
	"github.com/revky/object-detection-ex/internal/prompt"
)

const (
	imageQuestion     = "Provide path to image:"
	thresholdQuestion = "Provide prediction threshold:"
)

var errNoPredictions = errors.New("no predictions for given threshold")

type Fetcher interface {
	Fetch(ctx context.Context, source, dir string) (dataset.Result, error)
}

type Predictor interface {
	Predict(img image.Image) (model.Batch, error)
	Close()
}

type Saver interface {
	Save(base string, img image.Image, batch model.Batch) (output.Paths, error)
}

// Loader creates the predictor. It runs once per App.Run.
type Loader func() (Predictor, error)

type ImageOpener func(path string) (image.Image, error)

// OpenImage decodes the file at path, honoring EXIF orientation.
func OpenImage(path string) (image.Image, error) {
	return imaging.Open(path, imaging.AutoOrientation(true))
}

type Options struct {
	DatasetURL   string
	DataDir      string
	FetchTimeout time.Duration
	// MaxAttempts bounds each prompt loop; 0 keeps asking forever.
	MaxAttempts int
}

type App struct {
	opts     Options
	log      *logrus.Entry
	fetcher  Fetcher
	load     Loader
	prompter prompt.Prompter
	open     ImageOpener
	saver    Saver
}

func New(
	opts Options,
	log *logrus.Entry,
	fetcher Fetcher,
	load Loader,
	prompter prompt.Prompter,
	open ImageOpener,
	saver Saver,
) *App {
	if open == nil {
		open = OpenImage
	}
	return &App{
		opts:     opts,
		log:      log,
		fetcher:  fetcher,
		load:     load,
		prompter: prompter,
		open:     open,
		saver:    saver,
	}
}

// Run performs one full session and returns the written paths.
func (a *App) Run(ctx context.Context) (output.Paths, error) {
	a.FetchData(ctx)

	predictor, err := a.load()
	if err != nil {
		return output.Paths{}, errors.Wrap(err, "error loading the model")
	}
	defer predictor.Close()
	a.log.Info("Model loaded successfully")

	path, img, err := a.AcquireImage()
	if err != nil {
		return output.Paths{}, err
	}

	a.log.Info("Making predictions")
	batch, err := predictor.Predict(img)
	if err != nil {
		return output.Paths{}, err
	}
	a.log.WithField("predictions", batch.Len()).Debug("Inference finished")

	filtered, err := a.AcquireThreshold(batch)
	if err != nil {
		return output.Paths{}, err
	}

	a.log.WithField("predictions", filtered.Len()).Info("Saving predictions")
	paths, err := a.saver.Save(output.BaseName(path), img, filtered)
	if err != nil {
		return output.Paths{}, err
	}
	a.log.WithFields(logrus.Fields{"image": paths.Image, "json": paths.JSON}).Info("Predictions saved")
	return paths, nil
}

// FetchData populates the data directory when it is empty. Failures are
// logged and never stop the run.
func (a *App) FetchData(ctx context.Context) dataset.Result {
	if a.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.FetchTimeout)
		defer cancel()
	}

	log := a.log.WithFields(logrus.Fields{"source": a.opts.DatasetURL, "dir": a.opts.DataDir})
	res, err := a.fetcher.Fetch(ctx, a.opts.DatasetURL, a.opts.DataDir)
	switch {
	case err != nil:
		log.WithError(err).Error("Following exception occurred while fetching data")
	case res.Skipped:
		log.Info("Found data in data directory")
		return res
	}
	log.WithField("files", res.Files).Infof("Loaded %d files", res.Files)
	return res
}

// AcquireImage asks for an image path until one decodes.
func (a *App) AcquireImage() (string, image.Image, error) {
	var path string
	img, err := prompt.Retry(a.prompter, imageQuestion, a.opts.MaxAttempts,
		func(answer string) (image.Image, error) {
			path = answer
			return a.open(answer)
		},
		func(answer string, err error) {
			a.log.WithError(err).WithField("path", answer).Warn("Error loading image")
		},
	)
	if err != nil {
		return "", nil, err
	}
	a.log.WithField("path", path).Info("Image loaded successfully")
	return path, img, nil
}

// AcquireThreshold asks for thresholds until at least one prediction in
// batch passes, and returns the surviving predictions.
func (a *App) AcquireThreshold(batch model.Batch) (model.Batch, error) {
	return prompt.Retry(a.prompter, thresholdQuestion, a.opts.MaxAttempts,
		func(answer string) (model.Batch, error) {
			threshold, err := prompt.ParseThreshold(answer)
			if err != nil {
				return model.Batch{}, err
			}
			filtered := batch.Filter(threshold)
			if filtered.Len() == 0 {
				return model.Batch{}, errNoPredictions
			}
			a.log.WithField("threshold", threshold).Infof("Found %d", filtered.Len())
			return filtered, nil
		},
		func(answer string, err error) {
			if errors.Is(err, errNoPredictions) {
				a.log.WithField("threshold", answer).Warn("Couldn't find any predictions for given threshold")
				return
			}
			a.log.WithError(err).Warn("Threshold must be a number")
		},
	)
}
