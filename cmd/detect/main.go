package main

import (
	"context"
	"log"
	"os"

	"github.com/revky/object-detection-ex/internal/app"
	"github.com/revky/object-detection-ex/internal/config"
	"github.com/revky/object-detection-ex/internal/dataset"
	"github.com/revky/object-detection-ex/internal/logging"
	"github.com/revky/object-detection-ex/internal/model"
	"github.com/revky/object-detection-ex/internal/output"
	"github.com/revky/object-detection-ex/internal/prompt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("Failed to configure logger: %v", err)
	}

	loader := func() (app.Predictor, error) {
		logger.WithField("model", cfg.ModelPath).Info("Loading model")

		var opts []model.Option
		if cfg.SharedLibrary != "" {
			opts = append(opts, model.WithSharedLibrary(cfg.SharedLibrary))
		}
		detector, err := model.NewDetector(cfg.ModelPath, cfg.MetadataPath, cfg.Classes, opts...)
		if err != nil {
			return nil, err
		}
		logger.WithField("classes", detector.Metadata.Classes).Debug("Detector ready")
		return detector, nil
	}

	session := app.New(
		app.Options{
			DatasetURL:   cfg.DatasetURL,
			DataDir:      cfg.DataDir,
			FetchTimeout: cfg.FetchTimeout,
			MaxAttempts:  cfg.PromptMaxAttempts,
		},
		logger,
		dataset.NewFetcher(),
		loader,
		prompt.Default(),
		app.OpenImage,
		output.NewWriter(cfg.OutputsDir),
	)

	if _, err := session.Run(context.Background()); err != nil {
		logger.WithError(err).Error("Exiting")
		os.Exit(1)
	}
}
