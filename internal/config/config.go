package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	DefaultDatasetURL = "https://drive.google.com/drive/folders/1ImIDSw_GMuBbyJl7lBq51nGSR-cFy7Mk?usp=drive_link"
	DefaultDataDir    = "data"
	DefaultModelPath  = "models/model.onnx"
	DefaultOutputsDir = "outputs"
)

var DefaultClasses = []string{"maseczka"}

type Config struct {
	DatasetURL        string        `validate:"required"`
	DataDir           string        `validate:"required"`
	ModelPath         string        `validate:"required"`
	MetadataPath      string        `validate:"required"`
	Classes           []string      `validate:"min=1,dive,required"`
	OutputsDir        string        `validate:"required"`
	SharedLibrary     string        `validate:"omitempty,file"`
	PromptMaxAttempts int           `validate:"gte=0"`
	FetchTimeout      time.Duration `validate:"gte=0"`
	LogLevel          string        `validate:"oneof=trace debug info warn warning error"`
	LogFile           string
}

// Load reads the optional .env file, then the environment, and validates
// the result. Unset keys keep their defaults.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to load %s", f)
		}
	}

	modelPath := envOr("MODEL_PATH", DefaultModelPath)
	cfg := &Config{
		DatasetURL:    envOr("DATASET_URL", DefaultDatasetURL),
		DataDir:       envOr("DATA_DIR", DefaultDataDir),
		ModelPath:     modelPath,
		MetadataPath:  envOr("MODEL_METADATA_PATH", defaultMetadataPath(modelPath)),
		Classes:       envList("MODEL_CLASSES", DefaultClasses),
		OutputsDir:    envOr("OUTPUTS_DIR", DefaultOutputsDir),
		SharedLibrary: envOr("ORT_SHARED_LIBRARY", ""),
		LogLevel:      strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFile:       envOr("LOG_FILE", ""),
	}

	var err error
	if cfg.PromptMaxAttempts, err = envInt("PROMPT_MAX_ATTEMPTS", 0); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = envDuration("FETCH_TIMEOUT", 0); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// defaultMetadataPath places model_metadata.json beside the model file.
func defaultMetadataPath(modelPath string) string {
	return filepath.Join(filepath.Dir(modelPath), "model_metadata.json")
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envList(key string, fallback []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return parsed, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return parsed, nil
}
