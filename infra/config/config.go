package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const path = "infra/config"

// Load loads the config for the given key.
func Load(key string, v interface{}) error {

	b, err := ioutil.ReadFile(filepath.Join(path, fmt.Sprintf("%s.json", key)))
	if err != nil {
		return fmt.Errorf("could not load config for %s: %w", key, err)
	}

	err = json.Unmarshal(b, v)
	if err != nil {
		return fmt.Errorf("could not unmarshal the config for %s: %w", key, err)
	}

	log.Info().Str("config", key).Msg("loaded config")

	return nil
}

// MustLoad loads the config for the given key and panics on failure.
func MustLoad(key string, v interface{}) {
	if err := Load(key, v); err != nil {
		panic(err.Error())
	}
}

// Train is the training run configuration.
type Train struct {
	Manifest    string  `json:"manifest"`
	Images      string  `json:"images"`
	ImageSize   int     `json:"image_size"`
	BatchSize   int     `json:"batch_size"`
	Epochs      int     `json:"epochs"`
	Rate        float64 `json:"rate"`
	Split       float64 `json:"split"`
	Seed        int64   `json:"seed"`
	Checkpoint  int     `json:"checkpoint"`
	Workers     int     `json:"workers"`
	ModelName   string  `json:"model_name"`
	StorageRoot string  `json:"storage_root"`
}

// NewTrain returns the training defaults.
func NewTrain() Train {
	return Train{
		Manifest:    "data/train.csv",
		Images:      "data/images",
		ImageSize:   16,
		BatchSize:   32,
		Epochs:      10,
		Rate:        0.1,
		Split:       0.8,
		Seed:        11,
		Checkpoint:  1,
		Workers:     4,
		ModelName:   "amazon",
		StorageRoot: "file-storage",
	}
}

// Validate checks the training configuration.
func (t Train) Validate() error {
	if t.ImageSize <= 0 {
		return fmt.Errorf("image size must be positive: %d", t.ImageSize)
	}
	if t.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive: %d", t.BatchSize)
	}
	// split 1 would leave nothing to validate on
	if t.Split <= 0 || t.Split >= 1 {
		return fmt.Errorf("split must be within (0,1): %f", t.Split)
	}
	if t.Rate <= 0 {
		return fmt.Errorf("rate must be positive: %f", t.Rate)
	}
	if t.ModelName == "" {
		return fmt.Errorf("model name must not be empty")
	}
	return nil
}

// Serve is the model server configuration.
type Serve struct {
	Port        int     `json:"port"`
	ModelName   string  `json:"model_name"`
	StorageRoot string  `json:"storage_root"`
	Threshold   float64 `json:"threshold"`
}

// NewServe returns the serving defaults.
func NewServe() Serve {
	return Serve{
		Port:        8501,
		ModelName:   "amazon",
		StorageRoot: "file-storage",
		Threshold:   0.5,
	}
}

// Validate checks the serving configuration.
func (s Serve) Validate() error {
	if s.Port <= 0 {
		return fmt.Errorf("port must be positive: %d", s.Port)
	}
	if s.ModelName == "" {
		return fmt.Errorf("model name must not be empty")
	}
	if s.Threshold <= 0 || s.Threshold >= 1 {
		return fmt.Errorf("threshold must be within (0,1): %f", s.Threshold)
	}
	return nil
}
