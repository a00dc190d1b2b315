package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/drakos74/planet-vision/infra/config"
	"github.com/drakos74/planet-vision/internal/dataset"
	"github.com/drakos74/planet-vision/internal/record"
	"github.com/drakos74/planet-vision/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {

	cfg := config.NewTrain()
	if err := config.Load("train", &cfg); err != nil {
		log.Warn().Err(err).Msg("using default train config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	manifest, err := dataset.LoadManifest(cfg.Manifest)
	if err != nil {
		log.Fatal().Err(err).Str("manifest", cfg.Manifest).Msg("could not load manifest")
	}

	loader := dataset.NewLoader(cfg.Images, cfg.ImageSize)
	sequence := dataset.NewSequence(manifest, loader, cfg.BatchSize).
		WithWorkers(cfg.Workers)

	dir := filepath.Join(cfg.StorageRoot, storage.RecordDir)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("could not create record dir")
	}
	path := filepath.Join(dir, cfg.ModelName+".tfrecord")

	f, err := os.Create(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("could not create record file")
	}

	written := 0
	w := record.NewWriter(f)
	for batch := range sequence.Epoch(context.Background()) {
		if batch.Err != nil {
			log.Fatal().Err(batch.Err).Int("batch", batch.Index).Msg("could not load batch")
		}
		for _, sample := range batch.Samples {
			if err := w.WriteSample(sample); err != nil {
				log.Fatal().Err(err).Str("id", sample.ID).Msg("could not write record")
			}
			written++
		}
	}
	if err := f.Close(); err != nil {
		log.Fatal().Err(err).Msg("could not close record file")
	}

	// read the file back to check the framing
	f, err = os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("could not reopen record file")
	}
	defer f.Close()

	read := 0
	r := record.NewReader(f)
	for {
		if _, err := r.ReadSample(); err != nil {
			if err == io.EOF {
				break
			}
			log.Fatal().Err(err).Int("record", read).Msg("corrupt record file")
		}
		read++
	}

	log.Info().
		Str("path", path).
		Int("written", written).
		Int("read", read).
		Msg("records serialized")
}
