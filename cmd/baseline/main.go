package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/drakos74/planet-vision/infra/config"
	"github.com/drakos74/planet-vision/internal/baseline"
	"github.com/drakos74/planet-vision/internal/dataset"
	"github.com/drakos74/planet-vision/internal/model"
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

	trainSet, testSet := manifest.Split(cfg.Split, cfg.Seed)
	loader := dataset.NewLoader(cfg.Images, cfg.ImageSize)

	trainSamples, err := collect(dataset.NewSequence(trainSet, loader, cfg.BatchSize).WithWorkers(cfg.Workers))
	if err != nil {
		log.Fatal().Err(err).Msg("could not load training samples")
	}
	testSamples, err := collect(dataset.NewSequence(testSet, loader, cfg.BatchSize).WithWorkers(cfg.Workers))
	if err != nil {
		log.Fatal().Err(err).Msg("could not load test samples")
	}

	forest := baseline.NewForest(300)
	importances, err := forest.Train(trainSamples)
	if err != nil {
		log.Fatal().Err(err).Msg("could not train forest")
	}
	for i, name := range baseline.FeatureNames() {
		log.Info().Str("feature", name).Float64("importance", importances[i]).Msg("forest feature")
	}

	accuracy, err := forest.Accuracy(testSamples)
	if err != nil {
		log.Fatal().Err(err).Msg("could not evaluate forest")
	}
	log.Info().Float64("accuracy", accuracy).Int("samples", len(testSamples)).Msg("forest evaluated")

	file := filepath.Join(cfg.StorageRoot, "features.csv")
	all := append(trainSamples, testSamples...)
	if err := baseline.WriteFeatureCSV(file, all); err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("could not write feature file")
	}

	summary, err := baseline.Knn(file, 10, 0.5)
	if err != nil {
		log.Fatal().Err(err).Msg("could not evaluate knn")
	}
	fmt.Println(summary)
}

func collect(sequence *dataset.Sequence) ([]model.Sample, error) {
	samples := make([]model.Sample, 0, sequence.Len())
	for batch := range sequence.Epoch(context.Background()) {
		if batch.Err != nil {
			return nil, batch.Err
		}
		samples = append(samples, batch.Samples...)
	}
	return samples, nil
}
