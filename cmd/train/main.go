package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/drakos74/planet-vision/infra/config"
	"github.com/drakos74/planet-vision/internal/dataset"
	"github.com/drakos74/planet-vision/internal/export"
	"github.com/drakos74/planet-vision/internal/net"
	"github.com/drakos74/planet-vision/internal/storage"
	"github.com/drakos74/planet-vision/internal/storage/file/json"
	"github.com/drakos74/planet-vision/internal/trainer"
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
		log.Fatal().Err(err).Msg("invalid train config")
	}

	manifest, err := dataset.LoadManifest(cfg.Manifest)
	if err != nil {
		log.Fatal().Err(err).Str("manifest", cfg.Manifest).Msg("could not load manifest")
	}
	weather, ground := manifest.Stats()
	log.Info().
		Int("tiles", manifest.Len()).
		Interface("weather", weather).
		Interface("ground", ground).
		Msg("manifest loaded")

	trainSet, validateSet := manifest.Split(cfg.Split, cfg.Seed)
	loader := dataset.NewLoader(cfg.Images, cfg.ImageSize)

	trainSeq := dataset.NewSequence(trainSet, loader, cfg.BatchSize).
		WithWorkers(cfg.Workers).
		WithShuffle(cfg.Seed)
	validateSeq := dataset.NewSequence(validateSet, loader, cfg.BatchSize).
		WithWorkers(cfg.Workers)

	netConfig := net.NewConfig(cfg.ImageSize)
	netConfig.Rate = cfg.Rate
	netConfig.Seed = cfg.Seed
	network := net.New(netConfig)

	shard := json.BlobShard(cfg.StorageRoot, storage.CheckpointDir)
	if cfg.Checkpoint == 0 {
		// run without leaving checkpoints behind
		shard = storage.VoidShard(storage.CheckpointDir)
	}
	checkpoints, err := shard(cfg.ModelName)
	if err != nil {
		log.Fatal().Err(err).Msg("could not open checkpoint storage")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		cancel()
	}()

	run := trainer.New(trainer.Config{
		Name:       cfg.ModelName,
		Epochs:     cfg.Epochs,
		Checkpoint: cfg.Checkpoint,
	}, network, trainSeq, validateSeq, checkpoints)

	report, err := run.Train(ctx)
	if err != nil {
		log.Error().Err(err).Str("run", report.Run).Msg("training failed")
	}

	registry := export.NewRegistry(cfg.StorageRoot)
	version, err := registry.Export(cfg.ModelName, run.Network())
	if err != nil {
		log.Fatal().Err(err).Msg("could not export model")
	}

	log.Info().
		Str("run", report.Run).
		Str("model", cfg.ModelName).
		Int("version", version).
		Int("epochs", report.Epochs).
		Int("samples", report.Samples).
		Str("duration", report.Duration).
		Float64("val-loss", report.Best.Evaluation.Loss).
		Float64("val-accuracy", report.Best.Evaluation.WeatherAccuracy).
		Float64("val-f2", report.Best.Evaluation.GroundF2).
		Msg("training complete")
}
