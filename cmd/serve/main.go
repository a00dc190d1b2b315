package main

import (
	"github.com/drakos74/planet-vision/infra/config"
	"github.com/drakos74/planet-vision/internal/export"
	"github.com/drakos74/planet-vision/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func main() {

	cfg := config.NewServe()
	if err := config.Load("serve", &cfg); err != nil {
		log.Warn().Err(err).Msg("using default serve config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid serve config")
	}

	registry := export.NewRegistry(cfg.StorageRoot)

	srv := server.NewServer("planet-vision", cfg.Port, cfg.Threshold)
	if err := srv.Load(registry, cfg.ModelName); err != nil {
		log.Fatal().Err(err).Str("model", cfg.ModelName).Msg("could not load model")
	}

	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
