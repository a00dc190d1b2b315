package server

import (
	"github.com/drakos74/planet-vision/internal/export"
	"github.com/drakos74/planet-vision/internal/model"
	"github.com/drakos74/planet-vision/internal/net"
)

// PredictRequest is the body of a :predict call.
// Each instance is a flattened image tensor.
type PredictRequest struct {
	Instances [][]float64 `json:"instances"`
}

// PredictResponse carries one prediction per instance.
type PredictResponse struct {
	Predictions []model.Prediction `json:"predictions"`
}

// VersionStatus mirrors the serving status document of one model version.
type VersionStatus struct {
	Version int    `json:"version"`
	State   string `json:"state"`
}

// ModelStatus is the response of the model status route.
type ModelStatus struct {
	Name     string          `json:"name"`
	Versions []VersionStatus `json:"model_version_status"`
}

// Metadata is the response of the model metadata route.
type Metadata struct {
	Name      string           `json:"name"`
	Version   int              `json:"version"`
	Signature export.Signature `json:"signature"`
}

// servable is a loaded model version ready to answer predictions.
type servable struct {
	name      string
	version   int
	network   *net.Network
	signature export.Signature
}
