// Package baseline trains shallow classifiers over simple image features,
// as a reference point for the network.
package baseline

import (
	"fmt"

	"github.com/drakos74/planet-vision/internal/buffer"
	xmath "github.com/drakos74/planet-vision/internal/math"
	"github.com/drakos74/planet-vision/internal/model"
)

const spectralBands = 4

// Features extracts a fixed-size feature vector from a sample:
// per-channel mean and standard deviation plus the spectral energy
// bands of the luminance signal.
func Features(sample model.Sample) ([]float64, error) {

	if err := sample.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sample '%s': %w", sample.ID, err)
	}

	channels := buffer.NewStatsCollector(3)
	luminance := make([]float64, sample.Size*sample.Size)
	for i := 0; i < len(sample.Pixels); i += 3 {
		r := sample.Pixels[i]
		g := sample.Pixels[i+1]
		b := sample.Pixels[i+2]
		channels.Push(r, g, b)
		luminance[i/3] = 0.299*r + 0.587*g + 0.114*b
	}

	features := make([]float64, 0, 2*3+spectralBands)
	for _, stats := range channels.Stats() {
		features = append(features, stats.Avg(), stats.StDev())
	}
	features = append(features, xmath.SpectralEnergy(luminance, spectralBands)...)

	return features, nil
}

// FeatureNames labels the columns of the feature vector.
func FeatureNames() []string {
	names := make([]string, 0)
	for _, channel := range []string{"r", "g", "b"} {
		names = append(names, fmt.Sprintf("%s_mean", channel), fmt.Sprintf("%s_std", channel))
	}
	for band := 0; band < spectralBands; band++ {
		names = append(names, fmt.Sprintf("spectral_%d", band))
	}
	return names
}
