package trainer

import (
	"context"
	"fmt"

	"github.com/drakos74/planet-vision/internal/dataset"
	"github.com/drakos74/planet-vision/internal/metrics"
	"github.com/drakos74/planet-vision/internal/net"
	"gonum.org/v1/gonum/stat"
)

// Evaluation gathers the validation metrics of one epoch.
type Evaluation struct {
	Samples         int     `json:"samples"`
	Loss            float64 `json:"loss"`
	WeatherAccuracy float64 `json:"weather_accuracy"`
	GroundF2        float64 `json:"ground_f2"`
}

// Evaluate runs the network over the given sequence without training.
// The weather head is scored on exact argmax accuracy,
// the ground head on the mean per-sample F2 at a 0.5 threshold.
func Evaluate(ctx context.Context, network *net.Network, sequence *dataset.Sequence) (Evaluation, error) {

	losses := make([]float64, 0)
	accuracy := make([]float64, 0)
	f2 := make([]float64, 0)

	for batch := range sequence.Epoch(ctx) {
		if batch.Err != nil {
			return Evaluation{}, fmt.Errorf("could not load batch %d: %w", batch.Index, batch.Err)
		}
		for _, sample := range batch.Samples {
			weather, ground, err := network.Predict(sample.Pixels)
			if err != nil {
				return Evaluation{}, fmt.Errorf("could not evaluate sample '%s': %w", sample.ID, err)
			}
			loss, err := network.Evaluate(sample.Pixels, sample.Weather, sample.Ground)
			if err != nil {
				return Evaluation{}, fmt.Errorf("could not score sample '%s': %w", sample.ID, err)
			}
			losses = append(losses, loss.Combined)

			if argmax(weather) == argmax(sample.Weather) {
				accuracy = append(accuracy, 1)
			} else {
				accuracy = append(accuracy, 0)
			}

			f2 = append(f2, fBeta(sample.Ground, ground, 0.5, 2))
		}
		metrics.Observer.TrackSamples("validate", len(batch.Samples))
	}

	if len(losses) == 0 {
		return Evaluation{}, fmt.Errorf("no samples to evaluate")
	}

	return Evaluation{
		Samples:         len(losses),
		Loss:            stat.Mean(losses, nil),
		WeatherAccuracy: stat.Mean(accuracy, nil),
		GroundF2:        stat.Mean(f2, nil),
	}, nil
}

// fBeta scores a multi-label prediction against its target at the
// given decision threshold.
func fBeta(expected, output []float64, threshold, beta float64) float64 {

	var tp, fp, fn float64
	for i := range expected {
		predicted := output[i] >= threshold
		actual := expected[i] == 1.0
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		}
	}

	if tp == 0 {
		if fp == 0 && fn == 0 {
			// nothing expected, nothing predicted
			return 1
		}
		return 0
	}

	precision := tp / (tp + fp)
	recall := tp / (tp + fn)
	b2 := beta * beta

	return (1 + b2) * precision * recall / (b2*precision + recall)
}

func argmax(v []float64) int {
	idx := 0
	for i, x := range v {
		if x > v[idx] {
			idx = i
		}
	}
	return idx
}
