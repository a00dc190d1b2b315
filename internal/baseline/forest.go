package baseline

import (
	"fmt"

	"github.com/drakos74/planet-vision/internal/model"
	randomforest "github.com/malaschitz/randomForest"
	"github.com/rs/zerolog/log"
)

// Forest is a random forest over the weather labels.
type Forest struct {
	trees  int
	forest *randomforest.Forest
}

// NewForest creates an untrained forest with the given number of trees.
func NewForest(trees int) *Forest {
	return &Forest{trees: trees}
}

// Train fits the forest on the feature vectors of the given samples,
// using the weather label index as the class.
// It returns the feature importances.
func (f *Forest) Train(samples []model.Sample) ([]float64, error) {

	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to train on")
	}

	xData := make([][]float64, len(samples))
	yData := make([]int, len(samples))
	for i, sample := range samples {
		features, err := Features(sample)
		if err != nil {
			return nil, err
		}
		xData[i] = features
		label, err := weatherClass(sample)
		if err != nil {
			return nil, err
		}
		yData[i] = label
	}

	forest := &randomforest.Forest{}
	forest.Data = randomforest.ForestData{X: xData, Class: yData}
	forest.Train(f.trees)
	f.forest = forest

	log.Info().
		Int("samples", len(samples)).
		Int("trees", f.trees).
		Msg("forest trained")

	return forest.FeatureImportance, nil
}

// Predict votes on the weather label of the given sample.
func (f *Forest) Predict(sample model.Sample) (string, []float64, error) {

	if f.forest == nil {
		return "", nil, fmt.Errorf("forest is not trained")
	}

	features, err := Features(sample)
	if err != nil {
		return "", nil, err
	}

	votes := f.forest.Vote(features)
	best := 0
	for i, vote := range votes {
		if vote > votes[best] {
			best = i
		}
	}
	if best >= len(model.WeatherLabels) {
		return "", votes, fmt.Errorf("vote index %d out of range", best)
	}
	return model.WeatherLabels[best], votes, nil
}

// Accuracy scores the forest on the given samples.
func (f *Forest) Accuracy(samples []model.Sample) (float64, error) {

	if len(samples) == 0 {
		return 0, fmt.Errorf("no samples to evaluate")
	}

	hits := 0
	for _, sample := range samples {
		label, _, err := f.Predict(sample)
		if err != nil {
			return 0, err
		}
		expected, err := weatherClass(sample)
		if err != nil {
			return 0, err
		}
		if label == model.WeatherLabels[expected] {
			hits++
		}
	}
	return float64(hits) / float64(len(samples)), nil
}

func weatherClass(sample model.Sample) (int, error) {
	for i, w := range sample.Weather {
		if w == 1.0 {
			return i, nil
		}
	}
	return 0, fmt.Errorf("sample '%s' has no weather label", sample.ID)
}
