package baseline

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/drakos74/planet-vision/internal/model"
	"github.com/rs/zerolog/log"
	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/evaluation"
	"github.com/sjwhitworth/golearn/knn"
)

// WriteFeatureCSV renders the samples as a golearn feature file,
// one row per sample with the weather label as the last column.
func WriteFeatureCSV(path string, samples []model.Sample) error {

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create feature file '%s': %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	for _, sample := range samples {
		features, err := Features(sample)
		if err != nil {
			return err
		}
		class, err := weatherClass(sample)
		if err != nil {
			return err
		}
		row := make([]string, 0, len(features)+1)
		for _, feature := range features {
			row = append(row, fmt.Sprintf("%f", feature))
		}
		row = append(row, model.WeatherLabels[class])
		if err := w.Write(row); err != nil {
			return fmt.Errorf("could not write feature row for '%s': %w", sample.ID, err)
		}
	}

	return nil
}

// Knn fits a k nearest neighbours classifier on the feature file and
// returns the confusion matrix summary over a held-out split.
func Knn(file string, neighbours int, split float64) (string, error) {

	rawData, err := base.ParseCSVToInstances(file, false)
	if err != nil {
		return "", fmt.Errorf("could not parse feature file '%s': %w", file, err)
	}

	cls := knn.NewKnnClassifier("cosine", "linear", neighbours)

	trainData, testData := base.InstancesTrainTestSplit(rawData, split)
	if err := cls.Fit(trainData); err != nil {
		return "", fmt.Errorf("could not fit knn model: %w", err)
	}

	predictions, err := cls.Predict(testData)
	if err != nil {
		return "", fmt.Errorf("could not predict on knn model: %w", err)
	}

	confusionMat, err := evaluation.GetConfusionMatrix(testData, predictions)
	if err != nil {
		return "", fmt.Errorf("could not get confusion matrix: %w", err)
	}

	summary := evaluation.GetSummary(confusionMat)
	log.Info().
		Str("file", file).
		Int("neighbours", neighbours).
		Msg("knn evaluated")

	return summary, nil
}
