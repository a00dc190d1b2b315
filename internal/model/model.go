package model

import (
	"fmt"
)

// WeatherLabels is the closed vocabulary for the weather head.
// Every tile carries exactly one of these.
var WeatherLabels = []string{
	"clear",
	"partly_cloudy",
	"cloudy",
	"haze",
}

// GroundLabels is the closed vocabulary for the ground head.
// A tile can carry any subset of these.
var GroundLabels = []string{
	"primary",
	"agriculture",
	"road",
	"water",
	"cultivation",
	"habitation",
	"bare_ground",
	"selective_logging",
	"artisinal_mine",
	"blooming",
	"slash_burn",
	"blow_down",
	"conventional_mine",
}

// WeatherIndex maps a weather label to its position in the one-hot vector.
func WeatherIndex(label string) (int, error) {
	for i, l := range WeatherLabels {
		if l == label {
			return i, nil
		}
	}
	return -1, fmt.Errorf("unknown weather label '%s'", label)
}

// GroundIndex maps a ground label to its position in the multi-hot vector.
func GroundIndex(label string) (int, error) {
	for i, l := range GroundLabels {
		if l == label {
			return i, nil
		}
	}
	return -1, fmt.Errorf("unknown ground label '%s'", label)
}

// Tile is one manifest record: a tile identifier together with its
// one-hot weather vector and multi-hot ground vector.
type Tile struct {
	ID      string    `json:"id"`
	Weather []float64 `json:"weather"`
	Ground  []float64 `json:"ground"`
}

// NewTile creates a tile with empty label vectors of the right width.
func NewTile(id string) Tile {
	return Tile{
		ID:      id,
		Weather: make([]float64, len(WeatherLabels)),
		Ground:  make([]float64, len(GroundLabels)),
	}
}

// Validate checks the label vector shapes and values.
func (t Tile) Validate() error {
	if len(t.Weather) != len(WeatherLabels) {
		return fmt.Errorf("weather vector for '%s' has width %d instead of %d", t.ID, len(t.Weather), len(WeatherLabels))
	}
	if len(t.Ground) != len(GroundLabels) {
		return fmt.Errorf("ground vector for '%s' has width %d instead of %d", t.ID, len(t.Ground), len(GroundLabels))
	}
	sum := 0.0
	for _, w := range t.Weather {
		sum += w
	}
	if sum != 1.0 {
		return fmt.Errorf("weather vector for '%s' is not one-hot : %v", t.ID, t.Weather)
	}
	for _, g := range t.Ground {
		if g != 0.0 && g != 1.0 {
			return fmt.Errorf("ground vector for '%s' is not multi-hot : %v", t.ID, t.Ground)
		}
	}
	return nil
}

// WeatherLabel decodes the one-hot weather vector back to its label.
func (t Tile) WeatherLabel() string {
	for i, w := range t.Weather {
		if w == 1.0 {
			return WeatherLabels[i]
		}
	}
	return ""
}

// GroundTags decodes the multi-hot ground vector back to its labels.
func (t Tile) GroundTags() []string {
	tags := make([]string, 0)
	for i, g := range t.Ground {
		if g == 1.0 {
			tags = append(tags, GroundLabels[i])
		}
	}
	return tags
}

// Sample is one training example: the flattened image tensor of a tile
// together with its label vectors.
// Pixels are row-major H*W*3 with values in [0,1].
type Sample struct {
	ID      string    `json:"id"`
	Size    int       `json:"size"`
	Pixels  []float64 `json:"pixels"`
	Weather []float64 `json:"weather"`
	Ground  []float64 `json:"ground"`
}

// Validate checks the tensor shape against the declared spatial size.
func (s Sample) Validate() error {
	if expected := s.Size * s.Size * 3; len(s.Pixels) != expected {
		return fmt.Errorf("sample '%s' has %d pixel values instead of %d", s.ID, len(s.Pixels), expected)
	}
	for _, p := range s.Pixels {
		if p < 0 || p > 1 {
			return fmt.Errorf("sample '%s' has pixel value %f outside of [0,1]", s.ID, p)
		}
	}
	return nil
}

// Batch is a window of samples emitted by a dataset sequence.
// Err is set on the last emitted batch when loading it failed,
// consumers must check it before using the samples.
type Batch struct {
	Index   int
	Samples []Sample
	Err     error
}

// Prediction is the output of both network heads for a single instance.
type Prediction struct {
	Weather       []float64          `json:"weather"`
	Ground        []float64          `json:"ground"`
	WeatherLabel  string             `json:"weather_label"`
	GroundTags    []string           `json:"ground_tags"`
	WeatherScores map[string]float64 `json:"weather_scores"`
	GroundScores  map[string]float64 `json:"ground_scores"`
}

// NewPrediction decodes the raw head outputs into a prediction,
// applying the given decision threshold on the ground head.
func NewPrediction(weather, ground []float64, threshold float64) Prediction {
	maxIdx := 0
	weatherScores := make(map[string]float64, len(weather))
	for i, w := range weather {
		weatherScores[WeatherLabels[i]] = w
		if w > weather[maxIdx] {
			maxIdx = i
		}
	}
	tags := make([]string, 0)
	groundScores := make(map[string]float64, len(ground))
	for i, g := range ground {
		groundScores[GroundLabels[i]] = g
		if g >= threshold {
			tags = append(tags, GroundLabels[i])
		}
	}
	return Prediction{
		Weather:       weather,
		Ground:        ground,
		WeatherLabel:  WeatherLabels[maxIdx],
		GroundTags:    tags,
		WeatherScores: weatherScores,
		GroundScores:  groundScores,
	}
}
