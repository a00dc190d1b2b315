package dataset

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseManifest(t *testing.T) {

	type test struct {
		csv   string
		tiles int
		err   bool
	}

	tests := map[string]test{
		"with-header": {
			csv: "image_name,tags\n" +
				"train_0,haze primary\n" +
				"train_1,clear primary water road\n",
			tiles: 2,
		},
		"without-header": {
			csv:   "train_0,cloudy\n",
			tiles: 1,
		},
		"unknown-label": {
			csv: "train_0,clear fog\n",
			err: true,
		},
		"no-weather-label": {
			csv: "train_0,primary water\n",
			err: true,
		},
		"two-weather-labels": {
			csv: "train_0,clear haze primary\n",
			err: true,
		},
		"empty-id": {
			csv: ",clear\n",
			err: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			manifest, err := ParseManifest(strings.NewReader(tt.csv))
			if tt.err {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.tiles, manifest.Len())
			for _, tile := range manifest.Tiles {
				assert.NoError(t, tile.Validate())
			}
		})
	}
}

func TestParseManifest_Vectors(t *testing.T) {

	manifest, err := ParseManifest(strings.NewReader("train_7,haze primary water\n"))
	assert.NoError(t, err)

	tile := manifest.Tiles[0]
	assert.Equal(t, "haze", tile.WeatherLabel())
	assert.Equal(t, []string{"primary", "water"}, tile.GroundTags())
}

func TestManifest_Split(t *testing.T) {

	rows := make([]string, 0)
	for i := 0; i < 100; i++ {
		rows = append(rows, fmt.Sprintf("train_%d,clear primary", i))
	}
	manifest, err := ParseManifest(strings.NewReader(strings.Join(rows, "\n")))
	assert.NoError(t, err)

	train, validation := manifest.Split(0.8, 11)

	assert.Equal(t, 80, train.Len())
	assert.Equal(t, 20, validation.Len())

	// the split partitions the manifest
	seen := make(map[string]int)
	for _, tile := range append(train.Tiles, validation.Tiles...) {
		seen[tile.ID]++
	}
	assert.Equal(t, manifest.Len(), len(seen))
	for id, count := range seen {
		assert.Equal(t, 1, count, id)
	}

	// same seed, same split
	train2, _ := manifest.Split(0.8, 11)
	assert.Equal(t, train.Tiles[0].ID, train2.Tiles[0].ID)
	assert.Equal(t, train.Tiles[79].ID, train2.Tiles[79].ID)
}

func TestManifest_Stats(t *testing.T) {

	manifest, err := ParseManifest(strings.NewReader(
		"train_0,clear primary\n" +
			"train_1,clear water\n" +
			"train_2,haze primary\n"))
	assert.NoError(t, err)

	weather, ground := manifest.Stats()
	assert.Equal(t, 2, weather["clear"])
	assert.Equal(t, 1, weather["haze"])
	assert.Equal(t, 2, ground["primary"])
	assert.Equal(t, 1, ground["water"])
}
