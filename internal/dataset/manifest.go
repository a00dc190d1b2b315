package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/drakos74/planet-vision/internal/model"
	"github.com/rs/zerolog/log"
)

// Manifest is the ordered set of labelled tiles of a dataset.
type Manifest struct {
	Tiles []model.Tile
}

// ParseManifest reads a csv manifest with one row per tile.
// The expected schema is `id,tags` where tags is a space separated list
// holding exactly one weather label and any number of ground labels.
// A header row is skipped when present.
func ParseManifest(r io.Reader) (Manifest, error) {

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2

	tiles := make([]model.Tile, 0)

	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Manifest{}, fmt.Errorf("could not read manifest row %d: %w", line, err)
		}
		line++

		if line == 1 && strings.EqualFold(record[0], "image_name") {
			continue
		}

		tile, err := parseTile(record[0], record[1])
		if err != nil {
			return Manifest{}, fmt.Errorf("invalid manifest row %d: %w", line, err)
		}
		tiles = append(tiles, tile)
	}

	log.Info().Int("tiles", len(tiles)).Msg("parsed manifest")

	return Manifest{Tiles: tiles}, nil
}

// LoadManifest parses the manifest at the given path.
func LoadManifest(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("could not open manifest '%s': %w", path, err)
	}
	defer f.Close()
	return ParseManifest(f)
}

func parseTile(id, tags string) (model.Tile, error) {
	if id == "" {
		return model.Tile{}, fmt.Errorf("empty tile id")
	}

	tile := model.NewTile(id)

	weather := 0
	for _, tag := range strings.Fields(tags) {
		if w, err := model.WeatherIndex(tag); err == nil {
			tile.Weather[w] = 1.0
			weather++
			continue
		}
		g, err := model.GroundIndex(tag)
		if err != nil {
			return model.Tile{}, fmt.Errorf("tile '%s': %w", id, err)
		}
		tile.Ground[g] = 1.0
	}

	if weather != 1 {
		return model.Tile{}, fmt.Errorf("tile '%s' has %d weather labels instead of 1", id, weather)
	}

	return tile, tile.Validate()
}

// Len returns the number of tiles in the manifest.
func (m Manifest) Len() int {
	return len(m.Tiles)
}

// Split partitions the manifest into a training and a validation part
// after a seeded shuffle.
func (m Manifest) Split(fraction float64, seed int64) (Manifest, Manifest) {

	tiles := make([]model.Tile, len(m.Tiles))
	copy(tiles, m.Tiles)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})

	cut := int(float64(len(tiles)) * fraction)

	return Manifest{Tiles: tiles[:cut]}, Manifest{Tiles: tiles[cut:]}
}

// Stats counts the label occurrences over the manifest.
func (m Manifest) Stats() (map[string]int, map[string]int) {
	weather := make(map[string]int)
	ground := make(map[string]int)
	for _, tile := range m.Tiles {
		weather[tile.WeatherLabel()]++
		for _, tag := range tile.GroundTags() {
			ground[tag]++
		}
	}
	return weather, ground
}
