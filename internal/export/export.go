package export

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/drakos74/planet-vision/internal/model"
	"github.com/drakos74/planet-vision/internal/net"
	"github.com/drakos74/planet-vision/internal/storage"
	"github.com/drakos74/planet-vision/internal/storage/file/json"
	"github.com/rs/zerolog/log"
)

const (
	stateFile     = "state.json"
	signatureFile = "signature.json"

	// PredictMethod is the method name advertised in the export signature.
	PredictMethod = "serving/predict"
)

// TensorInfo describes one input or output tensor of an export.
type TensorInfo struct {
	Name       string `json:"name"`
	DType      string `json:"dtype"`
	Shape      []int  `json:"shape"`
	Activation string `json:"activation,omitempty"`
}

// Signature is the typed serving contract of an exported model.
type Signature struct {
	Method  string       `json:"method"`
	Inputs  []TensorInfo `json:"inputs"`
	Outputs []TensorInfo `json:"outputs"`
}

// NewSignature derives the serving signature from the network shape.
func NewSignature(config net.Config) Signature {
	return Signature{
		Method: PredictMethod,
		Inputs: []TensorInfo{
			{
				Name:  "image",
				DType: "float",
				Shape: []int{-1, config.ImageSize * config.ImageSize * 3},
			},
		},
		Outputs: []TensorInfo{
			{
				Name:       "weather",
				DType:      "float",
				Shape:      []int{-1, len(model.WeatherLabels)},
				Activation: "softmax",
			},
			{
				Name:       "ground",
				DType:      "float",
				Shape:      []int{-1, len(model.GroundLabels)},
				Activation: "sigmoid",
			},
		},
	}
}

// Registry manages the versioned exports of models under a root directory.
// Each export lives at <root>/models/<name>/<version>/ and versions only
// ever increase.
type Registry struct {
	root string
}

// NewRegistry creates a registry rooted at the given directory.
func NewRegistry(root string) *Registry {
	if root == "" {
		root = storage.DefaultDir
	}
	return &Registry{root: root}
}

func (r *Registry) dir(name string, version int) string {
	return filepath.Join(r.root, storage.ModelDir, name, strconv.Itoa(version))
}

// Export stores the network state as the next version of the named model
// and returns the assigned version.
func (r *Registry) Export(name string, network *net.Network) (int, error) {

	version := 1
	if latest, err := r.Latest(name); err == nil {
		version = latest + 1
	}

	dir := r.dir(name, version)
	if err := json.Save(dir, stateFile, network.State()); err != nil {
		return 0, fmt.Errorf("could not export state for '%s': %w", name, err)
	}
	if err := json.Save(dir, signatureFile, NewSignature(network.Config())); err != nil {
		return 0, fmt.Errorf("could not export signature for '%s': %w", name, err)
	}

	log.Info().
		Str("model", name).
		Int("version", version).
		Str("dir", dir).
		Msg("exported model")

	return version, nil
}

// Versions lists the available versions of the named model in increasing order.
func (r *Registry) Versions(name string) ([]int, error) {

	dir := filepath.Join(r.root, storage.ModelDir, name)
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("no exports for model '%s': %w", name, storage.NotFoundErr)
	}

	versions := make([]int, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		version, err := strconv.Atoi(entry.Name())
		if err != nil || version <= 0 {
			continue
		}
		versions = append(versions, version)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("no exports for model '%s': %w", name, storage.NotFoundErr)
	}

	// ReadDir sorts lexicographically, version numbers need a numeric order
	sort.Ints(versions)

	return versions, nil
}

// Latest resolves the highest exported version of the named model.
func (r *Registry) Latest(name string) (int, error) {
	versions, err := r.Versions(name)
	if err != nil {
		return 0, err
	}
	return versions[len(versions)-1], nil
}

// Signature loads the serving signature of the given export.
func (r *Registry) Signature(name string, version int) (Signature, error) {
	var signature Signature
	if err := json.Load(r.dir(name, version), signatureFile, &signature); err != nil {
		return Signature{}, fmt.Errorf("could not load signature for '%s/%d': %w", name, version, err)
	}
	return signature, nil
}

// Load rebuilds a servable network from the given export.
func (r *Registry) Load(name string, version int) (*net.Network, error) {

	var state net.State
	if err := json.Load(r.dir(name, version), stateFile, &state); err != nil {
		return nil, fmt.Errorf("could not load state for '%s/%d': %w", name, version, err)
	}

	network, err := net.FromState(state)
	if err != nil {
		// the state decoded but does not describe a servable network
		return nil, fmt.Errorf("could not rebuild network for '%s/%d': %v: %w", name, version, err, storage.UnrecoverableErr)
	}
	return network, nil
}

// LoadLatest rebuilds the highest version of the named model.
func (r *Registry) LoadLatest(name string) (*net.Network, int, error) {
	version, err := r.Latest(name)
	if err != nil {
		return nil, 0, err
	}
	network, err := r.Load(name, version)
	if err != nil {
		return nil, 0, err
	}
	return network, version, nil
}
