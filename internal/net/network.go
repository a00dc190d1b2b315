package net

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/drakos74/go-ex-machina/xmachina/ml"
	"github.com/drakos74/go-ex-machina/xmath"
	"github.com/drakos74/planet-vision/internal/model"
)

// Layer is a computation stage of the network with a forward
// and a backward pass.
type Layer interface {
	Forward(v xmath.Vector) xmath.Vector
	Backward(grad xmath.Vector) xmath.Vector
	State() LayerState
	Restore(state LayerState)
}

// LayerState holds the parameters of a single layer.
// Parameter-free layers leave it empty.
type LayerState struct {
	Weights xmath.Matrix `json:"weights,omitempty"`
	Bias    xmath.Vector `json:"bias,omitempty"`
}

// Config defines the network architecture and learning parameters.
type Config struct {
	ImageSize int     `json:"image_size"`
	Filters   int     `json:"filters"`
	Hidden    int     `json:"hidden"`
	Dropout   float64 `json:"dropout"`
	Rate      float64 `json:"rate"`
	Seed      int64   `json:"seed"`
}

// NewConfig returns the default architecture for the given input size.
func NewConfig(imageSize int) Config {
	return Config{
		ImageSize: imageSize,
		Filters:   32,
		Hidden:    128,
		Dropout:   0.2,
		Rate:      0.1,
		Seed:      11,
	}
}

// Network is a convolutional network with a shared trunk and two heads:
// a softmax head over the weather labels and a sigmoid head over the
// ground labels. The backward pass sums the head gradients into the trunk.
// The layers cache their inputs and outputs between passes, so all
// passes are serialized behind the network mutex and the network is
// safe to share between goroutines.
type Network struct {
	mutex      sync.Mutex
	config     Config
	trunk      []Layer
	dropouts   []*Dropout
	weather    *Dense
	ground     *Dense
	softmax    ml.SoftMax
	iterations int
}

// New creates a new network for the given config.
func New(config Config) *Network {

	rng := rand.New(rand.NewSource(config.Seed))

	s := config.ImageSize
	f := config.Filters

	conv1 := NewConv2D(s, 3, f, config.Rate, rng)
	pool1 := NewMaxPool2D(s, f)
	s1 := pool1.OutSize()
	conv2 := NewConv2D(s1, f, f, config.Rate, rng)
	pool2 := NewMaxPool2D(s1, f)
	s2 := pool2.OutSize()

	drop1 := NewDropout(config.Dropout, rng)
	drop2 := NewDropout(config.Dropout, rng)

	dense1 := NewDense(s2*s2*f, config.Hidden, ReLU, config.Rate, rng)
	dense2 := NewDense(config.Hidden, config.Hidden, ReLU, config.Rate, rng)

	return &Network{
		config:   config,
		trunk:    []Layer{conv1, pool1, conv2, pool2, dense1, drop1, dense2, drop2},
		dropouts: []*Dropout{drop1, drop2},
		weather:  NewDense(config.Hidden, len(model.WeatherLabels), Linear, config.Rate, rng),
		ground:   NewDense(config.Hidden, len(model.GroundLabels), Linear, config.Rate, rng),
	}
}

// Config returns the network config.
func (n *Network) Config() Config {
	return n.config
}

// Iterations returns the number of training steps taken.
func (n *Network) Iterations() int {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.iterations
}

func (n *Network) forward(pixels xmath.Vector) (xmath.Vector, xmath.Vector) {
	h := pixels
	for _, layer := range n.trunk {
		h = layer.Forward(h)
	}
	weather := n.softmax.F(n.weather.Forward(h))
	ground := n.ground.Forward(h).Op(ml.Sigmoid.F)
	return weather, ground
}

func (n *Network) train(train bool) {
	for _, d := range n.dropouts {
		d.Train(train)
	}
}

// Predict runs the forward pass on the given flattened image tensor.
func (n *Network) Predict(pixels []float64) ([]float64, []float64, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.predict(pixels)
}

// predict is the forward pass without the lock, for callers already
// holding the mutex.
func (n *Network) predict(pixels []float64) ([]float64, []float64, error) {
	if expected := n.config.ImageSize * n.config.ImageSize * 3; len(pixels) != expected {
		return nil, nil, fmt.Errorf("instance has %d values instead of %d", len(pixels), expected)
	}
	n.train(false)
	weather, ground := n.forward(xmath.Vec(len(pixels)).With(pixels...))
	return weather, ground, nil
}

// Loss holds the per-head and combined losses of a training step.
type Loss struct {
	Weather  float64 `json:"weather"`
	Ground   float64 `json:"ground"`
	Combined float64 `json:"combined"`
}

// Train runs one SGD step on the given sample and returns its loss.
func (n *Network) Train(pixels, weatherTarget, groundTarget []float64) (Loss, error) {
	if expected := n.config.ImageSize * n.config.ImageSize * 3; len(pixels) != expected {
		return Loss{}, fmt.Errorf("sample has %d values instead of %d", len(pixels), expected)
	}
	if len(weatherTarget) != len(model.WeatherLabels) || len(groundTarget) != len(model.GroundLabels) {
		return Loss{}, fmt.Errorf("unexpected label widths %d/%d", len(weatherTarget), len(groundTarget))
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.train(true)
	defer n.train(false)

	weather, ground := n.forward(xmath.Vec(len(pixels)).With(pixels...))

	expWeather := xmath.Vec(len(weatherTarget)).With(weatherTarget...)
	expGround := xmath.Vec(len(groundTarget)).With(groundTarget...)

	loss := Loss{
		Weather: crossEntropy(expWeather, weather),
		Ground:  binaryCrossEntropy(expGround, ground),
	}
	loss.Combined = loss.Weather + loss.Ground

	// softmax with cross entropy and sigmoid with binary cross entropy
	// both reduce to (output - expected) at the pre-activation
	dWeather := weather.Diff(expWeather)
	dGround := ground.Diff(expGround)

	grad := n.weather.Backward(dWeather).Add(n.ground.Backward(dGround))
	for i := len(n.trunk) - 1; i >= 0; i-- {
		grad = n.trunk[i].Backward(grad)
	}

	n.iterations++

	return loss, nil
}

// Evaluate computes the losses of the given sample without training.
func (n *Network) Evaluate(pixels, weatherTarget, groundTarget []float64) (Loss, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	weather, ground, err := n.predict(pixels)
	if err != nil {
		return Loss{}, err
	}
	loss := Loss{
		Weather: crossEntropy(
			xmath.Vec(len(weatherTarget)).With(weatherTarget...),
			xmath.Vec(len(weather)).With(weather...)),
		Ground: binaryCrossEntropy(
			xmath.Vec(len(groundTarget)).With(groundTarget...),
			xmath.Vec(len(ground)).With(ground...)),
	}
	loss.Combined = loss.Weather + loss.Ground
	return loss, nil
}

const epsilon = 1e-12

func crossEntropy(expected, output xmath.Vector) float64 {
	xmath.MustHaveSameSize(expected, output)
	loss := 0.0
	for i := range expected {
		loss += -1 * expected[i] * math.Log(math.Max(output[i], epsilon))
	}
	return loss
}

func binaryCrossEntropy(expected, output xmath.Vector) float64 {
	xmath.MustHaveSameSize(expected, output)
	loss := 0.0
	for i := range expected {
		loss += -1 * (expected[i]*math.Log(math.Max(output[i], epsilon)) +
			(1-expected[i])*math.Log(math.Max(1-output[i], epsilon)))
	}
	return loss / float64(len(expected))
}

// State holds everything needed to rebuild the network.
type State struct {
	Config     Config       `json:"config"`
	Trunk      []LayerState `json:"trunk"`
	Weather    LayerState   `json:"weather"`
	Ground     LayerState   `json:"ground"`
	Iterations int          `json:"iterations"`
}

// State snapshots the network parameters.
func (n *Network) State() State {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	trunk := make([]LayerState, len(n.trunk))
	for i, layer := range n.trunk {
		trunk[i] = layer.State()
	}
	return State{
		Config:     n.config,
		Trunk:      trunk,
		Weather:    n.weather.State(),
		Ground:     n.ground.State(),
		Iterations: n.iterations,
	}
}

// Restore loads a snapshot into the network in place.
func (n *Network) Restore(state State) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if state.Config != n.config {
		return fmt.Errorf("state config %+v does not match network config %+v", state.Config, n.config)
	}
	if len(state.Trunk) != len(n.trunk) {
		return fmt.Errorf("state has %d trunk layers instead of %d", len(state.Trunk), len(n.trunk))
	}
	for i, layer := range n.trunk {
		layer.Restore(state.Trunk[i])
	}
	n.weather.Restore(state.Weather)
	n.ground.Restore(state.Ground)
	n.iterations = state.Iterations
	return nil
}

// FromState rebuilds a network from a snapshot.
func FromState(state State) (*Network, error) {
	n := New(state.Config)
	if err := n.Restore(state); err != nil {
		return nil, err
	}
	return n, nil
}
