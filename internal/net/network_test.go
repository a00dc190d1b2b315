package net

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/drakos74/go-ex-machina/xmath"
	"github.com/drakos74/planet-vision/internal/model"
	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	return Config{
		ImageSize: 8,
		Filters:   4,
		Hidden:    16,
		Dropout:   0.2,
		Rate:      0.05,
		Seed:      11,
	}
}

func testSample(rng *rand.Rand, size int) []float64 {
	pixels := make([]float64, size*size*3)
	for i := range pixels {
		pixels[i] = rng.Float64()
	}
	return pixels
}

func TestNetwork_Predict(t *testing.T) {

	network := New(testConfig())
	rng := rand.New(rand.NewSource(42))

	weather, ground, err := network.Predict(testSample(rng, 8))
	assert.NoError(t, err)

	assert.Equal(t, len(model.WeatherLabels), len(weather))
	assert.Equal(t, len(model.GroundLabels), len(ground))

	// the weather head is a probability distribution
	sum := 0.0
	for _, w := range weather {
		assert.True(t, w >= 0 && w <= 1)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// the ground head is a set of independent probabilities
	for _, g := range ground {
		assert.True(t, g > 0 && g < 1)
	}
}

func TestNetwork_PredictBadShape(t *testing.T) {

	network := New(testConfig())

	_, _, err := network.Predict(make([]float64, 10))
	assert.Error(t, err)
}

func TestNetwork_Train(t *testing.T) {

	network := New(testConfig())
	rng := rand.New(rand.NewSource(42))

	// two samples with distinct labels
	type example struct {
		pixels  []float64
		weather []float64
		ground  []float64
	}

	examples := []example{
		{
			pixels:  testSample(rng, 8),
			weather: []float64{1, 0, 0, 0},
			ground:  oneHotGround("primary"),
		},
		{
			pixels:  testSample(rng, 8),
			weather: []float64{0, 0, 1, 0},
			ground:  oneHotGround("water"),
		},
	}

	var first, last Loss
	for epoch := 0; epoch < 50; epoch++ {
		epochLoss := Loss{}
		for _, ex := range examples {
			loss, err := network.Train(ex.pixels, ex.weather, ex.ground)
			assert.NoError(t, err)
			epochLoss.Combined += loss.Combined
		}
		if epoch == 0 {
			first = epochLoss
		}
		last = epochLoss
	}

	assert.True(t, last.Combined < first.Combined,
		"expected loss to decrease : %f -> %f", first.Combined, last.Combined)
	assert.Equal(t, 100, network.Iterations())

	// the network should have fit the examples
	for _, ex := range examples {
		weather, _, err := network.Predict(ex.pixels)
		assert.NoError(t, err)
		assert.Equal(t, argmax(ex.weather), argmax(weather))
	}
}

func TestNetwork_StateRoundTrip(t *testing.T) {

	network := New(testConfig())
	rng := rand.New(rand.NewSource(42))

	pixels := testSample(rng, 8)
	_, err := network.Train(pixels, []float64{0, 1, 0, 0}, oneHotGround("road"))
	assert.NoError(t, err)

	restored, err := FromState(network.State())
	assert.NoError(t, err)

	w1, g1, err := network.Predict(pixels)
	assert.NoError(t, err)
	w2, g2, err := restored.Predict(pixels)
	assert.NoError(t, err)

	assert.Equal(t, w1, w2)
	assert.Equal(t, g1, g2)
	assert.Equal(t, network.Iterations(), restored.Iterations())
}

func TestMaxPool2D_Backward(t *testing.T) {

	pool := NewMaxPool2D(4, 1)

	v := xmath.Vec(16)
	// one clear maximum per window
	v[5] = 5   // window (0,0)
	v[3] = 3   // window (0,1)
	v[12] = 2  // window (1,0)
	v[15] = 10 // window (1,1)

	out := pool.Forward(v)
	assert.Equal(t, xmath.Vec(4).With(5, 3, 2, 10), out)

	grad := pool.Backward(xmath.Vec(4).With(1, 2, 3, 4))
	assert.Equal(t, 1.0, grad[5])
	assert.Equal(t, 2.0, grad[3])
	assert.Equal(t, 3.0, grad[12])
	assert.Equal(t, 4.0, grad[15])
}

func TestConv2D_Shape(t *testing.T) {

	rng := rand.New(rand.NewSource(11))
	conv := NewConv2D(8, 3, 4, 0.1, rng)

	in, out := conv.Shape()
	assert.Equal(t, 8*8*3, in)
	assert.Equal(t, 8*8*4, out)

	v := xmath.Vec(in)
	for i := range v {
		v[i] = rng.Float64()
	}
	assert.Equal(t, out, len(conv.Forward(v)))
}

func TestDropout_Forward(t *testing.T) {

	rng := rand.New(rand.NewSource(11))
	dropout := NewDropout(0.5, rng)

	v := xmath.Vec(1000)
	for i := range v {
		v[i] = 1
	}

	// pass-through outside of training
	assert.Equal(t, v, dropout.Forward(v))

	dropout.Train(true)
	out := dropout.Forward(v)

	zeros := 0
	for _, o := range out {
		if o == 0 {
			zeros++
		} else {
			assert.InDelta(t, 2.0, o, 1e-9)
		}
	}
	assert.True(t, zeros > 400 && zeros < 600, "unexpected number of dropped values : %d", zeros)
}

func oneHotGround(label string) []float64 {
	v := make([]float64, len(model.GroundLabels))
	for i, l := range model.GroundLabels {
		if l == label {
			v[i] = 1
		}
	}
	return v
}

func argmax(v []float64) int {
	idx := 0
	max := math.Inf(-1)
	for i, x := range v {
		if x > max {
			max = x
			idx = i
		}
	}
	return idx
}

func TestNetwork_ConcurrentPredict(t *testing.T) {

	network := New(testConfig())
	rng := rand.New(rand.NewSource(42))
	pixels := testSample(rng, testConfig().ImageSize)

	weather, ground, err := network.Predict(pixels)
	assert.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				w, gr, err := network.Predict(pixels)
				assert.NoError(t, err)
				assert.Equal(t, weather, w)
				assert.Equal(t, ground, gr)
			}
		}()
	}
	wg.Wait()
}
